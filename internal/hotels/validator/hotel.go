package validator

import (
	"errors"
	"fmt"
	"strings"

	"travelcore/pkg/config"
	"travelcore/pkg/logger"
	"travelcore/pkg/model"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (v ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", v.Field, v.Message)
}

type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return ""
	}
	var messages []string
	for _, err := range v {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("validation failed: %d error(s): [%s]", len(v), strings.Join(messages, "; "))
}

// StayInput is the tagged shape of a quote or booking request.
type StayInput struct {
	RoomTypeID string `validate:"required"`
	CheckIn    string `validate:"required,isodate"`
	CheckOut   string `validate:"required,isodate"`
	Rooms      int    `validate:"min=1,max=50"`
	Adults     int    `validate:"min=1"`
	Children   int    `validate:"min=0"`
	UserID     string `validate:"required_with=CouponCode"`
	CouponCode string `validate:"omitempty,max=20"`
}

type HotelValidator struct {
	validate *validator.Validate
	logger   *logger.Logger
}

func NewHotelValidator(log *logger.Logger) *HotelValidator {
	v := validator.New()

	if err := v.RegisterValidation("isodate", validateDate); err != nil {
		log.Fatal("Failed to register 'isodate' validator", "error", err)
	}

	log.Info("Hotel validator initialized successfully")

	return &HotelValidator{
		validate: v,
		logger:   log,
	}
}

func validateDate(fl validator.FieldLevel) bool {
	_, err := model.ParseDate(fl.Field().String())
	return err == nil
}

func (v *HotelValidator) ValidateRoomType(rt *model.RoomType) error {
	errs, err := v.structErrors(rt)
	if err != nil {
		return err
	}

	if rt.MaxOccupancy > rt.MaxAdults+rt.MaxChildren {
		errs = append(errs, ValidationError{Field: "MaxOccupancy", Message: "max_occupancy cannot exceed max_adults plus max_children"})
	}
	if rt.ExtraAdultCharge.IsNegative() {
		errs = append(errs, ValidationError{Field: "ExtraAdultCharge", Message: "extra_adult_charge cannot be negative"})
	}
	if rt.ExtraChildCharge.IsNegative() {
		errs = append(errs, ValidationError{Field: "ExtraChildCharge", Message: "extra_child_charge cannot be negative"})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// ValidateAvailability checks the inventory counts and the rate card.
func (v *HotelValidator) ValidateAvailability(a *model.RoomAvailability) error {
	errs, err := v.structErrors(a)
	if err != nil {
		return err
	}

	if a.RoomTypeID == "" {
		errs = append(errs, ValidationError{Field: "RoomTypeID", Message: "room_type_id is required"})
	}
	if a.Date.IsZero() {
		errs = append(errs, ValidationError{Field: "Date", Message: "date is required"})
	}
	if a.BlockedRooms > a.AvailableRooms {
		errs = append(errs, ValidationError{Field: "BlockedRooms", Message: "blocked_rooms cannot exceed available_rooms"})
	}
	if !a.PricePerNight.IsPositive() {
		errs = append(errs, ValidationError{Field: "PricePerNight", Message: "price_per_night must be greater than 0"})
	}
	if a.WeekendSurcharge.IsNegative() {
		errs = append(errs, ValidationError{Field: "WeekendSurcharge", Message: "weekend_surcharge cannot be negative"})
	}
	if a.SeasonalSurcharge.IsNegative() {
		errs = append(errs, ValidationError{Field: "SeasonalSurcharge", Message: "seasonal_surcharge cannot be negative"})
	}
	if a.DiscountPercentage.IsNegative() || a.DiscountPercentage.GreaterThan(hundred) {
		errs = append(errs, ValidationError{Field: "DiscountPercentage", Message: "discount_percentage must be between 0 and 100"})
	}
	if a.TaxPercentage.IsNegative() {
		errs = append(errs, ValidationError{Field: "TaxPercentage", Message: "tax_percentage cannot be negative"})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// ValidateStay checks field shapes, that check-out follows check-in and that
// the stay is at most config.MaxStayNights nights.
func (v *HotelValidator) ValidateStay(in StayInput) error {
	errs, err := v.structErrors(in)
	if err != nil {
		return err
	}

	if len(errs) == 0 {
		checkIn, _ := model.ParseDate(in.CheckIn)
		checkOut, _ := model.ParseDate(in.CheckOut)
		switch {
		case !checkOut.After(checkIn):
			errs = append(errs, ValidationError{Field: "CheckOut", Message: "check_out must be after check_in"})
		case len(model.Nights(checkIn, checkOut)) > config.MaxStayNights:
			errs = append(errs, ValidationError{
				Field:   "CheckOut",
				Message: fmt.Sprintf("a stay cannot be longer than %d nights", config.MaxStayNights),
			})
		}
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func (v *HotelValidator) structErrors(s any) (ValidationErrors, error) {
	if err := v.validate.Struct(s); err != nil {
		var validationErrs validator.ValidationErrors
		if !errors.As(err, &validationErrs) {
			return nil, err
		}
		return v.translateValidationErrors(validationErrs), nil
	}
	return nil, nil
}

func (v *HotelValidator) translateValidationErrors(errs validator.ValidationErrors) ValidationErrors {
	var validationErrors ValidationErrors

	for _, err := range errs {
		message := err.Error()

		switch err.Tag() {
		case "required":
			message = fmt.Sprintf("%s is required", err.Field())
		case "required_with":
			message = fmt.Sprintf("%s is required when %s is set", err.Field(), err.Param())
		case "min":
			message = fmt.Sprintf("%s must be at least %s", err.Field(), err.Param())
		case "max":
			message = fmt.Sprintf("%s must be at most %s", err.Field(), err.Param())
		case "ltefield":
			message = fmt.Sprintf("%s cannot exceed %s", err.Field(), err.Param())
		case "isodate":
			message = fmt.Sprintf("%s must be a date in YYYY-MM-DD format", err.Field())
		}

		validationErrors = append(validationErrors, ValidationError{
			Field:   err.Field(),
			Message: message,
		})
	}

	return validationErrors
}
