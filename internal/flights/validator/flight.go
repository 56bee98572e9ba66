package validator

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"travelcore/pkg/logger"
	"travelcore/pkg/model"

	"github.com/go-playground/validator/v10"
)

var reAirport = regexp.MustCompile(`^[A-Z]{3}$`)

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

// ScheduleInput is the tagged shape of a schedule claim request.
type ScheduleInput struct {
	AircraftID string `validate:"required,max=64"`
	Date       string `validate:"required,isodate"`
	Departure  string `validate:"required,hhmm"`
	Arrival    string `validate:"required,hhmm"`
}

// LegInput is the tagged shape of a leg request.
type LegInput struct {
	RouteID         string `validate:"required,max=64"`
	StopOrder       int    `validate:"min=1"`
	Origin          string `validate:"required,airport"`
	Destination     string `validate:"required,airport,nefield=Origin"`
	Departure       string `validate:"required,hhmm"`
	Arrival         string `validate:"required,hhmm"`
	DurationMinutes *int   `validate:"omitempty,min=1"`
}

type FlightValidator struct {
	validate *validator.Validate
	logger   *logger.Logger
}

func NewFlightValidator(log *logger.Logger) *FlightValidator {
	v := validator.New()

	custom := map[string]validator.Func{
		"hhmm":    validateTimeOfDay,
		"isodate": validateDate,
		"airport": validateAirport,
	}
	for tag, fn := range custom {
		if err := v.RegisterValidation(tag, fn); err != nil {
			log.Fatal(fmt.Sprintf("Failed to register '%s' validator", tag), "error", err)
		}
	}

	log.Info("Flight validator initialized successfully")

	return &FlightValidator{
		validate: v,
		logger:   log,
	}
}

func validateTimeOfDay(fl validator.FieldLevel) bool {
	_, err := model.ParseTimeOfDay(fl.Field().String())
	return err == nil
}

func validateDate(fl validator.FieldLevel) bool {
	_, err := model.ParseDate(fl.Field().String())
	return err == nil
}

func validateAirport(fl validator.FieldLevel) bool {
	return reAirport.MatchString(fl.Field().String())
}

// ValidateSchedule checks field shapes and that departure precedes arrival.
func (v *FlightValidator) ValidateSchedule(in ScheduleInput) error {
	errs, err := v.structErrors(in)
	if err != nil {
		return err
	}
	if len(errs) == 0 {
		errs = append(errs, orderErrors(in.Departure, in.Arrival)...)
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// ValidateLeg checks field shapes, the time order, and the duration when one
// was supplied.
func (v *FlightValidator) ValidateLeg(in LegInput) error {
	errs, err := v.structErrors(in)
	if err != nil {
		return err
	}
	if len(errs) == 0 {
		errs = append(errs, orderErrors(in.Departure, in.Arrival)...)
	}
	if len(errs) == 0 && in.DurationMinutes != nil {
		dep, _ := model.ParseTimeOfDay(in.Departure)
		arr, _ := model.ParseTimeOfDay(in.Arrival)
		if want := int(arr - dep); *in.DurationMinutes != want {
			errs = append(errs, ValidationError{
				Field:   "DurationMinutes",
				Message: fmt.Sprintf("duration_minutes must equal arrival minus departure (%d)", want),
			})
		}
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func orderErrors(departure, arrival string) ValidationErrors {
	dep, _ := model.ParseTimeOfDay(departure)
	arr, _ := model.ParseTimeOfDay(arrival)
	if dep >= arr {
		return ValidationErrors{{Field: "Arrival", Message: "arrival_time must be after departure_time"}}
	}
	return nil
}

func (v *FlightValidator) structErrors(s any) (ValidationErrors, error) {
	if err := v.validate.Struct(s); err != nil {
		var validationErrs validator.ValidationErrors
		if !errors.As(err, &validationErrs) {
			return nil, err
		}
		return v.translateValidationErrors(validationErrs), nil
	}
	return nil, nil
}

func (v *FlightValidator) translateValidationErrors(errs validator.ValidationErrors) ValidationErrors {
	var validationErrors ValidationErrors

	for _, err := range errs {
		message := err.Error()

		switch err.Tag() {
		case "required":
			message = fmt.Sprintf("%s is required", err.Field())
		case "min":
			message = fmt.Sprintf("%s must be at least %s", err.Field(), err.Param())
		case "max":
			message = fmt.Sprintf("%s must be at most %s characters", err.Field(), err.Param())
		case "nefield":
			message = fmt.Sprintf("%s must differ from %s", err.Field(), err.Param())
		case "hhmm":
			message = fmt.Sprintf("%s must be a time in HH:MM format", err.Field())
		case "isodate":
			message = fmt.Sprintf("%s must be a date in YYYY-MM-DD format", err.Field())
		case "airport":
			message = fmt.Sprintf("%s must be a 3-letter airport code", err.Field())
		}

		validationErrors = append(validationErrors, ValidationError{
			Field:   err.Field(),
			Message: message,
		})
	}

	return validationErrors
}
