package validator

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"travelcore/pkg/logger"
	"travelcore/pkg/model"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var reCouponCode = regexp.MustCompile(`^[A-Z0-9_-]+$`)

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

type CouponValidator struct {
	validate *validator.Validate
	logger   *logger.Logger
}

func NewCouponValidator(log *logger.Logger) *CouponValidator {
	v := validator.New()

	if err := v.RegisterValidation("coupon_code", validateCouponCode); err != nil {
		log.Fatal("Failed to register 'coupon_code' validator", "error", err)
	}

	log.Info("Coupon validator initialized successfully")

	return &CouponValidator{
		validate: v,
		logger:   log,
	}
}

func validateCouponCode(fl validator.FieldLevel) bool {
	return reCouponCode.MatchString(fl.Field().String())
}

// Validate checks the tagged fields and then the money rules that struct tags
// cannot express on decimals.
func (v *CouponValidator) Validate(c *model.Coupon) error {
	var errs ValidationErrors

	if err := v.validate.Struct(c); err != nil {
		var validationErrs validator.ValidationErrors
		if !errors.As(err, &validationErrs) {
			return err
		}
		errs = v.translateValidationErrors(validationErrs)
	}

	switch c.DiscountType {
	case model.DiscountPercent:
		if !c.DiscountValue.IsPositive() || c.DiscountValue.GreaterThan(hundred) {
			errs = append(errs, ValidationError{Field: "DiscountValue", Message: "percent discount must be greater than 0 and at most 100"})
		}
	case model.DiscountFixed:
		if !c.DiscountValue.IsPositive() {
			errs = append(errs, ValidationError{Field: "DiscountValue", Message: "fixed discount must be greater than 0"})
		}
	}
	if c.MinSpend != nil && c.MinSpend.IsNegative() {
		errs = append(errs, ValidationError{Field: "MinSpend", Message: "min_spend cannot be negative"})
	}
	if c.UsedCount > c.MaxUses {
		errs = append(errs, ValidationError{Field: "UsedCount", Message: "used_count cannot exceed max_uses"})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// ValidateApply checks the redemption input before any store access.
func (v *CouponValidator) ValidateApply(code, userID string, total decimal.Decimal) error {
	var errs ValidationErrors

	if code == "" {
		errs = append(errs, ValidationError{Field: "code", Message: "code is required"})
	}
	if userID == "" {
		errs = append(errs, ValidationError{Field: "user_id", Message: "user_id is required"})
	}
	if total.IsNegative() {
		errs = append(errs, ValidationError{Field: "total_amount", Message: "total_amount cannot be negative"})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func (v *CouponValidator) translateValidationErrors(errs validator.ValidationErrors) ValidationErrors {
	var validationErrors ValidationErrors

	for _, err := range errs {
		message := err.Error()

		switch err.Tag() {
		case "required":
			message = fmt.Sprintf("%s is required", err.Field())
		case "min":
			message = fmt.Sprintf("%s must be at least %s", err.Field(), err.Param())
		case "max":
			message = fmt.Sprintf("%s must be at most %s", err.Field(), err.Param())
		case "oneof":
			message = fmt.Sprintf("%s must be one of [%s]", err.Field(), err.Param())
		case "gtfield":
			message = fmt.Sprintf("%s must be after %s", err.Field(), err.Param())
		case "coupon_code":
			message = "code may only contain A-Z, 0-9, '-' and '_'"
		}

		validationErrors = append(validationErrors, ValidationError{
			Field:   err.Field(),
			Message: message,
		})
	}

	return validationErrors
}
