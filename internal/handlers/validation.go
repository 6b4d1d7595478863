package handlers

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/BradenHooton/gatehouse/internal/models"
	pkgauth "github.com/BradenHooton/gatehouse/pkg/auth"
	"github.com/go-playground/validator/v10"
)

// Global validator instance (reused across all handlers)
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Report fields by their JSON names so clients can map errors to inputs
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return models.PhonePattern.MatchString(strings.TrimSpace(fl.Field().String()))
	})
	_ = v.RegisterValidation("strongpassword", func(fl validator.FieldLevel) bool {
		return pkgauth.ValidatePassword(fl.Field().String()) == nil
	})

	return v
}

// ValidateRequest validates a request struct and returns a
// *models.ValidationError listing every failing field
func ValidateRequest(req interface{}) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}

	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return fmt.Errorf("%w: %v", models.ErrValidation, err)
	}

	fields := make([]models.FieldError, 0, len(ve))
	for _, fe := range ve {
		if fe.Tag() == "strongpassword" {
			fields = append(fields, passwordReasons(fe)...)
			continue
		}
		fields = append(fields, models.FieldError{Field: fe.Field(), Reason: formatValidationError(fe)})
	}
	return &models.ValidationError{Fields: fields}
}

// passwordReasons expands a strongpassword failure into one entry per broken rule
func passwordReasons(fe validator.FieldError) []models.FieldError {
	value, _ := fe.Value().(string)
	var perr *pkgauth.PasswordValidationError
	if err := pkgauth.ValidatePassword(value); !errors.As(err, &perr) {
		return []models.FieldError{{Field: fe.Field(), Reason: "does not meet the password policy"}}
	}
	fields := make([]models.FieldError, 0, len(perr.Reasons))
	for _, reason := range perr.Reasons {
		fields = append(fields, models.FieldError{Field: fe.Field(), Reason: reason})
	}
	return fields
}

// formatValidationError converts a validator FieldError to a user-friendly message
func formatValidationError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "phone":
		return "must be a valid phone number"
	case "eqfield":
		return "does not match"
	case "min":
		return fmt.Sprintf("must have a minimum of %s characters", fe.Param())
	case "max":
		return fmt.Sprintf("must have a maximum of %s characters", fe.Param())
	default:
		return fmt.Sprintf("failed validation: %s", fe.Tag())
	}
}
