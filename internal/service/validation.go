package service

import (
	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/smart-attendance/internal/models"
)

// NewValidator returns a validator with the attendance domain tags registered.
func NewValidator() *validator.Validate {
	validate := validator.New()
	registerDomainValidations(validate)
	return validate
}

func registerDomainValidations(validate *validator.Validate) {
	_ = validate.RegisterValidation("user_role", func(fl validator.FieldLevel) bool {
		return models.UserRole(fl.Field().String()).Valid()
	})
	_ = validate.RegisterValidation("attendance_method", func(fl validator.FieldLevel) bool {
		return models.AttendanceMethod(fl.Field().String()).Valid()
	})
}

func ensureValidator(validate *validator.Validate) *validator.Validate {
	if validate == nil {
		return NewValidator()
	}
	registerDomainValidations(validate)
	return validate
}
