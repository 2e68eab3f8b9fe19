package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"learnjs_backend/internal/domain"

	"github.com/go-playground/validator/v10"
)

// Validator wraps the go-playground validator
type Validator struct {
	validate *validator.Validate
}

// NewValidator creates a validator that reports fields by their JSON name.
func NewValidator() *Validator {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	_ = v.RegisterValidation("levelnum", func(fl validator.FieldLevel) bool {
		n := fl.Field().Int()
		return n >= 1 && n <= int64(domain.MaxLevel)
	})
	return &Validator{validate: v}
}

// ValidateStruct validates a struct using struct tags
func (v *Validator) ValidateStruct(s interface{}) error {
	return v.validate.Struct(s)
}

// FormatValidationErrors converts validation errors to a field -> message map.
func FormatValidationErrors(err error) map[string]string {
	fields := make(map[string]string)

	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return fields
	}
	for _, e := range validationErrs {
		field := e.Field()
		switch e.Tag() {
		case "required":
			fields[field] = fmt.Sprintf("%s is required", field)
		case "email":
			fields[field] = "invalid email format"
		case "min":
			if e.Kind() == reflect.String {
				fields[field] = fmt.Sprintf("%s must be at least %s characters", field, e.Param())
			} else {
				fields[field] = fmt.Sprintf("%s must be at least %s", field, e.Param())
			}
		case "max":
			if e.Kind() == reflect.String {
				fields[field] = fmt.Sprintf("%s must be at most %s characters", field, e.Param())
			} else {
				fields[field] = fmt.Sprintf("%s must be at most %s", field, e.Param())
			}
		case "gte":
			fields[field] = fmt.Sprintf("%s must be greater than or equal to %s", field, e.Param())
		case "lte":
			fields[field] = fmt.Sprintf("%s must be less than or equal to %s", field, e.Param())
		case "gt":
			fields[field] = fmt.Sprintf("%s must be greater than %s", field, e.Param())
		case "alphanum":
			fields[field] = fmt.Sprintf("%s must contain only letters and digits", field)
		case "levelnum":
			fields[field] = fmt.Sprintf("%s must be a level number between 1 and %d", field, domain.MaxLevel)
		case "len":
			fields[field] = fmt.Sprintf("%s must be exactly %s characters", field, e.Param())
		default:
			fields[field] = fmt.Sprintf("%s is invalid", field)
		}
	}
	return fields
}
