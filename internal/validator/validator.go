package validator

import (
	"strings"

	ierr "github.com/kewsys/registry/internal/errors"
	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

func NewValidator() *validator.Validate {
	validate = validator.New()
	return validate
}

func GetValidator() *validator.Validate {
	return validate
}

// ValidateRequest checks the validate tags of a request DTO. Violations are
// reported in the same {field, message} shape as entity payload validation.
func ValidateRequest(req interface{}) error {
	if validate == nil {
		NewValidator()
	}

	if err := validate.Struct(req); err != nil {
		var violations []map[string]string
		var validateErrs validator.ValidationErrors
		if ierr.As(err, &validateErrs) {
			for _, fe := range validateErrs {
				violations = append(violations, map[string]string{
					"field":   lowerFirst(fe.Field()),
					"message": message(fe),
				})
			}
		}
		return ierr.WithError(err).
			WithHint("Validation failed").
			WithReportableDetails(map[string]any{"violations": violations}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

func message(fe validator.FieldError) string {
	field := lowerFirst(fe.Field())
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "email":
		return field + " must be a valid email"
	case "min":
		return field + " must be at least " + fe.Param() + " characters"
	case "max":
		return field + " must be at most " + fe.Param() + " characters"
	case "oneof":
		return field + " must be one of [" + strings.ReplaceAll(fe.Param(), " ", ", ") + "]"
	case "ne":
		return field + " must not be " + fe.Param()
	}
	return field + " is invalid"
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}
