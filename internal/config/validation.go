package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ValidationError describes one invalid settings field.
type ValidationError struct {
	FieldPath string // Dot-notation path using yaml names (e.g. "store.uri")
	Message   string
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface
func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return "no validation errors"
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("validation failed with %d error(s):\n", len(ve)))
	for i, err := range ve {
		sb.WriteString(fmt.Sprintf("  %d. %s: %s\n", i+1, err.FieldPath, err.Message))
	}
	return sb.String()
}

var validate *validator.Validate

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

// Validate checks the settings and returns all problems at once.
func (s Settings) Validate() error {
	if err := validate.Struct(s); err != nil {
		return convertValidatorErrors(err)
	}
	return nil
}

func convertValidatorErrors(err error) error {
	var validatorErrs validator.ValidationErrors
	if !errors.As(err, &validatorErrs) {
		return err
	}

	var validationErrors ValidationErrors
	for _, e := range validatorErrs {
		// Namespace is "Settings.store.uri"; drop the root type name.
		fieldPath := e.Namespace()
		if idx := strings.Index(fieldPath, "."); idx >= 0 {
			fieldPath = fieldPath[idx+1:]
		}
		validationErrors = append(validationErrors, ValidationError{
			FieldPath: fieldPath,
			Message:   getValidationMessage(e),
		})
	}
	return validationErrors
}

func getValidationMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "required_if":
		return fmt.Sprintf("is required when %s", e.Param())
	case "oneof":
		return fmt.Sprintf("must be one of [%s]", e.Param())
	case "hostname_port":
		return "must be a host:port address"
	case "gt":
		return fmt.Sprintf("must be greater than %s", e.Param())
	case "gte":
		return fmt.Sprintf("must be at least %s", e.Param())
	default:
		return fmt.Sprintf("failed %q validation", e.Tag())
	}
}
