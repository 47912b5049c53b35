package fixer

import (
	"errors"
	"reflect"
	"strings"

	"github.com/aleister1102/secwatch/internal/common"
	"github.com/aleister1102/secwatch/internal/models"
	"github.com/go-playground/validator/v10"
)

func newPayloadValidator() *validator.Validate {
	validate := validator.New()

	// Report fields by their wire names.
	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return field.Name
		}
		return name
	})

	_ = validate.RegisterValidation("nonul", func(fl validator.FieldLevel) bool {
		return !strings.ContainsRune(fl.Field().String(), 0)
	})

	return validate
}

// validatePayload checks the request shape and returns a *common.ValidationError
// naming the first offending field.
func validatePayload(validate *validator.Validate, payload models.FixPayload) error {
	err := validate.Struct(payload)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return common.NewValidationError("payload", nil, err.Error())
	}

	fe := fieldErrs[0]
	var message string
	switch fe.Tag() {
	case "required":
		message = "is required"
	case "nonul":
		message = "must not contain NUL bytes"
	default:
		message = "failed '" + fe.Tag() + "' check"
	}
	value := fe.Value()
	if fe.Tag() == "required" {
		value = nil
	}
	return common.NewValidationError(fe.Field(), value, message)
}
