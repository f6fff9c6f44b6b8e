package http_utils

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"
)

// ValidateStruct runs v against s and reports whether it passed. On failure the
// returned response lists one message per failing field.
func ValidateStruct(v *validator.Validate, s interface{}) (ValidationErrorResponse, bool) {
	err := v.Struct(s)

	if err == nil {
		return ValidationErrorResponse{}, true
	}

	response := ValidationErrorResponse{
		BaseResponse: BaseResponse{
			Status:  StatusError,
			Message: "invalid body, validation failed",
		},
	}

	var fieldErrors validator.ValidationErrors

	if errors.As(err, &fieldErrors) {
		response.Errors = lo.Map(fieldErrors, func(item validator.FieldError, index int) string {
			return item.Error()
		})
	} else {
		response.Errors = []string{err.Error()}
	}

	return response, false
}
