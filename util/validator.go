package util

import "github.com/go-playground/validator/v10"

var Validate *validator.Validate = validator.New()

func InitValidator() {
	Validate = validator.New()
}
