package utils

import (
	"github.com/go-playground/validator/v10"

	"taskly/pkg/customvalidator"
)

// CustomValidator подключает validator/v10 к echo.
type CustomValidator struct {
	validator *validator.Validate
}

func NewCustomValidator() *CustomValidator {
	v := validator.New()
	if err := customvalidator.RegisterCustomValidations(v); err != nil {
		panic(err)
	}
	return &CustomValidator{validator: v}
}

func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}
