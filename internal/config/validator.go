package config

import (
	"PanoGuard/pkg/postprocess"

	"github.com/go-playground/validator/v10"
)

// NewValidator registers the domain tags used by the request DTOs:
// "poslabel" accepts one of the classifier labels or the empty string.
func NewValidator() *validator.Validate {
	v := validator.New()

	_ = v.RegisterValidation("poslabel", func(fl validator.FieldLevel) bool {
		label := fl.Field().String()
		return label == "" || postprocess.IsLabel(label)
	})

	return v
}
