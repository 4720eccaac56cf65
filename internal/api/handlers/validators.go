package handlers

import (
	"regexp"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// plan codes are uppercase alphanumerics, e.g. 4200RODE or WHS-PLUS
var planCodePattern = regexp.MustCompile(`^[0-9A-Z][0-9A-Z-]*$`)

// RegisterValidators installs custom binding validations on gin's
// validator engine
func RegisterValidators() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("plancode", validatePlanCode)
	}
}

func validatePlanCode(fl validator.FieldLevel) bool {
	return planCodePattern.MatchString(fl.Field().String())
}
