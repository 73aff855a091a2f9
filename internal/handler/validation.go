package handler

import (
	"regexp"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// ciPattern matches a formatted Uruguayan cédula, with or without the
// leading millions digit: "1.234.567-8" or "234.567-8".
var ciPattern = regexp.MustCompile(`^(\d\.)?\d{3}\.\d{3}-\d$`)

// RegisterValidations installs the custom binding validations used by
// request DTOs. Call once at startup, before serving.
func RegisterValidations() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("ci", func(fl validator.FieldLevel) bool {
			return ciPattern.MatchString(fl.Field().String())
		})
	}
}
