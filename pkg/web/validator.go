package web

import (
	"regexp"

	"github.com/go-playground/validator/v10"
)

var slugPattern = regexp.MustCompile(`^[a-z0-9-]+$`)

// NewValidator builds the request validator with the custom flowslug tag
// used by flow payloads.
func NewValidator() *validator.Validate {
	v := validator.New()

	// Registration only fails for blank tags; safe to ignore here.
	_ = v.RegisterValidation("flowslug", func(fl validator.FieldLevel) bool {
		return slugPattern.MatchString(fl.Field().String())
	})

	return v
}
