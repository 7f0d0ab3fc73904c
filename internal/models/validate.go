package models

import (
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/aisocialapp/appcore/internal/apperr"
)

var validate = validator.New()

// Validate checks an entity's writable fields before it is sent to the
// gateway, converting validator failures into validation errors.
func Validate(entity any) error {
	if err := validate.Struct(entity); err != nil {
		return apperr.Wrap(apperr.KindValidation, "invalid entity", err)
	}
	return nil
}

// UsernameFromEmail derives the display handle the schema keys on from a
// sign-in email, matching how accounts are provisioned.
func UsernameFromEmail(email string) string {
	if i := strings.IndexByte(email, '@'); i >= 0 {
		return email[:i]
	}
	return email
}
