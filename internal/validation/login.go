package validation

import (
	"strings"

	"user_management/internal/model"
)

// ValidateLogin checks that a login request carries an email and a password.
// Credentials themselves are checked by the auth service.
func ValidateLogin(req model.LoginRequest) error {
	errs := NewValidationError()

	email := strings.TrimSpace(req.Email)
	if email == "" {
		errs.Add("email", requiredMessage("email"))
	} else if validate.Var(email, "email") != nil {
		errs.Add("email", "The email field must be a valid email address.")
	}
	if req.Password == "" {
		errs.Add("password", requiredMessage("password"))
	}

	if !errs.Empty() {
		return errs
	}
	return nil
}

// EmailTaken is reported when the store rejects a duplicate email.
func EmailTaken() *ValidationError {
	return FieldError("email", msgEmailTaken)
}
