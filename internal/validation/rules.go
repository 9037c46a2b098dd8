package validation

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"user_management/internal/model"

	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

var personNameRegex = regexp.MustCompile(`^[a-zA-Z\s\-'.]+$`)

// passwordSymbols is the set of special characters a password must draw from.
const passwordSymbols = "@$!%*?&"

func init() {
	validate = validator.New()
	mustRegister("person_name", func(fl validator.FieldLevel) bool {
		return personNameRegex.MatchString(fl.Field().String())
	})
	mustRegister("password_mix", func(fl validator.FieldLevel) bool {
		return hasPasswordMix(fl.Field().String())
	})
}

func mustRegister(tag string, fn validator.Func) {
	if err := validate.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("validation: register %q: %v", tag, err))
	}
}

func hasPasswordMix(s string) bool {
	var lower, upper, digit, symbol bool
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z':
			lower = true
		case r >= 'A' && r <= 'Z':
			upper = true
		case r >= '0' && r <= '9':
			digit = true
		case strings.ContainsRune(passwordSymbols, r):
			symbol = true
		}
	}
	return lower && upper && digit && symbol
}

// rule is one validator tag and the message reported when it fails.
type rule struct {
	tag     string
	message string
}

func roleTag() string {
	parts := make([]string, 0, len(model.ValidRoles))
	for _, r := range model.ValidRoles {
		parts = append(parts, strconv.Itoa(int(r)))
	}
	return "oneof=" + strings.Join(parts, " ")
}

var (
	firstNameRules = []rule{
		{"max=255", "The first name field must not be greater than 255 characters."},
		{"person_name", "The first name may only contain letters, spaces, hyphens, apostrophes, and periods."},
	}
	lastNameRules = []rule{
		{"max=255", "The last name field must not be greater than 255 characters."},
		{"person_name", "The last name may only contain letters, spaces, hyphens, apostrophes, and periods."},
	}
	roleRules = []rule{
		{roleTag(), "The selected role is invalid. Must be 1 (Admin), 2 (Supervisor), or 3 (Agent)."},
	}
	passwordRules = []rule{
		{"min=8", "The password field must be at least 8 characters."},
		{"password_mix", "The password must contain at least one uppercase letter, one lowercase letter, one digit, and one special character."},
	}
	latitudeRules = []rule{
		{"gte=-90,lte=90", "The latitude must be between -90 and 90 degrees."},
	}
	longitudeRules = []rule{
		{"gte=-180,lte=180", "The longitude must be between -180 and 180 degrees."},
	}
	timezoneRules = []rule{
		{"timezone", "The timezone must be a valid timezone identifier."},
	}
)

const (
	msgEmailInvalid = "The email must be a valid email address."
	msgEmailTooLong = "The email field must not be greater than 255 characters."
	msgEmailTaken   = "The email has already been taken."

	msgDateInvalid = "The date of birth field must be a valid date."
	msgDateBefore  = "The date of birth must be before today."
	msgDateAfter   = "The date of birth must be after 1900-01-01."
)

func requiredMessage(field string) string {
	return "The " + strings.ReplaceAll(field, "_", " ") + " field is required."
}

// check runs every rule against value and records each failure.
func check(errs *ValidationError, field string, value any, rules []rule) {
	for _, r := range rules {
		if err := validate.Var(value, r.tag); err != nil {
			errs.Add(field, r.message)
		}
	}
}
