package utils

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ErrInvalidEmail is returned by NormalizeEmail when the input is not an email address.
var ErrInvalidEmail = errors.New("email not valid")

var emailValidate = validator.New()

// gmailDomains fold dots and +tags in the local part.
var gmailDomains = map[string]bool{
	"gmail.com":      true,
	"googlemail.com": true,
}

// NormalizeEmail returns the canonical form of an email address used for
// storage, lookups and uniqueness checks. Addresses at the Gmail domains have
// every dot removed from the local part and everything from the first '+'
// dropped, so a.b+tag@gmail.com and ab@gmail.com normalize identically.
func NormalizeEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	if email == "" || emailValidate.Var(email, "email") != nil {
		return "", ErrInvalidEmail
	}

	local, domain, ok := strings.Cut(email, "@")
	if !ok {
		return "", ErrInvalidEmail
	}

	if gmailDomains[domain] {
		local = strings.ReplaceAll(local, ".", "")
		if i := strings.Index(local, "+"); i >= 0 {
			local = local[:i]
		}
		if local == "" {
			return "", ErrInvalidEmail
		}
	}

	return local + "@" + domain, nil
}

// EmailDomain returns the part after the '@', or "" when there is none.
func EmailDomain(email string) string {
	i := strings.LastIndex(email, "@")
	if i < 0 {
		return ""
	}
	return email[i+1:]
}
