package validation

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	"user_management/internal/model"
	"user_management/internal/utils"
)

// Mode selects which fields are required.
type Mode int

const (
	// ModeCreate requires every field.
	ModeCreate Mode = iota
	// ModeUpdate validates only the supplied fields.
	ModeUpdate
)

// EmailLookup is the read-only store query used for the uniqueness check.
// It returns (nil, nil) when no user has the email.
type EmailLookup interface {
	FindByEmail(ctx context.Context, email string) (*model.User, error)
}

// DomainResolver checks that an email domain exists. *net.Resolver satisfies it.
type DomainResolver interface {
	LookupMX(ctx context.Context, name string) ([]*net.MX, error)
	LookupHost(ctx context.Context, host string) ([]string, error)
}

var minBirthDate = time.Date(1900, time.January, 1, 0, 0, 0, 0, time.UTC)

// Validator checks user payloads for register, create and update.
type Validator struct {
	users    EmailLookup
	resolver DomainResolver
	now      func() time.Time
}

// NewValidator creates a Validator. A nil resolver skips the DNS check of
// email domains.
func NewValidator(users EmailLookup, resolver DomainResolver) *Validator {
	return &Validator{users: users, resolver: resolver, now: time.Now}
}

// Validate checks in against every rule for mode and returns a new payload
// with the email normalized and names and timezone trimmed. targetID is the
// user being updated, whose own email does not count as taken; pass 0 on
// create. A failed check is returned as *ValidationError; any other error
// comes from the store.
func (v *Validator) Validate(ctx context.Context, in model.UserPayload, mode Mode, targetID int64) (model.UserPayload, error) {
	out := in
	errs := NewValidationError()

	if s, ok := present(errs, "first_name", trimmed(in.FirstName), mode); ok {
		check(errs, "first_name", s, firstNameRules)
		out.FirstName = &s
	}
	if s, ok := present(errs, "last_name", trimmed(in.LastName), mode); ok {
		check(errs, "last_name", s, lastNameRules)
		out.LastName = &s
	}

	if in.Role != nil {
		check(errs, "role", *in.Role, roleRules)
	} else if mode == ModeCreate {
		errs.Add("role", requiredMessage("role"))
	}

	if s, ok := present(errs, "email", trimmed(in.Email), mode); ok {
		normalized, err := v.checkEmail(ctx, errs, s, targetID)
		if err != nil {
			return model.UserPayload{}, err
		}
		if normalized != "" {
			out.Email = &normalized
		}
	}

	if in.Password != nil && *in.Password != "" {
		check(errs, "password", *in.Password, passwordRules)
	} else if in.Password != nil || mode == ModeCreate {
		errs.Add("password", requiredMessage("password"))
	}

	if in.Latitude != nil {
		check(errs, "latitude", *in.Latitude, latitudeRules)
	} else if mode == ModeCreate {
		errs.Add("latitude", requiredMessage("latitude"))
	}
	if in.Longitude != nil {
		check(errs, "longitude", *in.Longitude, longitudeRules)
	} else if mode == ModeCreate {
		errs.Add("longitude", requiredMessage("longitude"))
	}

	if s, ok := present(errs, "date_of_birth", trimmed(in.DateOfBirth), mode); ok {
		v.checkDateOfBirth(errs, s)
		out.DateOfBirth = &s
	}
	if s, ok := present(errs, "timezone", trimmed(in.Timezone), mode); ok {
		check(errs, "timezone", s, timezoneRules)
		out.Timezone = &s
	}

	if !errs.Empty() {
		return model.UserPayload{}, errs
	}
	return out, nil
}

// present reports whether a string field was supplied with a value. A missing
// field is required on create; a supplied blank value is always required.
func present(errs *ValidationError, field string, value *string, mode Mode) (string, bool) {
	if value != nil && *value != "" {
		return *value, true
	}
	if value != nil || mode == ModeCreate {
		errs.Add(field, requiredMessage(field))
	}
	return "", false
}

// checkEmail validates and normalizes raw. It returns "" when the address is
// invalid, in which case no uniqueness check is made.
func (v *Validator) checkEmail(ctx context.Context, errs *ValidationError, raw string, targetID int64) (string, error) {
	normalized, err := utils.NormalizeEmail(raw)
	if err != nil || !v.domainResolves(ctx, utils.EmailDomain(normalized)) {
		errs.Add("email", msgEmailInvalid)
		return "", nil
	}
	if validate.Var(normalized, "max=255") != nil {
		errs.Add("email", msgEmailTooLong)
	}

	existing, err := v.users.FindByEmail(ctx, normalized)
	if err != nil {
		return "", fmt.Errorf("failed to check email uniqueness: %w", err)
	}
	if existing != nil && existing.ID != targetID {
		errs.Add("email", msgEmailTaken)
	}
	return normalized, nil
}

func (v *Validator) domainResolves(ctx context.Context, domain string) bool {
	if v.resolver == nil {
		return true
	}
	if mx, err := v.resolver.LookupMX(ctx, domain); err == nil && len(mx) > 0 {
		return true
	}
	hosts, err := v.resolver.LookupHost(ctx, domain)
	return err == nil && len(hosts) > 0
}

func (v *Validator) checkDateOfBirth(errs *ValidationError, s string) {
	if validate.Var(s, "datetime="+model.DateLayout) != nil {
		errs.Add("date_of_birth", msgDateInvalid)
		return
	}
	dob, _ := time.Parse(model.DateLayout, s)

	now := v.now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	if !dob.Before(today) {
		errs.Add("date_of_birth", msgDateBefore)
	}
	if !dob.After(minBirthDate) {
		errs.Add("date_of_birth", msgDateAfter)
	}
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	return &t
}
