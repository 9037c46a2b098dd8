package service_test

import (
	"context"
	"errors"
	"testing"

	"user_management/internal/model"
	"user_management/internal/service"
	"user_management/internal/testutil"
	"user_management/internal/validation"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type fixture struct {
	users  *testutil.UserRepository
	tokens *testutil.TokenRepository
	audit  *testutil.AuditRecorder
	issuer service.TokenIssuer
	auth   service.AuthService
	svc    service.UserService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger, _ := test.NewNullLogger()
	f := &fixture{
		users:  testutil.NewUserRepository(),
		tokens: testutil.NewTokenRepository(),
		audit:  &testutil.AuditRecorder{},
	}
	v := validation.NewValidator(f.users, nil)
	f.issuer = service.NewTokenIssuer(f.tokens, f.users, 0, logger)
	f.auth = service.NewAuthService(f.users, f.issuer, v, f.audit, bcrypt.MinCost)
	f.svc = service.NewUserService(f.users, f.issuer, v, f.audit, bcrypt.MinCost)
	return f
}

func strPtr(s string) *string     { return &s }
func intPtr(i int) *int           { return &i }
func floatPtr(f float64) *float64 { return &f }

func johnPayload() model.UserPayload {
	return model.UserPayload{
		FirstName:   strPtr("John"),
		LastName:    strPtr("Doe"),
		Role:        intPtr(3),
		Email:       strPtr("john@gmail.com"),
		Password:    strPtr("Password123!"),
		Latitude:    floatPtr(40.7128),
		Longitude:   floatPtr(-74.006),
		DateOfBirth: strPtr("1990-01-01"),
		Timezone:    strPtr("America/New_York"),
	}
}

func payloadFor(first, email string, role model.Role) model.UserPayload {
	p := johnPayload()
	p.FirstName = strPtr(first)
	p.Email = strPtr(email)
	p.Role = intPtr(int(role))
	return p
}

func requireFieldError(t *testing.T, err error, field, message string) {
	t.Helper()
	var verr *validation.ValidationError
	require.True(t, errors.As(err, &verr), "expected validation error, got %v", err)
	require.Contains(t, verr.Fields[field], message)
}

func ctx() context.Context {
	return context.Background()
}
