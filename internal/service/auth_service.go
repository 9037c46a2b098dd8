package service

import (
	"context"
	"errors"
	"fmt"

	"user_management/internal/model"
	"user_management/internal/repository"
	"user_management/internal/utils"
	"user_management/internal/validation"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrUnauthenticated    = errors.New("unauthenticated")
	ErrInvalidCredentials = errors.New("invalid email or password")
)

// InvalidCredentialsMessage is reported on the email field for every failed login,
// whether or not the email exists.
const InvalidCredentialsMessage = "The provided credentials are incorrect."

// AuthService provides authentication related services
type AuthService interface {
	Register(ctx context.Context, payload model.UserPayload) (*model.User, string, error)
	Login(ctx context.Context, req model.LoginRequest) (*model.User, string, error)
	Logout(ctx context.Context, user *model.User, token string) error
	Refresh(ctx context.Context, user *model.User) (string, error)
	Me(ctx context.Context, user *model.User) (*model.User, error)
	Authenticate(ctx context.Context, token string) (*model.User, error)
}

type authService struct {
	userRepo   repository.UserRepository
	issuer     TokenIssuer
	validator  *validation.Validator
	audit      AuditHook
	bcryptCost int
}

// NewAuthService creates a new AuthService
func NewAuthService(userRepo repository.UserRepository, issuer TokenIssuer, validator *validation.Validator, audit AuditHook, bcryptCost int) AuthService {
	return &authService{
		userRepo:   userRepo,
		issuer:     issuer,
		validator:  validator,
		audit:      audit,
		bcryptCost: bcryptCost,
	}
}

// Register creates a new user account and signs it in
func (s *authService) Register(ctx context.Context, payload model.UserPayload) (*model.User, string, error) {
	user, err := createUser(ctx, s.userRepo, s.validator, payload, s.bcryptCost)
	if err != nil {
		return nil, "", err
	}

	token, err := s.issuer.Issue(ctx, user)
	if err != nil {
		return nil, "", fmt.Errorf("user created, but failed to issue token: %w", err)
	}

	s.audit.Record(ctx, ChangeRecord{
		Action:   ActionUserRegistered,
		ActorID:  user.ID,
		TargetID: user.ID,
		After:    snapshot(user),
	})
	return user, token, nil
}

// Login checks the credentials and issues a token, revoking the previous one.
func (s *authService) Login(ctx context.Context, req model.LoginRequest) (*model.User, string, error) {
	if err := validation.ValidateLogin(req); err != nil {
		return nil, "", err
	}

	email, err := utils.NormalizeEmail(req.Email)
	if err != nil {
		return nil, "", ErrInvalidCredentials
	}

	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, "", fmt.Errorf("error finding user by email: %w", err)
	}
	if user == nil || !utils.CheckPasswordHash(req.Password, user.PasswordHash) {
		return nil, "", ErrInvalidCredentials
	}

	token, err := s.issuer.Issue(ctx, user)
	if err != nil {
		return nil, "", err
	}

	s.audit.Record(ctx, ChangeRecord{Action: ActionLogin, ActorID: user.ID, TargetID: user.ID})
	return user, token, nil
}

// Logout revokes the token the caller authenticated with.
func (s *authService) Logout(ctx context.Context, user *model.User, token string) error {
	if err := s.issuer.Revoke(ctx, token); err != nil {
		return err
	}
	s.audit.Record(ctx, ChangeRecord{Action: ActionLogout, ActorID: user.ID, TargetID: user.ID})
	return nil
}

// Refresh swaps the caller's token for a new one. The old token stops
// resolving in the same statement that stores the new one, and stays valid
// if issuing fails.
func (s *authService) Refresh(ctx context.Context, user *model.User) (string, error) {
	token, err := s.issuer.Issue(ctx, user)
	if err != nil {
		return "", err
	}
	s.audit.Record(ctx, ChangeRecord{Action: ActionTokenRefreshed, ActorID: user.ID, TargetID: user.ID})
	return token, nil
}

// Me returns the authenticated user.
func (s *authService) Me(_ context.Context, user *model.User) (*model.User, error) {
	if user == nil {
		return nil, ErrUnauthenticated
	}
	return user, nil
}

// Authenticate resolves a bearer token to its user.
func (s *authService) Authenticate(ctx context.Context, token string) (*model.User, error) {
	if token == "" {
		return nil, ErrUnauthenticated
	}
	return s.issuer.Resolve(ctx, token)
}
