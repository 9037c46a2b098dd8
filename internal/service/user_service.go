package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"user_management/internal/model"
	"user_management/internal/repository"
	"user_management/internal/utils"
	"user_management/internal/validation"
)

// UserService provides user management operations
type UserService interface {
	List(ctx context.Context, params model.ListParams) (*model.UserPage, error)
	Get(ctx context.Context, id int64) (*model.User, error)
	Create(ctx context.Context, payload model.UserPayload) (*model.User, error)
	Update(ctx context.Context, id int64, payload model.UserPayload) (*model.User, error)
	Delete(ctx context.Context, id int64) error
}

type userService struct {
	userRepo   repository.UserRepository
	issuer     TokenIssuer
	validator  *validation.Validator
	audit      AuditHook
	bcryptCost int
}

// NewUserService creates a new UserService
func NewUserService(userRepo repository.UserRepository, issuer TokenIssuer, validator *validation.Validator, audit AuditHook, bcryptCost int) UserService {
	return &userService{
		userRepo:   userRepo,
		issuer:     issuer,
		validator:  validator,
		audit:      audit,
		bcryptCost: bcryptCost,
	}
}

// List returns one page of users. params are normalized first.
func (s *userService) List(ctx context.Context, params model.ListParams) (*model.UserPage, error) {
	params = params.Normalize()
	users, total, err := s.userRepo.List(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return &model.UserPage{
		Users:      users,
		Pagination: model.NewPagination(params, total, len(users)),
	}, nil
}

// Get retrieves a single user
func (s *userService) Get(ctx context.Context, id int64) (*model.User, error) {
	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

// Create validates payload and stores a new user. No token is issued.
func (s *userService) Create(ctx context.Context, payload model.UserPayload) (*model.User, error) {
	user, err := createUser(ctx, s.userRepo, s.validator, payload, s.bcryptCost)
	if err != nil {
		return nil, err
	}
	s.audit.Record(ctx, ChangeRecord{
		Action:   ActionUserCreated,
		ActorID:  ActorFromContext(ctx),
		TargetID: user.ID,
		After:    snapshot(user),
	})
	return user, nil
}

// Update applies the supplied fields of payload to the user under a row lock.
// Changing the password revokes the user's token.
func (s *userService) Update(ctx context.Context, id int64, payload model.UserPayload) (*model.User, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}

	validated, err := s.validator.Validate(ctx, payload, validation.ModeUpdate, id)
	if err != nil {
		return nil, err
	}

	var passwordHash string
	if validated.Password != nil {
		passwordHash, err = utils.HashPasswordWithCost(*validated.Password, s.bcryptCost)
		if err != nil {
			return nil, err
		}
	}

	var before map[string]any
	user, err := s.userRepo.UpdateFunc(ctx, id, func(u *model.User) error {
		before = snapshot(u)
		if err := applyPayload(u, validated); err != nil {
			return err
		}
		if passwordHash != "" {
			u.PasswordHash = passwordHash
		}
		return nil
	})
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return nil, ErrUserNotFound
		case errors.Is(err, repository.ErrDuplicateEmail):
			return nil, validation.EmailTaken()
		}
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	if passwordHash != "" {
		if err := s.issuer.RevokeAll(ctx, user.ID); err != nil {
			return nil, err
		}
	}

	changed, oldVals, newVals := diff(before, snapshot(user))
	if passwordHash != "" {
		changed = append(changed, "password")
	}
	s.audit.Record(ctx, ChangeRecord{
		Action:        ActionUserUpdated,
		ActorID:       ActorFromContext(ctx),
		TargetID:      user.ID,
		UpdatedFields: changed,
		Before:        oldVals,
		After:         newVals,
	})
	return user, nil
}

// Delete hard-deletes a user. Its token goes with it.
func (s *userService) Delete(ctx context.Context, id int64) error {
	user, err := s.userRepo.Delete(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to delete user: %w", err)
	}
	s.audit.Record(ctx, ChangeRecord{
		Action:   ActionUserDeleted,
		ActorID:  ActorFromContext(ctx),
		TargetID: user.ID,
		Before:   snapshot(user),
	})
	return nil
}

// createUser is shared by registration and administrative create.
func createUser(ctx context.Context, repo repository.UserRepository, v *validation.Validator, payload model.UserPayload, cost int) (*model.User, error) {
	validated, err := v.Validate(ctx, payload, validation.ModeCreate, 0)
	if err != nil {
		return nil, err
	}

	hashedPassword, err := utils.HashPasswordWithCost(*validated.Password, cost)
	if err != nil {
		return nil, err
	}

	user := &model.User{PasswordHash: hashedPassword}
	if err := applyPayload(user, validated); err != nil {
		return nil, err
	}

	if err := repo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, validation.EmailTaken()
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

// applyPayload copies every supplied field except the password onto u.
// p must have passed validation.
func applyPayload(u *model.User, p model.UserPayload) error {
	if p.FirstName != nil {
		u.FirstName = *p.FirstName
	}
	if p.LastName != nil {
		u.LastName = *p.LastName
	}
	if p.Role != nil {
		u.Role = model.Role(*p.Role)
	}
	if p.Email != nil {
		u.Email = *p.Email
	}
	if p.Latitude != nil {
		u.Latitude = *p.Latitude
	}
	if p.Longitude != nil {
		u.Longitude = *p.Longitude
	}
	if p.DateOfBirth != nil {
		dob, err := time.Parse(model.DateLayout, *p.DateOfBirth)
		if err != nil {
			return fmt.Errorf("invalid date of birth: %w", err)
		}
		u.DateOfBirth = dob
	}
	if p.Timezone != nil {
		u.Timezone = *p.Timezone
	}
	return nil
}
