package service

import (
	"context"
	"crypto/subtle"
	"fmt"
	"time"

	"user_management/internal/model"
	"user_management/internal/repository"
	"user_management/internal/utils"

	"github.com/sirupsen/logrus"
)

// TokenName is stored with every issued token.
const TokenName = "auth_token"

// TokenIssuer creates, resolves and revokes opaque bearer tokens. A user
// holds at most one valid token at any time.
type TokenIssuer interface {
	Issue(ctx context.Context, user *model.User) (string, error)
	RevokeAll(ctx context.Context, userID int64) error
	Revoke(ctx context.Context, plain string) error
	Resolve(ctx context.Context, plain string) (*model.User, error)
}

type tokenIssuer struct {
	tokens repository.TokenRepository
	users  repository.UserRepository
	ttl    time.Duration
	logger logrus.FieldLogger
	now    func() time.Time
}

// NewTokenIssuer creates a TokenIssuer. A zero ttl means tokens never expire.
func NewTokenIssuer(tokens repository.TokenRepository, users repository.UserRepository, ttl time.Duration, logger logrus.FieldLogger) TokenIssuer {
	return &tokenIssuer{
		tokens: tokens,
		users:  users,
		ttl:    ttl,
		logger: logger,
		now:    time.Now,
	}
}

// Issue replaces any token of user with a new one and returns its plaintext.
// The plaintext is not stored and cannot be recovered later.
func (i *tokenIssuer) Issue(ctx context.Context, user *model.User) (string, error) {
	secret, err := utils.GenerateTokenSecret()
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}

	token := &model.Token{
		UserID:    user.ID,
		Name:      TokenName,
		TokenHash: utils.HashToken(secret),
	}
	if err := i.tokens.Upsert(ctx, token); err != nil {
		return "", fmt.Errorf("failed to issue token: %w", err)
	}
	return utils.FormatToken(token.ID, secret), nil
}

// RevokeAll removes every token of a user.
func (i *tokenIssuer) RevokeAll(ctx context.Context, userID int64) error {
	if err := i.tokens.DeleteByUser(ctx, userID); err != nil {
		return fmt.Errorf("failed to revoke tokens: %w", err)
	}
	return nil
}

// Revoke removes the token plain. It fails with ErrUnauthenticated when the
// token does not resolve any more.
func (i *tokenIssuer) Revoke(ctx context.Context, plain string) error {
	id, secret, err := utils.ParseToken(plain)
	if err != nil {
		return ErrUnauthenticated
	}
	deleted, err := i.tokens.DeleteByIDAndHash(ctx, id, utils.HashToken(secret))
	if err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	if !deleted {
		return ErrUnauthenticated
	}
	return nil
}

// Resolve returns the owner of a valid token.
func (i *tokenIssuer) Resolve(ctx context.Context, plain string) (*model.User, error) {
	id, secret, err := utils.ParseToken(plain)
	if err != nil {
		return nil, ErrUnauthenticated
	}

	token, err := i.tokens.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to look up token: %w", err)
	}
	if token == nil || subtle.ConstantTimeCompare([]byte(token.TokenHash), []byte(utils.HashToken(secret))) != 1 {
		return nil, ErrUnauthenticated
	}
	if i.ttl > 0 && i.now().After(token.CreatedAt.Add(i.ttl)) {
		return nil, ErrUnauthenticated
	}

	user, err := i.users.FindByID(ctx, token.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to load token owner: %w", err)
	}
	if user == nil {
		return nil, ErrUnauthenticated
	}

	if err := i.tokens.Touch(ctx, token.ID); err != nil {
		i.logger.WithError(err).WithField("user_id", token.UserID).Warn("failed to record token use")
	}
	return user, nil
}
