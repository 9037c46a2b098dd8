package repository

import (
	"context"
	"errors"
	"time"

	"user_management/internal/model"

	"github.com/jackc/pgx/v5"
)

// TokenRepository stores the hashed bearer tokens, at most one per user.
type TokenRepository interface {
	Upsert(ctx context.Context, token *model.Token) error
	FindByID(ctx context.Context, id int64) (*model.Token, error)
	Touch(ctx context.Context, id int64) error
	DeleteByIDAndHash(ctx context.Context, id int64, tokenHash string) (bool, error)
	DeleteByUser(ctx context.Context, userID int64) error
}

type tokenRepository struct {
	db      DB
	timeout time.Duration
}

// NewTokenRepository creates a new TokenRepository
func NewTokenRepository(db DB, timeout time.Duration) TokenRepository {
	return &tokenRepository{db: db, timeout: timeout}
}

// Upsert stores token as the only token of its user. A previous token row of
// the user is overwritten in the same statement, so the old secret stops
// resolving exactly when the new one starts.
func (r *tokenRepository) Upsert(ctx context.Context, t *model.Token) error {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	sql := `INSERT INTO personal_access_tokens (user_id, token_hash, name, created_at, last_used_at)
            VALUES ($1, $2, $3, NOW(), NULL)
            ON CONFLICT (user_id) DO UPDATE
            SET token_hash = EXCLUDED.token_hash, name = EXCLUDED.name, created_at = NOW(), last_used_at = NULL
            RETURNING id, created_at`
	err := r.db.QueryRow(ctx, sql, t.UserID, t.TokenHash, t.Name).Scan(&t.ID, &t.CreatedAt)
	if err != nil {
		return wrapErr("failed to store token", err)
	}
	t.LastUsedAt = nil
	return nil
}

// FindByID retrieves a token row. It returns (nil, nil) when there is none.
func (r *tokenRepository) FindByID(ctx context.Context, id int64) (*model.Token, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	t := &model.Token{}
	sql := `SELECT id, user_id, token_hash, name, created_at, last_used_at FROM personal_access_tokens WHERE id = $1`
	err := r.db.QueryRow(ctx, sql, id).Scan(&t.ID, &t.UserID, &t.TokenHash, &t.Name, &t.CreatedAt, &t.LastUsedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, wrapErr("failed to find token", err)
	}
	return t, nil
}

// Touch records that the token was just used.
func (r *tokenRepository) Touch(ctx context.Context, id int64) error {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	if _, err := r.db.Exec(ctx, `UPDATE personal_access_tokens SET last_used_at = NOW() WHERE id = $1`, id); err != nil {
		return wrapErr("failed to touch token", err)
	}
	return nil
}

// DeleteByIDAndHash removes a token only if its hash still matches, so a
// token that was already replaced cannot revoke its successor.
func (r *tokenRepository) DeleteByIDAndHash(ctx context.Context, id int64, tokenHash string) (bool, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	cmdTag, err := r.db.Exec(ctx, `DELETE FROM personal_access_tokens WHERE id = $1 AND token_hash = $2`, id, tokenHash)
	if err != nil {
		return false, wrapErr("failed to delete token", err)
	}
	return cmdTag.RowsAffected() > 0, nil
}

// DeleteByUser removes every token of a user.
func (r *tokenRepository) DeleteByUser(ctx context.Context, userID int64) error {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	if _, err := r.db.Exec(ctx, `DELETE FROM personal_access_tokens WHERE user_id = $1`, userID); err != nil {
		return wrapErr("failed to delete user tokens", err)
	}
	return nil
}
