package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"user_management/internal/model"

	"github.com/jackc/pgx/v5"
)

// UserRepository defines operations for user data
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	FindByID(ctx context.Context, id int64) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	UpdateFunc(ctx context.Context, id int64, fn func(user *model.User) error) (*model.User, error)
	Delete(ctx context.Context, id int64) (*model.User, error)
	List(ctx context.Context, params model.ListParams) ([]model.User, int64, error)
}

const userColumns = `id, first_name, last_name, role, email, password, latitude, longitude, date_of_birth, timezone, created_at, updated_at`

type userRepository struct {
	db      DB
	timeout time.Duration
}

// NewUserRepository creates a new UserRepository. Every call is bounded by timeout.
func NewUserRepository(db DB, timeout time.Duration) UserRepository {
	return &userRepository{db: db, timeout: timeout}
}

func scanUser(row pgx.Row, u *model.User) error {
	return row.Scan(
		&u.ID, &u.FirstName, &u.LastName, &u.Role, &u.Email, &u.PasswordHash,
		&u.Latitude, &u.Longitude, &u.DateOfBirth, &u.Timezone, &u.CreatedAt, &u.UpdatedAt,
	)
}

// Create inserts a new user into the database
func (r *userRepository) Create(ctx context.Context, u *model.User) error {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	sql := `INSERT INTO users (first_name, last_name, role, email, password, latitude, longitude, date_of_birth, timezone, created_at, updated_at)
            VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW()) RETURNING id, created_at, updated_at`
	err := r.db.QueryRow(ctx, sql,
		u.FirstName, u.LastName, u.Role, u.Email, u.PasswordHash,
		u.Latitude, u.Longitude, u.DateOfBirth, u.Timezone,
	).Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateEmail
		}
		return wrapErr("failed to create user", err)
	}
	return nil
}

// FindByID retrieves a user by ID. It returns (nil, nil) when there is none.
func (r *userRepository) FindByID(ctx context.Context, id int64) (*model.User, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	user := &model.User{}
	err := scanUser(r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id), user)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, wrapErr("failed to find user by ID", err)
	}
	return user, nil
}

// FindByEmail retrieves a user by normalized email. It returns (nil, nil) when there is none.
func (r *userRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	user := &model.User{}
	err := scanUser(r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email), user)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, wrapErr("failed to find user by email", err)
	}
	return user, nil
}

// UpdateFunc locks the user row, applies fn to it and writes the result back
// in one transaction. An error from fn aborts the update and is returned as is.
func (r *userRepository) UpdateFunc(ctx context.Context, id int64, fn func(user *model.User) error) (*model.User, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, wrapErr("failed to begin user update", err)
	}

	user := &model.User{}
	err = scanUser(tx.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1 FOR UPDATE`, id), user)
	if err != nil {
		_ = tx.Rollback(ctx)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, wrapErr("failed to lock user for update", err)
	}

	if err := fn(user); err != nil {
		_ = tx.Rollback(ctx)
		return nil, err
	}

	sql := `UPDATE users
            SET first_name = $1, last_name = $2, role = $3, email = $4, password = $5,
                latitude = $6, longitude = $7, date_of_birth = $8, timezone = $9, updated_at = NOW()
            WHERE id = $10 RETURNING updated_at`
	err = tx.QueryRow(ctx, sql,
		user.FirstName, user.LastName, user.Role, user.Email, user.PasswordHash,
		user.Latitude, user.Longitude, user.DateOfBirth, user.Timezone, user.ID,
	).Scan(&user.UpdatedAt)
	if err != nil {
		_ = tx.Rollback(ctx)
		if isUniqueViolation(err) {
			return nil, ErrDuplicateEmail
		}
		return nil, wrapErr("failed to update user", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, wrapErr("failed to commit user update", err)
	}
	return user, nil
}

// Delete removes a user and returns the deleted row.
func (r *userRepository) Delete(ctx context.Context, id int64) (*model.User, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	user := &model.User{}
	err := scanUser(r.db.QueryRow(ctx, `DELETE FROM users WHERE id = $1 RETURNING `+userColumns, id), user)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, wrapErr("failed to delete user", err)
	}
	return user, nil
}

// List returns one page of users matching the filters and the total match count.
// params must already be normalized.
func (r *userRepository) List(ctx context.Context, params model.ListParams) ([]model.User, int64, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	args := []interface{}{}
	argCount := 1
	var conditions []string

	if params.Filters.Role != nil {
		conditions = append(conditions, fmt.Sprintf("role = $%d", argCount))
		args = append(args, *params.Filters.Role)
		argCount++
	}
	if params.Filters.Search != nil && *params.Filters.Search != "" {
		conditions = append(conditions, fmt.Sprintf(
			"(first_name ILIKE $%[1]d OR last_name ILIKE $%[1]d OR email ILIKE $%[1]d)", argCount))
		args = append(args, "%"+escapeLike(*params.Filters.Search)+"%")
		argCount++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM users`+whereClause, args...).Scan(&total); err != nil {
		return nil, 0, wrapErr("failed to count users", err)
	}

	sortBy, sortOrder := params.SortBy, params.SortOrder
	if !model.SortableColumns[sortBy] {
		sortBy, sortOrder = model.DefaultSortBy, model.SortDesc
	}
	if sortOrder != model.SortAsc {
		sortOrder = model.SortDesc
	}

	var queryBuilder strings.Builder
	queryBuilder.WriteString(`SELECT ` + userColumns + ` FROM users`)
	queryBuilder.WriteString(whereClause)
	queryBuilder.WriteString(fmt.Sprintf(" ORDER BY %s %s, id %s LIMIT $%d OFFSET $%d",
		sortBy, strings.ToUpper(sortOrder), strings.ToUpper(sortOrder), argCount, argCount+1))
	pageArgs := append(append([]interface{}{}, args...), params.PerPage, params.Offset())

	rows, err := r.db.Query(ctx, queryBuilder.String(), pageArgs...)
	if err != nil {
		return nil, 0, wrapErr("failed to query users", err)
	}
	defer rows.Close()

	users := []model.User{}
	for rows.Next() {
		var u model.User
		if err := scanUser(rows, &u); err != nil {
			return nil, 0, wrapErr("failed to scan user row", err)
		}
		users = append(users, u)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, wrapErr("error iterating user rows", err)
	}
	return users, total, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
