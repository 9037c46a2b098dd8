package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"user_management/internal/model"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var userRowColumns = []string{"id", "first_name", "last_name", "role", "email", "password", "latitude", "longitude", "date_of_birth", "timezone", "created_at", "updated_at"}

func newUserMock(t *testing.T) (pgxmock.PgxPoolIface, UserRepository) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock, NewUserRepository(mock, time.Second)
}

func sampleUser() *model.User {
	return &model.User{
		FirstName:    "John",
		LastName:     "Doe",
		Role:         model.RoleAgent,
		Email:        "john@gmail.com",
		PasswordHash: "$2a$10$hash",
		Latitude:     40.7128,
		Longitude:    -74.006,
		DateOfBirth:  time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC),
		Timezone:     "America/New_York",
	}
}

func userRows(users ...*model.User) *pgxmock.Rows {
	rows := pgxmock.NewRows(userRowColumns)
	for _, u := range users {
		rows.AddRow(u.ID, u.FirstName, u.LastName, u.Role, u.Email, u.PasswordHash,
			u.Latitude, u.Longitude, u.DateOfBirth, u.Timezone, u.CreatedAt, u.UpdatedAt)
	}
	return rows
}

func TestUserRepository_Create(t *testing.T) {
	mock, repo := newUserMock(t)
	u := sampleUser()
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO users")).
		WithArgs(u.FirstName, u.LastName, u.Role, u.Email, u.PasswordHash, u.Latitude, u.Longitude, u.DateOfBirth, u.Timezone).
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(int64(7), now, now))

	require.NoError(t, repo.Create(context.Background(), u))
	assert.Equal(t, int64(7), u.ID)
	assert.Equal(t, now, u.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_Create_DuplicateEmail(t *testing.T) {
	mock, repo := newUserMock(t)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO users")).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"})

	err := repo.Create(context.Background(), sampleUser())
	assert.ErrorIs(t, err, ErrDuplicateEmail)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_Create_Timeout(t *testing.T) {
	mock, repo := newUserMock(t)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO users")).WillReturnError(context.DeadlineExceeded)

	err := repo.Create(context.Background(), sampleUser())
	assert.ErrorIs(t, err, ErrStoreTimeout)
}

func TestUserRepository_FindByID(t *testing.T) {
	mock, repo := newUserMock(t)
	u := sampleUser()
	u.ID = 3

	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE id = $1")).
		WithArgs(int64(3)).
		WillReturnRows(userRows(u))

	got, err := repo.FindByID(context.Background(), 3)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "john@gmail.com", got.Email)
	assert.Equal(t, model.RoleAgent, got.Role)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_FindByID_NotFound(t *testing.T) {
	mock, repo := newUserMock(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE id = $1")).
		WithArgs(int64(99)).
		WillReturnRows(pgxmock.NewRows(userRowColumns))

	got, err := repo.FindByID(context.Background(), 99)
	assert.NoError(t, err)
	assert.Nil(t, got)
}

func TestUserRepository_FindByEmail(t *testing.T) {
	mock, repo := newUserMock(t)
	u := sampleUser()
	u.ID = 1

	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE email = $1")).
		WithArgs("john@gmail.com").
		WillReturnRows(userRows(u))

	got, err := repo.FindByEmail(context.Background(), "john@gmail.com")
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.ID)
}

func TestUserRepository_FindByEmail_Error(t *testing.T) {
	mock, repo := newUserMock(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE email = $1")).
		WillReturnError(errors.New("connection reset"))

	got, err := repo.FindByEmail(context.Background(), "john@gmail.com")
	assert.Error(t, err)
	assert.Nil(t, got)
	assert.NotErrorIs(t, err, ErrStoreTimeout)
}

func TestUserRepository_UpdateFunc(t *testing.T) {
	mock, repo := newUserMock(t)
	u := sampleUser()
	u.ID = 5
	updatedAt := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).WithArgs(int64(5)).WillReturnRows(userRows(u))
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE users")).
		WithArgs("Jane", u.LastName, u.Role, u.Email, u.PasswordHash, u.Latitude, u.Longitude, u.DateOfBirth, u.Timezone, int64(5)).
		WillReturnRows(pgxmock.NewRows([]string{"updated_at"}).AddRow(updatedAt))
	mock.ExpectCommit()

	got, err := repo.UpdateFunc(context.Background(), 5, func(user *model.User) error {
		user.FirstName = "Jane"
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "Jane", got.FirstName)
	assert.Equal(t, updatedAt, got.UpdatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_UpdateFunc_NotFound(t *testing.T) {
	mock, repo := newUserMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).WithArgs(int64(5)).WillReturnRows(pgxmock.NewRows(userRowColumns))
	mock.ExpectRollback()

	called := false
	_, err := repo.UpdateFunc(context.Background(), 5, func(*model.User) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.False(t, called)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_UpdateFunc_CallbackErrorRollsBack(t *testing.T) {
	mock, repo := newUserMock(t)
	u := sampleUser()
	u.ID = 5
	fnErr := errors.New("rejected")

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).WithArgs(int64(5)).WillReturnRows(userRows(u))
	mock.ExpectRollback()

	_, err := repo.UpdateFunc(context.Background(), 5, func(*model.User) error { return fnErr })
	assert.ErrorIs(t, err, fnErr)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_UpdateFunc_DuplicateEmail(t *testing.T) {
	mock, repo := newUserMock(t)
	u := sampleUser()
	u.ID = 5

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).WithArgs(int64(5)).WillReturnRows(userRows(u))
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE users")).WillReturnError(&pgconn.PgError{Code: "23505"})
	mock.ExpectRollback()

	_, err := repo.UpdateFunc(context.Background(), 5, func(user *model.User) error {
		user.Email = "taken@example.com"
		return nil
	})
	assert.ErrorIs(t, err, ErrDuplicateEmail)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_Delete(t *testing.T) {
	mock, repo := newUserMock(t)
	u := sampleUser()
	u.ID = 8

	mock.ExpectQuery(regexp.QuoteMeta("DELETE FROM users WHERE id = $1 RETURNING")).
		WithArgs(int64(8)).
		WillReturnRows(userRows(u))

	got, err := repo.Delete(context.Background(), 8)
	require.NoError(t, err)
	assert.Equal(t, int64(8), got.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_Delete_NotFound(t *testing.T) {
	mock, repo := newUserMock(t)

	mock.ExpectQuery(regexp.QuoteMeta("DELETE FROM users")).
		WithArgs(int64(404)).
		WillReturnRows(pgxmock.NewRows(userRowColumns))

	_, err := repo.Delete(context.Background(), 404)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUserRepository_List_FiltersAndSort(t *testing.T) {
	mock, repo := newUserMock(t)
	role := model.RoleAgent
	search := "jo_"
	params := model.ListParams{
		Filters:   model.UserFilters{Role: &role, Search: &search},
		SortBy:    "first_name",
		SortOrder: "asc",
		Page:      2,
		PerPage:   10,
	}.Normalize()
	u := sampleUser()
	u.ID = 11

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM users WHERE role = $1 AND (first_name ILIKE $2 OR last_name ILIKE $2 OR email ILIKE $2)")).
		WithArgs(model.RoleAgent, `%jo\_%`).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(11)))
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY first_name ASC, id ASC LIMIT $3 OFFSET $4")).
		WithArgs(model.RoleAgent, `%jo\_%`, 10, 10).
		WillReturnRows(userRows(u))

	users, total, err := repo.List(context.Background(), params)
	require.NoError(t, err)
	assert.Equal(t, int64(11), total)
	require.Len(t, users, 1)
	assert.Equal(t, int64(11), users[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_List_DefaultSort(t *testing.T) {
	mock, repo := newUserMock(t)
	params := model.ListParams{SortBy: "password; DROP TABLE users"}.Normalize()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM users")).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(0)))
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY created_at DESC, id DESC LIMIT $1 OFFSET $2")).
		WithArgs(model.DefaultPerPage, 0).
		WillReturnRows(pgxmock.NewRows(userRowColumns))

	users, total, err := repo.List(context.Background(), params)
	require.NoError(t, err)
	assert.Empty(t, users)
	assert.NotNil(t, users)
	assert.Zero(t, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}
