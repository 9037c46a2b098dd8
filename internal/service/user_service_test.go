package service_test

import (
	"errors"
	"fmt"
	"testing"

	"user_management/internal/model"
	"user_management/internal/repository"
	"user_management/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedUsers(t *testing.T, f *fixture, n int) []*model.User {
	t.Helper()
	var out []*model.User
	for i := 0; i < n; i++ {
		role := model.RoleAgent
		if i%3 == 0 {
			role = model.RoleAdmin
		}
		u, err := f.svc.Create(ctx(), payloadFor("User", fmt.Sprintf("user%03d@example.com", i), role))
		require.NoError(t, err)
		out = append(out, u)
	}
	return out
}

func TestUserService_ListClampsPerPage(t *testing.T) {
	f := newFixture(t)
	seedUsers(t, f, 3)

	page, err := f.svc.List(ctx(), model.ListParams{PerPage: 500})
	require.NoError(t, err)
	assert.Equal(t, 100, page.Pagination.PerPage)
	assert.Equal(t, 1, page.Pagination.CurrentPage)
	assert.Equal(t, int64(3), page.Pagination.Total)
	require.NotNil(t, page.Pagination.From)
	assert.Equal(t, 1, *page.Pagination.From)
	assert.Equal(t, 3, *page.Pagination.To)
}

func TestUserService_ListUnknownSortFallsBack(t *testing.T) {
	f := newFixture(t)
	seeded := seedUsers(t, f, 3)

	page, err := f.svc.List(ctx(), model.ListParams{SortBy: "password", SortOrder: "asc"})
	require.NoError(t, err)
	require.Len(t, page.Users, 3)
	// created_at desc: newest first
	assert.Equal(t, seeded[2].ID, page.Users[0].ID)
	assert.Equal(t, seeded[0].ID, page.Users[2].ID)
}

func TestUserService_ListFiltersAndPages(t *testing.T) {
	f := newFixture(t)
	seedUsers(t, f, 7)
	_, err := f.svc.Create(ctx(), payloadFor("Zed", "zed@example.com", model.RoleSupervisor))
	require.NoError(t, err)

	admin := model.RoleAdmin
	page, err := f.svc.List(ctx(), model.ListParams{Filters: model.UserFilters{Role: &admin}})
	require.NoError(t, err)
	assert.Equal(t, int64(3), page.Pagination.Total)

	search := "ZED"
	page, err = f.svc.List(ctx(), model.ListParams{Filters: model.UserFilters{Search: &search}})
	require.NoError(t, err)
	require.Len(t, page.Users, 1)
	assert.Equal(t, "Zed", page.Users[0].FirstName)

	page, err = f.svc.List(ctx(), model.ListParams{Page: 3, PerPage: 3, SortBy: "email", SortOrder: "asc"})
	require.NoError(t, err)
	assert.Equal(t, 3, page.Pagination.LastPage)
	require.Len(t, page.Users, 2)
	assert.Equal(t, 7, *page.Pagination.From)
	assert.Equal(t, 8, *page.Pagination.To)

	page, err = f.svc.List(ctx(), model.ListParams{Page: 9, PerPage: 3})
	require.NoError(t, err)
	assert.Empty(t, page.Users)
	assert.Nil(t, page.Pagination.From)
	assert.Nil(t, page.Pagination.To)
}

func TestUserService_Get(t *testing.T) {
	f := newFixture(t)
	seeded := seedUsers(t, f, 1)

	u, err := f.svc.Get(ctx(), seeded[0].ID)
	require.NoError(t, err)
	assert.Equal(t, seeded[0].Email, u.Email)

	_, err = f.svc.Get(ctx(), 999)
	assert.ErrorIs(t, err, service.ErrUserNotFound)
}

func TestUserService_CreateDoesNotIssueToken(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Create(ctx(), johnPayload())
	require.NoError(t, err)
	assert.Zero(t, f.tokens.Count())
	assert.Equal(t, []string{service.ActionUserCreated}, f.audit.Actions())
}

func TestUserService_Update(t *testing.T) {
	f := newFixture(t)
	seeded := seedUsers(t, f, 1)
	actorCtx := service.WithActor(ctx(), 42)

	updated, err := f.svc.Update(actorCtx, seeded[0].ID, model.UserPayload{
		FirstName: strPtr("Jane"),
		Timezone:  strPtr("Europe/London"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Jane", updated.FirstName)
	assert.Equal(t, "Europe/London", updated.Timezone)
	assert.Equal(t, seeded[0].Email, updated.Email)

	rec := f.audit.Records[len(f.audit.Records)-1]
	assert.Equal(t, service.ActionUserUpdated, rec.Action)
	assert.Equal(t, int64(42), rec.ActorID)
	assert.Equal(t, []string{"first_name", "timezone"}, rec.UpdatedFields)
	assert.Equal(t, "User", rec.Before["first_name"])
	assert.Equal(t, "Jane", rec.After["first_name"])
	assert.NotContains(t, rec.After, "password")
}

func TestUserService_UpdateEmailTakenByAnother(t *testing.T) {
	f := newFixture(t)
	seeded := seedUsers(t, f, 2)

	_, err := f.svc.Update(ctx(), seeded[1].ID, model.UserPayload{Email: strPtr(seeded[0].Email)})
	requireFieldError(t, err, "email", "The email has already been taken.")

	_, err = f.svc.Update(ctx(), seeded[1].ID, model.UserPayload{Email: strPtr(seeded[1].Email)})
	assert.NoError(t, err)
}

func TestUserService_UpdateNotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Update(ctx(), 404, model.UserPayload{FirstName: strPtr("Jane")})
	assert.ErrorIs(t, err, service.ErrUserNotFound)
}

func TestUserService_UpdatePasswordRevokesToken(t *testing.T) {
	f := newFixture(t)
	user, token, err := f.auth.Register(ctx(), johnPayload())
	require.NoError(t, err)

	_, err = f.svc.Update(ctx(), user.ID, model.UserPayload{Password: strPtr("NewPassword1!")})
	require.NoError(t, err)

	_, err = f.auth.Authenticate(ctx(), token)
	assert.ErrorIs(t, err, service.ErrUnauthenticated)
	_, _, err = f.auth.Login(ctx(), model.LoginRequest{Email: "john@gmail.com", Password: "NewPassword1!"})
	assert.NoError(t, err)
}

func TestUserService_Delete(t *testing.T) {
	f := newFixture(t)
	seeded := seedUsers(t, f, 1)

	require.NoError(t, f.svc.Delete(ctx(), seeded[0].ID))
	assert.ErrorIs(t, f.svc.Delete(ctx(), seeded[0].ID), service.ErrUserNotFound)

	rec := f.audit.Records[len(f.audit.Records)-1]
	assert.Equal(t, service.ActionUserDeleted, rec.Action)
	assert.Equal(t, seeded[0].Email, rec.Before["email"])
}

func TestUserService_StoreTimeoutPropagates(t *testing.T) {
	f := newFixture(t)
	f.users.Err = fmt.Errorf("failed to find user by ID: %w", repository.ErrStoreTimeout)

	_, err := f.svc.Get(ctx(), 1)
	assert.True(t, errors.Is(err, repository.ErrStoreTimeout))
}
