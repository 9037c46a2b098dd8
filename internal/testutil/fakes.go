// Package testutil holds in-memory stand-ins for the Postgres repositories.
package testutil

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"user_management/internal/model"
	"user_management/internal/repository"
	"user_management/internal/service"
)

// UserRepository is an in-memory repository.UserRepository with the same
// email uniqueness and not-found behavior as the Postgres one.
type UserRepository struct {
	mu     sync.Mutex
	nextID int64
	users  map[int64]model.User
	// Err, when set, is returned by every call.
	Err error
}

var _ repository.UserRepository = (*UserRepository)(nil)

func NewUserRepository() *UserRepository {
	return &UserRepository{users: make(map[int64]model.User)}
}

func (r *UserRepository) emailTaken(email string, exceptID int64) bool {
	for id, u := range r.users {
		if id != exceptID && u.Email == email {
			return true
		}
	}
	return false
}

func (r *UserRepository) Create(_ context.Context, user *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	if r.emailTaken(user.Email, 0) {
		return repository.ErrDuplicateEmail
	}
	r.nextID++
	now := time.Now()
	user.ID = r.nextID
	user.CreatedAt = now.Add(time.Duration(r.nextID) * time.Millisecond)
	user.UpdatedAt = user.CreatedAt
	r.users[user.ID] = *user
	return nil
}

func (r *UserRepository) FindByID(_ context.Context, id int64) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return nil, r.Err
	}
	u, ok := r.users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (r *UserRepository) FindByEmail(_ context.Context, email string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return nil, r.Err
	}
	for _, u := range r.users {
		if u.Email == email {
			u := u
			return &u, nil
		}
	}
	return nil, nil
}

func (r *UserRepository) UpdateFunc(_ context.Context, id int64, fn func(user *model.User) error) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return nil, r.Err
	}
	u, ok := r.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if err := fn(&u); err != nil {
		return nil, err
	}
	if r.emailTaken(u.Email, id) {
		return nil, repository.ErrDuplicateEmail
	}
	u.UpdatedAt = time.Now()
	r.users[id] = u
	return &u, nil
}

func (r *UserRepository) Delete(_ context.Context, id int64) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return nil, r.Err
	}
	u, ok := r.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	delete(r.users, id)
	return &u, nil
}

func (r *UserRepository) List(_ context.Context, params model.ListParams) ([]model.User, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return nil, 0, r.Err
	}

	var matched []model.User
	for _, u := range r.users {
		if params.Filters.Role != nil && u.Role != *params.Filters.Role {
			continue
		}
		if s := params.Filters.Search; s != nil && *s != "" {
			q := strings.ToLower(*s)
			if !strings.Contains(strings.ToLower(u.FirstName), q) &&
				!strings.Contains(strings.ToLower(u.LastName), q) &&
				!strings.Contains(strings.ToLower(u.Email), q) {
				continue
			}
		}
		matched = append(matched, u)
	}

	sort.SliceStable(matched, func(i, j int) bool {
		less := lessBy(params.SortBy, &matched[i], &matched[j])
		if params.SortOrder == model.SortAsc {
			return less
		}
		return lessBy(params.SortBy, &matched[j], &matched[i])
	})

	total := int64(len(matched))
	start := params.Offset()
	if start > len(matched) {
		start = len(matched)
	}
	end := start + params.PerPage
	if end > len(matched) {
		end = len(matched)
	}
	return append([]model.User{}, matched[start:end]...), total, nil
}

func lessBy(column string, a, b *model.User) bool {
	switch column {
	case "first_name":
		return a.FirstName < b.FirstName
	case "last_name":
		return a.LastName < b.LastName
	case "email":
		return a.Email < b.Email
	case "role":
		return a.Role < b.Role
	case "updated_at":
		return a.UpdatedAt.Before(b.UpdatedAt)
	default:
		if a.CreatedAt.Equal(b.CreatedAt) {
			return a.ID < b.ID
		}
		return a.CreatedAt.Before(b.CreatedAt)
	}
}

// Count returns the number of stored users.
func (r *UserRepository) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.users)
}

// TokenRepository is an in-memory repository.TokenRepository keeping one row per user.
type TokenRepository struct {
	mu     sync.Mutex
	nextID int64
	tokens map[int64]model.Token
	// UpsertErr, when set, is returned by Upsert.
	UpsertErr error
}

var _ repository.TokenRepository = (*TokenRepository)(nil)

func NewTokenRepository() *TokenRepository {
	return &TokenRepository{tokens: make(map[int64]model.Token)}
}

func (r *TokenRepository) Upsert(_ context.Context, t *model.Token) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.UpsertErr != nil {
		return r.UpsertErr
	}
	t.CreatedAt = time.Now()
	t.LastUsedAt = nil
	for id, existing := range r.tokens {
		if existing.UserID == t.UserID {
			t.ID = id
			r.tokens[id] = *t
			return nil
		}
	}
	r.nextID++
	t.ID = r.nextID
	r.tokens[t.ID] = *t
	return nil
}

func (r *TokenRepository) FindByID(_ context.Context, id int64) (*model.Token, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tokens[id]
	if !ok {
		return nil, nil
	}
	return &t, nil
}

func (r *TokenRepository) Touch(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok := r.tokens[id]; ok {
		now := time.Now()
		t.LastUsedAt = &now
		r.tokens[id] = t
	}
	return nil
}

func (r *TokenRepository) DeleteByIDAndHash(_ context.Context, id int64, tokenHash string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tokens[id]
	if !ok || t.TokenHash != tokenHash {
		return false, nil
	}
	delete(r.tokens, id)
	return true, nil
}

func (r *TokenRepository) DeleteByUser(_ context.Context, userID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, t := range r.tokens {
		if t.UserID == userID {
			delete(r.tokens, id)
		}
	}
	return nil
}

// Count returns the number of stored tokens.
func (r *TokenRepository) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.tokens)
}

// AuditRecorder is a service.AuditHook that keeps every record.
type AuditRecorder struct {
	mu      sync.Mutex
	Records []service.ChangeRecord
}

func (a *AuditRecorder) Record(_ context.Context, rec service.ChangeRecord) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.Records = append(a.Records, rec)
}

// Actions returns the recorded actions in order.
func (a *AuditRecorder) Actions() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]string, 0, len(a.Records))
	for _, r := range a.Records {
		out = append(out, r.Action)
	}
	return out
}
