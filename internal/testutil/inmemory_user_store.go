package testutil

import (
	"context"
	"strings"

	"github.com/kewsys/registry/internal/domain/user"
	ierr "github.com/kewsys/registry/internal/errors"
	"github.com/kewsys/registry/internal/types"
)

// InMemoryUserStore implements user.Repository
type InMemoryUserStore struct {
	*InMemoryStore[*user.User]
}

func NewInMemoryUserStore() *InMemoryUserStore {
	return &InMemoryUserStore{
		InMemoryStore: NewInMemoryStore[*user.User](),
	}
}

func copyUser(u *user.User) *user.User {
	if u == nil {
		return nil
	}
	out := *u
	return &out
}

func (s *InMemoryUserStore) Create(ctx context.Context, u *user.User) error {
	if err := s.checkUnique(u); err != nil {
		return err
	}
	if err := s.InMemoryStore.Create(ctx, u.ID, copyUser(u)); err != nil {
		return ierr.WithError(err).
			WithHint("Username or email already exists").
			Mark(ierr.ErrAlreadyExists)
	}
	return nil
}

func (s *InMemoryUserStore) GetByID(ctx context.Context, id string) (*user.User, error) {
	u, err := s.InMemoryStore.Get(ctx, id)
	if err != nil {
		return nil, userNotFound(id)
	}
	return copyUser(u), nil
}

func (s *InMemoryUserStore) GetByUsername(ctx context.Context, username string) (*user.User, error) {
	return s.findOne(username, func(u *user.User) bool { return u.Username == username })
}

func (s *InMemoryUserStore) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	return s.findOne(email, func(u *user.User) bool { return strings.EqualFold(u.Email, email) })
}

func (s *InMemoryUserStore) GetByIDs(ctx context.Context, ids []string) ([]*user.User, error) {
	out := make([]*user.User, 0, len(ids))
	for _, id := range ids {
		if u, err := s.InMemoryStore.Get(ctx, id); err == nil {
			out = append(out, copyUser(u))
		}
	}
	return out, nil
}

func (s *InMemoryUserStore) List(ctx context.Context, filter *types.UserFilter) ([]*user.User, error) {
	if filter == nil {
		filter = &types.UserFilter{}
	}
	users, err := s.InMemoryStore.List(ctx, userFilterFn(filter), userSortFn, filter.Offset, filter.Limit)
	if err != nil {
		return nil, err
	}
	out := make([]*user.User, len(users))
	for i, u := range users {
		out[i] = copyUser(u)
	}
	return out, nil
}

func (s *InMemoryUserStore) Count(ctx context.Context, filter *types.UserFilter) (int, error) {
	if filter == nil {
		filter = &types.UserFilter{}
	}
	return s.InMemoryStore.Count(ctx, userFilterFn(filter))
}

func (s *InMemoryUserStore) Update(ctx context.Context, u *user.User) error {
	if err := s.checkUnique(u); err != nil {
		return err
	}
	if err := s.InMemoryStore.Update(ctx, u.ID, copyUser(u)); err != nil {
		return userNotFound(u.ID)
	}
	return nil
}

func (s *InMemoryUserStore) Delete(ctx context.Context, id string) error {
	if err := s.InMemoryStore.Delete(ctx, id); err != nil {
		return userNotFound(id)
	}
	return nil
}

func (s *InMemoryUserStore) findOne(key string, match func(*user.User) bool) (*user.User, error) {
	for _, u := range s.all() {
		if match(u) {
			return copyUser(u), nil
		}
	}
	return nil, userNotFound(key)
}

func (s *InMemoryUserStore) checkUnique(u *user.User) error {
	for _, other := range s.all() {
		if other.ID == u.ID {
			continue
		}
		if other.Username == u.Username || strings.EqualFold(other.Email, u.Email) {
			return ierr.NewErrorf("user %s already exists", u.Username).
				WithHint("Username or email already exists").
				Mark(ierr.ErrAlreadyExists)
		}
	}
	return nil
}

func userFilterFn(filter *types.UserFilter) FilterFunc[*user.User] {
	return func(_ context.Context, u *user.User) bool {
		if filter.Role != nil && u.Role != *filter.Role {
			return false
		}
		if filter.IsActive != nil && u.IsActive != *filter.IsActive {
			return false
		}
		if q := strings.ToLower(strings.TrimSpace(filter.Search)); q != "" {
			return strings.Contains(strings.ToLower(u.Username), q) ||
				strings.Contains(strings.ToLower(u.Email), q) ||
				strings.Contains(strings.ToLower(u.FullName), q)
		}
		return true
	}
}

func userSortFn(a, b *user.User) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID > b.ID
}

func userNotFound(key string) error {
	return ierr.NewErrorf("user %s not found", key).
		WithHint("User not found").
		Mark(ierr.ErrNotFound)
}
