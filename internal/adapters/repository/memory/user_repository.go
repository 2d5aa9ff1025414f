// Package memory はプロセス内メモリにユーザーを保持するリポジトリ実装です。
package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/google/uuid"
	"github.com/ogurasousui/codex-user-admin/internal/core/user"
)

// UserRepository はメモリ上のユーザー永続化の実装です。
type UserRepository struct {
	mu    sync.RWMutex
	users map[string]*user.User
	newID func() string
}

// Option は UserRepository の設定を変更します。
type Option func(*UserRepository)

// WithIDGenerator は ID の採番関数を差し替えます。
func WithIDGenerator(fn func() string) Option {
	return func(r *UserRepository) {
		if fn != nil {
			r.newID = fn
		}
	}
}

// NewUserRepository は空の UserRepository を生成します。
func NewUserRepository(opts ...Option) *UserRepository {
	r := &UserRepository{
		users: make(map[string]*user.User),
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Insert はユーザーを追加します。
func (r *UserRepository) Insert(_ context.Context, u *user.User) (*user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.emailTakenLocked(u.Email, "") {
		return nil, user.ErrEmailAlreadyExists
	}

	created := u.Clone()
	if created.ID == "" {
		created.ID = r.newID()
	}
	if _, ok := r.users[created.ID]; ok {
		return nil, user.ErrInvalidID
	}

	r.users[created.ID] = created
	return created.Clone(), nil
}

// UpdateByID は ID に一致するユーザーを置き換えます。ID と作成日時は変更しません。
func (r *UserRepository) UpdateByID(_ context.Context, u *user.User) (*user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.users[u.ID]
	if !ok {
		return nil, user.ErrUserNotFound
	}

	if r.emailTakenLocked(u.Email, u.ID) {
		return nil, user.ErrEmailAlreadyExists
	}

	existing.Email = u.Email
	existing.Name = u.Name
	existing.Role = u.Role
	existing.Status = u.Status
	existing.UpdatedAt = u.UpdatedAt

	return existing.Clone(), nil
}

// DeleteByID はユーザーを削除します。
func (r *UserRepository) DeleteByID(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[id]; !ok {
		return user.ErrUserNotFound
	}
	delete(r.users, id)
	return nil
}

// FindByID は ID でユーザーを取得します。
func (r *UserRepository) FindByID(_ context.Context, id string) (*user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[id]
	if !ok {
		return nil, user.ErrUserNotFound
	}
	return u.Clone(), nil
}

// FindByEmail はメールアドレスでユーザーを取得します。
func (r *UserRepository) FindByEmail(_ context.Context, email string) (*user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.users {
		if u.Email == email {
			return u.Clone(), nil
		}
	}
	return nil, user.ErrUserNotFound
}

// Find は条件に一致するユーザーを新しい順に返します。
func (r *UserRepository) Find(_ context.Context, filter user.ListFilter, page user.Page) ([]*user.User, error) {
	r.mu.RLock()
	matched := r.matchLocked(filter)
	r.mu.RUnlock()

	slices.SortFunc(matched, user.CompareNewestFirst)

	if page.Offset >= len(matched) {
		return []*user.User{}, nil
	}
	end := len(matched)
	if page.Limit > 0 && page.Offset+page.Limit < end {
		end = page.Offset + page.Limit
	}
	return matched[page.Offset:end], nil
}

// Count は条件に一致するユーザー数を返します。
func (r *UserRepository) Count(_ context.Context, filter user.ListFilter) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.matchLocked(filter)), nil
}

// Len は保持しているユーザー数を返します。
func (r *UserRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.users)
}

func (r *UserRepository) matchLocked(filter user.ListFilter) []*user.User {
	match := filter.Predicate()
	out := make([]*user.User, 0, len(r.users))
	for _, u := range r.users {
		if match(u) {
			out = append(out, u.Clone())
		}
	}
	return out
}

func (r *UserRepository) emailTakenLocked(email, exceptID string) bool {
	for id, u := range r.users {
		if id != exceptID && u.Email == email {
			return true
		}
	}
	return false
}
