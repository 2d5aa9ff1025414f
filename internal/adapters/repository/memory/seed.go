package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/ogurasousui/codex-user-admin/internal/core/user"
)

// DefaultSeed は開発用の初期ユーザー一覧です。
func DefaultSeed() []*user.User {
	at := func(hour, minute int) time.Time {
		return time.Date(2024, 2, 4, hour, minute, 0, 0, time.UTC)
	}

	return []*user.User{
		{ID: "1", Name: "John Doe", Email: "john@example.com", Role: user.RoleAdmin, Status: user.StatusActive, CreatedAt: at(10, 0)},
		{ID: "2", Name: "Jane Smith", Email: "jane@example.com", Role: user.RoleModerator, Status: user.StatusActive, CreatedAt: at(9, 30)},
		{ID: "3", Name: "Alice Johnson", Email: "alice@example.com", Role: user.RoleUser, Status: user.StatusPending, CreatedAt: at(9, 0)},
		{ID: "4", Name: "Bob Wilson", Email: "bob@example.com", Role: user.RoleUser, Status: user.StatusBanned, CreatedAt: at(8, 30)},
		{ID: "5", Name: "Charlie Brown", Email: "charlie@example.com", Role: user.RoleModerator, Status: user.StatusActive, CreatedAt: at(8, 0)},
		{ID: "6", Name: "David Miller", Email: "david@example.com", Role: user.RoleUser, Status: user.StatusActive, CreatedAt: at(7, 30)},
		{ID: "7", Name: "Eva Davis", Email: "eva@example.com", Role: user.RoleAdmin, Status: user.StatusActive, CreatedAt: at(7, 0)},
		{ID: "8", Name: "Frank White", Email: "frank@example.com", Role: user.RoleUser, Status: user.StatusPending, CreatedAt: at(6, 30)},
		{ID: "9", Name: "Grace Lee", Email: "grace@example.com", Role: user.RoleModerator, Status: user.StatusActive, CreatedAt: at(6, 0)},
		{ID: "10", Name: "Henry Taylor", Email: "henry@example.com", Role: user.RoleUser, Status: user.StatusBanned, CreatedAt: at(5, 30)},
	}
}

// Seed は users をそのままの ID で投入します。
func (r *UserRepository) Seed(ctx context.Context, users []*user.User) error {
	for _, u := range users {
		seeded := u.Clone()
		if seeded.UpdatedAt.IsZero() {
			seeded.UpdatedAt = seeded.CreatedAt
		}
		if _, err := r.Insert(ctx, seeded); err != nil {
			return fmt.Errorf("memory: seed %s: %w", u.Email, err)
		}
	}
	return nil
}
