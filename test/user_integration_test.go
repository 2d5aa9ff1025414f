//go:build integration

package integration

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	repo "github.com/ogurasousui/codex-user-admin/internal/adapters/repository/postgres"
	"github.com/ogurasousui/codex-user-admin/internal/core/user"
	"github.com/ogurasousui/codex-user-admin/internal/platform/config"
	pg "github.com/ogurasousui/codex-user-admin/internal/platform/db/postgres"
)

const (
	migrationsDir = "../assets/migrations"
	seedsDir      = "../assets/seeds"
)

func TestUserPostgresIntegration(t *testing.T) {
	cfg, err := config.Load(configPathFromEnv())
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if cfg.Storage.Driver != config.DriverPostgres {
		t.Skipf("storage.driver is %s, postgres integration skipped", cfg.Storage.Driver)
	}

	if err := resetMigrations(cfg.Database.DSN(), migrationsDir); err != nil {
		t.Fatalf("failed to migrate database: %v", err)
	}
	if err := applySeeds(cfg.Database.DSN()+"&x-migrations-table=schema_seeds", seedsDir); err != nil {
		t.Fatalf("failed to apply seeds: %v", err)
	}

	ctx := context.Background()
	pool, err := pg.NewPool(ctx, cfg.Database, nil)
	if err != nil {
		t.Fatalf("failed to create pool: %v", err)
	}
	t.Cleanup(pool.Close)

	userRepo := repo.NewUserRepository(pool)
	svc := user.NewService(userRepo, stubClock{now: time.Now().UTC()}, pg.NewTransactionManager(pool))

	t.Run("seeded listing", func(t *testing.T) {
		moderator := user.RoleModerator
		res, err := svc.ListUsers(ctx, user.ListUsersInput{Role: &moderator})
		if err != nil {
			t.Fatalf("ListUsers error: %v", err)
		}
		if res.Degraded || res.Total != 3 || len(res.Users) != 3 {
			t.Fatalf("unexpected moderator listing: total=%d len=%d degraded=%t", res.Total, len(res.Users), res.Degraded)
		}
		if res.Users[0].Email != "jane@example.com" {
			t.Fatalf("expected newest moderator first, got %s", res.Users[0].Email)
		}

		res, err = svc.ListUsers(ctx, user.ListUsersInput{Offset: 8, Limit: 5})
		if err != nil {
			t.Fatalf("ListUsers error: %v", err)
		}
		if res.Total != 10 || len(res.Users) != 2 {
			t.Fatalf("unexpected page: total=%d len=%d", res.Total, len(res.Users))
		}

		res, err = svc.ListUsers(ctx, user.ListUsersInput{Email: "JANE"})
		if err != nil {
			t.Fatalf("ListUsers error: %v", err)
		}
		if res.Total != 1 {
			t.Fatalf("expected case-insensitive email match, got %d", res.Total)
		}
	})

	t.Run("crud", func(t *testing.T) {
		created, err := svc.CreateUser(ctx, user.CreateUserInput{Email: "integration@example.com", Name: "Integration"})
		if err != nil {
			t.Fatalf("CreateUser error: %v", err)
		}
		t.Cleanup(func() { _ = userRepo.DeleteByID(context.Background(), created.ID) })

		if _, err := svc.CreateUser(ctx, user.CreateUserInput{Email: "integration@example.com", Name: "Dup"}); !errors.Is(err, user.ErrEmailAlreadyExists) {
			t.Fatalf("expected ErrEmailAlreadyExists, got %v", err)
		}

		newName := "Updated"
		newStatus := user.StatusBanned
		updated, err := svc.UpdateUser(ctx, user.UpdateUserInput{ID: created.ID, Name: &newName, Status: &newStatus})
		if err != nil {
			t.Fatalf("UpdateUser error: %v", err)
		}
		if updated.Name != newName || updated.Status != newStatus {
			t.Fatalf("update not applied: %+v", updated)
		}

		promoted, err := svc.UpdateUserRole(ctx, user.UpdateUserRoleInput{ID: created.ID, Role: user.RoleAdmin})
		if err != nil {
			t.Fatalf("UpdateUserRole error: %v", err)
		}
		if promoted.Role != user.RoleAdmin {
			t.Fatalf("role not applied: %+v", promoted)
		}

		if err := svc.DeleteUser(ctx, user.DeleteUserInput{ID: created.ID}); err != nil {
			t.Fatalf("DeleteUser error: %v", err)
		}
		if _, err := svc.GetUser(ctx, user.GetUserInput{ID: created.ID}); !errors.Is(err, user.ErrUserNotFound) {
			t.Fatalf("expected ErrUserNotFound, got %v", err)
		}
		if _, err := svc.GetUser(ctx, user.GetUserInput{ID: "not-a-uuid"}); !errors.Is(err, user.ErrUserNotFound) {
			t.Fatalf("expected malformed id to be not found, got %v", err)
		}
	})
}

func resetMigrations(dsn, dir string) error {
	m, err := migrate.New("file://"+dir, dsn)
	if err != nil {
		return err
	}
	defer m.Close()

	if err := m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

func applySeeds(dsn, dir string) error {
	if _, err := os.Stat(dir); errors.Is(err, os.ErrNotExist) {
		return nil
	}

	m, err := migrate.New("file://"+dir, dsn)
	if err != nil {
		return err
	}
	defer m.Close()

	// スキーマを作り直した直後なので履歴を一度戻してから流し直す。
	if err := m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

func configPathFromEnv() string {
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		return v
	}
	return "../assets/local.yaml"
}

type stubClock struct {
	now time.Time
}

func (s stubClock) Now() time.Time {
	return s.now
}
