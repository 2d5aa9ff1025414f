package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/ogurasousui/codex-user-admin/internal/core/user"
	pgxmock "github.com/pashagolub/pgxmock/v4"
)

var userRowColumns = []string{"id", "email", "name", "role", "status", "created_at", "updated_at"}

type stubRow struct {
	scanFn func(dest ...any) error
}

func (s stubRow) Scan(dest ...any) error {
	return s.scanFn(dest...)
}

func newMockRepo(t *testing.T) (pgxmock.PgxPoolIface, *UserRepository) {
	t.Helper()

	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create mock pool: %v", err)
	}
	t.Cleanup(mock.Close)

	return mock, NewUserRepository(mock)
}

func TestScanUser_Success(t *testing.T) {
	t.Parallel()

	createdAt := time.Now().UTC()
	updatedAt := createdAt.Add(time.Minute)

	row := stubRow{scanFn: func(dest ...any) error {
		if len(dest) != 7 {
			return errors.New("unexpected dest length")
		}
		*(dest[0].(*string)) = "user-1"
		*(dest[1].(*string)) = "user@example.com"
		*(dest[2].(*string)) = "User"
		*(dest[3].(*string)) = string(user.RoleModerator)
		*(dest[4].(*string)) = string(user.StatusPending)
		*(dest[5].(*time.Time)) = createdAt
		*(dest[6].(*time.Time)) = updatedAt
		return nil
	}}

	u, err := scanUser(row)
	if err != nil {
		t.Fatalf("scanUser returned error: %v", err)
	}

	if u.ID != "user-1" || u.Role != user.RoleModerator || u.Status != user.StatusPending {
		t.Fatalf("unexpected user %+v", u)
	}
}

func TestScanUser_NoRows(t *testing.T) {
	t.Parallel()

	row := stubRow{scanFn: func(dest ...any) error {
		return pgx.ErrNoRows
	}}

	_, err := scanUser(row)
	if !errors.Is(err, user.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestTranslatePgError(t *testing.T) {
	t.Parallel()

	if !errors.Is(translatePgError(&pgconn.PgError{Code: uniqueViolationCode}), user.ErrEmailAlreadyExists) {
		t.Fatalf("expected email exists error mapping")
	}

	if !errors.Is(translatePgError(&pgconn.PgError{Code: invalidTextRepresentationCode}), user.ErrUserNotFound) {
		t.Fatalf("expected malformed id to map to not found")
	}

	otherErr := errors.New("random")
	if translatePgError(otherErr) != otherErr {
		t.Fatalf("unexpected translation for generic error")
	}
}

func TestBuildWhere(t *testing.T) {
	t.Parallel()

	from := time.Date(2024, 2, 4, 6, 0, 0, 0, time.UTC)
	to := from.Add(2 * time.Hour)
	role := user.RoleAdmin
	status := user.StatusBanned

	tests := []struct {
		name      string
		filter    user.ListFilter
		wantWhere string
		wantArgs  []any
	}{
		{name: "empty", filter: user.ListFilter{}, wantWhere: "", wantArgs: []any{}},
		{
			name:      "email only",
			filter:    user.ListFilter{Email: "Ali"},
			wantWhere: " WHERE strpos(lower(email), $1) > 0",
			wantArgs:  []any{"ali"},
		},
		{
			name:      "all conditions",
			filter:    user.ListFilter{Email: "a", Role: &role, Status: &status, Created: &user.TimeRange{From: from, To: to}},
			wantWhere: " WHERE strpos(lower(email), $1) > 0 AND role = $2 AND status = $3 AND created_at BETWEEN $4 AND $5",
			wantArgs:  []any{"a", "admin", "banned", from, to},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			where, args := buildWhere(tt.filter)
			if where != tt.wantWhere {
				t.Fatalf("where = %q, want %q", where, tt.wantWhere)
			}
			if len(args) != len(tt.wantArgs) {
				t.Fatalf("args = %v, want %v", args, tt.wantArgs)
			}
			for i := range args {
				if args[i] != tt.wantArgs[i] {
					t.Fatalf("args[%d] = %v, want %v", i, args[i], tt.wantArgs[i])
				}
			}
		})
	}
}

func TestUserRepository_Find_NoFilter(t *testing.T) {
	t.Parallel()

	mock, repo := newMockRepo(t)

	now := time.Now().UTC()
	rows := pgxmock.NewRows(userRowColumns).
		AddRow("user-1", "user1@example.com", "User1", "admin", "active", now, now).
		AddRow("user-2", "user2@example.com", "User2", "user", "pending", now.Add(-time.Minute), now)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM users ORDER BY created_at DESC, id DESC LIMIT $1 OFFSET $2`)).
		WithArgs(2, 0).
		WillReturnRows(rows)

	users, err := repo.Find(context.Background(), user.ListFilter{}, user.Page{Offset: 0, Limit: 2})
	if err != nil {
		t.Fatalf("Find returned error: %v", err)
	}

	if len(users) != 2 || users[1].Status != user.StatusPending {
		t.Fatalf("unexpected users %+v", users)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUserRepository_Find_WithFilter(t *testing.T) {
	t.Parallel()

	mock, repo := newMockRepo(t)
	moderator := user.RoleModerator

	mock.ExpectQuery(regexp.QuoteMeta(`FROM users WHERE strpos(lower(email), $1) > 0 AND role = $2 ORDER BY created_at DESC, id DESC LIMIT $3 OFFSET $4`)).
		WithArgs("jane", "moderator", 10, 5).
		WillReturnRows(pgxmock.NewRows(userRowColumns))

	users, err := repo.Find(context.Background(), user.ListFilter{Email: "jane", Role: &moderator}, user.Page{Offset: 5, Limit: 10})
	if err != nil {
		t.Fatalf("Find returned error: %v", err)
	}

	if users == nil || len(users) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", users)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUserRepository_Count(t *testing.T) {
	t.Parallel()

	mock, repo := newMockRepo(t)
	banned := user.StatusBanned

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM users WHERE status = $1`)).
		WithArgs("banned").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(2)))

	total, err := repo.Count(context.Background(), user.ListFilter{Status: &banned})
	if err != nil {
		t.Fatalf("Count returned error: %v", err)
	}

	if total != 2 {
		t.Fatalf("expected 2, got %d", total)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUserRepository_Insert_UniqueViolation(t *testing.T) {
	t.Parallel()

	mock, repo := newMockRepo(t)
	now := time.Date(2024, 2, 4, 10, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO users (email, name, role, status, created_at, updated_at)`)).
		WithArgs("bob@example.com", "Dan", "user", "active", now, now).
		WillReturnError(&pgconn.PgError{Code: uniqueViolationCode})

	_, err := repo.Insert(context.Background(), &user.User{
		Email:     "bob@example.com",
		Name:      "Dan",
		Role:      user.RoleUser,
		Status:    user.StatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if !errors.Is(err, user.ErrEmailAlreadyExists) {
		t.Fatalf("expected ErrEmailAlreadyExists, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUserRepository_UpdateByID(t *testing.T) {
	t.Parallel()

	mock, repo := newMockRepo(t)
	created := time.Date(2024, 2, 4, 10, 0, 0, 0, time.UTC)
	updated := created.Add(time.Hour)

	mock.ExpectQuery(regexp.QuoteMeta(`UPDATE users`)).
		WithArgs("jane@example.com", "Jane", "admin", "active", updated, "user-2").
		WillReturnRows(pgxmock.NewRows(userRowColumns).
			AddRow("user-2", "jane@example.com", "Jane", "admin", "active", created, updated))

	u, err := repo.UpdateByID(context.Background(), &user.User{
		ID:        "user-2",
		Email:     "jane@example.com",
		Name:      "Jane",
		Role:      user.RoleAdmin,
		Status:    user.StatusActive,
		UpdatedAt: updated,
	})
	if err != nil {
		t.Fatalf("UpdateByID returned error: %v", err)
	}

	if !u.CreatedAt.Equal(created) || u.Role != user.RoleAdmin {
		t.Fatalf("unexpected user %+v", u)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUserRepository_DeleteByID_NotFound(t *testing.T) {
	t.Parallel()

	mock, repo := newMockRepo(t)

	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM users WHERE id = $1`)).
		WithArgs("missing").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	if err := repo.DeleteByID(context.Background(), "missing"); !errors.Is(err, user.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUserRepository_FindByID_NoRows(t *testing.T) {
	t.Parallel()

	mock, repo := newMockRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta(`WHERE id = $1`)).
		WithArgs("user-9").
		WillReturnError(pgx.ErrNoRows)

	if _, err := repo.FindByID(context.Background(), "user-9"); !errors.Is(err, user.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
