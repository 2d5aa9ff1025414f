package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ogurasousui/codex-user-admin/internal/core/user"
)

func seededRepo(t *testing.T) *UserRepository {
	t.Helper()

	repo := NewUserRepository()
	require.NoError(t, repo.Seed(context.Background(), DefaultSeed()))
	return repo
}

func TestUserRepository_InsertAssignsID(t *testing.T) {
	t.Parallel()

	repo := NewUserRepository(WithIDGenerator(func() string { return "fixed-id" }))

	created, err := repo.Insert(context.Background(), &user.User{Email: "a@x.com", Name: "A"})
	require.NoError(t, err)
	assert.Equal(t, "fixed-id", created.ID)

	_, err = repo.Insert(context.Background(), &user.User{Email: "b@x.com", Name: "B"})
	assert.ErrorIs(t, err, user.ErrInvalidID)
	assert.Equal(t, 1, repo.Len())
}

func TestUserRepository_InsertRejectsDuplicateEmail(t *testing.T) {
	t.Parallel()

	repo := seededRepo(t)

	_, err := repo.Insert(context.Background(), &user.User{Email: "bob@example.com", Name: "Dan"})
	require.ErrorIs(t, err, user.ErrEmailAlreadyExists)
	assert.Equal(t, 10, repo.Len())
}

func TestUserRepository_ReturnsCopies(t *testing.T) {
	t.Parallel()

	repo := seededRepo(t)
	ctx := context.Background()

	found, err := repo.FindByID(ctx, "1")
	require.NoError(t, err)
	found.Name = "mutated"

	again, err := repo.FindByID(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, "John Doe", again.Name)
}

func TestUserRepository_UpdateByID(t *testing.T) {
	t.Parallel()

	repo := seededRepo(t)
	ctx := context.Background()

	existing, err := repo.FindByID(ctx, "3")
	require.NoError(t, err)

	existing.Status = user.StatusActive
	existing.CreatedAt = time.Time{}
	updated, err := repo.UpdateByID(ctx, existing)
	require.NoError(t, err)

	assert.Equal(t, user.StatusActive, updated.Status)
	assert.False(t, updated.CreatedAt.IsZero(), "created_at must be immutable")

	existing.Email = "john@example.com"
	_, err = repo.UpdateByID(ctx, existing)
	assert.ErrorIs(t, err, user.ErrEmailAlreadyExists)

	_, err = repo.UpdateByID(ctx, &user.User{ID: "missing"})
	assert.ErrorIs(t, err, user.ErrUserNotFound)
}

func TestUserRepository_DeleteByID(t *testing.T) {
	t.Parallel()

	repo := seededRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.DeleteByID(ctx, "4"))

	_, err := repo.FindByID(ctx, "4")
	assert.ErrorIs(t, err, user.ErrUserNotFound)
	assert.ErrorIs(t, repo.DeleteByID(ctx, "4"), user.ErrUserNotFound)
}

func TestUserRepository_FindByEmail(t *testing.T) {
	t.Parallel()

	repo := seededRepo(t)

	found, err := repo.FindByEmail(context.Background(), "grace@example.com")
	require.NoError(t, err)
	assert.Equal(t, "9", found.ID)

	_, err = repo.FindByEmail(context.Background(), "nobody@example.com")
	assert.ErrorIs(t, err, user.ErrUserNotFound)
}

func TestUserRepository_FindPagesNewestFirst(t *testing.T) {
	t.Parallel()

	repo := seededRepo(t)

	page, err := repo.Find(context.Background(), user.ListFilter{}, user.Page{Offset: 0, Limit: 3})
	require.NoError(t, err)
	require.Len(t, page, 3)
	assert.Equal(t, []string{"1", "2", "3"}, []string{page[0].ID, page[1].ID, page[2].ID})

	page, err = repo.Find(context.Background(), user.ListFilter{}, user.Page{Offset: 9, Limit: 3})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "10", page[0].ID)

	page, err = repo.Find(context.Background(), user.ListFilter{}, user.Page{Offset: 10, Limit: 3})
	require.NoError(t, err)
	assert.Empty(t, page)
	assert.NotNil(t, page)
}

func TestUserRepository_FindAndCountHonourFilter(t *testing.T) {
	t.Parallel()

	repo := seededRepo(t)
	ctx := context.Background()

	moderator := user.RoleModerator
	active := user.StatusActive
	banned := user.StatusBanned
	at := func(h, m int) time.Time { return time.Date(2024, 2, 4, h, m, 0, 0, time.UTC) }

	filters := map[string]user.ListFilter{
		"none":             {},
		"email":            {Email: "a"},
		"role":             {Role: &moderator},
		"role and status":  {Role: &moderator, Status: &active},
		"status":           {Status: &banned},
		"created range":    {Created: &user.TimeRange{From: at(7, 0), To: at(9, 0)}},
		"range and email":  {Email: "e", Created: &user.TimeRange{From: at(5, 0), To: at(8, 0)}},
		"no match":         {Email: "zzz"},
		"inverted range":   {Created: &user.TimeRange{From: at(9, 0), To: at(7, 0)}},
		"single instant":   {Created: &user.TimeRange{From: at(6, 30), To: at(6, 30)}},
		"everything works": {Email: "example.com", Status: &active},
	}

	for name, filter := range filters {
		match := filter.Predicate()

		total, err := repo.Count(ctx, filter)
		require.NoError(t, err, name)

		for _, window := range []user.Page{{Offset: 0, Limit: 2}, {Offset: 1, Limit: 4}, {Offset: 5, Limit: 10}} {
			items, err := repo.Find(ctx, filter, window)
			require.NoError(t, err, name)

			assert.LessOrEqual(t, len(items), window.Limit, name)
			for _, u := range items {
				assert.True(t, match(u), "%s: %s does not satisfy filter", name, u.Email)
			}

			again, err := repo.Count(ctx, filter)
			require.NoError(t, err, name)
			assert.Equal(t, total, again, name)
		}

		all, err := repo.Find(ctx, filter, user.Page{Offset: 0, Limit: 100})
		require.NoError(t, err, name)
		assert.Len(t, all, total, name)
	}
}

func TestUserRepository_ScenarioCounts(t *testing.T) {
	t.Parallel()

	repo := seededRepo(t)
	ctx := context.Background()
	moderator := user.RoleModerator

	total, err := repo.Count(ctx, user.ListFilter{Role: &moderator})
	require.NoError(t, err)
	assert.Equal(t, 3, total)

	total, err = repo.Count(ctx, user.ListFilter{Created: &user.TimeRange{
		From: time.Date(2024, 2, 4, 6, 30, 0, 0, time.UTC),
		To:   time.Date(2024, 2, 4, 6, 30, 0, 0, time.UTC),
	}})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
}
