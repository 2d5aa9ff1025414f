//go:build integration

package integration

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	mongorepo "github.com/ogurasousui/codex-user-admin/internal/adapters/repository/mongo"
	"github.com/ogurasousui/codex-user-admin/internal/adapters/repository/memory"
	"github.com/ogurasousui/codex-user-admin/internal/core/user"
	"github.com/ogurasousui/codex-user-admin/internal/listcache"
	"github.com/ogurasousui/codex-user-admin/internal/platform/cache/redis"
	"github.com/ogurasousui/codex-user-admin/internal/platform/config"
	mongodb "github.com/ogurasousui/codex-user-admin/internal/platform/db/mongo"
)

const containerStartupTimeout = 60 * time.Second

func startContainer(t *testing.T, image, port, logLine string) string {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), containerStartupTimeout)
	defer cancel()

	cont, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        image,
			ExposedPorts: []string{port + "/tcp"},
			WaitingFor: wait.ForAll(
				wait.ForLog(logLine).WithStartupTimeout(containerStartupTimeout),
				wait.ForListeningPort(nat.Port(port+"/tcp")).WithStartupTimeout(containerStartupTimeout),
			),
		},
		Started: true,
	})
	require.NoError(t, err, "start %s", image)
	t.Cleanup(func() { _ = cont.Terminate(context.Background()) })

	host, err := cont.Host(ctx)
	require.NoError(t, err)
	mapped, err := cont.MappedPort(ctx, nat.Port(port))
	require.NoError(t, err)

	return net.JoinHostPort(host, mapped.Port())
}

func TestUserMongoIntegration(t *testing.T) {
	addr := startContainer(t, "mongo:8", "27017", "Waiting for connections")
	ctx := context.Background()

	client, db, err := mongodb.Connect(ctx, config.MongoConfig{
		URI:      fmt.Sprintf("mongodb://%s", addr),
		Database: "user_admin_test",
		Timeout:  10 * time.Second,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Disconnect(context.Background()) })

	require.NoError(t, mongodb.EnsureIndexes(ctx, db))
	// 二回目も成功すること。
	require.NoError(t, mongodb.EnsureIndexes(ctx, db))

	repo := mongorepo.NewUserRepository(db.Collection(mongodb.CollectionUsers))
	for _, u := range memory.DefaultSeed() {
		seeded := u.Clone()
		seeded.ID = ""
		seeded.UpdatedAt = seeded.CreatedAt
		_, err := repo.Insert(ctx, seeded)
		require.NoError(t, err)
	}

	svc := user.NewService(repo, nil, nil)

	t.Run("listing", func(t *testing.T) {
		moderator := user.RoleModerator
		res, err := svc.ListUsers(ctx, user.ListUsersInput{Role: &moderator})
		require.NoError(t, err)
		assert.False(t, res.Degraded)
		assert.Equal(t, 3, res.Total)
		require.Len(t, res.Users, 3)
		assert.Equal(t, "jane@example.com", res.Users[0].Email)

		res, err = svc.ListUsers(ctx, user.ListUsersInput{Offset: 8, Limit: 5})
		require.NoError(t, err)
		assert.Equal(t, 10, res.Total)
		assert.Len(t, res.Users, 2)

		from := time.Date(2024, 2, 4, 6, 30, 0, 0, time.UTC)
		res, err = svc.ListUsers(ctx, user.ListUsersInput{StartDate: &from, EndDate: &from})
		require.NoError(t, err)
		assert.Equal(t, 1, res.Total)

		// 正規表現のメタ文字はリテラルとして扱われる。
		res, err = svc.ListUsers(ctx, user.ListUsersInput{Email: ".*"})
		require.NoError(t, err)
		assert.Equal(t, 0, res.Total)
	})

	t.Run("crud", func(t *testing.T) {
		created, err := svc.CreateUser(ctx, user.CreateUserInput{Email: "mongo@example.com", Name: "Mongo"})
		require.NoError(t, err)

		_, err = svc.CreateUser(ctx, user.CreateUserInput{Email: "mongo@example.com", Name: "Dup"})
		assert.ErrorIs(t, err, user.ErrEmailAlreadyExists)

		updated, err := svc.UpdateUserRole(ctx, user.UpdateUserRoleInput{ID: created.ID, Role: user.RoleModerator})
		require.NoError(t, err)
		assert.Equal(t, user.RoleModerator, updated.Role)
		assert.True(t, updated.CreatedAt.Equal(created.CreatedAt))

		require.NoError(t, svc.DeleteUser(ctx, user.DeleteUserInput{ID: created.ID}))
		_, err = svc.GetUser(ctx, user.GetUserInput{ID: created.ID})
		assert.True(t, errors.Is(err, user.ErrUserNotFound))

		_, err = svc.GetUser(ctx, user.GetUserInput{ID: "not-an-object-id"})
		assert.ErrorIs(t, err, user.ErrUserNotFound)
	})
}

func TestListCacheRedisIntegration(t *testing.T) {
	addr := startContainer(t, "redis:7-alpine", "6379", "Ready to accept connections")
	ctx := context.Background()

	rdb, err := redis.NewClient(ctx, "redis://"+addr+"/0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = rdb.Close() })

	cache := listcache.NewRedis(rdb, listcache.WithTTL(time.Minute))
	key := listcache.Key(user.ListUsersInput{Limit: 10})

	_, ok := cache.Get(ctx, key)
	assert.False(t, ok)

	cache.Set(ctx, key, listcache.Entry{Items: []*user.User{{ID: "1", Email: "john@example.com"}}, Total: 1})

	got, ok := cache.Get(ctx, key)
	require.True(t, ok)
	assert.Equal(t, 1, got.Total)
	require.Len(t, got.Items, 1)
	assert.Equal(t, "john@example.com", got.Items[0].Email)

	ttl, err := rdb.TTL(ctx, "user-admin:listing:"+key).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))
}
