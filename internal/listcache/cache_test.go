package listcache

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ogurasousui/codex-user-admin/internal/core/user"
)

type stubClock struct {
	mu  sync.Mutex
	now time.Time
}

func newStubClock() *stubClock {
	return &stubClock{now: time.Date(2024, 2, 4, 10, 0, 0, 0, time.UTC)}
}

func (c *stubClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *stubClock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func ptr[T any](v T) *T {
	return &v
}

func TestKey_DistinguishesEveryField(t *testing.T) {
	t.Parallel()

	start := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 2, 5, 0, 0, 0, 0, time.UTC)
	base := user.ListUsersInput{Offset: 0, Limit: 10}

	variants := []user.ListUsersInput{
		base,
		{Offset: 10, Limit: 10},
		{Offset: 0, Limit: 20},
		{Offset: 0, Limit: 10, Email: "ali"},
		{Offset: 0, Limit: 10, Role: ptr(user.RoleAdmin)},
		{Offset: 0, Limit: 10, Role: ptr(user.RoleUser)},
		{Offset: 0, Limit: 10, Status: ptr(user.StatusBanned)},
		{Offset: 0, Limit: 10, StartDate: &start},
		{Offset: 0, Limit: 10, EndDate: &end},
		{Offset: 0, Limit: 10, StartDate: &start, EndDate: &end},
	}

	seen := make(map[string]int, len(variants))
	for i, in := range variants {
		key := Key(in)
		if prev, ok := seen[key]; ok {
			t.Fatalf("variants %d and %d share key %q", prev, i, key)
		}
		seen[key] = i
	}
}

func TestKey_IsDeterministic(t *testing.T) {
	t.Parallel()

	a := user.ListUsersInput{Offset: 5, Limit: 10, Email: "x", Role: ptr(user.RoleModerator)}
	b := user.ListUsersInput{Limit: 10, Role: ptr(user.RoleModerator), Email: "x", Offset: 5}

	assert.Equal(t, Key(a), Key(b))
}

func TestKey_NormalizesTimeZone(t *testing.T) {
	t.Parallel()

	utc := time.Date(2024, 2, 4, 9, 0, 0, 0, time.UTC)
	tokyo := utc.In(time.FixedZone("JST", 9*60*60))

	assert.Equal(t,
		Key(user.ListUsersInput{StartDate: &utc}),
		Key(user.ListUsersInput{StartDate: &tokyo}),
	)
}
