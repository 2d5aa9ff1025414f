// Package listcache はユーザー一覧の取得結果をクエリ単位でキャッシュします。
// エントリは書き込み時刻から TTL を過ぎると読み出し時に破棄されます。
package listcache

import (
	"context"
	"log/slog"
	"net/url"
	"strconv"
	"time"

	"github.com/ogurasousui/codex-user-admin/internal/core/user"
)

// DefaultTTL はエントリの有効期間です。
const DefaultTTL = 5 * time.Minute

// Entry はキャッシュされた一覧結果です。
type Entry struct {
	Items     []*user.User `json:"items"`
	Total     int          `json:"total"`
	Timestamp time.Time    `json:"timestamp"`
}

// Store は一覧結果キャッシュの抽象化です。
// Get は有効期限内のエントリのみを返し、期限切れのエントリはその場で破棄します。
type Store interface {
	Get(ctx context.Context, key string) (Entry, bool)
	Set(ctx context.Context, key string, entry Entry)
}

// Clock は現在時刻を提供します。
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time {
	return time.Now().UTC()
}

type options struct {
	ttl    time.Duration
	clock  Clock
	logger *slog.Logger
	prefix string
}

// Option はキャッシュの設定を変更します。
type Option func(*options)

// WithTTL は有効期間を設定します。0 以下は無視されます。
func WithTTL(ttl time.Duration) Option {
	return func(o *options) {
		if ttl > 0 {
			o.ttl = ttl
		}
	}
}

// WithClock は時刻の取得元を差し替えます。
func WithClock(clock Clock) Option {
	return func(o *options) {
		if clock != nil {
			o.clock = clock
		}
	}
}

// WithLogger はロガーを設定します。
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithKeyPrefix は Redis のキー接頭辞を設定します。
func WithKeyPrefix(prefix string) Option {
	return func(o *options) {
		if prefix != "" {
			o.prefix = prefix
		}
	}
}

func newOptions(opts []Option) options {
	o := options{
		ttl:    DefaultTTL,
		clock:  realClock{},
		logger: slog.Default(),
		prefix: "user-admin:listing:",
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// expired は経過時間が ttl を超えたかを判定します。ちょうど ttl の時点はまだ有効です。
func expired(entry Entry, now time.Time, ttl time.Duration) bool {
	return now.Sub(entry.Timestamp) > ttl
}

// Key は一覧クエリの正規化されたキャッシュキーを返します。
// どのフィールドが異なっても別のキーになります。未指定と空文字は区別しません。
func Key(in user.ListUsersInput) string {
	v := url.Values{}
	v.Set("offset", strconv.Itoa(in.Offset))
	v.Set("limit", strconv.Itoa(in.Limit))
	v.Set("email", in.Email)
	v.Set("role", "")
	if in.Role != nil {
		v.Set("role", string(*in.Role))
	}
	v.Set("status", "")
	if in.Status != nil {
		v.Set("status", string(*in.Status))
	}
	v.Set("startDate", formatTime(in.StartDate))
	v.Set("endDate", formatTime(in.EndDate))
	// Encode はキー順にソートされる。
	return v.Encode()
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}
