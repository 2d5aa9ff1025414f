package listcache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

var _ Store = (*Redis)(nil)

// Redis は複数インスタンスで共有できるキャッシュです。
// Redis 側の TTL は保険で、有効期限は読み出し時にも判定します。
// Redis のエラーはログに残してミスとして扱います。
type Redis struct {
	client redis.Cmdable
	opts   options
}

// NewRedis は Redis を生成します。
func NewRedis(client redis.Cmdable, opts ...Option) *Redis {
	return &Redis{
		client: client,
		opts:   newOptions(opts),
	}
}

// Get は有効なエントリを返します。
func (r *Redis) Get(ctx context.Context, key string) (Entry, bool) {
	raw, err := r.client.Get(ctx, r.opts.prefix+key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			r.opts.logger.WarnContext(ctx, "listing cache read failed", slog.String("error", err.Error()))
		}
		return Entry{}, false
	}

	var entry Entry
	if err := json.Unmarshal(raw, &entry); err != nil {
		r.opts.logger.WarnContext(ctx, "listing cache entry is corrupted", slog.String("error", err.Error()))
		r.del(ctx, key)
		return Entry{}, false
	}

	if expired(entry, r.opts.clock.Now(), r.opts.ttl) {
		r.del(ctx, key)
		return Entry{}, false
	}

	return entry, true
}

// Set はエントリを保存します。
func (r *Redis) Set(ctx context.Context, key string, entry Entry) {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = r.opts.clock.Now()
	}

	raw, err := json.Marshal(entry)
	if err != nil {
		r.opts.logger.WarnContext(ctx, "listing cache encode failed", slog.String("error", err.Error()))
		return
	}

	if err := r.client.Set(ctx, r.opts.prefix+key, raw, r.opts.ttl).Err(); err != nil {
		r.opts.logger.WarnContext(ctx, "listing cache write failed", slog.String("error", err.Error()))
	}
}

func (r *Redis) del(ctx context.Context, key string) {
	if err := r.client.Del(ctx, r.opts.prefix+key).Err(); err != nil {
		r.opts.logger.WarnContext(ctx, "listing cache delete failed", slog.String("error", err.Error()))
	}
}
