// Package client は UserService を呼び出すセッションクライアントです。
// 一覧取得はクエリごとに listcache へ保存され、有効期間内は再取得しません。
package client

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"

	"github.com/ogurasousui/codex-user-admin/internal/adapters/grpc/userv1"
	"github.com/ogurasousui/codex-user-admin/internal/core/user"
	"github.com/ogurasousui/codex-user-admin/internal/listcache"
)

// CacheObserver はキャッシュのヒット/ミスを受け取ります。
type CacheObserver interface {
	CacheHit()
	CacheMiss()
}

// fetchTimeout は共有される一覧取得 1 回あたりの上限です。
const fetchTimeout = 30 * time.Second

type noopObserver struct{}

func (noopObserver) CacheHit()  {}
func (noopObserver) CacheMiss() {}

// Client はユーザー管理のセッションクライアントです。
type Client struct {
	rpc      userv1.UserServiceClient
	cache    listcache.Store
	group    singleflight.Group
	observer CacheObserver
	logger   *slog.Logger
}

// Option は Client の設定を変更します。
type Option func(*Client)

// WithCacheObserver はキャッシュ統計の通知先を設定します。
func WithCacheObserver(observer CacheObserver) Option {
	return func(c *Client) {
		if observer != nil {
			c.observer = observer
		}
	}
}

// WithLogger はロガーを設定します。
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New は Client を生成します。cache が nil の場合は既定 TTL のメモリキャッシュを使います。
func New(rpc userv1.UserServiceClient, cache listcache.Store, opts ...Option) *Client {
	if cache == nil {
		cache = listcache.NewMemory()
	}
	c := &Client{
		rpc:      rpc,
		cache:    cache,
		observer: noopObserver{},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Dial は平文の gRPC 接続を作成します。
func Dial(target string, opts ...grpc.DialOption) (*grpc.ClientConn, error) {
	dialOpts := append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	conn, err := grpc.NewClient(target, dialOpts...)
	if err != nil {
		return nil, fmt.Errorf("client: dial %s: %w", target, err)
	}
	return conn, nil
}

// ListUsers はキャッシュを優先して一覧を返します。
// ミスした場合のみサーバーへ問い合わせ、結果を保存します。
func (c *Client) ListUsers(ctx context.Context, in user.ListUsersInput) (*user.ListUsersResult, error) {
	key := listcache.Key(in)

	if entry, ok := c.cache.Get(ctx, key); ok {
		c.observer.CacheHit()
		return &user.ListUsersResult{Users: cloneUsers(entry.Items), Total: entry.Total}, nil
	}

	c.observer.CacheMiss()
	return c.fetch(ctx, key, in)
}

// RefreshUsers はキャッシュを無視して一覧を取得し、同じキーのエントリを上書きします。
// 更新系の操作の後に呼び出します。
func (c *Client) RefreshUsers(ctx context.Context, in user.ListUsersInput) (*user.ListUsersResult, error) {
	return c.fetch(ctx, listcache.Key(in), in)
}

func (c *Client) fetch(ctx context.Context, key string, in user.ListUsersInput) (*user.ListUsersResult, error) {
	// 共有される取得は最初の呼び出し元のキャンセルに巻き込まれないよう切り離す。
	ch := c.group.DoChan(key, func() (any, error) {
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), fetchTimeout)
		defer cancel()

		resp, err := c.rpc.ListUsers(fctx, toListRequest(in))
		if err != nil {
			return nil, err
		}

		result := fromListResponse(resp)
		if result.Degraded {
			// 縮退した結果は保存しない。
			c.logger.WarnContext(fctx, "listing degraded on server; skipping cache", slog.String("key", key))
			return result, nil
		}

		c.cache.Set(fctx, key, listcache.Entry{Items: result.Users, Total: result.Total})
		return result, nil
	})

	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if res.Err != nil {
		return nil, fromStatusError(res.Err)
	}

	shared := res.Val.(*user.ListUsersResult)
	return &user.ListUsersResult{
		Users:    cloneUsers(shared.Users),
		Total:    shared.Total,
		Degraded: shared.Degraded,
	}, nil
}

// GetUser はユーザーを取得します。
func (c *Client) GetUser(ctx context.Context, id string) (*user.User, error) {
	resp, err := c.rpc.GetUser(ctx, &userv1.GetUserRequest{ID: id})
	if err != nil {
		return nil, fromStatusError(err)
	}
	return fromWireUser(resp.User), nil
}

// CreateUser はユーザーを作成します。
func (c *Client) CreateUser(ctx context.Context, in user.CreateUserInput) (*user.User, error) {
	req := &userv1.CreateUserRequest{Email: in.Email, Name: in.Name}
	if in.Role != nil {
		req.Role = string(*in.Role)
	}
	if in.Status != nil {
		req.Status = string(*in.Status)
	}

	resp, err := c.rpc.CreateUser(ctx, req)
	if err != nil {
		return nil, fromStatusError(err)
	}
	return fromWireUser(resp.User), nil
}

// UpdateUser はユーザーを部分更新します。
func (c *Client) UpdateUser(ctx context.Context, in user.UpdateUserInput) (*user.User, error) {
	req := &userv1.UpdateUserRequest{ID: in.ID, Email: in.Email, Name: in.Name}
	if in.Role != nil {
		role := string(*in.Role)
		req.Role = &role
	}
	if in.Status != nil {
		st := string(*in.Status)
		req.Status = &st
	}

	resp, err := c.rpc.UpdateUser(ctx, req)
	if err != nil {
		return nil, fromStatusError(err)
	}
	return fromWireUser(resp.User), nil
}

// UpdateUserRole はロールを変更します。
func (c *Client) UpdateUserRole(ctx context.Context, id string, role user.Role) (*user.User, error) {
	resp, err := c.rpc.UpdateUserRole(ctx, &userv1.UpdateUserRoleRequest{ID: id, Role: string(role)})
	if err != nil {
		return nil, fromStatusError(err)
	}
	return fromWireUser(resp.User), nil
}

// DeleteUser はユーザーを削除し、削除できた場合に true を返します。
func (c *Client) DeleteUser(ctx context.Context, id string) (bool, error) {
	resp, err := c.rpc.DeleteUser(ctx, &userv1.DeleteUserRequest{ID: id})
	if err != nil {
		return false, fromStatusError(err)
	}
	return resp.Deleted, nil
}

// fromStatusError は gRPC のステータスをドメインの番兵エラーに戻します。
func fromStatusError(err error) error {
	st, ok := status.FromError(err)
	if !ok {
		return err
	}

	switch st.Code() {
	case codes.NotFound:
		return user.ErrUserNotFound
	case codes.AlreadyExists:
		return user.ErrEmailAlreadyExists
	case codes.InvalidArgument:
		for _, target := range user.ValidationErrors() {
			if strings.Contains(st.Message(), target.Error()) {
				return target
			}
		}
	}
	return err
}

func toListRequest(in user.ListUsersInput) *userv1.ListUsersRequest {
	filter := &userv1.UserFilter{Email: in.Email}
	if in.Role != nil {
		filter.Role = string(*in.Role)
	}
	if in.Status != nil {
		filter.Status = string(*in.Status)
	}
	if in.StartDate != nil {
		filter.StartDate = userv1.FormatTime(*in.StartDate)
	}
	if in.EndDate != nil {
		filter.EndDate = userv1.FormatTime(*in.EndDate)
	}

	return &userv1.ListUsersRequest{
		Offset: userv1.ClampInt32(in.Offset),
		Limit:  userv1.ClampInt32(in.Limit),
		Filter: filter,
	}
}

func fromListResponse(resp *userv1.ListUsersResponse) *user.ListUsersResult {
	users := make([]*user.User, 0, len(resp.Items))
	for _, item := range resp.Items {
		users = append(users, fromWireUser(item))
	}
	return &user.ListUsersResult{
		Users:    users,
		Total:    int(resp.Total),
		Degraded: resp.Degraded,
	}
}

func fromWireUser(w *userv1.User) *user.User {
	if w == nil {
		return nil
	}
	return &user.User{
		ID:        w.ID,
		Email:     w.Email,
		Name:      w.Name,
		Role:      user.Role(w.Role),
		Status:    user.Status(w.Status),
		CreatedAt: parseWireTime(w.CreatedAt),
		UpdatedAt: parseWireTime(w.UpdatedAt),
	}
}

func parseWireTime(s string) time.Time {
	t, err := userv1.ParseTime(s)
	if err != nil || t == nil {
		return time.Time{}
	}
	return *t
}

func cloneUsers(users []*user.User) []*user.User {
	out := make([]*user.User, 0, len(users))
	for _, u := range users {
		out = append(out, u.Clone())
	}
	return out
}
