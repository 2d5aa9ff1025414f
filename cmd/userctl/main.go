// userctl はユーザー管理サーバーを操作するコマンドラインクライアントです。
//
//	userctl [-addr host:port] <list|get|create|update|role|delete> [flags]
//
// REDIS_URL が設定されていれば一覧結果を Redis に保存し、プロセスをまたいで再利用します。
// CONFIG_PATH が設定されている場合は設定ファイルの cache セクションを -redis / -ttl の既定値にします。
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ogurasousui/codex-user-admin/internal/adapters/grpc/userv1"
	"github.com/ogurasousui/codex-user-admin/internal/client"
	"github.com/ogurasousui/codex-user-admin/internal/core/user"
	"github.com/ogurasousui/codex-user-admin/internal/listcache"
	"github.com/ogurasousui/codex-user-admin/internal/platform/cache/redis"
	"github.com/ogurasousui/codex-user-admin/internal/platform/config"
)

var errUsage = errors.New("usage: userctl [-addr host:port] <list|get|create|update|role|delete> [flags]")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "userctl:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, out io.Writer) error {
	defaultTTL, defaultRedis, err := cacheDefaults()
	if err != nil {
		return err
	}

	global := flag.NewFlagSet("userctl", flag.ContinueOnError)
	addr := global.String("addr", envOr("USER_ADMIN_ADDR", "localhost:50051"), "gRPC server address")
	redisURL := global.String("redis", defaultRedis, "redis URL for the shared listing cache")
	ttl := global.Duration("ttl", defaultTTL, "listing cache TTL")
	timeout := global.Duration("timeout", 10*time.Second, "request timeout")
	if err := global.Parse(args); err != nil {
		return err
	}
	if global.NArg() == 0 {
		return errUsage
	}

	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	conn, err := client.Dial(*addr)
	if err != nil {
		return err
	}
	defer conn.Close()

	var cache listcache.Store = listcache.NewMemory(listcache.WithTTL(*ttl))
	if *redisURL != "" {
		rdb, err := redis.NewClient(ctx, *redisURL)
		if err != nil {
			return err
		}
		defer rdb.Close()
		cache = listcache.NewRedis(rdb, listcache.WithTTL(*ttl), listcache.WithLogger(logger))
	}

	c := client.New(userv1.NewUserServiceClient(conn), cache, client.WithLogger(logger))
	return dispatch(ctx, c, global.Arg(0), global.Args()[1:], out)
}

// cacheDefaults は -ttl と -redis の既定値を返します。
// CONFIG_PATH があればサーバーと同じ設定ファイルの cache セクションを使います。
func cacheDefaults() (time.Duration, string, error) {
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		return listcache.DefaultTTL, os.Getenv("REDIS_URL"), nil
	}

	cfg, err := config.Load(path)
	if err != nil {
		return 0, "", err
	}
	return cfg.Cache.TTL, cfg.Cache.RedisURL, nil
}

// Users は userctl が使うクライアント操作です。
type Users interface {
	ListUsers(ctx context.Context, in user.ListUsersInput) (*user.ListUsersResult, error)
	RefreshUsers(ctx context.Context, in user.ListUsersInput) (*user.ListUsersResult, error)
	GetUser(ctx context.Context, id string) (*user.User, error)
	CreateUser(ctx context.Context, in user.CreateUserInput) (*user.User, error)
	UpdateUser(ctx context.Context, in user.UpdateUserInput) (*user.User, error)
	UpdateUserRole(ctx context.Context, id string, role user.Role) (*user.User, error)
	DeleteUser(ctx context.Context, id string) (bool, error)
}

func dispatch(ctx context.Context, c Users, cmd string, args []string, out io.Writer) error {
	fs := flag.NewFlagSet(cmd, flag.ContinueOnError)

	switch cmd {
	case "list":
		in, refresh, err := parseListFlags(fs, args)
		if err != nil {
			return err
		}
		list := c.ListUsers
		if refresh {
			list = c.RefreshUsers
		}
		res, err := list(ctx, in)
		if err != nil {
			return err
		}
		return printJSON(out, res)

	case "get":
		id := fs.String("id", "", "user id")
		if err := fs.Parse(args); err != nil {
			return err
		}
		u, err := c.GetUser(ctx, *id)
		if err != nil {
			return err
		}
		return printJSON(out, u)

	case "create":
		email := fs.String("email", "", "email")
		name := fs.String("name", "", "name")
		role := fs.String("role", "", "role (admin/moderator/user)")
		status := fs.String("status", "", "status (active/pending/banned)")
		if err := fs.Parse(args); err != nil {
			return err
		}
		u, err := c.CreateUser(ctx, user.CreateUserInput{
			Email:  *email,
			Name:   *name,
			Role:   optionalRole(*role),
			Status: optionalStatus(*status),
		})
		if err != nil {
			return err
		}
		return printJSON(out, u)

	case "update":
		in, err := parseUpdateFlags(fs, args)
		if err != nil {
			return err
		}
		u, err := c.UpdateUser(ctx, in)
		if err != nil {
			return err
		}
		return printJSON(out, u)

	case "role":
		id := fs.String("id", "", "user id")
		role := fs.String("role", "", "new role")
		if err := fs.Parse(args); err != nil {
			return err
		}
		u, err := c.UpdateUserRole(ctx, *id, user.Role(*role))
		if err != nil {
			return err
		}
		return printJSON(out, u)

	case "delete":
		id := fs.String("id", "", "user id")
		if err := fs.Parse(args); err != nil {
			return err
		}
		deleted, err := c.DeleteUser(ctx, *id)
		if err != nil {
			return err
		}
		return printJSON(out, map[string]bool{"deleted": deleted})

	default:
		return fmt.Errorf("unknown command %q: %w", cmd, errUsage)
	}
}

func parseListFlags(fs *flag.FlagSet, args []string) (user.ListUsersInput, bool, error) {
	var (
		in      user.ListUsersInput
		role    string
		status  string
		start   string
		end     string
		refresh bool
	)
	fs.IntVar(&in.Offset, "offset", 0, "number of users to skip")
	fs.IntVar(&in.Limit, "limit", user.DefaultListLimit, "page size")
	fs.StringVar(&in.Email, "email", "", "case-insensitive email substring")
	fs.StringVar(&role, "role", "", "role filter")
	fs.StringVar(&status, "status", "", "status filter")
	fs.StringVar(&start, "start", "", "created_at lower bound (RFC3339 or 2006-01-02)")
	fs.StringVar(&end, "end", "", "created_at upper bound (RFC3339 or 2006-01-02)")
	fs.BoolVar(&refresh, "refresh", false, "bypass the listing cache")
	if err := fs.Parse(args); err != nil {
		return user.ListUsersInput{}, false, err
	}

	in.Role = optionalRole(role)
	in.Status = optionalStatus(status)

	var err error
	if in.StartDate, err = userv1.ParseTime(start); err != nil {
		return user.ListUsersInput{}, false, fmt.Errorf("start: %w", err)
	}
	if in.EndDate, err = userv1.ParseEndTime(end); err != nil {
		return user.ListUsersInput{}, false, fmt.Errorf("end: %w", err)
	}

	return in, refresh, nil
}

func parseUpdateFlags(fs *flag.FlagSet, args []string) (user.UpdateUserInput, error) {
	var in user.UpdateUserInput
	fs.StringVar(&in.ID, "id", "", "user id")
	email := fs.String("email", "", "new email")
	name := fs.String("name", "", "new name")
	role := fs.String("role", "", "new role")
	status := fs.String("status", "", "new status")
	if err := fs.Parse(args); err != nil {
		return user.UpdateUserInput{}, err
	}

	// 明示的に指定されたフラグだけを更新対象にする。
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "email":
			in.Email = email
		case "name":
			in.Name = name
		case "role":
			in.Role = optionalRole(*role)
		case "status":
			in.Status = optionalStatus(*status)
		}
	})

	return in, nil
}

func optionalRole(raw string) *user.Role {
	if raw == "" {
		return nil
	}
	r := user.Role(raw)
	return &r
}

func optionalStatus(raw string) *user.Status {
	if raw == "" {
		return nil
	}
	s := user.Status(raw)
	return &s
}

func printJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
