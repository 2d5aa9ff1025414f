package postgres

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/ogurasousui/codex-user-admin/internal/core/user"
	pgdb "github.com/ogurasousui/codex-user-admin/internal/platform/db/postgres"
)

const (
	uniqueViolationCode           = "23505"
	invalidTextRepresentationCode = "22P02"
)

const userColumns = `id, email, name, role, status, created_at, updated_at`

// UserRepository は PostgreSQL を利用したユーザー永続化の実装です。
type UserRepository struct {
	pool pgdb.Queryer
}

// NewUserRepository は UserRepository を生成します。
func NewUserRepository(pool pgdb.Queryer) *UserRepository {
	return &UserRepository{pool: pool}
}

// Insert はユーザーを新規作成します。ID はデータベースで採番されます。
func (r *UserRepository) Insert(ctx context.Context, u *user.User) (*user.User, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        INSERT INTO users (email, name, role, status, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING `+userColumns,
		u.Email, u.Name, string(u.Role), string(u.Status), u.CreatedAt, u.UpdatedAt)

	created, err := scanUser(row)
	if err != nil {
		return nil, translatePgError(err)
	}
	return created, nil
}

// UpdateByID はユーザー情報を更新します。
func (r *UserRepository) UpdateByID(ctx context.Context, u *user.User) (*user.User, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        UPDATE users
           SET email = $1,
               name = $2,
               role = $3,
               status = $4,
               updated_at = $5
         WHERE id = $6
        RETURNING `+userColumns,
		u.Email, u.Name, string(u.Role), string(u.Status), u.UpdatedAt, u.ID)

	updated, err := scanUser(row)
	if err != nil {
		return nil, translatePgError(err)
	}
	return updated, nil
}

// DeleteByID はユーザーを削除します。
func (r *UserRepository) DeleteByID(ctx context.Context, id string) error {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	tag, err := exec.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return translatePgError(err)
	}
	if tag.RowsAffected() == 0 {
		return user.ErrUserNotFound
	}
	return nil
}

// FindByID はIDでユーザーを取得します。
func (r *UserRepository) FindByID(ctx context.Context, id string) (*user.User, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        SELECT `+userColumns+`
          FROM users
         WHERE id = $1
         LIMIT 1
    `, id)

	found, err := scanUser(row)
	if err != nil {
		return nil, translatePgError(err)
	}
	return found, nil
}

// FindByEmail はメールアドレスでユーザーを取得します。
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*user.User, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        SELECT `+userColumns+`
          FROM users
         WHERE email = $1
         LIMIT 1
    `, email)

	found, err := scanUser(row)
	if err != nil {
		return nil, translatePgError(err)
	}
	return found, nil
}

// Find は条件に一致するユーザーを created_at 降順で取得します。
func (r *UserRepository) Find(ctx context.Context, filter user.ListFilter, page user.Page) ([]*user.User, error) {
	whereClause, args := buildWhere(filter)

	limitPlaceholder := "$" + strconv.Itoa(len(args)+1)
	args = append(args, page.Limit)
	offsetPlaceholder := "$" + strconv.Itoa(len(args)+1)
	args = append(args, page.Offset)

	query := `
        SELECT ` + userColumns + `
          FROM users` + whereClause + `
         ORDER BY created_at DESC, id DESC
         LIMIT ` + limitPlaceholder + `
        OFFSET ` + offsetPlaceholder + `
    `

	exec := pgdb.QueryerFromContext(ctx, r.pool)
	rows, err := exec.Query(ctx, query, args...)
	if err != nil {
		return nil, translatePgError(err)
	}
	defer rows.Close()

	users := make([]*user.User, 0, page.Limit)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, translatePgError(err)
		}
		users = append(users, u)
	}

	if err := rows.Err(); err != nil {
		return nil, translatePgError(err)
	}

	return users, nil
}

// Count は条件に一致するユーザー数を返します。
func (r *UserRepository) Count(ctx context.Context, filter user.ListFilter) (int, error) {
	whereClause, args := buildWhere(filter)

	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `SELECT COUNT(*) FROM users`+whereClause, args...)

	var total int64
	if err := row.Scan(&total); err != nil {
		return 0, translatePgError(err)
	}
	return int(total), nil
}

// buildWhere は filter を WHERE 句とプレースホルダ引数に変換します。
func buildWhere(filter user.ListFilter) (string, []any) {
	args := make([]any, 0, 5)
	conditions := make([]string, 0, 4)

	next := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if filter.Email != "" {
		conditions = append(conditions, "strpos(lower(email), "+next(strings.ToLower(filter.Email))+") > 0")
	}
	if filter.Role != nil {
		conditions = append(conditions, "role = "+next(string(*filter.Role)))
	}
	if filter.Status != nil {
		conditions = append(conditions, "status = "+next(string(*filter.Status)))
	}
	if filter.Created != nil {
		from := next(filter.Created.From)
		to := next(filter.Created.To)
		conditions = append(conditions, "created_at BETWEEN "+from+" AND "+to)
	}

	if len(conditions) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

func scanUser(row pgx.Row) (*user.User, error) {
	var (
		id                   string
		email                string
		name                 string
		role                 string
		status               string
		createdAt, updatedAt time.Time
	)

	if err := row.Scan(&id, &email, &name, &role, &status, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, user.ErrUserNotFound
		}
		return nil, err
	}

	return &user.User{
		ID:        id,
		Email:     email,
		Name:      name,
		Role:      user.Role(role),
		Status:    user.Status(status),
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
	}, nil
}

func translatePgError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return user.ErrUserNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case uniqueViolationCode:
			return user.ErrEmailAlreadyExists
		case invalidTextRepresentationCode:
			// uuid として解釈できない ID は存在しないものとして扱う。
			return user.ErrUserNotFound
		}
	}
	return err
}
