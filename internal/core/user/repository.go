package user

import "context"

// Repository はユーザーエンティティの永続化を行うインターフェースです。
// 実装はメモリ、PostgreSQL、MongoDB の各アダプタにあります。
type Repository interface {
	Insert(ctx context.Context, user *User) (*User, error)
	UpdateByID(ctx context.Context, user *User) (*User, error)
	DeleteByID(ctx context.Context, id string) error
	FindByID(ctx context.Context, id string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	// Find は filter に一致するユーザーを created_at 降順で page の範囲だけ返します。
	Find(ctx context.Context, filter ListFilter, page Page) ([]*User, error)
	// Count は filter に一致するユーザー数を返します。page は考慮しません。
	Count(ctx context.Context, filter ListFilter) (int, error)
}
