package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"
)

// Clock は現在時刻を提供します。
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time {
	return time.Now().UTC()
}

// TransactionManager はトランザクション制御の抽象化です。
type TransactionManager interface {
	WithinReadOnly(ctx context.Context, fn func(context.Context) error) error
	WithinReadWrite(ctx context.Context, fn func(context.Context) error) error
}

type noopTransactionManager struct{}

func (noopTransactionManager) WithinReadOnly(ctx context.Context, fn func(context.Context) error) error {
	if fn == nil {
		return nil
	}
	return fn(ctx)
}

func (noopTransactionManager) WithinReadWrite(ctx context.Context, fn func(context.Context) error) error {
	if fn == nil {
		return nil
	}
	return fn(ctx)
}

// ListObserver は一覧取得が縮退したことを受け取ります。
type ListObserver interface {
	ListingDegraded()
}

type noopObserver struct{}

func (noopObserver) ListingDegraded() {}

const (
	// DefaultListLimit は limit 未指定時のページサイズです。
	DefaultListLimit = 10
	// MaxListLimit は 1 ページあたりの上限です。
	MaxListLimit = 100
)

// Service はユーザーに関するユースケースをまとめます。
type Service struct {
	repo     Repository
	clock    Clock
	tx       TransactionManager
	logger   *slog.Logger
	observer ListObserver
}

// Option は Service の設定を変更します。
type Option func(*Service)

// WithLogger はロガーを設定します。
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithListObserver は一覧取得の縮退を通知する先を設定します。
func WithListObserver(observer ListObserver) Option {
	return func(s *Service) {
		if observer != nil {
			s.observer = observer
		}
	}
}

// UseCase はユーザーユースケースの公開インターフェースです。
type UseCase interface {
	ListUsers(ctx context.Context, in ListUsersInput) (*ListUsersResult, error)
	GetUser(ctx context.Context, in GetUserInput) (*User, error)
	CreateUser(ctx context.Context, in CreateUserInput) (*User, error)
	UpdateUser(ctx context.Context, in UpdateUserInput) (*User, error)
	UpdateUserRole(ctx context.Context, in UpdateUserRoleInput) (*User, error)
	DeleteUser(ctx context.Context, in DeleteUserInput) error
}

// NewService は Service を生成します。
func NewService(repo Repository, clock Clock, tx TransactionManager, opts ...Option) *Service {
	if clock == nil {
		clock = realClock{}
	}
	if tx == nil {
		tx = noopTransactionManager{}
	}
	s := &Service{
		repo:     repo,
		clock:    clock,
		tx:       tx,
		logger:   slog.Default(),
		observer: noopObserver{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateUserInput はユーザー作成時の入力です。Role と Status は省略時に既定値が入ります。
type CreateUserInput struct {
	Email  string
	Name   string
	Role   *Role
	Status *Status
}

// UpdateUserInput はユーザー更新時の入力です。nil のフィールドは変更しません。
type UpdateUserInput struct {
	ID     string
	Email  *string
	Name   *string
	Role   *Role
	Status *Status
}

// UpdateUserRoleInput はロール変更時の入力です。
type UpdateUserRoleInput struct {
	ID   string
	Role Role
}

// DeleteUserInput はユーザー削除時の入力です。
type DeleteUserInput struct {
	ID string
}

// GetUserInput はユーザー取得時の入力です。
type GetUserInput struct {
	ID string
}

// ListUsersInput は一覧取得時の入力です。
// StartDate と EndDate は両方指定された場合のみ作成日時の範囲条件になります。
type ListUsersInput struct {
	Offset    int
	Limit     int
	Email     string
	Role      *Role
	Status    *Status
	StartDate *time.Time
	EndDate   *time.Time
}

// ListUsersResult は一覧取得結果を表します。
type ListUsersResult struct {
	Users []*User
	// Total はページ範囲に関係なく条件に一致した件数です。
	Total int
	// Degraded はストア障害により空の結果へ縮退したことを示します。
	Degraded bool
}

// ListUsers はユーザーの一覧を取得します。
// ストア障害はエラーとして返さず、空の結果 (Degraded=true) に縮退します。
func (s *Service) ListUsers(ctx context.Context, in ListUsersInput) (*ListUsersResult, error) {
	filter, err := buildListFilter(in)
	if err != nil {
		return nil, err
	}

	page := Page{
		Offset: normalizeOffset(in.Offset),
		Limit:  normalizeLimit(in.Limit),
	}

	var result *ListUsersResult
	if err := s.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		users, err := s.repo.Find(txCtx, filter, page)
		if err != nil {
			return fmt.Errorf("find users: %w", err)
		}

		total, err := s.repo.Count(txCtx, filter)
		if err != nil {
			return fmt.Errorf("count users: %w", err)
		}

		result = &ListUsersResult{Users: users, Total: total}
		return nil
	}); err != nil {
		s.logger.ErrorContext(ctx, "list users degraded to empty result",
			slog.Int("offset", page.Offset),
			slog.Int("limit", page.Limit),
			slog.String("error", err.Error()),
		)
		s.observer.ListingDegraded()
		return &ListUsersResult{Users: []*User{}, Degraded: true}, nil
	}

	if result.Users == nil {
		result.Users = []*User{}
	}

	return result, nil
}

// GetUser は ID でユーザーを取得します。
func (s *Service) GetUser(ctx context.Context, in GetUserInput) (*User, error) {
	if strings.TrimSpace(in.ID) == "" {
		return nil, fmt.Errorf("id: %w", ErrInvalidID)
	}

	var found *User
	if err := s.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		u, err := s.repo.FindByID(txCtx, in.ID)
		if err != nil {
			return err
		}
		found = u
		return nil
	}); err != nil {
		return nil, err
	}

	return found, nil
}

// CreateUser は新しいユーザーを作成します。
func (s *Service) CreateUser(ctx context.Context, in CreateUserInput) (*User, error) {
	email, err := normalizeEmail(in.Email)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, ErrInvalidName
	}

	role := RoleUser
	if in.Role != nil {
		if !in.Role.IsValid() {
			return nil, ErrInvalidRole
		}
		role = *in.Role
	}

	status := StatusActive
	if in.Status != nil {
		if !in.Status.IsValid() {
			return nil, ErrInvalidStatus
		}
		status = *in.Status
	}

	var created *User
	if err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		if err := s.ensureEmailNotExists(txCtx, email, ""); err != nil {
			return err
		}

		now := s.clock.Now()
		u := &User{
			Email:     email,
			Name:      name,
			Role:      role,
			Status:    status,
			CreatedAt: now,
			UpdatedAt: now,
		}

		result, err := s.repo.Insert(txCtx, u)
		if err != nil {
			return err
		}

		created = result
		return nil
	}); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "user created", slog.String("user_id", created.ID))
	return created, nil
}

// UpdateUser はユーザー情報を更新します。
func (s *Service) UpdateUser(ctx context.Context, in UpdateUserInput) (*User, error) {
	if strings.TrimSpace(in.ID) == "" {
		return nil, fmt.Errorf("id: %w", ErrInvalidID)
	}

	var updated *User
	if err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		existing, err := s.repo.FindByID(txCtx, in.ID)
		if err != nil {
			return err
		}

		if in.Name != nil {
			name := strings.TrimSpace(*in.Name)
			if name == "" {
				return ErrInvalidName
			}
			existing.Name = name
		}

		if in.Email != nil {
			email, err := normalizeEmail(*in.Email)
			if err != nil {
				return err
			}
			if email != existing.Email {
				if err := s.ensureEmailNotExists(txCtx, email, existing.ID); err != nil {
					return err
				}
				existing.Email = email
			}
		}

		if in.Role != nil {
			if !in.Role.IsValid() {
				return ErrInvalidRole
			}
			existing.Role = *in.Role
		}

		if in.Status != nil {
			if !in.Status.IsValid() {
				return ErrInvalidStatus
			}
			existing.Status = *in.Status
		}

		existing.UpdatedAt = s.clock.Now()

		result, err := s.repo.UpdateByID(txCtx, existing)
		if err != nil {
			return err
		}

		updated = result
		return nil
	}); err != nil {
		return nil, err
	}

	return updated, nil
}

// UpdateUserRole はロールのみを変更します。
func (s *Service) UpdateUserRole(ctx context.Context, in UpdateUserRoleInput) (*User, error) {
	if strings.TrimSpace(in.ID) == "" {
		return nil, fmt.Errorf("id: %w", ErrInvalidID)
	}
	if !in.Role.IsValid() {
		return nil, ErrInvalidRole
	}

	var updated *User
	if err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		existing, err := s.repo.FindByID(txCtx, in.ID)
		if err != nil {
			return err
		}

		existing.Role = in.Role
		existing.UpdatedAt = s.clock.Now()

		result, err := s.repo.UpdateByID(txCtx, existing)
		if err != nil {
			return err
		}

		updated = result
		return nil
	}); err != nil {
		return nil, err
	}

	return updated, nil
}

// DeleteUser はユーザーを削除します。
func (s *Service) DeleteUser(ctx context.Context, in DeleteUserInput) error {
	if strings.TrimSpace(in.ID) == "" {
		return fmt.Errorf("id: %w", ErrInvalidID)
	}

	if err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		return s.repo.DeleteByID(txCtx, in.ID)
	}); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "user deleted", slog.String("user_id", in.ID))
	return nil
}

func (s *Service) ensureEmailNotExists(ctx context.Context, email, exceptID string) error {
	u, err := s.repo.FindByEmail(ctx, email)
	if err != nil && !errors.Is(err, ErrUserNotFound) {
		return err
	}
	if u != nil && u.ID != exceptID {
		return ErrEmailAlreadyExists
	}
	return nil
}

func buildListFilter(in ListUsersInput) (ListFilter, error) {
	filter := ListFilter{
		Email: strings.ToLower(strings.TrimSpace(in.Email)),
	}

	if in.Role != nil {
		if !in.Role.IsValid() {
			return ListFilter{}, ErrInvalidRole
		}
		role := *in.Role
		filter.Role = &role
	}

	if in.Status != nil {
		if !in.Status.IsValid() {
			return ListFilter{}, ErrInvalidStatus
		}
		status := *in.Status
		filter.Status = &status
	}

	// 片側だけの範囲指定は無視する。
	if in.StartDate != nil && in.EndDate != nil {
		filter.Created = &TimeRange{From: *in.StartDate, To: *in.EndDate}
	}

	return filter, nil
}

func normalizeEmail(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", ErrInvalidEmail
	}

	addr, err := mail.ParseAddress(trimmed)
	if err != nil || addr.Address != trimmed {
		return "", ErrInvalidEmail
	}

	return strings.ToLower(addr.Address), nil
}

func normalizeOffset(offset int) int {
	if offset < 0 {
		return 0
	}
	return offset
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	if limit > MaxListLimit {
		return MaxListLimit
	}
	return limit
}
