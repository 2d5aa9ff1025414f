package user

import "time"

// Role はユーザーの権限ロールを表します。
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleModerator Role = "moderator"
	RoleUser      Role = "user"
)

// Status はユーザーの状態を表します。
type Status string

const (
	StatusActive  Status = "active"
	StatusPending Status = "pending"
	StatusBanned  Status = "banned"
)

// IsValid は定義済みのロールかどうかを返します。
func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleModerator, RoleUser:
		return true
	default:
		return false
	}
}

// IsValid は定義済みのステータスかどうかを返します。
func (s Status) IsValid() bool {
	switch s {
	case StatusActive, StatusPending, StatusBanned:
		return true
	default:
		return false
	}
}

// User はユーザーエンティティです。
type User struct {
	ID        string
	Email     string
	Name      string
	Role      Role
	Status    Status
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Clone はユーザーのコピーを返します。
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	return &c
}
