package userv1

import (
	"math"
	"time"
)

// User はワイヤ上のユーザー表現です。日時は RFC 3339 文字列です。
type User struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	Role      string `json:"role"`
	Status    string `json:"status"`
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
}

// UserFilter は一覧取得の絞り込み条件です。空文字は未指定を表します。
type UserFilter struct {
	Email     string `json:"email,omitempty"`
	Role      string `json:"role,omitempty"`
	Status    string `json:"status,omitempty"`
	StartDate string `json:"startDate,omitempty"`
	EndDate   string `json:"endDate,omitempty"`
}

func (f *UserFilter) GetEmail() string {
	if f == nil {
		return ""
	}
	return f.Email
}

func (f *UserFilter) GetRole() string {
	if f == nil {
		return ""
	}
	return f.Role
}

func (f *UserFilter) GetStatus() string {
	if f == nil {
		return ""
	}
	return f.Status
}

func (f *UserFilter) GetStartDate() string {
	if f == nil {
		return ""
	}
	return f.StartDate
}

func (f *UserFilter) GetEndDate() string {
	if f == nil {
		return ""
	}
	return f.EndDate
}

type ListUsersRequest struct {
	Offset int32       `json:"offset"`
	Limit  int32       `json:"limit"`
	Filter *UserFilter `json:"filter,omitempty"`
}

type ListUsersResponse struct {
	Items    []*User `json:"items"`
	Total    int32   `json:"total"`
	Degraded bool    `json:"degraded,omitempty"`
}

type GetUserRequest struct {
	ID string `json:"id"`
}

type GetUserResponse struct {
	User *User `json:"user"`
}

type CreateUserRequest struct {
	Email  string `json:"email"`
	Name   string `json:"name"`
	Role   string `json:"role,omitempty"`
	Status string `json:"status,omitempty"`
}

type CreateUserResponse struct {
	User *User `json:"user"`
}

// UpdateUserRequest は部分更新の要求です。nil のフィールドは変更しません。
type UpdateUserRequest struct {
	ID     string  `json:"id"`
	Email  *string `json:"email,omitempty"`
	Name   *string `json:"name,omitempty"`
	Role   *string `json:"role,omitempty"`
	Status *string `json:"status,omitempty"`
}

type UpdateUserResponse struct {
	User *User `json:"user"`
}

type UpdateUserRoleRequest struct {
	ID   string `json:"id"`
	Role string `json:"role"`
}

type UpdateUserRoleResponse struct {
	User *User `json:"user"`
}

type DeleteUserRequest struct {
	ID string `json:"id"`
}

type DeleteUserResponse struct {
	Deleted bool `json:"deleted"`
}

// FormatTime は日時をワイヤ形式に変換します。
func FormatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

// ParseTime はワイヤ形式の日時を解釈します。空文字は nil を返します。
// 日付のみ (2006-01-02) の場合は UTC の 0 時として扱います。
func ParseTime(s string) (*time.Time, error) {
	t, _, err := parseWireTime(s)
	return t, err
}

// ParseEndTime は範囲の終端として日時を解釈します。
// 日付のみの場合はその日の終わり (翌日 0 時の直前) として扱います。
func ParseEndTime(s string) (*time.Time, error) {
	t, dateOnly, err := parseWireTime(s)
	if err != nil || t == nil || !dateOnly {
		return t, err
	}
	end := t.AddDate(0, 0, 1).Add(-time.Nanosecond)
	return &end, nil
}

func parseWireTime(s string) (*time.Time, bool, error) {
	if s == "" {
		return nil, false, nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err == nil {
		return &t, false, nil
	}
	d, dateErr := time.Parse(time.DateOnly, s)
	if dateErr != nil {
		return nil, false, err
	}
	return &d, true, nil
}

// ClampInt32 は int を int32 の範囲に丸めます。
func ClampInt32(v int) int32 {
	switch {
	case v > math.MaxInt32:
		return math.MaxInt32
	case v < math.MinInt32:
		return math.MinInt32
	default:
		return int32(v)
	}
}
