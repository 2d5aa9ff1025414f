package user

import (
	"cmp"
	"strings"
	"time"
)

// TimeRange は created_at に対する閉区間です。
type TimeRange struct {
	From time.Time
	To   time.Time
}

// Contains は t が区間内 (両端を含む) にあるかを返します。
func (r TimeRange) Contains(t time.Time) bool {
	return !t.Before(r.From) && !t.After(r.To)
}

// ListFilter は一覧取得時の検索条件です。すべての条件は AND で結合されます。
// ゼロ値は全件一致を表します。
type ListFilter struct {
	// Email は小文字化済みの部分一致文字列です。
	Email   string
	Role    *Role
	Status  *Status
	Created *TimeRange
}

// Page は一覧取得時のページ範囲です。
type Page struct {
	Offset int
	Limit  int
}

// Predicate は filter の条件を合成した判定関数を返します。
func (f ListFilter) Predicate() func(*User) bool {
	conds := make([]func(*User) bool, 0, 4)

	if f.Email != "" {
		needle := strings.ToLower(f.Email)
		conds = append(conds, func(u *User) bool {
			return strings.Contains(strings.ToLower(u.Email), needle)
		})
	}

	if f.Role != nil {
		role := *f.Role
		conds = append(conds, func(u *User) bool { return u.Role == role })
	}

	if f.Status != nil {
		status := *f.Status
		conds = append(conds, func(u *User) bool { return u.Status == status })
	}

	if f.Created != nil {
		rng := *f.Created
		conds = append(conds, func(u *User) bool { return rng.Contains(u.CreatedAt) })
	}

	return func(u *User) bool {
		if u == nil {
			return false
		}
		for _, cond := range conds {
			if !cond(u) {
				return false
			}
		}
		return true
	}
}

// CompareNewestFirst は created_at 降順、同時刻なら ID 降順で並べるための比較関数です。
func CompareNewestFirst(a, b *User) int {
	if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
		return c
	}
	return cmp.Compare(b.ID, a.ID)
}
