package user

import "errors"

var (
	// ErrUserNotFound はユーザーが存在しない場合に返却されます。
	ErrUserNotFound = errors.New("user not found")
	// ErrEmailAlreadyExists はメールアドレス重複時に返却されます。
	ErrEmailAlreadyExists = errors.New("email already exists")

	ErrInvalidEmail  = errors.New("invalid email")
	ErrInvalidName   = errors.New("invalid name")
	ErrInvalidRole   = errors.New("invalid role")
	ErrInvalidStatus = errors.New("invalid status")
	ErrInvalidID     = errors.New("invalid id")
)

// ValidationErrors は入力不正を表す番兵エラーの一覧です。
// トランスポート層はメッセージからこの中のどれかを復元します。
func ValidationErrors() []error {
	return []error{ErrInvalidEmail, ErrInvalidName, ErrInvalidRole, ErrInvalidStatus, ErrInvalidID}
}

// IsValidation は err が入力不正によるものかどうかを返します。
func IsValidation(err error) bool {
	for _, target := range ValidationErrors() {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
