package handler

import (
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/ogurasousui/codex-user-admin/internal/core/user"
)

// toStatusError はドメインエラーを gRPC ステータスに変換します。
// InvalidArgument のメッセージには番兵エラーの文言をそのまま含めます。
func toStatusError(err error) error {
	switch {
	case err == nil:
		return nil
	case user.IsValidation(err):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, user.ErrEmailAlreadyExists):
		return status.Error(codes.AlreadyExists, err.Error())
	case errors.Is(err, user.ErrUserNotFound):
		return status.Error(codes.NotFound, err.Error())
	default:
		return status.Error(codes.Internal, "internal error")
	}
}
