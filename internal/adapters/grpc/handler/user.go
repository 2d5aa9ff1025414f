package handler

import (
	"context"

	"github.com/ogurasousui/codex-user-admin/internal/adapters/grpc/userv1"
	"github.com/ogurasousui/codex-user-admin/internal/core/user"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// UserGrpcHandler は UserService の gRPC 実装です。
type UserGrpcHandler struct {
	svc user.UseCase
	userv1.UnimplementedUserServiceServer
}

// NewUserGrpcHandler は UserGrpcHandler を生成します。
func NewUserGrpcHandler(svc user.UseCase) *UserGrpcHandler {
	return &UserGrpcHandler{svc: svc}
}

// ListUsers はユーザーの一覧を取得します。
func (h *UserGrpcHandler) ListUsers(ctx context.Context, req *userv1.ListUsersRequest) (*userv1.ListUsersResponse, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}

	in, err := toListUsersInput(req)
	if err != nil {
		return nil, err
	}

	result, err := h.svc.ListUsers(ctx, in)
	if err != nil {
		return nil, toStatusError(err)
	}

	items := make([]*userv1.User, 0, len(result.Users))
	for _, u := range result.Users {
		items = append(items, toWireUser(u))
	}

	return &userv1.ListUsersResponse{
		Items:    items,
		Total:    userv1.ClampInt32(result.Total),
		Degraded: result.Degraded,
	}, nil
}

// GetUser はユーザーを取得します。
func (h *UserGrpcHandler) GetUser(ctx context.Context, req *userv1.GetUserRequest) (*userv1.GetUserResponse, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}

	found, err := h.svc.GetUser(ctx, user.GetUserInput{ID: req.ID})
	if err != nil {
		return nil, toStatusError(err)
	}

	return &userv1.GetUserResponse{User: toWireUser(found)}, nil
}

// CreateUser はユーザーを作成します。
func (h *UserGrpcHandler) CreateUser(ctx context.Context, req *userv1.CreateUserRequest) (*userv1.CreateUserResponse, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}

	created, err := h.svc.CreateUser(ctx, user.CreateUserInput{
		Email:  req.Email,
		Name:   req.Name,
		Role:   optionalRole(req.Role),
		Status: optionalStatus(req.Status),
	})
	if err != nil {
		return nil, toStatusError(err)
	}

	return &userv1.CreateUserResponse{User: toWireUser(created)}, nil
}

// UpdateUser はユーザー情報を更新します。
func (h *UserGrpcHandler) UpdateUser(ctx context.Context, req *userv1.UpdateUserRequest) (*userv1.UpdateUserResponse, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}

	in := user.UpdateUserInput{
		ID:    req.ID,
		Email: req.Email,
		Name:  req.Name,
	}
	if req.Role != nil {
		role := user.Role(*req.Role)
		in.Role = &role
	}
	if req.Status != nil {
		st := user.Status(*req.Status)
		in.Status = &st
	}

	updated, err := h.svc.UpdateUser(ctx, in)
	if err != nil {
		return nil, toStatusError(err)
	}

	return &userv1.UpdateUserResponse{User: toWireUser(updated)}, nil
}

// UpdateUserRole はロールのみを変更します。
func (h *UserGrpcHandler) UpdateUserRole(ctx context.Context, req *userv1.UpdateUserRoleRequest) (*userv1.UpdateUserRoleResponse, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}

	updated, err := h.svc.UpdateUserRole(ctx, user.UpdateUserRoleInput{
		ID:   req.ID,
		Role: user.Role(req.Role),
	})
	if err != nil {
		return nil, toStatusError(err)
	}

	return &userv1.UpdateUserRoleResponse{User: toWireUser(updated)}, nil
}

// DeleteUser はユーザーを削除します。
func (h *UserGrpcHandler) DeleteUser(ctx context.Context, req *userv1.DeleteUserRequest) (*userv1.DeleteUserResponse, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}

	if err := h.svc.DeleteUser(ctx, user.DeleteUserInput{ID: req.ID}); err != nil {
		return nil, toStatusError(err)
	}

	return &userv1.DeleteUserResponse{Deleted: true}, nil
}

func toListUsersInput(req *userv1.ListUsersRequest) (user.ListUsersInput, error) {
	startDate, err := userv1.ParseTime(req.Filter.GetStartDate())
	if err != nil {
		return user.ListUsersInput{}, status.Error(codes.InvalidArgument, "filter.startDate must be RFC 3339")
	}
	endDate, err := userv1.ParseEndTime(req.Filter.GetEndDate())
	if err != nil {
		return user.ListUsersInput{}, status.Error(codes.InvalidArgument, "filter.endDate must be RFC 3339")
	}

	return user.ListUsersInput{
		Offset:    int(req.Offset),
		Limit:     int(req.Limit),
		Email:     req.Filter.GetEmail(),
		Role:      optionalRole(req.Filter.GetRole()),
		Status:    optionalStatus(req.Filter.GetStatus()),
		StartDate: startDate,
		EndDate:   endDate,
	}, nil
}

func optionalRole(raw string) *user.Role {
	if raw == "" {
		return nil
	}
	role := user.Role(raw)
	return &role
}

func optionalStatus(raw string) *user.Status {
	if raw == "" {
		return nil
	}
	st := user.Status(raw)
	return &st
}

func toWireUser(u *user.User) *userv1.User {
	if u == nil {
		return nil
	}

	return &userv1.User{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		Role:      string(u.Role),
		Status:    string(u.Status),
		CreatedAt: userv1.FormatTime(u.CreatedAt),
		UpdatedAt: userv1.FormatTime(u.UpdatedAt),
	}
}
