package rest

import (
	"github.com/ogurasousui/codex-user-admin/internal/adapters/grpc/userv1"
	"github.com/ogurasousui/codex-user-admin/internal/core/user"
)

type userResponse struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	Role      string `json:"role"`
	Status    string `json:"status"`
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
}

type listUsersResponse struct {
	Items    []userResponse `json:"items"`
	Total    int            `json:"total"`
	Degraded bool           `json:"degraded,omitempty"`
}

type createUserRequest struct {
	Email  string       `json:"email"`
	Name   string       `json:"name"`
	Role   *user.Role   `json:"role,omitempty"`
	Status *user.Status `json:"status,omitempty"`
}

type updateUserRequest struct {
	Email  *string      `json:"email,omitempty"`
	Name   *string      `json:"name,omitempty"`
	Role   *user.Role   `json:"role,omitempty"`
	Status *user.Status `json:"status,omitempty"`
}

type updateRoleRequest struct {
	Role user.Role `json:"role"`
}

type deleteUserResponse struct {
	Deleted bool `json:"deleted"`
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func toUserResponse(u *user.User) userResponse {
	return userResponse{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		Role:      string(u.Role),
		Status:    string(u.Status),
		CreatedAt: userv1.FormatTime(u.CreatedAt),
		UpdatedAt: userv1.FormatTime(u.UpdatedAt),
	}
}
