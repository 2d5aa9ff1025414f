package rest

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/ogurasousui/codex-user-admin/internal/adapters/grpc/userv1"
	"github.com/ogurasousui/codex-user-admin/internal/core/user"
)

const maxRequestBodySize = 1 << 20

// UserHandler は /api/v1/users 以下の HTTP ハンドラです。
type UserHandler struct {
	svc    user.UseCase
	logger *slog.Logger
}

// NewUserHandler は UserHandler を生成します。
func NewUserHandler(svc user.UseCase, logger *slog.Logger) *UserHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &UserHandler{svc: svc, logger: logger}
}

// List は GET /api/v1/users を処理します。
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	offset, err := intParam(q.Get("offset"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_OFFSET", "offset must be an integer")
		return
	}
	limit, err := intParam(q.Get("limit"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_LIMIT", "limit must be an integer")
		return
	}
	startDate, err := userv1.ParseTime(q.Get("startDate"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_DATE", "startDate must be RFC 3339 or YYYY-MM-DD")
		return
	}
	endDate, err := userv1.ParseEndTime(q.Get("endDate"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_DATE", "endDate must be RFC 3339 or YYYY-MM-DD")
		return
	}

	in := user.ListUsersInput{
		Offset:    offset,
		Limit:     limit,
		Email:     q.Get("email"),
		StartDate: startDate,
		EndDate:   endDate,
	}
	if raw := q.Get("role"); raw != "" {
		role := user.Role(raw)
		in.Role = &role
	}
	if raw := q.Get("status"); raw != "" {
		st := user.Status(raw)
		in.Status = &st
	}

	result, err := h.svc.ListUsers(r.Context(), in)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	items := make([]userResponse, 0, len(result.Users))
	for _, u := range result.Users {
		items = append(items, toUserResponse(u))
	}
	writeJSON(w, http.StatusOK, listUsersResponse{Items: items, Total: result.Total, Degraded: result.Degraded})
}

// Get は GET /api/v1/users/{id} を処理します。
func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	found, err := h.svc.GetUser(r.Context(), user.GetUserInput{ID: chi.URLParam(r, "id")})
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(found))
}

// Create は POST /api/v1/users を処理します。
func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	created, err := h.svc.CreateUser(r.Context(), user.CreateUserInput{
		Email:  req.Email,
		Name:   req.Name,
		Role:   req.Role,
		Status: req.Status,
	})
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toUserResponse(created))
}

// Update は PATCH /api/v1/users/{id} を処理します。
func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req updateUserRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	updated, err := h.svc.UpdateUser(r.Context(), user.UpdateUserInput{
		ID:     chi.URLParam(r, "id"),
		Email:  req.Email,
		Name:   req.Name,
		Role:   req.Role,
		Status: req.Status,
	})
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(updated))
}

// UpdateRole は PUT /api/v1/users/{id}/role を処理します。
func (h *UserHandler) UpdateRole(w http.ResponseWriter, r *http.Request) {
	var req updateRoleRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	updated, err := h.svc.UpdateUserRole(r.Context(), user.UpdateUserRoleInput{
		ID:   chi.URLParam(r, "id"),
		Role: req.Role,
	})
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(updated))
}

// Delete は DELETE /api/v1/users/{id} を処理します。
func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteUser(r.Context(), user.DeleteUserInput{ID: chi.URLParam(r, "id")}); err != nil {
		h.handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, deleteUserResponse{Deleted: true})
}

func (h *UserHandler) handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, user.ErrUserNotFound):
		writeError(w, http.StatusNotFound, "USER_NOT_FOUND", "User not found")
	case errors.Is(err, user.ErrEmailAlreadyExists):
		writeError(w, http.StatusConflict, "EMAIL_TAKEN", "Email already exists")
	case errors.Is(err, user.ErrInvalidEmail):
		writeError(w, http.StatusBadRequest, "INVALID_EMAIL", "Invalid email")
	case errors.Is(err, user.ErrInvalidName):
		writeError(w, http.StatusBadRequest, "INVALID_NAME", "Name must not be empty")
	case errors.Is(err, user.ErrInvalidRole):
		writeError(w, http.StatusBadRequest, "INVALID_ROLE", "Role must be admin, moderator or user")
	case errors.Is(err, user.ErrInvalidStatus):
		writeError(w, http.StatusBadRequest, "INVALID_STATUS", "Status must be active, pending or banned")
	case errors.Is(err, user.ErrInvalidID):
		writeError(w, http.StatusBadRequest, "INVALID_ID", "User ID is required")
	default:
		h.logger.Error("internal_error", "error", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred")
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return false
	}
	return true
}

func intParam(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	return strconv.Atoi(raw)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Error: message, Code: code})
}

// writeJSON はステータスコード付きで JSON を書き出します。
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
