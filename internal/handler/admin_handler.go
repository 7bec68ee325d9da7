package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ndelvaux/guichet/internal/messages"
	"github.com/ndelvaux/guichet/internal/middleware"
	"github.com/ndelvaux/guichet/internal/model"
)

// AdminServiceInterface は管理者ハンドラーが必要とするサービスインターフェース。
type AdminServiceInterface interface {
	ListUsers(ctx context.Context, limit, offset int) ([]*model.User, error)
	BanUser(ctx context.Context, adminID, targetID, reason string, expires *time.Time) error
	UnbanUser(ctx context.Context, adminID, targetID string) error
}

// AdminHandler は管理者向けのHTTPハンドラー。
// 管理者ロールの確認はゲートが行うため、ここでは認証済み前提で処理する。
type AdminHandler struct {
	service AdminServiceInterface
}

// NewAdminHandler はAdminHandlerを生成する。
func NewAdminHandler(service AdminServiceInterface) *AdminHandler {
	return &AdminHandler{service: service}
}

type adminUserResponse struct {
	ID            string     `json:"id"`
	Email         string     `json:"email"`
	Username      string     `json:"username"`
	Role          string     `json:"role"`
	EmailVerified bool       `json:"email_verified"`
	Banned        bool       `json:"banned"`
	BanReason     string     `json:"ban_reason,omitempty"`
	BanExpires    *time.Time `json:"ban_expires,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// ListUsers はユーザー一覧を返す。
// GET /api/admin/utilisateurs?limit=50&offset=0
func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	users, err := h.service.ListUsers(r.Context(), limit, offset)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	res := make([]adminUserResponse, 0, len(users))
	for _, u := range users {
		res = append(res, adminUserResponse{
			ID:            u.ID,
			Email:         u.Email,
			Username:      u.Username,
			Role:          string(u.Role),
			EmailVerified: u.EmailVerified,
			Banned:        u.Banned,
			BanReason:     u.BanReason,
			BanExpires:    u.BanExpires,
			CreatedAt:     u.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"users": res,
	})
}

// BanUser は指定ユーザーをBANする。
// POST /api/admin/utilisateurs/{userID}/ban
func (h *AdminHandler) BanUser(w http.ResponseWriter, r *http.Request) {
	admin, err := middleware.UserFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, model.ErrCodeInvalidCredentials, messages.MsgInvalidCredentials, "auth")
		return
	}

	targetID := chi.URLParam(r, "userID")

	var req struct {
		Reason  string     `json:"reason"`
		Expires *time.Time `json:"expires"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w)
		return
	}

	if err := h.service.BanUser(r.Context(), admin.ID, targetID, req.Reason, req.Expires); err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message": messages.SuccessMessage(""),
	})
}

// UnbanUser は指定ユーザーのBANを解除する。
// DELETE /api/admin/utilisateurs/{userID}/ban
func (h *AdminHandler) UnbanUser(w http.ResponseWriter, r *http.Request) {
	admin, err := middleware.UserFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, model.ErrCodeInvalidCredentials, messages.MsgInvalidCredentials, "auth")
		return
	}

	targetID := chi.URLParam(r, "userID")

	if err := h.service.UnbanUser(r.Context(), admin.ID, targetID); err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message": messages.SuccessMessage(""),
	})
}
