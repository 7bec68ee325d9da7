package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/ndelvaux/guichet/internal/messages"
	"github.com/ndelvaux/guichet/internal/middleware"
	"github.com/ndelvaux/guichet/internal/model"
)

// AccountServiceInterface はアカウントハンドラーが必要とするサービスインターフェース。
type AccountServiceInterface interface {
	UpdateUsername(ctx context.Context, userID, username string) error
	ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error
	Withdraw(ctx context.Context, userID string) error
}

// AccountHandler はアカウント管理のHTTPハンドラー。
// すべてのエンドポイントはゲートにより認証済みユーザーに限定される。
type AccountHandler struct {
	service AccountServiceInterface
}

// NewAccountHandler はAccountHandlerを生成する。
func NewAccountHandler(service AccountServiceInterface) *AccountHandler {
	return &AccountHandler{service: service}
}

// UpdateUsername はユーザー名の変更を処理する。
// PATCH /api/account/nom-utilisateur
func (h *AccountHandler) UpdateUsername(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.UserFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, model.ErrCodeInvalidCredentials, messages.MsgInvalidCredentials, "auth")
		return
	}

	var req struct {
		Username string `json:"username"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w)
		return
	}

	if err := h.service.UpdateUsername(r.Context(), user.ID, req.Username); err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message": messages.SuccessMessage("profile-updated"),
	})
}

// ChangePassword はパスワードの変更を処理する。
// 変更後はすべてのセッションが失効するため、クライアントは再ログインが必要。
// POST /api/account/mot-de-passe
func (h *AccountHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.UserFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, model.ErrCodeInvalidCredentials, messages.MsgInvalidCredentials, "auth")
		return
	}

	var req struct {
		CurrentPassword string `json:"current_password"`
		NewPassword     string `json:"new_password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w)
		return
	}

	if err := h.service.ChangePassword(r.Context(), user.ID, req.CurrentPassword, req.NewPassword); err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message": messages.SuccessMessage("password-reset"),
	})
}

// Withdraw は退会を処理する。
// DELETE /api/account
func (h *AccountHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.UserFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, model.ErrCodeInvalidCredentials, messages.MsgInvalidCredentials, "auth")
		return
	}

	if err := h.service.Withdraw(r.Context(), user.ID); err != nil {
		writeServiceError(w, err)
		return
	}

	// アカウントが消えたのでセッションCookieもクリアする
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, map[string]string{
		"message": messages.SuccessMessage("signed-out"),
	})
}
