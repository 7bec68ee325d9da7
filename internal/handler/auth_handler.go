// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/ndelvaux/guichet/internal/auth"
	"github.com/ndelvaux/guichet/internal/messages"
	"github.com/ndelvaux/guichet/internal/middleware"
	"github.com/ndelvaux/guichet/internal/model"
)

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	SignUp(ctx context.Context, email, username, password string) (*model.User, *model.Session, error)
	SignIn(ctx context.Context, email, password, ip string) (*model.Session, error)
	SignOut(ctx context.Context, sessionID string) error
	RequestOTP(ctx context.Context, email string, purpose model.OTPPurpose, ip string) error
	VerifyOTP(ctx context.Context, email string, purpose model.OTPPurpose, code, ip string) (*model.User, *model.Session, error)
	ResetPasswordWithOTP(ctx context.Context, email, code, newPassword, ip string) error
}

// AuthHandlerConfig は認証ハンドラーの設定。
type AuthHandlerConfig struct {
	CookieDomain  string
	CookieSecure  bool
	SessionMaxAge int // セッションCookieの有効期間（秒）
}

// AuthHandler は認証関連のHTTPハンドラー。
type AuthHandler struct {
	service AuthServiceInterface
	config  AuthHandlerConfig
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(service AuthServiceInterface, config AuthHandlerConfig) *AuthHandler {
	return &AuthHandler{
		service: service,
		config:  config,
	}
}

// userResponse はAPIレスポンスに含めるユーザー情報。
// パスワードハッシュ等の内部フィールドは含めない。
type userResponse struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	Username      string `json:"username"`
	Role          string `json:"role"`
	EmailVerified bool   `json:"email_verified"`
}

func toUserResponse(u *model.User) userResponse {
	return userResponse{
		ID:            u.ID,
		Email:         u.Email,
		Username:      u.Username,
		Role:          string(u.Role),
		EmailVerified: u.EmailVerified,
	}
}

// SignUp は新規登録を処理する。
// POST /api/auth/inscription
func (h *AuthHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w)
		return
	}

	user, session, err := h.service.SignUp(r.Context(), req.Email, req.Username, req.Password)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	h.setSessionCookie(w, session.ID)
	writeJSON(w, http.StatusCreated, map[string]any{
		"user":    toUserResponse(user),
		"message": messages.SuccessMessage("signed-up"),
	})
}

// SignIn はパスワード認証を処理する。
// POST /api/auth/connexion
func (h *AuthHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w)
		return
	}

	session, err := h.service.SignIn(r.Context(), req.Email, req.Password, middleware.ClientIP(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	h.setSessionCookie(w, session.ID)
	writeJSON(w, http.StatusOK, map[string]string{
		"message": messages.SuccessMessage("signed-in"),
	})
}

// SignOut はセッションを破棄する。
// POST /api/auth/deconnexion
func (h *AuthHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(middleware.SessionCookieName)
	if err == nil && cookie.Value != "" {
		if signOutErr := h.service.SignOut(r.Context(), cookie.Value); signOutErr != nil {
			slog.Error("failed to sign out", slog.String("error", signOutErr.Error()))
			// 失敗してもCookieはクリアする
		}
	}

	h.clearSessionCookie(w)
	writeJSON(w, http.StatusOK, map[string]string{
		"message": messages.SuccessMessage("signed-out"),
	})
}

// RequestOTP はワンタイムコードの発行を処理する。
// POST /api/auth/otp/demande
//
// メールアドレスの登録有無に関わらず、成功時のレスポンスは常に同一。
func (h *AuthHandler) RequestOTP(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email   string `json:"email"`
		Purpose string `json:"purpose"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w)
		return
	}

	err := h.service.RequestOTP(r.Context(), req.Email, model.OTPPurpose(req.Purpose), middleware.ClientIP(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message": messages.SuccessMessage("otp-sent"),
	})
}

// VerifyOTP はワンタイムコードの検証を処理する。
// POST /api/auth/otp/verification
func (h *AuthHandler) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email   string `json:"email"`
		Purpose string `json:"purpose"`
		Code    string `json:"code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w)
		return
	}

	user, session, err := h.service.VerifyOTP(r.Context(), req.Email, model.OTPPurpose(req.Purpose), req.Code, middleware.ClientIP(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	if session != nil {
		h.setSessionCookie(w, session.ID)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"user":    toUserResponse(user),
		"message": messages.SuccessMessage("otp-verified"),
	})
}

// ResetPassword はワンタイムコードによるパスワード再設定を処理する。
// POST /api/auth/mot-de-passe/reinitialisation
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email       string `json:"email"`
		Code        string `json:"code"`
		NewPassword string `json:"new_password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w)
		return
	}

	err := h.service.ResetPasswordWithOTP(r.Context(), req.Email, req.Code, req.NewPassword, middleware.ClientIP(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message": messages.SuccessMessage("password-reset"),
	})
}

// Me は現在の認証済みユーザーを返す。
// GET /api/auth/moi
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.UserFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, model.ErrCodeInvalidCredentials, messages.MsgInvalidCredentials, "auth")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"user": toUserResponse(user),
	})
}

func (h *AuthHandler) setSessionCookie(w http.ResponseWriter, sessionID string) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    sessionID,
		Path:     "/",
		Domain:   h.config.CookieDomain,
		MaxAge:   h.config.SessionMaxAge,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *AuthHandler) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    "",
		Path:     "/",
		Domain:   h.config.CookieDomain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// --- 共通レスポンスヘルパー ---

func writeJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, statusCode int, code, message, category string) {
	middleware.WriteErrorResponse(w, statusCode, &model.APIError{
		Code:     code,
		Message:  message,
		Category: category,
		Action:   "",
	})
}

func writeBadRequest(w http.ResponseWriter) {
	writeError(w, http.StatusBadRequest, model.ErrCodeValidationFailed, messages.MsgGenericError, "validation")
}

// writeServiceError はサービス層のエラーをHTTPステータスと安全な文言に変換する。
// 内部エラーの詳細はログのみに記録し、レスポンスには固定の文言を使用する。
func writeServiceError(w http.ResponseWriter, err error) {
	var vErr *auth.ValidationError
	if errors.As(err, &vErr) {
		middleware.WriteErrorResponse(w, http.StatusBadRequest,
			model.NewValidationFailedError(strings.Join(vErr.Violations, " ")))
		return
	}

	switch {
	case errors.Is(err, model.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, model.ErrCodeInvalidCredentials, messages.MapError(err), "auth")
	case errors.Is(err, model.ErrAccountBanned):
		writeError(w, http.StatusForbidden, model.ErrCodeAccountBanned, messages.MapError(err), "auth")
	case errors.Is(err, model.ErrOTPInvalid):
		writeError(w, http.StatusBadRequest, model.ErrCodeOTPInvalid, messages.MapError(err), "auth")
	case errors.Is(err, model.ErrRateLimited):
		w.Header().Set("Retry-After", "60")
		writeError(w, http.StatusTooManyRequests, model.ErrCodeRateLimited, messages.MapError(err), "ratelimit")
	case errors.Is(err, model.ErrEmailExists),
		errors.Is(err, model.ErrUsernameExists),
		errors.Is(err, model.ErrOrgSlugTaken),
		errors.Is(err, model.ErrAlreadyMember):
		writeError(w, http.StatusConflict, model.ErrCodeValidationFailed, messages.MapError(err), "validation")
	case errors.Is(err, model.ErrInvitationInvalid),
		errors.Is(err, model.ErrInvitationExpired):
		writeError(w, http.StatusBadRequest, model.ErrCodeValidationFailed, messages.MapError(err), "validation")
	case errors.Is(err, model.ErrNotOrgOwner):
		writeError(w, http.StatusForbidden, model.ErrCodeForbidden, messages.MapError(err), "auth")
	case errors.Is(err, model.ErrUserNotFound):
		writeError(w, http.StatusNotFound, model.ErrCodeValidationFailed, messages.MapError(err), "validation")
	default:
		slog.Error("unhandled service error", slog.String("error", err.Error()))
		middleware.WriteInternalServerError(w)
	}
}
