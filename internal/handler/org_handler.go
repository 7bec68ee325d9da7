package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ndelvaux/guichet/internal/messages"
	"github.com/ndelvaux/guichet/internal/middleware"
	"github.com/ndelvaux/guichet/internal/model"
)

// OrgServiceInterface は組織ハンドラーが必要とするサービスインターフェース。
type OrgServiceInterface interface {
	Create(ctx context.Context, ownerID, name string) (*model.Organization, error)
	ListMine(ctx context.Context, userID string) ([]*model.Organization, error)
	Invite(ctx context.Context, orgID, inviterID, email string) (*model.Invitation, error)
	Accept(ctx context.Context, token, userID string) (*model.Organization, error)
	RemoveMember(ctx context.Context, orgID, ownerID, targetUserID string) error
}

// OrgHandler は組織管理のHTTPハンドラー。
type OrgHandler struct {
	service OrgServiceInterface
}

// NewOrgHandler はOrgHandlerを生成する。
func NewOrgHandler(service OrgServiceInterface) *OrgHandler {
	return &OrgHandler{service: service}
}

type orgResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	OwnerID   string    `json:"owner_id"`
	CreatedAt time.Time `json:"created_at"`
}

func toOrgResponse(o *model.Organization) orgResponse {
	return orgResponse{
		ID:        o.ID,
		Name:      o.Name,
		Slug:      o.Slug,
		OwnerID:   o.OwnerID,
		CreatedAt: o.CreatedAt,
	}
}

// Create は組織の作成を処理する。
// POST /api/organisations
func (h *OrgHandler) Create(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.UserFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, model.ErrCodeInvalidCredentials, messages.MsgInvalidCredentials, "auth")
		return
	}

	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w)
		return
	}

	org, err := h.service.Create(r.Context(), user.ID, req.Name)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"organization": toOrgResponse(org),
	})
}

// List は自分が所属する組織の一覧を返す。
// GET /api/organisations
func (h *OrgHandler) List(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.UserFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, model.ErrCodeInvalidCredentials, messages.MsgInvalidCredentials, "auth")
		return
	}

	orgs, err := h.service.ListMine(r.Context(), user.ID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	res := make([]orgResponse, 0, len(orgs))
	for _, o := range orgs {
		res = append(res, toOrgResponse(o))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"organizations": res,
	})
}

// Invite はメンバー招待を処理する。組織の所有者のみ実行できる。
// POST /api/organisations/{orgID}/invitations
func (h *OrgHandler) Invite(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.UserFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, model.ErrCodeInvalidCredentials, messages.MsgInvalidCredentials, "auth")
		return
	}

	orgID := chi.URLParam(r, "orgID")

	var req struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w)
		return
	}

	// 招待トークンはメールのみで届ける。レスポンスには含めない。
	if _, err := h.service.Invite(r.Context(), orgID, user.ID, req.Email); err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message": messages.SuccessMessage("invitation-sent"),
	})
}

// Accept は招待の承諾を処理する。
// POST /api/invitations/{token}/acceptation
func (h *OrgHandler) Accept(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.UserFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, model.ErrCodeInvalidCredentials, messages.MsgInvalidCredentials, "auth")
		return
	}

	token := chi.URLParam(r, "token")

	org, err := h.service.Accept(r.Context(), token, user.ID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"organization": toOrgResponse(org),
		"message":      messages.SuccessMessage("invitation-accepted"),
	})
}

// RemoveMember はメンバーの削除を処理する。組織の所有者のみ実行できる。
// DELETE /api/organisations/{orgID}/membres/{userID}
func (h *OrgHandler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.UserFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, model.ErrCodeInvalidCredentials, messages.MsgInvalidCredentials, "auth")
		return
	}

	orgID := chi.URLParam(r, "orgID")
	targetUserID := chi.URLParam(r, "userID")

	if err := h.service.RemoveMember(r.Context(), orgID, user.ID, targetUserID); err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message": messages.SuccessMessage(""),
	})
}
