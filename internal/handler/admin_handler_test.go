package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ndelvaux/guichet/internal/middleware"
	"github.com/ndelvaux/guichet/internal/model"
)

// --- モック定義 ---

type mockAdminService struct {
	listUsersFunc func(ctx context.Context, limit, offset int) ([]*model.User, error)
	banUserFunc   func(ctx context.Context, adminID, targetID, reason string, expires *time.Time) error
	unbanUserFunc func(ctx context.Context, adminID, targetID string) error
}

func (m *mockAdminService) ListUsers(ctx context.Context, limit, offset int) ([]*model.User, error) {
	return m.listUsersFunc(ctx, limit, offset)
}

func (m *mockAdminService) BanUser(ctx context.Context, adminID, targetID, reason string, expires *time.Time) error {
	return m.banUserFunc(ctx, adminID, targetID, reason, expires)
}

func (m *mockAdminService) UnbanUser(ctx context.Context, adminID, targetID string) error {
	return m.unbanUserFunc(ctx, adminID, targetID)
}

func adminRequest(method, target, body string) *http.Request {
	req := authedRequest(method, target, body)
	return req.WithContext(middleware.ContextWithUser(req.Context(),
		&model.User{ID: "admin-1", Email: "admin@exemple.fr", Username: "admin", Role: model.RoleAdmin}))
}

func TestAdminHandlerListUsers(t *testing.T) {
	t.Run("クエリパラメータが伝搬される", func(t *testing.T) {
		var gotLimit, gotOffset int
		service := &mockAdminService{
			listUsersFunc: func(_ context.Context, limit, offset int) ([]*model.User, error) {
				gotLimit = limit
				gotOffset = offset
				return []*model.User{
					{ID: "user-1", Email: "alice@exemple.fr", Username: "alice", Role: model.RoleUser},
				}, nil
			},
		}
		h := NewAdminHandler(service)

		w := httptest.NewRecorder()
		h.ListUsers(w, adminRequest(http.MethodGet, "/api/admin/utilisateurs?limit=25&offset=50", ""))

		res := w.Result()
		defer res.Body.Close()

		if res.StatusCode != http.StatusOK {
			t.Errorf("status = %d, want %d", res.StatusCode, http.StatusOK)
		}
		if gotLimit != 25 || gotOffset != 50 {
			t.Errorf("limit = %d, offset = %d", gotLimit, gotOffset)
		}
		body := decodeBody(t, res)
		users, _ := body["users"].([]any)
		if len(users) != 1 {
			t.Fatalf("len(users) = %d, want 1", len(users))
		}
		user, _ := users[0].(map[string]any)
		if _, exists := user["password_hash"]; exists {
			t.Error("パスワードハッシュがレスポンスに含まれてはならない")
		}
	})

	t.Run("BAN情報が含まれる", func(t *testing.T) {
		expires := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
		service := &mockAdminService{
			listUsersFunc: func(_ context.Context, _, _ int) ([]*model.User, error) {
				return []*model.User{
					{ID: "user-2", Email: "banni@exemple.fr", Username: "banni",
						Role: model.RoleUser, Banned: true, BanReason: "spam", BanExpires: &expires},
				}, nil
			},
		}
		h := NewAdminHandler(service)

		w := httptest.NewRecorder()
		h.ListUsers(w, adminRequest(http.MethodGet, "/api/admin/utilisateurs", ""))

		res := w.Result()
		defer res.Body.Close()

		body := decodeBody(t, res)
		users, _ := body["users"].([]any)
		user, _ := users[0].(map[string]any)
		if user["banned"] != true {
			t.Error("bannedがtrueであるべき")
		}
		if user["ban_reason"] != "spam" {
			t.Errorf("ban_reason = %v, want spam", user["ban_reason"])
		}
	})
}

func TestAdminHandlerBanUser(t *testing.T) {
	t.Run("BAN成功で200を返す", func(t *testing.T) {
		service := &mockAdminService{
			banUserFunc: func(_ context.Context, adminID, targetID, reason string, expires *time.Time) error {
				if adminID != "admin-1" || targetID != "user-2" || reason != "spam" {
					t.Errorf("引数が一致しない: %q %q %q", adminID, targetID, reason)
				}
				if expires != nil {
					t.Error("expiresはnilであるべき")
				}
				return nil
			},
		}
		h := NewAdminHandler(service)

		req := withURLParams(
			adminRequest(http.MethodPost, "/api/admin/utilisateurs/user-2/ban", `{"reason":"spam"}`),
			map[string]string{"userID": "user-2"},
		)
		w := httptest.NewRecorder()
		h.BanUser(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
		}
	})

	t.Run("期限付きBANのexpiresが伝搬される", func(t *testing.T) {
		var gotExpires *time.Time
		service := &mockAdminService{
			banUserFunc: func(_ context.Context, _, _, _ string, expires *time.Time) error {
				gotExpires = expires
				return nil
			},
		}
		h := NewAdminHandler(service)

		req := withURLParams(
			adminRequest(http.MethodPost, "/api/admin/utilisateurs/user-2/ban",
				`{"reason":"spam","expires":"2026-01-01T00:00:00Z"}`),
			map[string]string{"userID": "user-2"},
		)
		w := httptest.NewRecorder()
		h.BanUser(w, req)

		if gotExpires == nil {
			t.Fatal("expiresが伝搬されるべき")
		}
		want := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
		if !gotExpires.Equal(want) {
			t.Errorf("expires = %v, want %v", gotExpires, want)
		}
	})

	t.Run("存在しないユーザーで404を返す", func(t *testing.T) {
		service := &mockAdminService{
			banUserFunc: func(_ context.Context, _, _, _ string, _ *time.Time) error {
				return model.ErrUserNotFound
			},
		}
		h := NewAdminHandler(service)

		req := withURLParams(
			adminRequest(http.MethodPost, "/api/admin/utilisateurs/ghost/ban", `{"reason":"x"}`),
			map[string]string{"userID": "ghost"},
		)
		w := httptest.NewRecorder()
		h.BanUser(w, req)

		if w.Code != http.StatusNotFound {
			t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
		}
	})
}

func TestAdminHandlerUnbanUser(t *testing.T) {
	t.Run("解除成功で200を返す", func(t *testing.T) {
		var gotTarget string
		service := &mockAdminService{
			unbanUserFunc: func(_ context.Context, adminID, targetID string) error {
				if adminID != "admin-1" {
					t.Errorf("adminID = %q, want admin-1", adminID)
				}
				gotTarget = targetID
				return nil
			},
		}
		h := NewAdminHandler(service)

		req := withURLParams(
			adminRequest(http.MethodDelete, "/api/admin/utilisateurs/user-2/ban", ""),
			map[string]string{"userID": "user-2"},
		)
		w := httptest.NewRecorder()
		h.UnbanUser(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
		}
		if gotTarget != "user-2" {
			t.Errorf("target = %q, want user-2", gotTarget)
		}
	})
}
