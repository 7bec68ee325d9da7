package handler

import (
	"embed"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ndelvaux/guichet/internal/middleware"
	"github.com/ndelvaux/guichet/internal/model"
)

//go:embed templates/*.html
var templatesFS embed.FS

//go:embed static/*
var staticFS embed.FS

var pageTemplates = template.Must(template.ParseFS(templatesFS, "templates/*.html"))

// StaticFS は埋め込み静的ファイル（CSS・JS）のファイルシステムを返す。
func StaticFS() fs.FS {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return sub
}

// PageHandler はサーバーレンダリングされたHTMLページのハンドラー。
// アクセス制御はゲートが行うため、ここでは表示のみを担当する。
type PageHandler struct {
	appName string
}

// NewPageHandler はPageHandlerを生成する。
func NewPageHandler(appName string) *PageHandler {
	return &PageHandler{appName: appName}
}

type pageData struct {
	AppName string
	User    *model.User
	Token   string
}

func (h *PageHandler) render(w http.ResponseWriter, r *http.Request, name string, data pageData) {
	data.AppName = h.appName
	if data.User == nil {
		if user, err := middleware.UserFromContext(r.Context()); err == nil {
			data.User = user
		}
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := pageTemplates.ExecuteTemplate(w, name, data); err != nil {
		slog.Error("failed to render page",
			slog.String("template", name),
			slog.String("error", err.Error()),
		)
	}
}

// Home はトップページへのアクセスを振り分ける。
// 認証済みならダッシュボード、未認証ならログインページへリダイレクトする。
// GET /
func (h *PageHandler) Home(w http.ResponseWriter, r *http.Request) {
	if _, err := middleware.UserFromContext(r.Context()); err == nil {
		http.Redirect(w, r, "/dashboard", http.StatusFound)
		return
	}
	http.Redirect(w, r, "/connexion", http.StatusFound)
}

// SignInPage はログインページを表示する。
// GET /connexion
func (h *PageHandler) SignInPage(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "connexion.html", pageData{})
}

// SignUpPage は新規登録ページを表示する。
// GET /inscription
func (h *PageHandler) SignUpPage(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "inscription.html", pageData{})
}

// ForgotPasswordPage はパスワード再設定ページを表示する。
// GET /mot-de-passe-oublie
func (h *PageHandler) ForgotPasswordPage(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "mot-de-passe-oublie.html", pageData{})
}

// DashboardPage はダッシュボードを表示する。
// GET /dashboard
func (h *PageHandler) DashboardPage(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "dashboard.html", pageData{})
}

// ProfilePage はプロフィールページを表示する。
// GET /profil
func (h *PageHandler) ProfilePage(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "profil.html", pageData{})
}

// OrganizationsPage は組織一覧ページを表示する。
// GET /organisations
func (h *PageHandler) OrganizationsPage(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "organisations.html", pageData{})
}

// AdminPage は管理画面を表示する。
// GET /admin
func (h *PageHandler) AdminPage(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "admin.html", pageData{})
}

// InvitationPage は招待承諾ページを表示する。
// 無効なトークンの判定はAPI側で行うため、ここではページのみを返す。
// GET /invitations/{token}
func (h *PageHandler) InvitationPage(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "invitation.html", pageData{
		Token: chi.URLParam(r, "token"),
	})
}
