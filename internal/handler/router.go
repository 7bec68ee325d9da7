package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/ndelvaux/guichet/internal/metrics"
	"github.com/ndelvaux/guichet/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Production      bool
	Logger          *slog.Logger
	SessionResolver middleware.SessionResolver
	RateLimiter     *middleware.RateLimiter
	CSRFConfig      middleware.CSRFConfig
	Metrics         metrics.MetricsCollector
	MetricsGatherer prometheus.Gatherer

	// ハンドラー依存
	AppName        string
	AuthService    AuthServiceInterface
	AuthConfig     AuthHandlerConfig
	AccountService AccountServiceInterface
	OrgService     OrgServiceInterface
	AdminService   AdminServiceInterface
}

// NewRouter は全ルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → SecurityHeaders → Logging → RateLimit → CSRF → Gate
//
// SecurityHeadersはGateより外側に置く。Gateがリダイレクトや403で早期リターン
// した場合でも、セキュリティヘッダーが必ず付与される。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	gate := middleware.NewGate(deps.SessionResolver, middleware.DefaultGateConfig(), deps.Metrics)

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware(deps.Production))
	r.Use(middleware.NewLoggingMiddleware(deps.Logger, deps.Metrics))
	r.Use(deps.RateLimiter.Middleware())
	r.Use(middleware.NewCSRFMiddleware(deps.CSRFConfig))
	r.Use(gate.Middleware())

	authHandler := NewAuthHandler(deps.AuthService, deps.AuthConfig)
	accountHandler := NewAccountHandler(deps.AccountService)
	orgHandler := NewOrgHandler(deps.OrgService)
	adminHandler := NewAdminHandler(deps.AdminService)
	pageHandler := NewPageHandler(deps.AppName)

	// --- 運用エンドポイント ---

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", metrics.Handler(deps.MetricsGatherer))

	// --- 静的ファイル ---

	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(StaticFS()))))

	// --- ページ ---

	r.Get("/", pageHandler.Home)
	r.Get("/connexion", pageHandler.SignInPage)
	r.Get("/inscription", pageHandler.SignUpPage)
	r.Get("/mot-de-passe-oublie", pageHandler.ForgotPasswordPage)
	r.Get("/dashboard", pageHandler.DashboardPage)
	r.Get("/profil", pageHandler.ProfilePage)
	r.Get("/organisations", pageHandler.OrganizationsPage)
	r.Get("/admin", pageHandler.AdminPage)
	r.Get("/invitations/{token}", pageHandler.InvitationPage)

	// --- 認証API ---

	r.Route("/api/auth", func(r chi.Router) {
		r.Post("/inscription", authHandler.SignUp)
		r.Post("/connexion", authHandler.SignIn)
		r.Post("/deconnexion", authHandler.SignOut)
		r.Get("/moi", authHandler.Me)

		r.Route("/otp", func(r chi.Router) {
			r.Post("/demande", authHandler.RequestOTP)
			r.Post("/verification", authHandler.VerifyOTP)
		})

		r.Post("/mot-de-passe/reinitialisation", authHandler.ResetPassword)
	})

	// --- アカウント管理API ---

	r.Route("/api/account", func(r chi.Router) {
		r.Patch("/nom-utilisateur", accountHandler.UpdateUsername)
		r.Post("/mot-de-passe", accountHandler.ChangePassword)
		r.Delete("/", accountHandler.Withdraw)
	})

	// --- 組織管理API ---

	r.Route("/api/organisations", func(r chi.Router) {
		r.Post("/", orgHandler.Create)
		r.Get("/", orgHandler.List)

		r.Route("/{orgID}", func(r chi.Router) {
			r.Post("/invitations", orgHandler.Invite)
			r.Delete("/membres/{userID}", orgHandler.RemoveMember)
		})
	})
	r.Post("/api/invitations/{token}/acceptation", orgHandler.Accept)

	// --- 管理者API ---

	r.Route("/api/admin/utilisateurs", func(r chi.Router) {
		r.Get("/", adminHandler.ListUsers)

		r.Route("/{userID}", func(r chi.Router) {
			r.Post("/ban", adminHandler.BanUser)
			r.Delete("/ban", adminHandler.UnbanUser)
		})
	})

	return r
}
