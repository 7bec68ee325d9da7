package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/ndelvaux/guichet/internal/metrics"
	"github.com/ndelvaux/guichet/internal/model"
)

// SessionResolver はセッションIDから認証済みユーザーを解決するインターフェース。
// auth.Backendの部分集合として定義する。
type SessionResolver interface {
	ResolveSession(ctx context.Context, sessionID string) (*model.User, error)
}

// GateConfig は認証ゲートのルート分類を保持する。
type GateConfig struct {
	// AuthPaths は未認証者向けの認証ページ（完全一致）。
	// 認証済みユーザーはLandingPathへリダイレクトされる。
	AuthPaths []string
	// PrivatePrefixes は認証必須のパスプレフィックス。
	PrivatePrefixes []string
	// AdminPrefixes は管理者のみアクセス可能なパスプレフィックス。
	AdminPrefixes []string
	// SignInPath は未認証者のリダイレクト先。
	SignInPath string
	// LandingPath は認証済みユーザーが認証ページに来た場合のリダイレクト先。
	LandingPath string
}

// DefaultGateConfig は既定のルート分類を返す。
func DefaultGateConfig() GateConfig {
	return GateConfig{
		AuthPaths:       []string{"/connexion", "/inscription", "/mot-de-passe-oublie"},
		PrivatePrefixes: []string{"/dashboard", "/profil", "/account", "/organisations", "/settings"},
		AdminPrefixes:   []string{"/admin", "/api/admin"},
		SignInPath:      "/connexion",
		LandingPath:     "/dashboard",
	}
}

// Gate はセッション解決とルート分類によるアクセス制御を行うミドルウェア。
type Gate struct {
	resolver SessionResolver
	config   GateConfig
	metrics  metrics.MetricsCollector
}

// NewGate はGateを生成する。collectorはnilでもよい。
func NewGate(resolver SessionResolver, config GateConfig, collector metrics.MetricsCollector) *Gate {
	return &Gate{
		resolver: resolver,
		config:   config,
		metrics:  collector,
	}
}

// Middleware はゲート処理を行うミドルウェアを返す。
//
// 1. Cookieのセッションを解決する。解決の失敗（期限切れ・ストア障害を含む）は
//    未認証として扱い、エラーレスポンスにはしない。
// 2. パスを分類し、認証ページ・認証必須・管理者専用のそれぞれの規則を適用する。
// 3. 認証済みユーザーをコンテキストに注入する。
func (g *Gate) Middleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := g.resolveUser(r)
			if user != nil {
				storeResolvedUser(r.Context(), user)
				r = r.WithContext(ContextWithUser(r.Context(), user))
			}

			path := r.URL.Path

			// 認証ページ: 認証済みならランディングへ
			if g.isAuthPath(path) {
				if user != nil {
					g.recordRedirect()
					http.Redirect(w, r, g.config.LandingPath, http.StatusFound)
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			// 管理者専用: 未認証はサインインへ、非管理者は403（本文なし）
			if g.hasPrefix(path, g.config.AdminPrefixes) {
				if user == nil {
					g.redirectToSignIn(w, r)
					return
				}
				if !user.IsAdmin() {
					if g.metrics != nil {
						g.metrics.RecordGateForbidden()
					}
					w.WriteHeader(http.StatusForbidden)
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			// 認証必須: 未認証はサインインへ
			if g.hasPrefix(path, g.config.PrivatePrefixes) {
				if user == nil {
					g.redirectToSignIn(w, r)
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			// 公開ルート
			next.ServeHTTP(w, r)
		})
	}
}

// resolveUser はCookieからユーザーを解決する。失敗はすべて未認証として扱う。
func (g *Gate) resolveUser(r *http.Request) *model.User {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil || cookie.Value == "" {
		return nil
	}

	user, err := g.resolver.ResolveSession(r.Context(), cookie.Value)
	if err != nil {
		slog.Error("failed to resolve session",
			slog.String("error", err.Error()),
		)
		return nil
	}

	return user
}

func (g *Gate) isAuthPath(path string) bool {
	for _, p := range g.config.AuthPaths {
		if path == p {
			return true
		}
	}
	return false
}

func (g *Gate) hasPrefix(path string, prefixes []string) bool {
	for _, prefix := range prefixes {
		if path == prefix || strings.HasPrefix(path, prefix+"/") {
			return true
		}
	}
	return false
}

// redirectToSignIn は元のパスをredirectパラメータに載せてサインインページへ飛ばす。
func (g *Gate) redirectToSignIn(w http.ResponseWriter, r *http.Request) {
	g.recordRedirect()
	target := g.config.SignInPath + "?redirect=" + url.QueryEscape(r.URL.Path)
	http.Redirect(w, r, target, http.StatusFound)
}

func (g *Gate) recordRedirect() {
	if g.metrics != nil {
		g.metrics.RecordGateRedirect()
	}
}
