// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"fmt"

	"github.com/ndelvaux/guichet/internal/model"
)

// SessionCookieName はセッションIDを保持するHTTP Only Cookieの名前。
const SessionCookieName = "guichet_session"

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

// userContextKey はリクエストコンテキストに認証済みユーザーを格納するためのキー。
var userContextKey = contextKey("user")

// UserFromContext はリクエストコンテキストから認証済みユーザーを取得する。
// ゲートミドルウェアを通過した認証済みリクエストでのみ有効。
func UserFromContext(ctx context.Context) (*model.User, error) {
	user, ok := ctx.Value(userContextKey).(*model.User)
	if !ok || user == nil {
		return nil, fmt.Errorf("user not found in context")
	}
	return user, nil
}

// ContextWithUser はコンテキストに認証済みユーザーを注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithUser(ctx context.Context, user *model.User) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

// resolvedUserHolder はLoggingとGateの間で解決済みユーザーを受け渡す入れ物。
// LoggingはGateより先に実行されるため、派生コンテキストのユーザーを直接は
// 参照できない。Loggingが設置した入れ物に、後段のGateが解決結果を書き込む。
type resolvedUserHolder struct {
	user *model.User
}

var resolvedUserHolderKey = contextKey("resolved_user_holder")

// contextWithResolvedUserHolder は入れ物を設置したコンテキストと入れ物を返す。
func contextWithResolvedUserHolder(ctx context.Context) (context.Context, *resolvedUserHolder) {
	h := &resolvedUserHolder{}
	return context.WithValue(ctx, resolvedUserHolderKey, h), h
}

// storeResolvedUser はコンテキストに入れ物があれば解決済みユーザーを書き込む。
func storeResolvedUser(ctx context.Context, user *model.User) {
	if h, ok := ctx.Value(resolvedUserHolderKey).(*resolvedUserHolder); ok {
		h.user = user
	}
}
