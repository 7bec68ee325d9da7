// Package auth はパスワード認証、ワンタイムコード認証、セッション管理を提供する。
package auth

import (
	"context"

	"github.com/ndelvaux/guichet/internal/model"
)

// IssuedOTP はワンタイムコードの発行結果を表す。
// Codeは平文のコードで、メール送信にのみ使用する。永続化されるのはハッシュのみ。
// KnownUserがfalseの場合、コードは生成されたが保存されておらず、
// メールも送信してはならない（列挙攻撃対策のダミー発行）。
type IssuedOTP struct {
	Code      string
	KnownUser bool
}

// Backend は認証の永続化ポリシーのインターフェース。
// サービス層はこの抽象を通じてユーザー・セッション・コードを操作する。
type Backend interface {
	// ResolveSession はセッションIDから現在のユーザーを解決する。
	// セッションが存在しない・期限切れの場合は(nil, nil)を返す。
	// ストア障害の場合のみ非nilのエラーを返す。
	ResolveSession(ctx context.Context, sessionID string) (*model.User, error)

	// SignInWithPassword はメールアドレスとパスワードでユーザーを認証する。
	// 未登録メール・パスワード不一致はどちらもErrInvalidCredentialsを返す。
	// BAN中のユーザーはErrAccountBannedを返す。
	SignInWithPassword(ctx context.Context, email, password string) (*model.User, error)

	// Register は新規ユーザーを作成する。メール・ユーザー名の重複は
	// ErrEmailExists / ErrUsernameExistsを返す。
	Register(ctx context.Context, email, username, password string) (*model.User, error)

	// CreateSession はユーザーの新しいセッションを発行する。
	CreateSession(ctx context.Context, userID string) (*model.Session, error)

	// SignOut はセッションを破棄する。既に存在しない場合もエラーにしない。
	SignOut(ctx context.Context, sessionID string) error

	// IssueOTP は(email, purpose)に対するワンタイムコードを発行する。
	// 既存の未使用コードは新しいコードで置き換えられる。
	// 未登録メールの場合もコード生成まで同一の処理を行い、保存せずに返す。
	IssueOTP(ctx context.Context, email string, purpose model.OTPPurpose) (*IssuedOTP, error)

	// VerifyOTP はワンタイムコードを検証し、成功時にユーザーを返す。
	// コード不存在・期限切れ・不一致・試行超過はすべてErrOTPInvalidを返す。
	VerifyOTP(ctx context.Context, email string, purpose model.OTPPurpose, code string) (*model.User, error)

	// ResetPassword はワンタイムコード検証済みのユーザーのパスワードを更新し、
	// 既存の全セッションを無効化する。
	ResetPassword(ctx context.Context, userID, newPassword string) error
}
