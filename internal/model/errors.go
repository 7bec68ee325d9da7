package model

import "errors"

// ドメイン内部で用いるセンチネルエラー。
// クライアントへ返す文言への変換はmessagesパッケージが一元的に行い、
// これらのエラー文字列自体がレスポンスに含まれることはない。
var (
	// ErrInvalidCredentials はメールアドレスまたはパスワードの不一致を表す。
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountBanned はBAN中のアカウントによるログイン試行を表す。
	ErrAccountBanned = errors.New("account banned")
	// ErrEmailExists は登録済みメールアドレスでの新規登録を表す。
	ErrEmailExists = errors.New("email already registered")
	// ErrUsernameExists は使用中ユーザー名での登録・変更を表す。
	ErrUsernameExists = errors.New("username already taken")
	// ErrUserNotFound はユーザーが存在しないことを表す。
	ErrUserNotFound = errors.New("user not found")
	// ErrSessionNotFound はセッションが存在しないか期限切れであることを表す。
	ErrSessionNotFound = errors.New("session not found")

	// ErrOTPInvalid はワンタイムコードの検証失敗を表す。
	// 誤ったコード・期限切れ・試行回数超過・未知のメールアドレスの
	// いずれであっても同一のエラーとし、呼び出し側から原因を区別できないようにする。
	ErrOTPInvalid = errors.New("invalid or expired code")

	// ErrRateLimited はレート制限による拒否を表す。
	ErrRateLimited = errors.New("rate limited")

	// ErrResetTokenInvalid はパスワード再設定トークンの検証失敗を表す。
	ErrResetTokenInvalid = errors.New("password reset token invalid")

	// ErrOrgSlugTaken は組織スラッグの重複を表す。
	ErrOrgSlugTaken = errors.New("organization slug already taken")
	// ErrInvitationInvalid は招待トークンが存在しないか承諾済みであることを表す。
	ErrInvitationInvalid = errors.New("invitation invalid")
	// ErrInvitationExpired は招待トークンの期限切れを表す。
	ErrInvitationExpired = errors.New("invitation expired")
	// ErrAlreadyMember は既に組織のメンバーであることを表す。
	ErrAlreadyMember = errors.New("already a member")
	// ErrNotOrgOwner は組織の所有者でないユーザーによる管理操作を表す。
	ErrNotOrgOwner = errors.New("not organization owner")
)
