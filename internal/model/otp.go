package model

import "time"

// OTPPurpose はワンタイムコードの用途を表す。
// コードは単一用途であり、別の用途での検証には使用できない。
type OTPPurpose string

const (
	// PurposeSignIn はメールOTPによるログイン用途。
	PurposeSignIn OTPPurpose = "sign-in"
	// PurposeEmailVerification はメールアドレス確認用途。
	PurposeEmailVerification OTPPurpose = "email-verification"
	// PurposePasswordReset はパスワード再設定用途。
	PurposePasswordReset OTPPurpose = "password-reset"
)

// ValidOTPPurpose は文字列が既知のOTP用途かどうかを判定する。
func ValidOTPPurpose(s string) bool {
	switch OTPPurpose(s) {
	case PurposeSignIn, PurposeEmailVerification, PurposePasswordReset:
		return true
	default:
		return false
	}
}

// OTPChallenge は発行済みワンタイムコードを表す。
// 平文コードは保存せず、SHA-256ハッシュのみを保持する。
// 同一(email, purpose)に対して新しいコードを発行すると既存のコードは置き換えられる。
type OTPChallenge struct {
	ID        string
	Email     string
	CodeHash  string
	Purpose   OTPPurpose
	Attempts  int
	ExpiresAt time.Time
	CreatedAt time.Time
}

// OTPMaxAttempts は1つのコードに対して許容される検証失敗回数。
// 3回目の失敗で期限内であってもコードは無効化される。
const OTPMaxAttempts = 3

// OTPTTL はコード発行から失効までの時間。
const OTPTTL = 10 * time.Minute
