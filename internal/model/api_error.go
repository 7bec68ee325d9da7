package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。利用者向けの文言はフランス語。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, ratelimit, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeInvalidCredentials = "INVALID_CREDENTIALS"
	ErrCodeAccountBanned      = "ACCOUNT_BANNED"
	ErrCodeValidationFailed   = "VALIDATION_FAILED"
	ErrCodeOTPInvalid         = "OTP_INVALID"
	ErrCodeRateLimited        = "RATE_LIMITED"
	ErrCodeForbidden          = "FORBIDDEN"
	ErrCodeInternal           = "INTERNAL_ERROR"
)

// NewValidationFailedError は入力検証エラーを生成する。
// Messageには違反した規則の説明文のみが入り、入力値はエコーバックしない。
func NewValidationFailedError(message string) *APIError {
	return &APIError{
		Code:     ErrCodeValidationFailed,
		Message:  message,
		Category: "validation",
		Action:   "Corrigez les champs indiqués puis réessayez.",
	}
}

// NewInternalError は内部エラーを生成する。詳細はログのみに記録する。
func NewInternalError() *APIError {
	return &APIError{
		Code:     ErrCodeInternal,
		Message:  "Une erreur est survenue. Veuillez réessayer.",
		Category: "system",
		Action:   "Veuillez patienter quelques instants puis réessayer.",
	}
}
