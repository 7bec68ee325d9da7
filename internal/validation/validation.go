// Package validation は認証入力（メールアドレス、ユーザー名、パスワード、OTPコード）の
// 形式検証を提供する。すべて純粋関数であり、I/Oや状態を持たず、エラーも返さない。
// 違反メッセージは固定のルール説明文のみで、入力値をエコーバックすることはない。
package validation

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// maxEmailLength はRFC 5321のパス長制限に由来するメールアドレスの最大長。
const maxEmailLength = 254

// emailPattern はRFC 5321志向のメールアドレス構文。
// ローカル部の許容文字クラス、単一の@、ハイフンで始まらない・終わらない
// ドット区切りのドメインラベルを検証する。
// ドットを含まない単一ラベルのドメイン（例: user@localhost）は文法上有効として
// 受理する。これは意図的な寛容さであり、仕様の一部である。
var emailPattern = regexp.MustCompile(
	`^[A-Za-z0-9.!#$%&'*+/=?^_` + "`" + `{|}~-]+@[A-Za-z0-9](?:[A-Za-z0-9-]*[A-Za-z0-9])?(?:\.[A-Za-z0-9](?:[A-Za-z0-9-]*[A-Za-z0-9])?)*$`,
)

// ViolationEmailInvalid はメールアドレス形式違反のメッセージ。
const ViolationEmailInvalid = "L'adresse e-mail n'est pas valide."

// IsValidEmail はメールアドレスの構文と長さ（254文字以下）を検証する。
func IsValidEmail(s string) bool {
	if s == "" || len(s) > maxEmailLength {
		return false
	}
	return emailPattern.MatchString(s)
}

// passwordSymbols はパスワードに要求される記号の固定セット。
const passwordSymbols = "!\"#$%&'()*+,-./:;<=>?@[\\]^_`{|}~"

// commonPasswords は登録を拒否するよく使われるパスワードの小規模な固定リスト。
// 比較は大文字小文字を区別しない。
var commonPasswords = []string{
	"password",
	"password123",
	"123456",
	"12345678",
	"123456789",
	"qwerty",
	"azerty",
	"admin",
	"motdepasse",
	"soleil",
	"bonjour",
	"letmein",
	"welcome",
	"111111",
	"abc123",
}

// パスワード規則の違反メッセージ。静的な説明文のみで入力値は含まない。
const (
	ViolationPasswordTooShort = "Le mot de passe doit contenir au moins 8 caractères."
	ViolationPasswordTooLong  = "Le mot de passe ne doit pas dépasser 128 caractères."
	ViolationPasswordLower    = "Le mot de passe doit contenir au moins une lettre minuscule."
	ViolationPasswordUpper    = "Le mot de passe doit contenir au moins une lettre majuscule."
	ViolationPasswordDigit    = "Le mot de passe doit contenir au moins un chiffre."
	ViolationPasswordSymbol   = "Le mot de passe doit contenir au moins un caractère spécial."
	ViolationPasswordCommon   = "Ce mot de passe est trop courant."
)

// Result は検証結果を表す。Violationsには違反したすべての規則の
// 説明文が検査順に格納される（途中で打ち切らない）。
type Result struct {
	Valid      bool
	Violations []string
}

// ValidatePassword はパスワード強度を検証する。
// 各規則は独立に検査され、違反はすべてまとめて報告される。
// 呼び出し側はすべての違反を一度に表示できる。
func ValidatePassword(s string) Result {
	var violations []string

	// 長さはルーン数で数える。アクセント付き文字を含むパスワードが
	// バイト長で水増しされてはならない
	length := utf8.RuneCountInString(s)
	if length < 8 {
		violations = append(violations, ViolationPasswordTooShort)
	}
	if length > 128 {
		violations = append(violations, ViolationPasswordTooLong)
	}

	var hasLower, hasUpper, hasDigit, hasSymbol bool
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z':
			hasLower = true
		case r >= 'A' && r <= 'Z':
			hasUpper = true
		case r >= '0' && r <= '9':
			hasDigit = true
		case strings.ContainsRune(passwordSymbols, r):
			hasSymbol = true
		}
	}
	if !hasLower {
		violations = append(violations, ViolationPasswordLower)
	}
	if !hasUpper {
		violations = append(violations, ViolationPasswordUpper)
	}
	if !hasDigit {
		violations = append(violations, ViolationPasswordDigit)
	}
	if !hasSymbol {
		violations = append(violations, ViolationPasswordSymbol)
	}

	lower := strings.ToLower(s)
	for _, common := range commonPasswords {
		if lower == common {
			violations = append(violations, ViolationPasswordCommon)
			break
		}
	}

	return Result{Valid: len(violations) == 0, Violations: violations}
}

// reservedUsernames は使用を禁止する予約語のリスト。比較は大文字小文字を区別しない。
var reservedUsernames = []string{
	"admin",
	"administrator",
	"administrateur",
	"root",
	"api",
	"www",
	"mail",
	"ftp",
	"support",
	"contact",
	"aide",
	"securite",
	"system",
	"moderateur",
	"guichet",
}

// ユーザー名規則の違反メッセージ。
const (
	ViolationUsernameLength   = "Le nom d'utilisateur doit contenir entre 3 et 20 caractères."
	ViolationUsernameCharset  = "Le nom d'utilisateur ne peut contenir que des lettres, chiffres, tirets et tirets bas."
	ViolationUsernameEdge     = "Le nom d'utilisateur ne peut pas commencer ni se terminer par un tiret ou un tiret bas."
	ViolationUsernameReserved = "Ce nom d'utilisateur est réservé."
)

var usernameCharset = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// ValidateUsername はユーザー名を検証する。
// 長さ3〜20文字、英数字とハイフン・アンダースコアのみ、
// 先頭・末尾の記号禁止、予約語との大文字小文字を区別しない一致を禁止する。
func ValidateUsername(s string) Result {
	var violations []string

	if length := utf8.RuneCountInString(s); length < 3 || length > 20 {
		violations = append(violations, ViolationUsernameLength)
	}
	if s != "" && !usernameCharset.MatchString(s) {
		violations = append(violations, ViolationUsernameCharset)
	}
	if s != "" {
		first, last := s[0], s[len(s)-1]
		if first == '_' || first == '-' || last == '_' || last == '-' {
			violations = append(violations, ViolationUsernameEdge)
		}
	}

	lower := strings.ToLower(s)
	for _, reserved := range reservedUsernames {
		if lower == reserved {
			violations = append(violations, ViolationUsernameReserved)
			break
		}
	}

	return Result{Valid: len(violations) == 0, Violations: violations}
}

// ViolationPurposeInvalid はワンタイムコード用途の指定が不正な場合のメッセージ。
const ViolationPurposeInvalid = "Le type de demande n'est pas valide."

// IsValidOTP はワンタイムコードの形式（区切りなしのASCII数字ちょうど6桁）を検証する。
func IsValidOTP(s string) bool {
	if len(s) != 6 {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
