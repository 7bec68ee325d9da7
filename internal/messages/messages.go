// Package messages は内部エラーを利用者向けの固定文言へ変換する。
//
// プロセス境界を越えるすべてのエラーはこのパッケージを経由する。
// 返される文字列は事前に用意された静的な文言のみであり、元の内部メッセージ、
// スタックトレース、フレームワーク名、ファイルパス、ユーザー入力を
// 含むことは決してない。未知のエラーは生のメッセージをサーバー側ログにのみ
// 記録し、単一の汎用文言へフォールバックする。
//
// 文言の均一性はUX上の手抜きではなくセキュリティ特性（アカウント列挙と
// 情報漏洩の防止）であり、詳細を追加する「改善」をしてはならない。
package messages

import (
	"errors"
	"log/slog"
	"strings"

	"github.com/ndelvaux/guichet/internal/model"
)

// 利用者向けの固定文言。
const (
	// MsgGenericError は未知のエラーに対する唯一の汎用フォールバック文言。
	MsgGenericError = "Une erreur est survenue. Veuillez réessayer."

	// MsgInvalidCredentials は認証失敗の文言。
	MsgInvalidCredentials = "E-mail ou mot de passe incorrect."
	// MsgAccountBanned はBAN中アカウントの文言。
	MsgAccountBanned = "Ce compte est suspendu."
	// MsgEmailExists は登録時のメールアドレス重複の文言。
	MsgEmailExists = "Un compte existe déjà avec cette adresse e-mail."
	// MsgUsernameExists はユーザー名重複の文言。
	MsgUsernameExists = "Ce nom d'utilisateur est déjà utilisé."

	// MsgOTPInvalid はOTP検証失敗の文言。誤ったコード・期限切れ・
	// 試行回数超過・未知のメールアドレスのすべてで同一の文言を返す。
	MsgOTPInvalid = "Code invalide ou expiré."

	// MsgRateLimited はレート制限の文言。
	MsgRateLimited = "Trop de tentatives. Veuillez réessayer dans quelques minutes."
	// MsgServerError はネットワーク・サーバー系障害の文言。
	MsgServerError = "Le service est momentanément indisponible. Veuillez réessayer."

	// MsgResetTokenInvalid はパスワード再設定トークン失敗の文言。
	MsgResetTokenInvalid = "Ce lien de réinitialisation n'est plus valide."

	// MsgOrgSlugTaken は組織名重複の文言。
	MsgOrgSlugTaken = "Ce nom d'organisation est déjà utilisé."
	// MsgInvitationInvalid は無効な招待の文言。
	MsgInvitationInvalid = "Cette invitation n'est plus valide."
	// MsgInvitationExpired は期限切れ招待の文言。
	MsgInvitationExpired = "Cette invitation a expiré."
	// MsgAlreadyMember はメンバー重複の文言。
	MsgAlreadyMember = "Vous êtes déjà membre de cette organisation."
)

// sentinelTable はドメインのセンチネルエラーから文言への対応表。
var sentinelTable = []struct {
	err error
	msg string
}{
	{model.ErrInvalidCredentials, MsgInvalidCredentials},
	{model.ErrAccountBanned, MsgAccountBanned},
	{model.ErrEmailExists, MsgEmailExists},
	{model.ErrUsernameExists, MsgUsernameExists},
	{model.ErrOTPInvalid, MsgOTPInvalid},
	{model.ErrRateLimited, MsgRateLimited},
	{model.ErrResetTokenInvalid, MsgResetTokenInvalid},
	{model.ErrOrgSlugTaken, MsgOrgSlugTaken},
	{model.ErrInvitationInvalid, MsgInvitationInvalid},
	{model.ErrInvitationExpired, MsgInvitationExpired},
	{model.ErrAlreadyMember, MsgAlreadyMember},
}

// exactTable は上流コンポーネントの既知のメッセージ文字列から文言への完全一致表。
// センチネルエラーを提供しない外部コラボレータのエラーに対応する。
var exactTable = map[string]string{
	"Invalid email or password":      MsgInvalidCredentials,
	"Invalid credentials":            MsgInvalidCredentials,
	"invalid credentials":            MsgInvalidCredentials,
	"User already exists":            MsgEmailExists,
	"user already exists":            MsgEmailExists,
	"Username already taken":         MsgUsernameExists,
	"invalid or expired code":        MsgOTPInvalid,
	"Invalid or expired OTP":         MsgOTPInvalid,
	"verification code expired":      MsgOTPInvalid,
	"too many verification attempts": MsgOTPInvalid,
	"invalid reset token":            MsgResetTokenInvalid,
	"reset token expired":            MsgResetTokenInvalid,
	"organization slug already taken": MsgOrgSlugTaken,
	"invitation not found":            MsgInvitationInvalid,
	"invitation expired":              MsgInvitationExpired,
	"already a member":                MsgAlreadyMember,
}

// substringClasses はキーワードによる部分一致分類。完全一致表の後に評価する。
var substringClasses = []struct {
	keywords []string
	msg      string
}{
	{[]string{"rate limit", "too many requests"}, MsgRateLimited},
	{[]string{"network", "fetch", "server", "500"}, MsgServerError},
}

// MapError は内部エラーを利用者向けの固定文言へ変換する。
// 判定順序: センチネルエラー → 完全一致表 → キーワード部分一致 → 汎用フォールバック。
// フォールバック時のみ、生のメッセージをサーバー側ログに1回記録する。
// panicすることはない。
func MapError(err error) string {
	if err == nil {
		return MsgGenericError
	}

	for _, e := range sentinelTable {
		if errors.Is(err, e.err) {
			return e.msg
		}
	}

	raw := err.Error()
	if msg, ok := exactTable[raw]; ok {
		return msg
	}

	lower := strings.ToLower(raw)
	for _, class := range substringClasses {
		for _, kw := range class.keywords {
			if strings.Contains(lower, kw) {
				return class.msg
			}
		}
	}

	// 未知のエラー: 詳細はサーバー側ログのみに残す
	slog.Warn("unmapped internal error", slog.String("error", raw))
	return MsgGenericError
}

// SuccessMessage は操作種別に対応する成功文言を返す。
// 未知の種別には汎用文言を返す。副作用はない。
func SuccessMessage(kind string) string {
	switch kind {
	case "otp-sent":
		return "Un code de vérification vous a été envoyé par e-mail."
	case "otp-verified":
		return "Code vérifié."
	case "signed-in":
		return "Connexion réussie."
	case "signed-up":
		return "Votre compte a été créé. Vérifiez votre boîte mail."
	case "signed-out":
		return "Vous avez été déconnecté."
	case "password-reset":
		return "Votre mot de passe a été réinitialisé."
	case "email-verified":
		return "Votre adresse e-mail a été vérifiée."
	case "invitation-sent":
		return "L'invitation a été envoyée."
	case "invitation-accepted":
		return "Vous avez rejoint l'organisation."
	case "profile-updated":
		return "Votre profil a été mis à jour."
	default:
		return "Opération réussie."
	}
}

// LoadingMessage は操作種別に対応する進行中文言を返す。
// 未知の種別には汎用文言を返す。副作用はない。
func LoadingMessage(kind string) string {
	switch kind {
	case "signing-in":
		return "Connexion en cours…"
	case "signing-up":
		return "Création du compte…"
	case "sending-code":
		return "Envoi du code…"
	case "verifying-code":
		return "Vérification du code…"
	case "resetting-password":
		return "Réinitialisation en cours…"
	default:
		return "Chargement…"
	}
}
