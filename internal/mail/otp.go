package mail

import (
	"context"
	"fmt"

	"github.com/ndelvaux/guichet/internal/model"
	"github.com/ndelvaux/guichet/internal/security"
)

// 用途別の件名。利用者に表示される文言はすべてフランス語。
var otpSubjects = map[model.OTPPurpose]string{
	model.PurposeSignIn:            "Votre code de connexion",
	model.PurposeEmailVerification: "Confirmez votre adresse e-mail",
	model.PurposePasswordReset:     "Réinitialisation de votre mot de passe",
}

var otpIntros = map[model.OTPPurpose]string{
	model.PurposeSignIn:            "Utilisez ce code pour vous connecter :",
	model.PurposeEmailVerification: "Utilisez ce code pour confirmer votre adresse e-mail :",
	model.PurposePasswordReset:     "Utilisez ce code pour réinitialiser votre mot de passe :",
}

// OTPMailer はワンタイムコードメールを組み立てて送信する。
type OTPMailer struct {
	sender  Sender
	appName string
}

// NewOTPMailer はOTPMailerを生成する。
func NewOTPMailer(sender Sender, appName string) *OTPMailer {
	return &OTPMailer{sender: sender, appName: appName}
}

// SendOTP はワンタイムコードを含むメールを送信する。
func (m *OTPMailer) SendOTP(ctx context.Context, to, code string, purpose model.OTPPurpose) error {
	subject, ok := otpSubjects[purpose]
	if !ok {
		return fmt.Errorf("unknown otp purpose: %s", purpose)
	}

	html := fmt.Sprintf(
		`<p>%s</p><p style="font-size:24px;font-weight:bold;letter-spacing:4px;">%s</p>`+
			`<p>Ce code expire dans 10 minutes. Si vous n'êtes pas à l'origine de cette demande, ignorez ce message.</p>`,
		security.EscapeHTML(otpIntros[purpose]),
		security.EscapeHTML(code),
	)

	return m.sender.Send(ctx, Message{
		To:      to,
		Subject: subject,
		HTML:    html,
	})
}

// SendInvitation は組織への招待メールを送信する。
// リンクのトークンはURLに埋め込まれるため、組織名のみエスケープする。
// 件名に使う組織名は制御文字を除去した上でヘッダーに載せる。
func (m *OTPMailer) SendInvitation(ctx context.Context, to, orgName, inviteURL string) error {
	html := fmt.Sprintf(
		`<p>Vous avez été invité à rejoindre l'organisation « %s » sur %s.</p>`+
			`<p><a href="%s">Accepter l'invitation</a></p>`+
			`<p>Cette invitation expire dans 72 heures.</p>`,
		security.EscapeHTML(orgName),
		security.EscapeHTML(m.appName),
		inviteURL,
	)

	return m.sender.Send(ctx, Message{
		To:      to,
		Subject: sanitizeHeaderValue(fmt.Sprintf("Invitation à rejoindre %s", orgName)),
		HTML:    html,
	})
}
