package auth

import (
	"context"
	"log/slog"
	"strings"

	"github.com/ndelvaux/guichet/internal/model"
	"github.com/ndelvaux/guichet/internal/validation"
)

// RequestOTP は(email, purpose)に対するワンタイムコードを発行しメールで送信する。
//
// 未登録メールの場合もエラーを返さない。コード生成までは同一の処理を行い、
// 保存とメール送信だけをスキップするため、呼び出し側の応答は登録済みの場合と
// 区別できない。メール送信は応答時間を揃えるため非同期で行う。
func (s *Service) RequestOTP(ctx context.Context, email string, purpose model.OTPPurpose, ip string) error {
	if !validation.IsValidEmail(email) {
		return &ValidationError{Violations: []string{validation.ViolationEmailInvalid}}
	}
	if !model.ValidOTPPurpose(string(purpose)) {
		return &ValidationError{Violations: []string{validation.ViolationPurposeInvalid}}
	}

	emailKey := "otp:" + string(purpose) + ":" + strings.ToLower(email)
	ipKey := "otp-ip:" + ip

	if !s.limiter.Check(ctx, emailKey, s.config.OTPRequestMax, s.config.OTPRequestWindow) ||
		!s.limiter.Check(ctx, ipKey, s.config.OTPRequestMax, s.config.OTPRequestWindow) {
		s.recordRateLimitDenied("otp-request")
		return model.ErrRateLimited
	}

	return s.issueAndSendOTP(ctx, email, purpose)
}

// VerifyOTP はワンタイムコードを検証する。sign-in用途の場合は
// 成功時にセッションを発行する。
// 失敗理由（不存在・期限切れ・不一致・試行超過）はすべてErrOTPInvalidに
// 集約されており、ここでも区別しない。
func (s *Service) VerifyOTP(ctx context.Context, email string, purpose model.OTPPurpose, code, ip string) (*model.User, *model.Session, error) {
	// 形式が不正なコードはストアに問い合わせるまでもなく無効
	if !validation.IsValidEmail(email) || !validation.IsValidOTP(code) {
		s.recordOTPRejected(purpose)
		return nil, nil, model.ErrOTPInvalid
	}

	ipKey := "otp-verify-ip:" + ip
	if !s.limiter.Check(ctx, ipKey, s.config.LoginAttemptMax, s.config.LoginAttemptWindow) {
		s.recordRateLimitDenied("otp-verify")
		return nil, nil, model.ErrRateLimited
	}

	user, err := s.backend.VerifyOTP(ctx, email, purpose, code)
	if err != nil {
		s.recordOTPRejected(purpose)
		return nil, nil, err
	}

	if s.metrics != nil {
		s.metrics.RecordOTPVerified(string(purpose))
	}

	if purpose != model.PurposeSignIn {
		return user, nil, nil
	}

	session, err := s.backend.CreateSession(ctx, user.ID)
	if err != nil {
		return nil, nil, err
	}

	if s.metrics != nil {
		s.metrics.RecordLoginSuccess()
	}
	slog.Info("user signed in with one-time code", slog.String("user_id", user.ID))

	return user, session, nil
}

// ResetPasswordWithOTP はパスワード再設定コードを検証し、新しいパスワードを設定する。
// 成功時には既存の全セッションが無効化される。
func (s *Service) ResetPasswordWithOTP(ctx context.Context, email, code, newPassword, ip string) error {
	if result := validation.ValidatePassword(newPassword); !result.Valid {
		return &ValidationError{Violations: result.Violations}
	}

	user, _, err := s.VerifyOTP(ctx, email, model.PurposePasswordReset, code, ip)
	if err != nil {
		return err
	}

	if err := s.backend.ResetPassword(ctx, user.ID, newPassword); err != nil {
		return err
	}

	return nil
}

// issueAndSendOTP はコードを発行し、登録済みメールの場合のみ送信する。
// 送信は応答時間からメールの登録有無を推測できないよう非同期で行う。
func (s *Service) issueAndSendOTP(ctx context.Context, email string, purpose model.OTPPurpose) error {
	issued, err := s.backend.IssueOTP(ctx, email, purpose)
	if err != nil {
		return err
	}

	if !issued.KnownUser {
		return nil
	}

	if s.metrics != nil {
		s.metrics.RecordOTPIssued(string(purpose))
	}

	sendCtx := context.WithoutCancel(ctx)
	go func() {
		if err := s.mailer.SendOTP(sendCtx, email, issued.Code, purpose); err != nil {
			slog.Error("failed to send one-time code",
				slog.String("purpose", string(purpose)),
				slog.String("error", err.Error()),
			)
		}
	}()

	return nil
}

func (s *Service) recordOTPRejected(purpose model.OTPPurpose) {
	if s.metrics != nil {
		s.metrics.RecordOTPRejected(string(purpose))
	}
}
