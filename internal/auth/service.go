package auth

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ndelvaux/guichet/internal/metrics"
	"github.com/ndelvaux/guichet/internal/model"
	"github.com/ndelvaux/guichet/internal/ratelimit"
	"github.com/ndelvaux/guichet/internal/validation"
)

// OTPMailer はワンタイムコードのメール送信インターフェース。
type OTPMailer interface {
	SendOTP(ctx context.Context, to, code string, purpose model.OTPPurpose) error
}

// ValidationError は入力検証の違反を表す。
// Violationsには利用者に表示可能なメッセージが入る。
type ValidationError struct {
	Violations []string
}

func (e *ValidationError) Error() string {
	return strings.Join(e.Violations, "; ")
}

// ServiceConfig は認証サービスの設定。
type ServiceConfig struct {
	OTPRequestMax      int           // ウィンドウあたりのコード発行上限
	OTPRequestWindow   time.Duration // コード発行のウィンドウ幅
	LoginAttemptMax    int           // ウィンドウあたりのログイン試行上限
	LoginAttemptWindow time.Duration // ログイン試行のウィンドウ幅
}

// Service は認証に関するビジネスロジックを提供する。
// 入力検証・レート制限・メール送信・メトリクス記録を束ね、
// 永続化はBackendに委譲する。
type Service struct {
	backend Backend
	limiter *ratelimit.Limiter
	mailer  OTPMailer
	metrics metrics.MetricsCollector
	config  ServiceConfig
}

// NewService はServiceを生成する。
func NewService(
	backend Backend,
	limiter *ratelimit.Limiter,
	mailer OTPMailer,
	collector metrics.MetricsCollector,
	config ServiceConfig,
) *Service {
	return &Service{
		backend: backend,
		limiter: limiter,
		mailer:  mailer,
		metrics: collector,
		config:  config,
	}
}

// SignUp は新規ユーザーを登録しセッションを発行する。
// 登録後、メールアドレス確認用のワンタイムコードを送信する。
func (s *Service) SignUp(ctx context.Context, email, username, password string) (*model.User, *model.Session, error) {
	// 1. 入力検証。違反はすべてまとめて返す
	var violations []string
	if !validation.IsValidEmail(email) {
		violations = append(violations, validation.ViolationEmailInvalid)
	}
	if result := validation.ValidateUsername(username); !result.Valid {
		violations = append(violations, result.Violations...)
	}
	if result := validation.ValidatePassword(password); !result.Valid {
		violations = append(violations, result.Violations...)
	}
	if len(violations) > 0 {
		return nil, nil, &ValidationError{Violations: violations}
	}

	// 2. ユーザー作成
	user, err := s.backend.Register(ctx, email, username, password)
	if err != nil {
		return nil, nil, err
	}

	// 3. セッション発行
	session, err := s.backend.CreateSession(ctx, user.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create session: %w", err)
	}

	// 4. メールアドレス確認コードを送信。失敗しても登録は成立させる
	if err := s.issueAndSendOTP(ctx, user.Email, model.PurposeEmailVerification); err != nil {
		slog.Error("failed to send verification code",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
	}

	return user, session, nil
}

// SignIn はメールアドレスとパスワードで認証しセッションを発行する。
// メールアドレス単位とIP単位の両方でレート制限する。
func (s *Service) SignIn(ctx context.Context, email, password, ip string) (*model.Session, error) {
	emailKey := "login:" + strings.ToLower(email)
	ipKey := "login-ip:" + ip

	if !s.limiter.Check(ctx, emailKey, s.config.LoginAttemptMax, s.config.LoginAttemptWindow) ||
		!s.limiter.Check(ctx, ipKey, s.config.LoginAttemptMax, s.config.LoginAttemptWindow) {
		s.recordRateLimitDenied("login")
		return nil, model.ErrRateLimited
	}

	user, err := s.backend.SignInWithPassword(ctx, email, password)
	if err != nil {
		s.recordLoginFailure(err)
		return nil, err
	}

	session, err := s.backend.CreateSession(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	if s.metrics != nil {
		s.metrics.RecordLoginSuccess()
	}
	slog.Info("user signed in", slog.String("user_id", user.ID))

	return session, nil
}

// SignOut はセッションを破棄する。
func (s *Service) SignOut(ctx context.Context, sessionID string) error {
	if err := s.backend.SignOut(ctx, sessionID); err != nil {
		return err
	}
	slog.Info("user signed out")
	return nil
}

// ResolveSession はセッションIDから現在のユーザーを解決する。
func (s *Service) ResolveSession(ctx context.Context, sessionID string) (*model.User, error) {
	return s.backend.ResolveSession(ctx, sessionID)
}

func (s *Service) recordLoginFailure(err error) {
	if s.metrics == nil {
		return
	}
	switch {
	case err == model.ErrAccountBanned:
		s.metrics.RecordLoginFailure("banned")
	default:
		s.metrics.RecordLoginFailure("invalid_credentials")
	}
}

func (s *Service) recordRateLimitDenied(scope string) {
	if s.metrics != nil {
		s.metrics.RecordRateLimitDenied(scope)
	}
}
