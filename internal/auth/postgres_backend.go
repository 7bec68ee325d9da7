package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/ndelvaux/guichet/internal/model"
	"github.com/ndelvaux/guichet/internal/repository"
)

// dummyPasswordHash は未登録メールに対する認証試行の所要時間を
// 登録済みメールと揃えるための比較用ハッシュ。平文は破棄済みで一致しない。
const dummyPasswordHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

// BackendConfig は認証バックエンドの設定。
type BackendConfig struct {
	SessionMaxAge int // セッション有効期間（秒）
}

// PostgresBackend はリポジトリ層を使用したBackendの実装。
type PostgresBackend struct {
	userRepo    repository.UserRepository
	sessionRepo repository.SessionRepository
	otpRepo     repository.OTPRepository
	config      BackendConfig
	now         func() time.Time // テストで差し替え可能
}

// NewPostgresBackend はPostgresBackendを生成する。
func NewPostgresBackend(
	userRepo repository.UserRepository,
	sessionRepo repository.SessionRepository,
	otpRepo repository.OTPRepository,
	config BackendConfig,
) *PostgresBackend {
	return &PostgresBackend{
		userRepo:    userRepo,
		sessionRepo: sessionRepo,
		otpRepo:     otpRepo,
		config:      config,
		now:         time.Now,
	}
}

// ResolveSession はセッションIDから現在のユーザーを解決する。
// セッションが存在しない・期限切れ・ユーザー削除済みの場合は(nil, nil)を返す。
func (b *PostgresBackend) ResolveSession(ctx context.Context, sessionID string) (*model.User, error) {
	if sessionID == "" {
		return nil, nil
	}

	session, err := b.sessionRepo.FindByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to find session: %w", err)
	}
	if session == nil {
		return nil, nil
	}

	user, err := b.userRepo.FindByID(ctx, session.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, nil
	}

	return user, nil
}

// SignInWithPassword はメールアドレスとパスワードでユーザーを認証する。
// 未登録メールの場合もダミーハッシュとの比較を行い、
// 応答時間からメールの登録有無を推測できないようにする。
func (b *PostgresBackend) SignInWithPassword(ctx context.Context, email, password string) (*model.User, error) {
	user, err := b.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to find user by email: %w", err)
	}

	if user == nil {
		// 1. 未登録メール: ダミー比較で時間を揃えてから失敗を返す
		_ = bcrypt.CompareHashAndPassword([]byte(dummyPasswordHash), []byte(password))
		return nil, model.ErrInvalidCredentials
	}

	// 2. パスワード照合
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, model.ErrInvalidCredentials
	}

	// 3. BAN判定は認証成功後に行う（認証情報の正否を隠さない）
	if user.IsBanned(b.now()) {
		return nil, model.ErrAccountBanned
	}

	return user, nil
}

// Register は新規ユーザーを作成する。
func (b *PostgresBackend) Register(ctx context.Context, email, username, password string) (*model.User, error) {
	// 1. 重複チェック
	existing, err := b.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}
	if existing != nil {
		return nil, model.ErrEmailExists
	}

	existing, err = b.userRepo.FindByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("failed to check username: %w", err)
	}
	if existing != nil {
		return nil, model.ErrUsernameExists
	}

	// 2. パスワードハッシュ化
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := b.now()
	user := &model.User{
		ID:           uuid.New().String(),
		Email:        email,
		Username:     username,
		PasswordHash: string(hash),
		Role:         model.RoleUser,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := b.userRepo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	slog.Info("new user registered", slog.String("user_id", user.ID))
	return user, nil
}

// CreateSession はユーザーの新しいセッションを発行する。
func (b *PostgresBackend) CreateSession(ctx context.Context, userID string) (*model.Session, error) {
	sessionID, err := generateSessionID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session ID: %w", err)
	}

	now := b.now()
	session := &model.Session{
		ID:        sessionID,
		UserID:    userID,
		ExpiresAt: now.Add(time.Duration(b.config.SessionMaxAge) * time.Second),
		CreatedAt: now,
	}

	if err := b.sessionRepo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	return session, nil
}

// SignOut はセッションを破棄する。
func (b *PostgresBackend) SignOut(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}

	if err := b.sessionRepo.DeleteByID(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	return nil
}

// IssueOTP は(email, purpose)に対するワンタイムコードを発行する。
// 未登録メールの場合もコード生成までは同一の処理を行い、
// 保存とメール送信をスキップする。応答内容は呼び出し側で統一すること。
func (b *PostgresBackend) IssueOTP(ctx context.Context, email string, purpose model.OTPPurpose) (*IssuedOTP, error) {
	// 1. コード生成は登録有無に関わらず先に行う
	code, err := generateOTPCode()
	if err != nil {
		return nil, fmt.Errorf("failed to generate otp code: %w", err)
	}

	user, err := b.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to find user by email: %w", err)
	}

	if user == nil {
		// 2a. 未登録メール: 保存せずダミー発行として返す
		return &IssuedOTP{Code: code, KnownUser: false}, nil
	}

	// 2b. 登録済みメール: ハッシュを保存。既存コードは置き換えられる
	now := b.now()
	challenge := &model.OTPChallenge{
		ID:        uuid.New().String(),
		Email:     user.Email,
		CodeHash:  hashOTPCode(code),
		Purpose:   purpose,
		Attempts:  0,
		ExpiresAt: now.Add(model.OTPTTL),
		CreatedAt: now,
	}

	if err := b.otpRepo.Upsert(ctx, challenge); err != nil {
		return nil, fmt.Errorf("failed to store otp challenge: %w", err)
	}

	return &IssuedOTP{Code: code, KnownUser: true}, nil
}

// VerifyOTP はワンタイムコードを検証し、成功時にユーザーを返す。
// コード不存在・期限切れ・不一致・試行超過はすべてErrOTPInvalidに集約され、
// 応答から失敗理由を区別できない。
func (b *PostgresBackend) VerifyOTP(ctx context.Context, email string, purpose model.OTPPurpose, code string) (*model.User, error) {
	challenge, err := b.otpRepo.Find(ctx, email, purpose)
	if err != nil {
		return nil, fmt.Errorf("failed to find otp challenge: %w", err)
	}
	if challenge == nil {
		return nil, model.ErrOTPInvalid
	}

	now := b.now()
	if now.After(challenge.ExpiresAt) {
		return nil, model.ErrOTPInvalid
	}
	if challenge.Attempts >= model.OTPMaxAttempts {
		return nil, model.ErrOTPInvalid
	}

	if subtle.ConstantTimeCompare([]byte(challenge.CodeHash), []byte(hashOTPCode(code))) != 1 {
		attempts, err := b.otpRepo.IncrementAttempts(ctx, challenge.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to increment otp attempts: %w", err)
		}
		if attempts >= model.OTPMaxAttempts {
			// 上限到達でコードを無効化。正しいコードを後から入れても失敗する
			if err := b.otpRepo.Delete(ctx, challenge.ID); err != nil {
				return nil, fmt.Errorf("failed to invalidate otp challenge: %w", err)
			}
		}
		return nil, model.ErrOTPInvalid
	}

	// 検証成功。コードは一回限りなので即座に削除する
	if err := b.otpRepo.Delete(ctx, challenge.ID); err != nil {
		return nil, fmt.Errorf("failed to consume otp challenge: %w", err)
	}

	user, err := b.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to find user by email: %w", err)
	}
	if user == nil {
		return nil, model.ErrOTPInvalid
	}

	if purpose == model.PurposeSignIn && user.IsBanned(now) {
		return nil, model.ErrAccountBanned
	}

	if purpose == model.PurposeEmailVerification && !user.EmailVerified {
		if err := b.userRepo.SetEmailVerified(ctx, user.ID, true); err != nil {
			return nil, fmt.Errorf("failed to mark email verified: %w", err)
		}
		user.EmailVerified = true
	}

	return user, nil
}

// ResetPassword はパスワードを更新し、既存の全セッションを無効化する。
func (b *PostgresBackend) ResetPassword(ctx context.Context, userID, newPassword string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	if err := b.userRepo.UpdatePassword(ctx, userID, string(hash)); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	if err := b.sessionRepo.DeleteByUserID(ctx, userID); err != nil {
		return fmt.Errorf("failed to revoke sessions: %w", err)
	}

	slog.Info("password reset completed", slog.String("user_id", userID))
	return nil
}

// generateSessionID は暗号的に安全なセッションIDを生成する。
func generateSessionID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// generateOTPCode は暗号的に安全な6桁のワンタイムコードを生成する。
// 先頭ゼロも許容するため常に6桁にゼロ埋めする。
func generateOTPCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

// hashOTPCode はワンタイムコードのSHA-256ハッシュを返す。平文は保存しない。
func hashOTPCode(code string) string {
	sum := sha256.Sum256([]byte(code))
	return hex.EncodeToString(sum[:])
}

// compile-time interface check
var _ Backend = (*PostgresBackend)(nil)
