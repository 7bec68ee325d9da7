// Package config は環境変数からアプリケーション設定を読み込む。
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// minSessionSecretLength はセッション署名鍵の最小長。
const minSessionSecretLength = 32

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
// 必須変数の欠落は起動時の致命的エラーであり、リクエスト単位のエラーにはしない。
type Config struct {
	// Database
	DatabaseURL string

	// Session
	SessionSecret string
	SessionMaxAge int // 秒

	// SMTP
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string

	// Rate Limit
	OTPRequestMax        int           // (purpose, email)あたりのOTP発行上限
	OTPRequestWindow     time.Duration // OTP発行ウィンドウ
	LoginAttemptMax      int           // IPあたりのログイン試行上限
	LoginAttemptWindow   time.Duration // ログイン試行ウィンドウ
	LimiterSweepInterval time.Duration // 期限切れカウンタの掃除間隔
	GeneralRatePerMin    int           // IPあたりのAPI全般レート（req/min）

	// Redis（任意。設定時はレート制限カウンタを共有ストアに切り替える）
	RedisURL string

	// Server
	ServerPort string
	BaseURL    string

	// Cookie
	CookieSecure bool
	CookieDomain string

	// Production はHSTSヘッダーとSecure Cookieを有効にする。
	Production bool
}

// Load は環境変数からConfigを読み込む。
// .envファイルが存在する場合は先に読み込む（既存の環境変数は上書きしない）。
// 必須環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	// .envファイルを読み込む（存在しない場合はスキップ）
	_ = godotenv.Load()

	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}

	cfg.SessionSecret = os.Getenv("SESSION_SECRET")
	if cfg.SessionSecret == "" {
		missing = append(missing, "SESSION_SECRET")
	}

	cfg.BaseURL = os.Getenv("BASE_URL")
	if cfg.BaseURL == "" {
		missing = append(missing, "BASE_URL")
	}

	cfg.SMTPHost = os.Getenv("SMTP_HOST")
	if cfg.SMTPHost == "" {
		missing = append(missing, "SMTP_HOST")
	}

	cfg.SMTPFrom = os.Getenv("SMTP_FROM")
	if cfg.SMTPFrom == "" {
		missing = append(missing, "SMTP_FROM")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	if len(cfg.SessionSecret) < minSessionSecretLength {
		return nil, fmt.Errorf("SESSION_SECRET must be at least %d characters", minSessionSecretLength)
	}

	// Optional fields with defaults
	cfg.SessionMaxAge = getEnvInt("SESSION_MAX_AGE", 7*86400)
	cfg.SMTPPort = getEnvInt("SMTP_PORT", 587)
	cfg.SMTPUsername = getEnvString("SMTP_USERNAME", "")
	cfg.SMTPPassword = getEnvString("SMTP_PASSWORD", "")
	cfg.OTPRequestMax = getEnvInt("OTP_REQUEST_MAX", 3)
	cfg.OTPRequestWindow = getEnvDuration("OTP_REQUEST_WINDOW", 5*time.Minute)
	cfg.LoginAttemptMax = getEnvInt("LOGIN_ATTEMPT_MAX", 5)
	cfg.LoginAttemptWindow = getEnvDuration("LOGIN_ATTEMPT_WINDOW", 15*time.Minute)
	cfg.LimiterSweepInterval = getEnvDuration("LIMITER_SWEEP_INTERVAL", 5*time.Minute)
	cfg.GeneralRatePerMin = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.RedisURL = getEnvString("REDIS_URL", "")
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.CookieDomain = getEnvString("COOKIE_DOMAIN", "")
	cfg.Production = getEnvString("APP_ENV", "development") == "production"
	cfg.CookieSecure = cfg.Production || strings.HasPrefix(cfg.BaseURL, "https://")

	return cfg, nil
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
