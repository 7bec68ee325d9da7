// Package app はアプリケーションの起動と依存関係のワイヤリングを行う。
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"github.com/ndelvaux/guichet/internal/account"
	"github.com/ndelvaux/guichet/internal/admin"
	"github.com/ndelvaux/guichet/internal/auth"
	"github.com/ndelvaux/guichet/internal/config"
	"github.com/ndelvaux/guichet/internal/database"
	"github.com/ndelvaux/guichet/internal/handler"
	"github.com/ndelvaux/guichet/internal/logger"
	"github.com/ndelvaux/guichet/internal/mail"
	"github.com/ndelvaux/guichet/internal/metrics"
	"github.com/ndelvaux/guichet/internal/middleware"
	"github.com/ndelvaux/guichet/internal/org"
	"github.com/ndelvaux/guichet/internal/ratelimit"
	"github.com/ndelvaux/guichet/internal/repository"
)

// appName はページタイトルとメール差出人表示に使うアプリケーション名。
const appName = "Guichet"

// cleanupInterval は期限切れセッション・ワンタイムコードの掃除間隔。
const cleanupInterval = time.Hour

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.String("base_url", cfg.BaseURL),
	)

	switch cmd {
	case CommandMigrate:
		return runMigrate(cfg)
	default:
		return runServe(cfg)
	}
}

// runServe はWebサーバーモードで起動する。
// DB接続を開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	// 1. DB接続
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established")

	// 2. リポジトリの初期化
	userRepo := repository.NewPostgresUserRepo(db)
	sessionRepo := repository.NewPostgresSessionRepo(db)
	otpRepo := repository.NewPostgresOTPRepo(db)
	orgRepo := repository.NewPostgresOrgRepo(db)

	// 3. メトリクスの初期化
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	// 4. レート制限カウンタの初期化
	// REDIS_URL設定時は共有ストア、未設定時はプロセスローカルのカウンタを使う
	var limiterStore ratelimit.Store
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("failed to parse redis url: %w", err)
		}
		limiterStore = ratelimit.NewRedisStore(redis.NewClient(opts))
		slog.Info("using redis rate limit store")
	} else {
		memStore := ratelimit.NewMemoryStore(cfg.LimiterSweepInterval)
		memStore.Start()
		defer memStore.Stop()
		limiterStore = memStore
	}
	limiter := ratelimit.NewLimiter(limiterStore)

	// 5. メール送信の初期化
	sender := mail.NewSMTPSender(mail.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		From:     cfg.SMTPFrom,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
	})
	mailer := mail.NewOTPMailer(sender, appName)

	// 6. ドメインサービスの初期化
	backend := auth.NewPostgresBackend(userRepo, sessionRepo, otpRepo,
		auth.BackendConfig{SessionMaxAge: cfg.SessionMaxAge})
	authService := auth.NewService(backend, limiter, mailer, collector,
		auth.ServiceConfig{
			OTPRequestMax:      cfg.OTPRequestMax,
			OTPRequestWindow:   cfg.OTPRequestWindow,
			LoginAttemptMax:    cfg.LoginAttemptMax,
			LoginAttemptWindow: cfg.LoginAttemptWindow,
		})
	accountService := account.NewService(userRepo, sessionRepo)
	orgService := org.NewService(orgRepo, userRepo, mailer,
		org.ServiceConfig{BaseURL: cfg.BaseURL})
	adminService := admin.NewService(userRepo, sessionRepo)

	// 7. ルーターの構築
	rateLimiterCfg := middleware.DefaultRateLimiterConfig()
	if cfg.GeneralRatePerMin > 0 {
		// configのRATE_LIMIT_GENERALはreq/min単位なのでreq/secに変換する
		rateLimiterCfg.GeneralRate = rate.Limit(float64(cfg.GeneralRatePerMin) / 60.0)
		rateLimiterCfg.GeneralBurst = cfg.GeneralRatePerMin
	}
	generalLimiter := middleware.NewRateLimiter(rateLimiterCfg)
	defer generalLimiter.Stop()

	router := handler.NewRouter(&handler.RouterDeps{
		Production:      cfg.Production,
		Logger:          slog.Default(),
		SessionResolver: backend,
		RateLimiter:     generalLimiter,
		CSRFConfig: middleware.CSRFConfig{
			CookieSecure: cfg.CookieSecure,
			CookieDomain: cfg.CookieDomain,
			Secret:       []byte(cfg.SessionSecret),
		},
		Metrics:         collector,
		MetricsGatherer: registry,

		AppName:     appName,
		AuthService: authService,
		AuthConfig: handler.AuthHandlerConfig{
			CookieDomain:  cfg.CookieDomain,
			CookieSecure:  cfg.CookieSecure,
			SessionMaxAge: cfg.SessionMaxAge,
		},
		AccountService: accountService,
		OrgService:     orgService,
		AdminService:   adminService,
	})

	// 8. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	cleanupCtx, cancelCleanup := context.WithCancel(context.Background())
	defer cancelCleanup()
	go runCleanupLoop(cleanupCtx, sessionRepo, otpRepo)

	go func() {
		slog.Info("web server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server listen error", slog.String("error", err.Error()))
		}
	}()

	<-stop
	slog.Info("shutting down web server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("web server stopped gracefully")
	return nil
}

// runCleanupLoop は期限切れセッションとワンタイムコードを定期的に削除する。
func runCleanupLoop(ctx context.Context, sessionRepo repository.SessionRepository, otpRepo repository.OTPRepository) {
	run := func() {
		if n, err := sessionRepo.DeleteExpired(ctx); err != nil {
			slog.Error("failed to delete expired sessions", slog.String("error", err.Error()))
		} else if n > 0 {
			slog.Info("expired sessions deleted", slog.Int64("count", n))
		}

		if n, err := otpRepo.DeleteExpired(ctx); err != nil {
			slog.Error("failed to delete expired one-time codes", slog.String("error", err.Error()))
		} else if n > 0 {
			slog.Info("expired one-time codes deleted", slog.Int64("count", n))
		}
	}

	// 起動直後に1回実行
	run()

	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			run()
		}
	}
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully")
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(url string) string {
	if len(url) > 20 {
		return url[:12] + "***@..."
	}
	return "***"
}
