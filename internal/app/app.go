package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/hitoshi/activityfeed/internal/activity"
	"github.com/hitoshi/activityfeed/internal/config"
	"github.com/hitoshi/activityfeed/internal/credential"
	"github.com/hitoshi/activityfeed/internal/fetch"
	"github.com/hitoshi/activityfeed/internal/handler"
	"github.com/hitoshi/activityfeed/internal/logger"
	"github.com/hitoshi/activityfeed/internal/metrics"
	"github.com/hitoshi/activityfeed/internal/middleware"
	"github.com/hitoshi/activityfeed/internal/render"
	"github.com/hitoshi/activityfeed/internal/security"
)

// Init は設定を読み込む。
// envFileの.envを環境変数に取り込み、環境変数からConfigを生成し、
// overrideで上書きした後に検証する。overrideはnilでもよい。
func Init(envFile string, override func(*config.Config)) (*config.Config, error) {
	if envFile != "" {
		if err := config.LoadDotEnv(envFile); err != nil {
			return nil, fmt.Errorf("failed to load env file: %w", err)
		}
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if override != nil {
		override(cfg)
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	}

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。SIGINTまたはSIGTERMを受信すると実行中のコマンドを停止する。
func Run(w io.Writer, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	root := NewRootCommand(w)
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

func runServeCommand(cmd *cobra.Command, w io.Writer, opts *options) error {
	cfg, err := Init(opts.envFile, func(cfg *config.Config) { opts.apply(cmd, cfg) })
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	log, closer := logger.SetupDefault(w, cfg.LogDir)
	defer closer.Close()

	log.Info("starting application",
		slog.String("command", string(CommandServe)),
		slog.String("version", config.Version),
		slog.String("port", cfg.ServerPort),
		slog.String("config_dir", cfg.ConfigDir),
		slog.Int("max_results", cfg.MaxResults),
	)

	return runServe(cmd.Context(), cfg, log)
}

// Server は全依存関係をワイヤリングしたHTTPハンドラーを保持する。
type Server struct {
	handler     http.Handler
	rateLimiter *middleware.RateLimiter
}

// NewServer は設定から依存関係を構築し、Serverを生成する。
// 認証情報の読み込みに失敗した場合もサーバーは起動し、/feedは403を返す。
func NewServer(cfg *config.Config, log *slog.Logger, reg *prometheus.Registry) *Server {
	collector := metrics.NewCollector(reg)

	// 1. 認証情報
	var creds credential.Credentials
	account, err := credential.LoadServiceAccount(credential.ServiceAccountConfig{
		Dir:      cfg.ConfigDir,
		TokenURL: cfg.TokenURL,
	}, log)
	if err != nil {
		log.Error("failed to load credentials, feed requests will be rejected",
			slog.String("config_dir", cfg.ConfigDir),
			slog.String("error", err.Error()),
		)
	} else {
		creds = account
	}

	authorizer := credential.NewAuthorizer(creds, credential.AuthorizerConfig{
		Interval: cfg.ReauthInterval,
		Recorder: collector,
	}, log)

	// 2. フェッチャー
	fetcher := fetch.NewFetcher(authorizer, fetch.Config{
		BaseURL: cfg.APIBaseURL,
		Timeout: cfg.FetchTimeout,
	}, collector, log)

	// 3. ハンドラー
	feedHandler := handler.NewFeedHandler(
		fetcher,
		activity.NewTransformer(cfg.SiteBaseURL),
		render.NewRenderer(security.NewContentSanitizer()),
		collector,
		log,
		handler.FeedHandlerConfig{
			Version:     config.Version,
			MaxResults:  cfg.MaxResults,
			SiteBaseURL: cfg.SiteBaseURL,
		},
	)

	// 4. ルーター
	rateLimiter := middleware.NewRateLimiter(middleware.PerMinuteRateLimiterConfig(cfg.RateLimitFeed))
	router := handler.NewRouter(&handler.RouterDeps{
		Logger:      log,
		RateLimiter: rateLimiter,
		FeedHandler: feedHandler,
		Metrics:     metrics.Handler(reg),
	})

	return &Server{handler: router, rateLimiter: rateLimiter}
}

// Handler はルーティング済みのhttp.Handlerを返す。
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Close はバックグラウンドのクリーンアップ処理を停止する。
func (s *Server) Close() {
	s.rateLimiter.Stop()
}

// runServe はHTTPサーバーを起動する。
// ctxがキャンセルされるとグレースフルシャットダウンを行う。
func runServe(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	srv := NewServer(cfg, log, reg)
	defer srv.Close()

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      srv.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.FetchTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("API server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server listen error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down API server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	log.Info("API server stopped gracefully")
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

func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}
