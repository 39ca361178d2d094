package credential

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// DefaultReauthInterval は認可済みクライアントを再生成するまでの間隔。
const DefaultReauthInterval = 300 * time.Second

// ErrAuthorization は認証情報が存在しない、または無効な場合のエラー。
// HTTP境界では403に変換される。
var ErrAuthorization = errors.New("invalid credentials")

// Credentials は認可済みHTTPクライアントを生成できる認証情報。
type Credentials interface {
	Valid() bool
	Client(ctx context.Context) (*http.Client, error)
}

// Clock は現在時刻を返す。テストで時刻を差し替えるために使用する。
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock はtime.Nowを返すClock。
var SystemClock Clock = systemClock{}

// ReauthRecorder は再認可の発生を記録する。
type ReauthRecorder interface {
	RecordReauthorization()
}

// AuthorizerConfig はAuthorizerの設定。
type AuthorizerConfig struct {
	Interval time.Duration
	Clock    Clock
	Recorder ReauthRecorder // 省略可
}

// Authorizer は認可済みHTTPクライアントをキャッシュする。
// クライアントが未生成、または前回の認可からIntervalを超えて経過した場合に再認可する。
// 判定・再生成・取得はミューテックスの下で一体として行う。
type Authorizer struct {
	mu       sync.Mutex
	creds    Credentials
	interval time.Duration
	clock    Clock
	recorder ReauthRecorder
	logger   *slog.Logger

	client   *http.Client
	authTime time.Time
}

// NewAuthorizer はAuthorizerを生成する。credsはnilでもよく、その場合Authorizeは常に失敗する。
func NewAuthorizer(creds Credentials, cfg AuthorizerConfig, logger *slog.Logger) *Authorizer {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultReauthInterval
	}
	if cfg.Clock == nil {
		cfg.Clock = SystemClock
	}
	return &Authorizer{
		creds:    creds,
		interval: cfg.Interval,
		clock:    cfg.Clock,
		recorder: cfg.Recorder,
		logger:   logger,
	}
}

// Authorize は認可済みHTTPクライアントを返す。
// 認証情報が無効な場合はErrAuthorizationを返す。
func (a *Authorizer) Authorize(ctx context.Context) (*http.Client, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.creds == nil || !a.creds.Valid() {
		return nil, ErrAuthorization
	}

	now := a.clock.Now()
	if a.client != nil && now.Sub(a.authTime) <= a.interval {
		return a.client, nil
	}

	a.logger.Info("authorizing credentials")

	// クライアントはリクエストを跨いで使うため、呼び出し元のキャンセルを引き継がない
	client, err := a.creds.Client(context.WithoutCancel(ctx))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAuthorization, err)
	}

	a.client = client
	a.authTime = now
	if a.recorder != nil {
		a.recorder.RecordReauthorization()
	}
	return client, nil
}
