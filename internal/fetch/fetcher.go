// Package fetch はリモートAPIから公開アクティビティ文書を取得する。
package fetch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/hitoshi/activityfeed/internal/activity"
	"github.com/hitoshi/activityfeed/internal/credential"
)

const (
	// DefaultBaseURL はアクティビティAPIのベースURL。
	DefaultBaseURL = "https://www.googleapis.com"
	// DefaultTimeout はリモート呼び出し1回のタイムアウト。
	DefaultTimeout = 10 * time.Second

	defaultMaxBodySize = 5 << 20
	userAgent          = "ActivityFeed/0.5.0"
)

var (
	// ErrRetry はHTTPのフレーミングエラーを表す。呼び出し元は再試行してよい。
	// Fetcher自身は再試行しない。
	ErrRetry = errors.New("transport framing error, retry can be attempted")

	// ErrInvalidRequest はuserIDが空、またはmaxResultsが正でない場合のエラー。
	ErrInvalidRequest = errors.New("invalid fetch request")
)

// Authorizer は認可済みHTTPクライアントを提供する。
type Authorizer interface {
	Authorize(ctx context.Context) (*http.Client, error)
}

// MetricsRecorder はフェッチ結果を記録する。
type MetricsRecorder interface {
	RecordFetch(outcome string, duration time.Duration)
}

// Config はFetcherの設定。
type Config struct {
	BaseURL     string
	Timeout     time.Duration
	MaxBodySize int64
}

// Fetcher はユーザーの公開アクティビティを取得する。
type Fetcher struct {
	auth        Authorizer
	metrics     MetricsRecorder
	logger      *slog.Logger
	baseURL     string
	timeout     time.Duration
	maxBodySize int64
}

// NewFetcher はFetcherの新しいインスタンスを生成する。metricsはnilでもよい。
func NewFetcher(auth Authorizer, cfg Config, metrics MetricsRecorder, logger *slog.Logger) *Fetcher {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxBodySize <= 0 {
		cfg.MaxBodySize = defaultMaxBodySize
	}
	return &Fetcher{
		auth:        auth,
		metrics:     metrics,
		logger:      logger,
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		timeout:     cfg.Timeout,
		maxBodySize: cfg.MaxBodySize,
	}
}

// envelope はAPIレスポンスの本文。エラー時はerrorフィールドのみが入る。
type envelope struct {
	activity.RawDocument
	Error json.RawMessage `json:"error,omitempty"`
}

// Fetch はuserIDの公開アクティビティを最大maxResults件取得する。
//
// 認証情報が無効な場合やトークン取得が拒否された場合はcredential.ErrAuthorizationを、フレーミングエラーの場合は
// ErrRetryを返す。リモートのエラー応答やその他の失敗はログに記録し、(nil, nil)を返す。
func (f *Fetcher) Fetch(ctx context.Context, userID string, maxResults int) (*activity.RawDocument, error) {
	if userID == "" || maxResults <= 0 {
		return nil, fmt.Errorf("%w: user_id=%q max_results=%d", ErrInvalidRequest, userID, maxResults)
	}

	start := time.Now()

	client, err := f.auth.Authorize(ctx)
	if err != nil {
		f.record(OutcomeUnauthorized, start)
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.activitiesURL(userID, maxResults), nil)
	if err != nil {
		f.record(OutcomeUnexpected, start)
		f.logger.Warn("failed to build activities request",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		return nil, nil
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		if authErr := tokenRejected(err); authErr != nil {
			f.record(OutcomeUnauthorized, start)
			f.logger.Warn("access token request was rejected",
				slog.String("user_id", userID),
				slog.String("error", err.Error()),
			)
			return nil, authErr
		}
		outcome := ClassifyTransportError(err)
		f.record(outcome, start)
		if outcome == OutcomeRetry {
			f.logger.Warn("malformed response from activities API",
				slog.String("user_id", userID),
				slog.String("error", err.Error()),
			)
			return nil, fmt.Errorf("%w: %v", ErrRetry, err)
		}
		f.logUnexpected(userID, err)
		return nil, nil
	}
	defer resp.Body.Close()

	if ClassifyHTTPStatus(resp.StatusCode) != OutcomeOK {
		f.record(OutcomeRemoteError, start)
		f.logger.Warn("activities API returned an error",
			slog.String("user_id", userID),
			slog.Int("http_status", resp.StatusCode),
		)
		return nil, nil
	}

	var body envelope
	if err := json.NewDecoder(io.LimitReader(resp.Body, f.maxBodySize)).Decode(&body); err != nil {
		f.record(OutcomeUnexpected, start)
		f.logUnexpected(userID, err)
		return nil, nil
	}

	if len(body.Error) > 0 && string(body.Error) != "null" {
		f.record(OutcomeRemoteError, start)
		f.logger.Warn("activities API returned an error",
			slog.String("user_id", userID),
			slog.Int("http_status", resp.StatusCode),
			slog.String("error", string(body.Error)),
		)
		return nil, nil
	}

	f.record(OutcomeOK, start)
	doc := body.RawDocument
	if doc.Updated != "" {
		f.logger.Info("received data",
			slog.String("user_id", userID),
			slog.String("updated", doc.Updated),
			slog.Int("items", len(doc.Items)),
		)
	} else {
		f.logger.Info("received empty data set",
			slog.String("user_id", userID),
		)
	}
	return &doc, nil
}

// FetchSince はFetchを呼び出し、文書のupdatedがsinceより後の場合のみ文書を返す。
// 文書がない、またはupdatedが空の場合はnilを返す。
func (f *Fetcher) FetchSince(ctx context.Context, userID string, maxResults int, since time.Time) (*activity.RawDocument, error) {
	doc, err := f.Fetch(ctx, userID, maxResults)
	if err != nil || doc == nil || doc.Updated == "" {
		return nil, err
	}

	updated, err := activity.ParseTimestamp(doc.Updated)
	if err != nil {
		return nil, fmt.Errorf("failed to parse document updated: %w", err)
	}
	if !updated.After(since) {
		return nil, nil
	}
	return doc, nil
}

func (f *Fetcher) activitiesURL(userID string, maxResults int) string {
	q := url.Values{}
	q.Set("maxResults", strconv.Itoa(maxResults))
	return f.baseURL + "/plus/v1/people/" + url.PathEscape(userID) + "/activities/public?" + q.Encode()
}

// tokenRejected はトークン取得がエンドポイントに拒否された場合に
// credential.ErrAuthorizationを含むエラーを返す。それ以外はnil。
func tokenRejected(err error) error {
	if errors.Is(err, credential.ErrAuthorization) {
		return err
	}
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		return fmt.Errorf("%w: %w", credential.ErrAuthorization, err)
	}
	return nil
}

func (f *Fetcher) logUnexpected(userID string, err error) {
	f.logger.Warn("failed to fetch activities",
		slog.String("user_id", userID),
		slog.String("error_type", fmt.Sprintf("%T", err)),
		slog.String("error", err.Error()),
	)
}

func (f *Fetcher) record(outcome Outcome, start time.Time) {
	if f.metrics != nil {
		f.metrics.RecordFetch(string(outcome), time.Since(start))
	}
}

// compile-time interface check
var _ Authorizer = (*credential.Authorizer)(nil)
