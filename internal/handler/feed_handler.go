package handler

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/hitoshi/activityfeed/internal/activity"
	"github.com/hitoshi/activityfeed/internal/credential"
	"github.com/hitoshi/activityfeed/internal/fetch"
	"github.com/hitoshi/activityfeed/internal/middleware"
	"github.com/hitoshi/activityfeed/internal/model"
	"github.com/hitoshi/activityfeed/internal/render"
)

// ActivityFetcher はフィードハンドラーが必要とするアクティビティ取得のインターフェース。
type ActivityFetcher interface {
	Fetch(ctx context.Context, userID string, maxResults int) (*activity.RawDocument, error)
}

// FeedRenderer はフィード項目をRSSとして書き出す。
type FeedRenderer interface {
	Write(w io.Writer, meta render.Meta, items []model.FeedItem) error
}

// FeedMetrics はフィードハンドラーが記録するメトリクス。
type FeedMetrics interface {
	RecordHTTPStatus(statusCode int)
	RecordParseFailure()
	RecordItemsRendered(count int)
}

// FeedHandlerConfig はFeedHandlerの設定。
type FeedHandlerConfig struct {
	Version     string
	MaxResults  int
	SiteBaseURL string
	Now         func() time.Time // 省略時はtime.Now
}

// FeedHandler はGET /feedを処理する。
type FeedHandler struct {
	fetcher     ActivityFetcher
	transformer *activity.Transformer
	renderer    FeedRenderer
	metrics     FeedMetrics
	logger      *slog.Logger
	config      FeedHandlerConfig
}

// NewFeedHandler はFeedHandlerを生成する。metricsはnilでもよい。
func NewFeedHandler(
	fetcher ActivityFetcher,
	transformer *activity.Transformer,
	renderer FeedRenderer,
	metrics FeedMetrics,
	logger *slog.Logger,
	config FeedHandlerConfig,
) *FeedHandler {
	if config.MaxResults <= 0 {
		config.MaxResults = activity.DefaultMaxResults
	}
	if config.SiteBaseURL == "" {
		config.SiteBaseURL = activity.DefaultSiteBaseURL
	}
	if config.Now == nil {
		config.Now = time.Now
	}
	return &FeedHandler{
		fetcher:     fetcher,
		transformer: transformer,
		renderer:    renderer,
		metrics:     metrics,
		logger:      logger,
		config:      config,
	}
}

// ServeHTTP はユーザーの公開アクティビティをRSSとして返す。
// GET /feed?gid=<userId>&filter=<filter>
func (h *FeedHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	gid := query.Get("gid")
	filter := query.Get("filter")
	requestID := middleware.RequestIDFromContext(r.Context())

	h.logger.Info("feed request",
		slog.String("gid", gid),
		slog.String("filter", filter),
		slog.String("request_id", requestID),
	)

	if gid == "" {
		h.writeError(w, http.StatusBadRequest, model.NewMissingParameterError("gid"))
		return
	}

	raw, err := h.fetcher.Fetch(r.Context(), gid, h.config.MaxResults)
	switch {
	case err == nil:
	case errors.Is(err, credential.ErrAuthorization):
		h.logger.Warn("authorization failed",
			slog.String("gid", gid),
			slog.String("error", err.Error()),
		)
		h.writeError(w, http.StatusForbidden, model.NewAuthorizationFailedError())
		return
	case errors.Is(err, fetch.ErrRetry):
		// 再試行はクライアントの次回ポーリングに任せ、今回は空のフィードを返す
		h.logger.Warn("activities unavailable, retry can be attempted",
			slog.String("gid", gid),
			slog.String("error", err.Error()),
		)
		raw = nil
	default:
		h.logger.Error("failed to fetch activities",
			slog.String("gid", gid),
			slog.String("error", err.Error()),
		)
		h.writeError(w, http.StatusInternalServerError, model.NewInternalError())
		return
	}

	var items []model.FeedItem
	if raw != nil {
		doc, err := activity.Parse(raw)
		if err != nil {
			h.logger.Error("malformed activity document",
				slog.String("gid", gid),
				slog.String("error", err.Error()),
			)
			if h.metrics != nil {
				h.metrics.RecordParseFailure()
			}
			h.writeError(w, http.StatusInternalServerError, model.NewMalformedActivityError(parseReason(err)))
			return
		}
		items = h.transformer.ProcessItems(filter, doc)
	}

	meta := render.Meta{
		Version:     h.config.Version,
		UserID:      gid,
		Filter:      filter,
		PubDate:     h.config.Now(),
		SiteBaseURL: h.config.SiteBaseURL,
	}

	var buf bytes.Buffer
	if err := h.renderer.Write(&buf, meta, items); err != nil {
		h.logger.Error("failed to render feed",
			slog.String("gid", gid),
			slog.String("error", err.Error()),
		)
		h.writeError(w, http.StatusInternalServerError, model.NewInternalError())
		return
	}

	w.Header().Set("Content-Type", render.ContentType)
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())

	if h.metrics != nil {
		h.metrics.RecordHTTPStatus(http.StatusOK)
		h.metrics.RecordItemsRendered(len(items))
	}
}

// writeError は統一エラーフォーマットでエラーを返し、ステータスを記録する。
func (h *FeedHandler) writeError(w http.ResponseWriter, status int, apiErr *model.APIError) {
	middleware.WriteErrorResponse(w, status, apiErr)
	if h.metrics != nil {
		h.metrics.RecordHTTPStatus(status)
	}
}

// parseReason はクライアントに返す解析エラーの要約を返す。
func parseReason(err error) string {
	var perr *activity.ParseError
	if errors.As(err, &perr) {
		return perr.ItemID + ": " + perr.Reason
	}
	return err.Error()
}
