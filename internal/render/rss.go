// Package render はフィード項目をRSS 2.0文書に変換する。
package render

import (
	"fmt"
	"io"
	"mime"
	"path"
	"strings"
	"time"

	"github.com/gorilla/feeds"

	"github.com/hitoshi/activityfeed/internal/model"
	"github.com/hitoshi/activityfeed/internal/security"
)

// ContentType はRSSレスポンスのContent-Type。
const ContentType = "application/rss+xml;charset=utf-8"

// Meta はフィード全体のメタデータ。
type Meta struct {
	Version     string
	UserID      string
	Filter      string
	PubDate     time.Time
	SiteBaseURL string
}

// Renderer はフィード項目とメタデータからRSSを生成する。
type Renderer struct {
	sanitizer security.ContentSanitizerService
}

// NewRenderer はRendererを生成する。sanitizerがnilの場合は本文をそのまま出力する。
func NewRenderer(sanitizer security.ContentSanitizerService) *Renderer {
	return &Renderer{sanitizer: sanitizer}
}

// Build はRSSチャンネルを組み立てる。項目の順序は入力の順序を維持する。
func (r *Renderer) Build(meta Meta, items []model.FeedItem) *feeds.RssFeed {
	pubDate := meta.PubDate.UTC()
	feed := &feeds.Feed{
		Title:       channelTitle(meta),
		Link:        &feeds.Link{Href: strings.TrimRight(meta.SiteBaseURL, "/") + "/" + meta.UserID},
		Description: fmt.Sprintf("Public activity of %s (activityfeed %s)", meta.UserID, meta.Version),
		Created:     pubDate,
		Items:       make([]*feeds.Item, 0, len(items)),
	}

	for i := range items {
		feed.Items = append(feed.Items, r.item(&items[i]))
	}

	rss := (&feeds.Rss{Feed: feed}).RssFeed()
	// 画像のバイト長は取得しないため、enclosureはRSS側で直接設定する
	for i := range items {
		if items[i].HasImage() && i < len(rss.Items) {
			rss.Items[i].Enclosure = &feeds.RssEnclosure{
				Url:    items[i].FullImage,
				Length: "0",
				Type:   imageType(items[i].FullImage),
			}
		}
	}
	return rss
}

// Write はRSS文書をwに書き出す。
func (r *Renderer) Write(w io.Writer, meta Meta, items []model.FeedItem) error {
	if err := feeds.WriteXML(r.Build(meta, items), w); err != nil {
		return fmt.Errorf("failed to write rss: %w", err)
	}
	return nil
}

func (r *Renderer) item(fi *model.FeedItem) *feeds.Item {
	description := fi.Description
	if r.sanitizer != nil {
		description = r.sanitizer.Sanitize(description)
	}

	// GUIDはアクティビティIDでありURLではない
	return &feeds.Item{
		Title:       fi.Title,
		Link:        &feeds.Link{Href: fi.Link},
		Description: description,
		Id:          fi.GUID,
		IsPermaLink: "false",
		Created:     fi.Published.UTC(),
	}
}

func channelTitle(meta Meta) string {
	if meta.Filter == "" {
		return "Activity of " + meta.UserID
	}
	return fmt.Sprintf("Activity of %s [%s]", meta.UserID, meta.Filter)
}

// imageType は画像URLの拡張子からMIMEタイプを推定する。不明な場合はimage/jpeg。
func imageType(u string) string {
	if i := strings.IndexAny(u, "?#"); i >= 0 {
		u = u[:i]
	}
	if t := mime.TypeByExtension(strings.ToLower(path.Ext(u))); strings.HasPrefix(t, "image/") {
		return t
	}
	return "image/jpeg"
}
