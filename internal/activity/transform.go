package activity

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/hitoshi/activityfeed/internal/model"
)

const (
	// DefaultSiteBaseURL は相対パスで返される写真・アルバムURLに付与するベースURL。
	DefaultSiteBaseURL = "https://plus.google.com"
	// maxTitleLength はtitleから生成するフィードタイトルの最大文字数。
	maxTitleLength = 70
)

var (
	lineBreakPattern = regexp.MustCompile("\r\n|\n|\r")
	jpegPattern      = regexp.MustCompile(`(/[^/]+\.jpg)`)
	sizeSegment      = regexp.MustCompile(`/(?:s\d+|w\d+-h\d+)(?:-[a-z0-9]+)*(/[^/]+\.jpg)`)
)

// Transformer はアクティビティをフィード項目に変換する。
type Transformer struct {
	siteBaseURL string
}

// NewTransformer はTransformerを生成する。
// siteBaseURLが空の場合はDefaultSiteBaseURLを使用する。
func NewTransformer(siteBaseURL string) *Transformer {
	if siteBaseURL == "" {
		siteBaseURL = DefaultSiteBaseURL
	}
	return &Transformer{siteBaseURL: siteBaseURL}
}

// ProcessItems はフィルタを適用し、文書の順序どおりにフィード項目を生成する。
func (t *Transformer) ProcessItems(filter string, doc *Document) []model.FeedItem {
	if doc == nil {
		return nil
	}

	items := make([]model.FeedItem, 0, len(doc.Items))
	for _, item := range doc.Items {
		if !Allows(filter, Classify(item)) {
			continue
		}
		items = append(items, t.transform(item))
	}
	return items
}

func (t *Transformer) transform(item Item) model.FeedItem {
	var link, fullImage string
	title := truncate(item.Title, maxTitleLength)

	switch m := item.Media.(type) {
	case TextContent:
		link = m.URL
	case PhotoContent:
		link = t.absolute(m.URL)
		if m.FullImage != nil {
			fullImage = m.FullImage.URL
			if m.FullImage.HasSize {
				fullImage = fullSizeImageURL(fullImage, m.FullImage.Width, m.FullImage.Height)
			}
			link = fullImage
		} else {
			fullImage = link
		}
	case AlbumContent:
		link = t.absolute(m.URL)
		fullImage = link
	case LinkContent:
		if m.DisplayName != nil {
			title = *m.DisplayName
		}
		link = m.URL
		fullImage = m.FullImageURL
	}

	description := item.Content
	if item.Reshare != nil {
		description = reshareDescription(item.Reshare, description)
	}

	return model.FeedItem{
		Title:       lineBreakPattern.ReplaceAllString(title, " "),
		Link:        link,
		FullImage:   fullImage,
		Description: description,
		GUID:        item.ID,
		PubDate:     FormatRFC2822(item.Updated),
		Published:   item.Updated,
	}
}

// absolute はサイトのベースURLで始まらないURLにベースURLを付与する。
func (t *Transformer) absolute(u string) string {
	if strings.HasPrefix(u, t.siteBaseURL) {
		return u
	}
	return t.siteBaseURL + u
}

// fullSizeImageURL は縮小版の画像URLをオリジナルサイズのURLに書き換える。
// URLにw{width}-h{height}が含まれていればそのまま返す。
// ファイル名の直前にサイズ指定セグメントがあれば s0 に置き換え、
// なければファイル名の前に /s0 を挿入する。
func fullSizeImageURL(u, width, height string) string {
	if strings.Contains(u, fmt.Sprintf("w%s-h%s", width, height)) {
		return u
	}
	if sizeSegment.MatchString(u) {
		return sizeSegment.ReplaceAllString(u, "/s0${1}")
	}
	return jpegPattern.ReplaceAllString(u, "/s0${1}")
}

// reshareDescription は再共有元の情報を含む説明文を組み立てる。
func reshareDescription(r *Reshare, description string) string {
	return fmt.Sprintf("%s <br> \r\n %s <br> \r\n%s (%s) via %s (%s)",
		strings.ReplaceAll(r.Annotation, "<br>", "<br>\r\n"),
		strings.ReplaceAll(description, "<br>", "<br>\r\n"),
		r.ActorName,
		r.URL,
		r.ObjectActorName,
		r.ObjectURL,
	)
}

// truncate は先頭からn文字（rune単位）を返す。
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
