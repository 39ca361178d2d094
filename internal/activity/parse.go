package activity

import (
	"errors"
	"fmt"
	"time"

	"github.com/araddon/dateparse"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// ErrNilDocument はParseにnilが渡された場合のエラー。
var ErrNilDocument = errors.New("activity document is nil")

// ParseError は不正なアクティビティを検出した場合のエラー。
// 不正なレコードはスキップせず、文書全体の解析を失敗させる。
type ParseError struct {
	ItemID string
	Reason string
	Err    error
}

// Error はerrorインターフェースを実装する。
func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("activity %q: %s: %v", e.ItemID, e.Reason, e.Err)
	}
	return fmt.Sprintf("activity %q: %s", e.ItemID, e.Reason)
}

// Unwrap は元のエラーを返す。
func (e *ParseError) Unwrap() error {
	return e.Err
}

// Parse は生の文書を検証し、バリアント化されたDocumentへ変換する。
// 項目の順序は元の文書の順序を維持する。
func Parse(raw *RawDocument) (*Document, error) {
	if raw == nil {
		return nil, ErrNilDocument
	}

	doc := &Document{
		Updated: raw.Updated,
		Items:   make([]Item, 0, len(raw.Items)),
	}
	for i := range raw.Items {
		item, err := parseItem(&raw.Items[i])
		if err != nil {
			return nil, err
		}
		doc.Items = append(doc.Items, item)
	}
	return doc, nil
}

func parseItem(raw *RawItem) (Item, error) {
	if err := validate.Struct(raw); err != nil {
		return Item{}, &ParseError{ItemID: raw.ID, Reason: "validation failed", Err: err}
	}

	updated, err := ParseTimestamp(raw.Updated)
	if err != nil {
		return Item{}, &ParseError{ItemID: raw.ID, Reason: "invalid updated timestamp", Err: err}
	}

	media, err := parseMedia(raw)
	if err != nil {
		return Item{}, err
	}

	item := Item{
		ID:      raw.ID,
		Title:   raw.Title,
		Updated: updated,
		Content: raw.Object.Content,
		Media:   media,
	}

	if raw.Verb == "share" {
		reshare, err := parseReshare(raw)
		if err != nil {
			return Item{}, err
		}
		item.Reshare = reshare
	}

	return item, nil
}

func parseMedia(raw *RawItem) (Content, error) {
	obj := raw.Object
	if obj.nullAttachments {
		return nil, &ParseError{ItemID: raw.ID, Reason: "attachments is null"}
	}
	if obj.Attachments != nil && len(obj.Attachments) == 0 {
		return nil, &ParseError{ItemID: raw.ID, Reason: "attachments is empty"}
	}
	category := classifyAttachments(obj.Attachments)

	if category == CategoryText {
		if obj.URL == "" {
			return nil, &ParseError{ItemID: raw.ID, Reason: "text activity has no object.url"}
		}
		return TextContent{URL: obj.URL}, nil
	}

	att := obj.Attachments[0]

	switch category {
	case CategoryPhoto:
		if att.URL == nil {
			return nil, &ParseError{ItemID: raw.ID, Reason: "photo attachment has no url"}
		}
		photo := PhotoContent{URL: *att.URL}
		if fi := att.FullImage; fi != nil {
			if fi.URL == "" {
				return nil, &ParseError{ItemID: raw.ID, Reason: "photo fullImage has no url"}
			}
			img := &FullImage{URL: fi.URL}
			if fi.Width != nil {
				if fi.Height == nil {
					return nil, &ParseError{ItemID: raw.ID, Reason: "photo fullImage has width but no height"}
				}
				img.Width = fi.Width.String()
				img.Height = fi.Height.String()
				img.HasSize = true
			}
			photo.FullImage = img
		}
		return photo, nil

	case CategoryAlbum:
		if att.URL == nil {
			return nil, &ParseError{ItemID: raw.ID, Reason: "album attachment has no url"}
		}
		return AlbumContent{URL: *att.URL}, nil

	default:
		link := LinkContent{DisplayName: att.DisplayName}
		switch {
		case att.URL != nil:
			link.URL = *att.URL
		case obj.URL != "":
			link.URL = obj.URL
		case raw.URL != "":
			link.URL = raw.URL
		default:
			return nil, &ParseError{ItemID: raw.ID, Reason: "link activity has no url"}
		}
		if fi := att.FullImage; fi != nil {
			if fi.URL == "" {
				return nil, &ParseError{ItemID: raw.ID, Reason: "link fullImage has no url"}
			}
			link.FullImageURL = fi.URL
		}
		return link, nil
	}
}

func parseReshare(raw *RawItem) (*Reshare, error) {
	switch {
	case raw.URL == "":
		return nil, &ParseError{ItemID: raw.ID, Reason: "reshare has no url"}
	case raw.Actor == nil:
		return nil, &ParseError{ItemID: raw.ID, Reason: "reshare has no actor"}
	case raw.Object.URL == "":
		return nil, &ParseError{ItemID: raw.ID, Reason: "reshare has no object.url"}
	case raw.Object.Actor == nil:
		return nil, &ParseError{ItemID: raw.ID, Reason: "reshare has no object.actor"}
	}

	r := &Reshare{
		URL:             raw.URL,
		ActorName:       raw.Actor.DisplayName,
		ObjectURL:       raw.Object.URL,
		ObjectActorName: raw.Object.Actor.DisplayName,
	}
	if raw.Annotation != nil {
		r.Annotation = *raw.Annotation
	}
	return r, nil
}

// ParseTimestamp はAPIのタイムスタンプ文字列を解析し、UTCの時刻を返す。
func ParseTimestamp(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, errors.New("timestamp is empty")
	}
	t, err := dateparse.ParseAny(s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t.UTC(), nil
}

// FormatRFC2822 は時刻をRSSのpubDate形式（RFC 2822）に整形する。
func FormatRFC2822(t time.Time) string {
	return t.UTC().Format(time.RFC1123Z)
}
