// Package activity はリモートAPIから取得したアクティビティ文書を
// RSS向けのフィード項目へ変換する。
//
// 変換は次の2段階で行う。
//   - Parse: 生のJSON文書を検証し、添付の有無とobjectTypeから
//     text/photo/album/link のいずれかのバリアントへ変換する。
//   - ProcessItems: フィルタを適用し、カテゴリごとの抽出規則で
//     model.FeedItem を生成する。
package activity

import (
	"bytes"
	"encoding/json"
)

// DefaultMaxResults は1回のフェッチで取得するアクティビティ数のプロセス共通既定値。
// HTTPエンドポイントは設定値（既定4）を優先する。
const DefaultMaxResults = 6

// RawDocument はリモートAPIのレスポンス文書。
type RawDocument struct {
	Updated string    `json:"updated"`
	Items   []RawItem `json:"items"`
}

// RawItem は1件のアクティビティ。
type RawItem struct {
	ID         string     `json:"id" validate:"required"`
	Verb       string     `json:"verb" validate:"required"`
	Title      string     `json:"title"`
	Updated    string     `json:"updated" validate:"required"`
	URL        string     `json:"url"`
	Annotation *string    `json:"annotation"`
	Actor      *RawActor  `json:"actor"`
	Object     *RawObject `json:"object" validate:"required"`
}

// RawActor はアクティビティの投稿者。
type RawActor struct {
	DisplayName string `json:"displayName"`
}

// RawObject はアクティビティの本体。
type RawObject struct {
	Content     string          `json:"content"`
	URL         string          `json:"url"`
	Actor       *RawActor       `json:"actor"`
	Attachments []RawAttachment `json:"attachments" validate:"omitempty,min=1"`

	// attachmentsがnullとして明示されていた
	nullAttachments bool
}

// UnmarshalJSON はattachmentsの欠落とnullを区別して復元する。
func (o *RawObject) UnmarshalJSON(data []byte) error {
	type plain RawObject
	var aux struct {
		plain
		Attachments json.RawMessage `json:"attachments"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	*o = RawObject(aux.plain)
	o.Attachments = nil
	switch {
	case len(aux.Attachments) == 0:
	case bytes.Equal(bytes.TrimSpace(aux.Attachments), []byte("null")):
		o.nullAttachments = true
	default:
		if err := json.Unmarshal(aux.Attachments, &o.Attachments); err != nil {
			return err
		}
	}
	return nil
}

// RawAttachment はアクティビティに埋め込まれたメディアまたはリンク。
// 参照するのは先頭要素のみ。
type RawAttachment struct {
	ObjectType  *string       `json:"objectType"`
	URL         *string       `json:"url"`
	DisplayName *string       `json:"displayName"`
	FullImage   *RawFullImage `json:"fullImage"`
}

// RawFullImage はフルサイズ画像の情報。
type RawFullImage struct {
	URL    string       `json:"url"`
	Width  *json.Number `json:"width"`
	Height *json.Number `json:"height"`
}
