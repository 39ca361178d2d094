// Package model はドメインモデルを定義する。
package model

import "time"

// FeedItem はRSSに出力される正規化済みのフィード項目を表す。
// Transformerが生成し、生成後は変更しない。
type FeedItem struct {
	Title       string // 改行は空白に置換済み
	Link        string
	FullImage   string // 画像がない場合は空文字列
	Description string // HTMLを含む
	GUID        string // 元アクティビティのID
	PubDate     string // RFC 2822形式
	Published   time.Time
}

// HasImage はフルサイズ画像のURLを持つかを返す。
func (i FeedItem) HasImage() bool {
	return i.FullImage != ""
}
