package activity

import "strings"

// Allows はフィルタ文字列がカテゴリの出力を許可するかを返す。
//
// フィルタは部分文字列で照合する（"links-extra" は "links" を含む）。
// クライアントのクエリに既存の文字列が残っているため、この規則は変更しない。
//   - photo: 空、または "photo" を含む場合のみ出力
//   - album, link: 空、または "links" を含む場合のみ出力
//   - text: "links-" または "photo" を含む場合のみ除外
func Allows(filter string, category Category) bool {
	if filter == "" {
		return true
	}
	switch category {
	case CategoryPhoto:
		return strings.Contains(filter, "photo")
	case CategoryAlbum, CategoryLink:
		return strings.Contains(filter, "links")
	default:
		return !strings.Contains(filter, "links-") && !strings.Contains(filter, "photo")
	}
}
