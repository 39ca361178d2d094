package activity

import "time"

// Category はフィード項目の分類。
type Category string

const (
	CategoryText  Category = "text"
	CategoryPhoto Category = "photo"
	CategoryAlbum Category = "album"
	CategoryLink  Category = "link"
)

// Content はアクティビティ本体のバリアント。
// TextContent, PhotoContent, AlbumContent, LinkContent のいずれか。
type Content interface {
	Category() Category
}

// TextContent は添付のない投稿。
type TextContent struct {
	URL string
}

// PhotoContent は写真添付を持つ投稿。
type PhotoContent struct {
	URL       string     // 添付のURL（相対パスの場合がある）
	FullImage *FullImage // 省略可
}

// FullImage は写真のフルサイズ画像。
// Width/Heightはどちらも指定されている場合のみHasSizeがtrueとなる。
type FullImage struct {
	URL     string
	Width   string
	Height  string
	HasSize bool
}

// AlbumContent はアルバム添付を持つ投稿。
type AlbumContent struct {
	URL string
}

// LinkContent はリンク（または未知のobjectType）添付を持つ投稿。
type LinkContent struct {
	DisplayName  *string
	URL          string // 添付URL、object.url、item.url の順で解決済み
	FullImageURL string
}

func (TextContent) Category() Category  { return CategoryText }
func (PhotoContent) Category() Category { return CategoryPhoto }
func (AlbumContent) Category() Category { return CategoryAlbum }
func (LinkContent) Category() Category  { return CategoryLink }

// Reshare は他ユーザーのアクティビティを再共有した際の付加情報。
type Reshare struct {
	Annotation      string
	URL             string
	ActorName       string
	ObjectURL       string
	ObjectActorName string
}

// Item は検証済みのアクティビティ。
type Item struct {
	ID      string
	Title   string
	Updated time.Time
	Content string // object.content
	Media   Content
	Reshare *Reshare // verbが"share"の場合のみ設定される
}

// Document は検証済みのアクティビティ文書。
type Document struct {
	Updated string
	Items   []Item
}

// Classify はアクティビティのカテゴリを返す。
func Classify(item Item) Category {
	return item.Media.Category()
}

// classifyAttachments は添付の有無と先頭要素のobjectTypeからカテゴリを決める。
// objectTypeが未指定の場合はlinkとして扱う。
func classifyAttachments(attachments []RawAttachment) Category {
	if attachments == nil {
		return CategoryText
	}
	objectType := "link"
	if t := attachments[0].ObjectType; t != nil {
		objectType = *t
	}
	switch objectType {
	case "photo":
		return CategoryPhoto
	case "album":
		return CategoryAlbum
	default:
		return CategoryLink
	}
}
