package activity

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hitoshi/activityfeed/internal/model"
)

// sampleDocumentJSON はカテゴリごとに1件ずつアクティビティを含む文書。
const sampleDocumentJSON = `{
  "updated": "2021-01-01T00:00:00Z",
  "items": [
    {
      "id": "text-1",
      "verb": "post",
      "title": "Hello\nworld",
      "updated": "2021-01-01T00:00:00Z",
      "url": "https://plus.google.com/1/posts/text-1",
      "object": {
        "content": "Hello<br>world",
        "url": "https://plus.google.com/1/posts/text-1"
      }
    },
    {
      "id": "photo-1",
      "verb": "post",
      "title": "A photo",
      "updated": "2020-12-31T23:00:00.000Z",
      "object": {
        "content": "photo content",
        "url": "https://plus.google.com/1/posts/photo-1",
        "attachments": [
          {
            "objectType": "photo",
            "url": "/photos/1/albums/2/3",
            "fullImage": {
              "url": "https://lh3.example.com/a/b/s320/IMG_0001.jpg",
              "width": 1024,
              "height": 768
            }
          }
        ]
      }
    },
    {
      "id": "album-1",
      "verb": "post",
      "title": "An album",
      "updated": "2020-12-31T22:00:00Z",
      "object": {
        "content": "album content",
        "url": "https://plus.google.com/1/posts/album-1",
        "attachments": [
          {"objectType": "album", "url": "/photos/1/albums/2"}
        ]
      }
    },
    {
      "id": "link-1",
      "verb": "post",
      "title": "A link",
      "updated": "2020-12-31T21:00:00Z",
      "object": {
        "content": "link content",
        "url": "https://plus.google.com/1/posts/link-1",
        "attachments": [
          {
            "displayName": "Example Article",
            "url": "https://example.com/article",
            "fullImage": {"url": "https://example.com/thumb.png"}
          }
        ]
      }
    }
  ]
}`

func decodeRaw(t *testing.T, data string) *RawDocument {
	t.Helper()
	var raw RawDocument
	require.NoError(t, json.Unmarshal([]byte(data), &raw))
	return &raw
}

func sampleDocument(t *testing.T) *Document {
	t.Helper()
	doc, err := Parse(decodeRaw(t, sampleDocumentJSON))
	require.NoError(t, err)
	return doc
}

func guids(items []model.FeedItem) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.GUID)
	}
	return out
}
