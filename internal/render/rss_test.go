package render

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hitoshi/activityfeed/internal/model"
	"github.com/hitoshi/activityfeed/internal/security"
)

var testPubDate = time.Date(2021, 1, 2, 3, 4, 5, 0, time.UTC)

func testMeta(filter string) Meta {
	return Meta{
		Version:     "0.5.0",
		UserID:      "12345",
		Filter:      filter,
		PubDate:     testPubDate,
		SiteBaseURL: "https://plus.google.com",
	}
}

func testItems() []model.FeedItem {
	published := time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)
	return []model.FeedItem{
		{
			Title:       "Hello world",
			Link:        "https://plus.google.com/1/posts/a",
			Description: "hello <b>world</b><script>alert(1)</script>",
			GUID:        "text-1",
			PubDate:     "Fri, 01 Jan 2021 00:00:00 +0000",
			Published:   published,
		},
		{
			Title:       "A photo",
			Link:        "https://lh3.example.com/a/b/s0/IMG_0001.jpg",
			FullImage:   "https://lh3.example.com/a/b/s0/IMG_0001.jpg",
			Description: "photo",
			GUID:        "photo-1",
			PubDate:     "Thu, 31 Dec 2020 23:00:00 +0000",
			Published:   published.Add(-time.Hour),
		},
		{
			Title:       "Example Article",
			Link:        "https://example.com/article",
			FullImage:   "https://example.com/thumb.png",
			Description: "link",
			GUID:        "link-1",
			Published:   published.Add(-2 * time.Hour),
		},
	}
}

func renderAndParse(t *testing.T, r *Renderer, meta Meta, items []model.FeedItem) (string, *gofeed.Feed) {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, r.Write(&buf, meta, items))

	feed, err := gofeed.NewParser().ParseString(buf.String())
	require.NoError(t, err, buf.String())
	return buf.String(), feed
}

func TestRenderer_Write_Channel(t *testing.T) {
	out, feed := renderAndParse(t, NewRenderer(nil), testMeta(""), nil)

	assert.Equal(t, "rss", feed.FeedType)
	assert.Equal(t, "Activity of 12345", feed.Title)
	assert.Equal(t, "https://plus.google.com/12345", feed.Link)
	assert.Contains(t, feed.Description, "0.5.0")
	assert.Contains(t, out, "<pubDate>Sat, 02 Jan 2021 03:04:05 +0000</pubDate>")
	assert.Empty(t, feed.Items)
}

func TestRenderer_Write_FilterLabel(t *testing.T) {
	_, feed := renderAndParse(t, NewRenderer(nil), testMeta("photo"), nil)
	assert.Equal(t, "Activity of 12345 [photo]", feed.Title)
}

func TestRenderer_Write_ItemsInOrder(t *testing.T) {
	out, feed := renderAndParse(t, NewRenderer(nil), testMeta(""), testItems())

	require.Len(t, feed.Items, 3)
	var guids []string
	for _, item := range feed.Items {
		guids = append(guids, item.GUID)
	}
	assert.Equal(t, []string{"text-1", "photo-1", "link-1"}, guids)

	assert.Equal(t, "Hello world", feed.Items[0].Title)
	assert.Equal(t, "https://plus.google.com/1/posts/a", feed.Items[0].Link)
	assert.Contains(t, out, "<pubDate>Fri, 01 Jan 2021 00:00:00 +0000</pubDate>")
	assert.Contains(t, out, "<pubDate>Thu, 31 Dec 2020 23:00:00 +0000</pubDate>")
}

func TestRenderer_Write_GUIDIsNotPermaLink(t *testing.T) {
	out, feed := renderAndParse(t, NewRenderer(nil), testMeta(""), testItems())

	for _, id := range []string{"text-1", "photo-1", "link-1"} {
		assert.Contains(t, out, `<guid isPermaLink="false">`+id+`</guid>`)
	}
	assert.NotContains(t, out, `<guid>`)
	require.Len(t, feed.Items, 3)
	assert.Equal(t, "text-1", feed.Items[0].GUID)
}

func TestRenderer_Write_Enclosures(t *testing.T) {
	_, feed := renderAndParse(t, NewRenderer(nil), testMeta(""), testItems())
	require.Len(t, feed.Items, 3)

	assert.Empty(t, feed.Items[0].Enclosures, "text item has no image")

	require.Len(t, feed.Items[1].Enclosures, 1)
	assert.Equal(t, "https://lh3.example.com/a/b/s0/IMG_0001.jpg", feed.Items[1].Enclosures[0].URL)
	assert.Equal(t, "image/jpeg", feed.Items[1].Enclosures[0].Type)

	require.Len(t, feed.Items[2].Enclosures, 1)
	assert.Equal(t, "image/png", feed.Items[2].Enclosures[0].Type)
}

func TestRenderer_Write_SanitizesDescription(t *testing.T) {
	_, feed := renderAndParse(t, NewRenderer(security.NewContentSanitizer()), testMeta(""), testItems())
	require.NotEmpty(t, feed.Items)

	desc := feed.Items[0].Description
	assert.Contains(t, desc, "<b>world</b>")
	assert.NotContains(t, desc, "script")
	assert.NotContains(t, desc, "alert")
}

func TestRenderer_Write_WithoutSanitizerKeepsDescription(t *testing.T) {
	_, feed := renderAndParse(t, NewRenderer(nil), testMeta(""), testItems())
	require.NotEmpty(t, feed.Items)
	assert.True(t, strings.HasPrefix(feed.Items[0].Description, "hello <b>world</b>"))
}

func TestImageType(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://example.com/a.jpg", "image/jpeg"},
		{"https://example.com/a.PNG", "image/png"},
		{"https://example.com/a.gif?size=2", "image/gif"},
		{"https://example.com/photos/1/albums/2", "image/jpeg"},
	}
	for _, tt := range tests {
		if got := imageType(tt.url); got != tt.want {
			t.Errorf("imageType(%q) = %q, want %q", tt.url, got, tt.want)
		}
	}
}
