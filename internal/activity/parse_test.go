package activity

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_PreservesOrderAndUpdated(t *testing.T) {
	doc := sampleDocument(t)

	assert.Equal(t, "2021-01-01T00:00:00Z", doc.Updated)
	ids := make([]string, 0, len(doc.Items))
	for _, item := range doc.Items {
		ids = append(ids, item.ID)
	}
	assert.Equal(t, []string{"text-1", "photo-1", "album-1", "link-1"}, ids)
}

func TestParse_NilDocument(t *testing.T) {
	_, err := Parse(nil)
	assert.ErrorIs(t, err, ErrNilDocument)
}

func TestParse_EmptyDocument(t *testing.T) {
	doc, err := Parse(decodeRaw(t, `{}`))
	require.NoError(t, err)
	assert.Empty(t, doc.Items)
}

func TestParse_PhotoSize(t *testing.T) {
	doc := sampleDocument(t)

	photo, ok := doc.Items[1].Media.(PhotoContent)
	require.True(t, ok)
	require.NotNil(t, photo.FullImage)
	assert.True(t, photo.FullImage.HasSize)
	assert.Equal(t, "1024", photo.FullImage.Width)
	assert.Equal(t, "768", photo.FullImage.Height)
}

func TestParse_MalformedRecords(t *testing.T) {
	tests := []struct {
		name string
		item string
	}{
		{"idなし", `{"verb":"post","updated":"2021-01-01T00:00:00Z","object":{"url":"https://x"}}`},
		{"verbなし", `{"id":"x","updated":"2021-01-01T00:00:00Z","object":{"url":"https://x"}}`},
		{"objectなし", `{"id":"x","verb":"post","updated":"2021-01-01T00:00:00Z"}`},
		{"不正なupdated", `{"id":"x","verb":"post","updated":"not a date","object":{"url":"https://x"}}`},
		{"空の添付配列", `{"id":"x","verb":"post","updated":"2021-01-01T00:00:00Z","object":{"attachments":[]}}`},
		{"textにobject.urlなし", `{"id":"x","verb":"post","updated":"2021-01-01T00:00:00Z","object":{"content":"c"}}`},
		{"photoにurlなし", `{"id":"x","verb":"post","updated":"2021-01-01T00:00:00Z","object":{"attachments":[{"objectType":"photo"}]}}`},
		{"photoのfullImageにurlなし", `{"id":"x","verb":"post","updated":"2021-01-01T00:00:00Z","object":{"attachments":[{"objectType":"photo","url":"/p","fullImage":{}}]}}`},
		{"photoのfullImageにheightなし", `{"id":"x","verb":"post","updated":"2021-01-01T00:00:00Z","object":{"attachments":[{"objectType":"photo","url":"/p","fullImage":{"url":"https://x/a.jpg","width":10}}]}}`},
		{"albumにurlなし", `{"id":"x","verb":"post","updated":"2021-01-01T00:00:00Z","object":{"attachments":[{"objectType":"album"}]}}`},
		{"attachmentsがnull", `{"id":"x","verb":"post","updated":"2021-01-01T00:00:00Z","object":{"url":"https://x","attachments":null}}`},
		{"linkのfullImageにurlなし", `{"id":"x","verb":"post","updated":"2021-01-01T00:00:00Z","object":{"attachments":[{"objectType":"article","url":"https://x/a","fullImage":{}}]}}`},
		{"linkのfullImageのurlが空", `{"id":"x","verb":"post","updated":"2021-01-01T00:00:00Z","object":{"attachments":[{"objectType":"article","url":"https://x/a","fullImage":{"url":""}}]}}`},
		{"linkにurlなし", `{"id":"x","verb":"post","updated":"2021-01-01T00:00:00Z","object":{"attachments":[{"objectType":"article"}]}}`},
		{"reshareにactorなし", `{"id":"x","verb":"share","updated":"2021-01-01T00:00:00Z","url":"https://x/r","object":{"url":"https://x","actor":{"displayName":"b"}}}`},
		{"reshareにobject.actorなし", `{"id":"x","verb":"share","updated":"2021-01-01T00:00:00Z","url":"https://x/r","actor":{"displayName":"a"},"object":{"url":"https://x"}}`},
		{"reshareにurlなし", `{"id":"x","verb":"share","updated":"2021-01-01T00:00:00Z","actor":{"displayName":"a"},"object":{"url":"https://x","actor":{"displayName":"b"}}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(decodeRaw(t, `{"items":[`+tt.item+`]}`))
			require.Error(t, err)

			var perr *ParseError
			assert.True(t, errors.As(err, &perr), "ParseError expected, got %T", err)
		})
	}
}

func TestParse_MalformedRecordIsNotSkipped(t *testing.T) {
	_, err := Parse(decodeRaw(t, `{"items":[
		{"id":"ok","verb":"post","updated":"2021-01-01T00:00:00Z","object":{"url":"https://x"}},
		{"id":"broken","verb":"post","updated":"2021-01-01T00:00:00Z","object":{"attachments":[{"objectType":"photo"}]}}
	]}`))

	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "broken", perr.ItemID)
}

func TestParse_NullAttachmentsDiffersFromAbsent(t *testing.T) {
	doc, err := Parse(decodeRaw(t, `{"items":[{"id":"a","verb":"post","updated":"2021-01-01T00:00:00Z","object":{"url":"https://x"}}]}`))
	require.NoError(t, err)
	assert.Equal(t, TextContent{URL: "https://x"}, doc.Items[0].Media)

	_, err = Parse(decodeRaw(t, `{"items":[{"id":"n","verb":"post","updated":"2021-01-01T00:00:00Z","object":{"url":"https://x","attachments":null}}]}`))
	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "n", perr.ItemID)
	assert.Equal(t, "attachments is null", perr.Reason)
}

func TestParseTimestamp(t *testing.T) {
	ts, err := ParseTimestamp("2021-01-01T09:00:00+09:00")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC), ts)
	assert.Equal(t, time.UTC, ts.Location())

	_, err = ParseTimestamp("")
	assert.Error(t, err)
}

func TestFormatRFC2822(t *testing.T) {
	ts := time.Date(2014, 3, 1, 5, 10, 31, 0, time.FixedZone("JST", 9*60*60))
	assert.Equal(t, "Fri, 28 Feb 2014 20:10:31 +0000", FormatRFC2822(ts))
}
