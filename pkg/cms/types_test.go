package cms

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatSize(t *testing.T) {
	tests := []struct {
		bytes    int64
		expected string
	}{
		{0, "0.00 KB"},
		{1, "0.00 KB"},
		{128, "0.13 KB"},
		{512, "0.50 KB"},
		{640, "0.63 KB"},
		{1152, "1.13 KB"},
		{1000, "0.98 KB"},
		{1536, "1.50 KB"},
		{2048, "2.00 KB"},
		{1048576, "1024.00 KB"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, FormatSize(tt.bytes), "bytes=%d", tt.bytes)
	}
}

func TestExposeID(t *testing.T) {
	doc := Document{StorageIDField: "abc123", "title": "x"}
	out := exposeID(doc)

	assert.Equal(t, "abc123", out["id"])
	assert.Equal(t, "x", out["title"])
	assert.NotContains(t, out, StorageIDField)
	assert.Contains(t, doc, StorageIDField, "input is not modified")
}

func TestRecordType_Project(t *testing.T) {
	doc := Document{StorageIDField: "u1", "username": "ada", "password": "$2a$10$hash"}

	out := RecordTypeUsers.project(doc)
	assert.Equal(t, "u1", out["id"])
	assert.NotContains(t, out, "password")

	media := RecordTypeMedia.project(Document{StorageIDField: "m1", "password": "not special here"})
	assert.Contains(t, media, "password")
}

func TestParseRecordType(t *testing.T) {
	for _, name := range []string{"users", "media", "pages", "posts"} {
		rt, err := ParseRecordType(name)
		require.NoError(t, err)
		assert.Equal(t, RecordType(name), rt)
	}

	_, err := ParseRecordType("widgets")
	assert.True(t, errors.Is(err, ErrUnknownType))

	_, err = ParseRecordType("Users")
	assert.ErrorIs(t, err, ErrUnknownType)

	assert.True(t, RecordTypePages.Updatable())
	assert.True(t, RecordTypePosts.Updatable())
	assert.False(t, RecordTypeUsers.Updatable())
	assert.False(t, RecordTypeMedia.Updatable())
	assert.Equal(t, []string{"username"}, RecordTypeUsers.UniqueFields())
}

func TestDocumentRoundTrip(t *testing.T) {
	doc, err := toDocument(&Content{ID: "should-not-persist", Title: "T", Date: "2024-01-01"})
	require.NoError(t, err)
	assert.NotContains(t, doc, "id")
	assert.Equal(t, "T", doc["title"])

	doc[StorageIDField] = "p1"
	content, err := fromDocument[Content](doc)
	require.NoError(t, err)
	assert.Equal(t, "p1", content.ID)
	assert.Equal(t, "T", content.Title)
}

func TestContentPatchDocument(t *testing.T) {
	empty := ""
	title := "New"
	doc := ContentPatch{Title: &title, Author: &empty}.document()

	assert.Equal(t, Document{"title": "New", "author": ""}, doc)
}

func TestErrorsUnwrap(t *testing.T) {
	err := &RecordError{Type: RecordTypePages, ID: "p1", Op: "update", Err: ErrNotFound}
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Contains(t, err.Error(), "p1")

	serr := &StorageError{Backend: "fs", Key: "a.png", Op: "store", Err: errors.New("disk full")}
	assert.Contains(t, serr.Error(), "disk full")
	assert.Contains(t, serr.Error(), "a.png")
}
