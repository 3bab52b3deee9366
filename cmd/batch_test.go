package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeBatchFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "events.jsonl")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestReadBatchFile(t *testing.T) {
	path := writeBatchFile(t, `{"venue": "cinema", "event": {"title": "Mystery Train"}}
{"venue": "arthouse", "event": {"title": "Stalker", "dates": ["2026-03-01"]}}
`)

	items, err := readBatchFile(path, 0)

	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "cinema", items[0].Venue)
	assert.Equal(t, "Mystery Train", items[0].Event.Title())
	assert.Equal(t, []string{"2026-03-01"}, items[1].Event.Strings("dates"))
}

func TestReadBatchFile_SkipsBlankLines(t *testing.T) {
	path := writeBatchFile(t, `{"venue": "cinema", "event": {"title": "A"}}

{"venue": "cinema", "event": {"title": "B"}}
`)

	items, err := readBatchFile(path, 0)

	require.NoError(t, err)
	assert.Len(t, items, 2)
}

func TestReadBatchFile_Limit(t *testing.T) {
	path := writeBatchFile(t, `{"venue": "cinema", "event": {"title": "A"}}
{"venue": "cinema", "event": {"title": "B"}}
{"venue": "cinema", "event": {"title": "C"}}
`)

	items, err := readBatchFile(path, 2)

	require.NoError(t, err)
	assert.Len(t, items, 2)
}

func TestReadBatchFile_MissingVenue(t *testing.T) {
	path := writeBatchFile(t, `{"event": {"title": "A"}}`)

	_, err := readBatchFile(path, 0)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "venue is required")
}

func TestReadBatchFile_MalformedLine(t *testing.T) {
	path := writeBatchFile(t, `{"venue": "cinema", "event": {"title": "A"}}
not json
`)

	_, err := readBatchFile(path, 0)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode line 2")
}

func TestReadBatchFile_Array(t *testing.T) {
	path := writeBatchFile(t, `
	[
		{"venue": "cinema", "event": {"title": "Mystery Train"}},
		{"venue": "arthouse", "event": {"title": "Stalker", "dates": ["2026-03-01"]}}
	]`)

	items, err := readBatchFile(path, 0)

	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "cinema", items[0].Venue)
	assert.Equal(t, "Mystery Train", items[0].Event.Title())
	assert.Equal(t, []string{"2026-03-01"}, items[1].Event.Strings("dates"))
}

func TestReadBatchFile_ArrayLimit(t *testing.T) {
	path := writeBatchFile(t, `[
		{"venue": "cinema", "event": {"title": "A"}},
		{"venue": "cinema", "event": {"title": "B"}},
		{"venue": "cinema", "event": {"title": "C"}}
	]`)

	items, err := readBatchFile(path, 2)

	require.NoError(t, err)
	assert.Len(t, items, 2)
}

func TestReadBatchFile_ArrayMissingVenue(t *testing.T) {
	path := writeBatchFile(t, `[
		{"venue": "cinema", "event": {"title": "A"}},
		{"event": {"title": "B"}}
	]`)

	_, err := readBatchFile(path, 0)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "item 2: venue is required")
}

func TestReadBatchFile_MissingFile(t *testing.T) {
	_, err := readBatchFile(filepath.Join(t.TempDir(), "nope.jsonl"), 0)
	assert.Error(t, err)
}
