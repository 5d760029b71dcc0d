package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wszrw123/xiaohongshu-automation/internal/types"
)

func openTestHistory(t *testing.T) *History {
	t.Helper()
	h, err := Open(filepath.Join(t.TempDir(), "data", "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { h.Close() })
	return h
}

func TestRecordAndRecent(t *testing.T) {
	h := openTestHistory(t)

	first := &Entry{
		Title:      "第一篇",
		Tags:       []string{"a", "b"},
		Status:     types.StatusSuccess,
		Success:    true,
		ReportPath: "/reports/report_1.json",
		CreatedAt:  time.Now().Add(-time.Hour),
	}
	second := &Entry{
		Title:   "第二篇",
		Status:  types.StatusMaxRetries,
		Success: false,
		Error:   "upload_failed",
		DryRun:  false,
	}

	require.NoError(t, h.Record(first))
	require.NoError(t, h.Record(second))

	entries, err := h.Recent(10)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	// Newest first.
	assert.Equal(t, "第二篇", entries[0].Title)
	assert.Equal(t, types.StatusMaxRetries, entries[0].Status)
	assert.False(t, entries[0].Success)
	assert.Equal(t, "upload_failed", entries[0].Error)

	assert.Equal(t, "第一篇", entries[1].Title)
	assert.Equal(t, []string{"a", "b"}, entries[1].Tags)
	assert.True(t, entries[1].Success)
	assert.Equal(t, "/reports/report_1.json", entries[1].ReportPath)
}

func TestRecentLimit(t *testing.T) {
	h := openTestHistory(t)

	for i := 0; i < 5; i++ {
		require.NoError(t, h.Record(&Entry{Title: "post", Status: types.StatusDryRun, Success: true, DryRun: true}))
	}

	entries, err := h.Recent(3)
	require.NoError(t, err)
	assert.Len(t, entries, 3)
	assert.True(t, entries[0].DryRun)
}

func TestRecentEmpty(t *testing.T) {
	h := openTestHistory(t)

	entries, err := h.Recent(10)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRecordFillsCreatedAt(t *testing.T) {
	h := openTestHistory(t)

	e := &Entry{Title: "t", Status: types.StatusSuccess, Success: true}
	require.NoError(t, h.Record(e))
	assert.False(t, e.CreatedAt.IsZero())
}
