package app

import (
	"io"
	"log"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wszrw123/xiaohongshu-automation/internal/config"
	"github.com/wszrw123/xiaohongshu-automation/internal/notifier"
	"github.com/wszrw123/xiaohongshu-automation/internal/types"
)

type fakeSender struct {
	sent []string
}

func (f *fakeSender) Send(to, subject, body string) error {
	f.sent = append(f.sent, subject)
	return nil
}

func newTestApp(t *testing.T) (*App, *fakeSender) {
	t.Helper()

	root := t.TempDir()
	paths := Paths{
		ConfigDir:      filepath.Join(root, "config"),
		ContentDir:     filepath.Join(root, "content"),
		ReportsDir:     filepath.Join(root, "reports"),
		ScreenshotsDir: filepath.Join(root, "screenshots"),
		ProfileDir:     filepath.Join(root, "profile"),
		HistoryPath:    filepath.Join(root, "history.db"),
	}
	require.NoError(t, paths.Ensure())

	a, err := New(config.Default(), paths, log.New(io.Discard, "", 0))
	require.NoError(t, err)
	t.Cleanup(a.Close)

	sender := &fakeSender{}
	a.notifier = notifier.New(sender, "ops@example.com")
	return a, sender
}

func TestRecordNotifiesOnlyOnFailure(t *testing.T) {
	t.Parallel()

	a, sender := newTestApp(t)
	rec := types.ContentRecord{Title: "morning note", Tags: []string{"life"}}

	a.record(rec, types.WorkflowResult{Status: types.StatusSuccess, Success: true}, false)
	assert.Empty(t, sender.sent)

	a.record(rec, types.WorkflowResult{Status: types.StatusDryRun, Success: true}, true)
	assert.Empty(t, sender.sent)

	a.record(rec, types.WorkflowResult{Status: types.StatusMaxRetries, Error: "gave up"}, false)
	require.Len(t, sender.sent, 1)
	assert.Contains(t, sender.sent[0], "failed")
}

func TestRecordPersistsHistory(t *testing.T) {
	t.Parallel()

	a, _ := newTestApp(t)
	rec := types.ContentRecord{Title: "evening note", Tags: []string{"food", "travel"}}

	a.record(rec, types.WorkflowResult{Status: types.StatusSuccess, Success: true}, false)

	entries, err := a.history.Recent(10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "evening note", entries[0].Title)
	assert.Equal(t, types.StatusSuccess, entries[0].Status)
	assert.True(t, entries[0].Success)
	assert.NotEmpty(t, entries[0].ReportPath)
}
