// Package content loads note content from JSON files and persists published
// content and publish reports as timestamped JSON artifacts.
package content

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/wszrw123/xiaohongshu-automation/internal/types"
)

// timestampFormat uses dashes instead of colons for filesystem compatibility.
const timestampFormat = "2006-01-02T15-04-05"

// Load reads a content record from a JSON file, normalizing the legacy
// "body" field name and missing fields.
func Load(path string) (types.ContentRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return types.ContentRecord{}, fmt.Errorf("failed to read content file: %w", err)
	}

	var raw struct {
		Title   string   `json:"title"`
		Content string   `json:"content"`
		Body    string   `json:"body"`
		Tags    []string `json:"tags"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return types.ContentRecord{}, fmt.Errorf("failed to parse content file: %w", err)
	}

	body := raw.Content
	if body == "" {
		body = raw.Body
	}
	tags := raw.Tags
	if tags == nil {
		tags = []string{}
	}

	return types.ContentRecord{Title: raw.Title, Body: body, Tags: tags}, nil
}

// Store persists content records and publish reports.
type Store struct {
	contentDir string
	reportsDir string
	log        *log.Logger
}

// NewStore creates a Store writing under the given directories.
func NewStore(contentDir, reportsDir string, logger *log.Logger) *Store {
	return &Store{contentDir: contentDir, reportsDir: reportsDir, log: logger}
}

// SaveContent writes the record to a timestamped post_*.json file and
// returns its path.
func (s *Store) SaveContent(rec types.ContentRecord) (string, error) {
	if err := os.MkdirAll(s.contentDir, 0755); err != nil {
		return "", err
	}

	path := filepath.Join(s.contentDir, "post_"+time.Now().Format(timestampFormat)+".json")
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", err
	}

	s.log.Printf("content saved: %s", path)
	return path, nil
}

// SaveReport persists the audit record for one terminal attempt sequence as
// a timestamped report_*.json file and returns its path. One file per
// sequence; existing reports are never rewritten.
func (s *Store) SaveReport(rec types.ContentRecord, res types.WorkflowResult) (string, error) {
	if err := os.MkdirAll(s.reportsDir, 0755); err != nil {
		return "", err
	}

	report := types.PublishReport{
		Time:   time.Now(),
		Title:  rec.Title,
		Tags:   rec.Tags,
		Result: res,
	}

	path := filepath.Join(s.reportsDir, "report_"+time.Now().Format(timestampFormat)+".json")
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", err
	}

	s.log.Printf("report saved: %s", path)
	return path, nil
}
