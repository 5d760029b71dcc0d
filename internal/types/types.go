package types

import "time"

// Xiaohongshu enforces these limits in the composer UI. Anything longer is
// clipped before the workflow touches the page, never mid-run.
const (
	TitleLimit = 20
	BodyLimit  = 1000
)

// ContentRecord is one note to publish. Immutable once handed to the
// workflow.
type ContentRecord struct {
	Title string   `json:"title"`
	Body  string   `json:"content"`
	Tags  []string `json:"tags"`
}

// Truncated returns a copy of the record with title and body clipped to the
// platform limits, and reports whether anything was clipped. Calling it on an
// already-truncated record is a no-op.
func (c ContentRecord) Truncated() (ContentRecord, bool) {
	clipped := false
	if title := []rune(c.Title); len(title) > TitleLimit {
		c.Title = string(title[:TitleLimit])
		clipped = true
	}
	if body := []rune(c.Body); len(body) > BodyLimit {
		c.Body = string(body[:BodyLimit])
		clipped = true
	}
	return c, clipped
}

// MediaSet is an ordered list of image file paths to attach to a note.
type MediaSet []string

// Status classifies the terminal state of one publish attempt or retry
// sequence.
type Status string

const (
	StatusInit               Status = "init"
	StatusNotLoggedIn        Status = "not_logged_in"
	StatusNoImage            Status = "no_image"
	StatusUploadFailed       Status = "upload_failed"
	StatusPublishBtnNotFound Status = "publish_btn_not_found"
	StatusDryRun             Status = "dry_run"
	StatusSuccess            Status = "success"
	StatusPossibleSuccess    Status = "possible_success"
	StatusUncertain          Status = "uncertain"
	StatusError              Status = "error"
	StatusLoginFailed        Status = "login_failed"
	StatusMaxRetries         Status = "max_retries_exceeded"
)

// WorkflowResult is the outcome of one publish attempt. Produced fresh per
// attempt and never mutated after return.
type WorkflowResult struct {
	Status  Status    `json:"status"`
	Success bool      `json:"success"`
	Time    time.Time `json:"time"`
	Error   string    `json:"error,omitempty"`
}

// PublishReport is the persisted audit record for one attempt sequence.
type PublishReport struct {
	Time   time.Time      `json:"time"`
	Title  string         `json:"title"`
	Tags   []string       `json:"tags"`
	Result WorkflowResult `json:"result"`
}
