// Package notifier emails publish outcomes to the operator. Entirely
// optional; the publish pipeline never depends on it succeeding.
package notifier

import (
	"fmt"

	"github.com/wszrw123/xiaohongshu-automation/internal/config"
	"github.com/wszrw123/xiaohongshu-automation/internal/notifier/providers"
	"github.com/wszrw123/xiaohongshu-automation/internal/types"
)

// Sender defines the interface for email sending.
type Sender interface {
	Send(to, subject, body string) error
}

// Notifier sends publish outcome notifications.
type Notifier struct {
	sender Sender
	to     string
}

// New creates a notifier with the given sender.
func New(sender Sender, to string) *Notifier {
	return &Notifier{sender: sender, to: to}
}

// NewFromConfig builds a notifier from the email config, or nil when
// notifications are disabled.
func NewFromConfig(cfg config.EmailConfig) *Notifier {
	if !cfg.Enabled {
		return nil
	}
	sender := providers.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.FromAddr)
	return New(sender, cfg.ToAddr)
}

// NotifyOutcome mails the terminal result of one publish sequence.
func (n *Notifier) NotifyOutcome(rec types.ContentRecord, res types.WorkflowResult) error {
	subject := fmt.Sprintf("xhs-auto: publish %s (%s)", outcomeWord(res), res.Status)

	body := fmt.Sprintf("Title: %s\nStatus: %s\nSuccess: %t\nTime: %s\n",
		rec.Title, res.Status, res.Success, res.Time.Format("2006-01-02 15:04:05"))
	if res.Error != "" {
		body += fmt.Sprintf("Error: %s\n", res.Error)
	}

	return n.sender.Send(n.to, subject, body)
}

func outcomeWord(res types.WorkflowResult) string {
	if res.Success {
		return "succeeded"
	}
	return "failed"
}
