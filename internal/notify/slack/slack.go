// Package slack sends prediction notifications to Slack via incoming
// webhooks. Low-confidence predictions get posted to the triage channel so a
// human can pick them up.
package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/linnemanlabs/go-core/log"

	"github.com/linnemanlabs/sift/internal/triage"
)

const (
	maxTitleLen = 300
	httpTimeout = 10 * time.Second
)

// Notifier posts prediction records to a Slack webhook.
type Notifier struct {
	webhookURL string
	client     *http.Client
	logger     log.Logger
}

// New creates a new Slack notifier. If webhookURL is empty, notifications
// are a no-op.
func New(webhookURL string, logger log.Logger) *Notifier {
	return &Notifier{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: httpTimeout},
		logger:     logger,
	}
}

// NotifyLowConfidence posts a manual-review request for a prediction whose
// primary confidence fell below the low tier. Implements triage.Notifier.
func (n *Notifier) NotifyLowConfidence(ctx context.Context, rec *triage.Record) error {
	if n.webhookURL == "" {
		return nil
	}

	msg := buildMessage(rec)

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("slack: marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("slack: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req) //nolint:gosec // G704: webhookURL is from trusted config, not user input
	if err != nil {
		return fmt.Errorf("slack: post webhook: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("slack: webhook returned %d: %s", resp.StatusCode, string(respBody))
	}

	n.logger.Info(ctx, "posted low-confidence notification", "id", rec.ID, "repo", rec.Repository)
	return nil
}

func buildMessage(rec *triage.Record) map[string]any {
	return map[string]any{
		"blocks": []map[string]any{
			headerBlock(rec),
			{"type": "divider"},
			fieldsBlock(rec),
			titleBlock(rec),
			{"type": "divider"},
			contextBlock(rec),
		},
	}
}

func headerBlock(rec *triage.Record) map[string]any {
	return map[string]any{
		"type": "header",
		"text": map[string]any{
			"type": "plain_text",
			"text": fmt.Sprintf("\U0001f7e1 Manual review needed: %s", rec.Repository),
		},
	}
}

func fieldsBlock(rec *triage.Record) map[string]any {
	primary := rec.Result.Primary
	fields := []map[string]any{
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Predicted:* %s", primary.Category),
		},
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Confidence:* %.0f%%", primary.Confidence*100),
		},
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Repository:* %s", rec.Repository),
		},
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Alternatives:* %s", alternatives(rec.Result.Secondary)),
		},
	}

	return map[string]any{
		"type":   "section",
		"fields": fields,
	}
}

func titleBlock(rec *triage.Record) map[string]any {
	text := truncate(rec.Title, maxTitleLen)
	if text == "" {
		text = "_No title._"
	}

	return map[string]any{
		"type": "section",
		"text": map[string]any{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Issue*\n\n%s", text),
		},
	}
}

func contextBlock(rec *triage.Record) map[string]any {
	elements := []map[string]any{
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("sift • prediction %s • %s", rec.ID, rec.CreatedAt.UTC().Format("2006-01-02 15:04 UTC")),
		},
	}

	return map[string]any{
		"type":     "context",
		"elements": elements,
	}
}

func alternatives(secondary []triage.Suggestion) string {
	if len(secondary) == 0 {
		return "none"
	}
	parts := make([]string, 0, len(secondary))
	seen := make(map[string]bool, len(secondary))
	for _, s := range secondary {
		if seen[s.Category] {
			continue
		}
		seen[s.Category] = true
		parts = append(parts, fmt.Sprintf("%s (%.0f%%)", s.Category, s.Confidence*100))
	}
	return strings.Join(parts, ", ")
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit-3] + "..."
}
