package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/valter-silva-au/task-wheel/internal/core"
	"github.com/valter-silva-au/task-wheel/pkg/models"
)

// Announcer publishes the ledger of a finished session.
type Announcer interface {
	Announce(ctx context.Context, assignments []models.Assignment) error
}

type slackAnnouncer struct {
	webhookURL string
	client     *http.Client
}

// NewSlackAnnouncer creates an Announcer that posts to a Slack incoming
// webhook.
func NewSlackAnnouncer(webhookURL string) Announcer {
	return &slackAnnouncer{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: 10 * time.Second},
	}
}

type slackMessage struct {
	Text   string       `json:"text"`
	Blocks []slackBlock `json:"blocks"`
}

type slackBlock struct {
	Type string     `json:"type"`
	Text *slackText `json:"text,omitempty"`
}

type slackText struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Announce posts the ledger. An empty ledger sends nothing.
func (s *slackAnnouncer) Announce(ctx context.Context, assignments []models.Assignment) error {
	if len(assignments) == 0 {
		return nil
	}

	body, err := json.Marshal(buildSlackMessage(assignments))
	if err != nil {
		return fmt.Errorf("marshaling slack message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building slack request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("posting to slack webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("slack webhook returned status %d", resp.StatusCode)
	}
	return nil
}

func buildSlackMessage(assignments []models.Assignment) slackMessage {
	summary := fmt.Sprintf("%d task(s) assigned", len(assignments))
	return slackMessage{
		Text: summary,
		Blocks: []slackBlock{
			{Type: "header", Text: &slackText{Type: "plain_text", Text: "Wheel results"}},
			{Type: "section", Text: &slackText{Type: "mrkdwn", Text: summary}},
			{Type: "divider"},
			{Type: "section", Text: &slackText{Type: "mrkdwn", Text: "```\n" + core.FormatLedger(assignments) + "\n```"}},
		},
	}
}
