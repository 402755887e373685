// Package slack implements a notifier.Notifier for Slack incoming webhooks.
package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/Strob0t/taskalign/internal/port/notifier"
)

const (
	providerName = "slack"
	// Slack rejects section text longer than 3000 characters.
	maxSectionText = 3000
	maxFields      = 10
)

// Notifier posts Block Kit messages to a Slack incoming webhook.
type Notifier struct {
	webhookURL string
	httpClient *http.Client
}

// NewNotifier creates a Slack notifier with the given webhook URL.
func NewNotifier(webhookURL string) *Notifier {
	return &Notifier{
		webhookURL: webhookURL,
		httpClient: http.DefaultClient,
	}
}

func (n *Notifier) Name() string { return providerName }

func (n *Notifier) Capabilities() notifier.Capabilities {
	return notifier.Capabilities{RichFormatting: true}
}

type slackMessage struct {
	Text   string       `json:"text"`
	Blocks []slackBlock `json:"blocks"`
}

type slackBlock struct {
	Type     string      `json:"type"`
	Text     *slackText  `json:"text,omitempty"`
	Fields   []slackText `json:"fields,omitempty"`
	Elements []slackText `json:"elements,omitempty"`
}

type slackText struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

func (n *Notifier) Send(ctx context.Context, notification notifier.Notification) error {
	if n.webhookURL == "" {
		return notifier.ErrNotConfigured
	}

	body, err := json.Marshal(buildMessage(&notification))
	if err != nil {
		return fmt.Errorf("slack marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("slack request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req) //nolint:gosec // webhook URL from trusted config
	if err != nil {
		return fmt.Errorf("slack send: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("slack API %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}

func buildMessage(nt *notifier.Notification) slackMessage {
	header := fmt.Sprintf("%s %s", levelEmoji(nt.Level), nt.Title)
	msg := slackMessage{
		Text: header,
		Blocks: []slackBlock{
			{Type: "header", Text: &slackText{Type: "plain_text", Text: header}},
			{Type: "section", Text: &slackText{Type: "mrkdwn", Text: clip(nt.Message)}},
		},
	}

	if len(nt.Fields) > 0 {
		fields := make([]slackText, 0, min(len(nt.Fields), maxFields))
		for _, f := range nt.Fields[:min(len(nt.Fields), maxFields)] {
			fields = append(fields, slackText{Type: "mrkdwn", Text: fmt.Sprintf("*%s*\n%s", f.Label, f.Value)})
		}
		msg.Blocks = append(msg.Blocks, slackBlock{Type: "section", Fields: fields})
	}

	if len(nt.Items) > 0 {
		var b strings.Builder
		for _, it := range nt.Items {
			b.WriteString("• ")
			b.WriteString(it)
			b.WriteByte('\n')
		}
		msg.Blocks = append(msg.Blocks, slackBlock{
			Type: "section",
			Text: &slackText{Type: "mrkdwn", Text: clip(b.String())},
		})
	}

	if nt.Source != "" {
		msg.Blocks = append(msg.Blocks, slackBlock{
			Type:     "context",
			Elements: []slackText{{Type: "mrkdwn", Text: fmt.Sprintf("_Source: %s_", nt.Source)}},
		})
	}
	return msg
}

func clip(s string) string {
	r := []rune(s)
	if len(r) <= maxSectionText {
		return s
	}
	return string(r[:maxSectionText-1]) + "…"
}

func levelEmoji(level string) string {
	switch level {
	case notifier.LevelSuccess:
		return ":white_check_mark:"
	case notifier.LevelError:
		return ":x:"
	case notifier.LevelWarning:
		return ":warning:"
	default:
		return ":information_source:"
	}
}
