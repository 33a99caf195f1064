package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const webhookTimeout = 10 * time.Second

// SlackNotifier posts pipeline events to a Slack incoming webhook.
// With no webhook URL configured every call is a silent no-op:
// notification failures must never affect the pipeline.
type SlackNotifier struct {
	webhookURL string
	client     *http.Client
}

func NewSlackNotifier(webhookURL string) *SlackNotifier {
	if webhookURL == "" {
		slog.Warn("Slack notifications disabled: webhook URL not set")
	}
	return &SlackNotifier{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: webhookTimeout},
	}
}

func (n *SlackNotifier) Enabled() bool {
	return n.webhookURL != ""
}

// SetClient replaces the HTTP client, used by tests.
func (n *SlackNotifier) SetClient(client *http.Client) {
	n.client = client
}

type block struct {
	Type   string      `json:"type"`
	Text   *blockText  `json:"text,omitempty"`
	Fields []blockText `json:"fields,omitempty"`
}

type blockText struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

func section(text string) block {
	return block{Type: "section", Text: &blockText{Type: "mrkdwn", Text: text}}
}

func fieldSection(fields ...string) block {
	b := block{Type: "section"}
	for _, f := range fields {
		b.Fields = append(b.Fields, blockText{Type: "mrkdwn", Text: f})
	}
	return b
}

// Send posts a message. Errors are logged, not returned.
func (n *SlackNotifier) Send(ctx context.Context, text string, blocks ...block) {
	if !n.Enabled() {
		return
	}

	payload := map[string]any{"text": text}
	if len(blocks) > 0 {
		payload["blocks"] = blocks
	}

	body, err := json.Marshal(payload)
	if err != nil {
		slog.Error("Failed to encode Slack payload", "error", err)
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(body))
	if err != nil {
		slog.Error("Failed to create Slack request", "error", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		slog.Error("Failed to send Slack message", "error", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		slog.Error("Slack webhook rejected message", "status", resp.StatusCode)
	}
}

func (n *SlackNotifier) PipelineStarted(ctx context.Context, edition string) {
	n.Send(ctx, fmt.Sprintf(":rocket: Pipeline started (%s edition)", edition),
		section(fmt.Sprintf(":rocket: *Pipeline Started*\nRunning full pipeline for the %s edition...", edition)))
}

func (n *SlackNotifier) PipelineCompleted(ctx context.Context, edition string, scraped, evaluated, generated int, elapsed time.Duration) {
	n.Send(ctx, fmt.Sprintf(":white_check_mark: Pipeline completed: %d articles generated", generated),
		section(":white_check_mark: *Pipeline Completed*"),
		fieldSection(
			fmt.Sprintf("*Edition:*\n%s", edition),
			fmt.Sprintf("*Sources Scraped:*\n%d", scraped),
			fmt.Sprintf("*Sources Evaluated:*\n%d", evaluated),
			fmt.Sprintf("*Articles Generated:*\n%d", generated),
		),
		section(fmt.Sprintf(":stopwatch: Took %s", elapsed.Round(time.Second))))
}

func (n *SlackNotifier) PipelineError(ctx context.Context, step string, errs []string) {
	shown := errs
	if len(shown) > 3 {
		shown = shown[:3]
	}
	for i, e := range shown {
		if len(e) > 100 {
			shown[i] = e[:100]
		}
	}
	n.Send(ctx, fmt.Sprintf(":x: Pipeline error in %s step", step),
		section(fmt.Sprintf(":x: *Pipeline Error (%s)*\n- %s", step, strings.Join(shown, "\n- "))))
}

func (n *SlackNotifier) PipelineResumed(ctx context.Context, edition, reason string) {
	n.Send(ctx, fmt.Sprintf(":arrows_counterclockwise: Resuming interrupted pipeline (%s edition)", edition),
		section(fmt.Sprintf(":arrows_counterclockwise: *Pipeline Resumed*\nEdition: %s\nReason: %s", edition, reason)))
}

func (n *SlackNotifier) StaleJobsCleaned(ctx context.Context, count int) {
	n.Send(ctx, fmt.Sprintf(":broom: Marked %d stale jobs as interrupted", count),
		section(fmt.Sprintf(":broom: *Stale Jobs Cleaned*\n%d jobs did not complete and were marked as interrupted.", count)))
}

func (n *SlackNotifier) ArticlePublished(ctx context.Context, title, slug string) {
	n.Send(ctx, fmt.Sprintf(":newspaper: Published: %s", title),
		section(fmt.Sprintf(":newspaper: *Article Published*\n%s (`%s`)", title, slug)))
}
