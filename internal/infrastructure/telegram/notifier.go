package telegram

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"CrawlPipe/internal/domain"
	"CrawlPipe/internal/ports"
)

// Notifier sends run digests to a Telegram chat via bot API.
type Notifier struct {
	botToken string
	chatID   string
	client   *http.Client
}

var _ ports.Notifier = (*Notifier)(nil)

// NewNotifier registers bot token and chat identifier.
func NewNotifier(botToken, chatID string) *Notifier {
	return &Notifier{
		botToken: botToken,
		chatID:   chatID,
		client:   &http.Client{Timeout: 5 * time.Second},
	}
}

// PublishDigest renders the run reports as a Markdown digest and posts it to
// Telegram. Publishing nothing is not an error.
func (n *Notifier) PublishDigest(ctx context.Context, reports []domain.RunReport) error {
	if n.botToken == "" || n.chatID == "" || n.client == nil {
		return fmt.Errorf("telegram notifier misconfigured")
	}
	if len(reports) == 0 {
		return nil
	}

	endpoint := fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", n.botToken)
	form := url.Values{}
	form.Set("chat_id", n.chatID)
	form.Set("text", renderDigest(reports))
	form.Set("parse_mode", "Markdown")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram error: %s", resp.Status)
	}

	return nil
}

// renderDigest formats one line per source run, with each failed article and
// the stage it died in indented below its run.
func renderDigest(reports []domain.RunReport) string {
	var b strings.Builder
	for _, r := range reports {
		fmt.Fprintf(&b, "*%s*: %d candidates, %d new, %d ok, %d failed\n",
			r.SourceID, r.Candidates, r.DeltaSize, len(r.Succeeded), len(r.Failed))
		for _, f := range r.Failed {
			fmt.Fprintf(&b, "  - %s (%s): %v\n", f.Pos, f.Stage, f.Err)
		}
	}
	return b.String()
}
