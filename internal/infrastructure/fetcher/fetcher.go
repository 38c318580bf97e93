package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"

	"CrawlPipe/internal/ports"
)

// HTTPError surfaces the response status so the dispatcher can decide
// whether the failure is retryable (429/503).
type HTTPError struct {
	StatusCode int
	Status     string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("http %s", e.Status)
}

// PageFetcher retrieves article pages and renders them to markdown.
type PageFetcher struct {
	client    *http.Client
	converter *md.Converter
}

var _ ports.Fetcher = (*PageFetcher)(nil)

// NewPageFetcher wires an HTTP client; a nil client gets a 20s-timeout
// default.
func NewPageFetcher(client *http.Client) *PageFetcher {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	return &PageFetcher{
		client:    client,
		converter: md.NewConverter("", true, nil),
	}
}

// Fetch downloads one page and returns its markdown rendering. If the
// markdown conversion fails the raw HTML is returned instead, matching the
// "markdown or html" fallback of the crawling engine this replaces.
func (f *PageFetcher) Fetch(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "CrawlPipe/1.0")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &HTTPError{StatusCode: resp.StatusCode, Status: resp.Status}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", url, err)
	}

	markdown, err := f.converter.ConvertString(string(body))
	if err != nil {
		return string(body), nil
	}
	return markdown, nil
}
