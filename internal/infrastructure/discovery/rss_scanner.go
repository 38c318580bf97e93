package discovery

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"CrawlPipe/internal/domain"
	"CrawlPipe/internal/scanner"
)

var skippedExtensions = []string{".png", ".jpg", ".jpeg", ".pdf"}

// RSSScanner discovers candidate URLs from an RSS/Atom feed.
type RSSScanner struct {
	parser *gofeed.Parser
}

var _ scanner.Scanner = (*RSSScanner)(nil)

// NewRSSScanner wires an HTTP client into a feed parser; a nil client gets
// a 20s-timeout default.
func NewRSSScanner(client *http.Client) *RSSScanner {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	parser := gofeed.NewParser()
	parser.Client = client
	parser.UserAgent = "CrawlPipe/1.0"
	return &RSSScanner{parser: parser}
}

// Name identifies the strategy inside the registry.
func (s *RSSScanner) Name() string {
	return string(domain.SourceRSS)
}

// Discover fetches the feed and returns every item link that looks like an
// article page.
func (s *RSSScanner) Discover(ctx context.Context, src domain.Source) ([]string, error) {
	if src.FeedURL == "" {
		return nil, fmt.Errorf("source %s has no feed url", src.ID)
	}

	feed, err := s.parser.ParseURLWithContext(src.FeedURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("parse feed %s: %w", src.FeedURL, err)
	}

	urls := make([]string, 0, len(feed.Items))
	for _, item := range feed.Items {
		link := strings.TrimSpace(item.Link)
		if link == "" && len(item.Links) > 0 {
			link = strings.TrimSpace(item.Links[0])
		}
		if !keepCandidate(link) {
			continue
		}
		urls = append(urls, link)
	}
	return urls, nil
}

func keepCandidate(link string) bool {
	if !strings.HasPrefix(link, "http") {
		return false
	}
	for _, ext := range skippedExtensions {
		if strings.HasSuffix(strings.ToLower(link), ext) {
			return false
		}
	}
	return true
}
