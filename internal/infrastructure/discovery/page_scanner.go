package discovery

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/PuerkitoBio/goquery"

	"CrawlPipe/internal/domain"
	"CrawlPipe/internal/scanner"
)

// PageScanner discovers candidate URLs by loading a listing page and
// selecting anchor elements with a configured CSS selector.
type PageScanner struct {
	client *http.Client
}

var _ scanner.Scanner = (*PageScanner)(nil)

// NewPageScanner wires an HTTP client; a nil client gets a 20s-timeout
// default.
func NewPageScanner(client *http.Client) *PageScanner {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	return &PageScanner{client: client}
}

// Name identifies the strategy inside the registry.
func (p *PageScanner) Name() string {
	return string(domain.SourcePage)
}

// Discover loads the source's listing page and resolves every href matched
// by the selector against the page URL.
func (p *PageScanner) Discover(ctx context.Context, src domain.Source) ([]string, error) {
	if src.PageURL == "" {
		return nil, fmt.Errorf("source %s has no page url", src.ID)
	}
	selector := src.Selector
	if selector == "" {
		selector = "a"
	}

	doc, err := p.fetchDocument(ctx, src.PageURL)
	if err != nil {
		return nil, fmt.Errorf("source %s: %w", src.ID, err)
	}

	base, err := url.Parse(src.PageURL)
	if err != nil {
		return nil, fmt.Errorf("invalid page url %s: %w", src.PageURL, err)
	}

	var urls []string
	doc.Find(selector).Each(func(_ int, sel *goquery.Selection) {
		href, ok := sel.Attr("href")
		if !ok || href == "" {
			return
		}
		ref, err := url.Parse(href)
		if err != nil {
			return
		}
		resolved := base.ResolveReference(ref).String()
		if keepCandidate(resolved) {
			urls = append(urls, resolved)
		}
	})

	return urls, nil
}

func (p *PageScanner) fetchDocument(ctx context.Context, pageURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "CrawlPipe/1.0")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request document: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("listing page returned %s", resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}

	return doc, nil
}
