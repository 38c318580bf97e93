package discovery

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"CrawlPipe/internal/domain"
	"CrawlPipe/internal/scanner"
)

const sampleFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>Tech News</title>
    <item>
      <title>First</title>
      <link>https://example.org/articles/first</link>
    </item>
    <item>
      <title>Second</title>
      <link>https://example.org/articles/second</link>
    </item>
    <item>
      <title>Chart</title>
      <link>https://example.org/assets/chart.png</link>
    </item>
    <item>
      <title>Broken</title>
      <link>not-a-url</link>
    </item>
  </channel>
</rss>`

func TestRSSScannerDiscover(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte(sampleFeed))
	}))
	defer srv.Close()

	s := NewRSSScanner(srv.Client())
	urls, err := s.Discover(context.Background(), domain.Source{
		ID:      "technews",
		Type:    domain.SourceRSS,
		FeedURL: srv.URL,
	})
	require.NoError(t, err)

	// Image links and non-http links are filtered out.
	assert.Equal(t, []string{
		"https://example.org/articles/first",
		"https://example.org/articles/second",
	}, urls)
}

func TestRSSScannerMissingFeedURL(t *testing.T) {
	t.Parallel()

	s := NewRSSScanner(nil)
	_, err := s.Discover(context.Background(), domain.Source{ID: "technews", Type: domain.SourceRSS})
	require.Error(t, err)
}

const sampleListing = `<!DOCTYPE html>
<html><body>
  <div class="posts">
    <a class="post-link" href="/articles/alpha">Alpha</a>
    <a class="post-link" href="https://other.example/beta">Beta</a>
    <a class="post-link" href="/media/cover.jpg">Cover</a>
    <a class="nav" href="/about">About</a>
  </div>
</body></html>`

func TestPageScannerDiscover(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(sampleListing))
	}))
	defer srv.Close()

	s := NewPageScanner(srv.Client())
	urls, err := s.Discover(context.Background(), domain.Source{
		ID:       "blog",
		Type:     domain.SourcePage,
		PageURL:  srv.URL,
		Selector: "a.post-link",
	})
	require.NoError(t, err)

	// Relative hrefs resolve against the listing URL; image links and
	// elements outside the selector are skipped.
	assert.Equal(t, []string{
		srv.URL + "/articles/alpha",
		"https://other.example/beta",
	}, urls)
}

func TestPageScannerNonOKStatus(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	s := NewPageScanner(srv.Client())
	_, err := s.Discover(context.Background(), domain.Source{
		ID:      "blog",
		Type:    domain.SourcePage,
		PageURL: srv.URL,
	})
	require.Error(t, err)
}

func TestStrategySourceResolvesByType(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(sampleFeed))
	}))
	defer srv.Close()

	reg := scanner.NewRegistry()
	reg.Register(NewRSSScanner(srv.Client()))
	reg.Register(NewPageScanner(srv.Client()))

	src := NewStrategySource(reg, nil)
	urls, err := src.Discover(context.Background(), domain.Source{
		ID:      "technews",
		Type:    domain.SourceRSS,
		FeedURL: srv.URL,
	})
	require.NoError(t, err)
	assert.Len(t, urls, 2)
}

func TestStrategySourceUnknownType(t *testing.T) {
	t.Parallel()

	src := NewStrategySource(scanner.NewRegistry(), nil)
	_, err := src.Discover(context.Background(), domain.Source{ID: "x", Type: "telegram"})
	require.Error(t, err)
}

func TestKeepCandidate(t *testing.T) {
	t.Parallel()

	assert.True(t, keepCandidate("https://example.org/post"))
	assert.True(t, keepCandidate("http://example.org/post"))
	assert.False(t, keepCandidate("ftp://example.org/post"))
	assert.False(t, keepCandidate(""))
	assert.False(t, keepCandidate("https://example.org/a.PNG"))
	assert.False(t, keepCandidate("https://example.org/doc.pdf"))
}
