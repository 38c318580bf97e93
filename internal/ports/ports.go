package ports

import (
	"context"
	"time"

	"CrawlPipe/internal/domain"
)

// CandidateSource discovers candidate article URLs for a source. The
// discovery mechanism (RSS, page scraping) is a strategy detail; the
// pipeline only sees the resulting URL list.
type CandidateSource interface {
	Discover(ctx context.Context, src domain.Source) ([]string, error)
}

// Fetcher retrieves one page and returns a markdown rendering of it.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// BatchFetcher fans a URL batch out over bounded concurrent fetch sessions
// and returns one result per input URL in input order.
type BatchFetcher interface {
	FetchMany(ctx context.Context, urls []string) []domain.FetchResult
}

// ChatClient sends a prompt to an LLM and returns the raw completion text,
// which for summarization is expected to contain a fenced JSON block.
type ChatClient interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Embedder batch-encodes texts into dense vectors for semantic matching.
type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float64, error)
}

// ArticleRepository persists tagged articles into the relational store and
// exposes its maintenance operations.
type ArticleRepository interface {
	InsertArticle(ctx context.Context, pos, url string, tags, subtags []string) error
	DeleteDuplicates(ctx context.Context) (int64, error)
	DeleteByDate(ctx context.Context, date string) (int64, error)
}

// Notifier renders and delivers a digest of the given runs to an outbound
// channel.
type Notifier interface {
	PublishDigest(ctx context.Context, reports []domain.RunReport) error
}

// Scheduler controls when pipeline runs execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
