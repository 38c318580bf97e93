package domain

// SourceType selects the discovery strategy for a source.
type SourceType string

const (
	SourceRSS  SourceType = "rss"
	SourcePage SourceType = "page"
)

// Source is one logical feed in the source registry file. ArticleCnt is the
// offset of the last committed article index and only moves at commit time.
type Source struct {
	ID         string     `json:"id"`
	Type       SourceType `json:"type"`
	FeedURL    string     `json:"rss,omitempty"`
	PageURL    string     `json:"url,omitempty"`
	Selector   string     `json:"selector,omitempty"`
	ArticleCnt int        `json:"article_cnt"`
}
