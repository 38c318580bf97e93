package domain

import (
	"fmt"
	"strings"
)

// Stage enumerates how far an article record has progressed through the
// pipeline. The stage is derived from which fields are populated, so a
// record reloaded from disk always reports the correct stage.
type Stage string

const (
	StagePending    Stage = "pending"
	StageFetched    Stage = "fetched"
	StageSummarized Stage = "summarized"
	StageTagged     Stage = "tagged"

	// StagePersisted labels relational-store failures in run reports; record
	// files themselves never carry it since persistence leaves them unchanged.
	StagePersisted Stage = "persisted"
)

// ArticleRecord is the per-article JSON document stored under
// articles/{source}_{index:04d}.json. HTML holds the fetched markdown
// rendering and is dropped once a summary exists.
type ArticleRecord struct {
	URL      string   `json:"url"`
	HTML     string   `json:"html,omitempty"`
	Path     string   `json:"path"`
	Title    string   `json:"title"`
	Date     string   `json:"date"`
	Summary  string   `json:"summary,omitempty"`
	Keywords []string `json:"keywords,omitempty"`
	Tags     []string `json:"tags,omitempty"`
	Subtags  []string `json:"subtags,omitempty"`
}

// Stage reports the furthest completed pipeline stage.
func (r ArticleRecord) Stage() Stage {
	switch {
	case len(r.Tags) > 0 || len(r.Subtags) > 0:
		return StageTagged
	case strings.TrimSpace(r.Summary) != "":
		return StageSummarized
	case strings.TrimSpace(r.HTML) != "":
		return StageFetched
	default:
		return StagePending
	}
}

// Fetched reports whether the record already carries content a later stage
// can work with, meaning the fetch stage may skip it.
func (r ArticleRecord) Fetched() bool {
	return strings.TrimSpace(r.HTML) != "" || strings.TrimSpace(r.Summary) != ""
}

// Summarized reports whether the summarize stage may skip this record.
func (r ArticleRecord) Summarized() bool {
	return strings.TrimSpace(r.Summary) != ""
}

// Pos renders the composite key used both as the record's file stem and as
// the natural dedup key in the relational store.
func Pos(sourceID string, index int) string {
	return fmt.Sprintf("%s_%04d", sourceID, index)
}

// Allocation binds one delta URL to its assigned per-source index.
type Allocation struct {
	Index int
	URL   string
}
