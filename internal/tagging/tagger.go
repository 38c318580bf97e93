package tagging

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"

	"CrawlPipe/internal/ports"
)

// DefaultSemanticThreshold is the cosine-similarity cutoff for the common
// keyword pass when no threshold is configured.
const DefaultSemanticThreshold = 0.3

// Tagger matches article summaries against the taxonomy in two passes: a
// case-insensitive substring pass over proper keywords and an embedding
// similarity pass over common keywords.
type Tagger struct {
	taxonomy  Taxonomy
	embedder  ports.Embedder
	threshold float64
	logger    *slog.Logger
}

// NewTagger wires the taxonomy and the embedding backend. threshold <= 0
// falls back to DefaultSemanticThreshold.
func NewTagger(taxonomy Taxonomy, embedder ports.Embedder, threshold float64, logger *slog.Logger) *Tagger {
	if threshold <= 0 {
		threshold = DefaultSemanticThreshold
	}
	return &Tagger{
		taxonomy:  taxonomy,
		embedder:  embedder,
		threshold: threshold,
		logger:    logger,
	}
}

// Tag returns the matched tag names and the matched keywords (subtags) for
// the summary, both sorted. An empty summary matches nothing.
func (t *Tagger) Tag(ctx context.Context, summary string) ([]string, []string, error) {
	if strings.TrimSpace(summary) == "" {
		return nil, nil, nil
	}

	tags := map[string]bool{}
	subtags := map[string]bool{}

	t.exactPass(summary, tags, subtags)
	if err := t.semanticPass(ctx, summary, tags, subtags); err != nil {
		return nil, nil, err
	}

	return sortedSet(tags), sortedSet(subtags), nil
}

func (t *Tagger) exactPass(summary string, tags, subtags map[string]bool) {
	lower := strings.ToLower(summary)
	for tag, keywords := range t.taxonomy.Proper {
		for _, kw := range keywords {
			if strings.Contains(lower, strings.ToLower(kw)) {
				tags[tag] = true
				subtags[kw] = true
			}
		}
	}
}

// semanticPass batch-encodes the summary together with every common keyword
// in a single call and matches keywords whose cosine similarity to the
// summary clears the threshold.
func (t *Tagger) semanticPass(ctx context.Context, summary string, tags, subtags map[string]bool) error {
	if t.embedder == nil || len(t.taxonomy.Common) == 0 {
		return nil
	}

	var keywords []string
	owners := map[int]string{}
	for _, tag := range sortedTagNames(t.taxonomy.Common) {
		for _, kw := range t.taxonomy.Common[tag] {
			owners[len(keywords)] = tag
			keywords = append(keywords, kw)
		}
	}
	if len(keywords) == 0 {
		return nil
	}

	texts := append([]string{summary}, keywords...)
	vectors, err := t.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed summary and keywords: %w", err)
	}

	summaryVec := vectors[0]
	for i, kw := range keywords {
		score := Cosine(summaryVec, vectors[i+1])
		if score >= t.threshold {
			if t.logger != nil {
				t.logger.Debug("semantic match", "keyword", kw, "tag", owners[i], "score", score)
			}
			tags[owners[i]] = true
			subtags[kw] = true
		}
	}
	return nil
}

// Cosine computes the cosine similarity of two vectors. Mismatched or
// zero-magnitude vectors score 0.
func Cosine(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

func sortedSet(set map[string]bool) []string {
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func sortedTagNames(m map[string][]string) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
