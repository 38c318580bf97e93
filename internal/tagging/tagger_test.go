package tagging

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubEmbedder struct {
	vectors map[string][]float64
	calls   int
}

func (s *stubEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	s.calls++
	out := make([][]float64, len(texts))
	for i, text := range texts {
		vec, ok := s.vectors[text]
		if !ok {
			return nil, fmt.Errorf("no vector for %q", text)
		}
		out[i] = vec
	}
	return out, nil
}

func TestExactPassMatchesProperKeywords(t *testing.T) {
	t.Parallel()

	tagger := NewTagger(Taxonomy{
		Proper: map[string][]string{
			"AI":      {"OpenAI", "GPT"},
			"Finance": {"stock market"},
		},
	}, nil, 0, nil)

	tags, subtags, err := tagger.Tag(context.Background(), "OpenAI released a new model")
	require.NoError(t, err)

	assert.Equal(t, []string{"AI"}, tags)
	assert.Equal(t, []string{"OpenAI"}, subtags)
}

func TestExactPassIsCaseInsensitive(t *testing.T) {
	t.Parallel()

	tagger := NewTagger(Taxonomy{
		Proper: map[string][]string{"AI": {"openai"}},
	}, nil, 0, nil)

	tags, _, err := tagger.Tag(context.Background(), "OPENAI shipped something")
	require.NoError(t, err)
	assert.Equal(t, []string{"AI"}, tags)
}

func TestSemanticPassThreshold(t *testing.T) {
	t.Parallel()

	summary := "a piece about neural networks"
	embedder := &stubEmbedder{vectors: map[string][]float64{
		summary:            {1, 0},
		"machine learning": {0.9, 0.1}, // cosine ~0.994, above threshold
		"gardening":        {0, 1},     // cosine 0, below threshold
	}}

	tagger := NewTagger(Taxonomy{
		Common: map[string][]string{
			"AI":      {"machine learning"},
			"Hobbies": {"gardening"},
		},
	}, embedder, 0.3, nil)

	tags, subtags, err := tagger.Tag(context.Background(), summary)
	require.NoError(t, err)

	assert.Equal(t, []string{"AI"}, tags)
	assert.Equal(t, []string{"machine learning"}, subtags)

	// Summary and all keywords ride in a single embedding call.
	assert.Equal(t, 1, embedder.calls)
}

func TestSemanticPassErrorPropagates(t *testing.T) {
	t.Parallel()

	embedder := &stubEmbedder{vectors: map[string][]float64{}}
	tagger := NewTagger(Taxonomy{
		Common: map[string][]string{"AI": {"machine learning"}},
	}, embedder, 0, nil)

	_, _, err := tagger.Tag(context.Background(), "some summary")
	require.Error(t, err)
}

func TestBothPassesCombine(t *testing.T) {
	t.Parallel()

	summary := "OpenAI trains large models"
	embedder := &stubEmbedder{vectors: map[string][]float64{
		summary:           {1, 0}, // identical direction
		"neural networks": {1, 0},
	}}

	tagger := NewTagger(Taxonomy{
		Proper: map[string][]string{"AI": {"openai"}},
		Common: map[string][]string{"ML": {"neural networks"}},
	}, embedder, 0.3, nil)

	tags, subtags, err := tagger.Tag(context.Background(), summary)
	require.NoError(t, err)

	assert.Equal(t, []string{"AI", "ML"}, tags)
	assert.Equal(t, []string{"neural networks", "openai"}, subtags)
}

func TestEmptySummaryMatchesNothing(t *testing.T) {
	t.Parallel()

	tagger := NewTagger(Taxonomy{
		Proper: map[string][]string{"AI": {"openai"}},
	}, nil, 0, nil)

	tags, subtags, err := tagger.Tag(context.Background(), "   ")
	require.NoError(t, err)
	assert.Nil(t, tags)
	assert.Nil(t, subtags)
}

func TestCosine(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 1.0, Cosine([]float64{1, 2, 3}, []float64{1, 2, 3}), 1e-9)
	assert.InDelta(t, 0.0, Cosine([]float64{1, 0}, []float64{0, 1}), 1e-9)
	assert.InDelta(t, -1.0, Cosine([]float64{1, 0}, []float64{-1, 0}), 1e-9)

	assert.Zero(t, Cosine([]float64{1, 2}, []float64{1, 2, 3}))
	assert.Zero(t, Cosine(nil, nil))
	assert.Zero(t, Cosine([]float64{0, 0}, []float64{1, 1}))
}
