package filestore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"CrawlPipe/internal/domain"
)

func writeSources(t *testing.T, sources []domain.Source) *SourceRegistry {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sources.json")
	reg := NewSourceRegistry(path)
	require.NoError(t, reg.Save(sources))
	return reg
}

func TestSourceRegistryRoundtrip(t *testing.T) {
	t.Parallel()

	reg := writeSources(t, []domain.Source{
		{ID: "techcrunch", Type: domain.SourceRSS, FeedURL: "https://techcrunch.com/feed/", ArticleCnt: 7},
	})

	src, err := reg.Get("techcrunch")
	require.NoError(t, err)
	assert.Equal(t, 7, src.ArticleCnt)
	assert.Equal(t, domain.SourceRSS, src.Type)
}

func TestSourceRegistryUnknownSource(t *testing.T) {
	t.Parallel()

	reg := writeSources(t, []domain.Source{{ID: "a", ArticleCnt: 0}})

	_, err := reg.Get("missing")
	assert.ErrorIs(t, err, ErrUnknownSource)

	err = reg.AdvanceCount("missing", 3)
	assert.ErrorIs(t, err, ErrUnknownSource)
}

func TestAdvanceCountMonotonic(t *testing.T) {
	t.Parallel()

	reg := writeSources(t, []domain.Source{
		{ID: "a", ArticleCnt: 7},
		{ID: "b", ArticleCnt: 2},
	})

	require.NoError(t, reg.AdvanceCount("a", 2))

	src, err := reg.Get("a")
	require.NoError(t, err)
	assert.Equal(t, 9, src.ArticleCnt)

	// Other sources are untouched.
	other, err := reg.Get("b")
	require.NoError(t, err)
	assert.Equal(t, 2, other.ArticleCnt)
}

func TestAdvanceCountZeroIsNoop(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "sources.json")
	reg := NewSourceRegistry(path)
	require.NoError(t, reg.Save([]domain.Source{{ID: "a", ArticleCnt: 5}}))
	before, err := os.ReadFile(path)
	require.NoError(t, err)

	require.NoError(t, reg.AdvanceCount("a", 0))

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}
