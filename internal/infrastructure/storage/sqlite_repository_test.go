package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := Open(filepath.Join(t.TempDir(), "articles.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func (r *SQLiteRepository) countRows(t *testing.T, table string) int {
	t.Helper()
	var n int
	require.NoError(t, r.db.QueryRow("SELECT COUNT(*) FROM "+table).Scan(&n))
	return n
}

func TestInsertArticleWithTags(t *testing.T) {
	t.Parallel()

	repo := openTestRepo(t)
	ctx := context.Background()

	err := repo.InsertArticle(ctx, "techcrunch_0008", "https://a.com/3",
		[]string{"AI"}, []string{"openai", "gpt"})
	require.NoError(t, err)

	var pos, url string
	require.NoError(t, repo.db.QueryRow("SELECT pos, html FROM articles").Scan(&pos, &url))
	assert.Equal(t, "techcrunch_0008", pos)
	assert.Equal(t, "https://a.com/3", url)

	assert.Equal(t, 1, repo.countRows(t, "tags"))
	assert.Equal(t, 2, repo.countRows(t, "subtags"))
	assert.Equal(t, 1, repo.countRows(t, "article_tags"))
	assert.Equal(t, 2, repo.countRows(t, "article_subtags"))
}

func TestTagDictionaryIsReused(t *testing.T) {
	t.Parallel()

	repo := openTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.InsertArticle(ctx, "techcrunch_0008", "https://a.com/3", []string{"AI"}, nil))
	require.NoError(t, repo.InsertArticle(ctx, "techcrunch_0009", "https://a.com/4", []string{"AI"}, nil))

	// One tag row, two membership rows.
	assert.Equal(t, 1, repo.countRows(t, "tags"))
	assert.Equal(t, 2, repo.countRows(t, "article_tags"))
}

func TestDeleteDuplicatesKeepsLowestID(t *testing.T) {
	t.Parallel()

	repo := openTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.InsertArticle(ctx, "techcrunch_0008", "https://a.com/3", []string{"AI"}, nil))
	require.NoError(t, repo.InsertArticle(ctx, "techcrunch_0008", "https://a.com/3", []string{"AI"}, nil))
	require.NoError(t, repo.InsertArticle(ctx, "techcrunch_0009", "https://a.com/4", nil, nil))

	removed, err := repo.DeleteDuplicates(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, removed)

	var keptID int64
	require.NoError(t, repo.db.QueryRow(
		"SELECT id FROM articles WHERE pos = ?", "techcrunch_0008").Scan(&keptID))
	assert.EqualValues(t, 1, keptID)

	// Cascade cleaned the orphaned membership row.
	assert.Equal(t, 1, repo.countRows(t, "article_tags"))
	assert.Equal(t, 2, repo.countRows(t, "articles"))
}

func TestDeleteDuplicatesDistinctURLsSurvive(t *testing.T) {
	t.Parallel()

	repo := openTestRepo(t)
	ctx := context.Background()

	// Same pos but different URL is not a duplicate.
	require.NoError(t, repo.InsertArticle(ctx, "techcrunch_0008", "https://a.com/3", nil, nil))
	require.NoError(t, repo.InsertArticle(ctx, "techcrunch_0008", "https://a.com/other", nil, nil))

	removed, err := repo.DeleteDuplicates(ctx)
	require.NoError(t, err)
	assert.Zero(t, removed)
	assert.Equal(t, 2, repo.countRows(t, "articles"))
}

func TestDeleteByDate(t *testing.T) {
	t.Parallel()

	repo := openTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.InsertArticle(ctx, "digest_2026-08-30_0001", "https://a.com/1", nil, nil))
	require.NoError(t, repo.InsertArticle(ctx, "digest_2026-08-31_0002", "https://a.com/2", nil, nil))

	removed, err := repo.DeleteByDate(ctx, "2026-08-30")
	require.NoError(t, err)
	assert.EqualValues(t, 1, removed)

	var pos string
	require.NoError(t, repo.db.QueryRow("SELECT pos FROM articles").Scan(&pos))
	assert.Equal(t, "digest_2026-08-31_0002", pos)
}

func TestOpenIsIdempotent(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "articles.db")
	repo, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, repo.InsertArticle(context.Background(), "p_0001", "https://a.com/1", nil, nil))
	require.NoError(t, repo.Close())

	// Re-opening an existing database leaves the data intact.
	repo, err = Open(path)
	require.NoError(t, err)
	defer repo.Close()
	assert.Equal(t, 1, repo.countRows(t, "articles"))
}
