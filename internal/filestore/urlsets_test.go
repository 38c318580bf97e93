package filestore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReconcileComputesDelta(t *testing.T) {
	t.Parallel()

	store := NewURLStore(t.TempDir(), nil)

	require.NoError(t, store.SaveCumulative("techcrunch", map[string]bool{
		"a.com/1": true,
		"a.com/2": true,
	}))

	delta, err := store.Reconcile("techcrunch", []string{"a.com/2", "a.com/3", "a.com/4"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a.com/3", "a.com/4"}, delta)

	cumulative, err := store.LoadCumulative("techcrunch")
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{
		"a.com/1": true, "a.com/2": true, "a.com/3": true, "a.com/4": true,
	}, cumulative)

	// Delta is disjoint from the prior cumulative set.
	for _, u := range delta {
		assert.NotContains(t, []string{"a.com/1", "a.com/2"}, u)
	}
}

func TestReconcileFirstRunIsEmptyNotError(t *testing.T) {
	t.Parallel()

	store := NewURLStore(t.TempDir(), nil)

	cumulative, err := store.LoadCumulative("fresh")
	require.NoError(t, err)
	assert.Empty(t, cumulative)

	delta, err := store.Reconcile("fresh", []string{"b.com/1"})
	require.NoError(t, err)
	assert.Equal(t, []string{"b.com/1"}, delta)
}

func TestReconcileReplayIsIdempotent(t *testing.T) {
	t.Parallel()

	store := NewURLStore(t.TempDir(), nil)
	candidates := []string{"c.com/1", "c.com/2"}

	first, err := store.Reconcile("src", candidates)
	require.NoError(t, err)
	assert.Len(t, first, 2)

	// Second reconcile with the same candidates: everything is already
	// folded into the cumulative set, so the delta is empty and the
	// cumulative set is unchanged.
	second, err := store.Reconcile("src", candidates)
	require.NoError(t, err)
	assert.Empty(t, second)

	cumulative, err := store.LoadCumulative("src")
	require.NoError(t, err)
	assert.Len(t, cumulative, 2)
}

func TestReconcileEmptyCandidates(t *testing.T) {
	t.Parallel()

	store := NewURLStore(t.TempDir(), nil)
	require.NoError(t, store.SaveCumulative("src", map[string]bool{"d.com/1": true}))

	delta, err := store.Reconcile("src", nil)
	require.NoError(t, err)
	assert.Empty(t, delta)

	cumulative, err := store.LoadCumulative("src")
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"d.com/1": true}, cumulative)
}

func TestFoldDeltaRepurposesDeltaFile(t *testing.T) {
	t.Parallel()

	store := NewURLStore(t.TempDir(), nil)
	_, err := store.Reconcile("src", []string{"e.com/1"})
	require.NoError(t, err)
	_, err = store.Reconcile("src", []string{"e.com/1", "e.com/2"})
	require.NoError(t, err)

	size, err := store.FoldDelta("src")
	require.NoError(t, err)
	assert.Equal(t, 1, size)

	// After commit the delta file holds the full union.
	folded, err := store.LoadDelta("src")
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"e.com/1": true, "e.com/2": true}, folded)
}

func TestFoldDeltaZeroSize(t *testing.T) {
	t.Parallel()

	store := NewURLStore(t.TempDir(), nil)
	require.NoError(t, store.SaveCumulative("src", map[string]bool{"f.com/1": true}))
	require.NoError(t, store.SaveDelta("src", map[string]bool{}))

	size, err := store.FoldDelta("src")
	require.NoError(t, err)
	assert.Zero(t, size)

	// The delta file is still rewritten to the (unchanged) union.
	folded, err := store.LoadDelta("src")
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"f.com/1": true}, folded)
}

func TestSaveLeavesNoTempFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	store := NewURLStore(dir, nil)
	require.NoError(t, store.SaveCumulative("src", map[string]bool{"g.com/1": true}))

	entries, err := os.ReadDir(filepath.Join(dir, "urls"))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "src.json", entries[0].Name())
}
