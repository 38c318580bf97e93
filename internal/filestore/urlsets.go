package filestore

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
)

const (
	urlsDirName    = "urls"
	newURLsDirName = "new_urls"
)

// URLStore persists, per source, the cumulative set of all URLs ever seen
// and the delta set of URLs new in the current run, each as a JSON array
// file. All saves are whole-set overwrites through a temp file + rename, so
// a failed write leaves the prior state intact.
//
// The store does no locking: callers must never run two pipelines over the
// same source concurrently.
type URLStore struct {
	urlDir    string
	newURLDir string
	logger    *slog.Logger
}

// NewURLStore roots the store under dataDir.
func NewURLStore(dataDir string, logger *slog.Logger) *URLStore {
	return &URLStore{
		urlDir:    filepath.Join(dataDir, urlsDirName),
		newURLDir: filepath.Join(dataDir, newURLsDirName),
		logger:    logger,
	}
}

// LoadCumulative returns every URL ever seen for the source. A missing file
// means a first run and yields an empty set, not an error.
func (s *URLStore) LoadCumulative(sourceID string) (map[string]bool, error) {
	return loadURLSet(filepath.Join(s.urlDir, sourceID+".json"))
}

// LoadDelta returns the URLs recorded as new in the current run.
func (s *URLStore) LoadDelta(sourceID string) (map[string]bool, error) {
	return loadURLSet(filepath.Join(s.newURLDir, sourceID+".json"))
}

// SaveCumulative overwrites the cumulative set for the source.
func (s *URLStore) SaveCumulative(sourceID string, urls map[string]bool) error {
	return writeJSONAtomic(filepath.Join(s.urlDir, sourceID+".json"), sortedKeys(urls))
}

// SaveDelta overwrites the delta set for the source.
func (s *URLStore) SaveDelta(sourceID string, urls map[string]bool) error {
	return writeJSONAtomic(filepath.Join(s.newURLDir, sourceID+".json"), sortedKeys(urls))
}

// Reconcile computes the new-URL delta for a fresh candidate list and
// persists both the delta and the grown cumulative set. Replaying the same
// candidate list after a crash converges on the same state: the delta may
// re-overlap work already done, but downstream stage skips make that a
// no-op, and the union is unchanged.
func (s *URLStore) Reconcile(sourceID string, candidates []string) ([]string, error) {
	cumulative, err := s.LoadCumulative(sourceID)
	if err != nil {
		return nil, fmt.Errorf("load cumulative %s: %w", sourceID, err)
	}

	delta := make(map[string]bool)
	union := make(map[string]bool, len(cumulative)+len(candidates))
	for u := range cumulative {
		union[u] = true
	}
	for _, u := range candidates {
		union[u] = true
		if !cumulative[u] {
			delta[u] = true
		}
	}

	if err := s.SaveDelta(sourceID, delta); err != nil {
		return nil, fmt.Errorf("save delta %s: %w", sourceID, err)
	}
	if err := s.SaveCumulative(sourceID, union); err != nil {
		return nil, fmt.Errorf("save cumulative %s: %w", sourceID, err)
	}

	sorted := sortedKeys(delta)
	if s.logger != nil {
		s.logger.Debug("reconciled urls", "source", sourceID,
			"candidates", len(candidates), "new", len(sorted), "total", len(union))
	}
	return sorted, nil
}

// FoldDelta rewrites the delta file with the union of the on-disk delta and
// the on-disk cumulative set, returning the delta's size before folding.
// Commit re-reads both files rather than trusting memory so that a process
// restarted between reconcile and commit still folds the right sets.
func (s *URLStore) FoldDelta(sourceID string) (int, error) {
	delta, err := s.LoadDelta(sourceID)
	if err != nil {
		return 0, fmt.Errorf("load delta %s: %w", sourceID, err)
	}
	cumulative, err := s.LoadCumulative(sourceID)
	if err != nil {
		return 0, fmt.Errorf("load cumulative %s: %w", sourceID, err)
	}

	union := make(map[string]bool, len(delta)+len(cumulative))
	for u := range delta {
		union[u] = true
	}
	for u := range cumulative {
		union[u] = true
	}

	if err := s.SaveDelta(sourceID, union); err != nil {
		return 0, fmt.Errorf("fold delta %s: %w", sourceID, err)
	}
	return len(delta), nil
}

func loadURLSet(path string) (map[string]bool, error) {
	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]bool{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	var urls []string
	if err := json.Unmarshal(raw, &urls); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	set := make(map[string]bool, len(urls))
	for _, u := range urls {
		set[u] = true
	}
	return set, nil
}

func sortedKeys(set map[string]bool) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
