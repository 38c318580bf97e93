package filestore

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"CrawlPipe/internal/domain"
)

// ErrUnknownSource is returned when a source id has no entry in the
// registry file. This is a configuration error and fatal for that source's
// run.
var ErrUnknownSource = errors.New("source not found in registry")

// SourceRegistry owns the global source-config list file. The whole list is
// read at run start and rewritten wholesale when a commit advances a
// source's article count.
type SourceRegistry struct {
	path string
}

// NewSourceRegistry binds the registry to its file path.
func NewSourceRegistry(path string) *SourceRegistry {
	return &SourceRegistry{path: path}
}

// Load reads every configured source.
func (r *SourceRegistry) Load() ([]domain.Source, error) {
	raw, err := os.ReadFile(r.path)
	if err != nil {
		return nil, fmt.Errorf("read sources %s: %w", r.path, err)
	}

	var sources []domain.Source
	if err := json.Unmarshal(raw, &sources); err != nil {
		return nil, fmt.Errorf("parse sources %s: %w", r.path, err)
	}
	return sources, nil
}

// Get returns the source with the given id.
func (r *SourceRegistry) Get(id string) (domain.Source, error) {
	sources, err := r.Load()
	if err != nil {
		return domain.Source{}, err
	}
	for _, src := range sources {
		if src.ID == id {
			return src, nil
		}
	}
	return domain.Source{}, fmt.Errorf("%w: %s", ErrUnknownSource, id)
}

// Save rewrites the whole registry atomically.
func (r *SourceRegistry) Save(sources []domain.Source) error {
	if err := writeJSONAtomic(r.path, sources); err != nil {
		return fmt.Errorf("save sources: %w", err)
	}
	return nil
}

// AdvanceCount adds n to the source's article_cnt and persists the list.
// This is the single action that makes index allocations permanent: until
// it runs, a replayed run re-derives the same indices for the same delta.
func (r *SourceRegistry) AdvanceCount(id string, n int) error {
	if n <= 0 {
		return nil
	}

	sources, err := r.Load()
	if err != nil {
		return err
	}

	found := false
	for i := range sources {
		if sources[i].ID == id {
			sources[i].ArticleCnt += n
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("%w: %s", ErrUnknownSource, id)
	}

	return r.Save(sources)
}
