package filestore

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"CrawlPipe/internal/domain"
)

const articlesDirName = "articles"

// RecordStore reads and writes per-article JSON records addressed by their
// composite key ("{source}_{index:04d}"). Any stage may load, mutate, and
// save a record by key, which is what makes restarted runs pick up where
// they left off.
type RecordStore struct {
	dir string
}

// NewRecordStore roots the store under dataDir.
func NewRecordStore(dataDir string) *RecordStore {
	return &RecordStore{dir: filepath.Join(dataDir, articlesDirName)}
}

// Path returns the on-disk location for a composite key.
func (s *RecordStore) Path(pos string) string {
	return filepath.Join(s.dir, pos+".json")
}

// Load returns the record for pos. ok is false when no record exists yet.
func (s *RecordStore) Load(pos string) (domain.ArticleRecord, bool, error) {
	raw, err := os.ReadFile(s.Path(pos))
	if errors.Is(err, fs.ErrNotExist) {
		return domain.ArticleRecord{}, false, nil
	}
	if err != nil {
		return domain.ArticleRecord{}, false, fmt.Errorf("read record %s: %w", pos, err)
	}

	var rec domain.ArticleRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return domain.ArticleRecord{}, false, fmt.Errorf("parse record %s: %w", pos, err)
	}
	return rec, true, nil
}

// Save overwrites the record for pos atomically.
func (s *RecordStore) Save(pos string, rec domain.ArticleRecord) error {
	if err := writeJSONAtomic(s.Path(pos), rec); err != nil {
		return fmt.Errorf("save record %s: %w", pos, err)
	}
	return nil
}
