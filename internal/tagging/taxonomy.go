package tagging

import (
	"encoding/json"
	"fmt"
	"os"
)

// Taxonomy maps tag names to their trigger keywords. Proper keywords are
// matched literally; common keywords are matched by embedding similarity.
type Taxonomy struct {
	Proper map[string][]string `json:"keywords_proper"`
	Common map[string][]string `json:"keywords_common"`
}

// LoadTaxonomy reads the taxonomy config file. A missing or malformed file
// is a configuration error and fatal for the run.
func LoadTaxonomy(path string) (Taxonomy, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Taxonomy{}, fmt.Errorf("read taxonomy %s: %w", path, err)
	}

	var t Taxonomy
	if err := json.Unmarshal(raw, &t); err != nil {
		return Taxonomy{}, fmt.Errorf("parse taxonomy %s: %w", path, err)
	}
	return t, nil
}
