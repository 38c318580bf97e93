package llm

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Summary is the structured payload the summarization prompt asks the model
// to return inside a fenced block.
type Summary struct {
	Title    string   `json:"title"`
	Summary  string   `json:"summary"`
	Keywords []string `json:"keywords"`
}

// ExtractFenced returns the text between the first pair of triple-backtick
// markers, or "" when the completion carries no fenced block.
func ExtractFenced(text string) string {
	start := strings.Index(text, "```")
	if start == -1 {
		return ""
	}
	rest := text[start+3:]
	end := strings.Index(rest, "```")
	if end == -1 {
		return ""
	}
	return strings.TrimSpace(rest[:end])
}

// ParseSummary extracts the fenced block from a completion and decodes it.
// Models frequently label the fence ("```json"), so a leading language tag
// is stripped before decoding.
func ParseSummary(completion string) (Summary, error) {
	block := ExtractFenced(completion)
	if block == "" {
		return Summary{}, fmt.Errorf("completion has no fenced block")
	}

	block = strings.TrimPrefix(block, "json")
	block = strings.TrimSpace(block)

	var s Summary
	if err := json.Unmarshal([]byte(block), &s); err != nil {
		return Summary{}, fmt.Errorf("parse summary block: %w", err)
	}
	return s, nil
}
