package domain

import "time"

// FetchResult is the per-URL outcome of a dispatched fetch batch. A failed
// URL never affects its siblings.
type FetchResult struct {
	URL     string
	Content string
	Err     error
}

// ItemFailure records one article that a stage could not complete, together
// with the stage that failed and why. Failures never abort the batch.
type ItemFailure struct {
	Pos   string
	URL   string
	Stage Stage
	Err   error
}

// RunReport aggregates the outcome of one source's run: what was discovered,
// what was processed, and everything that failed along the way.
type RunReport struct {
	RunID      string
	SourceID   string
	StartedAt  time.Time
	FinishedAt time.Time
	Candidates int
	DeltaSize  int
	Succeeded  []string
	Failed     []ItemFailure
}

// Ok reports whether every article in the run completed all stages.
func (r RunReport) Ok() bool {
	return len(r.Failed) == 0
}
