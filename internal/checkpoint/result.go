package checkpoint

import (
	"time"

	"github.com/kuitang/omni-uiverify/internal/errs"
)

// Status is the outcome of one checkpoint.
type Status string

const (
	StatusPassed  Status = "passed"
	StatusFailed  Status = "failed"
	StatusSkipped Status = "skipped"
	StatusNotRun  Status = "not run"
)

// Outcome records what happened to one checkpoint.
type Outcome struct {
	Index    int
	Name     string
	Status   Status
	Code     errs.Code // set when Status is StatusFailed
	Message  string
	Duration time.Duration
}

// Result is the aggregate outcome of one workflow run.
type Result struct {
	RunID    string
	Workflow string
	URL      string
	Started  time.Time
	Duration time.Duration

	Outcomes []Outcome
	Passed   bool
	Err      error

	// Artifacts lists every file written during the run, in capture order.
	Artifacts []string
	// ErrorArtifact is the diagnostic screenshot path, set on failure.
	ErrorArtifact string
	// Tallies holds the enumeration counts checkpoints report.
	Tallies map[string]int
}

// Failure returns the failed outcome, or nil if the run passed.
func (r *Result) Failure() *Outcome {
	for i := range r.Outcomes {
		if r.Outcomes[i].Status == StatusFailed {
			return &r.Outcomes[i]
		}
	}
	return nil
}

// Count returns how many outcomes have status.
func (r *Result) Count(status Status) int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Status == status {
			n++
		}
	}
	return n
}

// Tally returns the recorded count for key.
func (r *Result) Tally(key string) int {
	return r.Tallies[key]
}

// ExitCode is 0 when every checkpoint passed and 1 otherwise.
func (r *Result) ExitCode() int {
	if r.Passed {
		return 0
	}
	return 1
}
