package survey

import "github.com/kuitang/omni-uiverify/internal/errs"

// Sample is one observation of the submission screen.
type Sample struct {
	Loading bool
	Success bool
}

// Transition tracks the Step4 → Submitting → Success sequence across
// samples. The loading overlay is optional, but once success is reached it
// must not reappear.
type Transition struct {
	sawLoading bool
	done       bool
}

// Observe folds s into the transition. It reports whether success has been
// reached, and fails if loading is seen after success.
func (t *Transition) Observe(s Sample) (bool, error) {
	if s.Loading {
		if t.done {
			return true, errs.New(errs.AssertionFailure, "Loading overlay shown after success")
		}
		t.sawLoading = true
	}
	if s.Success && !s.Loading {
		t.done = true
	}
	return t.done, nil
}

// SawLoading reports whether the loading overlay was ever observed.
func (t *Transition) SawLoading() bool { return t.sawLoading }

// Done reports whether success has been reached.
func (t *Transition) Done() bool { return t.done }
