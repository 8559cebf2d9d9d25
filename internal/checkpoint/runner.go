// Package checkpoint runs an ordered list of verification checkpoints
// against one page, halting at the first failure.
//
// Assertion failures and unexpected faults are handled the same way: a
// full-page diagnostic screenshot is written to <artifact-dir>/<workflow>_error.png,
// a failure line naming the checkpoint is printed, the remaining checkpoints
// are recorded as not run, and the run stops. Nothing is retried.
package checkpoint

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"github.com/playwright-community/playwright-go"

	"github.com/kuitang/omni-uiverify/internal/errs"
	"github.com/kuitang/omni-uiverify/internal/obs"
	"github.com/kuitang/omni-uiverify/internal/poll"
	"github.com/kuitang/omni-uiverify/internal/selectors"
)

// Checkpoint is one named verification step.
type Checkpoint struct {
	Name string
	Run  func(*Step) error
	// Artifact, when set, names a screenshot captured after Run passes.
	Artifact string
}

// Target is the page a run drives. *browser.Session implements it.
type Target interface {
	Open(ctx context.Context, url string) error
	Page() playwright.Page
	Screenshot(path string) error
}

// Runner executes checkpoints for one workflow.
type Runner struct {
	Workflow    string
	Target      Target
	Catalog     *selectors.Catalog
	ArtifactDir string
	// Poll bounds every post-interaction wait.
	Poll poll.Options
	// Settle is an optional fixed pause after each interaction, taken
	// before polling starts.
	Settle time.Duration
	// ViewportWidth is the width the layout-overflow checks compare against.
	ViewportWidth int
	Out           io.Writer
	// RunID is generated when empty.
	RunID string
}

// ErrorArtifactPath returns the diagnostic screenshot path for workflow.
func ErrorArtifactPath(artifactDir, workflow string) string {
	return filepath.Join(artifactDir, workflow+"_error.png")
}

// Run executes checkpoints in order and returns the finalized result.
func (r *Runner) Run(ctx context.Context, checkpoints []Checkpoint) *Result {
	runID := r.RunID
	if runID == "" {
		runID = uuid.NewString()
	}
	ctx = obs.WithRun(ctx, obs.Run{RunID: runID, Workflow: r.Workflow})
	log := obs.From(ctx).With("pkg", "checkpoint")

	res := &Result{
		RunID:    runID,
		Workflow: r.Workflow,
		Started:  time.Now(),
		Outcomes: make([]Outcome, len(checkpoints)),
		Tallies:  make(map[string]int),
	}
	for i, cp := range checkpoints {
		res.Outcomes[i] = Outcome{Index: i + 1, Name: cp.Name, Status: StatusNotRun}
	}
	printer := NewPrinter(r.Out)
	log.Info("workflow started", "checkpoints", len(checkpoints))

	for i, cp := range checkpoints {
		printer.Header(i+1, cp.Name)
		step := &Step{ctx: ctx, runner: r, result: res, printer: printer, index: i + 1}

		started := time.Now()
		err := r.execute(ctx, step, cp)
		out := &res.Outcomes[i]
		out.Duration = time.Since(started)

		var skipped *skipError
		switch {
		case err == nil:
			out.Status = StatusPassed
		case errors.As(err, &skipped):
			out.Status = StatusSkipped
			out.Message = skipped.reason
			printer.Warn("Skipped: %s", skipped.reason)
			log.Info("checkpoint skipped", "checkpoint", cp.Name, "reason", skipped.reason)
		default:
			out.Status = StatusFailed
			out.Code = errs.CodeOf(err)
			out.Message = errs.MessageOf(err)
			r.fail(ctx, printer, res, cp.Name, err)
			res.Duration = time.Since(res.Started)
			return res
		}
		log.Debug("checkpoint finished", "checkpoint", cp.Name, "status", out.Status, "duration_ms", out.Duration.Milliseconds())
	}

	res.Passed = true
	res.Duration = time.Since(res.Started)
	log.Info("workflow passed", "duration_ms", res.Duration.Milliseconds(), "artifacts", len(res.Artifacts))
	return res
}

// execute runs one checkpoint and its optional artifact capture, turning
// panics and cancellation into unexpected faults.
func (r *Runner) execute(ctx context.Context, step *Step, cp Checkpoint) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			obs.From(ctx).Error("checkpoint panicked", "pkg", "checkpoint", "checkpoint", cp.Name, "panic", rec, "stack", string(debug.Stack()))
			err = errs.Newf(errs.UnexpectedFault, "panic: %v", rec)
		}
	}()

	if ctxErr := ctx.Err(); ctxErr != nil {
		return errs.Wrap(errs.UnexpectedFault, "run cancelled", ctxErr)
	}
	if cp.Run == nil {
		return errs.Newf(errs.UnexpectedFault, "checkpoint %q has no body", cp.Name)
	}
	if err := cp.Run(step); err != nil {
		return err
	}
	if cp.Artifact != "" {
		if _, err := step.Screenshot(cp.Artifact); err != nil {
			return err
		}
	}
	return nil
}

func (r *Runner) fail(ctx context.Context, printer *Printer, res *Result, name string, cause error) {
	msg := errs.MessageOf(cause)
	printer.Fail("%s: %s", name, msg)

	log := obs.From(ctx).With("pkg", "checkpoint")
	log.Error("checkpoint failed", "checkpoint", name, "code", errs.CodeOf(cause), "error", msg)

	res.Err = fmt.Errorf("%s: checkpoint %q: %w", r.Workflow, name, cause)
	if r.Target == nil {
		return
	}
	path := ErrorArtifactPath(r.ArtifactDir, r.Workflow)
	if err := r.Target.Screenshot(path); err != nil {
		printer.Warn("Could not save error screenshot: %v", err)
		log.Warn("error screenshot failed", "path", path, "error", err)
		return
	}
	res.ErrorArtifact = path
	res.Artifacts = append(res.Artifacts, path)
	printer.Line("Error screenshot saved to %s", path)
}
