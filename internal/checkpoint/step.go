package checkpoint

import (
	"context"
	"errors"
	"path/filepath"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/kuitang/omni-uiverify/internal/browser"
	"github.com/kuitang/omni-uiverify/internal/errs"
	"github.com/kuitang/omni-uiverify/internal/poll"
	"github.com/kuitang/omni-uiverify/internal/selectors"
)

// Step is the handle a checkpoint body works through.
type Step struct {
	ctx     context.Context
	runner  *Runner
	result  *Result
	printer *Printer
	index   int
}

type skipError struct {
	reason string
}

func (e *skipError) Error() string { return "skipped: " + e.reason }

// Context returns the run context.
func (s *Step) Context() context.Context { return s.ctx }

// Index is the 1-based position of the running checkpoint.
func (s *Step) Index() int { return s.index }

// Page returns the page under verification.
func (s *Step) Page() playwright.Page { return s.runner.Target.Page() }

// Selector returns the catalog selector for name.
func (s *Step) Selector(name selectors.Name) string { return s.runner.Catalog.Get(name) }

// Locator resolves a catalog name against the page.
func (s *Step) Locator(name selectors.Name) playwright.Locator {
	return s.Page().Locator(s.Selector(name))
}

// Within resolves a catalog name inside parent.
func (s *Step) Within(parent playwright.Locator, name selectors.Name) playwright.Locator {
	return parent.Locator(s.Selector(name))
}

// ViewportWidth is the configured viewport width.
func (s *Step) ViewportWidth() int { return s.runner.ViewportWidth }

// Printer returns the progress printer.
func (s *Step) Printer() *Printer { return s.printer }

// Pass prints a ✓ progress line.
func (s *Step) Pass(format string, args ...any) { s.printer.Pass(format, args...) }

// Item prints an enumeration line.
func (s *Step) Item(format string, args ...any) { s.printer.Item(format, args...) }

// Warn prints a ⚠ progress line.
func (s *Step) Warn(format string, args ...any) { s.printer.Warn(format, args...) }

// Tally records an enumeration count for the final summary.
func (s *Step) Tally(key string, n int) { s.result.Tallies[key] = n }

// Skip ends the checkpoint without failing the run. Use it only where an
// element is optional on the page.
func (s *Step) Skip(reason string) error { return &skipError{reason: reason} }

// Expect returns an assertion failure carrying the formatted message when
// ok is false.
func (s *Step) Expect(ok bool, format string, args ...any) error {
	if ok {
		return nil
	}
	return errs.Assertf(format, args...)
}

// Fault wraps a browser error as an unexpected fault.
func (s *Step) Fault(what string, err error) error {
	if err == nil {
		return nil
	}
	return errs.Wrap(errs.UnexpectedFault, what, err)
}

// Settle takes the configured fixed pause after an interaction.
func (s *Step) Settle() error {
	if s.runner.Settle <= 0 {
		return nil
	}
	if err := poll.Sleep(s.ctx, s.runner.Settle); err != nil {
		return errs.Wrap(errs.UnexpectedFault, "run cancelled", err)
	}
	return nil
}

// Await settles, then polls cond within the run's poll bound. A timeout is
// an assertion failure carrying message; any other error is a fault.
func (s *Step) Await(message string, cond poll.Condition) error {
	return s.AwaitWithin(s.runner.Poll.Timeout, message, cond)
}

// AwaitWithin is Await with an explicit bound.
func (s *Step) AwaitWithin(timeout time.Duration, message string, cond poll.Condition) error {
	if err := s.Settle(); err != nil {
		return err
	}
	opts := s.runner.Poll
	opts.Timeout = timeout
	return classify(message, poll.Until(s.ctx, opts, cond))
}

// AwaitClass settles, then waits until loc's membership of class equals want.
func (s *Step) AwaitClass(loc playwright.Locator, class string, want bool, message string) error {
	if err := s.Settle(); err != nil {
		return err
	}
	return classify(message, browser.WaitForClass(s.ctx, loc, class, want, s.runner.Poll))
}

// AwaitVisibleCount settles, then waits until the number of visible
// elements loc matches satisfies ok. It returns the last count observed.
func (s *Step) AwaitVisibleCount(loc playwright.Locator, ok func(int) bool, message string) (int, error) {
	if err := s.Settle(); err != nil {
		return 0, err
	}
	n, err := browser.WaitForCount(s.ctx, loc, s.runner.Poll, ok)
	return n, classify(message, err)
}

// classify maps a poll error onto a checkpoint failure. Coded errors a
// condition stopped with keep their code.
func classify(message string, err error) error {
	var coded *errs.Error
	switch {
	case err == nil:
		return nil
	case !errors.Is(err, poll.ErrTimeout) && errors.As(err, &coded):
		return err
	case errors.Is(err, poll.ErrTimeout):
		return errs.Wrap(errs.AssertionFailure, message, err)
	default:
		return errs.Wrap(errs.UnexpectedFault, message, err)
	}
}

// Open navigates the page to url and waits for network idle.
func (s *Step) Open(url string) error {
	s.result.URL = url
	if err := s.runner.Target.Open(s.ctx, url); err != nil {
		return errs.Wrap(errs.UnexpectedFault, "loading "+url, err)
	}
	return nil
}

// Screenshot captures a full-page artifact named name in the artifact
// directory and records it on the result.
func (s *Step) Screenshot(name string) (string, error) {
	path := filepath.Join(s.runner.ArtifactDir, name)
	if err := s.runner.Target.Screenshot(path); err != nil {
		return "", errs.Wrap(errs.UnexpectedFault, "screenshot "+name, err)
	}
	s.result.Artifacts = append(s.result.Artifacts, path)
	s.printer.Pass("Screenshot saved to %s", path)
	return path, nil
}
