// Package browser owns the playwright lifecycle for one verification run and
// the element queries checkpoints are built from.
//
// A Session is one playwright driver, one Chromium instance, one isolated
// context and one page. Sessions share nothing, so concurrent workflows each
// launch their own.
package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/kuitang/omni-uiverify/internal/config"
	"github.com/kuitang/omni-uiverify/internal/logutil"
	"github.com/kuitang/omni-uiverify/internal/obs"
)

// consoleLogLimit caps console and page-error text copied into logs.
const consoleLogLimit = 500

// Options configures a Session.
type Options struct {
	ViewportWidth  int
	ViewportHeight int
	UserAgent      string
	Headless       bool
	// Timeout is the default for every playwright call on the page.
	Timeout time.Duration
}

// OptionsFromConfig maps run configuration onto session options.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		ViewportWidth:  cfg.ViewportWidth,
		ViewportHeight: cfg.ViewportHeight,
		UserAgent:      cfg.UserAgent,
		Headless:       cfg.Headless,
		Timeout:        cfg.BrowserTimeout,
	}
}

// Session is a launched browser with one page.
type Session struct {
	opts    Options
	log     *slog.Logger
	pw      *playwright.Playwright
	browser playwright.Browser
	context playwright.BrowserContext
	page    playwright.Page

	closeOnce sync.Once
	closeErr  error
}

// Launch starts playwright, launches Chromium and opens a page with the
// configured viewport and user agent. On error everything already started
// is torn down.
func Launch(ctx context.Context, opts Options) (*Session, error) {
	s := &Session{opts: opts, log: obs.From(ctx).With("pkg", "browser")}

	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("running playwright: %w", err)
	}
	s.pw = pw

	s.browser, err = pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(opts.Headless),
	})
	if err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("launching chromium: %w", err)
	}

	s.context, err = s.browser.NewContext(playwright.BrowserNewContextOptions{
		Viewport: &playwright.Size{
			Width:  opts.ViewportWidth,
			Height: opts.ViewportHeight,
		},
		UserAgent: playwright.String(opts.UserAgent),
	})
	if err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("creating browser context: %w", err)
	}
	timeoutMS := float64(opts.Timeout.Milliseconds())
	s.context.SetDefaultTimeout(timeoutMS)
	s.context.SetDefaultNavigationTimeout(timeoutMS)

	s.page, err = s.context.NewPage()
	if err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("creating page: %w", err)
	}
	s.page.SetDefaultTimeout(timeoutMS)
	s.page.SetDefaultNavigationTimeout(timeoutMS)
	s.forwardPageEvents()

	s.log.Debug("browser session started",
		"viewport_width", opts.ViewportWidth,
		"viewport_height", opts.ViewportHeight,
		"headless", opts.Headless,
	)
	return s, nil
}

func (s *Session) forwardPageEvents() {
	s.page.OnConsole(func(msg playwright.ConsoleMessage) {
		s.log.Info("browser console",
			"type", msg.Type(),
			"text", logutil.TruncateForLog(msg.Text(), consoleLogLimit),
		)
	})
	s.page.OnPageError(func(err error) {
		s.log.Warn("browser page error",
			"error", logutil.TruncateForLog(err.Error(), consoleLogLimit),
		)
	})
	// alert() and confirm() would otherwise block until the default timeout.
	s.page.OnDialog(func(dialog playwright.Dialog) {
		s.log.Info("browser dialog accepted",
			"type", dialog.Type(),
			"message", logutil.TruncateForLog(dialog.Message(), consoleLogLimit),
		)
		_ = dialog.Accept()
	})
}

// Page returns the session's page.
func (s *Session) Page() playwright.Page {
	return s.page
}

// Options returns the options the session was launched with.
func (s *Session) Options() Options {
	return s.opts
}

// Open navigates to url and waits for network idle.
func (s *Session) Open(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := s.page.Goto(url); err != nil {
		return fmt.Errorf("navigating to %s: %w", url, err)
	}
	if err := s.page.WaitForLoadState(playwright.PageWaitForLoadStateOptions{
		State: playwright.LoadStateNetworkidle,
	}); err != nil {
		return fmt.Errorf("waiting for network idle on %s: %w", url, err)
	}
	obs.From(ctx).Debug("document loaded", "pkg", "browser", "url", url)
	return nil
}

// Screenshot writes a full-page PNG to path, creating parent directories.
func (s *Session) Screenshot(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating artifact directory: %w", err)
	}
	if _, err := s.page.Screenshot(playwright.PageScreenshotOptions{
		Path:     playwright.String(path),
		FullPage: playwright.Bool(true),
	}); err != nil {
		return fmt.Errorf("capturing %s: %w", path, err)
	}
	return nil
}

// Close releases page, context, browser and driver in that order. It is
// safe to call more than once and from a deferred call on every path.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		var errList []error
		if s.page != nil {
			if err := s.page.Close(); err != nil {
				errList = append(errList, fmt.Errorf("closing page: %w", err))
			}
		}
		if s.context != nil {
			if err := s.context.Close(); err != nil {
				errList = append(errList, fmt.Errorf("closing context: %w", err))
			}
		}
		if s.browser != nil {
			if err := s.browser.Close(); err != nil {
				errList = append(errList, fmt.Errorf("closing browser: %w", err))
			}
		}
		if s.pw != nil {
			if err := s.pw.Stop(); err != nil {
				errList = append(errList, fmt.Errorf("stopping playwright: %w", err))
			}
		}
		s.closeErr = errors.Join(errList...)
		if s.closeErr != nil {
			s.log.Warn("browser session closed with errors", "error", s.closeErr)
		} else {
			s.log.Debug("browser session closed")
		}
	})
	return s.closeErr
}
