package browser

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/kuitang/omni-uiverify/internal/config"
)

// TestTimeout bounds every browser wait in tests. Never introduce a larger
// browser timeout in a test.
const TestTimeout = 5 * time.Second

// TestOptions returns the default mobile session options with test timeouts.
func TestOptions() Options {
	opts := OptionsFromConfig(config.Default())
	opts.Timeout = TestTimeout
	return opts
}

// LaunchForTest launches a session for a test and closes it on cleanup.
// Skips the test in -short mode or when playwright or Chromium is missing.
func LaunchForTest(t testing.TB, opts Options) *Session {
	t.Helper()
	if testing.Short() {
		t.Skip("browser test skipped in -short mode")
	}
	s, err := Launch(context.Background(), opts)
	if err != nil {
		t.Skip("Playwright not available:", err)
	}
	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Logf("closing browser session: %v", err)
		}
	})
	return s
}

// ReferencePage returns the file:// URL of a document under web/pages.
func ReferencePage(t testing.TB, name string) string {
	t.Helper()
	path := filepath.Join(RepositoryRoot(), "web", "pages", name)
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("reference page %s: %v", name, err)
	}
	u, err := config.FileURL(path)
	if err != nil {
		t.Fatalf("reference page URL: %v", err)
	}
	return u
}

// RepositoryRoot returns the module root, resolved from this source file.
func RepositoryRoot() string {
	_, filename, _, ok := runtime.Caller(0)
	if !ok {
		panic("failed to resolve repository root")
	}
	return filepath.Clean(filepath.Join(filepath.Dir(filename), "..", ".."))
}
