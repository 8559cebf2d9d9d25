package portfolio

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kuitang/omni-uiverify/internal/browser"
	"github.com/kuitang/omni-uiverify/internal/checkpoint"
	"github.com/kuitang/omni-uiverify/internal/errs"
	"github.com/kuitang/omni-uiverify/internal/poll"
	"github.com/kuitang/omni-uiverify/internal/selectors"
)

func TestMain(m *testing.M) {
	color.NoColor = true
	os.Exit(m.Run())
}

func TestCheckpoints_Sequence(t *testing.T) {
	t.Parallel()
	want := []string{
		"Page Load",
		"Header Elements",
		"Alert Banner",
		"Score Summary",
		"Navigation Tabs",
		"Domain Cards",
		"Survey Timeline",
		"Clinical Notes",
		"Bottom Navigation",
		"Detail Sheet Modal",
		"Close Detail Sheet",
		"Quick Action Buttons",
		"Responsive Layout",
	}
	cps := Checkpoints("file:///tmp/portfolio.html")
	require.Len(t, cps, len(want))
	for i, cp := range cps {
		assert.Equal(t, want[i], cp.Name, "checkpoint %d", i+1)
		assert.NotNil(t, cp.Run, "checkpoint %q has no body", cp.Name)
	}
	assert.Equal(t, InitialArtifact, cps[0].Artifact)
}

func TestPrintSummary(t *testing.T) {
	t.Parallel()
	res := &checkpoint.Result{Passed: true, Tallies: map[string]int{
		TallyTabs: 4, TallyDomainCards: 4, TallyTimelineItems: 3, TallyNotes: 2, TallyNavItems: 4, TallyResponses: 4,
	}}
	var buf bytes.Buffer
	PrintSummary(&buf, res)
	out := buf.String()
	for _, line := range []string{"  - 4 tabs", "  - 3 timeline items", "  - 2 clinical notes", "  - 4 detail sheet responses"} {
		assert.Contains(t, out, line)
	}

	buf.Reset()
	PrintSummary(&buf, &checkpoint.Result{})
	assert.Empty(t, buf.String(), "failed runs print no summary")
}

func newRunner(t *testing.T, s *browser.Session, cat *selectors.Catalog) (*checkpoint.Runner, *bytes.Buffer) {
	t.Helper()
	var out bytes.Buffer
	return &checkpoint.Runner{
		Workflow:      Workflow,
		Target:        s,
		Catalog:       cat,
		ArtifactDir:   t.TempDir(),
		Poll:          poll.Options{Timeout: browser.TestTimeout, Interval: 20 * time.Millisecond},
		ViewportWidth: s.Options().ViewportWidth,
		Out:           &out,
	}, &out
}

func TestWorkflow_ReferencePage(t *testing.T) {
	s := browser.LaunchForTest(t, browser.TestOptions())
	r, out := newRunner(t, s, selectors.Default())

	res := r.Run(context.Background(), Checkpoints(browser.ReferencePage(t, "portfolio.html")))
	require.Truef(t, res.Passed, "run failed: %v\n%s", res.Err, out.String())

	// Enumeration tallies equal the number of matching elements.
	page := s.Page()
	counts := map[string]string{
		TallyTabs:          ".tab-mobile",
		TallyDomainCards:   ".domain-card-mobile",
		TallyTimelineItems: ".timeline-item-mobile",
		TallyNotes:         ".note-mobile",
		TallyNavItems:      ".nav-item",
		TallyResponses:     ".response-item",
		TallyFABs:          ".fab",
	}
	for key, selector := range counts {
		n, err := page.Locator(selector).Count()
		require.NoError(t, err)
		assert.Equal(t, n, res.Tally(key), "tally %s", key)
	}

	for _, name := range []string{InitialArtifact, DetailSheetArtifact} {
		path := filepath.Join(r.ArtifactDir, name)
		assert.Contains(t, res.Artifacts, path)
		_, err := os.Stat(path)
		assert.NoError(t, err, "artifact %s", name)
	}
	assert.Contains(t, out.String(), "✓ Patient name: Johnny Appleseed")
	assert.Contains(t, out.String(), "  - Overview: ACTIVE")
	assert.Contains(t, out.String(), "✓ No horizontal overflow detected")
}

func TestWorkflow_RenamedSelectorFailsWithErrorScreenshot(t *testing.T) {
	s := browser.LaunchForTest(t, browser.TestOptions())
	cat := selectors.Default()
	require.NoError(t, cat.Override(map[selectors.Name]string{selectors.DetailSheet: "#bottomSheet"}))
	r, out := newRunner(t, s, cat)

	res := r.Run(context.Background(), Checkpoints(browser.ReferencePage(t, "portfolio.html")))
	require.False(t, res.Passed)

	failed := res.Failure()
	require.NotNil(t, failed)
	assert.Equal(t, "Detail Sheet Modal", failed.Name)
	assert.Equal(t, errs.UnexpectedFault, failed.Code)
	assert.Equal(t, checkpoint.StatusNotRun, res.Outcomes[len(res.Outcomes)-1].Status)

	assert.Equal(t, filepath.Join(r.ArtifactDir, "portfolio_error.png"), res.ErrorArtifact)
	_, err := os.Stat(res.ErrorArtifact)
	assert.NoError(t, err)
	assert.True(t, strings.Contains(out.String(), "✗ Detail Sheet Modal:"), out.String())
}

// Load in a 375x812 viewport, open the detail sheet from the first timeline
// entry, close it from the overlay.
func TestScenario_DetailSheetOpensAndCloses(t *testing.T) {
	opts := browser.TestOptions()
	require.Equal(t, 375, opts.ViewportWidth)
	require.Equal(t, 812, opts.ViewportHeight)

	s := browser.LaunchForTest(t, opts)
	ctx := context.Background()
	require.NoError(t, s.Open(ctx, browser.ReferencePage(t, "portfolio.html")))
	page := s.Page()
	wait := poll.Options{Timeout: browser.TestTimeout, Interval: 20 * time.Millisecond}

	visible, err := page.Locator(".mobile-header").IsVisible()
	require.NoError(t, err)
	require.True(t, visible, ".mobile-header should be visible")

	require.NoError(t, page.Locator(".timeline-item-mobile").First().Click())
	sheet := page.Locator("#detailSheet")
	require.NoError(t, browser.WaitForClass(ctx, sheet, "show", true, wait))

	require.NoError(t, page.Locator("#overlay").Click())
	require.NoError(t, browser.WaitForClass(ctx, sheet, "show", false, wait))
}
