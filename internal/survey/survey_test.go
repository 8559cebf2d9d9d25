package survey

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/playwright-community/playwright-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kuitang/omni-uiverify/internal/browser"
	"github.com/kuitang/omni-uiverify/internal/checkpoint"
	"github.com/kuitang/omni-uiverify/internal/errs"
	"github.com/kuitang/omni-uiverify/internal/poll"
	"github.com/kuitang/omni-uiverify/internal/selectors"
)

const testSubmitTimeout = 10 * time.Second

var testPoll = poll.Options{Timeout: browser.TestTimeout, Interval: 20 * time.Millisecond}

func TestMain(m *testing.M) {
	color.NoColor = true
	os.Exit(m.Run())
}

func TestCheckpoints_Sequence(t *testing.T) {
	t.Parallel()
	want := []string{
		"Page Load",
		"Header Elements",
		"Progress Bar (Step 1)",
		"Step 1 - Patient Selection",
		"Patient Selection Toggle",
		"Search Functionality",
		"Navigate to Step 2",
		"Step 2 - Survey Type Selection",
		"Survey Type Toggle",
		"Navigate to Step 3",
		"Step 3 - Schedule Options",
		"Schedule for Later",
		"Navigate to Step 4 (Review)",
		"Step 4 - Review Screen",
		"Back Button Navigation",
		"Send Surveys",
		"Responsive Layout",
	}
	cps := Checkpoints("file:///tmp/send-survey.html", time.Second)
	require.Len(t, cps, len(want))
	for i, cp := range cps {
		assert.Equal(t, want[i], cp.Name, "checkpoint %d", i+1)
	}
	artifacts := map[string]string{}
	for _, cp := range cps {
		if cp.Artifact != "" {
			artifacts[cp.Name] = cp.Artifact
		}
	}
	assert.Equal(t, map[string]string{
		"Page Load":                   Step1Artifact,
		"Navigate to Step 2":          Step2Artifact,
		"Navigate to Step 3":          Step3Artifact,
		"Navigate to Step 4 (Review)": Step4Artifact,
	}, artifacts)
}

func TestPrintSummary(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	PrintSummary(&buf, &checkpoint.Result{Passed: true, Tallies: map[string]int{TallyPatients: 5, TallySurveyTypes: 3}})
	assert.Contains(t, buf.String(), "Step 1: Patient selection (5 patients)")
	assert.Contains(t, buf.String(), "Step 2: Survey type selection (3 types)")
}

func openSurvey(t *testing.T) (*browser.Session, playwright.Page) {
	t.Helper()
	s := browser.LaunchForTest(t, browser.TestOptions())
	require.NoError(t, s.Open(context.Background(), browser.ReferencePage(t, "send-survey.html")))
	return s, s.Page()
}

func TestWorkflow_ReferencePage(t *testing.T) {
	s := browser.LaunchForTest(t, browser.TestOptions())
	var out bytes.Buffer
	r := &checkpoint.Runner{
		Workflow:      Workflow,
		Target:        s,
		Catalog:       selectors.Default(),
		ArtifactDir:   t.TempDir(),
		Poll:          testPoll,
		ViewportWidth: s.Options().ViewportWidth,
		Out:           &out,
	}

	res := r.Run(context.Background(), Checkpoints(browser.ReferencePage(t, "send-survey.html"), testSubmitTimeout))
	require.Truef(t, res.Passed, "run failed: %v\n%s", res.Err, out.String())
	assert.Zero(t, res.Count(checkpoint.StatusSkipped))

	assert.Equal(t, 5, res.Tally(TallyPatients))
	assert.Equal(t, 3, res.Tally(TallyPreselected))
	assert.Equal(t, 3, res.Tally(TallySurveyTypes))
	assert.Equal(t, 2, res.Tally(TallyScheduleOptions))
	assert.Equal(t, 2, res.Tally(TallyReminders))
	assert.Equal(t, 3, res.Tally(TallyReviewItems))
	assert.Equal(t, 3, res.Tally(TallyEditButtons))

	for _, name := range []string{Step1Artifact, Step2Artifact, Step3Artifact, Step4Artifact, LoadingArtifact, SuccessArtifact} {
		_, err := os.Stat(filepath.Join(r.ArtifactDir, name))
		assert.NoError(t, err, "artifact %s", name)
	}

	text := out.String()
	assert.Contains(t, text, "Selecting patient: Sofia Alvarez")
	assert.Contains(t, text, "✓ Search filtered to 1 patient(s)")
	assert.Contains(t, text, "✓ Progress bar width: 50%")
	assert.Contains(t, text, "  - Patients: 3 patient(s) selected")
	assert.Contains(t, text, "✓ Success message: Surveys Sent!")
}

// Load, expect step 1, continue, expect step 2 with a changed progress width.
func TestScenario_ContinueAdvancesToStep2(t *testing.T) {
	_, page := openSurvey(t)
	ctx := context.Background()

	has, err := browser.HasClass(page.Locator("#step1"), "active")
	require.NoError(t, err)
	require.True(t, has, "#step1 should be active")
	before, err := browser.InlineWidth(page.Locator("#progressBar"))
	require.NoError(t, err)

	require.NoError(t, page.Locator(".btn-primary").First().Click())
	require.NoError(t, browser.WaitForClass(ctx, page.Locator("#step2"), "active", true, testPoll))

	after, err := browser.InlineWidth(page.Locator("#progressBar"))
	require.NoError(t, err)
	assert.NotEqual(t, before, after)
}

func TestSearch_FilterNarrowsAndClearRestores(t *testing.T) {
	_, page := openSurvey(t)
	ctx := context.Background()
	cards := page.Locator(".patient-card")
	input := page.Locator(".search-input")

	unfiltered, err := browser.VisibleCount(cards)
	require.NoError(t, err)

	require.NoError(t, input.Fill(SearchTerm))
	filtered, err := browser.WaitForCount(ctx, cards, testPoll, func(n int) bool { return n <= unfiltered })
	require.NoError(t, err)
	assert.LessOrEqual(t, filtered, unfiltered)
	assert.Equal(t, 1, filtered)

	require.NoError(t, input.Fill(""))
	restored, err := browser.WaitForCount(ctx, cards, testPoll, func(n int) bool { return n == unfiltered })
	require.NoError(t, err)
	assert.Equal(t, unfiltered, restored)
}

func TestPatientToggle_SelectThenDeselectRestoresState(t *testing.T) {
	_, page := openSurvey(t)
	ctx := context.Background()
	cards := page.Locator(".patient-card")
	n, err := cards.Count()
	require.NoError(t, err)

	for i := 0; i < n; i++ {
		card := cards.Nth(i)
		initial, err := browser.HasClass(card, "selected")
		require.NoError(t, err)

		require.NoError(t, card.Click())
		require.NoError(t, browser.WaitForClass(ctx, card, "selected", !initial, testPoll), "card %d first click", i)
		require.NoError(t, card.Click())
		require.NoError(t, browser.WaitForClass(ctx, card, "selected", initial, testPoll), "card %d second click", i)
	}
}

func TestStepScreens_ExactlyOneActive(t *testing.T) {
	_, page := openSurvey(t)
	ctx := context.Background()

	steps := []string{"#step1", "#step2", "#step3", "#step4"}
	for i, id := range steps {
		if i > 0 {
			if id == "#step3" {
				// Step 2 requires a survey type.
				require.NoError(t, page.Locator(".survey-card").First().Click())
			}
			require.NoError(t, page.Locator(".btn-primary").First().Click())
		}
		require.NoError(t, browser.WaitForClass(ctx, page.Locator(id), "active", true, testPoll), id)
		active, err := page.Locator(".step-screen.active").Count()
		require.NoError(t, err)
		assert.Equal(t, 1, active, "while %s is current", id)
	}
}

func TestWorkflow_MissingSuccessScreenFailsAtSend(t *testing.T) {
	s := browser.LaunchForTest(t, browser.TestOptions())
	cat := selectors.Default()
	require.NoError(t, cat.Override(map[selectors.Name]string{selectors.SuccessTitle: ".confirmation-title"}))
	var out bytes.Buffer
	r := &checkpoint.Runner{
		Workflow:      Workflow,
		Target:        s,
		Catalog:       cat,
		ArtifactDir:   t.TempDir(),
		Poll:          testPoll,
		ViewportWidth: s.Options().ViewportWidth,
		Out:           &out,
	}

	res := r.Run(context.Background(), Checkpoints(browser.ReferencePage(t, "send-survey.html"), 3*time.Second))
	require.False(t, res.Passed)
	failed := res.Failure()
	require.NotNil(t, failed)
	assert.Equal(t, "Send Surveys", failed.Name)
	assert.Equal(t, errs.AssertionFailure, failed.Code)
	assert.Equal(t, checkpoint.StatusNotRun, res.Outcomes[len(res.Outcomes)-1].Status)
	assert.FileExists(t, filepath.Join(r.ArtifactDir, "send_survey_error.png"))
	assert.FileExists(t, filepath.Join(r.ArtifactDir, LoadingArtifact))
}
