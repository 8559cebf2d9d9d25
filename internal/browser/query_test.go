package browser

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"pgregory.net/rapid"

	"github.com/kuitang/omni-uiverify/internal/errs"
	"github.com/kuitang/omni-uiverify/internal/poll"
)

func TestContainsClass(t *testing.T) {
	t.Parallel()
	cases := []struct {
		attr  string
		class string
		want  bool
	}{
		{"detail-sheet show", "show", true},
		{"detail-sheet", "show", false},
		{"patient-card unselected", "selected", false},
		{"  step-screen\tactive ", "active", true},
		{"", "active", false},
	}
	for _, tc := range cases {
		if got := ContainsClass(tc.attr, tc.class); got != tc.want {
			t.Fatalf("ContainsClass(%q, %q) = %t, want %t", tc.attr, tc.class, got, tc.want)
		}
	}
}

func testContainsClass_MatchesWholeTokensOnly(t *rapid.T) {
	token := rapid.StringMatching(`[a-z][a-z-]{0,12}`).Draw(t, "token")
	others := rapid.SliceOf(rapid.StringMatching(`[a-z][a-z-]{0,12}`)).Draw(t, "others")

	var kept []string
	for _, o := range others {
		if o != token {
			kept = append(kept, o)
		}
	}
	without := strings.Join(kept, " ")
	if ContainsClass(without, token) {
		t.Fatalf("%q reported in %q", token, without)
	}
	if ContainsClass(without+" x"+token, token) {
		t.Fatalf("prefixed token matched %q", token)
	}
	with := strings.Join(append(kept, token), " ")
	if !ContainsClass(with, token) {
		t.Fatalf("%q missing from %q", token, with)
	}
	snap := Snapshot{Classes: ClassTokens(with)}
	if !snap.HasClass(token) {
		t.Fatalf("snapshot of %q missing %q", with, token)
	}
}

func TestContainsClass_MatchesWholeTokensOnly(t *testing.T) {
	t.Parallel()
	rapid.Check(t, testContainsClass_MatchesWholeTokensOnly)
}

func TestToInt(t *testing.T) {
	t.Parallel()
	for _, v := range []any{375, int64(375), 375.0, 374.6} {
		n, err := toInt(v)
		if err != nil || n != 375 {
			t.Fatalf("toInt(%v) = %d, %v", v, n, err)
		}
	}
	if _, err := toInt("375px"); err == nil {
		t.Fatal("expected error for string value")
	}
}

func TestSession_PortfolioQueries(t *testing.T) {
	s := LaunchForTest(t, TestOptions())
	ctx := context.Background()
	if err := s.Open(ctx, ReferencePage(t, "portfolio.html")); err != nil {
		t.Fatalf("open: %v", err)
	}
	page := s.Page()

	header, err := Capture(page.Locator(".patient-name-mobile"))
	if err != nil {
		t.Fatalf("capture: %v", err)
	}
	if !header.Visible || header.Text != "Johnny Appleseed" {
		t.Fatalf("unexpected header snapshot: %+v", header)
	}

	if err := Require(page.Locator(".no-such-element"), "missing element"); errs.CodeOf(err) != errs.UnexpectedFault {
		t.Fatalf("Require on missing element = %v, want unexpected fault", err)
	}

	sheet := page.Locator("#detailSheet")
	if err := page.Locator(".timeline-item-mobile").First().Click(); err != nil {
		t.Fatalf("click timeline: %v", err)
	}
	opts := poll.Options{Timeout: TestTimeout, Interval: 20 * time.Millisecond}
	if err := WaitForClass(ctx, sheet, "show", true, opts); err != nil {
		t.Fatalf("detail sheet never opened: %v", err)
	}

	width, err := ScrollWidth(page)
	if err != nil {
		t.Fatalf("scroll width: %v", err)
	}
	if width > s.Options().ViewportWidth {
		t.Fatalf("body scroll width %d exceeds viewport %d", width, s.Options().ViewportWidth)
	}

	shot := filepath.Join(t.TempDir(), "nested", "portfolio.png")
	if err := s.Screenshot(shot); err != nil {
		t.Fatalf("screenshot: %v", err)
	}
	if info, err := os.Stat(shot); err != nil || info.Size() == 0 {
		t.Fatalf("screenshot not written: %v", err)
	}
}

func TestSession_SurveyQueries(t *testing.T) {
	s := LaunchForTest(t, TestOptions())
	if err := s.Open(context.Background(), ReferencePage(t, "send-survey.html")); err != nil {
		t.Fatalf("open: %v", err)
	}
	page := s.Page()

	width, err := InlineWidth(page.Locator("#progressBar"))
	if err != nil || width != "25%" {
		t.Fatalf("InlineWidth = %q, %v; want 25%%", width, err)
	}
	visible, err := VisibleCount(page.Locator(".patient-card"))
	if err != nil || visible != 5 {
		t.Fatalf("VisibleCount = %d, %v; want 5", visible, err)
	}
	hidden, err := VisibleCount(page.Locator("#step2 .survey-card"))
	if err != nil || hidden != 0 {
		t.Fatalf("step 2 cards visible on step 1: %d, %v", hidden, err)
	}
}

func TestSession_CloseIsIdempotent(t *testing.T) {
	s := LaunchForTest(t, TestOptions())
	if err := s.Close(); err != nil {
		t.Fatalf("first close: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
}
