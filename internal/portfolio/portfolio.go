// Package portfolio verifies the patient-portfolio detail view: header,
// alert, score summary, the enumerated sections, and the detail sheet's
// open and close interaction.
package portfolio

import (
	"fmt"
	"io"

	"github.com/playwright-community/playwright-go"

	"github.com/kuitang/omni-uiverify/internal/checkpoint"
	"github.com/kuitang/omni-uiverify/internal/logutil"
	sel "github.com/kuitang/omni-uiverify/internal/selectors"
)

// Workflow names the run; it prefixes the error screenshot.
const Workflow = "portfolio"

// Screenshots captured on a passing run.
const (
	InitialArtifact     = "portfolio_initial.png"
	DetailSheetArtifact = "portfolio_detail_sheet.png"
)

// Tally keys recorded on the result.
const (
	TallyTabs          = "tabs"
	TallyDomainCards   = "domain_cards"
	TallyTimelineItems = "timeline_items"
	TallyNotes         = "notes"
	TallyNavItems      = "nav_items"
	TallyResponses     = "responses"
	TallyFABs          = "fabs"
)

// Checkpoints returns the fixed verification sequence for the document at url.
func Checkpoints(url string) []checkpoint.Checkpoint {
	return []checkpoint.Checkpoint{
		{Name: "Page Load", Run: pageLoad(url), Artifact: InitialArtifact},
		{Name: "Header Elements", Run: headerElements},
		{Name: "Alert Banner", Run: alertBanner},
		{Name: "Score Summary", Run: scoreSummary},
		{Name: "Navigation Tabs", Run: navigationTabs},
		{Name: "Domain Cards", Run: domainCards},
		{Name: "Survey Timeline", Run: surveyTimeline},
		{Name: "Clinical Notes", Run: clinicalNotes},
		{Name: "Bottom Navigation", Run: bottomNavigation},
		{Name: "Detail Sheet Modal", Run: openDetailSheet},
		{Name: "Close Detail Sheet", Run: closeDetailSheet},
		{Name: "Quick Action Buttons", Run: quickActions},
		checkpoint.ResponsiveLayout(),
	}
}

func pageLoad(url string) func(*checkpoint.Step) error {
	return func(s *checkpoint.Step) error {
		if err := s.Open(url); err != nil {
			return err
		}
		s.Pass("Page loaded successfully")
		return nil
	}
}

func headerElements(s *checkpoint.Step) error {
	if _, err := s.Visible(sel.MobileHeader, "Mobile header"); err != nil {
		return err
	}
	s.Pass("Mobile header visible")

	name, err := s.Visible(sel.PatientName, "Patient name")
	if err != nil {
		return err
	}
	s.Pass("Patient name: %s", name.Text)

	meta, err := s.Visible(sel.PatientMeta, "Patient meta")
	if err != nil {
		return err
	}
	s.Pass("Patient meta: %s", logutil.CollapseSpace(meta.Text))
	return nil
}

func alertBanner(s *checkpoint.Step) error {
	if _, err := s.Visible(sel.AlertBanner, "Alert banner"); err != nil {
		return err
	}
	text, err := s.Text(s.Locator(sel.AlertContent).First(), "alert content")
	if err != nil {
		return err
	}
	s.Pass("Alert visible: %s", text)
	return nil
}

func scoreSummary(s *checkpoint.Step) error {
	if _, err := s.Visible(sel.ScoreSummary, "Score summary"); err != nil {
		return err
	}
	s.Pass("Score summary visible")

	items := s.Locator(sel.ScoreItem)
	n, err := s.Count(items, "score items")
	if err != nil {
		return err
	}
	if err := s.Expect(n >= 2, "Score summary should hold child and parent scores, found %d", n); err != nil {
		return err
	}
	child, err := s.Text(s.Within(items.Nth(0), sel.ScoreValue), "child score")
	if err != nil {
		return err
	}
	parent, err := s.Text(s.Within(items.Nth(1), sel.ScoreValue), "parent score")
	if err != nil {
		return err
	}
	s.Pass("Child Score: %s", child)
	s.Pass("Parent Score: %s", parent)

	discrepancy, err := s.Text(s.Locator(sel.DiscrepancyBadge).First(), "discrepancy badge")
	if err != nil {
		return err
	}
	s.Pass("Discrepancy: %s", discrepancy)
	return nil
}

// enumerateActive lists elements with their active state.
func enumerateActive(s *checkpoint.Step, name sel.Name, what, tally string) error {
	loc := s.Locator(name)
	n, err := s.Count(loc, what)
	if err != nil {
		return err
	}
	s.Pass("Found %d %s", n, what)
	if _, err := s.Each(loc, what, func(_ int, item playwright.Locator) error {
		text, err := s.Text(item, what)
		if err != nil {
			return err
		}
		active, err := s.HasClass(item, sel.ClassActive, what)
		if err != nil {
			return err
		}
		s.Item("%s: %s", logutil.CollapseSpace(text), checkpoint.ActiveLabel(active))
		return nil
	}); err != nil {
		return err
	}
	s.Tally(tally, n)
	return nil
}

func navigationTabs(s *checkpoint.Step) error {
	return enumerateActive(s, sel.Tab, "tabs", TallyTabs)
}

func bottomNavigation(s *checkpoint.Step) error {
	return enumerateActive(s, sel.NavItem, "navigation items", TallyNavItems)
}

func domainCards(s *checkpoint.Step) error {
	cards := s.Locator(sel.DomainCard)
	n, err := s.Each(cards, "domain cards", func(_ int, card playwright.Locator) error {
		title, err := s.Text(s.Within(card, sel.DomainTitle), "domain title")
		if err != nil {
			return err
		}
		scores := s.Within(card, sel.DomainScoreItem)
		child, err := s.Text(s.Within(scores.Nth(0), sel.DomainScoreValue), "child domain score")
		if err != nil {
			return err
		}
		parent, err := s.Text(s.Within(scores.Nth(1), sel.DomainScoreValue), "parent domain score")
		if err != nil {
			return err
		}
		s.Item("%s: Child=%s, Parent=%s", title, child, parent)
		return nil
	})
	if err != nil {
		return err
	}
	s.Pass("Found %d domain cards", n)
	s.Tally(TallyDomainCards, n)
	return nil
}

// enumeratePair lists elements by two child texts, "first (second)".
func enumeratePair(s *checkpoint.Step, name, first, second sel.Name, what, tally string) error {
	n, err := s.Each(s.Locator(name), what, func(_ int, item playwright.Locator) error {
		a, err := s.Text(s.Within(item, first), what)
		if err != nil {
			return err
		}
		b, err := s.Text(s.Within(item, second), what)
		if err != nil {
			return err
		}
		s.Item("%s (%s)", a, b)
		return nil
	})
	if err != nil {
		return err
	}
	s.Pass("Found %d %s", n, what)
	s.Tally(tally, n)
	return nil
}

func surveyTimeline(s *checkpoint.Step) error {
	return enumeratePair(s, sel.TimelineItem, sel.TimelineTitle, sel.TimelineDate, "timeline items", TallyTimelineItems)
}

func clinicalNotes(s *checkpoint.Step) error {
	return enumeratePair(s, sel.Note, sel.NoteAuthor, sel.NoteDate, "clinical notes", TallyNotes)
}

func openDetailSheet(s *checkpoint.Step) error {
	sheet := s.Locator(sel.DetailSheet)
	if err := s.Require(sheet, "Detail sheet"); err != nil {
		return err
	}
	open, err := s.HasClass(sheet, sel.ClassShow, "detail sheet")
	if err != nil {
		return err
	}
	if err := s.Expect(!open, "Detail sheet should be hidden initially"); err != nil {
		return err
	}
	s.Pass("Detail sheet initially hidden")

	if err := s.Click(s.Locator(sel.TimelineItem).First(), "first timeline item"); err != nil {
		return err
	}
	if err := s.AwaitClass(sheet, sel.ClassShow, true, "Detail sheet should be visible after click"); err != nil {
		return err
	}
	s.Pass("Detail sheet opened successfully")
	if _, err := s.Screenshot(DetailSheetArtifact); err != nil {
		return err
	}

	title, err := s.Text(s.Locator(sel.SheetTitle).First(), "sheet title")
	if err != nil {
		return err
	}
	s.Pass("Detail sheet title: %s", title)

	n, err := s.Count(s.Locator(sel.ResponseItem), "response items")
	if err != nil {
		return err
	}
	s.Pass("Found %d response items in detail sheet", n)
	s.Tally(TallyResponses, n)
	return nil
}

func closeDetailSheet(s *checkpoint.Step) error {
	if err := s.Click(s.Locator(sel.Overlay), "overlay"); err != nil {
		return err
	}
	if err := s.AwaitClass(s.Locator(sel.DetailSheet), sel.ClassShow, false, "Detail sheet should be hidden after overlay click"); err != nil {
		return err
	}
	s.Pass("Detail sheet closed via overlay click")
	return nil
}

func quickActions(s *checkpoint.Step) error {
	n, err := s.Count(s.Locator(sel.FloatingAction), "floating action buttons")
	if err != nil {
		return err
	}
	s.Pass("Found %d floating action buttons", n)
	s.Tally(TallyFABs, n)
	return nil
}

// PrintSummary writes the closing summary of a passing run.
func PrintSummary(w io.Writer, res *checkpoint.Result) {
	if !res.Passed {
		return
	}
	fmt.Fprintln(w, "\n=== All Checkpoints Passed! ===")
	fmt.Fprintln(w, "Total elements verified:")
	fmt.Fprintf(w, "  - %d tabs\n", res.Tally(TallyTabs))
	fmt.Fprintf(w, "  - %d domain cards\n", res.Tally(TallyDomainCards))
	fmt.Fprintf(w, "  - %d timeline items\n", res.Tally(TallyTimelineItems))
	fmt.Fprintf(w, "  - %d clinical notes\n", res.Tally(TallyNotes))
	fmt.Fprintf(w, "  - %d navigation items\n", res.Tally(TallyNavItems))
	fmt.Fprintf(w, "  - %d detail sheet responses\n", res.Tally(TallyResponses))
}
