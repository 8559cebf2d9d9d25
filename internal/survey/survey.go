// Package survey verifies the four-step send-survey wizard: patient
// selection, survey type, scheduling, review, and the asynchronous send.
package survey

import (
	"fmt"
	"io"
	"slices"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/kuitang/omni-uiverify/internal/browser"
	"github.com/kuitang/omni-uiverify/internal/checkpoint"
	"github.com/kuitang/omni-uiverify/internal/logutil"
	"github.com/kuitang/omni-uiverify/internal/poll"
	sel "github.com/kuitang/omni-uiverify/internal/selectors"
)

// Workflow names the run; it prefixes the error screenshot.
const Workflow = "send_survey"

// Screenshots captured on a passing run.
const (
	Step1Artifact   = "send_survey_step1.png"
	Step2Artifact   = "send_survey_step2.png"
	Step3Artifact   = "send_survey_step3.png"
	Step4Artifact   = "send_survey_step4.png"
	LoadingArtifact = "send_survey_loading.png"
	SuccessArtifact = "send_survey_success.png"
)

// Tally keys recorded on the result.
const (
	TallyProgressSteps   = "progress_steps"
	TallyFilterChips     = "filter_chips"
	TallyPatients        = "patients"
	TallyPreselected     = "preselected_patients"
	TallySurveyTypes     = "survey_types"
	TallyScheduleOptions = "schedule_options"
	TallyReminders       = "reminders"
	TallyReviewItems     = "review_items"
	TallyEditButtons     = "edit_buttons"
)

// Inputs the wizard is driven with.
const (
	SearchTerm   = "Johnny"
	ScheduleDate = "2025-12-31"
	ScheduleTime = "14:30"
)

const descriptionPreview = 60

// run carries state between checkpoints of one pass through the wizard.
type run struct {
	submitTimeout time.Duration
	step1Width    string
	review        []string
}

// Checkpoints returns the fixed verification sequence for the document at
// url. submitTimeout bounds the wait for the success screen after sending.
func Checkpoints(url string, submitTimeout time.Duration) []checkpoint.Checkpoint {
	r := &run{submitTimeout: submitTimeout}
	return []checkpoint.Checkpoint{
		{Name: "Page Load", Run: pageLoad(url), Artifact: Step1Artifact},
		{Name: "Header Elements", Run: headerElements},
		{Name: "Progress Bar (Step 1)", Run: r.progressBar},
		{Name: "Step 1 - Patient Selection", Run: patientSelection},
		{Name: "Patient Selection Toggle", Run: patientToggle},
		{Name: "Search Functionality", Run: search},
		{Name: "Navigate to Step 2", Run: r.toStep2, Artifact: Step2Artifact},
		{Name: "Step 2 - Survey Type Selection", Run: surveyTypes},
		{Name: "Survey Type Toggle", Run: surveyToggle},
		{Name: "Navigate to Step 3", Run: advance(sel.Step3, 3), Artifact: Step3Artifact},
		{Name: "Step 3 - Schedule Options", Run: scheduleOptions},
		{Name: "Schedule for Later", Run: scheduleForLater},
		{Name: "Navigate to Step 4 (Review)", Run: advance(sel.Step4, 4), Artifact: Step4Artifact},
		{Name: "Step 4 - Review Screen", Run: r.reviewScreen},
		{Name: "Back Button Navigation", Run: r.backAndForward},
		{Name: "Send Surveys", Run: r.send},
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
	if _, err := s.Visible(sel.Header, "Header"); err != nil {
		return err
	}
	s.Pass("Header visible")

	title, err := s.Text(s.Locator(sel.HeaderTitle).First(), "header title")
	if err != nil {
		return err
	}
	s.Pass("Header title: %s", title)

	if _, err := s.Visible(sel.CloseButton, "Close button"); err != nil {
		return err
	}
	s.Pass("Close button visible")

	if _, err := s.Visible(sel.HeaderAction, "Save Draft button"); err != nil {
		return err
	}
	s.Pass("Save Draft button visible")
	return nil
}

func progressWidth(s *checkpoint.Step) (string, error) {
	bar := s.Locator(sel.ProgressBar)
	if err := s.Require(bar, "Progress bar"); err != nil {
		return "", err
	}
	width, err := browser.InlineWidth(bar.First())
	if err != nil {
		return "", s.Fault("reading progress bar width", err)
	}
	s.Pass("Progress bar width: %s", width)
	return width, nil
}

func (r *run) progressBar(s *checkpoint.Step) error {
	width, err := progressWidth(s)
	if err != nil {
		return err
	}
	if err := s.Expect(width != "", "Progress bar has no inline width"); err != nil {
		return err
	}
	r.step1Width = width

	steps := s.Locator(sel.ProgressStep)
	n, err := s.Count(steps, "progress steps")
	if err != nil {
		return err
	}
	s.Pass("Found %d progress steps", n)
	if _, err := s.Each(steps, "progress steps", func(_ int, step playwright.Locator) error {
		text, err := s.Text(step, "progress step")
		if err != nil {
			return err
		}
		active, err := s.HasClass(step, sel.ClassActive, "progress step")
		if err != nil {
			return err
		}
		s.Item("%s: %s", text, checkpoint.ActiveLabel(active))
		return nil
	}); err != nil {
		return err
	}
	s.Tally(TallyProgressSteps, n)
	return nil
}

// expectStep waits for step n to become active and checks it is the only
// active step screen.
func expectStep(s *checkpoint.Step, name sel.Name, n int) error {
	if err := s.AwaitClass(s.Locator(name), sel.ClassActive, true, fmt.Sprintf("Step %d should be active", n)); err != nil {
		return err
	}
	active, err := s.Count(s.Page().Locator(s.Selector(sel.StepScreen)+"."+sel.ClassActive), "active step screens")
	if err != nil {
		return err
	}
	if err := s.Expect(active == 1, "Exactly one step screen should be active, found %d", active); err != nil {
		return err
	}
	s.Pass("Step %d is active", n)
	return nil
}

func patientSelection(s *checkpoint.Step) error {
	if err := expectStep(s, sel.Step1, 1); err != nil {
		return err
	}
	if _, err := s.Visible(sel.SearchInput, "Search input"); err != nil {
		return err
	}
	s.Pass("Search input visible")

	chips, err := s.Count(s.Locator(sel.FilterChip), "filter chips")
	if err != nil {
		return err
	}
	s.Pass("Found %d filter chips", chips)
	s.Tally(TallyFilterChips, chips)

	cards := s.Locator(sel.PatientCard)
	n, err := s.Count(cards, "patient cards")
	if err != nil {
		return err
	}
	s.Pass("Found %d patient cards", n)
	selected := 0
	if _, err := s.Each(cards, "patient cards", func(_ int, card playwright.Locator) error {
		name, err := s.Text(s.Within(card, sel.PatientCardName), "patient name")
		if err != nil {
			return err
		}
		on, err := s.HasClass(card, sel.ClassSelected, "patient card")
		if err != nil {
			return err
		}
		if on {
			selected++
		}
		s.Item("%s: %s", name, checkpoint.SelectedLabel(on))
		return nil
	}); err != nil {
		return err
	}
	s.Pass("%d patients pre-selected", selected)
	s.Tally(TallyPatients, n)
	s.Tally(TallyPreselected, selected)

	count, err := s.Text(s.Locator(sel.SelectedCount).First(), "selected count")
	if err != nil {
		return err
	}
	s.Pass("Selected count display: %s", count)
	return nil
}

// toggleFirstUnselected pins the first unselected element of name by index
// and clicks it, waiting for it to become selected. It returns the pinned
// element, or nil when every element is already selected.
func toggleFirstUnselected(s *checkpoint.Step, name, title sel.Name, what string) (playwright.Locator, error) {
	items := s.Locator(name)
	i, err := s.FirstWithout(items, sel.ClassSelected, what)
	if err != nil || i < 0 {
		return nil, err
	}
	item := items.Nth(i)
	label, err := s.Text(s.Within(item, title), what+" title")
	if err != nil {
		return nil, err
	}
	s.Printer().Line("Selecting %s: %s", what, label)
	if err := s.Click(item, what); err != nil {
		return nil, err
	}
	if err := s.AwaitClass(item, sel.ClassSelected, true, fmt.Sprintf("%s should be selected", label)); err != nil {
		return nil, err
	}
	return item, nil
}

func patientToggle(s *checkpoint.Step) error {
	card, err := toggleFirstUnselected(s, sel.PatientCard, sel.PatientCardName, "patient")
	if err != nil {
		return err
	}
	if card == nil {
		return s.Skip("every patient card is already selected")
	}
	s.Pass("Patient selected successfully")

	if err := s.Click(card, "patient card"); err != nil {
		return err
	}
	if err := s.AwaitClass(card, sel.ClassSelected, false, "Patient should be deselected"); err != nil {
		return err
	}
	s.Pass("Patient deselected successfully")
	return nil
}

func search(s *checkpoint.Step) error {
	cards := s.Locator(sel.PatientCard)
	input := s.Locator(sel.SearchInput).First()

	before, err := browser.VisibleCount(cards)
	if err != nil {
		return s.Fault("counting visible patient cards", err)
	}
	if err := s.Fill(input, SearchTerm, "search input"); err != nil {
		return err
	}
	filtered, err := s.AwaitVisibleCount(cards, func(n int) bool { return n <= before },
		fmt.Sprintf("Search should not show more than %d patient cards", before))
	if err != nil {
		return err
	}
	s.Pass("Search filtered to %d patient(s)", filtered)

	if err := s.Fill(input, "", "search input"); err != nil {
		return err
	}
	if _, err := s.AwaitVisibleCount(cards, func(n int) bool { return n == before },
		fmt.Sprintf("Clearing the search should restore %d patient cards", before)); err != nil {
		return err
	}
	s.Pass("Search cleared")
	return nil
}

func clickContinue(s *checkpoint.Step) error {
	return s.Click(s.Locator(sel.PrimaryButton).First(), "continue button")
}

func (r *run) toStep2(s *checkpoint.Step) error {
	if err := clickContinue(s); err != nil {
		return err
	}
	if err := expectStep(s, sel.Step2, 2); err != nil {
		return err
	}
	width, err := progressWidth(s)
	if err != nil {
		return err
	}
	return s.Expect(width != r.step1Width, "Progress bar width should change from %s", r.step1Width)
}

// advance clicks continue and expects step n.
func advance(name sel.Name, n int) func(*checkpoint.Step) error {
	return func(s *checkpoint.Step) error {
		if err := clickContinue(s); err != nil {
			return err
		}
		if err := expectStep(s, name, n); err != nil {
			return err
		}
		_, err := progressWidth(s)
		return err
	}
}

func surveyTypes(s *checkpoint.Step) error {
	cards := s.Locator(sel.SurveyCard)
	n, err := s.Each(cards, "survey types", func(_ int, card playwright.Locator) error {
		title, err := s.Text(s.Within(card, sel.SurveyCardTitle), "survey title")
		if err != nil {
			return err
		}
		desc, err := s.Text(s.Within(card, sel.SurveyCardDescription), "survey description")
		if err != nil {
			return err
		}
		on, err := s.HasClass(card, sel.ClassSelected, "survey card")
		if err != nil {
			return err
		}
		s.Item("%s: %s", title, checkpoint.SelectedLabel(on))
		s.Printer().Line("    %s", logutil.Preview(desc, descriptionPreview))
		return nil
	})
	if err != nil {
		return err
	}
	s.Pass("Found %d survey types", n)
	s.Tally(TallySurveyTypes, n)
	return nil
}

func surveyToggle(s *checkpoint.Step) error {
	card, err := toggleFirstUnselected(s, sel.SurveyCard, sel.SurveyCardTitle, "survey")
	if err != nil {
		return err
	}
	if card == nil {
		return s.Skip("every survey type is already selected")
	}
	s.Pass("Survey type selected successfully")
	return nil
}

func scheduleOptions(s *checkpoint.Step) error {
	n, err := s.Each(s.Locator(sel.ScheduleOption), "schedule options", func(_ int, option playwright.Locator) error {
		title, err := s.Text(s.Within(option, sel.ScheduleOptionTitle), "schedule option title")
		if err != nil {
			return err
		}
		on, err := s.HasClass(option, sel.ClassSelected, "schedule option")
		if err != nil {
			return err
		}
		s.Item("%s: %s", title, checkpoint.SelectedLabel(on))
		return nil
	})
	if err != nil {
		return err
	}
	s.Pass("Found %d schedule options", n)
	s.Tally(TallyScheduleOptions, n)

	boxes, err := s.Count(s.Locator(sel.ReminderCheckbox), "reminder checkboxes")
	if err != nil {
		return err
	}
	s.Pass("Found %d reminder checkboxes", boxes)
	s.Tally(TallyReminders, boxes)
	return nil
}

func scheduleForLater(s *checkpoint.Step) error {
	options := s.Locator(sel.ScheduleOption)
	n, err := s.Count(options, "schedule options")
	if err != nil {
		return err
	}
	if err := s.Expect(n >= 2, "Expected a send-now and a schedule-for-later option, found %d", n); err != nil {
		return err
	}
	picker := s.Locator(sel.DatetimePicker)
	if err := s.Require(picker, "Datetime picker"); err != nil {
		return err
	}

	if err := s.Click(options.Nth(1), "schedule for later"); err != nil {
		return err
	}
	if err := s.AwaitClass(picker, sel.ClassActive, true, "Datetime picker should be visible"); err != nil {
		return err
	}
	s.Pass("Datetime picker appeared")

	if err := s.Fill(s.Locator(sel.ScheduleDate), ScheduleDate, "schedule date"); err != nil {
		return err
	}
	if err := s.Fill(s.Locator(sel.ScheduleTime), ScheduleTime, "schedule time"); err != nil {
		return err
	}
	s.Pass("Date and time filled")

	if err := s.Click(options.First(), "send now"); err != nil {
		return err
	}
	if err := s.AwaitClass(picker, sel.ClassActive, false, "Datetime picker should be hidden after switching back to Send Now"); err != nil {
		return err
	}
	s.Pass("Switched back to Send Now")
	return nil
}

// reviewValues reads the label and value of every review item.
func reviewValues(s *checkpoint.Step, list bool) ([]string, error) {
	var values []string
	_, err := s.Each(s.Locator(sel.ReviewItem), "review sections", func(_ int, item playwright.Locator) error {
		label, err := s.Text(s.Within(item, sel.ReviewLabel), "review label")
		if err != nil {
			return err
		}
		value, err := s.Text(s.Within(item, sel.ReviewValue), "review value")
		if err != nil {
			return err
		}
		if list {
			s.Item("%s: %s", label, value)
		}
		values = append(values, label+": "+value)
		return nil
	})
	return values, err
}

func (r *run) reviewScreen(s *checkpoint.Step) error {
	values, err := reviewValues(s, true)
	if err != nil {
		return err
	}
	s.Pass("Found %d review sections", len(values))
	s.Tally(TallyReviewItems, len(values))
	r.review = values

	edits, err := s.Count(s.Locator(sel.EditButton), "edit buttons")
	if err != nil {
		return err
	}
	s.Pass("Found %d edit buttons", edits)
	s.Tally(TallyEditButtons, edits)
	return nil
}

func (r *run) backAndForward(s *checkpoint.Step) error {
	if err := s.Click(s.Locator(sel.SecondaryButton).First(), "back button"); err != nil {
		return err
	}
	if err := expectStep(s, sel.Step3, 3); err != nil {
		return err
	}
	s.Pass("Back button navigated to Step 3")

	if err := clickContinue(s); err != nil {
		return err
	}
	if err := expectStep(s, sel.Step4, 4); err != nil {
		return err
	}
	s.Pass("Navigated forward to Step 4 again")

	values, err := reviewValues(s, false)
	if err != nil {
		return err
	}
	if err := s.Expect(slices.Equal(values, r.review), "Review content changed after back/forward navigation: %q, was %q", values, r.review); err != nil {
		return err
	}
	s.Pass("Review content unchanged")
	return nil
}

func (r *run) send(s *checkpoint.Step) error {
	button := s.Locator(sel.PrimaryButton).First()
	if err := s.Require(button, "Send button"); err != nil {
		return err
	}
	label, err := button.InnerText()
	if err != nil {
		return s.Fault("reading send button", err)
	}
	s.Pass("Send button text: %s", logutil.CollapseSpace(label))
	if err := s.Click(button, "send button"); err != nil {
		return err
	}

	overlay := s.Locator(sel.LoadingOverlay)
	title := s.Locator(sel.SuccessTitle)
	var tr Transition
	err = s.AwaitWithin(r.submitTimeout, "Success screen should appear after sending", func() (bool, error) {
		loading, err := browser.HasClass(overlay, sel.ClassShow)
		if err != nil {
			return false, err
		}
		n, err := title.Count()
		if err != nil {
			return false, err
		}
		first := loading && !tr.SawLoading()
		done, err := tr.Observe(Sample{Loading: loading, Success: n > 0})
		if err != nil {
			return false, poll.Stop(err)
		}
		if first {
			s.Pass("Loading overlay displayed")
			if _, err := s.Screenshot(LoadingArtifact); err != nil {
				return false, poll.Stop(err)
			}
		}
		return done, nil
	})
	if err != nil {
		return err
	}
	if !tr.SawLoading() {
		s.Warn("Loading overlay was not observed before the success screen")
	}

	titleText, err := s.Text(title.First(), "success title")
	if err != nil {
		return err
	}
	if err := s.Expect(titleText != "", "Success title is empty"); err != nil {
		return err
	}
	desc, err := s.Text(s.Locator(sel.SuccessDescription).First(), "success description")
	if err != nil {
		return err
	}
	if err := s.Expect(desc != "", "Success description is empty"); err != nil {
		return err
	}
	if _, err := s.Screenshot(SuccessArtifact); err != nil {
		return err
	}
	s.Pass("Success message: %s", titleText)
	s.Pass("Description: %s", desc)
	return nil
}

// PrintSummary writes the closing summary of a passing run.
func PrintSummary(w io.Writer, res *checkpoint.Result) {
	if !res.Passed {
		return
	}
	fmt.Fprintln(w, "\n=== All Checkpoints Passed! ===")
	fmt.Fprintln(w, "Successfully verified complete workflow:")
	fmt.Fprintf(w, "  Step 1: Patient selection (%d patients)\n", res.Tally(TallyPatients))
	fmt.Fprintf(w, "  Step 2: Survey type selection (%d types)\n", res.Tally(TallySurveyTypes))
	fmt.Fprintln(w, "  Step 3: Schedule configuration")
	fmt.Fprintln(w, "  Step 4: Review and send")
	fmt.Fprintln(w, "  Success: Confirmation screen")
}
