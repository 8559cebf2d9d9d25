// Package selectors is the contract between the verification workflows and
// the markup they verify. Every CSS selector a checkpoint touches is looked
// up here by logical name; renaming a class or id in a target document is a
// breaking change that shows up as a catalog edit and a Version bump.
package selectors

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Version identifies the selector contract the default catalog implements.
const Version = "2025.1"

// Page identifies a target document.
type Page string

const (
	Portfolio Page = "portfolio"
	Survey    Page = "send-survey"
)

// State classes toggled by the pages' scripts.
const (
	ClassActive   = "active"
	ClassSelected = "selected"
	ClassShow     = "show"
)

// Name is the logical name of a selector.
type Name string

// Portfolio detail view.
const (
	MobileHeader     Name = "portfolio.mobile_header"
	PatientName      Name = "portfolio.patient_name"
	PatientMeta      Name = "portfolio.patient_meta"
	AlertBanner      Name = "portfolio.alert"
	AlertContent     Name = "portfolio.alert_content"
	ScoreSummary     Name = "portfolio.score_summary"
	ScoreItem        Name = "portfolio.score_item"
	ScoreValue       Name = "portfolio.score_value"
	DiscrepancyBadge Name = "portfolio.discrepancy_badge"
	Tab              Name = "portfolio.tab"
	DomainCard       Name = "portfolio.domain_card"
	DomainTitle      Name = "portfolio.domain_title"
	DomainScoreItem  Name = "portfolio.domain_score_item"
	DomainScoreValue Name = "portfolio.domain_score_value"
	TimelineItem     Name = "portfolio.timeline_item"
	TimelineTitle    Name = "portfolio.timeline_title"
	TimelineDate     Name = "portfolio.timeline_date"
	Note             Name = "portfolio.note"
	NoteAuthor       Name = "portfolio.note_author"
	NoteDate         Name = "portfolio.note_date"
	NavItem          Name = "portfolio.nav_item"
	DetailSheet      Name = "portfolio.detail_sheet"
	SheetTitle       Name = "portfolio.sheet_title"
	ResponseItem     Name = "portfolio.response_item"
	Overlay          Name = "portfolio.overlay"
	FloatingAction   Name = "portfolio.fab"
)

// Send-survey wizard.
const (
	Header                Name = "survey.header"
	HeaderTitle           Name = "survey.header_title"
	CloseButton           Name = "survey.close_button"
	HeaderAction          Name = "survey.header_action"
	ProgressBar           Name = "survey.progress_bar"
	ProgressStep          Name = "survey.progress_step"
	StepScreen            Name = "survey.step_screen"
	Step1                 Name = "survey.step1"
	Step2                 Name = "survey.step2"
	Step3                 Name = "survey.step3"
	Step4                 Name = "survey.step4"
	SearchInput           Name = "survey.search_input"
	FilterChip            Name = "survey.filter_chip"
	PatientCard           Name = "survey.patient_card"
	PatientCardName       Name = "survey.patient_card_name"
	SelectedCount         Name = "survey.selected_count"
	SurveyCard            Name = "survey.survey_card"
	SurveyCardTitle       Name = "survey.survey_card_title"
	SurveyCardDescription Name = "survey.survey_card_description"
	ScheduleOption        Name = "survey.schedule_option"
	ScheduleOptionTitle   Name = "survey.schedule_option_title"
	ReminderCheckbox      Name = "survey.reminder_checkbox"
	DatetimePicker        Name = "survey.datetime_picker"
	ScheduleDate          Name = "survey.schedule_date"
	ScheduleTime          Name = "survey.schedule_time"
	ReviewItem            Name = "survey.review_item"
	ReviewLabel           Name = "survey.review_label"
	ReviewValue           Name = "survey.review_value"
	EditButton            Name = "survey.edit_button"
	PrimaryButton         Name = "survey.btn_primary"
	SecondaryButton       Name = "survey.btn_secondary"
	LoadingOverlay        Name = "survey.loading_overlay"
	SuccessTitle          Name = "survey.success_title"
	SuccessDescription    Name = "survey.success_description"
)

// Entry is one catalog row.
type Entry struct {
	Selector string
	Page     Page
	// Dynamic entries are inserted by page script at runtime and cannot be
	// found in the static document.
	Dynamic bool
}

// Catalog maps logical names to selectors.
type Catalog struct {
	Version string
	entries map[Name]Entry
}

func defaultEntries() map[Name]Entry {
	p := func(sel string) Entry { return Entry{Selector: sel, Page: Portfolio} }
	s := func(sel string) Entry { return Entry{Selector: sel, Page: Survey} }
	dyn := func(sel string) Entry { return Entry{Selector: sel, Page: Survey, Dynamic: true} }

	return map[Name]Entry{
		MobileHeader:     p(".mobile-header"),
		PatientName:      p(".patient-name-mobile"),
		PatientMeta:      p(".patient-meta-mobile"),
		AlertBanner:      p(".alert-mobile"),
		AlertContent:     p(".alert-content-mobile"),
		ScoreSummary:     p(".score-summary-mobile"),
		ScoreItem:        p(".score-item-mobile"),
		ScoreValue:       p(".score-value-mobile"),
		DiscrepancyBadge: p(".discrepancy-badge-mobile"),
		Tab:              p(".tab-mobile"),
		DomainCard:       p(".domain-card-mobile"),
		DomainTitle:      p(".domain-title-mobile"),
		DomainScoreItem:  p(".domain-score-item"),
		DomainScoreValue: p(".domain-score-value"),
		TimelineItem:     p(".timeline-item-mobile"),
		TimelineTitle:    p(".timeline-title-mobile"),
		TimelineDate:     p(".timeline-date-mobile"),
		Note:             p(".note-mobile"),
		NoteAuthor:       p(".note-author-mobile"),
		NoteDate:         p(".note-date-mobile"),
		NavItem:          p(".nav-item"),
		DetailSheet:      p("#detailSheet"),
		SheetTitle:       p(".sheet-title"),
		ResponseItem:     p(".response-item"),
		Overlay:          p("#overlay"),
		FloatingAction:   p(".fab"),

		Header:                s(".header"),
		HeaderTitle:           s(".header-title"),
		CloseButton:           s(".close-button"),
		HeaderAction:          s(".header-action"),
		ProgressBar:           s("#progressBar"),
		ProgressStep:          s(".progress-step"),
		StepScreen:            s(".step-screen"),
		Step1:                 s("#step1"),
		Step2:                 s("#step2"),
		Step3:                 s("#step3"),
		Step4:                 s("#step4"),
		SearchInput:           s(".search-input"),
		FilterChip:            s(".filter-chip"),
		PatientCard:           s(".patient-card"),
		PatientCardName:       s(".patient-name"),
		SelectedCount:         s("#selectedCount"),
		SurveyCard:            s(".survey-card"),
		SurveyCardTitle:       s(".survey-card-title"),
		SurveyCardDescription: s(".survey-card-description"),
		ScheduleOption:        s(".schedule-option"),
		ScheduleOptionTitle:   s(".schedule-option-title"),
		ReminderCheckbox:      s(`.checkbox-label input[type="checkbox"]`),
		DatetimePicker:        s("#datetimePicker"),
		ScheduleDate:          s("#scheduleDate"),
		ScheduleTime:          s("#scheduleTime"),
		ReviewItem:            s(".review-item"),
		ReviewLabel:           s(".review-label"),
		ReviewValue:           s(".review-value"),
		EditButton:            s(".edit-button"),
		PrimaryButton:         s(".btn-primary"),
		SecondaryButton:       s(".btn-secondary"),
		LoadingOverlay:        s("#loadingOverlay"),
		SuccessTitle:          dyn(".success-title"),
		SuccessDescription:    dyn(".success-description"),
	}
}

// Default returns the catalog for the current contract Version.
func Default() *Catalog {
	return &Catalog{Version: Version, entries: defaultEntries()}
}

// Get returns the selector registered under name. Unknown names panic:
// they are programming errors in a checkpoint list, never input.
func (c *Catalog) Get(name Name) string {
	e, ok := c.entries[name]
	if !ok {
		panic(fmt.Sprintf("selectors: unknown name %q", name))
	}
	return e.Selector
}

// Lookup returns the entry registered under name.
func (c *Catalog) Lookup(name Name) (Entry, bool) {
	e, ok := c.entries[name]
	return e, ok
}

// Names returns the sorted names registered for page.
func (c *Catalog) Names(page Page) []Name {
	var names []Name
	for name, e := range c.entries {
		if e.Page == page {
			names = append(names, name)
		}
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}

// Override replaces selectors for known names. Unknown names and empty
// selectors are rejected so a typo cannot silently fall back to a default.
func (c *Catalog) Override(selectors map[Name]string) error {
	var problems []string
	for name, sel := range selectors {
		e, ok := c.entries[name]
		if !ok {
			problems = append(problems, fmt.Sprintf("unknown selector name %q", name))
			continue
		}
		sel = strings.TrimSpace(sel)
		if sel == "" {
			problems = append(problems, fmt.Sprintf("empty selector for %q", name))
			continue
		}
		e.Selector = sel
		c.entries[name] = e
	}
	if len(problems) > 0 {
		sort.Strings(problems)
		return fmt.Errorf("selectors: %s", strings.Join(problems, "; "))
	}
	return nil
}

type overrideFile struct {
	Version   string          `yaml:"version"`
	Selectors map[Name]string `yaml:"selectors"`
}

// Load returns the default catalog with overrides read from a YAML
// document of the form:
//
//	version: "2025.1"
//	selectors:
//	  portfolio.detail_sheet: "#detailSheet"
//
// A version other than Version is rejected.
func Load(r io.Reader) (*Catalog, error) {
	var f overrideFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && err != io.EOF {
		return nil, fmt.Errorf("selectors: decode override file: %w", err)
	}
	if f.Version != "" && f.Version != Version {
		return nil, fmt.Errorf("selectors: override file targets contract %q, catalog implements %q", f.Version, Version)
	}
	c := Default()
	if err := c.Override(f.Selectors); err != nil {
		return nil, err
	}
	return c, nil
}
