package checkpoint

import (
	"github.com/playwright-community/playwright-go"

	"github.com/kuitang/omni-uiverify/internal/browser"
	"github.com/kuitang/omni-uiverify/internal/errs"
	"github.com/kuitang/omni-uiverify/internal/selectors"
)

// ActiveLabel renders an active-state flag for enumeration lines.
func ActiveLabel(active bool) string {
	if active {
		return "ACTIVE"
	}
	return "inactive"
}

// SelectedLabel renders a selection flag for enumeration lines.
func SelectedLabel(selected bool) string {
	if selected {
		return "SELECTED"
	}
	return "not selected"
}

// Visible requires the first element matching name to exist and be visible.
func (s *Step) Visible(name selectors.Name, label string) (browser.Snapshot, error) {
	loc := s.Locator(name)
	if err := browser.Require(loc, label); err != nil {
		return browser.Snapshot{}, err
	}
	snap, err := browser.Capture(loc.First())
	if err != nil {
		return browser.Snapshot{}, s.Fault("querying "+label, err)
	}
	if !snap.Visible {
		return snap, errs.Assertf("%s not visible", label)
	}
	return snap, nil
}

// Require fails with an unexpected fault when loc matches nothing.
func (s *Step) Require(loc playwright.Locator, what string) error {
	return browser.Require(loc, what)
}

// Text returns the trimmed text of loc.
func (s *Step) Text(loc playwright.Locator, what string) (string, error) {
	text, err := browser.Text(loc)
	if err != nil {
		return "", s.Fault("reading "+what, err)
	}
	return text, nil
}

// HasClass reports whether loc carries class now.
func (s *Step) HasClass(loc playwright.Locator, class, what string) (bool, error) {
	has, err := browser.HasClass(loc, class)
	if err != nil {
		return false, s.Fault("reading class of "+what, err)
	}
	return has, nil
}

// Count returns how many elements loc matches now.
func (s *Step) Count(loc playwright.Locator, what string) (int, error) {
	n, err := loc.Count()
	if err != nil {
		return 0, s.Fault("counting "+what, err)
	}
	return n, nil
}

// Each calls fn for every element loc matches, in document order, and
// returns the count taken before iterating.
func (s *Step) Each(loc playwright.Locator, what string, fn func(i int, item playwright.Locator) error) (int, error) {
	n, err := s.Count(loc, what)
	if err != nil {
		return 0, err
	}
	for i := 0; i < n; i++ {
		if err := fn(i, loc.Nth(i)); err != nil {
			return i, err
		}
	}
	return n, nil
}

// FirstWithout returns the index of the first element loc matches that
// lacks class, or -1. Callers pin the element by index so it stays the
// same element after its class changes.
func (s *Step) FirstWithout(loc playwright.Locator, class, what string) (int, error) {
	index := -1
	_, err := s.Each(loc, what, func(i int, item playwright.Locator) error {
		if index >= 0 {
			return nil
		}
		has, err := s.HasClass(item, class, what)
		if err != nil {
			return err
		}
		if !has {
			index = i
		}
		return nil
	})
	return index, err
}

// Click clicks loc.
func (s *Step) Click(loc playwright.Locator, what string) error {
	if err := loc.Click(); err != nil {
		return s.Fault("clicking "+what, err)
	}
	return nil
}

// Fill types value into loc.
func (s *Step) Fill(loc playwright.Locator, value, what string) error {
	if err := loc.Fill(value); err != nil {
		return s.Fault("filling "+what, err)
	}
	return nil
}

// ResponsiveLayout checks that the rendered body is no wider than the
// configured viewport.
func ResponsiveLayout() Checkpoint {
	return Checkpoint{
		Name: "Responsive Layout",
		Run: func(s *Step) error {
			width, err := browser.ScrollWidth(s.Page())
			if err != nil {
				return s.Fault("reading body scroll width", err)
			}
			viewport := s.ViewportWidth()
			s.Pass("Viewport width: %dpx", viewport)
			s.Pass("Body width: %dpx", width)
			if err := s.Expect(width <= viewport, "Horizontal overflow detected (%dpx)", width-viewport); err != nil {
				return err
			}
			s.Pass("No horizontal overflow detected")
			return nil
		},
	}
}
