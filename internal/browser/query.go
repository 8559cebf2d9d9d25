package browser

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/playwright-community/playwright-go"

	"github.com/kuitang/omni-uiverify/internal/errs"
	"github.com/kuitang/omni-uiverify/internal/poll"
)

// Snapshot is the state of one element at the instant it was queried.
type Snapshot struct {
	Visible bool
	Text    string
	Classes []string
	Attrs   map[string]string
}

// HasClass reports whether the snapshot carries class.
func (s Snapshot) HasClass(class string) bool {
	for _, c := range s.Classes {
		if c == class {
			return true
		}
	}
	return false
}

// ClassTokens splits a class attribute into its tokens.
func ClassTokens(attr string) []string {
	return strings.Fields(attr)
}

// ContainsClass reports whether a class attribute holds class as a whole
// token, so "selected" does not match "unselected".
func ContainsClass(attr, class string) bool {
	for _, tok := range ClassTokens(attr) {
		if tok == class {
			return true
		}
	}
	return false
}

// Require fails with an unexpected fault when loc resolves to no element.
func Require(loc playwright.Locator, what string) error {
	n, err := loc.Count()
	if err != nil {
		return errs.Wrap(errs.UnexpectedFault, "resolving "+what, err)
	}
	if n == 0 {
		return errs.Newf(errs.UnexpectedFault, "%s not found", what)
	}
	return nil
}

// Capture queries loc, which must resolve to exactly one element, and
// returns its visibility, trimmed text, class tokens and the named attributes.
func Capture(loc playwright.Locator, attrs ...string) (Snapshot, error) {
	var snap Snapshot
	var err error
	if snap.Visible, err = loc.IsVisible(); err != nil {
		return Snapshot{}, fmt.Errorf("visibility: %w", err)
	}
	text, err := loc.TextContent()
	if err != nil {
		return Snapshot{}, fmt.Errorf("text content: %w", err)
	}
	snap.Text = strings.TrimSpace(text)
	class, err := loc.GetAttribute("class")
	if err != nil {
		return Snapshot{}, fmt.Errorf("class attribute: %w", err)
	}
	snap.Classes = ClassTokens(class)
	if len(attrs) > 0 {
		snap.Attrs = make(map[string]string, len(attrs))
		for _, name := range attrs {
			v, err := loc.GetAttribute(name)
			if err != nil {
				return Snapshot{}, fmt.Errorf("%s attribute: %w", name, err)
			}
			snap.Attrs[name] = v
		}
	}
	return snap, nil
}

// Text returns the trimmed text content of loc.
func Text(loc playwright.Locator) (string, error) {
	text, err := loc.TextContent()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

// HasClass reports whether loc currently carries class.
func HasClass(loc playwright.Locator, class string) (bool, error) {
	attr, err := loc.GetAttribute("class")
	if err != nil {
		return false, err
	}
	return ContainsClass(attr, class), nil
}

// VisibleCount counts the elements matched by loc that are visible now.
func VisibleCount(loc playwright.Locator) (int, error) {
	n, err := loc.Count()
	if err != nil {
		return 0, err
	}
	visible := 0
	for i := 0; i < n; i++ {
		ok, err := loc.Nth(i).IsVisible()
		if err != nil {
			return 0, err
		}
		if ok {
			visible++
		}
	}
	return visible, nil
}

// InlineWidth returns the element's inline style width, e.g. "25%".
func InlineWidth(loc playwright.Locator) (string, error) {
	v, err := loc.Evaluate("el => el.style.width", nil)
	if err != nil {
		return "", err
	}
	s, _ := v.(string)
	return s, nil
}

// ScrollWidth returns document.body.scrollWidth.
func ScrollWidth(page playwright.Page) (int, error) {
	v, err := page.Evaluate("document.body.scrollWidth")
	if err != nil {
		return 0, err
	}
	return toInt(v)
}

func toInt(v any) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		return int(math.Round(n)), nil
	default:
		return 0, fmt.Errorf("expected a number, got %T", v)
	}
}

// WaitForClass polls until loc's class membership for class equals want.
// Query errors while polling are transient; the element may be mid-render.
func WaitForClass(ctx context.Context, loc playwright.Locator, class string, want bool, opts poll.Options) error {
	return poll.Until(ctx, opts, func() (bool, error) {
		has, err := HasClass(loc, class)
		if err != nil {
			return false, err
		}
		return has == want, nil
	})
}

// WaitForCount polls until the visible count of loc satisfies ok.
func WaitForCount(ctx context.Context, loc playwright.Locator, opts poll.Options, ok func(int) bool) (int, error) {
	last := -1
	err := poll.Until(ctx, opts, func() (bool, error) {
		n, err := VisibleCount(loc)
		if err != nil {
			return false, err
		}
		last = n
		return ok(n), nil
	})
	return last, err
}
