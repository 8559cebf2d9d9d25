package selectors

import (
	"fmt"
	"io"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
)

// Problem is a catalog entry the target document does not satisfy.
type Problem struct {
	Name     Name
	Selector string
	Reason   string
}

func (p Problem) String() string {
	return fmt.Sprintf("%s (%s): %s", p.Name, p.Selector, p.Reason)
}

// Lint parses a target document and reports every static catalog entry for
// page whose selector is invalid or matches nothing. Dynamic entries are
// skipped. Lint needs no browser, so it catches markup churn before a run.
func Lint(doc io.Reader, c *Catalog, page Page) ([]Problem, error) {
	parsed, err := goquery.NewDocumentFromReader(doc)
	if err != nil {
		return nil, fmt.Errorf("selectors: parse %s document: %w", page, err)
	}

	var problems []Problem
	for _, name := range c.Names(page) {
		e := c.entries[name]
		if e.Dynamic {
			continue
		}
		sel, err := cascadia.Compile(e.Selector)
		if err != nil {
			problems = append(problems, Problem{Name: name, Selector: e.Selector, Reason: "invalid selector: " + err.Error()})
			continue
		}
		if parsed.FindMatcher(sel).Length() == 0 {
			problems = append(problems, Problem{Name: name, Selector: e.Selector, Reason: "matches no element"})
		}
	}
	return problems, nil
}
