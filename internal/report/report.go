// Package report renders a workflow result as a Markdown summary and a
// standalone HTML page.
package report

import (
	"bytes"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/gomarkdown/markdown"
	mdhtml "github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
	"github.com/microcosm-cc/bluemonday"

	"github.com/kuitang/omni-uiverify/internal/checkpoint"
	"github.com/kuitang/omni-uiverify/internal/logutil"
)

const messageLimit = 200

const htmlTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>{{.Title}}</title>
    <style>
        body {
            font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, 'Helvetica Neue', Arial, sans-serif;
            line-height: 1.5;
            color: #1a1a1a;
            max-width: 900px;
            margin: 0 auto;
            padding: 2rem 1rem;
        }
        table { width: 100%; border-collapse: collapse; margin: 1em 0; }
        th, td { border: 1px solid #e0e0e0; padding: 0.4em 0.8em; text-align: left; }
        th { background-color: #f5f5f5; }
        code { background-color: #f5f5f5; padding: 0.1em 0.3em; border-radius: 3px; }
    </style>
</head>
<body>
    <article>
        {{.Content}}
    </article>
</body>
</html>`

var page = template.Must(template.New("report").Parse(htmlTemplate))

type templateData struct {
	Title   string
	Content template.HTML
}

// Paths are the files Write produced.
type Paths struct {
	Markdown string
	HTML     string
}

// Markdown renders res as a Markdown document.
func Markdown(res *checkpoint.Result) string {
	var b strings.Builder
	status := "PASSED"
	if !res.Passed {
		status = "FAILED"
	}
	fmt.Fprintf(&b, "# %s: %s\n\n", res.Workflow, status)
	fmt.Fprintf(&b, "- Run: `%s`\n", res.RunID)
	if res.URL != "" {
		fmt.Fprintf(&b, "- Document: `%s`\n", res.URL)
	}
	if !res.Started.IsZero() {
		fmt.Fprintf(&b, "- Started: %s\n", res.Started.UTC().Format("2006-01-02 15:04:05 MST"))
	}
	fmt.Fprintf(&b, "- Duration: %s\n", res.Duration.Round(time.Millisecond))
	fmt.Fprintf(&b, "- Checkpoints: %d passed, %d skipped, %d failed, %d not run\n\n",
		res.Count(checkpoint.StatusPassed), res.Count(checkpoint.StatusSkipped),
		res.Count(checkpoint.StatusFailed), res.Count(checkpoint.StatusNotRun))

	b.WriteString("## Checkpoints\n\n")
	b.WriteString("| # | Checkpoint | Status | Duration | Detail |\n")
	b.WriteString("|---|---|---|---|---|\n")
	for _, o := range res.Outcomes {
		detail := cell(o.Message)
		if o.Code != "" {
			detail = fmt.Sprintf("`%s` %s", o.Code, detail)
		}
		fmt.Fprintf(&b, "| %d | %s | %s | %s | %s |\n", o.Index, cell(o.Name), o.Status, o.Duration.Round(time.Millisecond), detail)
	}

	if len(res.Tallies) > 0 {
		b.WriteString("\n## Elements\n\n")
		keys := make([]string, 0, len(res.Tallies))
		for k := range res.Tallies {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, "- %s: %d\n", strings.ReplaceAll(k, "_", " "), res.Tallies[k])
		}
	}

	if len(res.Artifacts) > 0 {
		b.WriteString("\n## Artifacts\n\n")
		for _, a := range res.Artifacts {
			fmt.Fprintf(&b, "- `%s`\n", a)
		}
	}
	return b.String()
}

// cell makes s safe inside a Markdown table cell.
func cell(s string) string {
	s = logutil.TruncateForLog(logutil.CollapseSpace(s), messageLimit)
	return strings.ReplaceAll(s, "|", `\|`)
}

// HTML renders md into a sanitized standalone page. Outcome messages carry
// page text, so the rendered body goes through bluemonday.
func HTML(md, title string) []byte {
	extensions := parser.CommonExtensions | parser.AutoHeadingIDs | parser.NoEmptyLineBeforeBlock
	p := parser.NewWithExtensions(extensions)
	doc := p.Parse([]byte(md))

	renderer := mdhtml.NewRenderer(mdhtml.RendererOptions{
		Flags: mdhtml.CommonFlags | mdhtml.HrefTargetBlank,
	})
	sanitized := bluemonday.UGCPolicy().SanitizeBytes(markdown.Render(doc, renderer))

	var buf bytes.Buffer
	if err := page.Execute(&buf, templateData{Title: title, Content: template.HTML(sanitized)}); err != nil {
		return []byte("<!DOCTYPE html><html><head><title>Error</title></head><body><h1>Error rendering report</h1></body></html>")
	}
	return buf.Bytes()
}

// Write renders res into <dir>/<workflow>_report.md and .html.
func Write(dir string, res *checkpoint.Result) (Paths, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Paths{}, fmt.Errorf("report: create %s: %w", dir, err)
	}
	md := Markdown(res)
	paths := Paths{
		Markdown: filepath.Join(dir, res.Workflow+"_report.md"),
		HTML:     filepath.Join(dir, res.Workflow+"_report.html"),
	}
	if err := os.WriteFile(paths.Markdown, []byte(md), 0o644); err != nil {
		return Paths{}, fmt.Errorf("report: write markdown: %w", err)
	}
	if err := os.WriteFile(paths.HTML, HTML(md, res.Workflow+" verification report"), 0o644); err != nil {
		return Paths{}, fmt.Errorf("report: write html: %w", err)
	}
	return paths, nil
}
