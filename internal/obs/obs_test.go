package obs

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
)

func TestFrom_AddsRunCorrelation(t *testing.T) {
	var buf bytes.Buffer
	restore := SetOutputForTests(&buf)
	defer restore()

	ctx := WithRun(context.Background(), Run{RunID: "run-123", Workflow: "portfolio"})
	ctx = WithRun(ctx, Run{Page: "file:///tmp/portfolio.html"})
	From(ctx).Info("checkpoint passed", "checkpoint", "Header Elements")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v (%q)", err, buf.String())
	}
	for key, want := range map[string]string{
		"run_id":     "run-123",
		"workflow":   "portfolio",
		"page":       "file:///tmp/portfolio.html",
		"checkpoint": "Header Elements",
		"msg":        "checkpoint passed",
	} {
		if got, _ := entry[key].(string); got != want {
			t.Fatalf("%s = %q, want %q", key, got, want)
		}
	}
}

func TestFrom_NoCorrelationLeavesLoggerBare(t *testing.T) {
	var buf bytes.Buffer
	restore := SetOutputForTests(&buf)
	defer restore()

	From(context.Background()).Info("hello")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v", err)
	}
	if _, ok := entry["run_id"]; ok {
		t.Fatalf("unexpected run_id in %v", entry)
	}
}

func TestPkg_TagsPackage(t *testing.T) {
	var buf bytes.Buffer
	restore := SetOutputForTests(&buf)
	defer restore()

	Pkg("browser").Debug("launch")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v", err)
	}
	if entry["pkg"] != "browser" {
		t.Fatalf("pkg = %v, want browser", entry["pkg"])
	}
}

func TestRunFromContext_Nil(t *testing.T) {
	if got := RunFromContext(nil); got != (Run{}) {
		t.Fatalf("expected zero Run, got %+v", got)
	}
}
