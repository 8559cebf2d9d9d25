package obs

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
)

type runContextKey struct{}

// Run carries per-run correlation identifiers.
type Run struct {
	RunID    string
	Workflow string
	Page     string
}

// Log formats accepted by Init.
const (
	FormatJSON = "json"
	FormatText = "text"
)

var (
	loggerMu sync.RWMutex
	logger   *slog.Logger
)

// Init configures the global structured logger. Logs go to stderr so that
// stdout stays reserved for checkpoint progress lines.
func Init(format string) {
	loggerMu.Lock()
	defer loggerMu.Unlock()
	logger = newLogger(os.Stderr, format)
	slog.SetDefault(logger)
}

// SetOutputForTests overrides the global logger output for tests.
func SetOutputForTests(w io.Writer) func() {
	loggerMu.Lock()
	prev := logger
	logger = newLogger(w, FormatJSON)
	slog.SetDefault(logger)
	loggerMu.Unlock()

	return func() {
		loggerMu.Lock()
		defer loggerMu.Unlock()
		if prev != nil {
			logger = prev
		} else {
			logger = newLogger(os.Stderr, FormatJSON)
		}
		slog.SetDefault(logger)
	}
}

func newLogger(w io.Writer, format string) *slog.Logger {
	if strings.EqualFold(strings.TrimSpace(format), FormatText) {
		noColor := true
		if f, ok := w.(*os.File); ok {
			noColor = !isatty.IsTerminal(f.Fd())
		}
		return slog.New(tint.NewHandler(w, &tint.Options{
			Level:      slog.LevelDebug,
			TimeFormat: time.RFC3339,
			NoColor:    noColor,
		}))
	}
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: slog.LevelDebug,
		ReplaceAttr: func(_ []string, attr slog.Attr) slog.Attr {
			if attr.Key == slog.TimeKey {
				t, ok := attr.Value.Any().(time.Time)
				if ok {
					return slog.String(slog.TimeKey, t.UTC().Format(time.RFC3339Nano))
				}
			}
			return attr
		},
	})
	return slog.New(handler)
}

func globalLogger() *slog.Logger {
	loggerMu.RLock()
	l := logger
	loggerMu.RUnlock()
	if l != nil {
		return l
	}
	Init(FormatJSON)
	loggerMu.RLock()
	defer loggerMu.RUnlock()
	return logger
}

// Pkg returns a logger tagged with package name.
func Pkg(pkg string) *slog.Logger {
	return globalLogger().With("pkg", pkg)
}

// From returns a logger with run correlation fields from context.
func From(ctx context.Context) *slog.Logger {
	l := globalLogger()
	attrs := runAttrs(RunFromContext(ctx))
	if len(attrs) == 0 {
		return l
	}
	return l.With(attrs...)
}

// WithRun stores run correlation fields in context. Empty fields keep
// whatever the parent context already carried.
func WithRun(ctx context.Context, run Run) context.Context {
	existing := RunFromContext(ctx)
	if run.RunID != "" {
		existing.RunID = strings.TrimSpace(run.RunID)
	}
	if run.Workflow != "" {
		existing.Workflow = strings.TrimSpace(run.Workflow)
	}
	if run.Page != "" {
		existing.Page = strings.TrimSpace(run.Page)
	}
	return context.WithValue(ctx, runContextKey{}, existing)
}

// RunFromContext returns run correlation fields from context.
func RunFromContext(ctx context.Context) Run {
	if ctx == nil {
		return Run{}
	}
	run, ok := ctx.Value(runContextKey{}).(Run)
	if !ok {
		return Run{}
	}
	return run
}

func runAttrs(run Run) []any {
	attrs := make([]any, 0, 6)
	if run.RunID != "" {
		attrs = append(attrs, "run_id", run.RunID)
	}
	if run.Workflow != "" {
		attrs = append(attrs, "workflow", run.Workflow)
	}
	if run.Page != "" {
		attrs = append(attrs, "page", run.Page)
	}
	return attrs
}
