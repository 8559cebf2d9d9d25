// Package config provides centralized configuration for uiverify runs.
// Every value is a CLI flag; each flag can also be set from an environment
// variable named UIVERIFY_<FLAG_NAME> (dashes become underscores).
//
// Validation aggregates every problem into a single ValidationError so a
// misconfigured CI job reports all of them at once.
package config

import (
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"github.com/kuitang/omni-uiverify/internal/logutil"
)

const (
	// EnvironmentVariablePrefix prefixes every flag-backed env var.
	EnvironmentVariablePrefix = "UIVERIFY_"

	DefaultPagesDir       = "./web/pages"
	DefaultArtifactDir    = "/tmp"
	DefaultViewportWidth  = 375
	DefaultViewportHeight = 812
	DefaultUserAgent      = "Mozilla/5.0 (iPhone; CPU iPhone OS 14_0 like Mac OS X) AppleWebKit/605.1.15"

	DefaultBrowserTimeout = 5 * time.Second
	DefaultPollInterval   = 50 * time.Millisecond
	DefaultSubmitTimeout  = 10 * time.Second

	PortfolioFile = "portfolio.html"
	SurveyFile    = "send-survey.html"
)

// Config holds all run configuration.
type Config struct {
	// Target documents
	PagesDir      string
	PortfolioPage string // overrides PagesDir/portfolio.html
	SurveyPage    string // overrides PagesDir/send-survey.html
	SelectorsFile string // optional YAML selector catalog override

	// Browser session
	ViewportWidth  int
	ViewportHeight int
	UserAgent      string
	Headless       bool
	BrowserTimeout time.Duration // default timeout for every playwright call

	// Timing
	PollInterval   time.Duration // cadence of post-interaction polls
	SettleInterval time.Duration // optional fixed floor after each interaction
	SubmitTimeout  time.Duration // bound on the simulated asynchronous send

	// Outputs
	ArtifactDir string
	ReportDir   string
	LogFormat   string

	// Artifact upload (S3-compatible; disabled when S3Bucket is empty)
	S3Endpoint        string
	S3Region          string
	S3AccessKeyID     string
	S3SecretAccessKey string
	S3Bucket          string
	S3PublicURL       string
	S3PathStyle       bool
}

// ValidationError represents a configuration validation error with multiple issues.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("configuration validation failed:\n  - %s", strings.Join(e.Errors, "\n  - "))
}

// NewFromFlags registers every configuration flag on fs and returns the
// config the flags write into. Call SetFlagsFromEnvVariables and parse fs
// before reading it.
func NewFromFlags(fs *pflag.FlagSet) *Config {
	cfg := &Config{}

	fs.StringVar(&cfg.PagesDir, "pages-dir", DefaultPagesDir, "Directory holding portfolio.html and send-survey.html")
	fs.StringVar(&cfg.PortfolioPage, "portfolio-page", "", "Path to the portfolio document (default <pages-dir>/portfolio.html)")
	fs.StringVar(&cfg.SurveyPage, "survey-page", "", "Path to the send-survey document (default <pages-dir>/send-survey.html)")
	fs.StringVar(&cfg.SelectorsFile, "selectors", "", "YAML file overriding selector catalog entries")

	fs.IntVar(&cfg.ViewportWidth, "viewport-width", DefaultViewportWidth, "Browser viewport width in CSS pixels")
	fs.IntVar(&cfg.ViewportHeight, "viewport-height", DefaultViewportHeight, "Browser viewport height in CSS pixels")
	fs.StringVar(&cfg.UserAgent, "user-agent", DefaultUserAgent, "User agent string for the browser context")
	fs.BoolVar(&cfg.Headless, "headless", true, "Run Chromium headless")
	fs.DurationVar(&cfg.BrowserTimeout, "browser-timeout", DefaultBrowserTimeout, "Default timeout for browser operations")

	fs.DurationVar(&cfg.PollInterval, "poll-interval", DefaultPollInterval, "Interval between state polls after an interaction")
	fs.DurationVar(&cfg.SettleInterval, "settle", 0, "Fixed pause after each interaction, before polling")
	fs.DurationVar(&cfg.SubmitTimeout, "submit-timeout", DefaultSubmitTimeout, "Upper bound on waiting for the send confirmation")

	fs.StringVar(&cfg.ArtifactDir, "artifact-dir", DefaultArtifactDir, "Directory for screenshots")
	fs.StringVar(&cfg.ReportDir, "report-dir", "", "Directory for Markdown/HTML run reports (disabled when empty)")
	fs.StringVar(&cfg.LogFormat, "log-format", "json", "Log format on stderr: json or text")

	fs.StringVar(&cfg.S3Endpoint, "s3-endpoint", "", "S3-compatible endpoint URL (default AWS)")
	fs.StringVar(&cfg.S3Region, "s3-region", "auto", "S3 region")
	fs.StringVar(&cfg.S3AccessKeyID, "s3-access-key-id", "", "S3 access key ID")
	fs.StringVar(&cfg.S3SecretAccessKey, "s3-secret-access-key", "", "S3 secret access key")
	fs.StringVar(&cfg.S3Bucket, "s3-bucket", "", "Bucket to upload artifacts to (upload disabled when empty)")
	fs.StringVar(&cfg.S3PublicURL, "s3-public-url", "", "Base URL for uploaded artifacts")
	fs.BoolVar(&cfg.S3PathStyle, "s3-path-style", false, "Use path-style S3 addressing")

	return cfg
}

// Default returns a config holding every flag default.
func Default() *Config {
	fs := pflag.NewFlagSet("defaults", pflag.ContinueOnError)
	return NewFromFlags(fs)
}

// SetFlagsFromEnvVariables sets each flag not given on the command line
// from its UIVERIFY_ environment variable.
func SetFlagsFromEnvVariables(fs *pflag.FlagSet) error {
	var errs []string
	fs.VisitAll(func(f *pflag.Flag) {
		if f.Changed {
			return
		}
		val, present := os.LookupEnv(FlagToEnvVarName(f.Name))
		if !present {
			return
		}
		if err := fs.Set(f.Name, strings.TrimSpace(val)); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", FlagToEnvVarName(f.Name), err))
		}
	})
	if len(errs) > 0 {
		return &ValidationError{Errors: errs}
	}
	return nil
}

// FlagToEnvVarName returns the environment variable backing a flag.
func FlagToEnvVarName(name string) string {
	return EnvironmentVariablePrefix + strings.ReplaceAll(strings.ToUpper(name), "-", "_")
}

// Validate checks that the configuration can drive a run.
func (c *Config) Validate() error {
	var errs []string

	if c.ViewportWidth <= 0 {
		errs = append(errs, "viewport-width must be positive")
	}
	if c.ViewportHeight <= 0 {
		errs = append(errs, "viewport-height must be positive")
	}
	if strings.TrimSpace(c.UserAgent) == "" {
		errs = append(errs, "user-agent must not be empty")
	}
	if c.BrowserTimeout <= 0 {
		errs = append(errs, "browser-timeout must be positive")
	}
	if c.PollInterval <= 0 {
		errs = append(errs, "poll-interval must be positive")
	}
	if c.SettleInterval < 0 {
		errs = append(errs, "settle must not be negative")
	}
	if c.SubmitTimeout <= 0 {
		errs = append(errs, "submit-timeout must be positive")
	} else if c.SubmitTimeout < c.PollInterval {
		errs = append(errs, "submit-timeout must be at least poll-interval")
	}
	if strings.TrimSpace(c.ArtifactDir) == "" {
		errs = append(errs, "artifact-dir must not be empty")
	}
	switch strings.ToLower(strings.TrimSpace(c.LogFormat)) {
	case "json", "text":
	default:
		errs = append(errs, fmt.Sprintf("log-format must be json or text, got %q", c.LogFormat))
	}

	if c.S3Bucket != "" {
		if c.S3Region == "" {
			errs = append(errs, "s3-region is required when s3-bucket is set")
		}
		if (c.S3AccessKeyID == "") != (c.S3SecretAccessKey == "") {
			errs = append(errs, "s3-access-key-id and s3-secret-access-key must be set together")
		}
	}

	if len(errs) > 0 {
		return &ValidationError{Errors: errs}
	}
	return nil
}

// ValidatePages checks that the named target documents exist.
func (c *Config) ValidatePages(paths ...string) error {
	var errs []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			errs = append(errs, fmt.Sprintf("target document %s: %v", p, err))
			continue
		}
		if info.IsDir() {
			errs = append(errs, fmt.Sprintf("target document %s is a directory", p))
		}
	}
	if len(errs) > 0 {
		return &ValidationError{Errors: errs}
	}
	return nil
}

// PortfolioPath returns the portfolio document path.
func (c *Config) PortfolioPath() string {
	if c.PortfolioPage != "" {
		return c.PortfolioPage
	}
	return filepath.Join(c.PagesDir, PortfolioFile)
}

// SurveyPath returns the send-survey document path.
func (c *Config) SurveyPath() string {
	if c.SurveyPage != "" {
		return c.SurveyPage
	}
	return filepath.Join(c.PagesDir, SurveyFile)
}

// UploadEnabled reports whether artifacts should be copied to S3.
func (c *Config) UploadEnabled() bool {
	return c.S3Bucket != ""
}

// FileURL converts a local document path to an absolute file:// URL.
func FileURL(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", path, err)
	}
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}
	return u.String(), nil
}

// PrintStartupSummary prints a human-readable summary of the configuration.
func (c *Config) PrintStartupSummary(w io.Writer) {
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "uiverify starting...")
	fmt.Fprintf(w, "  Pages:     %s, %s\n", c.PortfolioPath(), c.SurveyPath())
	fmt.Fprintf(w, "  Viewport:  %dx%d (headless=%t)\n", c.ViewportWidth, c.ViewportHeight, c.Headless)
	fmt.Fprintf(w, "  Timeouts:  browser=%s poll=%s submit=%s\n", c.BrowserTimeout, c.PollInterval, c.SubmitTimeout)
	if c.SettleInterval > 0 {
		fmt.Fprintf(w, "  Settle:    %s\n", c.SettleInterval)
	}
	if c.SelectorsFile != "" {
		fmt.Fprintf(w, "  Selectors: %s\n", c.SelectorsFile)
	}
	fmt.Fprintf(w, "  Artifacts: %s\n", c.ArtifactDir)
	if c.ReportDir != "" {
		fmt.Fprintf(w, "  Reports:   %s\n", c.ReportDir)
	}
	if c.UploadEnabled() {
		endpoint := c.S3Endpoint
		if endpoint == "" {
			endpoint = "aws default"
		}
		fmt.Fprintf(w, "  Upload:    s3://%s (endpoint: %s, key: %s)\n",
			c.S3Bucket, endpoint, logutil.RedactValue("s3-access-key-id", c.S3AccessKeyID))
	} else {
		fmt.Fprintln(w, "  Upload:    disabled")
	}
	fmt.Fprintln(w, "")
}
