package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/sync/errgroup"

	"github.com/kuitang/omni-uiverify/internal/artifacts"
	"github.com/kuitang/omni-uiverify/internal/browser"
	"github.com/kuitang/omni-uiverify/internal/checkpoint"
	"github.com/kuitang/omni-uiverify/internal/config"
	"github.com/kuitang/omni-uiverify/internal/errs"
	"github.com/kuitang/omni-uiverify/internal/obs"
	"github.com/kuitang/omni-uiverify/internal/poll"
	"github.com/kuitang/omni-uiverify/internal/portfolio"
	"github.com/kuitang/omni-uiverify/internal/report"
	"github.com/kuitang/omni-uiverify/internal/selectors"
	"github.com/kuitang/omni-uiverify/internal/survey"
)

// workflow binds a checkpoint list to its target document.
type workflow struct {
	name        string
	page        selectors.Page
	document    func(*config.Config) string
	checkpoints func(url string, cfg *config.Config) []checkpoint.Checkpoint
	summary     func(io.Writer, *checkpoint.Result)
}

var (
	portfolioWorkflow = workflow{
		name:     portfolio.Workflow,
		page:     selectors.Portfolio,
		document: (*config.Config).PortfolioPath,
		checkpoints: func(url string, _ *config.Config) []checkpoint.Checkpoint {
			return portfolio.Checkpoints(url)
		},
		summary: portfolio.PrintSummary,
	}
	surveyWorkflow = workflow{
		name:     survey.Workflow,
		page:     selectors.Survey,
		document: (*config.Config).SurveyPath,
		checkpoints: func(url string, cfg *config.Config) []checkpoint.Checkpoint {
			return survey.Checkpoints(url, cfg.SubmitTimeout)
		},
		summary: survey.PrintSummary,
	}
)

// execute runs wf in its own browser session, then writes the report and
// uploads artifacts when configured. A failed checkpoint is returned as the
// error.
func execute(ctx context.Context, cfg *config.Config, cat *selectors.Catalog, wf workflow, out io.Writer) (*checkpoint.Result, error) {
	log := obs.Pkg("uiverify").With("workflow", wf.name)

	path := wf.document(cfg)
	if err := cfg.ValidatePages(path); err != nil {
		return nil, errs.Wrap(errs.InvalidArgument, "target document", err)
	}
	url, err := config.FileURL(path)
	if err != nil {
		return nil, errs.Wrap(errs.InvalidArgument, "target document", err)
	}
	fmt.Fprintf(out, "Testing %s at: %s\n", wf.name, url)

	session, err := browser.Launch(ctx, browser.OptionsFromConfig(cfg))
	if err != nil {
		return nil, errs.Wrap(errs.UnexpectedFault, "starting browser", err)
	}
	defer func() {
		if err := session.Close(); err != nil {
			log.Warn("closing browser session", "error", err)
		}
	}()

	runner := &checkpoint.Runner{
		Workflow:      wf.name,
		Target:        session,
		Catalog:       cat,
		ArtifactDir:   cfg.ArtifactDir,
		Poll:          poll.Options{Timeout: cfg.BrowserTimeout, Interval: cfg.PollInterval},
		Settle:        cfg.SettleInterval,
		ViewportWidth: cfg.ViewportWidth,
		Out:           out,
	}
	res := runner.Run(ctx, wf.checkpoints(url, cfg))
	wf.summary(out, res)

	if err := publish(ctx, cfg, res, out); err != nil {
		return res, errors.Join(res.Err, err)
	}
	return res, res.Err
}

// publish writes the run report and uploads artifacts when configured.
func publish(ctx context.Context, cfg *config.Config, res *checkpoint.Result, out io.Writer) error {
	files := append([]string(nil), res.Artifacts...)
	if cfg.ReportDir != "" {
		paths, err := report.Write(cfg.ReportDir, res)
		if err != nil {
			return errs.Wrap(errs.UnexpectedFault, "writing report", err)
		}
		fmt.Fprintf(out, "Report saved to %s\n", paths.HTML)
		files = append(files, paths.Markdown, paths.HTML)
	}
	if !cfg.UploadEnabled() || len(files) == 0 {
		return nil
	}
	store, err := artifacts.New(ctx, artifacts.Config{
		Endpoint:        cfg.S3Endpoint,
		Region:          cfg.S3Region,
		AccessKeyID:     cfg.S3AccessKeyID,
		SecretAccessKey: cfg.S3SecretAccessKey,
		BucketName:      cfg.S3Bucket,
		PublicURL:       cfg.S3PublicURL,
		UsePathStyle:    cfg.S3PathStyle,
	})
	if err != nil {
		return errs.Wrap(errs.UnexpectedFault, "artifact store", err)
	}
	return upload(obs.WithRun(ctx, obs.Run{RunID: res.RunID, Workflow: res.Workflow}), store, res.RunID, files, out)
}

func upload(ctx context.Context, store *artifacts.Store, runID string, files []string, out io.Writer) error {
	objs, err := store.Upload(ctx, runID, files)
	if err != nil {
		return errs.Wrap(errs.UnexpectedFault, "uploading artifacts", err)
	}
	fmt.Fprintf(out, "Uploaded %d artifact(s) to s3://%s/runs/%s/\n", len(objs), store.BucketName(), runID)
	for _, o := range objs {
		if o.URL != "" {
			fmt.Fprintf(out, "  - %s\n", o.URL)
		}
	}
	return nil
}

// executeAll runs every workflow concurrently, each with its own browser
// session. Progress is buffered per workflow and printed in order once all
// have finished so lines do not interleave.
func executeAll(ctx context.Context, cfg *config.Config, cat *selectors.Catalog, wfs []workflow, out io.Writer) error {
	outputs := make([]bytes.Buffer, len(wfs))
	failures := make([]error, len(wfs))

	// A failing workflow must not cancel the others, so the group carries
	// no derived context.
	var g errgroup.Group
	for i, wf := range wfs {
		i, wf := i, wf
		g.Go(func() error {
			_, failures[i] = execute(ctx, cfg, cat, wf, &outputs[i])
			return nil
		})
	}
	_ = g.Wait()

	for i := range wfs {
		if i > 0 {
			fmt.Fprintln(out)
		}
		if _, err := outputs[i].WriteTo(out); err != nil {
			return err
		}
	}
	return errors.Join(failures...)
}

func lint(cfg *config.Config, cat *selectors.Catalog, out io.Writer) error {
	printer := checkpoint.NewPrinter(out)
	total := 0
	for _, wf := range []workflow{portfolioWorkflow, surveyWorkflow} {
		path := wf.document(cfg)
		f, err := os.Open(path)
		if err != nil {
			return errs.Wrap(errs.InvalidArgument, "target document", err)
		}
		problems, err := selectors.Lint(f, cat, wf.page)
		f.Close()
		if err != nil {
			return errs.Wrap(errs.UnexpectedFault, "linting "+path, err)
		}
		if len(problems) == 0 {
			printer.Pass("%s: selector contract %s satisfied", path, cat.Version)
			continue
		}
		for _, p := range problems {
			printer.Fail("%s: %s", path, p)
		}
		total += len(problems)
	}
	if total > 0 {
		return errs.Newf(errs.AssertionFailure, "%d selector(s) do not match the target documents", total)
	}
	return nil
}
