// Command uiverify drives headless Chromium through the portfolio and
// send-survey pages and exits non-zero when any checkpoint fails.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/kuitang/omni-uiverify/internal/config"
	"github.com/kuitang/omni-uiverify/internal/errs"
	"github.com/kuitang/omni-uiverify/internal/obs"
	"github.com/kuitang/omni-uiverify/internal/selectors"
)

func main() {
	// Configure ^C to cancel the running workflow
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	err := run(ctx, os.Args[1:], os.Stdout)
	stop()
	if err != nil {
		printError(os.Stderr, err)
		os.Exit(errs.ExitCode(err))
	}
}

func printError(w io.Writer, err error) {
	fmt.Fprintf(w, "%s %s\n", color.HiRedString("Error:"), err.Error())
}

func run(ctx context.Context, args []string, out io.Writer) error {
	cmd := newRootCommand(out)
	cmd.SetArgs(args)
	return cmd.ExecuteContext(ctx)
}

func newRootCommand(out io.Writer) *cobra.Command {
	var cfg *config.Config
	var catalog *selectors.Catalog

	cmd := &cobra.Command{
		Use:           "uiverify",
		Short:         "Headless UI verification workflows",
		Long:          "uiverify loads the portfolio and send-survey pages in headless Chromium and checks them checkpoint by checkpoint.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := config.SetFlagsFromEnvVariables(cmd.Flags()); err != nil {
				return errs.Wrap(errs.InvalidArgument, "environment", err)
			}
			if err := cfg.Validate(); err != nil {
				return errs.Wrap(errs.InvalidArgument, "invalid configuration", err)
			}
			obs.Init(cfg.LogFormat)

			var err error
			if catalog, err = loadCatalog(cfg.SelectorsFile); err != nil {
				return errs.Wrap(errs.InvalidArgument, "selector catalog", err)
			}
			return nil
		},
	}
	cmd.SetOut(out)
	cfg = config.NewFromFlags(cmd.PersistentFlags())

	// Subcommands read the catalog once PersistentPreRunE has loaded it.
	cat := func() *selectors.Catalog { return catalog }

	cmd.AddCommand(
		newWorkflowCommand("portfolio", "Verify the patient portfolio page", cfg, cat, portfolioWorkflow),
		newWorkflowCommand("send-survey", "Verify the send-survey wizard", cfg, cat, surveyWorkflow),
		newAllCommand(cfg, cat),
		newLintCommand(cfg, cat),
	)
	return cmd
}

func loadCatalog(path string) (*selectors.Catalog, error) {
	if path == "" {
		return selectors.Default(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return selectors.Load(f)
}

func newWorkflowCommand(use, short string, cfg *config.Config, cat func() *selectors.Catalog, wf workflow) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg.PrintStartupSummary(cmd.ErrOrStderr())
			_, err := execute(cmd.Context(), cfg, cat(), wf, cmd.OutOrStdout())
			return err
		},
	}
}

func newAllCommand(cfg *config.Config, cat func() *selectors.Catalog) *cobra.Command {
	return &cobra.Command{
		Use:   "all",
		Short: "Run both workflows concurrently, each in its own browser",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg.PrintStartupSummary(cmd.ErrOrStderr())
			return executeAll(cmd.Context(), cfg, cat(), []workflow{portfolioWorkflow, surveyWorkflow}, cmd.OutOrStdout())
		},
	}
}

func newLintCommand(cfg *config.Config, cat func() *selectors.Catalog) *cobra.Command {
	return &cobra.Command{
		Use:   "lint",
		Short: "Check every catalog selector against the target documents without a browser",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return lint(cfg, cat(), cmd.OutOrStdout())
		},
	}
}
