package main

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/reillywatson/dorametrics/internal/config"
	"github.com/reillywatson/dorametrics/internal/dora"
	"github.com/reillywatson/dorametrics/internal/report"
)

const dateLayout = "2006-01-02"

// Exit codes
const (
	exitOK = iota
	exitError
	exitInsufficientData
	exitMalformedRecord
	exitUpstream
)

// app holds the flags shared by every command and the state PersistentPreRunE builds from them
type app struct {
	stdout io.Writer
	stderr io.Writer

	configPath    string
	project       string
	releaseSource string
	since         string
	until         string
	format        string
	noCache       bool
	verbose       bool

	cfg    *config.Config
	log    *logrus.Logger
	window report.Window
}

// Execute runs the command line and returns the process exit code
func Execute(args []string, stdout, stderr io.Writer) int {
	a := &app{stdout: stdout, stderr: stderr}
	rootCmd := a.newRootCmd()
	rootCmd.SetArgs(args)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	err := rootCmd.Execute()
	if err == nil {
		return exitOK
	}

	fmt.Fprintf(stderr, "Error: %s\n", describeError(err))
	return exitCode(err)
}

func (a *app) newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "dora-metrics",
		Short: "DORA metrics from Jira releases and bugs",
		Long: `dora-metrics computes deployment frequency, mean time to repair (MTTR) and
change failure rate for a Jira project.

Releases come from the project's Jira versions, GitHub releases or Google Cloud
Deploy. Repairs come from resolved high-priority Jira bugs and their fix versions.`,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup()
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&a.configPath, "config", "c", "", "Path to a YAML config file")
	flags.StringVarP(&a.project, "project", "p", "", "Jira project key (overrides DORA_PROJECT)")
	flags.StringVar(&a.releaseSource, "release-source", "", "Where releases come from: jira, github or clouddeploy")
	flags.StringVar(&a.since, "since", "", "Only count records on or after this date (YYYY-MM-DD)")
	flags.StringVar(&a.until, "until", "", "Only count records on or before this date (YYYY-MM-DD)")
	flags.StringVarP(&a.format, "format", "o", formatText, "Output format: text, json, yaml or prometheus")
	flags.BoolVar(&a.noCache, "no-cache", false, "Bypass the response cache")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(
		a.newReportCmd(),
		a.newDeploymentsCmd(),
		a.newRepairsCmd(),
		a.newShowConfigCmd(),
		a.newCacheCmd(),
	)

	return rootCmd
}

// setup loads the configuration, applies flag overrides and builds the logger
func (a *app) setup() error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}

	if a.project != "" {
		cfg.Project = a.project
	}
	if a.releaseSource != "" {
		cfg.ReleaseSource = a.releaseSource
	}
	if a.noCache {
		cfg.Cache.Disabled = true
	}
	a.cfg = cfg

	a.log = newLogger(cfg.LogLevel, a.verbose, a.stderr)

	if !validFormat(a.format) {
		return fmt.Errorf("unknown output format %q", a.format)
	}

	a.window, err = parseWindow(a.since, a.until)
	return err
}

// newLogger creates a logger writing to out. verbose forces DebugLevel; otherwise the
// configured level applies, falling back to InfoLevel when it does not parse.
func newLogger(level string, verbose bool, out io.Writer) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(out)

	if verbose {
		log.SetLevel(logrus.DebugLevel)
		return log
	}

	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		log.WithField("level", level).Warn("invalid log level, defaulting to info")
		parsed = logrus.InfoLevel
	}
	log.SetLevel(parsed)
	return log
}

// parseWindow turns the --since and --until dates into a window. Until covers the
// whole of its day.
func parseWindow(since, until string) (report.Window, error) {
	var w report.Window

	if since != "" {
		parsed, err := time.Parse(dateLayout, since)
		if err != nil {
			return w, fmt.Errorf("invalid --since date, please use YYYY-MM-DD: %w", err)
		}
		w.Since = parsed
	}
	if until != "" {
		parsed, err := time.Parse(dateLayout, until)
		if err != nil {
			return w, fmt.Errorf("invalid --until date, please use YYYY-MM-DD: %w", err)
		}
		w.Until = parsed.Add(24*time.Hour - time.Nanosecond)
	}

	if !w.Since.IsZero() && !w.Until.IsZero() && w.Since.After(w.Until) {
		return w, errors.New("--since cannot be after --until")
	}
	return w, nil
}

func exitCode(err error) int {
	switch {
	case errors.Is(err, dora.ErrInsufficientData):
		return exitInsufficientData
	case errors.Is(err, dora.ErrMalformedRecord):
		return exitMalformedRecord
	case errors.Is(err, dora.ErrUpstreamFetch):
		return exitUpstream
	default:
		return exitError
	}
}

func describeError(err error) string {
	switch {
	case errors.Is(err, dora.ErrInsufficientData):
		return fmt.Sprintf("not enough data to compute metrics: %v", err)
	case errors.Is(err, dora.ErrMalformedRecord):
		return fmt.Sprintf("upstream returned a record that could not be used: %v", err)
	case errors.Is(err, dora.ErrUpstreamFetch):
		return fmt.Sprintf("could not fetch data: %v", err)
	default:
		return err.Error()
	}
}
