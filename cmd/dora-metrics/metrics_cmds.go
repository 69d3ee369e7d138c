package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/reillywatson/dorametrics/internal/report"
)

// generator validates the configuration, opens the upstream clients and returns a
// generator over them. The returned sources must be closed by the caller.
func (a *app) generator(cmd *cobra.Command, wantReleases bool) (*report.Generator, *sources, error) {
	if err := a.cfg.Validate(); err != nil {
		return nil, nil, err
	}

	src, err := openSources(cmd.Context(), a.cfg, a.log, wantReleases)
	if err != nil {
		return nil, nil, err
	}

	g := report.NewGenerator(src.releases, src.issues, a.log,
		report.WithReleaseProject(a.cfg.ReleaseProject()))
	return g, src, nil
}

func (a *app) newReportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "report",
		Short: "Compute deployment frequency, MTTR and change failure rate",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			g, src, err := a.generator(cmd, true)
			if err != nil {
				return err
			}
			defer src.Close()

			a.log.WithField("project", a.cfg.Project).Info("generating report")

			r, err := g.Generate(cmd.Context(), a.cfg.Project, a.window)
			if err != nil {
				return err
			}
			return writeReport(a.stdout, a.format, r)
		},
	}
}

func (a *app) newDeploymentsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "deployments",
		Short: "List releases and compute deployment frequency",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if a.format == formatPrometheus {
				return fmt.Errorf("%s output is only supported by the report command", formatPrometheus)
			}

			g, src, err := a.generator(cmd, true)
			if err != nil {
				return err
			}
			defer src.Close()

			summary, err := g.Deployments(cmd.Context(), a.cfg.Project, a.window)
			if err != nil {
				return err
			}
			return writeReleaseSummary(a.stdout, a.format, summary)
		},
	}
}

func (a *app) newRepairsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "repairs",
		Short: "List repaired bugs and compute MTTR and change failure rate",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if a.format == formatPrometheus {
				return fmt.Errorf("%s output is only supported by the report command", formatPrometheus)
			}

			g, src, err := a.generator(cmd, false)
			if err != nil {
				return err
			}
			defer src.Close()

			summary, err := g.Repairs(cmd.Context(), a.cfg.Project, a.window)
			if err != nil {
				return err
			}
			return writeRepairSummary(a.stdout, a.format, summary)
		},
	}
}
