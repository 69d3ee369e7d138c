// Package report fetches upstream records and combines the deployment and repair
// metrics into a single report.
package report

import (
	"context"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/reillywatson/dorametrics/internal/dora"
)

// ReleaseSource lists the releases of a project.
type ReleaseSource interface {
	FetchReleases(ctx context.Context, project string) ([]dora.ReleaseRecord, error)
}

// IssueSource lists the resolved high-priority bugs of a project.
type IssueSource interface {
	FetchQualifyingBugs(ctx context.Context, project string) ([]dora.IssueRecord, error)
}

// Report is the merged result of both calculators.
type Report struct {
	Project     string    `json:"project" yaml:"project"`
	GeneratedAt time.Time `json:"generatedAt" yaml:"generatedAt"`
	Window      Window    `json:"window" yaml:"window"`

	Deployments              int     `json:"deployments" yaml:"deployments"`
	DeploymentFrequency      float64 `json:"deploymentFrequency" yaml:"deploymentFrequency"`
	DeploymentFrequencyLabel string  `json:"deploymentFrequencyLabel" yaml:"deploymentFrequencyLabel"`
	MTTR                     float64 `json:"mttr" yaml:"mttr"`
	ChangeFailureRate        float64 `json:"changeFailureRate" yaml:"changeFailureRate"`

	ReleaseSummary *dora.ReleaseSummary `json:"releaseSummary,omitempty" yaml:"releaseSummary,omitempty"`
	RepairSummary  *dora.RepairSummary  `json:"repairSummary,omitempty" yaml:"repairSummary,omitempty"`
}

// Generator runs the metric calculators against upstream sources.
type Generator struct {
	releases ReleaseSource
	issues   IssueSource
	log      logrus.FieldLogger
	now      func() time.Time

	releaseProject string
}

// Option customises a Generator.
type Option func(*Generator)

// WithClock replaces the clock used for "now".
func WithClock(now func() time.Time) Option {
	return func(g *Generator) {
		g.now = now
	}
}

// WithReleaseProject makes the release source query project instead of the report's
// project, for release sources that name projects differently from the issue tracker.
func WithReleaseProject(project string) Option {
	return func(g *Generator) {
		g.releaseProject = project
	}
}

// NewGenerator creates a Generator. Either source may be nil when only the other
// metric is requested.
func NewGenerator(releases ReleaseSource, issues IssueSource, log logrus.FieldLogger, opts ...Option) *Generator {
	if log == nil {
		log = logrus.StandardLogger()
	}

	g := &Generator{
		releases: releases,
		issues:   issues,
		log:      log.WithField("component", "report"),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate computes deployment frequency and repair metrics concurrently and merges
// them once both have finished. The first failure cancels the other computation.
func (g *Generator) Generate(ctx context.Context, project string, window Window) (*Report, error) {
	now := g.now()

	var (
		releaseSummary *dora.ReleaseSummary
		repairSummary  *dora.RepairSummary
	)

	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		summary, err := g.deployments(egCtx, project, window, now)
		if err != nil {
			return err
		}
		releaseSummary = summary
		return nil
	})
	eg.Go(func() error {
		summary, err := g.repairs(egCtx, project, window, now)
		if err != nil {
			return err
		}
		repairSummary = summary
		return nil
	})

	if err := eg.Wait(); err != nil {
		return nil, err
	}

	report := &Report{
		Project:                  project,
		GeneratedAt:              now,
		Window:                   window,
		Deployments:              releaseSummary.ReleaseCount,
		DeploymentFrequency:      releaseSummary.DeploymentFrequency,
		DeploymentFrequencyLabel: releaseSummary.DeploymentLabel,
		MTTR:                     repairSummary.MTTR,
		ChangeFailureRate:        repairSummary.FailureRate,
		ReleaseSummary:           releaseSummary,
		RepairSummary:            repairSummary,
	}

	g.log.WithFields(logrus.Fields{
		"project":             project,
		"deployments":         report.Deployments,
		"deploymentFrequency": report.DeploymentFrequency,
		"mttr":                report.MTTR,
		"changeFailureRate":   report.ChangeFailureRate,
	}).Info("report generated")

	return report, nil
}

// Deployments computes only the deployment frequency.
func (g *Generator) Deployments(ctx context.Context, project string, window Window) (*dora.ReleaseSummary, error) {
	return g.deployments(ctx, project, window, g.now())
}

// Repairs computes only MTTR and change failure rate.
func (g *Generator) Repairs(ctx context.Context, project string, window Window) (*dora.RepairSummary, error) {
	return g.repairs(ctx, project, window, g.now())
}

func (g *Generator) deployments(ctx context.Context, project string, window Window, now time.Time) (*dora.ReleaseSummary, error) {
	if g.releases == nil {
		return nil, goerr.New("no release source configured")
	}

	if g.releaseProject != "" {
		project = g.releaseProject
	}

	releases, err := g.releases.FetchReleases(ctx, project)
	if err != nil {
		return nil, err
	}

	filtered := window.Releases(releases)
	g.log.WithFields(logrus.Fields{
		"fetched": len(releases),
		"inRange": len(filtered),
	}).Debug("computing deployment frequency")

	return dora.ComputeDeploymentFrequency(filtered, now)
}

func (g *Generator) repairs(ctx context.Context, project string, window Window, now time.Time) (*dora.RepairSummary, error) {
	if g.issues == nil {
		return nil, goerr.New("no issue source configured")
	}

	issues, err := g.issues.FetchQualifyingBugs(ctx, project)
	if err != nil {
		return nil, err
	}

	filtered := window.Issues(issues, now)
	g.log.WithFields(logrus.Fields{
		"fetched": len(issues),
		"inRange": len(filtered),
	}).Debug("computing repair metrics")

	return dora.ComputeRepairMetrics(filtered, now)
}
