package report

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reillywatson/dorametrics/internal/dora"
)

var fixedNow = time.Date(2024, 1, 21, 0, 0, 0, 0, time.UTC)

type fakeReleases struct {
	releases []dora.ReleaseRecord
	err      error
	calls    atomic.Int32
}

func (f *fakeReleases) FetchReleases(ctx context.Context, project string) ([]dora.ReleaseRecord, error) {
	f.calls.Add(1)
	return f.releases, f.err
}

type fakeIssues struct {
	issues []dora.IssueRecord
	err    error
	block  bool
}

func (f *fakeIssues) FetchQualifyingBugs(ctx context.Context, project string) ([]dora.IssueRecord, error) {
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return f.issues, f.err
}

func strPtr(s string) *string {
	return &s
}

func newTestGenerator(releases ReleaseSource, issues IssueSource) *Generator {
	log, _ := test.NewNullLogger()
	return NewGenerator(releases, issues, log, WithClock(func() time.Time { return fixedNow }))
}

func sampleReleases() []dora.ReleaseRecord {
	return []dora.ReleaseRecord{
		{ID: "1", Name: "1.0", ReleaseDate: "2024-01-01"},
		{ID: "2", Name: "1.1", ReleaseDate: "2024-01-11"},
	}
}

func sampleIssues() []dora.IssueRecord {
	return []dora.IssueRecord{
		{Key: "OPS-1", ResolutionDate: strPtr("2024-01-03"), FixVersions: []dora.FixVersion{{Name: "1.0.1", ReleaseDate: "2024-01-01"}}},
		{Key: "OPS-2", ResolutionDate: strPtr("2024-01-15"), FixVersions: []dora.FixVersion{{Name: "1.1", ReleaseDate: "2024-01-11"}}},
	}
}

func TestGenerate(t *testing.T) {
	g := newTestGenerator(&fakeReleases{releases: sampleReleases()}, &fakeIssues{issues: sampleIssues()})

	report, err := g.Generate(context.Background(), "OPS", Window{})
	require.NoError(t, err)

	assert.Equal(t, "OPS", report.Project)
	assert.Equal(t, fixedNow, report.GeneratedAt)
	assert.Equal(t, 2, report.Deployments)
	assert.Equal(t, 5.0, report.DeploymentFrequency)
	assert.Equal(t, dora.LabelDaysPerRelease, report.DeploymentFrequencyLabel)
	assert.Equal(t, 3.0, report.MTTR)
	assert.Equal(t, 50.0, report.ChangeFailureRate)

	require.NotNil(t, report.ReleaseSummary)
	require.NotNil(t, report.RepairSummary)
	assert.Equal(t, []string{"1.0.1"}, report.RepairSummary.Failures)
}

func TestGenerate_ZeroMetricsStillMerge(t *testing.T) {
	// A single release and a same-day fix produce zeros, which are legitimate values.
	g := newTestGenerator(
		&fakeReleases{releases: []dora.ReleaseRecord{{ID: "1", Name: "1.0", ReleaseDate: "2024-01-01"}}},
		&fakeIssues{issues: []dora.IssueRecord{
			{ResolutionDate: strPtr("2024-01-01"), FixVersions: []dora.FixVersion{{Name: "1.0", ReleaseDate: "2024-01-01"}}},
		}},
	)

	report, err := g.Generate(context.Background(), "OPS", Window{})
	require.NoError(t, err)

	assert.Equal(t, 1, report.Deployments)
	assert.Equal(t, 0.0, report.DeploymentFrequency)
	assert.Equal(t, 0.0, report.MTTR)
	assert.Equal(t, 0.0, report.ChangeFailureRate)
}

func TestGenerate_UpstreamErrorPassesThrough(t *testing.T) {
	fetchErr := dora.UpstreamError(errors.New("connection refused"), "jira request failed")
	g := newTestGenerator(&fakeReleases{err: fetchErr}, &fakeIssues{block: true})

	report, err := g.Generate(context.Background(), "OPS", Window{})
	require.Error(t, err)
	assert.Nil(t, report)
	assert.True(t, err == fetchErr, "expected the fetch error to be returned unmodified, got %v", err)
	assert.ErrorIs(t, err, dora.ErrUpstreamFetch)
	assert.NotErrorIs(t, err, dora.ErrInsufficientData)
}

func TestGenerate_InsufficientData(t *testing.T) {
	g := newTestGenerator(&fakeReleases{releases: sampleReleases()}, &fakeIssues{issues: []dora.IssueRecord{}})

	_, err := g.Generate(context.Background(), "OPS", Window{})
	assert.ErrorIs(t, err, dora.ErrInsufficientData)
	assert.NotErrorIs(t, err, dora.ErrUpstreamFetch)
}

func TestGenerate_MalformedRecord(t *testing.T) {
	g := newTestGenerator(&fakeReleases{releases: sampleReleases()}, &fakeIssues{issues: []dora.IssueRecord{{Key: "OPS-1"}}})

	_, err := g.Generate(context.Background(), "OPS", Window{})
	assert.ErrorIs(t, err, dora.ErrMalformedRecord)
}

func TestGenerate_Window(t *testing.T) {
	releases := append(sampleReleases(), dora.ReleaseRecord{ID: "0", Name: "0.9", ReleaseDate: "2023-06-01"})
	issues := append(sampleIssues(), dora.IssueRecord{
		Key: "OPS-0", ResolutionDate: strPtr("2023-06-02"), FixVersions: []dora.FixVersion{{Name: "0.9.1", ReleaseDate: "2023-06-01"}},
	})
	g := newTestGenerator(&fakeReleases{releases: releases}, &fakeIssues{issues: issues})

	report, err := g.Generate(context.Background(), "OPS", Window{Since: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)})
	require.NoError(t, err)

	assert.Equal(t, 2, report.Deployments)
	assert.Equal(t, 5.0, report.DeploymentFrequency)
	assert.Len(t, report.RepairSummary.Issues, 2)
	assert.Equal(t, 50.0, report.ChangeFailureRate)
}

func TestDeploymentsAndRepairs(t *testing.T) {
	releases := &fakeReleases{releases: sampleReleases()}
	g := newTestGenerator(releases, nil)

	summary, err := g.Deployments(context.Background(), "OPS", Window{})
	require.NoError(t, err)
	assert.Equal(t, 2, summary.ReleaseCount)
	assert.Equal(t, int32(1), releases.calls.Load())

	_, err = g.Repairs(context.Background(), "OPS", Window{})
	assert.ErrorContains(t, err, "no issue source configured")

	g = newTestGenerator(nil, &fakeIssues{issues: sampleIssues()})
	repairs, err := g.Repairs(context.Background(), "OPS", Window{})
	require.NoError(t, err)
	assert.Equal(t, 3.0, repairs.MTTR)
}

func TestWindow_Issues(t *testing.T) {
	w := Window{
		Since: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Until: time.Date(2024, 1, 31, 23, 59, 59, 0, time.UTC),
	}
	now := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	issues := []dora.IssueRecord{
		{Key: "in", ResolutionDate: strPtr("2024-01-15T10:00:00.000+0000")},
		{Key: "before", ResolutionDate: strPtr("2023-12-31")},
		{Key: "after", ResolutionDate: strPtr("2024-02-01")},
		{Key: "open"}, // resolved at now, outside the window
		{Key: "garbled", ResolutionDate: strPtr("not a date")},
	}

	var keys []string
	for _, issue := range w.Issues(issues, now) {
		keys = append(keys, issue.Key)
	}
	assert.Equal(t, []string{"in", "garbled"}, keys)

	assert.Len(t, Window{}.Issues(issues, now), len(issues))
}

func TestWindow_Releases(t *testing.T) {
	w := Window{Until: time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)}

	kept := w.Releases([]dora.ReleaseRecord{
		{ID: "1", ReleaseDate: "2024-01-01"},
		{ID: "2", ReleaseDate: "2024-01-11"},
		{ID: "3", ReleaseDate: ""},
	})

	require.Len(t, kept, 2)
	assert.Equal(t, "1", kept[0].ID)
	assert.Equal(t, "3", kept[1].ID)
}

type recordingReleases struct {
	project string
}

func (r *recordingReleases) FetchReleases(ctx context.Context, project string) ([]dora.ReleaseRecord, error) {
	r.project = project
	return sampleReleases(), nil
}

func TestGenerate_ReleaseProject(t *testing.T) {
	releases := &recordingReleases{}
	log, _ := test.NewNullLogger()
	g := NewGenerator(releases, &fakeIssues{issues: sampleIssues()}, log,
		WithClock(func() time.Time { return fixedNow }),
		WithReleaseProject("acme/api"))

	report, err := g.Generate(context.Background(), "OPS", Window{})
	require.NoError(t, err)

	assert.Equal(t, "acme/api", releases.project)
	assert.Equal(t, "OPS", report.Project)
}
