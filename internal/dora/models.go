package dora

import "time"

// ReleaseRecord is one entry of an upstream version listing.
type ReleaseRecord struct {
	ID          string `json:"id" yaml:"id"`
	Name        string `json:"name" yaml:"name"`
	ReleaseDate string `json:"releaseDate" yaml:"releaseDate"`
}

// FixVersion is the version an issue was fixed in.
type FixVersion struct {
	Name        string `json:"name" yaml:"name"`
	ReleaseDate string `json:"releaseDate" yaml:"releaseDate"`
}

// IssueRecord is a resolved high-priority bug tied to a released version.
// Only the first fix version is considered.
type IssueRecord struct {
	Key            string       `json:"key,omitempty" yaml:"key,omitempty"`
	ResolutionDate *string      `json:"resolutionDate" yaml:"resolutionDate"`
	FixVersions    []FixVersion `json:"fixVersions" yaml:"fixVersions"`
}

// Release is a release as reported in a ReleaseSummary
type Release struct {
	ID      string    `json:"id" yaml:"id"`
	Version string    `json:"version" yaml:"version"`
	Date    time.Time `json:"date" yaml:"date"`
}

// ReleaseSummary is the output of ComputeDeploymentFrequency.
type ReleaseSummary struct {
	Releases            []Release `json:"releases" yaml:"releases"`
	ReleaseCount        int       `json:"releaseCount" yaml:"releaseCount"`
	ElapsedDays         float64   `json:"elapsedDays" yaml:"elapsedDays"`
	DeploymentFrequency float64   `json:"deploymentFrequency" yaml:"deploymentFrequency"`
	DeploymentLabel     string    `json:"deploymentLabel" yaml:"deploymentLabel"`
}

// Issue is an issue as reported in a RepairSummary
type Issue struct {
	ResolutionDate *string `json:"resolutionDate" yaml:"resolutionDate"`
	ReleaseDate    string  `json:"releaseDate" yaml:"releaseDate"`
	FixVersion     string  `json:"fixVersion" yaml:"fixVersion"`
}

// RepairSummary is the output of ComputeRepairMetrics.
type RepairSummary struct {
	Issues      []Issue   `json:"issues" yaml:"issues"`
	Repairs     []float64 `json:"repairs" yaml:"repairs"`         // days from release to fix, per issue
	Failures    []string  `json:"failures" yaml:"failures"`       // fix versions classified as change failures
	MTTR        float64   `json:"mttr" yaml:"mttr"`               // days
	FailureRate float64   `json:"failureRate" yaml:"failureRate"` // percent
}
