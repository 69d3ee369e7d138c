package main

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/reillywatson/dorametrics/internal/dora"
	"github.com/reillywatson/dorametrics/internal/report"
)

// Output formats
const (
	formatText       = "text"
	formatJSON       = "json"
	formatYAML       = "yaml"
	formatPrometheus = "prometheus"
)

const timeLayout = "2006-01-02 15:04:05 MST"

func validFormat(format string) bool {
	return slices.Contains([]string{formatText, formatJSON, formatYAML, formatPrometheus}, format)
}

// writeStructured encodes v as JSON or YAML and reports whether format was one of them
func writeStructured(w io.Writer, format string, v interface{}) (bool, error) {
	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return true, enc.Encode(v)
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return true, err
		}
		return true, enc.Close()
	default:
		return false, nil
	}
}

func writeReport(w io.Writer, format string, r *report.Report) error {
	if format == formatPrometheus {
		return report.WritePrometheus(w, r)
	}
	if ok, err := writeStructured(w, format, r); ok {
		return err
	}

	fmt.Fprintf(w, "DORA Metrics for %s\n", r.Project)
	fmt.Fprintln(w, strings.Repeat("-", 17+len(r.Project)))
	fmt.Fprintf(w, "Generated: %s\n", r.GeneratedAt.Format(timeLayout))
	if !r.Window.IsZero() {
		fmt.Fprintf(w, "Window: %s\n", describeWindow(r.Window))
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "Deployments: %d\n", r.Deployments)
	fmt.Fprintf(w, "Deployment Frequency: %.1f %s\n", r.DeploymentFrequency, r.DeploymentFrequencyLabel)
	fmt.Fprintf(w, "Mean Time to Repair: %.1f days\n", r.MTTR)
	fmt.Fprintf(w, "Change Failure Rate: %.1f%%\n", r.ChangeFailureRate)

	if r.RepairSummary != nil && len(r.RepairSummary.Failures) > 0 {
		fmt.Fprintf(w, "Change Failures: %s\n", strings.Join(r.RepairSummary.Failures, ", "))
	}
	return nil
}

func writeReleaseSummary(w io.Writer, format string, s *dora.ReleaseSummary) error {
	if ok, err := writeStructured(w, format, s); ok {
		return err
	}

	fmt.Fprintln(w, "Releases:")
	fmt.Fprintln(w, "---------")
	for _, release := range s.Releases {
		fmt.Fprintf(w, "Release: %s\n", release.Version)
		fmt.Fprintf(w, "  ID: %s\n", release.ID)
		fmt.Fprintf(w, "  Date: %s\n", release.Date.Format(timeLayout))
	}

	fmt.Fprintln(w, "\nDeployment Summary:")
	fmt.Fprintln(w, "-------------------")
	fmt.Fprintf(w, "Releases: %d\n", s.ReleaseCount)
	fmt.Fprintf(w, "Elapsed: %.1f days\n", s.ElapsedDays)
	fmt.Fprintf(w, "Deployment Frequency: %.1f %s\n", s.DeploymentFrequency, s.DeploymentLabel)
	return nil
}

func writeRepairSummary(w io.Writer, format string, s *dora.RepairSummary) error {
	if ok, err := writeStructured(w, format, s); ok {
		return err
	}

	fmt.Fprintln(w, "Repairs:")
	fmt.Fprintln(w, "--------")
	for i, issue := range s.Issues {
		resolved := "(unresolved)"
		if issue.ResolutionDate != nil {
			resolved = *issue.ResolutionDate
		}
		fmt.Fprintf(w, "Fix Version: %s\n", issue.FixVersion)
		fmt.Fprintf(w, "  Released: %s\n", issue.ReleaseDate)
		fmt.Fprintf(w, "  Resolved: %s\n", resolved)
		if i < len(s.Repairs) {
			fmt.Fprintf(w, "  Time to Repair: %.1f days\n", s.Repairs[i])
		}
	}

	fmt.Fprintln(w, "\nRepair Summary:")
	fmt.Fprintln(w, "---------------")
	fmt.Fprintf(w, "Issues: %d\n", len(s.Issues))
	fmt.Fprintf(w, "Mean Time to Repair: %.1f days\n", s.MTTR)
	fmt.Fprintf(w, "Change Failures: %d\n", len(s.Failures))
	fmt.Fprintf(w, "Change Failure Rate: %.1f%%\n", s.FailureRate)
	return nil
}

func describeWindow(w report.Window) string {
	since, until := "(open)", "(open)"
	if !w.Since.IsZero() {
		since = w.Since.Format(dateLayout)
	}
	if !w.Until.IsZero() {
		until = w.Until.Format(dateLayout)
	}
	return since + " to " + until
}
