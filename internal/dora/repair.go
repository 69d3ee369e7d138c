package dora

import (
	"math"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
)

// IsChangeFailure reports whether a fix version names a patch-level release, i.e. it
// has more than two dot-separated segments ("2.4.1" but not "2.4" or "2").
func IsChangeFailure(version string) bool {
	return len(strings.Split(version, ".")) > 2
}

// ComputeRepairMetrics measures how long each issue took to repair after the release
// it was fixed in, and how many of those fixes shipped in a patch release.
//
// Issues without a resolution date are treated as still open at now. Every issue tied
// to a patch release counts toward the failure rate, so several issues sharing one
// fix version each add to Failures.
func ComputeRepairMetrics(issues []IssueRecord, now time.Time) (*RepairSummary, error) {
	if len(issues) == 0 {
		return nil, goerr.Wrap(ErrInsufficientData, "no issues to compute repair metrics from")
	}

	summary := &RepairSummary{
		Issues:   make([]Issue, 0, len(issues)),
		Repairs:  make([]float64, 0, len(issues)),
		Failures: []string{},
	}

	var total float64
	for i, issue := range issues {
		if len(issue.FixVersions) == 0 {
			return nil, goerr.Wrap(ErrMalformedRecord, "issue has no fix version",
				goerr.V("index", i),
				goerr.V("key", issue.Key))
		}
		fixVersion := issue.FixVersions[0]

		summary.Issues = append(summary.Issues, Issue{
			ResolutionDate: issue.ResolutionDate,
			ReleaseDate:    fixVersion.ReleaseDate,
			FixVersion:     fixVersion.Name,
		})

		releaseDate, err := ParseDate(fixVersion.ReleaseDate)
		if err != nil {
			return nil, goerr.Wrap(err, "invalid fix version release date",
				goerr.V("key", issue.Key),
				goerr.V("fix_version", fixVersion.Name))
		}

		fixDate := now
		if issue.ResolutionDate != nil {
			fixDate, err = ParseDate(*issue.ResolutionDate)
			if err != nil {
				return nil, goerr.Wrap(err, "invalid resolution date", goerr.V("key", issue.Key))
			}
		}

		repair := daysBetween(fixDate, releaseDate)
		summary.Repairs = append(summary.Repairs, repair)
		total += repair

		if IsChangeFailure(fixVersion.Name) {
			summary.Failures = append(summary.Failures, fixVersion.Name)
		}
	}

	count := float64(len(summary.Repairs))
	summary.MTTR = floorTenth(total / count)
	summary.FailureRate = math.Floor(float64(len(summary.Failures))/count*1000) / 10

	return summary, nil
}
