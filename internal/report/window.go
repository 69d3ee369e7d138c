package report

import (
	"time"

	"github.com/reillywatson/dorametrics/internal/dora"
)

// Window bounds the records a report covers. A zero Since or Until leaves that side open.
type Window struct {
	Since time.Time `json:"since,omitzero" yaml:"since,omitempty"`
	Until time.Time `json:"until,omitzero" yaml:"until,omitempty"`
}

// IsZero reports whether the window is unbounded on both sides.
func (w Window) IsZero() bool {
	return w.Since.IsZero() && w.Until.IsZero()
}

func (w Window) contains(t time.Time) bool {
	if !w.Since.IsZero() && t.Before(w.Since) {
		return false
	}
	if !w.Until.IsZero() && t.After(w.Until) {
		return false
	}
	return true
}

// Releases keeps the releases dated inside the window. Records whose date does not
// parse are kept so the calculator can reject them.
func (w Window) Releases(releases []dora.ReleaseRecord) []dora.ReleaseRecord {
	if w.IsZero() {
		return releases
	}

	kept := make([]dora.ReleaseRecord, 0, len(releases))
	for _, release := range releases {
		date, err := dora.ParseDate(release.ReleaseDate)
		if err != nil || w.contains(date) {
			kept = append(kept, release)
		}
	}
	return kept
}

// Issues keeps the issues resolved inside the window; unresolved issues count as
// resolved at now. Records whose date does not parse are kept.
func (w Window) Issues(issues []dora.IssueRecord, now time.Time) []dora.IssueRecord {
	if w.IsZero() {
		return issues
	}

	kept := make([]dora.IssueRecord, 0, len(issues))
	for _, issue := range issues {
		resolved := now
		if issue.ResolutionDate != nil {
			date, err := dora.ParseDate(*issue.ResolutionDate)
			if err != nil {
				kept = append(kept, issue)
				continue
			}
			resolved = date
		}

		if w.contains(resolved) {
			kept = append(kept, issue)
		}
	}
	return kept
}
