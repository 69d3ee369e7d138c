package dora

import (
	"time"

	"github.com/m-mizutani/goerr/v2"
)

// Labels describing the unit of ReleaseSummary.DeploymentFrequency.
const (
	LabelDaysPerRelease = "days per release"
	LabelReleasesPerDay = "releases per day"
)

// ComputeDeploymentFrequency reduces a release listing to a count, the span between
// the earliest and latest release, and the average cadence.
//
// The cadence is reported in days per release. When that figure drops below one it
// is inverted to releases per day and truncated again, so large release counts over
// short spans lose precision in the inverted figure. A single release has no span and
// reports a frequency of zero. The span is measured between the records themselves, so
// releases dated after now are measured among themselves and never against now.
func ComputeDeploymentFrequency(releases []ReleaseRecord, now time.Time) (*ReleaseSummary, error) {
	if len(releases) == 0 {
		return nil, goerr.Wrap(ErrInsufficientData, "no releases to compute deployment frequency from")
	}

	earliest := now
	latest := time.Unix(0, 0)
	results := make([]Release, 0, len(releases))

	for i, release := range releases {
		date, err := ParseDate(release.ReleaseDate)
		if err != nil {
			return nil, goerr.Wrap(err, "invalid release date",
				goerr.V("release_id", release.ID),
				goerr.V("version", release.Name))
		}

		if i == 0 || date.After(latest) {
			latest = date
		}
		if i == 0 || date.Before(earliest) {
			earliest = date
		}

		results = append(results, Release{
			ID:      release.ID,
			Version: release.Name,
			Date:    date,
		})
	}

	releaseCount := len(results)
	elapsedDays := floorTenth(daysBetween(latest, earliest))

	label := LabelDaysPerRelease
	frequency := floorTenth(elapsedDays / float64(releaseCount))
	if frequency > 0 && frequency < 1 {
		frequency = floorTenth(1 / frequency)
		label = LabelReleasesPerDay
	}

	return &ReleaseSummary{
		Releases:            results,
		ReleaseCount:        releaseCount,
		ElapsedDays:         elapsedDays,
		DeploymentFrequency: frequency,
		DeploymentLabel:     label,
	}, nil
}
