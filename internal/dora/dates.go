package dora

import (
	"math"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
)

// Layouts accepted for upstream dates. Jira sends plain dates for versions and
// millisecond timestamps with a numeric zone for resolutions.
var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339Nano,
	"2006-01-02T15:04:05.000-0700",
	"2006-01-02T15:04:05-0700",
	"2006-01-02T15:04:05",
}

const day = 24 * time.Hour

// ParseDate parses a date-like upstream string. Dates without a zone are UTC.
func ParseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, goerr.Wrap(ErrMalformedRecord, "empty date")
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}

	return time.Time{}, goerr.Wrap(ErrMalformedRecord, "unrecognised date format", goerr.V("date", value))
}

// daysBetween returns the absolute distance between a and b in fractional days.
func daysBetween(a, b time.Time) float64 {
	return math.Abs(float64(a.Sub(b)) / float64(day))
}

// floorTenth truncates x to one fractional digit.
func floorTenth(x float64) float64 {
	return math.Floor(x*10) / 10
}
