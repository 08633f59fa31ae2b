package domain

import (
	"fmt"
	"time"
)

// Granularity selects the width of time-series buckets.
type Granularity string

const (
	GranularityDay   Granularity = "day"
	GranularityWeek  Granularity = "week"
	GranularityMonth Granularity = "month"
)

// ParseGranularity parses a granularity string. An empty string defaults to day.
func ParseGranularity(s string) (Granularity, error) {
	switch Granularity(s) {
	case "":
		return GranularityDay, nil
	case GranularityDay, GranularityWeek, GranularityMonth:
		return Granularity(s), nil
	default:
		return "", fmt.Errorf("invalid granularity %q: must be day, week or month", s)
	}
}

// TimeRange bounds an analysis to [Since, Until], inclusive on both ends.
// Zero values mean the corresponding end is unbounded.
type TimeRange struct {
	Since time.Time `json:"since,omitzero"`
	Until time.Time `json:"until,omitzero"`
}

// Bounded reports whether any explicit bound was set.
func (tr TimeRange) Bounded() bool {
	return !tr.Since.IsZero() || !tr.Until.IsZero()
}

// Contains reports whether t falls inside the range.
func (tr TimeRange) Contains(t time.Time) bool {
	if !tr.Since.IsZero() && t.Before(tr.Since) {
		return false
	}
	if !tr.Until.IsZero() && t.After(tr.Until) {
		return false
	}
	return true
}

// Validate rejects ranges whose start falls after their end.
func (tr TimeRange) Validate() error {
	if !tr.Since.IsZero() && !tr.Until.IsZero() && tr.Since.After(tr.Until) {
		return fmt.Errorf("invalid time range: since %s is after until %s",
			tr.Since.Format("2006-01-02"), tr.Until.Format("2006-01-02"))
	}
	return nil
}
