package aggregator

import (
	"sort"
	"time"

	"github.com/1tanmay/repo-analyse/internal/domain"
)

// Input bundles the normalized records of one analysis run.
type Input struct {
	Repository   domain.RepositoryInfo
	Commits      []*domain.CommitRecord
	Contributors []*domain.ContributorRecord
	Range        domain.TimeRange
	Granularity  domain.Granularity
	Skipped      int
}

// Aggregator folds normalized commit activity into analysis results.
type Aggregator struct{}

// New creates a new aggregator
func New() *Aggregator {
	return &Aggregator{}
}

// Aggregate computes the commit-frequency series, the per-contributor totals
// and the churn totals for one run. Commits outside the requested range are
// excluded from every figure. The returned buckets are contiguous and
// zero-filled; their counts sum to TotalCommits.
func (a *Aggregator) Aggregate(in Input) *domain.AnalysisResult {
	commits := filterByRange(in.Commits, in.Range)

	result := &domain.AnalysisResult{
		Repository:     in.Repository,
		Range:          in.Range,
		Granularity:    in.Granularity,
		Buckets:        bucketize(commits, in.Range, in.Granularity),
		Contributors:   rollupContributors(commits, in.Contributors),
		TotalCommits:   int64(len(commits)),
		SkippedRecords: in.Skipped,
		GeneratedAt:    time.Now().UTC(),
	}
	for _, c := range commits {
		result.TotalAdditions += int64(c.Additions)
		result.TotalDeletions += int64(c.Deletions)
	}
	result.TotalChurn = result.TotalAdditions + result.TotalDeletions
	result.TotalContributors = len(result.Contributors)

	return result
}

func filterByRange(commits []*domain.CommitRecord, tr domain.TimeRange) []*domain.CommitRecord {
	kept := make([]*domain.CommitRecord, 0, len(commits))
	for _, c := range commits {
		if tr.Contains(c.Timestamp) {
			kept = append(kept, c)
		}
	}
	return kept
}

// bucketize counts commits per period and fills the gaps with zero buckets.
func bucketize(commits []*domain.CommitRecord, tr domain.TimeRange, granularity domain.Granularity) []domain.TimeBucket {
	counts := make(map[time.Time]int64)
	for _, c := range commits {
		counts[truncateTime(c.Timestamp, granularity)]++
	}

	start, end, ok := bucketSpan(commits, tr)
	if !ok {
		return []domain.TimeBucket{}
	}

	buckets := []domain.TimeBucket{}
	for current := truncateTime(start, granularity); !current.After(end); current = getNextPeriod(current, granularity) {
		buckets = append(buckets, domain.TimeBucket{
			Start: current,
			Count: counts[current],
		})
	}
	return buckets
}

// bucketSpan resolves the series bounds on the UTC timeline. Explicit range
// bounds win; the observed commit timestamps fill in whichever side is open.
// When a side stays open and nothing was observed there is no series to build.
func bucketSpan(commits []*domain.CommitRecord, tr domain.TimeRange) (time.Time, time.Time, bool) {
	start, end := tr.Since.UTC(), tr.Until.UTC()
	if start.IsZero() || end.IsZero() {
		if len(commits) == 0 {
			return time.Time{}, time.Time{}, false
		}
		earliest, latest := commits[0].Timestamp, commits[0].Timestamp
		for _, c := range commits[1:] {
			if c.Timestamp.Before(earliest) {
				earliest = c.Timestamp
			}
			if c.Timestamp.After(latest) {
				latest = c.Timestamp
			}
		}
		if start.IsZero() {
			start = earliest
		}
		if end.IsZero() {
			end = latest
		}
	}
	return start, end, true
}

// rollupContributors totals commit activity per author identity and enriches
// the entries the contributors endpoint knows about. Directory entries with
// no commit in range are dropped.
func rollupContributors(commits []*domain.CommitRecord, directory []*domain.ContributorRecord) []*domain.ContributorRecord {
	byAuthor := make(map[string]*domain.ContributorRecord)
	for _, c := range commits {
		rec := byAuthor[c.Author]
		if rec == nil {
			rec = &domain.ContributorRecord{Login: c.Author}
			byAuthor[c.Author] = rec
		}
		if rec.Name == "" {
			rec.Name = c.AuthorName
		}
		rec.Commits++
		rec.Additions += int64(c.Additions)
		rec.Deletions += int64(c.Deletions)
	}

	for _, d := range directory {
		rec, ok := byAuthor[d.Login]
		if !ok {
			continue
		}
		rec.AvatarURL = d.AvatarURL
		if rec.Name == "" {
			rec.Name = d.Name
		}
	}

	contributors := make([]*domain.ContributorRecord, 0, len(byAuthor))
	for _, rec := range byAuthor {
		contributors = append(contributors, rec)
	}
	sort.Slice(contributors, func(i, j int) bool {
		if contributors[i].Commits != contributors[j].Commits {
			return contributors[i].Commits > contributors[j].Commits
		}
		return contributors[i].Login < contributors[j].Login
	})
	return contributors
}

// truncateTime truncates a time to the start of the period based on granularity
func truncateTime(t time.Time, granularity domain.Granularity) time.Time {
	switch granularity {
	case domain.GranularityDay:
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	case domain.GranularityWeek:
		// Get the start of the week (Monday)
		weekday := int(t.Weekday())
		if weekday == 0 {
			weekday = 7
		}
		return time.Date(t.Year(), t.Month(), t.Day()-weekday+1, 0, 0, 0, 0, t.Location())
	case domain.GranularityMonth:
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	default:
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	}
}

// getNextPeriod returns the start of the next period
func getNextPeriod(t time.Time, granularity domain.Granularity) time.Time {
	switch granularity {
	case domain.GranularityDay:
		return t.AddDate(0, 0, 1)
	case domain.GranularityWeek:
		return t.AddDate(0, 0, 7)
	case domain.GranularityMonth:
		return t.AddDate(0, 1, 0)
	default:
		return t.AddDate(0, 0, 1)
	}
}
