package domain

import "time"

// TimeBucket is one interval of the commit-frequency series.
type TimeBucket struct {
	Start time.Time `json:"start"`
	Count int64     `json:"count"`
}

// AnalysisResult is the immutable outcome of one analysis run.
//
// Buckets form a contiguous, zero-filled partition of the effective range;
// every retained commit is counted in exactly one bucket. Contributors are
// sorted by commit count descending, login ascending.
type AnalysisResult struct {
	ID                string               `json:"id"`
	Repository        RepositoryInfo       `json:"repository"`
	Range             TimeRange            `json:"range"`
	Granularity       Granularity          `json:"granularity"`
	Buckets           []TimeBucket         `json:"buckets"`
	Contributors      []*ContributorRecord `json:"contributors"`
	TotalCommits      int64                `json:"total_commits"`
	TotalContributors int                  `json:"total_contributors"`
	TotalAdditions    int64                `json:"total_additions"`
	TotalDeletions    int64                `json:"total_deletions"`
	TotalChurn        int64                `json:"total_churn"`
	SkippedRecords    int                  `json:"skipped_records"`
	GeneratedAt       time.Time            `json:"generated_at"`
}
