package domain

import "time"

// CommitRecord is the normalized form of a single commit.
type CommitRecord struct {
	SHA        string    `json:"sha"`
	Author     string    `json:"author"` // login when known, commit author name otherwise
	AuthorName string    `json:"author_name,omitempty"`
	Message    string    `json:"message,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
	Additions  int       `json:"additions"`
	Deletions  int       `json:"deletions"`
	Parents    int       `json:"parents"`
}

// Churn returns the total number of changed lines.
func (c *CommitRecord) Churn() int {
	return c.Additions + c.Deletions
}

// ContributorRecord holds the per-contributor activity totals of one analysis.
type ContributorRecord struct {
	Login     string `json:"login"`
	Name      string `json:"name,omitempty"`
	AvatarURL string `json:"avatar_url,omitempty"`
	Commits   int64  `json:"commits"`
	Additions int64  `json:"additions"`
	Deletions int64  `json:"deletions"`
}
