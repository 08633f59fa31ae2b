package collector

import "time"

// Cursor identifies a page of a paginated listing. The zero cursor means
// the listing is exhausted.
type Cursor int

// CursorStart opens a listing at its first page.
const CursorStart Cursor = 1

// Done reports whether the listing has no further pages.
func (c Cursor) Done() bool {
	return c == 0
}

// RawCommit is a single commit as returned by the list endpoint, before
// normalization.
type RawCommit struct {
	SHA        string
	Login      string // author login; empty when GitHub maps no account to the author
	AuthorName string
	Message    string
	Timestamp  time.Time // zero when the payload carried no authored date
	Parents    int
}

// RawContributor is one entry of the contributors listing.
type RawContributor struct {
	Login         string
	AvatarURL     string
	Contributions int
}

// RawRepository is the repository metadata payload.
type RawRepository struct {
	FullName      string
	Description   string
	DefaultBranch string
	Private       bool
	Stars         int
	Forks         int
	Language      string
	CreatedAt     time.Time
}

// CommitStats carries the line counts of a single commit.
type CommitStats struct {
	Additions int
	Deletions int
}

// CommitPage is one page of the commit listing, commits in API order.
type CommitPage struct {
	Number  int
	Commits []*RawCommit
	Next    Cursor
	Rate    RateLimit
}

// ContributorPage is one page of the contributors listing, in API order.
type ContributorPage struct {
	Number       int
	Contributors []*RawContributor
	Next         Cursor
	Rate         RateLimit
}

// RawData bundles everything fetched for one analysis. Pages are kept in
// arrival order so first-seen semantics survive into normalization.
type RawData struct {
	Repository       *RawRepository
	CommitPages      []*CommitPage
	ContributorPages []*ContributorPage
	Stats            map[string]CommitStats // keyed by commit sha
}

// Commits returns the fetched commits flattened in page order.
func (d *RawData) Commits() []*RawCommit {
	var commits []*RawCommit
	for _, page := range d.CommitPages {
		commits = append(commits, page.Commits...)
	}
	return commits
}

// Contributors returns the fetched contributors flattened in page order.
func (d *RawData) Contributors() []*RawContributor {
	var contributors []*RawContributor
	for _, page := range d.ContributorPages {
		contributors = append(contributors, page.Contributors...)
	}
	return contributors
}

// Options tunes the GitHub client and the fetch pipeline. The zero value
// picks sensible defaults for every field except Token.
type Options struct {
	Token             string
	BaseURL           string // GitHub Enterprise; empty means api.github.com
	HTTPTimeout       time.Duration
	RequestsPerMinute int
	PerPage           int
	MaxRetries        int
	BackoffBase       time.Duration
	BackoffMax        time.Duration
	RateLimitMaxWait  time.Duration
	StatsWorkers      int
	StatsCacheSize    int
}

func (o Options) withDefaults() Options {
	if o.HTTPTimeout <= 0 {
		o.HTTPTimeout = 30 * time.Second
	}
	if o.RequestsPerMinute <= 0 {
		o.RequestsPerMinute = 80
	}
	if o.PerPage <= 0 || o.PerPage > 100 {
		o.PerPage = 100
	}
	if o.MaxRetries <= 0 {
		o.MaxRetries = 3
	}
	if o.BackoffBase <= 0 {
		o.BackoffBase = time.Second
	}
	if o.BackoffMax <= 0 {
		o.BackoffMax = 30 * time.Second
	}
	if o.RateLimitMaxWait <= 0 {
		o.RateLimitMaxWait = 15 * time.Minute
	}
	if o.StatsWorkers <= 0 {
		o.StatsWorkers = 5
	}
	if o.StatsCacheSize <= 0 {
		o.StatsCacheSize = 1000
	}
	return o
}
