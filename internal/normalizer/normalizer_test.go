package normalizer

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/1tanmay/repo-analyse/internal/collector"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func rawCommit(sha, login string, ts time.Time) *collector.RawCommit {
	return &collector.RawCommit{
		SHA:        sha,
		Login:      login,
		AuthorName: "The " + login,
		Message:    "change " + sha,
		Timestamp:  ts,
		Parents:    1,
	}
}

func commitPage(num int, commits ...*collector.RawCommit) *collector.CommitPage {
	return &collector.CommitPage{Number: num, Commits: commits}
}

func contributorPage(num int, contributors ...*collector.RawContributor) *collector.ContributorPage {
	return &collector.ContributorPage{Number: num, Contributors: contributors}
}

func TestNormalizeMapsRepository(t *testing.T) {
	created := time.Date(2019, 4, 2, 10, 0, 0, 0, time.UTC)
	raw := &collector.RawData{
		Repository: &collector.RawRepository{
			FullName:      "octo/widgets",
			Description:   "widget factory",
			DefaultBranch: "main",
			Private:       true,
			Stars:         42,
			Forks:         7,
			Language:      "Go",
			CreatedAt:     created,
		},
	}

	data := New(discardLogger()).Normalize(raw)

	assert.Equal(t, "octo/widgets", data.Repository.FullName)
	assert.Equal(t, "widget factory", data.Repository.Description)
	assert.Equal(t, "main", data.Repository.DefaultBranch)
	assert.True(t, data.Repository.Private)
	assert.Equal(t, 42, data.Repository.Stars)
	assert.Equal(t, 7, data.Repository.Forks)
	assert.Equal(t, "Go", data.Repository.Language)
	assert.Equal(t, created, data.Repository.CreatedAt)
	assert.Zero(t, data.Skipped)
}

func TestNormalizeToleratesMissingRepository(t *testing.T) {
	data := New(discardLogger()).Normalize(&collector.RawData{})

	assert.Empty(t, data.Repository.FullName)
	assert.Empty(t, data.Commits)
	assert.Empty(t, data.Contributors)
}

func TestNormalizeOrdersCommitsByTimestamp(t *testing.T) {
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	raw := &collector.RawData{
		CommitPages: []*collector.CommitPage{
			commitPage(1,
				rawCommit("c3", "carol", base.Add(2*time.Hour)),
				rawCommit("c1", "alice", base),
			),
			commitPage(2,
				rawCommit("c2", "bob", base.Add(time.Hour)),
				rawCommit("c4", "dave", base.Add(2*time.Hour)), // same instant as c3
			),
		},
	}

	data := New(discardLogger()).Normalize(raw)

	require.Len(t, data.Commits, 4)
	assert.Equal(t, "c1", data.Commits[0].SHA)
	assert.Equal(t, "c2", data.Commits[1].SHA)
	// Equal timestamps keep arrival order.
	assert.Equal(t, "c3", data.Commits[2].SHA)
	assert.Equal(t, "c4", data.Commits[3].SHA)
}

func TestNormalizeCanonicalizesTimestampsToUTC(t *testing.T) {
	offset := time.FixedZone("IST", 5*3600+1800)
	authored := time.Date(2024, 3, 1, 2, 0, 0, 0, offset)
	raw := &collector.RawData{
		CommitPages: []*collector.CommitPage{
			commitPage(1, rawCommit("c1", "alice", authored)),
		},
	}

	data := New(discardLogger()).Normalize(raw)

	require.Len(t, data.Commits, 1)
	got := data.Commits[0].Timestamp
	assert.Equal(t, time.UTC, got.Location())
	assert.True(t, got.Equal(authored))
	// 02:00+05:30 is still the previous day in UTC.
	assert.Equal(t, 29, got.Day())
}

func TestNormalizeDedupesShasFirstSeen(t *testing.T) {
	ts := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	first := rawCommit("dup", "alice", ts)
	second := rawCommit("dup", "bob", ts.Add(time.Hour))
	raw := &collector.RawData{
		CommitPages: []*collector.CommitPage{
			commitPage(1, first),
			commitPage(2, second),
		},
	}

	data := New(discardLogger()).Normalize(raw)

	require.Len(t, data.Commits, 1)
	assert.Equal(t, "alice", data.Commits[0].Author)
	assert.Zero(t, data.Skipped, "duplicates are not counted as skipped")
}

func TestNormalizeSkipsInvalidCommits(t *testing.T) {
	ts := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	noSHA := rawCommit("", "alice", ts)
	noDate := rawCommit("c1", "bob", time.Time{})
	noIdentity := &collector.RawCommit{SHA: "c2", Timestamp: ts}
	valid := rawCommit("c3", "carol", ts)
	raw := &collector.RawData{
		CommitPages: []*collector.CommitPage{
			commitPage(1, noSHA, noDate, noIdentity, valid),
		},
	}

	data := New(discardLogger()).Normalize(raw)

	require.Len(t, data.Commits, 1)
	assert.Equal(t, "c3", data.Commits[0].SHA)
	assert.Equal(t, 3, data.Skipped)
}

func TestNormalizeFallsBackToAuthorName(t *testing.T) {
	ts := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	raw := &collector.RawData{
		CommitPages: []*collector.CommitPage{
			commitPage(1, &collector.RawCommit{
				SHA:        "c1",
				AuthorName: "Jane Doe",
				Timestamp:  ts,
			}),
		},
	}

	data := New(discardLogger()).Normalize(raw)

	require.Len(t, data.Commits, 1)
	assert.Equal(t, "Jane Doe", data.Commits[0].Author)
	assert.Equal(t, "Jane Doe", data.Commits[0].AuthorName)
}

func TestNormalizeMergesCommitStats(t *testing.T) {
	ts := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	raw := &collector.RawData{
		CommitPages: []*collector.CommitPage{
			commitPage(1,
				rawCommit("counted", "alice", ts),
				rawCommit("uncounted", "bob", ts.Add(time.Hour)),
			),
		},
		Stats: map[string]collector.CommitStats{
			"counted": {Additions: 10, Deletions: 4},
		},
	}

	data := New(discardLogger()).Normalize(raw)

	require.Len(t, data.Commits, 2)
	assert.Equal(t, 10, data.Commits[0].Additions)
	assert.Equal(t, 4, data.Commits[0].Deletions)
	assert.Equal(t, 14, data.Commits[0].Churn())
	assert.Zero(t, data.Commits[1].Additions)
	assert.Zero(t, data.Commits[1].Deletions)
}

func TestNormalizeContributors(t *testing.T) {
	raw := &collector.RawData{
		ContributorPages: []*collector.ContributorPage{
			contributorPage(1,
				&collector.RawContributor{Login: "alice", AvatarURL: "https://avatars.test/alice", Contributions: 120},
				&collector.RawContributor{Login: ""},
			),
			contributorPage(2,
				&collector.RawContributor{Login: "alice", Contributions: 1},
				&collector.RawContributor{Login: "bob", AvatarURL: "https://avatars.test/bob", Contributions: 3},
			),
		},
	}

	data := New(discardLogger()).Normalize(raw)

	require.Len(t, data.Contributors, 2)
	assert.Equal(t, "alice", data.Contributors[0].Login)
	assert.Equal(t, "https://avatars.test/alice", data.Contributors[0].AvatarURL)
	assert.Equal(t, "bob", data.Contributors[1].Login)
	assert.Equal(t, 1, data.Skipped, "login-less entry is counted as skipped")
}
