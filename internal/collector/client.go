package collector

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/go-github/v55/github"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"github.com/1tanmay/repo-analyse/internal/domain"
	apperrors "github.com/1tanmay/repo-analyse/internal/errors"
)

// Client fetches raw repository data from the GitHub REST API, one page per
// call. Implementations classify transport failures into the application
// error taxonomy and report the quota snapshot seen on each response.
type Client interface {
	// GetRepository retrieves the repository metadata snapshot
	GetRepository(ctx context.Context, ref domain.RepositoryRef) (*RawRepository, error)

	// GetCommits retrieves one page of the commit listing
	GetCommits(ctx context.Context, ref domain.RepositoryRef, tr domain.TimeRange, cursor Cursor) (*CommitPage, error)

	// GetContributors retrieves one page of the contributors listing
	GetContributors(ctx context.Context, ref domain.RepositoryRef, cursor Cursor) (*ContributorPage, error)

	// GetCommitStats retrieves the line counts of a single commit
	GetCommitStats(ctx context.Context, ref domain.RepositoryRef, sha string) (CommitStats, error)
}

// githubClient implements Client using the GitHub REST API
type githubClient struct {
	client  *github.Client
	pacer   *rate.Limiter
	perPage int
	logger  *slog.Logger
}

// NewGitHubClient creates a new GitHub API client. The token is passed
// through as-is; an empty token yields an unauthenticated client.
func NewGitHubClient(opts Options, logger *slog.Logger) (Client, error) {
	opts = opts.withDefaults()

	httpClient := &http.Client{Timeout: opts.HTTPTimeout}
	if opts.Token != "" {
		ctx := context.WithValue(context.Background(), oauth2.HTTPClient, httpClient)
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: opts.Token})
		httpClient = oauth2.NewClient(ctx, ts)
		httpClient.Timeout = opts.HTTPTimeout
	}

	gh := github.NewClient(httpClient)
	if opts.BaseURL != "" {
		var err error
		gh, err = gh.WithEnterpriseURLs(opts.BaseURL, opts.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("invalid base URL %q: %w", opts.BaseURL, err)
		}
	}

	return &githubClient{
		client:  gh,
		pacer:   rate.NewLimiter(rate.Every(time.Minute/time.Duration(opts.RequestsPerMinute)), 1),
		perPage: opts.PerPage,
		logger:  logger,
	}, nil
}

// GetRepository retrieves the repository metadata snapshot
func (c *githubClient) GetRepository(ctx context.Context, ref domain.RepositoryRef) (*RawRepository, error) {
	if err := c.pacer.Wait(ctx); err != nil {
		return nil, err
	}

	repo, _, err := c.client.Repositories.Get(ctx, ref.Owner, ref.Name)
	if err != nil {
		return nil, classifyError(err, fmt.Sprintf("repository %s", ref))
	}

	return &RawRepository{
		FullName:      repo.GetFullName(),
		Description:   repo.GetDescription(),
		DefaultBranch: repo.GetDefaultBranch(),
		Private:       repo.GetPrivate(),
		Stars:         repo.GetStargazersCount(),
		Forks:         repo.GetForksCount(),
		Language:      repo.GetLanguage(),
		CreatedAt:     repo.GetCreatedAt().Time,
	}, nil
}

// GetCommits retrieves one page of the commit listing
func (c *githubClient) GetCommits(ctx context.Context, ref domain.RepositoryRef, tr domain.TimeRange, cursor Cursor) (*CommitPage, error) {
	if err := c.pacer.Wait(ctx); err != nil {
		return nil, err
	}

	opts := &github.CommitsListOptions{
		ListOptions: github.ListOptions{PerPage: c.perPage, Page: int(cursor)},
	}
	if !tr.Since.IsZero() {
		opts.Since = tr.Since
	}
	if !tr.Until.IsZero() {
		opts.Until = tr.Until
	}

	commits, resp, err := c.client.Repositories.ListCommits(ctx, ref.Owner, ref.Name, opts)
	if err != nil {
		// 409 means the repository has no commits yet; treat as an empty,
		// terminal page rather than a failure.
		if resp != nil && resp.StatusCode == http.StatusConflict {
			c.logger.Info("repository has no commits", "repo", ref.String())
			return &CommitPage{Number: int(cursor), Rate: rateFromResponse(resp)}, nil
		}
		return nil, classifyError(err, fmt.Sprintf("list commits for %s", ref))
	}

	page := &CommitPage{
		Number:  int(cursor),
		Commits: make([]*RawCommit, 0, len(commits)),
		Next:    Cursor(resp.NextPage),
		Rate:    rateFromResponse(resp),
	}
	for _, rc := range commits {
		page.Commits = append(page.Commits, rawCommitFrom(rc))
	}
	return page, nil
}

// GetContributors retrieves one page of the contributors listing
func (c *githubClient) GetContributors(ctx context.Context, ref domain.RepositoryRef, cursor Cursor) (*ContributorPage, error) {
	if err := c.pacer.Wait(ctx); err != nil {
		return nil, err
	}

	opts := &github.ListContributorsOptions{
		ListOptions: github.ListOptions{PerPage: c.perPage, Page: int(cursor)},
	}

	contributors, resp, err := c.client.Repositories.ListContributors(ctx, ref.Owner, ref.Name, opts)
	if err != nil {
		return nil, classifyError(err, fmt.Sprintf("list contributors for %s", ref))
	}

	page := &ContributorPage{
		Number:       int(cursor),
		Contributors: make([]*RawContributor, 0, len(contributors)),
		Next:         Cursor(resp.NextPage),
		Rate:         rateFromResponse(resp),
	}
	for _, rc := range contributors {
		page.Contributors = append(page.Contributors, &RawContributor{
			Login:         rc.GetLogin(),
			AvatarURL:     rc.GetAvatarURL(),
			Contributions: rc.GetContributions(),
		})
	}
	return page, nil
}

// GetCommitStats retrieves the line counts of a single commit
func (c *githubClient) GetCommitStats(ctx context.Context, ref domain.RepositoryRef, sha string) (CommitStats, error) {
	if err := c.pacer.Wait(ctx); err != nil {
		return CommitStats{}, err
	}

	detail, _, err := c.client.Repositories.GetCommit(ctx, ref.Owner, ref.Name, sha, nil)
	if err != nil {
		return CommitStats{}, classifyError(err, fmt.Sprintf("commit %s of %s", sha, ref))
	}

	var stats CommitStats
	if detail.Stats != nil {
		stats.Additions = detail.Stats.GetAdditions()
		stats.Deletions = detail.Stats.GetDeletions()
	}
	return stats, nil
}

// rawCommitFrom maps a go-github commit onto the raw model, tolerating the
// partially populated payloads the list endpoint is known to return.
func rawCommitFrom(rc *github.RepositoryCommit) *RawCommit {
	raw := &RawCommit{
		SHA:     rc.GetSHA(),
		Parents: len(rc.Parents),
	}
	if rc.Author != nil {
		raw.Login = rc.Author.GetLogin()
	}
	if commit := rc.Commit; commit != nil {
		raw.Message = commit.GetMessage()
		if author := commit.Author; author != nil {
			raw.AuthorName = author.GetName()
			raw.Timestamp = author.GetDate().Time
		}
	}
	return raw
}

// classifyError maps transport failures onto the application error taxonomy.
func classifyError(err error, op string) error {
	var rateLimitErr *github.RateLimitError
	if errors.As(err, &rateLimitErr) {
		return apperrors.NewRateLimitedError(
			fmt.Sprintf("%s: primary rate limit exhausted", op),
			rateLimitErr.Rate.Reset.Time,
		)
	}

	var abuseErr *github.AbuseRateLimitError
	if errors.As(err, &abuseErr) {
		reset := time.Now().Add(time.Minute)
		if abuseErr.RetryAfter != nil {
			reset = time.Now().Add(*abuseErr.RetryAfter)
		}
		return apperrors.NewRateLimitedError(
			fmt.Sprintf("%s: secondary rate limit hit", op),
			reset,
		)
	}

	var ghErr *github.ErrorResponse
	if errors.As(err, &ghErr) && ghErr.Response != nil {
		switch ghErr.Response.StatusCode {
		case http.StatusUnauthorized:
			return apperrors.NewUnauthorizedError(fmt.Sprintf("%s: credentials were rejected", op))
		case http.StatusForbidden:
			return apperrors.NewUnauthorizedError(fmt.Sprintf("%s: access forbidden", op))
		case http.StatusNotFound:
			return apperrors.NewNotFoundError(op)
		case http.StatusUnprocessableEntity:
			return apperrors.NewInvalidError(fmt.Sprintf("%s: %s", op, ghErr.Message))
		}
		if ghErr.Response.StatusCode >= 500 {
			return apperrors.NewNetworkError(op, err)
		}
		return apperrors.NewInternalError(op, err)
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	// DNS failures, connection resets, client-side timeouts.
	return apperrors.NewNetworkError(op, err)
}
