package collector

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/errgroup"

	"github.com/1tanmay/repo-analyse/internal/domain"
	apperrors "github.com/1tanmay/repo-analyse/internal/errors"
)

// Collector drives the fetch phase of an analysis: repository metadata
// first, then the commit and contributor listings to exhaustion, then the
// per-commit line counts. Pagination within a listing is sequential;
// independent resources are fetched concurrently.
type Collector struct {
	client Client
	opts   Options
	logger *slog.Logger

	// stats caches line counts by "owner/name@sha" so repeated analyses of
	// overlapping windows skip the per-commit detail calls.
	stats *lru.Cache[string, CommitStats]
}

// NewCollector creates a new collector on top of the given page client.
func NewCollector(client Client, opts Options, logger *slog.Logger) (*Collector, error) {
	opts = opts.withDefaults()
	cache, err := lru.New[string, CommitStats](opts.StatsCacheSize)
	if err != nil {
		return nil, fmt.Errorf("stats cache: %w", err)
	}
	return &Collector{
		client: client,
		opts:   opts,
		logger: logger,
		stats:  cache,
	}, nil
}

// Collect fetches everything needed to analyze ref within tr. The returned
// data preserves API page order; nothing is deduplicated or filtered here.
func (c *Collector) Collect(ctx context.Context, ref domain.RepositoryRef, tr domain.TimeRange) (*RawData, error) {
	started := time.Now()

	// Repository metadata first: a missing repo or rejected credential
	// fails the run before any listing work starts.
	var repo *RawRepository
	err := c.callWithRetry(ctx, "repository", func(ctx context.Context) error {
		var err error
		repo, err = c.client.GetRepository(ctx, ref)
		return err
	})
	if err != nil {
		return nil, err
	}
	c.logger.Info("repository resolved", "repo", repo.FullName, "default_branch", repo.DefaultBranch)

	var (
		commitPages      []*CommitPage
		contributorPages []*ContributorPage
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		pages, err := c.fetchCommitPages(gctx, ref, tr)
		if err != nil {
			return err
		}
		commitPages = pages
		return nil
	})
	g.Go(func() error {
		pages, err := c.fetchContributorPages(gctx, ref)
		if err != nil {
			return err
		}
		contributorPages = pages
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	stats, err := c.fetchStats(ctx, ref, commitPages)
	if err != nil {
		return nil, err
	}

	data := &RawData{
		Repository:       repo,
		CommitPages:      commitPages,
		ContributorPages: contributorPages,
		Stats:            stats,
	}
	c.logger.Info("collection finished",
		"repo", repo.FullName,
		"commit_pages", len(commitPages),
		"commits", len(data.Commits()),
		"contributors", len(data.Contributors()),
		"elapsed", time.Since(started).Round(time.Millisecond),
	)
	return data, nil
}

func (c *Collector) fetchCommitPages(ctx context.Context, ref domain.RepositoryRef, tr domain.TimeRange) ([]*CommitPage, error) {
	var pages []*CommitPage
	cursor := CursorStart
	for !cursor.Done() {
		var page *CommitPage
		err := c.callWithRetry(ctx, "commits", func(ctx context.Context) error {
			var err error
			page, err = c.client.GetCommits(ctx, ref, tr, cursor)
			return err
		})
		if err != nil {
			return nil, err
		}
		pages = append(pages, page)
		c.logger.Debug("fetched commit page",
			"page", page.Number, "commits", len(page.Commits), "remaining", page.Rate.Remaining)

		cursor = page.Next
		if !cursor.Done() {
			if err := c.waitForQuota(ctx, page.Rate); err != nil {
				return nil, err
			}
		}
	}
	return pages, nil
}

func (c *Collector) fetchContributorPages(ctx context.Context, ref domain.RepositoryRef) ([]*ContributorPage, error) {
	var pages []*ContributorPage
	cursor := CursorStart
	for !cursor.Done() {
		var page *ContributorPage
		err := c.callWithRetry(ctx, "contributors", func(ctx context.Context) error {
			var err error
			page, err = c.client.GetContributors(ctx, ref, cursor)
			return err
		})
		if err != nil {
			return nil, err
		}
		pages = append(pages, page)
		c.logger.Debug("fetched contributor page",
			"page", page.Number, "contributors", len(page.Contributors), "remaining", page.Rate.Remaining)

		cursor = page.Next
		if !cursor.Done() {
			if err := c.waitForQuota(ctx, page.Rate); err != nil {
				return nil, err
			}
		}
	}
	return pages, nil
}

// fetchStats resolves line counts for every unique sha through a bounded
// worker pool. A commit whose detail call keeps failing is counted with
// zero churn instead of failing the run; quota timeouts and cancellation
// still abort.
func (c *Collector) fetchStats(ctx context.Context, ref domain.RepositoryRef, pages []*CommitPage) (map[string]CommitStats, error) {
	shas := uniqueShas(pages)
	out := make(map[string]CommitStats, len(shas))
	if len(shas) == 0 {
		return out, nil
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.opts.StatsWorkers)

	for _, sha := range shas {
		sha := sha
		g.Go(func() error {
			key := ref.String() + "@" + sha
			if cached, ok := c.stats.Get(key); ok {
				mu.Lock()
				out[sha] = cached
				mu.Unlock()
				return nil
			}

			var stats CommitStats
			err := c.callWithRetry(gctx, "commit stats", func(ctx context.Context) error {
				var err error
				stats, err = c.client.GetCommitStats(ctx, ref, sha)
				return err
			})
			if err != nil {
				if apperrors.IsCancelled(err) || apperrors.IsRateLimited(err) {
					return err
				}
				c.logger.Warn("commit stats unavailable, counting zero churn", "sha", sha, "error", err)
				return nil
			}

			c.stats.Add(key, stats)
			mu.Lock()
			out[sha] = stats
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// callWithRetry invokes fn, retrying transient failures with exponential
// backoff and absorbing rate limits by pausing until their reset. Rate
// limit pauses do not consume the retry budget.
func (c *Collector) callWithRetry(ctx context.Context, op string, fn func(context.Context) error) error {
	attempt := 0
	for {
		err := fn(ctx)
		if err == nil {
			return nil
		}

		if apperrors.IsRateLimited(err) {
			if werr := c.pauseForReset(ctx, err); werr != nil {
				return werr
			}
			continue
		}

		if !apperrors.IsTransient(err) || attempt >= c.opts.MaxRetries {
			return err
		}

		attempt++
		backoff := c.opts.BackoffBase << (attempt - 1)
		if backoff > c.opts.BackoffMax {
			backoff = c.opts.BackoffMax
		}
		c.logger.Warn("transient error, retrying",
			"op", op, "attempt", attempt, "backoff", backoff, "error", err)
		if err := sleepCtx(ctx, backoff); err != nil {
			return err
		}
	}
}

// pauseForReset sleeps until the reset time carried by a rate-limit error.
// Waits beyond the configured maximum escalate instead of blocking the run
// indefinitely.
func (c *Collector) pauseForReset(ctx context.Context, err error) error {
	resetAt, ok := apperrors.ResetTime(err)
	if !ok {
		return err
	}
	wait := time.Until(resetAt)
	if wait > c.opts.RateLimitMaxWait {
		return apperrors.NewRateLimitedError(
			fmt.Sprintf("quota reset in %s exceeds the maximum wait of %s",
				wait.Round(time.Second), c.opts.RateLimitMaxWait),
			resetAt,
		)
	}
	if wait <= 0 {
		// Reset already passed; reissue immediately.
		return ctx.Err()
	}
	c.logger.Warn("rate limited, pausing until reset", "wait", wait.Round(time.Second))
	return sleepCtx(ctx, wait)
}

// waitForQuota pauses between pages when the last response reported an
// exhausted quota, so the next page request is not burned on a 403.
func (c *Collector) waitForQuota(ctx context.Context, rl RateLimit) error {
	if !rl.Exhausted() {
		return nil
	}
	wait := time.Until(rl.Reset)
	if wait <= 0 {
		return nil
	}
	if wait > c.opts.RateLimitMaxWait {
		return apperrors.NewRateLimitedError(
			fmt.Sprintf("quota reset in %s exceeds the maximum wait of %s",
				wait.Round(time.Second), c.opts.RateLimitMaxWait),
			rl.Reset,
		)
	}
	c.logger.Warn("quota exhausted, pausing until reset", "wait", wait.Round(time.Second))
	return sleepCtx(ctx, wait)
}

func uniqueShas(pages []*CommitPage) []string {
	seen := make(map[string]struct{})
	var shas []string
	for _, page := range pages {
		for _, commit := range page.Commits {
			if commit.SHA == "" {
				continue
			}
			if _, ok := seen[commit.SHA]; ok {
				continue
			}
			seen[commit.SHA] = struct{}{}
			shas = append(shas, commit.SHA)
		}
	}
	return shas
}
