package client

import (
	"context"
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/1tanmay/repo-analyse/internal/analysis"
	"github.com/1tanmay/repo-analyse/internal/api"
	"github.com/1tanmay/repo-analyse/internal/collector"
	"github.com/1tanmay/repo-analyse/internal/domain"
)

type fakeRunner struct {
	collect func(ctx context.Context, ref domain.RepositoryRef, tr domain.TimeRange) (*collector.RawData, error)
}

func (f *fakeRunner) Collect(ctx context.Context, ref domain.RepositoryRef, tr domain.TimeRange) (*collector.RawData, error) {
	return f.collect(ctx, ref, tr)
}

func newTestServer(t *testing.T, runner analysis.Runner) *Client {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := analysis.NewService(runner, logger)
	t.Cleanup(svc.Close)

	srv := httptest.NewServer(api.SetupRoutes(api.NewHandler(svc), logger))
	t.Cleanup(srv.Close)
	return NewClient(srv.URL)
}

func healthyRunner() *fakeRunner {
	ts := time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)
	return &fakeRunner{
		collect: func(ctx context.Context, ref domain.RepositoryRef, tr domain.TimeRange) (*collector.RawData, error) {
			return &collector.RawData{
				Repository: &collector.RawRepository{FullName: ref.String()},
				CommitPages: []*collector.CommitPage{{
					Number: 1,
					Commits: []*collector.RawCommit{
						{SHA: "c1", Login: "alice", Timestamp: ts, Parents: 1},
					},
				}},
				Stats: map[string]collector.CommitStats{
					"c1": {Additions: 3, Deletions: 1},
				},
			}, nil
		},
	}
}

func TestCreateAndWaitForResult(t *testing.T) {
	c := newTestServer(t, healthyRunner())
	ctx := context.Background()

	snap, err := c.CreateAnalysis(ctx, AnalysisRequest{Owner: "octo", Repo: "widgets"})
	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.Equal(t, analysis.StatusPending, snap.Status)

	result, err := c.WaitForResult(ctx, snap.ID, 10*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, snap.ID, result.ID)
	assert.Equal(t, "octo/widgets", result.Repository.FullName)
	assert.Equal(t, int64(1), result.TotalCommits)
	assert.Equal(t, int64(4), result.TotalChurn)
}

func TestWaitForResultReportsFailure(t *testing.T) {
	runner := &fakeRunner{
		collect: func(ctx context.Context, ref domain.RepositoryRef, tr domain.TimeRange) (*collector.RawData, error) {
			return nil, context.DeadlineExceeded
		},
	}
	c := newTestServer(t, runner)
	ctx := context.Background()

	snap, err := c.CreateAnalysis(ctx, AnalysisRequest{Owner: "octo", Repo: "widgets"})
	require.NoError(t, err)

	_, err = c.WaitForResult(ctx, snap.ID, 10*time.Millisecond)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cancelled")
}

func TestCancelAnalysis(t *testing.T) {
	runner := &fakeRunner{
		collect: func(ctx context.Context, ref domain.RepositoryRef, tr domain.TimeRange) (*collector.RawData, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		},
	}
	c := newTestServer(t, runner)
	ctx := context.Background()

	snap, err := c.CreateAnalysis(ctx, AnalysisRequest{Owner: "octo", Repo: "widgets"})
	require.NoError(t, err)

	_, err = c.CancelAnalysis(ctx, snap.ID)
	require.NoError(t, err)

	_, err = c.WaitForResult(ctx, snap.ID, 10*time.Millisecond)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cancelled")
}

func TestGetAnalysisUnknownID(t *testing.T) {
	c := newTestServer(t, healthyRunner())

	_, err := c.GetAnalysis(context.Background(), "no-such-id")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}

func TestCreateAnalysisRejectsBadRequest(t *testing.T) {
	c := newTestServer(t, healthyRunner())

	_, err := c.CreateAnalysis(context.Background(), AnalysisRequest{Owner: "octo"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "400")
}

func TestWaitForResultHonoursContext(t *testing.T) {
	runner := &fakeRunner{
		collect: func(ctx context.Context, ref domain.RepositoryRef, tr domain.TimeRange) (*collector.RawData, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		},
	}
	c := newTestServer(t, runner)

	snap, err := c.CreateAnalysis(context.Background(), AnalysisRequest{Owner: "octo", Repo: "widgets"})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	_, err = c.WaitForResult(ctx, snap.ID, 10*time.Millisecond)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestHealthCheck(t *testing.T) {
	c := newTestServer(t, healthyRunner())

	assert.NoError(t, c.HealthCheck(context.Background()))
}
