package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/1tanmay/repo-analyse/internal/analysis"
	"github.com/1tanmay/repo-analyse/internal/domain"
)

// Client is the API client for repo-analyse
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new API client
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// AnalysisRequest describes the analysis to start. Dates accept RFC 3339
// timestamps or plain YYYY-MM-DD days.
type AnalysisRequest struct {
	Owner       string `json:"owner"`
	Repo        string `json:"repo"`
	Since       string `json:"since,omitempty"`
	Until       string `json:"until,omitempty"`
	Granularity string `json:"granularity,omitempty"`
}

// CreateAnalysis starts an analysis run and returns its pending snapshot
func (c *Client) CreateAnalysis(ctx context.Context, req AnalysisRequest) (*analysis.Analysis, error) {
	var response struct {
		Data *analysis.Analysis `json:"data"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/v1/analyses", req, &response); err != nil {
		return nil, err
	}
	return response.Data, nil
}

// GetAnalysis retrieves the current snapshot of a run
func (c *Client) GetAnalysis(ctx context.Context, id string) (*analysis.Analysis, error) {
	var response struct {
		Data *analysis.Analysis `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/analyses/"+id, nil, &response); err != nil {
		return nil, err
	}
	return response.Data, nil
}

// CancelAnalysis aborts a running analysis
func (c *Client) CancelAnalysis(ctx context.Context, id string) (*analysis.Analysis, error) {
	var response struct {
		Data *analysis.Analysis `json:"data"`
	}
	if err := c.do(ctx, http.MethodDelete, "/api/v1/analyses/"+id, nil, &response); err != nil {
		return nil, err
	}
	return response.Data, nil
}

// WaitForResult polls a run until it reaches a terminal status and returns
// its result. A failed run comes back as an error naming the failure reason.
func (c *Client) WaitForResult(ctx context.Context, id string, interval time.Duration) (*domain.AnalysisResult, error) {
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		snap, err := c.GetAnalysis(ctx, id)
		if err != nil {
			return nil, err
		}
		switch snap.Status {
		case analysis.StatusCompleted:
			return snap.Result, nil
		case analysis.StatusFailed:
			return nil, fmt.Errorf("analysis %s failed: %s", id, snap.FailureReason)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// HealthCheck checks if the API is healthy
func (c *Client) HealthCheck(ctx context.Context) error {
	var response struct {
		Status string `json:"status"`
	}
	if err := c.do(ctx, http.MethodGet, "/health", nil, &response); err != nil {
		return err
	}
	if response.Status != "ok" {
		return fmt.Errorf("unhealthy status: %s", response.Status)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body, result interface{}) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		raw, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("API error: %s - %s", resp.Status, string(raw))
	}

	return json.NewDecoder(resp.Body).Decode(result)
}
