package api

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/1tanmay/repo-analyse/internal/analysis"
	"github.com/1tanmay/repo-analyse/internal/domain"
	apperrors "github.com/1tanmay/repo-analyse/internal/errors"
)

// Handler handles API requests
type Handler struct {
	service *analysis.Service
}

// NewHandler creates a new API handler
func NewHandler(service *analysis.Service) *Handler {
	return &Handler{
		service: service,
	}
}

// createAnalysisRequest is the body of CreateAnalysis. Dates accept RFC 3339
// timestamps or plain YYYY-MM-DD days.
type createAnalysisRequest struct {
	Owner       string `json:"owner" binding:"required"`
	Repo        string `json:"repo" binding:"required"`
	Since       string `json:"since"`
	Until       string `json:"until"`
	Granularity string `json:"granularity"`
}

// CreateAnalysis starts an analysis run and returns its pending snapshot
// POST /api/v1/analyses
func (h *Handler) CreateAnalysis(c *gin.Context) {
	var body createAnalysisRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, apperrors.NewInvalidError("invalid request body: "+err.Error()))
		return
	}

	granularity, err := domain.ParseGranularity(body.Granularity)
	if err != nil {
		respondError(c, apperrors.NewInvalidError(err.Error()))
		return
	}

	tr, err := parseTimeRange(body.Since, body.Until)
	if err != nil {
		respondError(c, apperrors.NewInvalidError(err.Error()))
		return
	}

	snap, err := h.service.Start(analysis.Request{
		Repository:  domain.RepositoryRef{Owner: body.Owner, Name: body.Repo},
		Range:       tr,
		Granularity: granularity,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"data": snap,
	})
}

// GetAnalysis returns the current snapshot of a run: 202 while it is still
// going, 200 once it finished. Finished snapshots never change, so reading
// the same id again returns the same document.
// GET /api/v1/analyses/:id
func (h *Handler) GetAnalysis(c *gin.Context) {
	id := c.Param("id")
	snap, ok := h.service.Snapshot(id)
	if !ok {
		respondError(c, apperrors.NewNotFoundError("analysis "+id))
		return
	}

	status := http.StatusOK
	if !snap.Done() {
		status = http.StatusAccepted
	}
	c.JSON(status, gin.H{
		"data": snap,
	})
}

// CancelAnalysis aborts a running analysis
// DELETE /api/v1/analyses/:id
func (h *Handler) CancelAnalysis(c *gin.Context) {
	id := c.Param("id")
	snap, ok := h.service.Cancel(id)
	if !ok {
		respondError(c, apperrors.NewNotFoundError("analysis "+id))
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"data": snap,
	})
}

// HealthCheck returns the health status of the API
// GET /health
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
	})
}

// parseTimeRange builds the analysis range from the request dates. A plain
// day as the upper bound extends to the end of that day so both endpoints
// stay inclusive.
func parseTimeRange(since, until string) (domain.TimeRange, error) {
	var tr domain.TimeRange
	if since != "" {
		t, _, err := parseTimeParam(since)
		if err != nil {
			return domain.TimeRange{}, err
		}
		tr.Since = t
	}
	if until != "" {
		t, dateOnly, err := parseTimeParam(until)
		if err != nil {
			return domain.TimeRange{}, err
		}
		if dateOnly {
			t = t.AddDate(0, 0, 1).Add(-time.Second)
		}
		tr.Until = t
	}
	return tr, nil
}

func parseTimeParam(value string) (time.Time, bool, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, false, nil
	}
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("invalid date %q: expected YYYY-MM-DD or RFC 3339", value)
	}
	return t, true, nil
}

// respondError sends an error response
func respondError(c *gin.Context, err error) {
	code := apperrors.CodeOf(err)

	status := http.StatusInternalServerError
	switch code {
	case apperrors.ErrCodeNotFound:
		status = http.StatusNotFound
	case apperrors.ErrCodeUnauthorized:
		status = http.StatusUnauthorized
	case apperrors.ErrCodeInvalid:
		status = http.StatusBadRequest
	case apperrors.ErrCodeRateLimited:
		status = http.StatusTooManyRequests
	}

	message := err.Error()
	var appErr *apperrors.AppError
	if stderrors.As(err, &appErr) {
		message = appErr.Message
	}

	c.JSON(status, gin.H{
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	})
}
