package analysis

import (
	"time"

	"github.com/1tanmay/repo-analyse/internal/domain"
	apperrors "github.com/1tanmay/repo-analyse/internal/errors"
)

// Status is the lifecycle state of an analysis run.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Request describes one analysis to run.
type Request struct {
	Repository  domain.RepositoryRef
	Range       domain.TimeRange
	Granularity domain.Granularity
}

// Validate rejects requests that could never produce a result.
func (r Request) Validate() error {
	if err := r.Repository.Validate(); err != nil {
		return apperrors.NewInvalidError(err.Error())
	}
	if err := r.Range.Validate(); err != nil {
		return apperrors.NewInvalidError(err.Error())
	}
	return nil
}

// Analysis is a point-in-time snapshot of one run. Once the run reaches a
// terminal status the snapshot no longer changes: repeated reads return the
// same result.
type Analysis struct {
	ID            string                 `json:"id"`
	Repository    domain.RepositoryRef   `json:"repository"`
	Range         domain.TimeRange       `json:"range"`
	Granularity   domain.Granularity     `json:"granularity"`
	Status        Status                 `json:"status"`
	FailureReason string                 `json:"reason,omitempty"`
	Result        *domain.AnalysisResult `json:"result,omitempty"`
	StartedAt     time.Time              `json:"started_at"`
	FinishedAt    time.Time              `json:"finished_at,omitzero"`
}

// Done reports whether the run reached a terminal status.
func (a Analysis) Done() bool {
	return a.Status == StatusCompleted || a.Status == StatusFailed
}
