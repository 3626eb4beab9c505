// Package storage defines the persistence interface for submission history and publish runs.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/hyperjump/quizcast/internal/models"
)

// ErrNotFound is returned when a run does not exist.
var ErrNotFound = errors.New("not found")

// Storage defines submission and run persistence operations.
type Storage interface {
	// Submission gate state
	RecordSubmission(ctx context.Context, requester string, at time.Time) error
	LastSubmission(ctx context.Context, requester string) (time.Time, bool, error)

	// Run operations
	CreateRun(ctx context.Context, run *models.Run) error
	UpdateRun(ctx context.Context, run *models.Run) error
	GetRun(ctx context.Context, id string) (*models.Run, error)
	ListRuns(ctx context.Context, offset, limit int) ([]*models.Run, error)

	// Stats
	CountRuns(ctx context.Context) (int64, error)

	Close() error
}
