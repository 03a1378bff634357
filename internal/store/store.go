// Package store persists run bookkeeping for batch resolutions and
// insight analyses, with SQLite and Postgres backends.
package store

import (
	"context"
	"encoding/json"
	"time"
)

// RunKind names the job a run records.
type RunKind string

const (
	RunKindResolve  RunKind = "resolve"
	RunKindInsights RunKind = "insights"
)

// RunStatus tracks a run's lifecycle.
type RunStatus string

const (
	RunStatusQueued   RunStatus = "queued"
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// Run records one resolution or analysis job.
type Run struct {
	ID        string          `json:"id"`
	Kind      RunKind         `json:"kind"`
	Input     string          `json:"input"` // dataset path or request summary
	Status    RunStatus       `json:"status"`
	Result    json.RawMessage `json:"result,omitempty"`
	Error     string          `json:"error,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Kind   RunKind   `json:"kind,omitempty"`
	Status RunStatus `json:"status,omitempty"`
	Limit  int       `json:"limit,omitempty"`
	Offset int       `json:"offset,omitempty"`
}

// Store defines the run bookkeeping interface.
type Store interface {
	CreateRun(ctx context.Context, kind RunKind, input string) (*Run, error)
	UpdateRunStatus(ctx context.Context, runID string, status RunStatus) error
	CompleteRun(ctx context.Context, runID string, result any) error
	FailRun(ctx context.Context, runID string, message string) error
	GetRun(ctx context.Context, runID string) (*Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]Run, error)

	Migrate(ctx context.Context) error
	Close() error
}
