// Package store persists sync-run history. Only run summaries are stored;
// classification results are always recomputed.
package store

import (
	"context"

	"github.com/sells-group/leadfunnel/internal/model"
)

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Status model.SyncStatus `json:"status,omitempty"`
	Limit  int              `json:"limit,omitempty"`
	Offset int              `json:"offset,omitempty"`
}

// Store defines the persistence interface for sync runs.
type Store interface {
	CreateRun(ctx context.Context, teams []string) (*model.SyncRun, error)
	FinishRun(ctx context.Context, runID string, status model.SyncStatus, summary *model.SyncSummary) error
	GetRun(ctx context.Context, runID string) (*model.SyncRun, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.SyncRun, error)

	Migrate(ctx context.Context) error
	Close() error
}

const defaultListLimit = 100
