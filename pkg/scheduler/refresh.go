package scheduler

import (
	"context"
	"errors"

	"election_dashboard/pkg/config"
	"election_dashboard/pkg/dashboard"
)

// RefreshTaskID identifies the periodic dataset refresh
const RefreshTaskID = "refresh-datasets"

// Refresher reloads the dashboard data
type Refresher interface {
	Refresh(ctx context.Context) error
}

// NewRefreshTask builds the task reloading every dataset on cfg.Schedule.
// A refresh already running elsewhere counts as success.
func NewRefreshTask(r Refresher, cfg config.RefreshConfig) *Task {
	return &Task{
		ID:         RefreshTaskID,
		Name:       "Refresh election datasets",
		Schedule:   cfg.Schedule,
		MaxRetries: cfg.MaxRetries,
		ExecutionFn: func(ctx context.Context) error {
			err := r.Refresh(ctx)
			if errors.Is(err, dashboard.ErrRefreshInProgress) {
				return nil
			}
			return err
		},
	}
}
