package pipeline

import (
	"time"

	"github.com/andresuchdata/distroflow/internal/domain"
)

// PipelineConfig holds configuration for a batch job instance
type PipelineConfig struct {
	Name          string
	WorkerCount   int           // Number of concurrent workers
	Prefix        string        // Object key prefix for exports
	RetryAttempts int           // Number of upload attempts
	RetryBackoff  time.Duration // Backoff duration between attempts
}

// DefaultPipelineConfig returns sensible defaults
func DefaultPipelineConfig(name string) PipelineConfig {
	return PipelineConfig{
		Name:          name,
		WorkerCount:   4,
		Prefix:        "snapshots/" + name,
		RetryAttempts: 3,
		RetryBackoff:  2 * time.Second,
	}
}

// PipelineStatus represents the current state of a run
type PipelineStatus string

const (
	StatusPending    PipelineStatus = "pending"
	StatusProcessing PipelineStatus = "processing"
	StatusCompleted  PipelineStatus = "completed"
	StatusFailed     PipelineStatus = "failed"
)

func newRun(id string, startedAt time.Time) *domain.SnapshotRun {
	return &domain.SnapshotRun{
		ID:        id,
		Status:    string(StatusPending),
		StartedAt: startedAt,
	}
}
