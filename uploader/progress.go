package uploader

import (
	"math"
	"sync"
	"time"
)

// BatchProgress is a read-only snapshot recomputed after every task-status
// transition. Callbacks receive it by value and must not expect later
// mutation.
type BatchProgress struct {
	TotalFiles                int
	CompletedFiles            int
	FailedFiles               int
	CancelledFiles            int
	OverallProgressPercent    int
	ThroughputFilesPerSecond  *float64
	EstimatedSecondsRemaining *float64
	CanCancel                 bool
	StartedAt                 time.Time
}

// ProgressAggregator serializes counter updates from concurrently running
// tasks behind a single mutex. Progress percent counts successes only, so it
// is monotonically non-decreasing for the life of the batch.
type ProgressAggregator struct {
	mu        sync.Mutex
	total     int
	completed int
	failed    int
	cancelled int
	startedAt time.Time

	now func() time.Time
}

func NewProgressAggregator(total int) *ProgressAggregator {
	return &ProgressAggregator{
		total:     total,
		startedAt: time.Now(),
		now:       time.Now,
	}
}

func (a *ProgressAggregator) TaskSucceeded() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.completed++
}

func (a *ProgressAggregator) TaskFailed() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.failed++
}

func (a *ProgressAggregator) TaskCancelled() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.cancelled++
}

func (a *ProgressAggregator) Snapshot() BatchProgress {
	a.mu.Lock()
	defer a.mu.Unlock()

	snapshot := BatchProgress{
		TotalFiles:     a.total,
		CompletedFiles: a.completed,
		FailedFiles:    a.failed,
		CancelledFiles: a.cancelled,
		CanCancel:      a.completed+a.failed+a.cancelled < a.total,
		StartedAt:      a.startedAt,
	}

	if a.total > 0 {
		snapshot.OverallProgressPercent = int(math.Round(float64(a.completed) / float64(a.total) * 100))
	}

	elapsed := a.now().Sub(a.startedAt).Seconds()
	if elapsed > 0 && a.completed > 0 {
		throughput := float64(a.completed) / elapsed
		snapshot.ThroughputFilesPerSecond = &throughput

		eta := float64(a.total-a.completed) / throughput
		snapshot.EstimatedSecondsRemaining = &eta
	}

	return snapshot
}
