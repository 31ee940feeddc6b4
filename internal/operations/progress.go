package operations

import (
	"fmt"
	"sync"
	"time"
)

// RunStatus is the lifecycle state of a pipeline run
type RunStatus string

const (
	RunStatusPending   RunStatus = "pending"
	RunStatusRunning   RunStatus = "running"
	RunStatusSucceeded RunStatus = "succeeded"
	RunStatusFailed    RunStatus = "failed"
)

// ProgressSnapshot is a point-in-time copy of a ProgressTracker
type ProgressSnapshot struct {
	JobName          string    `json:"job_name"`
	Status           RunStatus `json:"status"`
	PartitionsTotal  int       `json:"partitions_total"`
	PartitionsDone   int       `json:"partitions_done"`
	CurrentPartition string    `json:"current_partition,omitempty"`
	RecordsWritten   int64     `json:"records_written"`
	Percentage       float64   `json:"percentage"`
	StartTime        time.Time `json:"start_time"`
	Elapsed          string    `json:"elapsed"`
	ETA              string    `json:"eta"`
	Error            string    `json:"error,omitempty"`
}

// ProgressTracker tracks progress of one pipeline run. It is safe for
// concurrent use; the ops HTTP handler reads it while the pipeline writes.
type ProgressTracker struct {
	mu sync.Mutex

	jobName   string
	status    RunStatus
	total     int
	done      int
	current   string
	records   int64
	startTime time.Time
	err       string
}

// NewProgressTracker creates a pending tracker for jobName
func NewProgressTracker(jobName string) *ProgressTracker {
	return &ProgressTracker{
		jobName:   jobName,
		status:    RunStatusPending,
		startTime: time.Now(),
	}
}

// Start marks the run as running
func (p *ProgressTracker) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.status = RunStatusRunning
	p.startTime = time.Now()
}

// SetTotal records the number of discovered partitions
func (p *ProgressTracker) SetTotal(total int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.total = total
}

// StartPartition records the partition currently being written
func (p *ProgressTracker) StartPartition(path string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.current = path
}

// AddRecords adds n written records
func (p *ProgressTracker) AddRecords(n int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.records += n
}

// FinishPartition counts the current partition as done
func (p *ProgressTracker) FinishPartition() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.done++
	p.current = ""
}

// Finish marks the run as succeeded, or failed when err is not nil
func (p *ProgressTracker) Finish(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err != nil {
		p.status = RunStatusFailed
		p.err = err.Error()
		return
	}
	p.status = RunStatusSucceeded
	p.current = ""
}

// Snapshot returns the current progress state
func (p *ProgressTracker) Snapshot() ProgressSnapshot {
	p.mu.Lock()
	defer p.mu.Unlock()

	percentage := 0.0
	if p.total > 0 {
		percentage = float64(p.done) / float64(p.total) * 100
	} else if p.status == RunStatusSucceeded {
		percentage = 100
	}

	return ProgressSnapshot{
		JobName:          p.jobName,
		Status:           p.status,
		PartitionsTotal:  p.total,
		PartitionsDone:   p.done,
		CurrentPartition: p.current,
		RecordsWritten:   p.records,
		Percentage:       percentage,
		StartTime:        p.startTime,
		Elapsed:          formatDuration(time.Since(p.startTime)),
		ETA:              p.eta(),
		Error:            p.err,
	}
}

// IsComplete reports whether the run has finished, successfully or not
func (p *ProgressTracker) IsComplete() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status == RunStatusSucceeded || p.status == RunStatusFailed
}

// eta estimates the remaining time from the partition rate. Caller holds mu.
func (p *ProgressTracker) eta() string {
	if p.status != RunStatusRunning {
		return ""
	}
	if p.done == 0 || p.total == 0 {
		return "calculating..."
	}

	rate := float64(p.done) / time.Since(p.startTime).Seconds()
	if rate == 0 {
		return "calculating..."
	}

	remaining := time.Duration(float64(p.total-p.done) / rate * float64(time.Second))
	return formatDuration(remaining)
}

func formatDuration(d time.Duration) string {
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%.0f seconds", d.Seconds())
	case d < time.Hour:
		return fmt.Sprintf("%.1f minutes", d.Minutes())
	default:
		return fmt.Sprintf("%.1f hours", d.Hours())
	}
}
