// Package jobs defines the asynchronous export job model. Export generation
// is the one operation slow enough to move off the request path; the queue
// abstraction keeps the in-memory implementation swappable.
package jobs

import (
	"context"
	"time"

	"github.com/urbanmart/sales-dashboard/internal/query"
)

// Format selects the export file format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// Valid reports whether the format is one the export worker can produce.
func (f Format) Valid() bool {
	return f == FormatCSV || f == FormatXLSX
}

// JobStatus represents the current status of a job.
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// ExportJob is a request to serialize one filtered view to a file.
type ExportJob struct {
	// JobID is the unique identifier for this job.
	JobID string `json:"job_id"`

	// Format is the requested output format.
	Format Format `json:"format"`

	// Criteria is the filter state the export is evaluated against.
	Criteria query.Criteria `json:"-"`

	// OutputPath is filled by the worker once the file has been written.
	OutputPath string `json:"output_path,omitempty"`

	// RowCount is the number of exported rows, filled on completion.
	RowCount int `json:"row_count"`

	Status      JobStatus  `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// Error contains failure details when Status is failed.
	Error string `json:"error,omitempty"`
}

// Publisher enqueues export jobs.
type Publisher interface {
	// PublishExport publishes an export job for asynchronous processing.
	PublishExport(ctx context.Context, job *ExportJob) error

	// Close closes the publisher and releases resources.
	Close() error
}

// Consumer drains export jobs from a queue.
type Consumer interface {
	// Start begins consuming jobs; handler is called for each job received.
	Start(ctx context.Context, handler JobHandler) error

	// Stop stops consuming and waits for in-flight jobs to complete.
	Stop(ctx context.Context) error
}

// JobHandler processes one export job. A returned error marks the job failed.
type JobHandler func(ctx context.Context, job *ExportJob) error

// JobStore tracks job state so clients can poll export progress.
type JobStore interface {
	SaveJob(ctx context.Context, job *ExportJob) error
	GetJob(ctx context.Context, jobID string) (*ExportJob, error)
	ListJobs(ctx context.Context, filter JobFilter) ([]*ExportJob, error)
}

// JobFilter defines filtering criteria for listing jobs.
type JobFilter struct {
	Status JobStatus
	Limit  int
	Offset int
}
