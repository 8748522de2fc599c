// Package async runs pipeline documents on a bounded pool of workers.
package async

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/docverify/internal/pipeline"
)

// Job is one document submitted to the queue.
type Job struct {
	ID          uuid.UUID
	Document    pipeline.Document
	Force       bool // enqueue even if the same path is already pending
	SubmittedAt time.Time
	BatchID     string
}

// NewJob stamps a document with a fresh job id and submission time.
func NewJob(doc pipeline.Document) Job {
	return Job{ID: uuid.New(), Document: doc, SubmittedAt: time.Now()}
}

// Outcome is what a worker produced for a job.
type Outcome struct {
	Job    Job
	Result *pipeline.Result
	Err    error
}

type Queue interface {
	Enqueue(ctx context.Context, job Job) error
	Shutdown(ctx context.Context)
}

// ErrClosed is returned by Enqueue after Shutdown has started.
var ErrClosed = errors.New("queue is shutting down")
