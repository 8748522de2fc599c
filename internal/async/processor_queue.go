package async

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/joseph-ayodele/docverify/internal/common"
	"github.com/joseph-ayodele/docverify/internal/pipeline"
)

// Processor is the part of pipeline.Processor the queue needs.
type Processor interface {
	Process(ctx context.Context, doc pipeline.Document) (*pipeline.Result, error)
}

var _ Queue = (*ProcessorQueue)(nil)

type ProcessorQueue struct {
	proc    Processor
	logger  *slog.Logger
	workers int
	timeout time.Duration
	sink    func(Outcome)

	ch   chan Job
	wg   sync.WaitGroup
	once sync.Once

	mu      sync.RWMutex
	closed  bool
	pending sync.Map // path -> struct{}
}

type Option func(*ProcessorQueue)

func WithWorkers(n int) Option {
	return func(q *ProcessorQueue) {
		if n > 0 {
			q.workers = n
		}
	}
}

func WithQueueSize(n int) Option {
	return func(q *ProcessorQueue) {
		if n > 0 {
			q.ch = make(chan Job, n)
		}
	}
}

func WithProcessTimeout(d time.Duration) Option {
	return func(q *ProcessorQueue) {
		if d > 0 {
			q.timeout = d
		}
	}
}

// WithSink receives every outcome, from the worker goroutine that produced it.
func WithSink(fn func(Outcome)) Option {
	return func(q *ProcessorQueue) {
		q.sink = fn
	}
}

func NewProcessorQueue(proc Processor, logger *slog.Logger, opts ...Option) *ProcessorQueue {
	if logger == nil {
		logger = slog.Default()
	}
	q := &ProcessorQueue{
		proc:    proc,
		logger:  logger,
		workers: 4,
		timeout: 3 * time.Minute,
		ch:      make(chan Job, 256),
	}
	for _, o := range opts {
		o(q)
	}
	q.start()
	return q
}

func (q *ProcessorQueue) start() {
	q.once.Do(func() {
		for i := 0; i < q.workers; i++ {
			q.wg.Add(1)
			go func(workerID int) {
				defer q.wg.Done()
				q.logger.Debug("worker started", "worker_id", workerID)
				for job := range q.ch {
					q.run(workerID, job)
				}
				q.logger.Debug("worker stopped", "worker_id", workerID)
			}(i + 1)
		}
	})
}

func (q *ProcessorQueue) run(workerID int, job Job) {
	defer q.pending.Delete(job.Document.Path)

	ctx, cancel := common.WithTimeout(context.Background(), q.timeout)
	if job.BatchID != "" {
		ctx = common.WithBatchID(ctx, job.BatchID)
	}
	res, err := q.proc.Process(ctx, job.Document)
	cancel()

	if err != nil {
		q.logger.Error("processing failed", "worker_id", workerID, "job_id", job.ID, "path", job.Document.Path, "error", err)
	} else {
		q.logger.Info("processed document",
			"worker_id", workerID,
			"job_id", job.ID,
			"path", job.Document.Path,
			"decision", res.Decision,
			"wait_ms", time.Since(job.SubmittedAt).Milliseconds(),
		)
	}
	if q.sink != nil {
		q.sink(Outcome{Job: job, Result: res, Err: err})
	}
}

// Enqueue blocks while the buffer is full, until ctx is done. A path that is
// already waiting or running is skipped unless job.Force is set.
func (q *ProcessorQueue) Enqueue(ctx context.Context, job Job) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		q.logger.Warn("cannot enqueue: queue is shutting down", "job_id", job.ID, "path", job.Document.Path)
		return ErrClosed
	}
	if path := job.Document.Path; path != "" {
		if _, dup := q.pending.LoadOrStore(path, struct{}{}); dup && !job.Force {
			q.logger.Debug("document already pending", "path", path)
			return nil
		}
	}
	select {
	case q.ch <- job:
		q.logger.Info("queued document for processing", "job_id", job.ID, "path", job.Document.Path, "force", job.Force)
		return nil
	default:
	}
	q.logger.Warn("queue full, applying backpressure", "job_id", job.ID, "path", job.Document.Path)
	select {
	case q.ch <- job:
		return nil
	case <-ctx.Done():
		q.pending.Delete(job.Document.Path)
		return ctx.Err()
	}
}

// Shutdown stops intake and waits for queued jobs to drain or ctx to end.
func (q *ProcessorQueue) Shutdown(ctx context.Context) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.ch)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() { defer close(done); q.wg.Wait() }()

	select {
	case <-ctx.Done():
		q.logger.Warn("shutdown interrupted by context")
	case <-done:
		q.logger.Info("queue drained, shutdown complete")
	}
}
