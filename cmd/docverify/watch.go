package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/docverify/internal/async"
	"github.com/joseph-ayodele/docverify/internal/ingest"
	"github.com/joseph-ayodele/docverify/internal/pipeline"
)

type watchOptions struct {
	initialScan bool
	debounce    time.Duration
	timeout     time.Duration
	queueSize   int
}

type outcomeLine struct {
	JobID  string           `json:"job_id"`
	Path   string           `json:"path"`
	Result *pipeline.Result `json:"result,omitempty"`
	Error  string           `json:"error,omitempty"`
}

func newWatchCmd(root *rootOptions) *cobra.Command {
	opts := &watchOptions{}
	cmd := &cobra.Command{
		Use:   "watch <dir>...",
		Short: "Verify documents as they appear under the given directories",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := setup(ctx, root)
			if err != nil {
				return err
			}

			var wg sync.WaitGroup
			if a.cfg.Templates.Watch {
				wg.Add(1)
				go func() {
					defer wg.Done()
					if err := a.store.Watch(ctx, opts.debounce); err != nil && !errors.Is(err, context.Canceled) {
						a.logger.Error("template watch stopped", "error", err)
					}
				}()
			}

			var outMu sync.Mutex
			enc := json.NewEncoder(cmd.OutOrStdout())
			sink := func(o async.Outcome) {
				line := outcomeLine{JobID: o.Job.ID.String(), Path: o.Job.Document.Path, Result: o.Result}
				if o.Err != nil {
					line.Error = o.Err.Error()
				}
				outMu.Lock()
				defer outMu.Unlock()
				if err := enc.Encode(line); err != nil {
					a.logger.Warn("failed to write outcome", "error", err)
				}
			}

			queue := async.NewProcessorQueue(a.processor, a.logger,
				async.WithWorkers(a.cfg.Workers),
				async.WithQueueSize(opts.queueSize),
				async.WithProcessTimeout(opts.timeout),
				async.WithSink(sink),
			)

			paths, errs, err := ingest.StartWatcher(ctx, ingest.WatchConfig{
				Roots:       args,
				InitialScan: opts.initialScan,
				Debounce:    opts.debounce,
				SkipHidden:  true,
				Logger:      a.logger,
			})
			if err != nil {
				queue.Shutdown(context.Background())
				return err
			}
			a.logger.Info("watching", "roots", args)

			forward(ctx, paths, errs, a.logger, func(path string) {
				job := async.NewJob(pipeline.Document{Path: path, Ext: filepath.Ext(path)})
				if err := queue.Enqueue(ctx, job); err != nil {
					a.logger.Warn("enqueue failed", "path", path, "error", err)
				}
			})

			shutdownCtx, cancel := context.WithTimeout(context.Background(), opts.timeout)
			defer cancel()
			queue.Shutdown(shutdownCtx)
			wg.Wait()
			return nil
		},
	}
	cmd.Flags().BoolVar(&opts.initialScan, "initial-scan", true, "Process files already present when the watch starts")
	cmd.Flags().DurationVar(&opts.debounce, "debounce", 500*time.Millisecond, "Coalesce bursts of file events")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 3*time.Minute, "Per-document processing timeout")
	cmd.Flags().IntVar(&opts.queueSize, "queue-size", 256, "Pending document capacity")
	return cmd
}

// forward hands every watched path to submit until paths closes or ctx is
// done. Watcher errors are logged; a closed error channel is dropped from the
// select.
func forward(ctx context.Context, paths <-chan string, errs <-chan error, logger *slog.Logger, submit func(string)) {
	for {
		select {
		case path, ok := <-paths:
			if !ok {
				return
			}
			submit(path)
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			if err != nil {
				logger.Warn("watcher error", "error", err)
			}
		case <-ctx.Done():
			return
		}
	}
}
