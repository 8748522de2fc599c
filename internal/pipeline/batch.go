package pipeline

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/joseph-ayodele/docverify/constants"
	"github.com/joseph-ayodele/docverify/internal/common"
)

// BatchItem pairs a document with its result or its fatal error.
type BatchItem struct {
	Document Document
	Result   *Result
	Err      error
}

// ProcessBatch runs documents in parallel, at most Workers at a time, and
// returns items in input order. A fatal error on one document does not stop
// the others; the returned error is only ever ctx's. Documents not started
// before ctx ends carry ctx's error.
func (p *Processor) ProcessBatch(ctx context.Context, docs []Document) ([]BatchItem, error) {
	items := make([]BatchItem, len(docs))
	workers := p.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	var g errgroup.Group
	g.SetLimit(workers)
	for i, doc := range docs {
		items[i].Document = doc
		if ctx.Err() != nil {
			items[i].Err = ctx.Err()
			continue
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				items[i].Err = err
				return err
			}
			res, err := p.Process(ctx, doc)
			items[i].Result, items[i].Err = res, err
			return nil
		})
	}
	waitErr := g.Wait()

	s := Summarize(items)
	p.Logger.Info("pipeline.batch.done",
		"batch_id", common.BatchIDFromContext(ctx),
		"documents", s.Total,
		"accepted", s.Accepted,
		"rejected", s.Rejected(),
		"failed", s.Failed,
	)
	if waitErr != nil {
		return items, waitErr
	}
	return items, ctx.Err()
}

// BatchSummary counts outcomes across a batch.
type BatchSummary struct {
	Total     int                        `json:"total"`
	Accepted  int                        `json:"accepted"`
	Failed    int                        `json:"failed"`
	Decisions map[constants.Decision]int `json:"decisions"`
	Errors    map[string]int             `json:"errors,omitempty"` // by error code
}

func (s BatchSummary) Rejected() int {
	n := 0
	for d, c := range s.Decisions {
		if d.Rejected() {
			n += c
		}
	}
	return n
}

func Summarize(items []BatchItem) BatchSummary {
	s := BatchSummary{Total: len(items), Decisions: map[constants.Decision]int{}, Errors: map[string]int{}}
	for _, it := range items {
		switch {
		case it.Err != nil:
			s.Failed++
			s.Errors[common.ErrorCode(it.Err)]++
		case it.Result != nil:
			s.Decisions[it.Result.Decision]++
			if it.Result.Decision.Accepted() {
				s.Accepted++
			}
		}
	}
	return s
}
