// Package runner drives one benchmark round: a fixed set of invocations
// executed by a bounded worker pool at a configured submission rate.
package runner

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/signalnine/ledgermark/internal/invoke"
	"github.com/signalnine/ledgermark/internal/result"
	"github.com/signalnine/ledgermark/internal/workload"
)

// Invoker runs one invocation to completion. Satisfied by *invoke.Engine.
type Invoker interface {
	Invoke(ctx context.Context, d invoke.Descriptor) invoke.Outcome
}

type RoundOpts struct {
	Round      int
	Workers    int
	RatePerSec float64 // <= 0 means unpaced
}

// ExecuteRound submits every descriptor and returns one record per
// invocation, in descriptor order. Workers share only the engine, which is
// read-only; each invocation runs its own confirmation loop, so a failure in
// one never aborts the rest.
func ExecuteRound(ctx context.Context, engine Invoker, descriptors []invoke.Descriptor, opts RoundOpts) []*result.Record {
	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}

	limit := rate.Inf
	if opts.RatePerSec > 0 {
		limit = rate.Limit(opts.RatePerSec)
	}
	limiter := rate.NewLimiter(limit, 1)

	type job struct {
		idx  int
		desc invoke.Descriptor
	}
	jobs := make(chan job)
	records := make([]*result.Record, len(descriptors))

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for j := range jobs {
				if err := limiter.Wait(ctx); err != nil {
					records[j.idx] = canceledRecord(opts.Round, worker, j.desc, err)
					continue
				}
				desc := workload.BindWorker(j.desc, worker)
				submitted := time.Now().UTC()
				out := engine.Invoke(ctx, desc)
				records[j.idx] = newRecord(opts.Round, worker, desc, submitted, out)
			}
		}(w)
	}

	for i, d := range descriptors {
		jobs <- job{idx: i, desc: d}
	}
	close(jobs)
	wg.Wait()
	return records
}

func newRecord(round, worker int, d invoke.Descriptor, submitted time.Time, out invoke.Outcome) *result.Record {
	rec := &result.Record{
		Round:       round,
		Worker:      worker,
		Contract:    d.Contract,
		Method:      d.Method,
		ReadOnly:    d.ReadOnly,
		Succeeded:   out.Succeeded,
		Verified:    out.Verified,
		Polls:       out.Polls,
		DurationMS:  out.Duration.Milliseconds(),
		SubmittedAt: submitted,
	}
	if out.Err != nil {
		rec.Error = out.Err.Error()
	}
	return rec
}

func canceledRecord(round, worker int, d invoke.Descriptor, err error) *result.Record {
	return &result.Record{
		Round:       round,
		Worker:      worker,
		Contract:    d.Contract,
		Method:      d.Method,
		ReadOnly:    d.ReadOnly,
		Error:       err.Error(),
		SubmittedAt: time.Now().UTC(),
	}
}
