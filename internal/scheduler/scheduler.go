// Package scheduler fans chunk generation out over a bounded worker
// pool and reassembles the results in document order.
package scheduler

import (
	"context"
	"log/slog"
	"runtime"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/marbleworks/ankigen/internal/chunker"
	"github.com/marbleworks/ankigen/internal/flashcard"
	"github.com/marbleworks/ankigen/internal/generate"
)

// Progress reports one finished chunk. Done counts completions across
// all workers, so callers can render "done/total" as chunks land.
type Progress struct {
	Index int
	Done  int
	Total int
	Cards int
	Err   error
}

// Config tunes the fan-out.
type Config struct {
	// Workers caps concurrent generation calls. Zero means
	// min(NumCPU, 8).
	Workers int

	// MaxRetries is extra attempts per chunk on transient errors.
	// Negative disables retries; zero means the package default.
	MaxRetries int

	// OnProgress, when set, is called once per finished chunk. It may
	// be called from multiple goroutines.
	OnProgress func(Progress)
}

func (c Config) withDefaults() Config {
	if c.Workers <= 0 {
		c.Workers = min(runtime.NumCPU(), 8)
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = MaxRetries
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	return c
}

// Scheduler runs a Generator across many chunks. A chunk that keeps
// failing is isolated: it yields an empty result and the rest of the
// batch proceeds. Credential errors are the exception and abort the
// whole batch, since every remaining call would fail the same way.
type Scheduler struct {
	gen generate.Generator
	log *slog.Logger
	cfg Config
}

func New(gen generate.Generator, log *slog.Logger, cfg Config) *Scheduler {
	return &Scheduler{gen: gen, log: log, cfg: cfg.withDefaults()}
}

// Run generates cards for every chunk. The returned slice always has
// one entry per chunk, ordered by chunk index, regardless of worker
// count or completion order. A non-nil error means the batch was
// aborted (credential failure or cancellation) and the results are
// incomplete.
func (s *Scheduler) Run(ctx context.Context, chunks []chunker.Chunk, req generate.Request) ([]flashcard.ChunkResult, error) {
	results := make([]flashcard.ChunkResult, len(chunks))
	if len(chunks) == 0 {
		return results, nil
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Workers)

	var done atomic.Int64
	for i, chunk := range chunks {
		g.Go(func() error {
			// Once the batch is aborted, queued chunks must not start.
			if err := ctx.Err(); err != nil {
				return err
			}
			records, err := s.generateChunk(ctx, chunk, req)
			if err != nil {
				if generate.IsCredential(err) || ctx.Err() != nil {
					return err
				}
				s.log.Error("chunk generation failed", "chunk", chunk.Index, "error", err)
				results[i] = flashcard.ChunkResult{Index: chunk.Index, Err: err}
			} else {
				results[i] = flashcard.ChunkResult{Index: chunk.Index, Records: records}
			}
			s.report(Progress{
				Index: chunk.Index,
				Done:  int(done.Add(1)),
				Total: len(chunks),
				Cards: len(records),
				Err:   err,
			})
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (s *Scheduler) generateChunk(ctx context.Context, chunk chunker.Chunk, req generate.Request) ([]flashcard.Record, error) {
	req.Text = chunk.Text

	var records []flashcard.Record
	var lastErr error
	for attempt := 0; attempt <= s.cfg.MaxRetries; attempt++ {
		records, lastErr = s.gen.Generate(ctx, req)
		if lastErr == nil || !IsRetryable(lastErr) {
			break
		}
		s.log.Warn("retryable generation error", "chunk", chunk.Index, "attempt", attempt, "error", lastErr)
		select {
		case <-time.After(Backoff(attempt)):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return records, lastErr
}

func (s *Scheduler) report(p Progress) {
	if s.cfg.OnProgress != nil {
		s.cfg.OnProgress(p)
	}
}

// Collect flattens ordered chunk results into one record list,
// skipping failed chunks.
func Collect(results []flashcard.ChunkResult) []flashcard.Record {
	var records []flashcard.Record
	for _, r := range results {
		records = append(records, r.Records...)
	}
	return records
}
