package scheduler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/marbleworks/ankigen/internal/chunker"
	"github.com/marbleworks/ankigen/internal/flashcard"
	"github.com/marbleworks/ankigen/internal/generate"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func makeChunks(n int) []chunker.Chunk {
	chunks := make([]chunker.Chunk, n)
	for i := range chunks {
		chunks[i] = chunker.Chunk{Index: i, Text: fmt.Sprintf("chunk-%d", i), Total: n}
	}
	return chunks
}

// echoGenerator returns one record per chunk naming the chunk text, so
// tests can verify ordering survives concurrent completion.
func echoGenerator() generate.Generator {
	return generate.Func(func(_ context.Context, req generate.Request) ([]flashcard.Record, error) {
		return []flashcard.Record{{Question: req.Text, Answer: "a"}}, nil
	})
}

func TestRun_OrderIndependentOfWorkerCount(t *testing.T) {
	chunks := makeChunks(12)
	for _, workers := range []int{1, 2, 4, 16} {
		s := New(echoGenerator(), discardLogger(), Config{Workers: workers, MaxRetries: -1})
		results, err := s.Run(context.Background(), chunks, generate.Request{Language: "English", Count: 5})
		if err != nil {
			t.Fatalf("workers=%d: Run: %v", workers, err)
		}
		if len(results) != len(chunks) {
			t.Fatalf("workers=%d: got %d results, want %d", workers, len(results), len(chunks))
		}
		for i, r := range results {
			if r.Index != i {
				t.Errorf("workers=%d: results[%d].Index = %d", workers, i, r.Index)
			}
			if want := fmt.Sprintf("chunk-%d", i); len(r.Records) != 1 || r.Records[0].Question != want {
				t.Errorf("workers=%d: results[%d] = %+v, want question %q", workers, i, r.Records, want)
			}
		}
	}
}

func TestRun_FailedChunkIsIsolated(t *testing.T) {
	chunks := makeChunks(5)
	gen := generate.Func(func(_ context.Context, req generate.Request) ([]flashcard.Record, error) {
		if req.Text == "chunk-2" {
			return nil, errors.New("model hiccup")
		}
		return []flashcard.Record{{Question: req.Text, Answer: "a"}}, nil
	})

	s := New(gen, discardLogger(), Config{Workers: 3, MaxRetries: -1})
	results, err := s.Run(context.Background(), chunks, generate.Request{Language: "English"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if results[2].Err == nil || len(results[2].Records) != 0 {
		t.Errorf("failed chunk: %+v, want empty records and non-nil error", results[2])
	}
	for _, i := range []int{0, 1, 3, 4} {
		if results[i].Err != nil || len(results[i].Records) != 1 {
			t.Errorf("healthy chunk %d: %+v", i, results[i])
		}
	}

	records := Collect(results)
	if len(records) != 4 {
		t.Errorf("Collect returned %d records, want 4", len(records))
	}
	for _, r := range records {
		if r.Question == "chunk-2" {
			t.Error("failed chunk leaked into collected records")
		}
	}
}

func TestRun_CredentialErrorAbortsBatch(t *testing.T) {
	var calls atomic.Int64
	gen := generate.Func(func(_ context.Context, _ generate.Request) ([]flashcard.Record, error) {
		calls.Add(1)
		return nil, generate.ErrCredential
	})

	s := New(gen, discardLogger(), Config{Workers: 2, MaxRetries: -1})
	_, err := s.Run(context.Background(), makeChunks(20), generate.Request{Language: "English"})
	if !errors.Is(err, generate.ErrCredential) {
		t.Fatalf("err = %v, want ErrCredential", err)
	}
	// The failure cancels the group before most chunks start.
	if n := calls.Load(); n == 20 {
		t.Errorf("all %d chunks were attempted despite credential failure", n)
	}
}

func TestRun_RetriesTransientErrors(t *testing.T) {
	var attempts atomic.Int64
	gen := generate.Func(func(_ context.Context, req generate.Request) ([]flashcard.Record, error) {
		if attempts.Add(1) == 1 {
			return nil, &generate.RetryableError{StatusCode: 429, Message: "rate limited"}
		}
		return []flashcard.Record{{Question: req.Text, Answer: "a"}}, nil
	})

	s := New(gen, discardLogger(), Config{Workers: 1, MaxRetries: 2})
	results, err := s.Run(context.Background(), makeChunks(1), generate.Request{Language: "English"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if results[0].Err != nil {
		t.Errorf("chunk failed after retry: %v", results[0].Err)
	}
	if n := attempts.Load(); n != 2 {
		t.Errorf("got %d attempts, want 2", n)
	}
}

func TestRun_NonRetryableErrorNotRetried(t *testing.T) {
	var attempts atomic.Int64
	gen := generate.Func(func(_ context.Context, _ generate.Request) ([]flashcard.Record, error) {
		attempts.Add(1)
		return nil, errors.New("bad request")
	})

	s := New(gen, discardLogger(), Config{Workers: 1, MaxRetries: 3})
	if _, err := s.Run(context.Background(), makeChunks(1), generate.Request{Language: "English"}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if n := attempts.Load(); n != 1 {
		t.Errorf("got %d attempts, want 1", n)
	}
}

func TestRun_ProgressCoversEveryChunk(t *testing.T) {
	var mu sync.Mutex
	seen := make(map[int]bool)
	var maxDone int

	s := New(echoGenerator(), discardLogger(), Config{
		Workers:    4,
		MaxRetries: -1,
		OnProgress: func(p Progress) {
			mu.Lock()
			defer mu.Unlock()
			seen[p.Index] = true
			if p.Done > maxDone {
				maxDone = p.Done
			}
			if p.Total != 8 {
				t.Errorf("Progress.Total = %d, want 8", p.Total)
			}
		},
	})

	if _, err := s.Run(context.Background(), makeChunks(8), generate.Request{Language: "English"}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(seen) != 8 || maxDone != 8 {
		t.Errorf("progress saw %d chunks (max done %d), want 8", len(seen), maxDone)
	}
}

func TestRun_EmptyChunks(t *testing.T) {
	s := New(echoGenerator(), discardLogger(), Config{})
	results, err := s.Run(context.Background(), nil, generate.Request{Language: "English"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("got %d results, want 0", len(results))
	}
}

func TestRun_Cancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	gen := generate.Func(func(ctx context.Context, _ generate.Request) ([]flashcard.Record, error) {
		cancel()
		<-ctx.Done()
		return nil, ctx.Err()
	})

	s := New(gen, discardLogger(), Config{Workers: 2, MaxRetries: -1})
	_, err := s.Run(ctx, makeChunks(4), generate.Request{Language: "English"})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestIsRetryable(t *testing.T) {
	if !IsRetryable(&generate.RetryableError{StatusCode: 503}) {
		t.Error("RetryableError not classified as retryable")
	}
	if IsRetryable(errors.New("plain")) {
		t.Error("plain error classified as retryable")
	}
	wrapped := fmt.Errorf("calling model: %w", &generate.RetryableError{StatusCode: 429})
	if !IsRetryable(wrapped) {
		t.Error("wrapped RetryableError not classified as retryable")
	}
}

func TestBackoff_GrowsAndCaps(t *testing.T) {
	for attempt := 0; attempt < 10; attempt++ {
		d := Backoff(attempt)
		if d <= 0 {
			t.Errorf("Backoff(%d) = %v, want positive", attempt, d)
		}
		if s := d.Seconds(); s > 45 {
			t.Errorf("Backoff(%d) = %v, exceeds cap plus jitter", attempt, d)
		}
	}
	if strings.Contains(Backoff(0).String(), "-") {
		t.Error("negative backoff")
	}
}
