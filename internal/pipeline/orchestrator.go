package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/marbleworks/ankigen/internal/chunker"
	"github.com/marbleworks/ankigen/internal/config"
	"github.com/marbleworks/ankigen/internal/generate"
)

// Orchestrator manages queued deck generation for serve mode.
type Orchestrator struct {
	jobs      *JobStore
	queue     chan *Job
	gen       generate.Generator
	completer generate.Completer
	log       *slog.Logger
	cfg       config.Config
	chunkCfg  chunker.Config

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewOrchestrator creates the pipeline. Start must be called before
// submitting jobs.
func NewOrchestrator(cfg config.Config, gen generate.Generator, completer generate.Completer, log *slog.Logger) *Orchestrator {
	return &Orchestrator{
		jobs:      NewJobStore(cfg.JobTTL),
		queue:     make(chan *Job, cfg.MaxQueueSize),
		gen:       gen,
		completer: completer,
		log:       log,
		cfg:       cfg,
		chunkCfg: chunker.Config{
			ChunkSize: cfg.DefaultChunkSize,
			Overlap:   cfg.DefaultChunkOverlap,
		},
	}
}

// NewJob builds a queued job for uploaded content.
func (o *Orchestrator) NewJob(filename string, data []byte, opts Options) *Job {
	if opts.Language == "" {
		opts.Language = o.cfg.Language
	}
	if opts.CardsPerChunk <= 0 {
		opts.CardsPerChunk = o.cfg.CardsPerChunk
	}
	if opts.Workers <= 0 {
		opts.Workers = o.cfg.WorkerCount
	}
	opts.PDFFallbackPdftotext = o.cfg.PDFFallbackPdftotext
	job := &Job{
		ID:        uuid.NewString(),
		Status:    StatusQueued,
		Phase:     "queued",
		Filename:  filename,
		DeckName:  opts.DeckName,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
		opts:      opts,
	}
	job.SetFileData(data)
	return job
}

// Start launches a worker goroutine and the job store janitor. Serve
// mode runs one job at a time; concurrency lives inside the chunk
// fan-out, not across jobs.
func (o *Orchestrator) Start(ctx context.Context) {
	workerCtx, cancel := context.WithCancel(ctx)
	o.cancel = cancel

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		w := NewWorker(o.gen, o.completer, o.log, o.chunkCfg, o.cfg.OutputDir)
		for {
			select {
			case <-workerCtx.Done():
				return
			case job, ok := <-o.queue:
				if !ok {
					return
				}
				w.Process(workerCtx, job)
			}
		}
	}()

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-workerCtx.Done():
				return
			case <-ticker.C:
				o.jobs.Cleanup()
			}
		}
	}()
}

// Stop gracefully shuts down the pipeline.
func (o *Orchestrator) Stop() {
	if o.cancel != nil {
		o.cancel()
	}
	close(o.queue)
	o.wg.Wait()
}

// Submit queues a new job for processing.
func (o *Orchestrator) Submit(job *Job) error {
	o.jobs.Put(job)
	select {
	case o.queue <- job:
		return nil
	default:
		job.SetStatus(StatusFailed, "queue_full")
		return fmt.Errorf("job queue is full (%d)", o.cfg.MaxQueueSize)
	}
}

// GetJob returns a job by ID.
func (o *Orchestrator) GetJob(id string) *Job {
	return o.jobs.Get(id)
}

// QueueDepth returns current queue depth.
func (o *Orchestrator) QueueDepth() int {
	return len(o.queue)
}
