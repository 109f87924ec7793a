package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/marbleworks/ankigen/internal/chunker"
	"github.com/marbleworks/ankigen/internal/deck"
	"github.com/marbleworks/ankigen/internal/flashcard"
	"github.com/marbleworks/ankigen/internal/generate"
	"github.com/marbleworks/ankigen/internal/parser"
	"github.com/marbleworks/ankigen/internal/retrieval"
	"github.com/marbleworks/ankigen/internal/scheduler"
)

// Worker processes a single deck generation job.
type Worker struct {
	gen       generate.Generator
	completer generate.Completer
	log       *slog.Logger
	chunkCfg  chunker.Config
	outputDir string
}

func NewWorker(gen generate.Generator, completer generate.Completer, log *slog.Logger, chunkCfg chunker.Config, outputDir string) *Worker {
	return &Worker{
		gen:       gen,
		completer: completer,
		log:       log,
		chunkCfg:  chunkCfg,
		outputDir: outputDir,
	}
}

// Process runs the full generation pipeline for a job.
func (w *Worker) Process(ctx context.Context, job *Job) {
	log := w.log.With("job_id", job.ID, "filename", job.Filename)

	// Phase 1: Parse
	job.SetStatus(StatusParsing, "parsing")
	p, err := parser.ForFile(job.Filename, job.opts.parserConfig())
	if err != nil {
		log.Error("unsupported format", "error", err)
		job.AddError(err.Error())
		job.SetStatus(StatusFailed, "parsing")
		return
	}

	doc, err := p.Parse(bytes.NewReader(job.FileData()), job.Filename)
	if err != nil {
		log.Error("parse failed", "error", err)
		job.AddError(fmt.Sprintf("parse: %s", err))
		job.SetStatus(StatusFailed, "parsing")
		return
	}
	deckName := job.EnsureDeckName(doc.Title)

	// Phase 2: Chunk
	job.SetStatus(StatusChunking, "chunking")
	chunkCfg := w.chunkCfg
	if job.opts.ChunkSize > 0 {
		chunkCfg.ChunkSize = job.opts.ChunkSize
	}
	if job.opts.ChunkOverlap > 0 {
		chunkCfg.Overlap = job.opts.ChunkOverlap
	}
	chunks := chunker.Split(doc.Pages, chunkCfg)
	job.SetTotalChunks(len(chunks))
	log.Info("chunked document", "chunks", len(chunks))

	if len(chunks) == 0 {
		log.Warn("no chunks produced")
		job.AddError("no extractable content")
		job.SetStatus(StatusFailed, "chunking")
		return
	}

	// Phase 3: Generate cards with bounded concurrency.
	job.SetStatus(StatusGenerating, "generating")
	gen := w.gen
	if job.opts.TwoStage && w.completer != nil {
		texts := make([]string, len(chunks))
		for i, c := range chunks {
			texts[i] = c.Text
		}
		gen = generate.NewTwoStage(w.completer, retrieval.NewLexical(texts))
	}
	sched := scheduler.New(gen, w.log, scheduler.Config{
		Workers:    job.opts.Workers,
		MaxRetries: job.opts.MaxRetries,
		OnProgress: func(p scheduler.Progress) {
			job.IncrChunksProcessed(p.Cards)
			if p.Err != nil {
				job.AddError(fmt.Sprintf("chunk %d: %s", p.Index, p.Err))
			}
		},
	})
	results, err := sched.Run(ctx, chunks, generate.Request{
		Language: job.opts.Language,
		Count:    job.opts.CardsPerChunk,
	})
	if err != nil {
		log.Error("generation aborted", "error", err)
		job.AddError(err.Error())
		job.SetStatus(StatusFailed, "generating")
		return
	}

	hadErrors := false
	for _, cr := range results {
		if cr.Err != nil {
			hadErrors = true
		}
	}
	records := flashcard.Dedupe(scheduler.Collect(results))
	job.SetCardsKept(len(records))

	// Phase 4: Package
	job.SetStatus(StatusPackaging, "packaging")
	apkgPath := filepath.Join(w.outputDir, job.ID+".apkg")
	if err := deck.WriteAPKG(apkgPath, deck.Assemble(deckName, records)); err != nil {
		log.Error("packaging failed", "error", err)
		job.AddError(fmt.Sprintf("packaging: %s", err))
		job.SetStatus(StatusFailed, "packaging")
		return
	}
	csvPath := ""
	if job.opts.WriteCSV {
		csvPath = deck.CSVPathFor(apkgPath)
		if err := deck.WriteCSV(csvPath, records); err != nil {
			log.Error("csv write failed", "error", err)
			job.AddError(fmt.Sprintf("csv: %s", err))
			csvPath = ""
		}
	}
	job.SetOutputs(apkgPath, csvPath)

	if hadErrors {
		job.SetStatus(StatusPartial, "done")
	} else {
		job.SetStatus(StatusCompleted, "done")
	}
	log.Info("job finished", "status", job.Snapshot().Status, "cards", len(records))
}
