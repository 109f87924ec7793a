// Package pipeline runs the full deck generation flow: parse, chunk,
// fan out generation, dedupe, assemble and write. It serves both the
// one-shot CLI path and the queued serve-mode path.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/marbleworks/ankigen/internal/chunker"
	"github.com/marbleworks/ankigen/internal/deck"
	"github.com/marbleworks/ankigen/internal/document"
	"github.com/marbleworks/ankigen/internal/flashcard"
	"github.com/marbleworks/ankigen/internal/generate"
	"github.com/marbleworks/ankigen/internal/parser"
	"github.com/marbleworks/ankigen/internal/retrieval"
	"github.com/marbleworks/ankigen/internal/scheduler"
)

// Options configure one generation run.
type Options struct {
	// DeckName overrides the document title.
	DeckName string

	// Output is the .apkg path. Empty derives "<stem>_flashcards.apkg"
	// next to the input.
	Output string

	// WriteCSV also writes a CSV sibling of the .apkg.
	WriteCSV bool

	Language      string
	CardsPerChunk int
	Workers       int
	MaxRetries    int

	// Chunking overrides. Zero values fall back to the defaults.
	ChunkSize    int
	ChunkOverlap int

	// TwoStage generates questions first and answers them from
	// passages retrieved across the whole document.
	TwoStage bool

	// PDFFallbackPdftotext retries PDF extraction with the pdftotext
	// binary when the Go library fails.
	PDFFallbackPdftotext bool

	// OnProgress, when set, receives one callback per finished chunk.
	OnProgress func(scheduler.Progress)
}

func (o Options) Validate() error {
	return validation.ValidateStruct(&o,
		validation.Field(&o.Language, validation.Required),
		validation.Field(&o.CardsPerChunk, validation.Required, validation.Min(1), validation.Max(50)),
		validation.Field(&o.Workers, validation.Min(0), validation.Max(64)),
		validation.Field(&o.ChunkSize, validation.Min(0)),
		validation.Field(&o.ChunkOverlap, validation.Min(0), validation.By(func(any) error {
			if o.ChunkSize > 0 && o.ChunkOverlap >= o.ChunkSize {
				return fmt.Errorf("must be smaller than chunk size (%d)", o.ChunkSize)
			}
			return nil
		})),
	)
}

func (o Options) parserConfig() parser.Config {
	return parser.Config{PDFFallbackPdftotext: o.PDFFallbackPdftotext}
}

// Result summarizes a finished run.
type Result struct {
	DeckName       string
	APKGPath       string
	CSVPath        string
	Records        []flashcard.Record
	TotalChunks    int
	FailedChunks   []int
	CardsGenerated int
}

// Runner wires a generator into the flow. Completer is optional; when
// set it enables the two-stage variant.
type Runner struct {
	gen       generate.Generator
	completer generate.Completer
	log       *slog.Logger
}

func NewRunner(gen generate.Generator, completer generate.Completer, log *slog.Logger) *Runner {
	return &Runner{gen: gen, completer: completer, log: log}
}

// RunFile generates a deck from the file at path.
func (r *Runner) RunFile(ctx context.Context, path string, opts Options) (*Result, error) {
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}
	doc, err := parser.ParseFile(path, opts.parserConfig())
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", filepath.Base(path), err)
	}
	if opts.Output == "" {
		stem := strings.TrimSuffix(path, filepath.Ext(path))
		opts.Output = stem + "_flashcards.apkg"
	}
	return r.run(ctx, doc, opts)
}

// RunReader generates a deck from in-memory content. The filename
// picks the parser and the fallback deck name. Output must be set.
func (r *Runner) RunReader(ctx context.Context, content io.Reader, filename string, opts Options) (*Result, error) {
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}
	if opts.Output == "" {
		return nil, fmt.Errorf("output path is required")
	}
	p, err := parser.ForFile(filename, opts.parserConfig())
	if err != nil {
		return nil, err
	}
	doc, err := p.Parse(content, filename)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", filename, err)
	}
	return r.run(ctx, doc, opts)
}

func (r *Runner) run(ctx context.Context, doc *document.Document, opts Options) (*Result, error) {
	deckName := opts.DeckName
	if deckName == "" {
		deckName = doc.Title
	}
	log := r.log.With("deck", deckName)

	chunkCfg := chunker.DefaultConfig()
	if opts.ChunkSize > 0 {
		chunkCfg.ChunkSize = opts.ChunkSize
	}
	if opts.ChunkOverlap > 0 {
		chunkCfg.Overlap = opts.ChunkOverlap
	}
	chunks := chunker.Split(doc.Pages, chunkCfg)
	if len(chunks) == 0 {
		return nil, fmt.Errorf("no extractable content in document")
	}
	log.Info("chunked document", "pages", len(doc.Pages), "chunks", len(chunks))

	gen := r.gen
	if opts.TwoStage {
		if r.completer == nil {
			return nil, fmt.Errorf("two-stage generation is not available for this provider")
		}
		texts := make([]string, len(chunks))
		for i, c := range chunks {
			texts[i] = c.Text
		}
		gen = generate.NewTwoStage(r.completer, retrieval.NewLexical(texts))
	}

	sched := scheduler.New(gen, r.log, scheduler.Config{
		Workers:    opts.Workers,
		MaxRetries: opts.MaxRetries,
		OnProgress: opts.OnProgress,
	})
	results, err := sched.Run(ctx, chunks, generate.Request{
		Language: opts.Language,
		Count:    opts.CardsPerChunk,
	})
	if err != nil {
		return nil, fmt.Errorf("generating cards: %w", err)
	}

	var failed []int
	for _, cr := range results {
		if cr.Err != nil {
			failed = append(failed, cr.Index)
		}
	}
	generated := scheduler.Collect(results)
	records := flashcard.Dedupe(generated)
	log.Info("generated cards",
		"generated", len(generated),
		"kept", len(records),
		"failed_chunks", len(failed))

	d := deck.Assemble(deckName, records)
	if err := deck.WriteAPKG(opts.Output, d); err != nil {
		return nil, fmt.Errorf("writing deck: %w", err)
	}

	res := &Result{
		DeckName:       deckName,
		APKGPath:       opts.Output,
		Records:        records,
		TotalChunks:    len(chunks),
		FailedChunks:   failed,
		CardsGenerated: len(generated),
	}
	if opts.WriteCSV {
		res.CSVPath = deck.CSVPathFor(opts.Output)
		if err := deck.WriteCSV(res.CSVPath, records); err != nil {
			return nil, fmt.Errorf("writing csv: %w", err)
		}
	}
	return res, nil
}
