package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/marbleworks/ankigen/internal/config"
	"github.com/marbleworks/ankigen/internal/generate"
	"github.com/marbleworks/ankigen/internal/pipeline"
	"github.com/marbleworks/ankigen/internal/scheduler"
)

var (
	genOutput    string
	genDeckName  string
	genWorkers   int
	genLanguage  string
	genCount     int
	genCSV       bool
	genRAG       bool
	genChunkSize int
	genOverlap   int
	genVerbose   bool
)

var generateCmd = &cobra.Command{
	Use:   "generate [file]",
	Short: "Generate an Anki deck from a document",
	Long: `Parses the document, splits it into overlapping chunks, asks the
configured model for flashcards per chunk, and writes an .apkg deck
(plus a CSV unless --csv=false).

A chunk that keeps failing is skipped; you still get a deck from the
chunks that succeeded. Credential problems stop the run immediately.`,
	Args: cobra.ExactArgs(1),
	RunE: runGenerate,
}

func init() {
	generateCmd.Flags().StringVarP(&genOutput, "output", "o", "", "output .apkg path (default: <input>_flashcards.apkg)")
	generateCmd.Flags().StringVarP(&genDeckName, "deck-name", "d", "", "deck name (default: document title)")
	generateCmd.Flags().IntVarP(&genWorkers, "workers", "w", 0, "concurrent model calls (default: min(NumCPU, 8))")
	generateCmd.Flags().StringVarP(&genLanguage, "language", "l", "English", "card language")
	generateCmd.Flags().IntVarP(&genCount, "count", "c", 5, "cards to request per chunk")
	generateCmd.Flags().BoolVar(&genCSV, "csv", true, "also write a CSV next to the deck")
	generateCmd.Flags().BoolVar(&genRAG, "rag", false, "two-stage generation: answer questions from retrieved context")
	generateCmd.Flags().IntVar(&genChunkSize, "chunk-size", 0, "chunk size in characters (default from config)")
	generateCmd.Flags().IntVar(&genOverlap, "overlap", 0, "chunk overlap in characters (default from config)")
	generateCmd.Flags().BoolVarP(&genVerbose, "verbose", "v", false, "log pipeline details to stderr")
	rootCmd.AddCommand(generateCmd)
}

func runGenerate(cmd *cobra.Command, args []string) error {
	input := args[0]
	if _, err := os.Stat(input); err != nil {
		return fmt.Errorf("cannot read %s: %w", input, err)
	}

	cfg := config.Load()
	log := newLogger(genVerbose)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	stats := generate.NewCallStats(time.Hour)
	be, err := buildBackend(ctx, cfg, stats)
	if err != nil {
		return err
	}
	defer be.close()

	opts := pipeline.Options{
		DeckName:      genDeckName,
		Output:        genOutput,
		WriteCSV:      genCSV,
		Language:      genLanguage,
		CardsPerChunk: genCount,
		Workers:       genWorkers,
		MaxRetries:    cfg.MaxRetries,
		ChunkSize:     genChunkSize,
		ChunkOverlap:  genOverlap,
		TwoStage:      genRAG,

		PDFFallbackPdftotext: cfg.PDFFallbackPdftotext,
		OnProgress: func(p scheduler.Progress) {
			if p.Err != nil {
				cmd.Printf("chunk %d/%d failed: %v\n", p.Done, p.Total, p.Err)
				return
			}
			cmd.Printf("chunk %d/%d done (%d cards)\n", p.Done, p.Total, p.Cards)
		},
	}
	if opts.ChunkSize == 0 {
		opts.ChunkSize = cfg.DefaultChunkSize
	}
	if opts.ChunkOverlap == 0 {
		opts.ChunkOverlap = cfg.DefaultChunkOverlap
	}

	runner := pipeline.NewRunner(be.gen, be.completer, log)
	res, err := runner.RunFile(ctx, input, opts)
	if err != nil {
		return err
	}

	cmd.Printf("deck %q: %d cards (%d generated, %d chunks", res.DeckName, len(res.Records), res.CardsGenerated, res.TotalChunks)
	if len(res.FailedChunks) > 0 {
		cmd.Printf(", %d failed", len(res.FailedChunks))
	}
	cmd.Printf(")\n")
	cmd.Printf("wrote %s\n", res.APKGPath)
	if res.CSVPath != "" {
		cmd.Printf("wrote %s\n", res.CSVPath)
	}
	return nil
}
