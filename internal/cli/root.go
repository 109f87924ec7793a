// Package cli wires the command-line surface: one-shot deck
// generation and the long-running serve mode.
package cli

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "ankigen",
	Short: "Generate Anki flashcard decks from documents",
	Long: `ankigen turns documents (PDF, DOCX, Markdown, HTML, text, CSV) into
Anki flashcard decks. Content is split into overlapping chunks, each
chunk is sent to a language model, and the resulting cards are
deduplicated and packaged as an importable .apkg file.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
