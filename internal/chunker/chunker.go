package chunker

import (
	"unicode/utf8"

	"github.com/marbleworks/ankigen/internal/document"
)

// Config controls chunking behavior. Sizes are in characters (runes),
// not tokens: chunks feed a prompt, so a coarse bound is enough.
type Config struct {
	ChunkSize int // Target chunk size in characters.
	Overlap   int // Characters carried over from the previous chunk.
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		ChunkSize: 2500,
		Overlap:   500,
	}
}

// Chunk is a bounded window of document text submitted as one
// generation unit. Index is 0-based and dense in emission order;
// Total is the batch size at emission time.
type Chunk struct {
	Index int
	Text  string
	Total int
}

// Split accumulates page texts into overlapping chunks. Pages are never
// split mid-page: a single page larger than ChunkSize passes through as
// one oversized chunk. Every chunk after the first starts with the
// trailing Overlap characters of its predecessor (the whole predecessor
// when it is shorter than Overlap). Pure and deterministic; emits no
// empty chunks.
func Split(pages []document.Page, cfg Config) []Chunk {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = 2500
	}
	if cfg.Overlap < 0 || cfg.Overlap >= cfg.ChunkSize {
		cfg.Overlap = cfg.ChunkSize / 5
	}

	var chunks []Chunk
	var acc string

	emit := func(text string) {
		chunks = append(chunks, Chunk{Index: len(chunks), Text: text})
	}

	for _, page := range pages {
		if page.Text == "" {
			continue
		}
		if utf8.RuneCountInString(acc)+utf8.RuneCountInString(page.Text) < cfg.ChunkSize {
			acc += page.Text
			continue
		}
		if acc != "" {
			emit(acc)
			acc = tail(acc, cfg.Overlap) + page.Text
		} else {
			acc = page.Text
		}
	}
	if acc != "" {
		emit(acc)
	}

	for i := range chunks {
		chunks[i].Total = len(chunks)
	}
	return chunks
}

// tail returns the last n characters of s, or all of s when it has no
// more than n characters.
func tail(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[len(r)-n:])
}
