// Package flashcard holds the card domain model shared by generation,
// deck assembly and export.
package flashcard

import "strings"

// Record is one question/answer flashcard item. Answer may be empty for
// question-only generation (the two-stage variant fills it in later).
// CardType is an optional tag such as "Definition" or "Cloze".
type Record struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
	CardType string `json:"card_type,omitempty"`
}

// ChunkResult pairs a chunk's original index with its generated
// records. Failed chunks carry an empty record list plus the error.
type ChunkResult struct {
	Index   int
	Records []Record
	Err     error
}

// Valid reports whether a record is worth keeping: a non-empty question
// of sane length. Generated answers may legitimately be empty.
func Valid(r Record) bool {
	q := strings.TrimSpace(r.Question)
	if q == "" || len(q) > 2000 {
		return false
	}
	return len(r.Answer) <= 10000
}

// Clean trims whitespace and drops invalid records, preserving order.
func Clean(records []Record) []Record {
	out := make([]Record, 0, len(records))
	for _, r := range records {
		r.Question = strings.TrimSpace(r.Question)
		r.Answer = strings.TrimSpace(r.Answer)
		if Valid(r) {
			out = append(out, r)
		}
	}
	return out
}

// Dedupe removes records whose question text repeats an earlier one,
// ignoring case and surrounding whitespace. Order is preserved; the
// first occurrence wins. Overlapping chunks routinely produce the same
// card twice.
func Dedupe(records []Record) []Record {
	seen := make(map[string]struct{}, len(records))
	out := make([]Record, 0, len(records))
	for _, r := range records {
		key := strings.ToLower(strings.TrimSpace(r.Question))
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, r)
	}
	return out
}
