// Package retrieval defines the context-lookup contract used by the
// two-stage (question then answer) generation variant, plus a simple
// in-memory implementation good enough for single-document runs.
package retrieval

import (
	"context"
	"regexp"
	"sort"
	"strings"
)

// Scored is one retrieved passage with its relevance score.
type Scored struct {
	Text  string
	Score float64
}

// Retriever finds the k passages most relevant to a query.
type Retriever interface {
	Search(ctx context.Context, query string, k int) ([]Scored, error)
}

// Lexical ranks passages by weighted term overlap with the query.
// Terms are lowercased word tokens; rarer terms weigh more. Build once
// per document, then it is read-only and safe for concurrent Search.
type Lexical struct {
	passages []string
	terms    []map[string]int // term frequency per passage
	docFreq  map[string]int
}

var _ Retriever = (*Lexical)(nil)

var wordRe = regexp.MustCompile(`[\p{L}\p{N}]+`)

// NewLexical indexes the given passages.
func NewLexical(passages []string) *Lexical {
	l := &Lexical{
		passages: passages,
		terms:    make([]map[string]int, len(passages)),
		docFreq:  make(map[string]int),
	}
	for i, p := range passages {
		tf := make(map[string]int)
		for _, tok := range tokenize(p) {
			tf[tok]++
		}
		l.terms[i] = tf
		for tok := range tf {
			l.docFreq[tok]++
		}
	}
	return l
}

// Search returns up to k passages ordered by descending score. Ties
// keep document order. Queries sharing no terms with any passage yield
// an empty result, not an error.
func (l *Lexical) Search(_ context.Context, query string, k int) ([]Scored, error) {
	if k <= 0 || len(l.passages) == 0 {
		return nil, nil
	}

	queryTerms := tokenize(query)
	scores := make([]Scored, 0, len(l.passages))
	order := make(map[string]int, len(l.passages))

	for i, tf := range l.terms {
		var score float64
		for _, term := range queryTerms {
			n, ok := tf[term]
			if !ok {
				continue
			}
			// Down-weight terms that appear everywhere.
			score += float64(n) / float64(l.docFreq[term])
		}
		if score > 0 {
			order[l.passages[i]] = i
			scores = append(scores, Scored{Text: l.passages[i], Score: score})
		}
	}

	sort.SliceStable(scores, func(i, j int) bool {
		if scores[i].Score != scores[j].Score {
			return scores[i].Score > scores[j].Score
		}
		return order[scores[i].Text] < order[scores[j].Text]
	})

	if len(scores) > k {
		scores = scores[:k]
	}
	return scores, nil
}

func tokenize(s string) []string {
	return wordRe.FindAllString(strings.ToLower(s), -1)
}
