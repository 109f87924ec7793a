package generate

import (
	"context"
	"fmt"
	"strings"

	"github.com/marbleworks/ankigen/internal/flashcard"
	"github.com/marbleworks/ankigen/internal/retrieval"
)

// Completer is the raw prompt-in, text-out surface shared by the
// OpenAI and Gemini clients. The two-stage generator drives it
// directly instead of going through Generator.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// contextPassages is how many retrieved passages back each answer.
const contextPassages = 4

// TwoStage generates questions from the chunk text first, then answers
// each question from passages retrieved across the whole document.
// Answers grounded this way can draw on context outside the chunk that
// produced the question.
type TwoStage struct {
	completer Completer
	retriever retrieval.Retriever
}

var _ Generator = (*TwoStage)(nil)

// NewTwoStage wraps a completer and a retriever as a Generator.
func NewTwoStage(c Completer, r retrieval.Retriever) *TwoStage {
	return &TwoStage{completer: c, retriever: r}
}

func (t *TwoStage) Generate(ctx context.Context, req Request) ([]flashcard.Record, error) {
	system, user := BuildQuestionPrompt(req)
	text, err := t.completer.Complete(ctx, system, user)
	if err != nil {
		return nil, err
	}

	questions, err := ParseRecords(text)
	if err != nil {
		return nil, fmt.Errorf("parsing questions: %w", err)
	}
	if req.Count > 0 && len(questions) > req.Count {
		questions = questions[:req.Count]
	}

	records := make([]flashcard.Record, 0, len(questions))
	for _, q := range questions {
		if strings.TrimSpace(q.Question) == "" {
			continue
		}
		answer, err := t.answer(ctx, q, req.Language)
		if err != nil {
			return nil, fmt.Errorf("answering %q: %w", truncate(q.Question, 80), err)
		}
		q.Answer = answer
		records = append(records, q)
	}
	return flashcard.Clean(records), nil
}

func (t *TwoStage) answer(ctx context.Context, q flashcard.Record, language string) (string, error) {
	hits, err := t.retriever.Search(ctx, q.Question, contextPassages)
	if err != nil {
		return "", fmt.Errorf("retrieving context: %w", err)
	}
	passages := make([]string, len(hits))
	for i, h := range hits {
		passages[i] = h.Text
	}
	user := BuildAnswerPrompt(q.Question, q.CardType, strings.Join(passages, "\n\n"), language)
	answer, err := t.completer.Complete(ctx, "", user)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(answer), nil
}
