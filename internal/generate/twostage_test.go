package generate

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/marbleworks/ankigen/internal/retrieval"
)

type fakeCompleter struct {
	calls     []string
	questions string
	answer    string
	err       error
}

func (f *fakeCompleter) Complete(_ context.Context, _, user string) (string, error) {
	f.calls = append(f.calls, user)
	if f.err != nil {
		return "", f.err
	}
	if len(f.calls) == 1 {
		return f.questions, nil
	}
	return f.answer, nil
}

func TestTwoStage_AnswersFromRetrievedContext(t *testing.T) {
	fc := &fakeCompleter{
		questions: `[{"question": "What produces ATP?", "card_type": "Fact Recall"}]`,
		answer:    "The <strong>mitochondria</strong> produce ATP.",
	}
	idx := retrieval.NewLexical([]string{
		"Photosynthesis happens in chloroplasts.",
		"Mitochondria produce ATP through respiration.",
	})

	gen := NewTwoStage(fc, idx)
	records, err := gen.Generate(context.Background(), Request{Text: "ignored", Language: "English", Count: 5})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1", len(records))
	}
	if records[0].Question != "What produces ATP?" {
		t.Errorf("question = %q", records[0].Question)
	}
	if records[0].Answer != "The <strong>mitochondria</strong> produce ATP." {
		t.Errorf("answer = %q", records[0].Answer)
	}

	// The answer call must carry the relevant retrieved passage.
	if len(fc.calls) != 2 {
		t.Fatalf("got %d completer calls, want 2", len(fc.calls))
	}
	if !strings.Contains(fc.calls[1], "Mitochondria produce ATP") {
		t.Errorf("answer prompt missing retrieved context:\n%s", fc.calls[1])
	}
}

func TestTwoStage_CapsQuestionCount(t *testing.T) {
	fc := &fakeCompleter{
		questions: `[{"question": "Q1"}, {"question": "Q2"}, {"question": "Q3"}]`,
		answer:    "A",
	}
	gen := NewTwoStage(fc, retrieval.NewLexical(nil))

	records, err := gen.Generate(context.Background(), Request{Language: "English", Count: 2})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(records) != 2 {
		t.Errorf("got %d records, want 2", len(records))
	}
}

func TestTwoStage_PropagatesQuestionStageError(t *testing.T) {
	want := errors.New("boom")
	gen := NewTwoStage(&fakeCompleter{err: want}, retrieval.NewLexical(nil))

	_, err := gen.Generate(context.Background(), Request{Language: "English", Count: 2})
	if !errors.Is(err, want) {
		t.Errorf("err = %v, want %v", err, want)
	}
}
