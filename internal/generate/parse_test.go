package generate

import "testing"

func TestParseRecords_StructuredArray(t *testing.T) {
	text := `[
		{"question": "What is a cell?", "answer": "The basic unit of life.", "card_type": "Definition"},
		{"question": "Name one organelle.", "answer": "Mitochondrion."}
	]`
	records, err := ParseRecords(text)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].CardType != "Definition" {
		t.Errorf("expected card type preserved, got %q", records[0].CardType)
	}
	if records[1].Answer != "Mitochondrion." {
		t.Errorf("expected answer %q, got %q", "Mitochondrion.", records[1].Answer)
	}
}

func TestParseRecords_CodeFencedJSON(t *testing.T) {
	text := "```json\n[{\"question\": \"Q1\", \"answer\": \"A1\"}]\n```"
	records, err := ParseRecords(text)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 1 || records[0].Question != "Q1" {
		t.Fatalf("expected fenced JSON parsed, got %+v", records)
	}
}

func TestParseRecords_WrappedObject(t *testing.T) {
	text := `{"cards": [{"question": "Q1", "answer": "A1"}]}`
	records, err := ParseRecords(text)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
}

func TestParseRecords_FallsBackToQA(t *testing.T) {
	text := "Here are your cards:\nQ: What is osmosis?\nA: Water diffusion\nacross a membrane.\nQ: What is ATP?\nA: Energy currency."
	records, err := ParseRecords(text)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	// Continuation lines without a prefix extend the current answer.
	want := "Water diffusion\nacross a membrane."
	if records[0].Answer != want {
		t.Errorf("expected %q, got %q", want, records[0].Answer)
	}
}

func TestParseQA_QuestionWithoutAnswerDropped(t *testing.T) {
	records := ParseQA("Q: orphan question\nQ: real question\nA: real answer")
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	if records[0].Question != "real question" {
		t.Errorf("expected %q, got %q", "real question", records[0].Question)
	}
}

func TestParseRecords_EmptyInput(t *testing.T) {
	if _, err := ParseRecords("   "); err == nil {
		t.Fatal("expected error for empty input")
	}
	if _, err := ParseRecords("no cards here"); err == nil {
		t.Fatal("expected error for unparseable input")
	}
}
