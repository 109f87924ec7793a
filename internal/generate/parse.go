package generate

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/marbleworks/ankigen/internal/flashcard"
)

// ParseRecords extracts flashcard records from raw model output. It
// expects the structured JSON shape and falls back to the Q:/A: line
// format for models that ignore the formatting instructions.
func ParseRecords(text string) ([]flashcard.Record, error) {
	text = stripCodeBlock(text)
	if text == "" {
		return nil, ErrEmptyResponse
	}

	if records, err := parseStructured(text); err == nil {
		return records, nil
	}

	records := ParseQA(text)
	if len(records) == 0 {
		return nil, ErrEmptyResponse
	}
	return records, nil
}

// parseStructured decodes a JSON array of records, tolerating the
// wrapped {"cards": [...]} shape some models produce.
func parseStructured(text string) ([]flashcard.Record, error) {
	var records []flashcard.Record
	if err := json.Unmarshal([]byte(text), &records); err == nil {
		return records, nil
	}

	var wrapped struct {
		Cards     []flashcard.Record `json:"cards"`
		Questions []flashcard.Record `json:"questions"`
	}
	if err := json.Unmarshal([]byte(text), &wrapped); err != nil {
		return nil, err
	}
	if len(wrapped.Cards) > 0 {
		return wrapped.Cards, nil
	}
	return wrapped.Questions, nil
}

// ParseQA parses free-form text with Q:/A: line prefixes. Lines without
// a prefix continue the current answer. A pair is emitted once both a
// question and at least one answer line have been seen.
func ParseQA(text string) []flashcard.Record {
	var records []flashcard.Record
	var question string
	var answer []string

	flush := func() {
		if question != "" && len(answer) > 0 {
			records = append(records, flashcard.Record{
				Question: question,
				Answer:   strings.Join(answer, "\n"),
			})
		}
		answer = nil
	}

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "Q:"):
			flush()
			question = strings.TrimSpace(line[2:])
		case strings.HasPrefix(line, "A:"):
			answer = append(answer, strings.TrimSpace(line[2:]))
		case question != "" && len(answer) > 0:
			answer = append(answer, line)
		}
	}
	flush()

	return records
}

var codeBlockRe = regexp.MustCompile("(?s)^```(?:json)?\\s*(.*?)\\s*```$")

func stripCodeBlock(s string) string {
	s = strings.TrimSpace(s)
	if m := codeBlockRe.FindStringSubmatch(s); len(m) > 1 {
		return m[1]
	}
	return s
}
