package generate

import (
	"fmt"
	"strings"
)

// cardSystemPrompt primes the model as a flashcard author in the
// target language.
const cardSystemPrompt = `You are an expert at creating educational flashcards in %[1]s.
Analyze the provided text and extract important concepts.
For each concept, create a clear question and comprehensive answer pair in %[1]s.
If the text is in a different language, translate the content to %[1]s.
Focus on key information that would be valuable for a student to learn.`

// cardUserPrompt asks for a machine-parseable card list.
const cardUserPrompt = `Create up to %[2]d high-quality %[1]s flashcards from the text below.
Answers should be concise but complete. If the text is not in %[1]s,
translate the concepts into %[1]s.

Respond with ONLY a JSON array, no other text. Each element must have
these fields:
- "question": the card front in %[1]s
- "answer": the card back in %[1]s
- "card_type": one of "Definition", "Fact Recall", "Conceptual Understanding", "Application", "Comparison", "Cloze", "True/False", "Cause-Effect"

TEXT:
%[3]s`

// BuildCardPrompt returns the system and user prompts for a full
// question+answer generation call.
func BuildCardPrompt(req Request) (system, user string) {
	system = fmt.Sprintf(cardSystemPrompt, req.Language)
	user = fmt.Sprintf(cardUserPrompt, req.Language, req.Count, req.Text)
	return system, user
}

const questionUserPrompt = `You're an assistant creating flashcards from academic material.
Given the following text, generate exactly %[2]d flashcard questions in %[1]s.
Only generate questions for card types that fit the text.

Respond with ONLY a JSON array, no other text. Each element must have:
- "question": the question in %[1]s
- "card_type": one of "Definition", "Fact Recall", "Conceptual Understanding", "Application", "Comparison", "Classification", "Cloze", "True/False", "Cause-Effect", "Study/Finding"

TEXT:
%[3]s`

// BuildQuestionPrompt returns prompts for the question-only first stage
// of the retrieval-augmented variant.
func BuildQuestionPrompt(req Request) (system, user string) {
	system = fmt.Sprintf(cardSystemPrompt, req.Language)
	user = fmt.Sprintf(questionUserPrompt, req.Language, req.Count, req.Text)
	return system, user
}

const answerUserPrompt = `Respond to the following question using the provided context.
Be concise and clear; no longer than 1 or 2 sentences. Only use
information from the context. Answer in %s.

Use HTML formatting where helpful:
- <strong></strong> for key terms (do NOT use ** or __)
- <ul><li>...</li></ul> for bullet points
- <table> for comparisons

Context:
%s

Question: [%s] %s`

// BuildAnswerPrompt returns the prompt for answering one generated
// question from retrieved context.
func BuildAnswerPrompt(question, cardType, context, language string) string {
	if cardType == "" {
		cardType = "Fact Recall"
	}
	return fmt.Sprintf(answerUserPrompt, language, strings.TrimSpace(context), cardType, question)
}
