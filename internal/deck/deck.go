// Package deck assembles flashcard records into an Anki deck and
// writes it out as an .apkg package or a CSV file.
package deck

import (
	"math/rand/v2"

	"github.com/marbleworks/ankigen/internal/flashcard"
)

// Model describes the note type: its fields and card templates.
type Model struct {
	ID        int64
	Name      string
	Fields    []string
	Templates []Template
	CSS       string
}

// Template is one card layout within a model.
type Template struct {
	Name string
	QFmt string
	AFmt string
}

// Note is one note's field values, in model field order.
type Note struct {
	Fields []string
}

// Deck is a named collection of notes sharing one model.
type Deck struct {
	ID    int64
	Name  string
	Model Model
	Notes []Note
}

const defaultCSS = `.card {
 font-family: arial;
 font-size: 20px;
 text-align: center;
 color: black;
 background-color: white;
}`

// NewID returns a random 31-bit identifier in [1<<30, 1<<31), the range
// Anki expects for user-created deck and model IDs.
func NewID() int64 {
	return 1<<30 + rand.Int64N(1<<30)
}

// qaModel is the two-field question/answer note type every generated
// deck uses.
func qaModel() Model {
	return Model{
		ID:     NewID(),
		Name:   "Generated QA Model",
		Fields: []string{"Question", "Answer"},
		Templates: []Template{{
			Name: "Card",
			QFmt: "{{Question}}",
			AFmt: `{{FrontSide}}<hr id="answer">{{Answer}}`,
		}},
		CSS: defaultCSS,
	}
}

// Assemble builds a deck from records, preserving their order. An empty
// record list yields a valid empty deck.
func Assemble(name string, records []flashcard.Record) *Deck {
	d := &Deck{
		ID:    NewID(),
		Name:  name,
		Model: qaModel(),
		Notes: make([]Note, 0, len(records)),
	}
	for _, r := range records {
		d.Notes = append(d.Notes, Note{Fields: []string{r.Question, r.Answer}})
	}
	return d
}
