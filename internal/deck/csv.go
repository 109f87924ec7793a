package deck

import (
	"encoding/csv"
	"fmt"
	"os"

	"github.com/marbleworks/ankigen/internal/flashcard"
)

// WriteCSV writes records as a two-column CSV with a Question,Answer
// header row. Fields containing commas, quotes or newlines come out
// quoted per RFC 4180, so HTML answers survive a round trip.
func WriteCSV(path string, records []flashcard.Record) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating csv file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"Question", "Answer"}); err != nil {
		return fmt.Errorf("writing csv header: %w", err)
	}
	for _, r := range records {
		if err := w.Write([]string{r.Question, r.Answer}); err != nil {
			return fmt.Errorf("writing csv row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flushing csv: %w", err)
	}
	return f.Close()
}

// CSVPathFor derives the CSV sibling path for an .apkg output path.
func CSVPathFor(apkgPath string) string {
	const ext = ".apkg"
	if len(apkgPath) > len(ext) && apkgPath[len(apkgPath)-len(ext):] == ext {
		return apkgPath[:len(apkgPath)-len(ext)] + ".csv"
	}
	return apkgPath + ".csv"
}
