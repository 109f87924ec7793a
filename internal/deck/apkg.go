package deck

import (
	"archive/zip"
	"crypto/sha1"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "modernc.org/sqlite" // CGo-free SQLite driver
)

// fieldSep joins note fields inside the flds column, per Anki's schema.
const fieldSep = "\x1f"

// collectionSchema is the schema of collection.anki2 as Anki 2.1
// desktop (schema version 11) creates it. Importers validate against
// this layout, so the DDL must match.
const collectionSchema = `
CREATE TABLE col (
    id integer primary key,
    crt integer not null,
    mod integer not null,
    scm integer not null,
    ver integer not null,
    dty integer not null,
    usn integer not null,
    ls integer not null,
    conf text not null,
    models text not null,
    decks text not null,
    dconf text not null,
    tags text not null
);
CREATE TABLE notes (
    id integer primary key,
    guid text not null,
    mid integer not null,
    mod integer not null,
    usn integer not null,
    tags text not null,
    flds text not null,
    sfld text not null,
    csum integer not null,
    flags integer not null,
    data text not null
);
CREATE TABLE cards (
    id integer primary key,
    nid integer not null,
    did integer not null,
    ord integer not null,
    mod integer not null,
    usn integer not null,
    type integer not null,
    queue integer not null,
    due integer not null,
    ivl integer not null,
    factor integer not null,
    reps integer not null,
    lapses integer not null,
    left integer not null,
    odue integer not null,
    odid integer not null,
    flags integer not null,
    data text not null
);
CREATE TABLE revlog (
    id integer primary key,
    cid integer not null,
    usn integer not null,
    ease integer not null,
    ivl integer not null,
    lastIvl integer not null,
    factor integer not null,
    time integer not null,
    type integer not null
);
CREATE TABLE graves (
    usn integer not null,
    oid integer not null,
    type integer not null
);
CREATE INDEX ix_notes_usn on notes (usn);
CREATE INDEX ix_cards_usn on cards (usn);
CREATE INDEX ix_revlog_usn on revlog (usn);
CREATE INDEX ix_cards_nid on cards (nid);
CREATE INDEX ix_cards_sched on cards (did, queue, due);
CREATE INDEX ix_revlog_cid on revlog (cid);
CREATE INDEX ix_notes_csum on notes (csum);
`

// WriteAPKG writes the deck as an Anki package at path. The package is
// a zip holding a sqlite collection plus an empty media manifest.
func WriteAPKG(path string, d *Deck) error {
	tmpDir, err := os.MkdirTemp("", "ankigen-apkg-*")
	if err != nil {
		return fmt.Errorf("creating temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	dbPath := filepath.Join(tmpDir, "collection.anki2")
	if err := writeCollection(dbPath, d); err != nil {
		return fmt.Errorf("writing collection: %w", err)
	}

	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating package file: %w", err)
	}
	defer out.Close()

	zw := zip.NewWriter(out)
	if err := addZipFile(zw, "collection.anki2", dbPath); err != nil {
		return err
	}
	media, err := zw.Create("media")
	if err != nil {
		return fmt.Errorf("adding media manifest: %w", err)
	}
	if _, err := media.Write([]byte("{}")); err != nil {
		return fmt.Errorf("writing media manifest: %w", err)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("finalizing package: %w", err)
	}
	return out.Close()
}

func addZipFile(zw *zip.Writer, name, src string) error {
	f, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("opening %s: %w", name, err)
	}
	defer f.Close()

	w, err := zw.Create(name)
	if err != nil {
		return fmt.Errorf("adding %s: %w", name, err)
	}
	if _, err := io.Copy(w, f); err != nil {
		return fmt.Errorf("copying %s: %w", name, err)
	}
	return nil
}

func writeCollection(dbPath string, d *Deck) error {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return fmt.Errorf("opening sqlite: %w", err)
	}
	defer db.Close()

	if _, err := db.Exec(collectionSchema); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}

	now := time.Now()
	if err := insertCol(db, d, now); err != nil {
		return err
	}
	if err := insertNotes(db, d, now); err != nil {
		return err
	}
	return db.Close()
}

func insertCol(db *sql.DB, d *Deck, now time.Time) error {
	conf, err := json.Marshal(collectionConf(d.Model.ID))
	if err != nil {
		return fmt.Errorf("encoding conf: %w", err)
	}
	models, err := json.Marshal(map[string]any{
		strconv.FormatInt(d.Model.ID, 10): modelJSON(d, now),
	})
	if err != nil {
		return fmt.Errorf("encoding models: %w", err)
	}
	decks, err := json.Marshal(map[string]any{
		"1": deckJSON(1, "Default", now),
		strconv.FormatInt(d.ID, 10): deckJSON(d.ID, d.Name, now),
	})
	if err != nil {
		return fmt.Errorf("encoding decks: %w", err)
	}
	dconf, err := json.Marshal(map[string]any{"1": deckOptionsJSON()})
	if err != nil {
		return fmt.Errorf("encoding dconf: %w", err)
	}

	_, err = db.Exec(
		`INSERT INTO col (id, crt, mod, scm, ver, dty, usn, ls, conf, models, decks, dconf, tags)
		 VALUES (1, ?, ?, ?, 11, 0, 0, 0, ?, ?, ?, ?, '{}')`,
		now.Unix(), now.UnixMilli(), now.UnixMilli(),
		string(conf), string(models), string(decks), string(dconf),
	)
	if err != nil {
		return fmt.Errorf("inserting collection row: %w", err)
	}
	return nil
}

func insertNotes(db *sql.DB, d *Deck, now time.Time) error {
	noteStmt, err := db.Prepare(
		`INSERT INTO notes (id, guid, mid, mod, usn, tags, flds, sfld, csum, flags, data)
		 VALUES (?, ?, ?, ?, -1, '', ?, ?, ?, 0, '')`)
	if err != nil {
		return fmt.Errorf("preparing note insert: %w", err)
	}
	defer noteStmt.Close()

	cardStmt, err := db.Prepare(
		`INSERT INTO cards (id, nid, did, ord, mod, usn, type, queue, due, ivl, factor, reps, lapses, left, odue, odid, flags, data)
		 VALUES (?, ?, ?, ?, ?, -1, 0, 0, ?, 0, 0, 0, 0, 0, 0, 0, 0, '')`)
	if err != nil {
		return fmt.Errorf("preparing card insert: %w", err)
	}
	defer cardStmt.Close()

	baseID := now.UnixMilli()
	cardID := baseID + int64(len(d.Notes))
	for i, n := range d.Notes {
		noteID := baseID + int64(i)
		flds := strings.Join(n.Fields, fieldSep)
		sfld := ""
		if len(n.Fields) > 0 {
			sfld = n.Fields[0]
		}
		if _, err := noteStmt.Exec(noteID, noteGUID(n.Fields), d.Model.ID, now.Unix(), flds, sfld, fieldChecksum(sfld)); err != nil {
			return fmt.Errorf("inserting note %d: %w", i, err)
		}
		for ord := range d.Model.Templates {
			if _, err := cardStmt.Exec(cardID, noteID, d.ID, ord, now.Unix(), i+1); err != nil {
				return fmt.Errorf("inserting card for note %d: %w", i, err)
			}
			cardID++
		}
	}
	return nil
}

// noteGUID derives a stable identifier from the note's field values, so
// reimporting the same deck updates notes instead of duplicating them.
func noteGUID(fields []string) string {
	sum := sha1.Sum([]byte(strings.Join(fields, "__")))
	return hex.EncodeToString(sum[:])[:10]
}

// fieldChecksum is the integer value of the first 8 hex digits of the
// sha1 of the sort field. Anki uses it for duplicate detection.
func fieldChecksum(sfld string) int64 {
	sum := sha1.Sum([]byte(sfld))
	v, _ := strconv.ParseInt(hex.EncodeToString(sum[:])[:8], 16, 64)
	return v
}

func collectionConf(modelID int64) map[string]any {
	return map[string]any{
		"activeDecks":   []int{1},
		"addToCur":      true,
		"collapseTime":  1200,
		"curDeck":       1,
		"curModel":      strconv.FormatInt(modelID, 10),
		"dueCounts":     true,
		"estTimes":      true,
		"newBury":       true,
		"newSpread":     0,
		"nextPos":       1,
		"sortBackwards": false,
		"sortType":      "noteFld",
		"timeLim":       0,
	}
}

func modelJSON(d *Deck, now time.Time) map[string]any {
	flds := make([]map[string]any, len(d.Model.Fields))
	for i, name := range d.Model.Fields {
		flds[i] = map[string]any{
			"name":   name,
			"ord":    i,
			"font":   "Liberation Sans",
			"media":  []string{},
			"rtl":    false,
			"size":   20,
			"sticky": false,
		}
	}
	tmpls := make([]map[string]any, len(d.Model.Templates))
	for i, t := range d.Model.Templates {
		tmpls[i] = map[string]any{
			"name":  t.Name,
			"ord":   i,
			"qfmt":  t.QFmt,
			"afmt":  t.AFmt,
			"bqfmt": "",
			"bafmt": "",
			"did":   nil,
		}
	}
	return map[string]any{
		"id":        d.Model.ID,
		"name":      d.Model.Name,
		"type":      0,
		"did":       d.ID,
		"mod":       now.Unix(),
		"usn":       -1,
		"sortf":     0,
		"css":       d.Model.CSS,
		"flds":      flds,
		"tmpls":     tmpls,
		"tags":      []string{},
		"vers":      []string{},
		"req":       []any{[]any{0, "all", []int{0}}},
		"latexPre":  "\\documentclass[12pt]{article}\n\\special{papersize=3in,5in}\n\\usepackage[utf8]{inputenc}\n\\usepackage{amssymb,amsmath}\n\\pagestyle{empty}\n\\setlength{\\parindent}{0in}\n\\begin{document}\n",
		"latexPost": "\\end{document}",
	}
}

func deckJSON(id int64, name string, now time.Time) map[string]any {
	return map[string]any{
		"id":        id,
		"name":      name,
		"desc":      "",
		"conf":      1,
		"usn":       -1,
		"mod":       now.Unix(),
		"dyn":       0,
		"collapsed": false,
		"extendNew": 0,
		"extendRev": 50,
		"newToday":  []int{0, 0},
		"revToday":  []int{0, 0},
		"lrnToday":  []int{0, 0},
		"timeToday": []int{0, 0},
	}
}

func deckOptionsJSON() map[string]any {
	return map[string]any{
		"id":       1,
		"name":     "Default",
		"usn":      0,
		"mod":      0,
		"autoplay": true,
		"dyn":      false,
		"maxTaken": 60,
		"replayq":  true,
		"timer":    0,
		"new": map[string]any{
			"bury":          true,
			"delays":        []int{1, 10},
			"initialFactor": 2500,
			"ints":          []int{1, 4, 7},
			"order":         1,
			"perDay":        20,
			"separate":      true,
		},
		"rev": map[string]any{
			"bury":     true,
			"ease4":    1.3,
			"fuzz":     0.05,
			"ivlFct":   1,
			"maxIvl":   36500,
			"minSpace": 1,
			"perDay":   100,
		},
		"lapse": map[string]any{
			"delays":      []int{10},
			"leechAction": 0,
			"leechFails":  8,
			"minInt":      1,
			"mult":        0,
		},
	}
}
