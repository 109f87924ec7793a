package parser

import (
	"strings"
	"testing"
)

func TestMarkdownParser_SectionsBecomePages(t *testing.T) {
	input := `# Photosynthesis

Intro text.

## Light reactions

Light reaction content.

## Dark reactions

Dark reaction content.
`
	p := &MarkdownParser{}
	doc, err := p.Parse(strings.NewReader(input), "bio.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// First h1 becomes the document title.
	if doc.Title != "Photosynthesis" {
		t.Errorf("expected title %q, got %q", "Photosynthesis", doc.Title)
	}

	if len(doc.Pages) != 3 {
		t.Fatalf("expected 3 pages, got %d", len(doc.Pages))
	}

	if !strings.Contains(doc.Pages[0].Text, "Intro text.") {
		t.Errorf("page 0 should contain intro, got %q", doc.Pages[0].Text)
	}
	if !strings.HasPrefix(doc.Pages[1].Text, "Light reactions") {
		t.Errorf("page 1 should start with section heading, got %q", doc.Pages[1].Text)
	}
	if !strings.Contains(doc.Pages[2].Text, "Dark reaction content.") {
		t.Errorf("page 2 should contain section body, got %q", doc.Pages[2].Text)
	}
}

func TestMarkdownParser_NoHeadings(t *testing.T) {
	input := "Just a paragraph.\n\nAnother paragraph.\n"
	p := &MarkdownParser{}
	doc, err := p.Parse(strings.NewReader(input), "plain.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.Title != "plain" {
		t.Errorf("expected filename title, got %q", doc.Title)
	}
	if len(doc.Pages) != 1 {
		t.Fatalf("expected 1 page, got %d", len(doc.Pages))
	}
	if !strings.Contains(doc.Pages[0].Text, "Another paragraph.") {
		t.Errorf("page should contain both paragraphs, got %q", doc.Pages[0].Text)
	}
}

func TestMarkdownParser_ListContent(t *testing.T) {
	input := "## Terms\n\n- mitosis\n- meiosis\n"
	p := &MarkdownParser{}
	doc, err := p.Parse(strings.NewReader(input), "list.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(doc.Pages) != 1 {
		t.Fatalf("expected 1 page, got %d", len(doc.Pages))
	}
	if !strings.Contains(doc.Pages[0].Text, "mitosis") {
		t.Errorf("list items should be extracted, got %q", doc.Pages[0].Text)
	}
}

func TestHTMLParser_BasicStructure(t *testing.T) {
	input := `<html><head><title>Cells</title></head><body>
<h1>Cells</h1>
<p>Cell intro.</p>
<h2>Membrane</h2>
<p>Membrane text.</p>
<script>ignored()</script>
</body></html>`
	p := &HTMLParser{}
	doc, err := p.Parse(strings.NewReader(input), "cells.html")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.Title != "Cells" {
		t.Errorf("expected title from <title>, got %q", doc.Title)
	}
	if len(doc.Pages) != 2 {
		t.Fatalf("expected 2 pages, got %d", len(doc.Pages))
	}
	if strings.Contains(doc.Pages[1].Text, "ignored") {
		t.Errorf("script content leaked into page: %q", doc.Pages[1].Text)
	}
}

func TestCSVParser_RowsGroupedIntoPages(t *testing.T) {
	var b strings.Builder
	b.WriteString("term,definition\n")
	for i := 0; i < 25; i++ {
		b.WriteString("cell,basic unit of life\n")
	}
	p := &CSVParser{}
	doc, err := p.Parse(strings.NewReader(b.String()), "terms.csv")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// 25 data rows at 20 rows per page -> 2 pages.
	if len(doc.Pages) != 2 {
		t.Fatalf("expected 2 pages, got %d", len(doc.Pages))
	}
	if !strings.Contains(doc.Pages[0].Text, "term: cell") {
		t.Errorf("rows should be rendered as header: value, got %q", doc.Pages[0].Text)
	}
}
