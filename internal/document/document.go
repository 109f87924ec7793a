package document

// Document is the parsed form of one input file.
type Document struct {
	Title string // Document title (from metadata or filename)
	Pages []Page // Ordered page texts
}

// Page holds one page's extracted text. Page numbers are 1-based and
// dense in emission order. Non-paginated formats (markdown, html, txt)
// map sections or paragraph groups onto synthetic pages.
type Page struct {
	Number int
	Text   string
}
