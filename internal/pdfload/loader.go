// Package pdfload extracts per-page plain text from PDF files.
package pdfload

import (
	"errors"
	"fmt"
	"os"

	"github.com/ledongthuc/pdf"

	"bookwise/internal/model"
)

// ErrUnreadableDocument reports a file that is not a valid PDF or cannot be
// opened at all.
var ErrUnreadableDocument = errors.New("unreadable document")

type Loader struct{}

func NewLoader() *Loader {
	return &Loader{}
}

// Load opens the PDF at path and returns one Page per document page, in
// order. Pages without extractable text (image-only scans, blanks) are kept
// as empty-text pages so page numbering stays accurate for citations. A
// per-page extraction failure degrades to an empty page; only a file that
// cannot be opened as a PDF fails the whole load.
func (l *Loader) Load(path string) ([]model.Page, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", ErrUnreadableDocument, path, err)
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("%w: stat %s: %v", ErrUnreadableDocument, path, err)
	}

	reader, err := pdf.NewReader(f, stat.Size())
	if err != nil {
		return nil, fmt.Errorf("%w: parse %s: %v", ErrUnreadableDocument, path, err)
	}

	numPages := reader.NumPage()
	pages := make([]model.Page, 0, numPages)
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			pages = append(pages, model.Page{Number: i})
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			text = ""
		}
		pages = append(pages, model.Page{Number: i, Text: text})
	}
	return pages, nil
}
