package knowledge

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// ErrNoText is returned when a PDF has no extractable text.
var ErrNoText = errors.New("knowledge: pdf has no extractable text")

// LoadPDF returns one Document per page that has text. Page numbers are
// 1-based; Source is path.
func LoadPDF(path string) ([]Document, error) {
	if path == "" {
		return nil, errors.New("knowledge: PDF_PATH not set")
	}
	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("knowledge: open pdf %s: %w", path, err)
	}
	defer f.Close()

	var docs []Document
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("knowledge: pdf %s page %d: %w", path, i, err)
		}
		if strings.TrimSpace(text) == "" {
			continue
		}
		docs = append(docs, Document{Content: text, Source: path, Page: i})
	}
	if len(docs) == 0 {
		return nil, ErrNoText
	}
	return docs, nil
}
