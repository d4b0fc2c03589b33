// Package knowledge indexes documents for semantic search: load a PDF, split
// it into overlapping chunks, embed the chunks and rank them by cosine
// similarity to a query.
package knowledge

// Document is a piece of text with its provenance. Loaders return one
// Document per page; the splitter returns one per chunk.
type Document struct {
	Content    string `json:"content"`
	Source     string `json:"source,omitempty"`
	Page       int    `json:"page,omitempty"`        // 1-based, 0 when unknown
	StartIndex int    `json:"start_index,omitempty"` // rune offset of Content in the page text
}

// Record is an embedded chunk ready for a VectorStore.
type Record struct {
	ID        string
	Document  Document
	Embedding []float32
}

// Match is a search hit. Score is the cosine similarity in [-1, 1].
type Match struct {
	ID       string   `json:"id"`
	Document Document `json:"document"`
	Score    float32  `json:"score"`
}
