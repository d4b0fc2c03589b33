package knowledge

import (
	"strings"
	"unicode/utf8"
)

// Splitter defaults.
const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 200
)

// DefaultSeparators are tried in order: paragraphs, lines, words, runes.
var DefaultSeparators = []string{"\n\n", "\n", " ", ""}

// Splitter splits text recursively on a list of separators until every
// chunk fits in Size runes, then merges neighbouring pieces back up to Size
// with about Overlap runes shared between consecutive chunks. Separators are
// kept at the start of the piece that follows them.
type Splitter struct {
	Size       int
	Overlap    int
	Separators []string
}

// NewSplitter returns a Splitter; size <= 0 and overlap < 0 select the defaults.
func NewSplitter(size, overlap int) Splitter {
	if size <= 0 {
		size = DefaultChunkSize
	}
	if overlap < 0 {
		overlap = DefaultChunkOverlap
	}
	if overlap >= size {
		overlap = size / 5
	}
	return Splitter{Size: size, Overlap: overlap, Separators: DefaultSeparators}
}

// SplitText returns the chunks of text, trimmed, without empty chunks.
func (s Splitter) SplitText(text string) []string {
	seps := s.Separators
	if len(seps) == 0 {
		seps = DefaultSeparators
	}
	return s.split(text, seps)
}

// SplitDocuments splits every document and records each chunk's rune
// offset in its source text.
func (s Splitter) SplitDocuments(docs []Document) []Document {
	var out []Document
	for _, d := range docs {
		index, prevLen := 0, 0
		for _, c := range s.SplitText(d.Content) {
			from := max(0, index+prevLen-s.Overlap)
			index = runeIndex(d.Content, c, from)
			prevLen = utf8.RuneCountInString(c)
			out = append(out, Document{Content: c, Source: d.Source, Page: d.Page, StartIndex: index})
		}
	}
	return out
}

// SplitDocuments splits docs with NewSplitter(size, overlap).
func SplitDocuments(docs []Document, size, overlap int) []Document {
	return NewSplitter(size, overlap).SplitDocuments(docs)
}

func (s Splitter) split(text string, seps []string) []string {
	sep := seps[len(seps)-1]
	var rest []string
	for i, candidate := range seps {
		if candidate == "" {
			sep = candidate
			break
		}
		if strings.Contains(text, candidate) {
			sep = candidate
			rest = seps[i+1:]
			break
		}
	}

	var final, good []string
	for _, piece := range splitKeepingSeparator(text, sep) {
		if utf8.RuneCountInString(piece) < s.Size {
			good = append(good, piece)
			continue
		}
		if len(good) > 0 {
			final = append(final, s.merge(good)...)
			good = nil
		}
		if len(rest) == 0 {
			final = append(final, piece)
		} else {
			final = append(final, s.split(piece, rest)...)
		}
	}
	if len(good) > 0 {
		final = append(final, s.merge(good)...)
	}
	return final
}

// merge packs pieces into chunks of at most Size runes, carrying up to
// Overlap runes of trailing pieces into the next chunk.
func (s Splitter) merge(pieces []string) []string {
	var (
		chunks  []string
		current []string
		total   int
	)
	for _, p := range pieces {
		n := utf8.RuneCountInString(p)
		if total+n > s.Size && len(current) > 0 {
			if c := strings.TrimSpace(strings.Join(current, "")); c != "" {
				chunks = append(chunks, c)
			}
			for total > s.Overlap || (total+n > s.Size && total > 0) {
				total -= utf8.RuneCountInString(current[0])
				current = current[1:]
			}
		}
		current = append(current, p)
		total += n
	}
	if c := strings.TrimSpace(strings.Join(current, "")); c != "" {
		chunks = append(chunks, c)
	}
	return chunks
}

// splitKeepingSeparator splits on sep and prefixes every piece but the
// first with sep. An empty sep splits into runes. Empty pieces are dropped.
func splitKeepingSeparator(text, sep string) []string {
	var pieces []string
	if sep == "" {
		for _, r := range text {
			pieces = append(pieces, string(r))
		}
		return pieces
	}
	for i, p := range strings.Split(text, sep) {
		if i > 0 {
			p = sep + p
		}
		if p != "" {
			pieces = append(pieces, p)
		}
	}
	return pieces
}

// runeIndex finds sub in text at or after rune offset from and returns its
// rune offset, or -1.
func runeIndex(text, sub string, from int) int {
	byteFrom := len(text)
	n := 0
	for i := range text {
		if n == from {
			byteFrom = i
			break
		}
		n++
	}
	if from == 0 {
		byteFrom = 0
	}
	i := strings.Index(text[byteFrom:], sub)
	if i < 0 {
		return -1
	}
	return from + utf8.RuneCountInString(text[byteFrom:byteFrom+i])
}
