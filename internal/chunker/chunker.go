package chunker

import "strings"

// Splitting policy. Fixed, not caller-configurable: every ingestion call uses
// the same chunk geometry so retrieval quality stays comparable across uploads.
const (
	maxChunkSize = 512
	chunkOverlap = 50
)

// Chunk is one bounded slice of a document's text. Ordinal is its position
// within the document, counted from zero.
type Chunk struct {
	Text    string
	Ordinal int
}

// Splitter splits text recursively: it tries coarse separators first
// (paragraphs, then lines, then sentences, then words) and only descends to a
// finer separator for pieces that are still over the size limit.
type Splitter struct {
	maxSize    int
	overlap    int
	separators []string
}

// New returns a splitter with the fixed chunk size and overlap policy.
func New() *Splitter {
	return &Splitter{
		maxSize:    maxChunkSize,
		overlap:    chunkOverlap,
		separators: []string{"\n\n", "\n", ". ", " "},
	}
}

// Split breaks text into ordered, overlapping chunks. Whitespace-only input
// yields no chunks.
func (s *Splitter) Split(text string) []Chunk {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	pieces := s.split(text, s.separators)

	chunks := make([]Chunk, 0, len(pieces))
	prev := ""
	for _, piece := range pieces {
		piece = strings.TrimSpace(piece)
		if piece == "" {
			continue
		}
		body := piece
		if prev != "" && s.overlap > 0 {
			body = tailRunes(prev, s.overlap) + " " + piece
		}
		chunks = append(chunks, Chunk{Text: body, Ordinal: len(chunks)})
		prev = piece
	}
	return chunks
}

// split returns pieces no longer than maxSize runes, descending through the
// separator list for pieces that remain too large.
func (s *Splitter) split(text string, seps []string) []string {
	if runeLen(text) <= s.maxSize {
		return []string{text}
	}
	if len(seps) == 0 {
		return s.hardCut(text)
	}

	sep := seps[0]
	parts := strings.SplitAfter(text, sep)
	if len(parts) == 1 {
		return s.split(text, seps[1:])
	}

	var out []string
	var buf strings.Builder
	bufRunes := 0

	flush := func() {
		if buf.Len() > 0 {
			out = append(out, buf.String())
			buf.Reset()
			bufRunes = 0
		}
	}

	for _, part := range parts {
		n := runeLen(part)
		if n > s.maxSize {
			flush()
			out = append(out, s.split(part, seps[1:])...)
			continue
		}
		if bufRunes+n > s.maxSize {
			flush()
		}
		buf.WriteString(part)
		bufRunes += n
	}
	flush()
	return out
}

// hardCut slices text at fixed rune offsets when no separator is left.
func (s *Splitter) hardCut(text string) []string {
	runes := []rune(text)
	var out []string
	for start := 0; start < len(runes); start += s.maxSize {
		end := start + s.maxSize
		if end > len(runes) {
			end = len(runes)
		}
		out = append(out, string(runes[start:end]))
	}
	return out
}

func runeLen(s string) int {
	return len([]rune(s))
}

func tailRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[len(runes)-n:])
}
