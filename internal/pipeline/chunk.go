package pipeline

import (
	"errors"
	"strings"

	"docrouter/internal/analyze"
)

// ErrEmptyDocument: chunking cannot produce a chunk from empty input. This is
// a caller-input error, not a degraded result.
var ErrEmptyDocument = errors.New("document text is empty")

const paragraphSep = "\n\n"

// Chunk is one bounded slice of document text, immutable once created.
type Chunk struct {
	Position   int
	Text       string
	Language   analyze.LanguageClass
	Complexity analyze.Complexity
}

// SplitChunks packs paragraphs greedily into chunks of at most max characters,
// never splitting mid-paragraph unless a single paragraph alone exceeds the
// limit. Non-empty input always yields at least one chunk, and joining the
// chunk texts with the paragraph separator reconstructs the input.
func SplitChunks(text string, max int) ([]Chunk, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyDocument
	}
	if max <= 0 {
		max = 4000
	}

	paragraphs := strings.Split(text, paragraphSep)
	var parts []string
	current := ""
	for _, para := range paragraphs {
		if len([]rune(para)) > max {
			if current != "" {
				parts = append(parts, current)
				current = ""
			}
			parts = append(parts, hardSplit(para, max)...)
			continue
		}
		switch {
		case current == "":
			current = para
		case len([]rune(current))+len(paragraphSep)+len([]rune(para)) <= max:
			current += paragraphSep + para
		default:
			parts = append(parts, current)
			current = para
		}
	}
	if current != "" {
		parts = append(parts, current)
	}

	chunks := make([]Chunk, len(parts))
	for i, part := range parts {
		lang, cx := analyze.Analyze(part)
		chunks[i] = Chunk{Position: i, Text: part, Language: lang, Complexity: cx}
	}
	return chunks, nil
}

// hardSplit slices an oversized paragraph into max-rune pieces. Last resort;
// it is the only case where a chunk boundary can fall mid-paragraph.
func hardSplit(para string, max int) []string {
	runes := []rune(para)
	var out []string
	for len(runes) > max {
		out = append(out, string(runes[:max]))
		runes = runes[max:]
	}
	if len(runes) > 0 {
		out = append(out, string(runes))
	}
	return out
}
