package indexer

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

// pagePrefixRunes is how much of a chunk is looked up in the source pages.
const pagePrefixRunes = 50

// Chunker splits text into overlapping windows measured in runes.
type Chunker struct {
	size    int
	overlap int
}

// NewChunker creates a chunker. overlap must be in [0, size).
func NewChunker(size, overlap int) (*Chunker, error) {
	if size <= 0 {
		return nil, fmt.Errorf("chunk size must be greater than 0, got %d", size)
	}
	if overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("chunk overlap must be in [0, %d), got %d", size, overlap)
	}
	return &Chunker{size: size, overlap: overlap}, nil
}

// Size returns the maximum chunk length in runes.
func (c *Chunker) Size() int { return c.size }

// Overlap returns the number of runes shared by consecutive windows.
func (c *Chunker) Overlap() int { return c.overlap }

// ChunkPages splits the concatenation of pages (joined by "\n") and resolves
// each chunk's page from its prefix.
func (c *Chunker) ChunkPages(pages []string) []Chunk {
	chunks := c.Split(strings.Join(pages, "\n"))
	resolvePages(chunks, pages)
	return chunks
}

// Split cuts text into windows of at most size runes. Consecutive windows share
// overlap runes. A window ends at the last paragraph, line or sentence boundary
// in its second half when one exists. Whitespace-only windows are dropped.
func (c *Chunker) Split(text string) []Chunk {
	runes := []rune(text)
	var chunks []Chunk

	start := 0
	for start < len(runes) {
		end := start + c.size
		if end >= len(runes) {
			end = len(runes)
		} else {
			end = c.boundary(runes, start, end)
		}

		if t := strings.TrimSpace(string(runes[start:end])); t != "" {
			chunks = append(chunks, Chunk{Index: len(chunks), Page: PageUnknown, Text: t})
		}
		if end == len(runes) {
			break
		}
		// boundary never returns a cut at or before start+overlap, so this advances.
		start = end - c.overlap
	}
	return chunks
}

// boundary picks the split point for the window runes[start:end].
func (c *Chunker) boundary(runes []rune, start, end int) int {
	minCut := c.size / 2
	if minCut <= c.overlap {
		minCut = c.overlap + 1
	}

	window := string(runes[start:end])
	for _, sep := range []string{"\n\n", "\n", ". "} {
		idx := strings.LastIndex(window, sep)
		if idx < 0 {
			continue
		}
		cut := utf8.RuneCountInString(window[:idx+len(sep)])
		if cut >= minCut {
			return start + cut
		}
	}
	return end
}

// resolvePages sets each chunk's page to the first page containing the chunk's
// prefix, searching from the previous chunk's page onward before falling back
// to the whole document. Unresolvable chunks keep PageUnknown.
func resolvePages(chunks []Chunk, pages []string) {
	from := 0
	for i := range chunks {
		prefix := chunkPrefix(chunks[i].Text)
		page := findPage(pages, prefix, from)
		if page < 0 {
			page = findPage(pages, prefix, 0)
		}
		if page < 0 {
			chunks[i].Page = PageUnknown
			continue
		}
		chunks[i].Page = strconv.Itoa(page + 1)
		from = page
	}
}

func findPage(pages []string, prefix string, from int) int {
	for p := from; p < len(pages); p++ {
		if strings.Contains(pages[p], prefix) {
			return p
		}
	}
	return -1
}

func chunkPrefix(text string) string {
	if utf8.RuneCountInString(text) <= pagePrefixRunes {
		return text
	}
	return string([]rune(text)[:pagePrefixRunes])
}
