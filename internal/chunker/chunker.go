// Package chunker splits resume text into overlapping chunks sized for
// embedding. Splitting is recursive: paragraph breaks are preferred over
// line breaks, line breaks over sentence ends, and so on down to a hard
// character cut.
package chunker

import (
	"strings"

	"github.com/google/uuid"

	"github.com/custodia-labs/cvscreener/internal/core/domain"
)

// DefaultChunkSize is the default number of characters per chunk.
const DefaultChunkSize = 1000

// DefaultChunkOverlap is the default number of overlapping characters.
const DefaultChunkOverlap = 200

// defaultSeparators are tried in order; the first one present in the text
// wins. The empty separator is the hard-cut fallback.
var defaultSeparators = []string{"\n\n", "\n", ". ", " ", ""}

// Chunker splits document content into overlapping chunks.
type Chunker struct {
	chunkSize  int
	overlap    int
	separators []string
}

// Option configures the chunker.
type Option func(*Chunker)

// WithChunkSize sets the chunk size in characters.
func WithChunkSize(size int) Option {
	return func(c *Chunker) {
		if size > 0 {
			c.chunkSize = size
		}
	}
}

// WithOverlap sets the overlap between chunks in characters.
func WithOverlap(overlap int) Option {
	return func(c *Chunker) {
		if overlap >= 0 {
			c.overlap = overlap
		}
	}
}

// New creates a chunker with the given options.
func New(opts ...Option) *Chunker {
	c := &Chunker{
		chunkSize:  DefaultChunkSize,
		overlap:    DefaultChunkOverlap,
		separators: defaultSeparators,
	}

	for _, opt := range opts {
		opt(c)
	}

	// Overlap must leave room for the chunk to advance.
	if c.overlap >= c.chunkSize {
		c.overlap = c.chunkSize / 4
	}

	return c
}

// ChunkDocument splits a document into chunks carrying the owning document
// URL, title and per-chunk metadata. Empty content produces no chunks.
func (c *Chunker) ChunkDocument(doc *domain.Document) []domain.Chunk {
	pieces := c.Split(doc.Content)
	if len(pieces) == 0 {
		return nil
	}

	chunks := make([]domain.Chunk, 0, len(pieces))
	for i, piece := range pieces {
		metadata := make(map[string]any, len(doc.Metadata)+3)
		for k, v := range doc.Metadata {
			metadata[k] = v
		}
		metadata["chunk_index"] = i
		metadata["total_chunks"] = len(pieces)
		metadata["chunk_size"] = len(piece)

		chunks = append(chunks, domain.Chunk{
			ID:          uuid.New().String(),
			DocumentURL: doc.URL,
			Title:       doc.Title,
			Content:     piece,
			Index:       i,
			Metadata:    metadata,
		})
	}

	return chunks
}

// Split breaks text into pieces no longer than the configured chunk size,
// preferring natural boundaries. Consecutive pieces overlap by up to the
// configured overlap.
func (c *Chunker) Split(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	return c.split(text, c.separators)
}

func (c *Chunker) split(text string, separators []string) []string {
	if len(text) <= c.chunkSize {
		return []string{text}
	}

	sep := ""
	rest := separators
	for i, s := range separators {
		if s == "" {
			sep = ""
			break
		}
		if strings.Contains(text, s) {
			sep = s
			rest = separators[i+1:]
			break
		}
	}

	if sep == "" {
		return c.hardSplit(text)
	}

	parts := strings.Split(text, sep)

	var final []string
	var pending []string

	flush := func() {
		if len(pending) > 0 {
			final = append(final, c.merge(pending, sep)...)
			pending = nil
		}
	}

	for _, part := range parts {
		if len(part) <= c.chunkSize {
			pending = append(pending, part)
			continue
		}
		// Oversized part: descend to finer separators.
		flush()
		final = append(final, c.split(part, rest)...)
	}
	flush()

	return final
}

// merge greedily joins small splits into chunks up to chunkSize, keeping a
// tail of previous splits as overlap for the next chunk.
func (c *Chunker) merge(splits []string, sep string) []string {
	var chunks []string
	var window []string
	total := 0 // sum of split lengths in window, excluding separators

	windowLen := func() int {
		if len(window) == 0 {
			return 0
		}
		return total + len(sep)*(len(window)-1)
	}

	emit := func() {
		if chunk := strings.TrimSpace(strings.Join(window, sep)); chunk != "" {
			chunks = append(chunks, chunk)
		}
	}

	for _, s := range splits {
		added := len(s) + len(sep)
		if len(window) > 0 && windowLen()+added > c.chunkSize {
			emit()
			// Shrink the window down to the overlap budget, further if the
			// next split still would not fit.
			for len(window) > 0 && (windowLen() > c.overlap || windowLen()+added > c.chunkSize) {
				total -= len(window[0])
				window = window[1:]
			}
		}
		window = append(window, s)
		total += len(s)
	}

	if len(window) > 0 {
		emit()
	}

	return chunks
}

// hardSplit cuts text into fixed-size pieces when no separator applies.
func (c *Chunker) hardSplit(text string) []string {
	step := c.chunkSize - c.overlap
	if step <= 0 {
		step = c.chunkSize
	}

	var chunks []string
	for start := 0; start < len(text); start += step {
		end := start + c.chunkSize
		if end > len(text) {
			end = len(text)
		}
		chunks = append(chunks, text[start:end])
		if end == len(text) {
			break
		}
	}

	return chunks
}
