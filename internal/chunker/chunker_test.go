package chunker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/cvscreener/internal/core/domain"
)

func TestSplit_ShortTextSingleChunk(t *testing.T) {
	c := New()

	chunks := c.Split("5 years Python experience")

	require.Len(t, chunks, 1)
	assert.Equal(t, "5 years Python experience", chunks[0])
}

func TestSplit_EmptyContent(t *testing.T) {
	c := New()

	assert.Nil(t, c.Split(""))
	assert.Nil(t, c.Split("   \n\n  "))
}

func TestSplit_RespectsChunkSize(t *testing.T) {
	c := New(WithChunkSize(100), WithOverlap(20))

	var b strings.Builder
	for i := 0; i < 50; i++ {
		b.WriteString("some resume sentence about skills. ")
	}

	chunks := c.Split(b.String())

	require.Greater(t, len(chunks), 1)
	for i, chunk := range chunks {
		assert.LessOrEqual(t, len(chunk), 100, "chunk %d exceeds size", i)
	}
}

func TestSplit_PrefersParagraphBreaks(t *testing.T) {
	c := New(WithChunkSize(60), WithOverlap(0))

	text := "First paragraph about work experience.\n\nSecond paragraph about education."
	chunks := c.Split(text)

	require.Len(t, chunks, 2)
	assert.Equal(t, "First paragraph about work experience.", chunks[0])
	assert.Equal(t, "Second paragraph about education.", chunks[1])
}

func TestSplit_OverlapCarriesContext(t *testing.T) {
	c := New(WithChunkSize(50), WithOverlap(20))

	text := strings.Repeat("alpha beta gamma delta ", 20)
	chunks := c.Split(text)

	require.Greater(t, len(chunks), 1)
	// Consecutive chunks share words from the overlap window.
	for i := 1; i < len(chunks); i++ {
		prevTail := chunks[i-1][len(chunks[i-1])-5:]
		assert.Contains(t, chunks[i], strings.Fields(prevTail)[0])
	}
}

func TestSplit_HardCutWithoutSeparators(t *testing.T) {
	c := New(WithChunkSize(10), WithOverlap(2))

	chunks := c.Split(strings.Repeat("x", 25))

	require.NotEmpty(t, chunks)
	for _, chunk := range chunks {
		assert.LessOrEqual(t, len(chunk), 10)
	}
	// Hard cuts advance by size-overlap, so the pieces re-cover the input.
	assert.Equal(t, "xxxxxxxxxx", chunks[0])
}

func TestNew_OverlapClampedBelowChunkSize(t *testing.T) {
	c := New(WithChunkSize(100), WithOverlap(150))

	assert.Equal(t, 25, c.overlap)
}

func TestChunkDocument_MetadataAndOrdering(t *testing.T) {
	c := New(WithChunkSize(40), WithOverlap(0))

	doc := &domain.Document{
		URL:     "cv://cv-01-jane-doe",
		Title:   "CV Jane Doe",
		Content: "Jane has 5 years Python experience.\n\nShe also led a data platform team.",
		Metadata: map[string]any{
			"document_type": "resume",
		},
	}

	chunks := c.ChunkDocument(doc)

	require.Len(t, chunks, 2)
	for i, chunk := range chunks {
		assert.NotEmpty(t, chunk.ID)
		assert.Equal(t, doc.URL, chunk.DocumentURL)
		assert.Equal(t, doc.Title, chunk.Title)
		assert.Equal(t, i, chunk.Index)
		assert.Equal(t, i, chunk.Metadata["chunk_index"])
		assert.Equal(t, 2, chunk.Metadata["total_chunks"])
		assert.Equal(t, "resume", chunk.Metadata["document_type"])
	}
	assert.NotEqual(t, chunks[0].ID, chunks[1].ID)
}

func TestChunkDocument_EmptyContent(t *testing.T) {
	c := New()

	assert.Nil(t, c.ChunkDocument(&domain.Document{URL: "cv://empty"}))
}
