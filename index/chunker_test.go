package index

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/pagewise/core"
)

func TestChunkEmptyInput(t *testing.T) {
	c := NewChunker(DefaultChunkSizeTokens, DefaultOverlapTokens, nil)

	assert.Nil(t, c.Chunk(nil))
	assert.Nil(t, c.Chunk([]core.PageText{{Page: 1, Text: "   \n\t  "}}))
}

func TestChunkSmallDocumentSingleChunk(t *testing.T) {
	c := NewChunker(DefaultChunkSizeTokens, DefaultOverlapTokens, nil)

	chunks := c.Chunk([]core.PageText{{Page: 1, Text: "a short document on one page"}})
	require.Len(t, chunks, 1)
	assert.Equal(t, 0, chunks[0].SequenceNo)
	assert.Equal(t, 1, chunks[0].PageStart)
	assert.Equal(t, 1, chunks[0].PageEnd)
	assert.Equal(t, "a short document on one page", chunks[0].Text)
	assert.Greater(t, chunks[0].TokenEstimate, 0)
}

func TestChunkEveryWordSurvives(t *testing.T) {
	c := NewChunker(40, 5, nil)

	var words []string
	for i := 0; i < 300; i++ {
		words = append(words, fmt.Sprintf("word%03d", i))
	}
	pages := []core.PageText{
		{Page: 1, Text: strings.Join(words[:150], " ")},
		{Page: 2, Text: strings.Join(words[150:], " ")},
	}

	chunks := c.Chunk(pages)
	require.NotEmpty(t, chunks)

	joined := make(map[string]bool)
	for _, chunk := range chunks {
		for _, w := range strings.Fields(chunk.Text) {
			joined[w] = true
		}
	}
	for _, w := range words {
		assert.True(t, joined[w], "word %s missing from all chunks", w)
	}
}

func TestChunkSequenceAndPageBounds(t *testing.T) {
	c := NewChunker(40, 5, nil)

	pages := []core.PageText{
		{Page: 1, Text: strings.Repeat("alpha ", 120)},
		{Page: 2, Text: strings.Repeat("bravo ", 120)},
		{Page: 3, Text: strings.Repeat("charlie ", 120)},
	}

	chunks := c.Chunk(pages)
	require.Greater(t, len(chunks), 1)

	for i, chunk := range chunks {
		assert.Equal(t, i, chunk.SequenceNo)
		assert.GreaterOrEqual(t, chunk.PageStart, 1)
		assert.LessOrEqual(t, chunk.PageEnd, 3)
		assert.LessOrEqual(t, chunk.PageStart, chunk.PageEnd)
	}
}

func TestChunkOverlapSeedsNextChunk(t *testing.T) {
	c := NewChunker(40, 5, nil)

	var words []string
	for i := 0; i < 400; i++ {
		words = append(words, fmt.Sprintf("w%03d", i))
	}
	chunks := c.Chunk([]core.PageText{{Page: 1, Text: strings.Join(words, " ")}})
	require.Greater(t, len(chunks), 1)

	for i := 1; i < len(chunks); i++ {
		prev := strings.Fields(chunks[i-1].Text)
		next := strings.Fields(chunks[i].Text)
		require.NotEmpty(t, prev)
		require.NotEmpty(t, next)
		// The next chunk opens with words carried over from the tail of
		// the previous one.
		tailStart := len(prev) - 25
		if tailStart < 0 {
			tailStart = 0
		}
		assert.Contains(t, prev[tailStart:], next[0],
			"chunk %d does not open with the tail of chunk %d", i, i-1)
	}
}

func TestChunkRespectsTokenBudget(t *testing.T) {
	budget := 50
	c := NewChunker(budget, 5, nil)

	chunks := c.Chunk([]core.PageText{{Page: 1, Text: strings.Repeat("steady ", 500)}})
	require.NotEmpty(t, chunks)

	for _, chunk := range chunks {
		approx := (len(chunk.Text) + core.CharsPerToken - 1) / core.CharsPerToken
		// A single oversized word may push one chunk past the budget, but
		// never by more than that word.
		assert.LessOrEqual(t, approx, budget+3, "chunk %d blew the budget: %d tokens", chunk.SequenceNo, approx)
	}
}
