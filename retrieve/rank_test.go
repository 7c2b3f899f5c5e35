package retrieve

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/pagewise/core"
)

// testChunk builds a chunk with a unit-ish embedding and a token estimate
// outside the length-boost band so the boost math stays predictable.
func testChunk(seq int, text string, embedding []float32) core.Chunk {
	return core.Chunk{
		SequenceNo:    seq,
		PageStart:     1,
		PageEnd:       1,
		Text:          text,
		TokenEstimate: 10,
		Embedding:     embedding,
	}
}

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, cosineSimilarity([]float32{1, 0}, []float32{1, 0}), 1e-6)
	assert.InDelta(t, 0.0, cosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-6)
	assert.InDelta(t, -1.0, cosineSimilarity([]float32{1, 0}, []float32{-1, 0}), 1e-6)
	assert.Zero(t, cosineSimilarity([]float32{1, 0}, []float32{1, 0, 0}), "mismatched dimensions")
	assert.Zero(t, cosineSimilarity([]float32{0, 0}, []float32{1, 0}), "zero vector")
}

func TestCentroid(t *testing.T) {
	assert.Nil(t, centroid(nil))

	c := centroid([][]float32{{1, 0}, {0, 1}})
	require.Len(t, c, 2)
	assert.InDelta(t, 0.5, c[0], 1e-6)
	assert.InDelta(t, 0.5, c[1], 1e-6)

	// Wrong-dimension vectors are skipped, not averaged in.
	c = centroid([][]float32{{2, 0}, {1, 2, 3}})
	require.Len(t, c, 2)
	assert.InDelta(t, 2.0, c[0], 1e-6)
}

func TestPriorityBoostDefinitionPattern(t *testing.T) {
	plain := testChunk(5, "the weather was unremarkable that day", nil)
	defined := testChunk(5, "Entropy is defined as the measure of disorder.", nil)
	heading := testChunk(5, "Thermodynamics: the study of heat and work.", nil)

	base := priorityBoost(&plain, 10)
	assert.InDelta(t, base+definitionBoost, priorityBoost(&defined, 10), 1e-6)
	assert.InDelta(t, base+definitionBoost, priorityBoost(&heading, 10), 1e-6)
}

func TestPriorityBoostLengthBand(t *testing.T) {
	short := testChunk(5, "text", nil)
	short.TokenEstimate = 20
	inBand := testChunk(5, "text", nil)
	inBand.TokenEstimate = 120
	long := testChunk(5, "text", nil)
	long.TokenEstimate = 400

	assert.InDelta(t, priorityBoost(&short, 10)+lengthBoost, priorityBoost(&inBand, 10), 1e-6)
	assert.InDelta(t, priorityBoost(&short, 10), priorityBoost(&long, 10), 1e-6)
}

func TestPriorityBoostPositionDecay(t *testing.T) {
	first := testChunk(0, "text", nil)
	middle := testChunk(5, "text", nil)
	last := testChunk(9, "text", nil)

	assert.InDelta(t, maxPositionBoost, priorityBoost(&first, 10), 1e-6)
	assert.InDelta(t, 0.0, priorityBoost(&last, 10), 1e-6)
	assert.Greater(t, priorityBoost(&first, 10), priorityBoost(&middle, 10))
	assert.Greater(t, priorityBoost(&middle, 10), priorityBoost(&last, 10))
}

func TestRankMMRKOneIsTopBoostedSimilarity(t *testing.T) {
	query := []float32{1, 0, 0}
	chunks := []core.Chunk{
		testChunk(0, "far", []float32{0, 1, 0}),
		testChunk(1, "close", []float32{1, 0.05, 0}),
		testChunk(2, "middle", []float32{0.5, 0.5, 0}),
	}

	result := rankMMR(query, chunks, 1, DefaultLambda)
	require.Len(t, result, 1)
	assert.Equal(t, 1, result[0].SequenceNo)
}

func TestRankMMRLambdaOneIsPureRelevance(t *testing.T) {
	query := []float32{1, 0, 0}
	chunks := []core.Chunk{
		testChunk(0, "a", []float32{0.2, 0.9, 0}),
		testChunk(1, "b", []float32{1, 0, 0}),
		testChunk(2, "c", []float32{0.7, 0.7, 0}),
	}

	result := rankMMR(query, chunks, 3, 1.0)
	require.Len(t, result, 3)
	// Pure relevance ordering: similarity descending, diversity ignored.
	for i := 1; i < len(result); i++ {
		assert.GreaterOrEqual(t, result[i-1].Similarity, result[i].Similarity)
	}
	assert.Equal(t, 1, result[0].SequenceNo)
}

func TestRankMMRReturnsKDistinctChunks(t *testing.T) {
	query := []float32{1, 0, 0}
	chunks := make([]core.Chunk, 20)
	for i := range chunks {
		chunks[i] = testChunk(i, "chunk", []float32{float32(i+1) / 20, float32(20-i) / 20, 0})
	}

	for _, k := range []int{1, 3, 7, 20} {
		result := rankMMR(query, chunks, k, DefaultLambda)
		require.Len(t, result, k)

		seen := make(map[int]bool)
		for _, rc := range result {
			assert.False(t, seen[rc.SequenceNo], "duplicate chunk %d for k=%d", rc.SequenceNo, k)
			seen[rc.SequenceNo] = true
		}
	}
}

func TestRankMMRLowLambdaPrefersDiversity(t *testing.T) {
	query := []float32{1, 0, 0}
	chunks := []core.Chunk{
		testChunk(0, "near-dup a", []float32{1, 0, 0}),
		testChunk(1, "near-dup b", []float32{0.99, 0.01, 0}),
		testChunk(2, "different", []float32{0.5, 0.86, 0}),
	}

	result := rankMMR(query, chunks, 2, 0.2)
	require.Len(t, result, 2)
	assert.Equal(t, 0, result[0].SequenceNo)
	// The near-duplicate loses to the topically different chunk.
	assert.Equal(t, 2, result[1].SequenceNo)
}

func TestRankMMRSkipsChunksWithoutEmbeddings(t *testing.T) {
	query := []float32{1, 0, 0}
	chunks := []core.Chunk{
		testChunk(0, "no vector", nil),
		testChunk(1, "has vector", []float32{1, 0, 0}),
	}

	result := rankMMR(query, chunks, 5, DefaultLambda)
	require.Len(t, result, 1)
	assert.Equal(t, 1, result[0].SequenceNo)
}

func TestRankMMRSimilarityCappedAtOne(t *testing.T) {
	query := []float32{1, 0, 0}
	// First chunk: perfect similarity plus full position boost.
	chunks := []core.Chunk{
		testChunk(0, "Entropy is defined as disorder.", []float32{1, 0, 0}),
		testChunk(1, "tail", []float32{0, 1, 0}),
	}

	result := rankMMR(query, chunks, 2, DefaultLambda)
	require.NotEmpty(t, result)
	assert.LessOrEqual(t, result[0].Similarity, float32(1.0))
}
