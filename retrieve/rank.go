package retrieve

import (
	"math"
	"regexp"

	"github.com/poiesic/pagewise/core"
)

const (
	// maxPositionBoost is the boost given to the first chunk of the
	// document, decaying linearly to zero by the last chunk. Early
	// passages of lecture-style material tend to carry definitions and
	// framing.
	maxPositionBoost = 0.15

	// definitionBoost rewards chunks whose text looks definitional.
	definitionBoost = 0.10

	// lengthBoost rewards chunks in the concise-but-substantial band.
	lengthBoost          = 0.05
	lengthBoostMinTokens = 50
	lengthBoostMaxTokens = 200
)

// definitionPatterns are the linguistic shapes treated as definitional:
// explicit defining phrases, or a capitalized heading-like line start.
var definitionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bis defined as\b`),
	regexp.MustCompile(`(?i)\brefers to\b`),
	regexp.MustCompile(`(?i)\bis known as\b`),
	regexp.MustCompile(`(?i)\bmeans that\b`),
	regexp.MustCompile(`(?m)^[A-Z][A-Za-z][^\n]{0,60}:`),
}

// cosineSimilarity computes the cosine of the angle between two vectors.
// Mismatched dimensions or zero vectors score 0.
func cosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}

// centroid averages a set of vectors into one. All vectors must share the
// dimensionality of the first; shorter or empty inputs yield nil.
func centroid(vectors [][]float32) []float32 {
	if len(vectors) == 0 || len(vectors[0]) == 0 {
		return nil
	}
	dim := len(vectors[0])
	out := make([]float32, dim)
	count := 0
	for _, v := range vectors {
		if len(v) != dim {
			continue
		}
		for i := range v {
			out[i] += v[i]
		}
		count++
	}
	if count == 0 {
		return nil
	}
	inv := float32(1) / float32(count)
	for i := range out {
		out[i] *= inv
	}
	return out
}

// priorityBoost computes the additive boost for a chunk: linear position
// decay, definitional pattern match, and concise-length reward.
func priorityBoost(chunk *core.Chunk, totalChunks int) float32 {
	var boost float32

	if totalChunks > 1 {
		boost += maxPositionBoost * (1 - float32(chunk.SequenceNo)/float32(totalChunks-1))
	} else {
		boost += maxPositionBoost
	}

	for _, pattern := range definitionPatterns {
		if pattern.MatchString(chunk.Text) {
			boost += definitionBoost
			break
		}
	}

	if chunk.TokenEstimate >= lengthBoostMinTokens && chunk.TokenEstimate <= lengthBoostMaxTokens {
		boost += lengthBoost
	}

	return boost
}

// rankMMR scores chunks against the query centroid with priority boosts,
// then selects up to k of them by greedy Maximal Marginal Relevance:
// the first pick is the highest boosted similarity, each subsequent pick
// maximizes lambda*relevance - (1-lambda)*maxSimilarityToSelected. Ties
// break first-found. Chunks without embeddings are skipped.
func rankMMR(queryVector []float32, chunks []core.Chunk, k int, lambda float32) []core.RetrievedChunk {
	if k <= 0 || len(chunks) == 0 || len(queryVector) == 0 {
		return nil
	}

	type candidate struct {
		chunk     *core.Chunk
		relevance float32
	}

	candidates := make([]candidate, 0, len(chunks))
	for i := range chunks {
		if len(chunks[i].Embedding) == 0 {
			continue
		}
		relevance := cosineSimilarity(queryVector, chunks[i].Embedding) + priorityBoost(&chunks[i], len(chunks))
		if relevance > 1 {
			relevance = 1
		}
		candidates = append(candidates, candidate{chunk: &chunks[i], relevance: relevance})
	}
	if len(candidates) == 0 {
		return nil
	}
	if k > len(candidates) {
		k = len(candidates)
	}

	selected := make([]core.RetrievedChunk, 0, k)
	remaining := make([]bool, len(candidates))
	for i := range remaining {
		remaining[i] = true
	}

	for len(selected) < k {
		best := -1
		var bestScore float32
		for i, c := range candidates {
			if !remaining[i] {
				continue
			}

			score := c.relevance
			if len(selected) > 0 {
				var maxSim float32
				for _, s := range selected {
					sim := cosineSimilarity(c.chunk.Embedding, s.Embedding)
					if sim > maxSim {
						maxSim = sim
					}
				}
				score = lambda*c.relevance - (1-lambda)*maxSim
			}

			if best == -1 || score > bestScore {
				best = i
				bestScore = score
			}
		}
		if best == -1 {
			break
		}
		remaining[best] = false
		selected = append(selected, core.RetrievedChunk{
			Chunk:      *candidates[best].chunk,
			Similarity: candidates[best].relevance,
		})
	}

	return selected
}
