package index

import (
	"strings"

	"github.com/poiesic/pagewise/core"
)

const (
	// DefaultChunkSizeTokens is the default chunk budget in estimated tokens.
	DefaultChunkSizeTokens = 250
	// DefaultOverlapTokens is the default number of words seeded from the
	// end of the prior chunk into the next one.
	DefaultOverlapTokens = 30
)

// Chunker splits per-page text into token-bounded, overlapping passages
// preserving page provenance.
type Chunker struct {
	chunkSizeTokens int
	overlapTokens   int
	estimator       core.TokenEstimator
}

// NewChunker creates a chunker. Non-positive sizes fall back to defaults;
// a nil estimator falls back to the chars/4 ratio estimator.
func NewChunker(chunkSizeTokens, overlapTokens int, estimator core.TokenEstimator) *Chunker {
	if chunkSizeTokens <= 0 {
		chunkSizeTokens = DefaultChunkSizeTokens
	}
	if overlapTokens < 0 {
		overlapTokens = 0
	}
	if estimator == nil {
		estimator = core.NewRatioEstimator()
	}
	return &Chunker{
		chunkSizeTokens: chunkSizeTokens,
		overlapTokens:   overlapTokens,
		estimator:       estimator,
	}
}

// pagedWord is one whitespace-delimited word with the page it came from.
type pagedWord struct {
	word string
	page int
}

// Chunk splits the pages into chunks by greedy word accumulation: a chunk
// closes when adding the next word would exceed the token budget, and the
// next chunk seeds its buffer with the last overlapTokens words of the
// prior chunk. The final partial buffer is always flushed regardless of
// size. Pages with no text contribute nothing; zero total words yields
// zero chunks.
func (c *Chunker) Chunk(pages []core.PageText) []core.Chunk {
	var words []pagedWord
	for _, page := range pages {
		for _, w := range strings.Fields(page.Text) {
			words = append(words, pagedWord{word: w, page: page.Page})
		}
	}
	if len(words) == 0 {
		return nil
	}

	var chunks []core.Chunk
	var buf []pagedWord

	flush := func() {
		if len(buf) == 0 {
			return
		}
		parts := make([]string, len(buf))
		for i, pw := range buf {
			parts[i] = pw.word
		}
		text := strings.Join(parts, " ")
		chunks = append(chunks, core.Chunk{
			SequenceNo:    len(chunks),
			PageStart:     buf[0].page,
			PageEnd:       buf[len(buf)-1].page,
			Text:          text,
			TokenEstimate: c.estimator.Estimate(text),
		})
	}

	bufLen := 0 // character length of the joined buffer
	for _, pw := range words {
		candidate := bufLen + len(pw.word)
		if bufLen > 0 {
			candidate++ // joining space
		}

		// Budget check uses the fixed chars-per-token ratio on the running
		// character count; the pluggable estimator prices the final text.
		candidateTokens := (candidate + core.CharsPerToken - 1) / core.CharsPerToken
		if len(buf) > 0 && candidateTokens > c.chunkSizeTokens {
			flush()

			// Seed the next chunk with the tail of the previous one.
			overlap := c.overlapTokens
			if overlap > len(buf) {
				overlap = len(buf)
			}
			buf = append([]pagedWord{}, buf[len(buf)-overlap:]...)
			bufLen = 0
			for i, seeded := range buf {
				if i > 0 {
					bufLen++
				}
				bufLen += len(seeded.word)
			}
		}

		if bufLen > 0 {
			bufLen++
		}
		buf = append(buf, pw)
		bufLen += len(pw.word)
	}
	flush()

	return chunks
}
