package retrieve

import "github.com/poiesic/pagewise/core"

// truncationMarker is appended to a chunk cut down to fit the remaining
// token budget.
const truncationMarker = " [truncated]"

// compress accumulates ranked chunks in order while the running token
// count stays under maxTokens. The first chunk that would overflow is
// truncated to the remaining budget, converted to a character limit, and
// marked; accumulation then stops. Later-ranked chunks are dropped
// entirely and never reordered ahead of earlier ones.
func compress(ranked []core.RetrievedChunk, maxTokens int) ([]core.RetrievedChunk, int) {
	if maxTokens <= 0 {
		return nil, 0
	}

	var out []core.RetrievedChunk
	total := 0

	for _, rc := range ranked {
		if total+rc.TokenEstimate <= maxTokens {
			out = append(out, rc)
			total += rc.TokenEstimate
			continue
		}

		remaining := maxTokens - total
		if remaining > 0 {
			charLimit := remaining * core.CharsPerToken
			for charLimit > 0 && charLimit < len(rc.Text) && rc.Text[charLimit]&0xC0 == 0x80 {
				charLimit-- // don't cut inside a UTF-8 sequence
			}
			if charLimit > 0 && charLimit < len(rc.Text) {
				truncated := rc
				truncated.Text = rc.Text[:charLimit] + truncationMarker
				truncated.TokenEstimate = remaining
				out = append(out, truncated)
				total += remaining
			}
		}
		break
	}

	return out, total
}
