package chat

import (
	"fmt"
	"strings"

	"github.com/poiesic/pagewise/ai"
	"github.com/poiesic/pagewise/core"
)

const (
	// promptTokenCeiling is the hard estimated-token ceiling for the whole
	// assembled prompt.
	promptTokenCeiling = 2800

	// memoryReserve is held back from the ceiling when fitting memory, so
	// context chunks always have room.
	memoryReserve = 500

	// chunkReserve is held back from the ceiling when appending chunks, so
	// the user message and reply framing always fit.
	chunkReserve = 200

	// memoryEllipsis marks a memory segment truncated to fit its budget.
	memoryEllipsis = "\n[...earlier conversation truncated]"

	// noContextNotice replaces the context section when no chunks fit or
	// none were retrieved.
	noContextNotice = "No relevant sections of the document were found for this question."
)

// DefaultSystemPrompt instructs the model to answer from the supplied
// document context and cite pages.
const DefaultSystemPrompt = `You are a study assistant answering questions about a document. Ground every answer in the provided document sections and mention the page numbers you drew from. If the sections do not contain the answer, say so plainly instead of guessing.`

// Prompt is an assembled model input: the role-tagged messages, the
// citations mirroring exactly the chunks included, and the total
// estimated token cost.
type Prompt struct {
	Messages  []ai.Message
	Citations []core.Citation
	Tokens    int
}

// buildPrompt assembles system instructions, document context,
// conversational memory, and the user message under the token ceiling.
//
// Inclusion and truncation priority: system instructions and the document
// label are never truncated; memory is included whole if it fits within
// ceiling-memoryReserve and otherwise cut to the remaining character
// budget with an ellipsis marker; chunks are appended in rank order until
// the next would cross ceiling-chunkReserve. Partial chunk fitting
// already happened during retrieval compression, so chunks are kept or
// dropped whole here.
func buildPrompt(systemPrompt, documentLabel, memory, userMessage string, ranked []core.RetrievedChunk, estimator core.TokenEstimator) Prompt {
	if systemPrompt == "" {
		systemPrompt = DefaultSystemPrompt
	}

	var system strings.Builder
	system.WriteString(systemPrompt)
	system.WriteString("\n\nDocument: ")
	system.WriteString(documentLabel)

	used := estimator.Estimate(system.String()) + estimator.Estimate(userMessage)

	// Memory, bounded so chunks still have room.
	if memory != "" {
		memoryBudget := promptTokenCeiling - memoryReserve - used
		if memoryBudget <= 0 {
			memory = ""
		} else {
			memoryTokens := estimator.Estimate(memory)
			if memoryTokens > memoryBudget {
				charLimit := memoryBudget*core.CharsPerToken - len(memoryEllipsis)
				if charLimit < 0 {
					charLimit = 0
				}
				if charLimit < len(memory) {
					memory = strings.TrimSpace(memory[:charLimit]) + memoryEllipsis
				}
				memoryTokens = estimator.Estimate(memory)
			}
			used += memoryTokens
		}
	}

	// Chunks in rank order, whole or not at all.
	var context strings.Builder
	var citations []core.Citation
	chunkLimit := promptTokenCeiling - chunkReserve
	for _, rc := range ranked {
		if used+rc.TokenEstimate > chunkLimit {
			break
		}
		fmt.Fprintf(&context, "[p. %d-%d] %s\n\n", rc.PageStart, rc.PageEnd, rc.Text)
		citations = append(citations, rc.Citation())
		used += rc.TokenEstimate
	}

	system.WriteString("\n\nRelevant document sections:\n")
	if len(citations) == 0 {
		system.WriteString(noContextNotice)
	} else {
		system.WriteString(strings.TrimRight(context.String(), "\n"))
	}

	if memory != "" {
		system.WriteString("\n\nConversation so far:\n")
		system.WriteString(memory)
	}

	messages := []ai.Message{
		{Role: ai.RoleSystem, Content: system.String()},
		{Role: ai.RoleUser, Content: userMessage},
	}

	return Prompt{
		Messages:  messages,
		Citations: citations,
		Tokens:    estimator.Estimate(system.String()) + estimator.Estimate(userMessage),
	}
}
