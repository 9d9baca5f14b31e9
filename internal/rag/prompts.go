package rag

import (
	"fmt"
	"strings"

	"kmchat/internal/storage"
)

const (
	titleInstruction = "Extract one short keyword, at most 12 characters, that summarizes the user's question. " +
		"Reply with the keyword only, no punctuation and no explanation."

	reformulateInstruction = "Given the conversation history, rewrite the user's latest question so it can be " +
		"understood on its own without the history. Do not answer the question. " +
		"Reply with the rewritten question only."
)

// answerSystemPrompt builds the grounded-answer instruction. When no context
// is available the model is told to answer from general knowledge instead of
// hallucinating citations.
func answerSystemPrompt(language string, grounded bool) string {
	if grounded {
		return fmt.Sprintf("You are a knowledge-base assistant. Answer the question using only the "+
			"information in the context below. If the context does not contain enough information, "+
			"say so explicitly. Respond in %s.", language)
	}
	return fmt.Sprintf("You are a knowledge-base assistant. No documents have been indexed for this "+
		"conversation, so answer from general knowledge and say that no uploaded documents were "+
		"consulted. Respond in %s.", language)
}

// formatContext renders retrieved spans with stable "doc i" labels in
// retrieval-rank order.
func formatContext(sources []Source) string {
	var b strings.Builder
	b.WriteString("--- Context ---\n\n")
	for i, s := range sources {
		b.WriteString(fmt.Sprintf("doc %d (%s):\n%s\n\n", i+1, s.DocName, s.Text))
	}
	b.WriteString("--- End Context ---")
	return b.String()
}

// formatHistory renders prior turns for the reformulation prompt.
func formatHistory(history []storage.TurnRecord) string {
	var b strings.Builder
	for _, turn := range history {
		b.WriteString("User: ")
		b.WriteString(turn.UserQuery)
		b.WriteString("\nAssistant: ")
		b.WriteString(turn.AIResponse)
		b.WriteString("\n")
	}
	return b.String()
}
