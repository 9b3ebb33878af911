package service

import (
	"fmt"
	"strings"

	"github.com/liliang-cn/ragdesk/internal/domain"
	"github.com/liliang-cn/ragdesk/internal/llm"
)

const ragSystemPrompt = `You are a helpful AI assistant that answers questions based on provided context.
Rules:
- Answer based on the provided context
- If the context doesn't contain relevant information, say so
- Be concise and accurate
- Cite sources when appropriate
- If you're unsure, acknowledge it`

const bookingSystemPrompt = "You are a booking information extraction assistant. Extract booking details and return only JSON."

// formatContext renders retrieved chunks as numbered sources
func formatContext(sources []domain.Source) string {
	if len(sources) == 0 {
		return "No relevant context found."
	}
	parts := make([]string, len(sources))
	for i, src := range sources {
		parts[i] = fmt.Sprintf("[Source %d - %s (relevance: %.2f)]:\n%s", i+1, src.DocumentName, src.SimilarityScore, src.Text)
	}
	return strings.Join(parts, "\n\n")
}

// buildRAGMessages assembles the system rules, the last maxHistory turns
// and the question with its context
func buildRAGMessages(history []*domain.Message, sources []domain.Source, question string, maxHistory int) []llm.Message {
	msgs := []llm.Message{{Role: domain.RoleSystem, Content: ragSystemPrompt}}

	if maxHistory > 0 && len(history) > maxHistory {
		history = history[len(history)-maxHistory:]
	}
	for _, h := range history {
		if h.Role != domain.RoleUser && h.Role != domain.RoleAssistant {
			continue
		}
		msgs = append(msgs, llm.Message{Role: h.Role, Content: h.Content})
	}

	msgs = append(msgs, llm.Message{
		Role: domain.RoleUser,
		Content: fmt.Sprintf("Context:\n%s\n\nQuestion: %s\n\nPlease answer the question based on the context provided above.",
			formatContext(sources), question),
	})
	return msgs
}

func bookingExtractionPrompt(message, today string) string {
	return fmt.Sprintf(`Extract booking information from the following message. Return ONLY a JSON object with these fields:
- name: person's full name
- email: email address
- date: date in YYYY-MM-DD format
- time: time in HH:MM format (24-hour)

If any information is missing, use null for that field.
Today's date is %s; resolve relative dates such as "tomorrow" against it.

Message: %s

Return only the JSON, no other text.`, today, message)
}
