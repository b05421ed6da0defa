package ai

import (
	"github.com/MasterHarun/fantastic-octo-fiesta/internal/models"
)

// BuildMessages assembles the bounded conversation context for a completion
// request: the persona prompt as the system message, then for each retained
// turn the user message (if present) followed by the assistant message (if
// present), and the new user prompt last. No truncation happens here; the
// only size control is the evictor acting when the turn is written back.
func BuildMessages(personaPrompt string, history []models.ChatEntry, prompt string) []models.Message {
	messages := make([]models.Message, 0, 2*len(history)+2)
	messages = append(messages, models.Message{
		Role:    models.RoleSystem,
		Content: personaPrompt,
	})

	for _, entry := range history {
		if entry.UserText != "" {
			messages = append(messages, models.Message{
				Role:    models.RoleUser,
				Content: entry.UserText,
			})
		}
		if entry.AIText != "" {
			messages = append(messages, models.Message{
				Role:    models.RoleAssistant,
				Content: entry.AIText,
			})
		}
	}

	return append(messages, models.Message{
		Role:    models.RoleUser,
		Content: prompt,
	})
}
