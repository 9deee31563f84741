package groq

import (
	"github.com/pantrypal/assistant-core/core/assist"
)

type message struct {
	Role    messageRole `json:"role"`
	Content string      `json:"content"`
}

type messageRole string

const (
	messageRoleSystem    messageRole = "system"
	messageRoleUser      messageRole = "user"
	messageRoleAssistant messageRole = "assistant"
)

func toMessages(instructions string, history []assist.Message) []message {
	messages := []message{}
	if instructions != "" {
		messages = append(messages, message{
			Role:    messageRoleSystem,
			Content: instructions,
		})
	}
	for _, msg := range history {
		if msg.Text == "" {
			continue
		}

		role := messageRoleUser
		if msg.Role == assist.RoleAssistant {
			role = messageRoleAssistant
		}
		messages = append(messages, message{Role: role, Content: msg.Text})
	}
	return messages
}
