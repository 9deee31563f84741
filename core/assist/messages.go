package assist

// Role describes who a conversation message is from.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single finalised entry in the conversation transcript. It is
// immutable once appended; ordering is insertion order and is fed back into
// inference as dialogue history.
type Message struct {
	Role Role
	Text string
}

func NewUserMessage(text string) Message {
	return Message{Role: RoleUser, Text: text}
}

func NewAssistantMessage(text string) Message {
	return Message{Role: RoleAssistant, Text: text}
}
