package assistant

import (
	"sync"

	"github.com/pantrypal/assistant-core/core/assist"
)

// transcriptStore is the append-only conversation log of a session. The
// state machine is its single writer; snapshots may be read concurrently.
// There is no deletion short of a whole-session reset.
type transcriptStore struct {
	mu sync.RWMutex

	messages []assist.Message
}

func (t *transcriptStore) appendUser(text string) assist.Message {
	msg := assist.NewUserMessage(text)

	t.mu.Lock()
	t.messages = append(t.messages, msg)
	t.mu.Unlock()
	return msg
}

func (t *transcriptStore) appendAssistant(text string) assist.Message {
	msg := assist.NewAssistantMessage(text)

	t.mu.Lock()
	t.messages = append(t.messages, msg)
	t.mu.Unlock()
	return msg
}

// history returns a copy so readers never observe later appends.
func (t *transcriptStore) history() []assist.Message {
	t.mu.RLock()
	defer t.mu.RUnlock()

	history := make([]assist.Message, len(t.messages))
	copy(history, t.messages)
	return history
}

func (t *transcriptStore) len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.messages)
}

func (t *transcriptStore) reset() {
	t.mu.Lock()
	t.messages = nil
	t.mu.Unlock()
}
