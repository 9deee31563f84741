package conversationlog

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/pantrypal/assistant-core/core/assist"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()

	store, err := Open(filepath.Join(t.TempDir(), "assistant", "conversations.db"))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestAppendAndReadBackMessagesInOrder(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	turns := []assist.Message{
		assist.NewUserMessage("add milk to my list"),
		assist.NewAssistantMessage("Add milk to your list?"),
		assist.NewAssistantMessage("Done."),
	}
	for _, msg := range turns {
		if err := store.AppendMessage(ctx, "session-1", msg); err != nil {
			t.Fatalf("failed to append message: %v", err)
		}
	}

	messages, err := store.Messages(ctx, "session-1")
	if err != nil {
		t.Fatalf("failed to read messages: %v", err)
	}
	if len(messages) != len(turns) {
		t.Fatalf("expected %d messages, got %d", len(turns), len(messages))
	}
	for i, msg := range messages {
		if msg != turns[i] {
			t.Fatalf("message %d mismatch: got %+v, want %+v", i, msg, turns[i])
		}
	}
}

func TestListSessionsSummarisesByFirstUtterance(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	if err := store.AppendMessage(ctx, "session-1", assist.NewUserMessage("do we have eggs?")); err != nil {
		t.Fatalf("failed to append: %v", err)
	}
	if err := store.AppendMessage(ctx, "session-1", assist.NewAssistantMessage("Yes, six.")); err != nil {
		t.Fatalf("failed to append: %v", err)
	}

	summaries, err := store.ListSessions(ctx)
	if err != nil {
		t.Fatalf("failed to list sessions: %v", err)
	}
	if len(summaries) != 1 {
		t.Fatalf("expected one session, got %d", len(summaries))
	}

	summary := summaries[0]
	if summary.ID != "session-1" || summary.Messages != 2 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if summary.FirstUtterance != "do we have eggs?" {
		t.Fatalf("expected first utterance summary, got %q", summary.FirstUtterance)
	}
}

func TestMessagesForUnknownSessionIsEmpty(t *testing.T) {
	store := openTestStore(t)

	messages, err := store.Messages(context.Background(), "missing")
	if err != nil {
		t.Fatalf("expected no error for unknown session, got %v", err)
	}
	if len(messages) != 0 {
		t.Fatalf("expected no messages, got %d", len(messages))
	}
}
