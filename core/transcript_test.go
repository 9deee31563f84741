package assistant

import (
	"fmt"
	"sync"
	"testing"

	"github.com/pantrypal/assistant-core/core/assist"
)

func TestTranscriptAppendOrder(t *testing.T) {
	var store transcriptStore

	store.appendUser("add milk to my list")
	store.appendAssistant("Add milk to your list?")
	store.appendAssistant("Done.")

	history := store.history()
	if len(history) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(history))
	}
	if history[0].Role != assist.RoleUser || history[1].Role != assist.RoleAssistant {
		t.Errorf("unexpected roles: %+v", history)
	}
	if history[2].Text != "Done." {
		t.Errorf("append order not preserved: %+v", history)
	}
}

func TestTranscriptHistoryIsCopy(t *testing.T) {
	var store transcriptStore
	store.appendUser("original")

	history := store.history()
	history[0].Text = "mutated"

	if store.history()[0].Text != "original" {
		t.Error("mutating a history copy must not affect the store")
	}
}

func TestTranscriptReset(t *testing.T) {
	var store transcriptStore
	store.appendUser("hello")
	store.appendAssistant("hi")

	store.reset()
	if store.len() != 0 {
		t.Errorf("expected empty store after reset, got %d messages", store.len())
	}
}

func TestTranscriptConcurrentReaders(t *testing.T) {
	var store transcriptStore

	var wg sync.WaitGroup
	done := make(chan struct{})
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-done:
					return
				default:
					_ = store.history()
				}
			}
		}()
	}

	for i := range 100 {
		store.appendUser(fmt.Sprintf("message %d", i))
	}
	close(done)
	wg.Wait()

	if store.len() != 100 {
		t.Errorf("expected 100 messages, got %d", store.len())
	}
}
