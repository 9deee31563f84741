package assistant

import (
	"testing"

	"github.com/pantrypal/assistant-core/core/assist"
)

func TestPendingActionSetRequiresEmptySlot(t *testing.T) {
	var slot pendingActionSlot

	if !slot.set(assist.ProposedAction{Name: "add_shopping_item"}) {
		t.Fatal("setting an empty slot must succeed")
	}
	if slot.set(assist.ProposedAction{Name: "remove_shopping_item"}) {
		t.Error("an occupied slot must refuse a second action")
	}
	if slot.peek().Name != "add_shopping_item" {
		t.Errorf("first action must survive the refused set, got %q", slot.peek().Name)
	}
}

func TestPendingActionDispatchEmptiesSlot(t *testing.T) {
	var slot pendingActionSlot
	slot.set(assist.ProposedAction{Name: "add_shopping_item"})

	action, ok := slot.dispatch()
	if !ok || action.Name != "add_shopping_item" {
		t.Fatalf("dispatch returned %v %q", ok, action.Name)
	}
	if slot.peek() != nil {
		t.Error("slot must be empty after dispatch")
	}
	if _, ok := slot.dispatch(); ok {
		t.Error("dispatching an empty slot must fail")
	}
}

func TestPendingActionDiscard(t *testing.T) {
	var slot pendingActionSlot

	if _, ok := slot.discard(); ok {
		t.Error("discarding an empty slot must report nothing held")
	}

	slot.set(assist.ProposedAction{Name: "clear_shopping_list"})
	action, ok := slot.discard()
	if !ok || action.Name != "clear_shopping_list" {
		t.Fatalf("discard returned %v %q", ok, action.Name)
	}
	if slot.peek() != nil {
		t.Error("slot must be empty after discard")
	}
}

func TestPendingActionPeekIsDetached(t *testing.T) {
	var slot pendingActionSlot
	slot.set(assist.ProposedAction{
		Name:   "add_shopping_item",
		Params: map[string]string{"item": "milk"},
	})

	peeked := slot.peek()
	peeked.Params["item"] = "mutated"

	if slot.peek().Params["item"] != "milk" {
		t.Error("mutating a peeked copy must not affect the slot")
	}
}
