package assistant

import (
	"maps"

	"github.com/pantrypal/assistant-core/core/assist"
)

// pendingActionSlot holds the at-most-one action awaiting user
// confirmation. Its only legal mutations are set, discard and dispatch, so
// superseding an unconfirmed action is an explicit discard rather than an
// accidental overwrite.
//
// The slot has no lock of its own: every mutation happens under the
// session mutex.
type pendingActionSlot struct {
	action *assist.ProposedAction
}

// set installs a newly proposed action. The previous occupant, if any, must
// have been discarded or dispatched first.
func (s *pendingActionSlot) set(action assist.ProposedAction) bool {
	if s.action != nil {
		return false
	}

	s.action = &action
	return true
}

// discard drops the held action without executing it (reject, supersession,
// panel close).
func (s *pendingActionSlot) discard() (assist.ProposedAction, bool) {
	if s.action == nil {
		return assist.ProposedAction{}, false
	}

	action := *s.action
	s.action = nil
	return action, true
}

// dispatch empties the slot and hands ownership of the action to the
// caller for execution.
func (s *pendingActionSlot) dispatch() (assist.ProposedAction, bool) {
	if s.action == nil {
		return assist.ProposedAction{}, false
	}

	action := *s.action
	s.action = nil
	return action, true
}

// peek returns a detached copy for snapshots.
func (s *pendingActionSlot) peek() *assist.ProposedAction {
	if s.action == nil {
		return nil
	}

	action := *s.action
	action.Params = maps.Clone(action.Params)
	return &action
}
