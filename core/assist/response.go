package assist

import "maps"

// ResponseKind discriminates the closed set of assistant response variants.
type ResponseKind string

const (
	// ResponseAnswer is a plain answer, no side effect proposed.
	ResponseAnswer ResponseKind = "answer"
	// ResponseConfirmAction proposes an action that must be explicitly
	// confirmed by the user before anything is executed.
	ResponseConfirmAction ResponseKind = "confirm_action"
	// ResponseError is a well-formed failure reported by the inference
	// backend, as opposed to a transport error.
	ResponseError ResponseKind = "error"
)

// ProposedAction is an action the assistant wants to perform on the user's
// behalf. It carries no side effect until handed to an executor.
type ProposedAction struct {
	// Name identifies the action, e.g. "add_item".
	Name string
	// Params are the action's arguments, opaque to the session core.
	Params map[string]string
	// ConfirmLabel is the human-readable question shown to the user,
	// e.g. "Add milk to your list?".
	ConfirmLabel string
}

func (a ProposedAction) clone() ProposedAction {
	cloned := a
	if a.Params != nil {
		cloned.Params = maps.Clone(a.Params)
	}
	return cloned
}

// Response is the outcome of one inference call. The variant is fixed at
// construction: a pending action is present if and only if the kind is
// ResponseConfirmAction.
type Response struct {
	kind          ResponseKind
	text          string
	pendingAction *ProposedAction
}

func NewAnswer(text string) Response {
	return Response{kind: ResponseAnswer, text: text}
}

func NewConfirmAction(text string, action ProposedAction) Response {
	cloned := action.clone()
	return Response{kind: ResponseConfirmAction, text: text, pendingAction: &cloned}
}

func NewErrorResponse(text string) Response {
	return Response{kind: ResponseError, text: text}
}

func (r Response) Kind() ResponseKind { return r.kind }
func (r Response) Text() string       { return r.text }

// PendingAction returns the proposed action and whether one is present.
func (r Response) PendingAction() (ProposedAction, bool) {
	if r.pendingAction == nil {
		return ProposedAction{}, false
	}
	return r.pendingAction.clone(), true
}
