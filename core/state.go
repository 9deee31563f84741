package assistant

import "github.com/pantrypal/assistant-core/core/assist"

// Phase is the current node of the session state machine.
type Phase string

const (
	PhaseIdle                 Phase = "idle"
	PhaseListening            Phase = "listening"
	PhaseProcessing           Phase = "processing"
	PhaseAwaitingConfirmation Phase = "awaiting_confirmation"
	PhaseError                Phase = "error"
)

// ErrorKind classifies the failures that land the session in PhaseError.
// Protocol misuse (ErrAlreadyActive) is returned to the caller instead and
// never stored here.
type ErrorKind string

const (
	ErrorKindCapture   ErrorKind = "capture"
	ErrorKindInference ErrorKind = "inference"
	ErrorKindExecution ErrorKind = "execution"
)

// SessionError is a user-visible failure. It stays set until the user
// dismisses it or starts a new listening attempt.
type SessionError struct {
	Kind    ErrorKind
	Message string
}

// State is a point-in-time snapshot of the session, the single source of
// truth the UI renders from. The UI never mutates it.
type State struct {
	Phase        Phase
	IsListening  bool
	IsProcessing bool

	// LiveTranscript accumulates the finalised segments of the utterance
	// being spoken; PartialTranscript is the in-flight hypothesis beyond
	// them.
	LiveTranscript    string
	PartialTranscript string

	LastResponseText string
	PendingAction    *assist.ProposedAction
	LastError        *SessionError

	History []assist.Message

	IsPanelOpen bool
}
