package assistant

import (
	"context"
	"time"

	"github.com/pantrypal/assistant-core/core/assist"
	"github.com/pantrypal/assistant-core/core/speechcapture"
)

type SessionOption func(*Session)

// SpeechCapture is a streaming speech-capture client. One capture session
// emits interim and segment transcripts followed by at most one final
// transcript, terminal in the stream.
type SpeechCapture interface {
	StartCapture(ctx context.Context, opts ...speechcapture.CaptureOption) error
	SendAudio(audio []byte) error
	StopCapture() error
}

func WithSpeechCaptureClient(client SpeechCapture) SessionOption {
	return func(s *Session) { s.capture.set(client) }
}

// AudioInput streams raw microphone audio until the context is cancelled.
// Clients with explicit stop or encoding-info support expose them through
// the optional StopCapture/EncodingInfo methods.
type AudioInput interface {
	StartCapture(ctx context.Context, onAudio func(audio []byte)) error
}

func WithAudioInput(client AudioInput) SessionOption {
	return func(s *Session) { s.audioIn.set(client) }
}

// InferenceClient turns a final utterance plus the dialogue history (which
// excludes the utterance itself) into a response variant. A transport or
// timeout failure is returned as an error, distinct from a well-formed
// error-kind response.
type InferenceClient interface {
	Infer(ctx context.Context, utterance string, history []assist.Message) (*assist.Response, error)
}

func WithInferenceClient(client InferenceClient) SessionOption {
	return func(s *Session) { s.inference.set(client) }
}

// ActionExecutor applies a confirmed action. The session calls it exactly
// once per confirmation.
type ActionExecutor interface {
	Execute(ctx context.Context, action assist.ProposedAction) error
}

func WithActionExecutor(executor ActionExecutor) SessionOption {
	return func(s *Session) { s.executor.set(executor) }
}

// ConversationLog is an optional write-behind sink for finalised
// transcript entries.
type ConversationLog interface {
	AppendMessage(ctx context.Context, sessionID string, msg assist.Message) error
}

func WithConversationLog(log ConversationLog) SessionOption {
	return func(s *Session) { s.log = log }
}

func WithInferenceTimeout(timeout time.Duration) SessionOption {
	return func(s *Session) { s.inferenceTimeout = timeout }
}

func WithExecutionTimeout(timeout time.Duration) SessionOption {
	return func(s *Session) { s.executionTimeout = timeout }
}

// WithStateListener registers a callback invoked with a fresh state
// snapshot after every applied transition.
func WithStateListener(listener func(State)) SessionOption {
	return func(s *Session) { s.onStateChanged = listener }
}
