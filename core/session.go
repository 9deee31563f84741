// Package assistant implements the voice-assistant interaction core: a
// session state machine coordinating speech capture, inference and the
// confirm-before-execute protocol, with an append-only transcript as the
// dialogue history.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pantrypal/assistant-core/core/assist"
	"github.com/pantrypal/assistant-core/core/events"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// ErrAlreadyActive reports a transition that is illegal for the session's
// current phase, e.g. starting to listen while a turn is still processing.
// It is returned to the caller immediately and never stored in the state.
var ErrAlreadyActive = errors.New("assistant session is already active")

const (
	defaultInferenceTimeout = 30 * time.Second
	defaultExecutionTimeout = 15 * time.Second

	logWriteTimeout = 5 * time.Second
	logBacklogSize  = 64

	executedAckText = "Done."
	rejectedAckText = "Okay, I won't do that."
)

// Session is the single owner of the assistant's state. All transitions
// are serialized through it; collaborators only read snapshots or deliver
// completion events into it.
type Session struct {
	mu sync.Mutex

	id        string
	phase     Phase
	panelOpen bool

	liveTranscript    string
	partialTranscript string
	lastResponseText  string
	lastError         *SessionError

	pending    pendingActionSlot
	transcript transcriptStore

	// seq invalidates in-flight capture, inference and execution work:
	// completions carry the sequence they were issued with and are
	// discarded when the session has moved on.
	seq uint64

	captureCancel context.CancelFunc
	captureDone   chan struct{}

	capture   speechCapture
	audioIn   audioInput
	inference inferenceRunner
	executor  actionRunner

	log   ConversationLog
	logCh chan logRecord

	onStateChanged func(State)

	baseContext      context.Context
	inferenceTimeout time.Duration
	executionTimeout time.Duration
}

func NewSession(opts ...SessionOption) *Session {
	s := &Session{
		id:               uuid.NewString(),
		phase:            PhaseIdle,
		panelOpen:        true,
		baseContext:      context.Background(),
		inferenceTimeout: defaultInferenceTimeout,
		executionTimeout: defaultExecutionTimeout,
	}

	s.audioIn.onAudio = func(audio []byte) { s.capture.sendAudio(audio) }

	for _, opt := range opts {
		opt(s)
	}

	if s.log != nil {
		s.logCh = make(chan logRecord, logBacklogSize)
		go s.drainConversationLog()
	}

	return s
}

func (s *Session) ID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id
}

// State returns a point-in-time snapshot of the session.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	var lastError *SessionError
	if s.lastError != nil {
		cloned := *s.lastError
		lastError = &cloned
	}

	return State{
		Phase:             s.phase,
		IsListening:       s.phase == PhaseListening,
		IsProcessing:      s.phase == PhaseProcessing,
		LiveTranscript:    s.liveTranscript,
		PartialTranscript: s.partialTranscript,
		LastResponseText:  s.lastResponseText,
		PendingAction:     s.pending.peek(),
		LastError:         lastError,
		History:           s.transcript.history(),
		IsPanelOpen:       s.panelOpen,
	}
}

// StartListening opens a new listening attempt. It is legal from idle and
// error (clearing the error), and from awaiting-confirmation, where the
// unconfirmed action is superseded and discarded. Any other phase returns
// ErrAlreadyActive.
func (s *Session) StartListening(ctx context.Context) error {
	s.mu.Lock()
	if err := s.ensureCanListenLocked(); err != nil {
		s.mu.Unlock()
		return err
	}
	prev := s.captureDone
	s.mu.Unlock()

	// The previous capture stream must be fully torn down before a new
	// attempt begins.
	if prev != nil {
		<-prev
	}

	s.mu.Lock()
	if err := s.ensureCanListenLocked(); err != nil {
		s.mu.Unlock()
		return err
	}

	if s.phase == PhaseAwaitingConfirmation {
		if action, ok := s.pending.discard(); ok {
			logger.Info("pending action superseded by a new utterance",
				"action", action.Name)
		}
	}

	s.lastError = nil
	s.partialTranscript = ""
	s.liveTranscript = ""
	s.phase = PhaseListening
	seq := s.nextSeqLocked()

	if !s.capture.isConfigured() {
		// No capture client: the turn is driven manually through
		// StopListening, e.g. typed input.
		s.captureDone = nil
		s.mu.Unlock()
		s.notify()
		return nil
	}

	captureCtx, cancel := context.WithCancel(ctx)
	s.captureCancel = cancel
	done := make(chan struct{})
	s.captureDone = done
	s.mu.Unlock()

	stream, err := s.capture.open(captureCtx, s.audioIn.encodingInfo())
	if err != nil {
		close(done)
		s.failCapture(seq, err)
		return fmt.Errorf("failed to start listening: %w", err)
	}

	s.audioIn.start(captureCtx)
	go s.consumeCapture(seq, stream, done)
	s.notify()
	return nil
}

func (s *Session) ensureCanListenLocked() error {
	switch s.phase {
	case PhaseIdle, PhaseError, PhaseAwaitingConfirmation:
		return nil
	}
	return ErrAlreadyActive
}

// FinishListening asks the capture layer to flush the utterance being
// spoken; the resulting final transcript completes the turn. With no
// capture client configured it is a no-op.
func (s *Session) FinishListening() error {
	s.mu.Lock()
	if s.phase != PhaseListening {
		s.mu.Unlock()
		return ErrAlreadyActive
	}
	s.mu.Unlock()

	// Stop feeding the microphone so the flush isn't delayed by new audio.
	s.audioIn.stop()
	return s.capture.stop()
}

// StopListening finalises the current listening attempt with the given
// utterance, records it as the user's turn and dispatches inference. An
// empty utterance abandons the attempt instead.
func (s *Session) StopListening(finalText string) error {
	s.mu.Lock()
	if s.phase != PhaseListening {
		s.mu.Unlock()
		return ErrAlreadyActive
	}

	s.completeUtteranceLocked(finalText)
	return nil
}

func (s *Session) finishListening(seq uint64, finalText string) {
	s.mu.Lock()
	if seq != s.seq || s.phase != PhaseListening {
		s.mu.Unlock()
		logger.Debug("discarding stale final transcript")
		return
	}

	s.completeUtteranceLocked(finalText)
}

// completeUtteranceLocked consumes the held lock and releases it.
func (s *Session) completeUtteranceLocked(finalText string) {
	finalText = strings.TrimSpace(finalText)

	s.stopCaptureLocked()
	s.partialTranscript = ""
	s.liveTranscript = ""

	if finalText == "" {
		// Nothing was said; treat the attempt as cancelled.
		s.phase = PhaseIdle
		s.nextSeqLocked()
		s.mu.Unlock()
		s.notify()
		return
	}

	history := s.transcript.history()
	s.enqueueLogLocked(s.transcript.appendUser(finalText))
	s.phase = PhaseProcessing
	seq := s.nextSeqLocked()
	s.mu.Unlock()

	s.notify()
	go s.runInference(seq, finalText, history)
}

// Cancel aborts the current listening attempt without recording anything.
// It is safe to call in any phase and idempotent when not listening.
func (s *Session) Cancel() error {
	s.mu.Lock()
	if s.phase != PhaseListening {
		s.mu.Unlock()
		return nil
	}

	s.stopCaptureLocked()
	s.partialTranscript = ""
	s.liveTranscript = ""
	s.phase = PhaseIdle
	s.nextSeqLocked()
	done := s.captureDone
	s.mu.Unlock()

	if done != nil {
		<-done
	}
	s.notify()
	return nil
}

// Confirm hands the pending action to the executor. Exactly one execution
// happens per confirmation; the slot is emptied before the call.
func (s *Session) Confirm() error {
	s.mu.Lock()
	if s.phase != PhaseAwaitingConfirmation {
		s.mu.Unlock()
		return ErrAlreadyActive
	}

	action, ok := s.pending.dispatch()
	if !ok {
		s.mu.Unlock()
		return ErrAlreadyActive
	}

	s.phase = PhaseProcessing
	seq := s.nextSeqLocked()
	s.mu.Unlock()

	s.notify()
	go s.runExecution(seq, action)
	return nil
}

// Reject discards the pending action without executing it and records the
// refusal in the transcript.
func (s *Session) Reject() error {
	s.mu.Lock()
	if s.phase != PhaseAwaitingConfirmation {
		s.mu.Unlock()
		return ErrAlreadyActive
	}

	s.pending.discard()
	s.enqueueLogLocked(s.transcript.appendAssistant(rejectedAckText))
	s.lastResponseText = rejectedAckText
	s.phase = PhaseIdle
	s.mu.Unlock()

	s.notify()
	return nil
}

// Dismiss acknowledges the error phase. A no-op elsewhere.
func (s *Session) Dismiss() error {
	s.mu.Lock()
	if s.phase != PhaseError {
		s.mu.Unlock()
		return nil
	}

	s.lastError = nil
	s.phase = PhaseIdle
	s.mu.Unlock()

	s.notify()
	return nil
}

// ClosePanel detaches the UI. Listening is cancelled and an unconfirmed
// action is discarded, but an in-flight processing call keeps running in
// the background; its result is applied and surfaced when the panel
// reopens.
func (s *Session) ClosePanel() {
	s.mu.Lock()
	s.panelOpen = false

	var done chan struct{}
	switch s.phase {
	case PhaseListening:
		s.stopCaptureLocked()
		s.partialTranscript = ""
		s.liveTranscript = ""
		s.phase = PhaseIdle
		s.nextSeqLocked()
		done = s.captureDone

	case PhaseAwaitingConfirmation:
		// Walking away from an unconfirmed action discards it.
		s.pending.discard()
		s.phase = PhaseIdle

	case PhaseError:
		s.lastError = nil
		s.phase = PhaseIdle

	case PhaseProcessing:
		// Deliberately left in flight.
	}
	s.mu.Unlock()

	if done != nil {
		<-done
	}
	s.notify()
}

func (s *Session) OpenPanel() {
	s.mu.Lock()
	s.panelOpen = true
	s.mu.Unlock()
	s.notify()
}

// Reset clears the session back to its initial values, including the
// transcript, and assigns a fresh session identity.
func (s *Session) Reset() {
	s.mu.Lock()
	s.stopCaptureLocked()
	s.pending.discard()
	s.transcript.reset()
	s.partialTranscript = ""
	s.liveTranscript = ""
	s.lastResponseText = ""
	s.lastError = nil
	s.phase = PhaseIdle
	s.nextSeqLocked()
	s.id = uuid.NewString()
	done := s.captureDone
	s.mu.Unlock()

	if done != nil {
		<-done
	}
	s.notify()
}

func (s *Session) nextSeqLocked() uint64 {
	s.seq++
	return s.seq
}

func (s *Session) stopCaptureLocked() {
	s.audioIn.stop()
	if s.captureCancel != nil {
		s.captureCancel()
		s.captureCancel = nil
	}
}

func (s *Session) consumeCapture(seq uint64, stream <-chan events.Event, done chan struct{}) {
	defer close(done)

	terminal := false
	for event := range stream {
		switch typed := event.(type) {
		case events.TranscriptInterim:
			s.applyInterim(seq, typed.Transcript())
		case events.TranscriptSegment:
			s.applySegment(seq, typed.Segment())
		case events.TranscriptFinal:
			terminal = true
			s.finishListening(seq, typed.Transcript())
		case events.CaptureFailed:
			terminal = true
			s.failCapture(seq, typed.Err())
		}
	}

	if !terminal {
		s.captureEnded(seq)
	}
}

func (s *Session) applyInterim(seq uint64, transcript string) {
	s.mu.Lock()
	if seq != s.seq || s.phase != PhaseListening {
		s.mu.Unlock()
		return
	}

	// Last write wins; interim hypotheses replace each other.
	s.partialTranscript = transcript
	s.mu.Unlock()
	s.notify()
}

func (s *Session) applySegment(seq uint64, segment string) {
	s.mu.Lock()
	if seq != s.seq || s.phase != PhaseListening {
		s.mu.Unlock()
		return
	}

	if s.liveTranscript == "" {
		s.liveTranscript = segment
	} else {
		s.liveTranscript += " " + segment
	}
	s.partialTranscript = ""
	s.mu.Unlock()
	s.notify()
}

func (s *Session) failCapture(seq uint64, err error) {
	s.mu.Lock()
	if seq != s.seq || s.phase != PhaseListening {
		s.mu.Unlock()
		return
	}

	s.stopCaptureLocked()
	s.partialTranscript = ""
	s.liveTranscript = ""
	s.lastError = &SessionError{Kind: ErrorKindCapture, Message: err.Error()}
	s.phase = PhaseError
	s.mu.Unlock()
	s.notify()
}

// captureEnded handles a stream that closed without a final transcript:
// the attempt ends quietly, e.g. after a cancel or a silent capture.
func (s *Session) captureEnded(seq uint64) {
	s.mu.Lock()
	if seq != s.seq || s.phase != PhaseListening {
		s.mu.Unlock()
		return
	}

	s.stopCaptureLocked()
	s.partialTranscript = ""
	s.liveTranscript = ""
	s.phase = PhaseIdle
	s.mu.Unlock()
	s.notify()
}

func (s *Session) runInference(seq uint64, utterance string, history []assist.Message) {
	ctx, span := tracer.Start(s.baseContext, "process utterance")
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, s.inferenceTimeout)
	defer cancel()

	response, err := s.inference.infer(ctx, utterance, history)
	if err != nil {
		recordedErr := fmt.Errorf("inference failed: %w", err)
		span.RecordError(recordedErr)
		span.SetStatus(codes.Error, recordedErr.Error())
		s.applyInferenceFailure(seq, recordedErr)
		return
	}

	span.SetAttributes(attribute.String("response.kind", string(response.Kind())))
	s.applyInferenceResult(seq, *response)
}

func (s *Session) applyInferenceResult(seq uint64, response assist.Response) {
	s.mu.Lock()
	if seq != s.seq || s.phase != PhaseProcessing {
		s.mu.Unlock()
		logger.Debug("discarding stale inference result")
		return
	}

	switch response.Kind() {
	case assist.ResponseAnswer:
		s.enqueueLogLocked(s.transcript.appendAssistant(response.Text()))
		s.lastResponseText = response.Text()
		s.phase = PhaseIdle
		s.mu.Unlock()

	case assist.ResponseConfirmAction:
		action, ok := response.PendingAction()
		if !ok {
			s.lastError = &SessionError{Kind: ErrorKindInference, Message: "malformed confirmation response"}
			s.phase = PhaseError
			s.mu.Unlock()
			break
		}

		s.pending.set(action)
		s.enqueueLogLocked(s.transcript.appendAssistant(response.Text()))
		s.lastResponseText = response.Text()
		s.phase = PhaseAwaitingConfirmation
		s.mu.Unlock()

	case assist.ResponseError:
		// Failed turns keep only the user's utterance in the transcript.
		s.lastError = &SessionError{Kind: ErrorKindInference, Message: response.Text()}
		s.phase = PhaseError
		s.mu.Unlock()

	default:
		s.lastError = &SessionError{Kind: ErrorKindInference, Message: "unknown response kind"}
		s.phase = PhaseError
		s.mu.Unlock()
	}

	s.notify()
}

func (s *Session) applyInferenceFailure(seq uint64, err error) {
	s.mu.Lock()
	if seq != s.seq || s.phase != PhaseProcessing {
		s.mu.Unlock()
		logger.Debug("discarding stale inference failure", "error", err)
		return
	}

	s.lastError = &SessionError{Kind: ErrorKindInference, Message: err.Error()}
	s.phase = PhaseError
	s.mu.Unlock()
	s.notify()
}

func (s *Session) runExecution(seq uint64, action assist.ProposedAction) {
	ctx, span := tracer.Start(s.baseContext, "execute confirmed action")
	defer span.End()
	span.SetAttributes(attribute.String("action.name", action.Name))

	ctx, cancel := context.WithTimeout(ctx, s.executionTimeout)
	defer cancel()

	if err := s.executor.execute(ctx, action); err != nil {
		recordedErr := fmt.Errorf("failed to execute action %q: %w", action.Name, err)
		span.RecordError(recordedErr)
		span.SetStatus(codes.Error, recordedErr.Error())
		s.applyExecutionFailure(seq, recordedErr)
		return
	}

	s.applyExecutionSuccess(seq)
}

func (s *Session) applyExecutionSuccess(seq uint64) {
	s.mu.Lock()
	if seq != s.seq || s.phase != PhaseProcessing {
		s.mu.Unlock()
		logger.Debug("discarding stale execution result")
		return
	}

	s.enqueueLogLocked(s.transcript.appendAssistant(executedAckText))
	s.lastResponseText = executedAckText
	s.phase = PhaseIdle
	s.mu.Unlock()

	s.notify()
}

func (s *Session) applyExecutionFailure(seq uint64, err error) {
	s.mu.Lock()
	if seq != s.seq || s.phase != PhaseProcessing {
		s.mu.Unlock()
		logger.Debug("discarding stale execution failure", "error", err)
		return
	}

	s.lastError = &SessionError{Kind: ErrorKindExecution, Message: err.Error()}
	s.phase = PhaseError
	s.mu.Unlock()
	s.notify()
}

type logRecord struct {
	sessionID string
	msg       assist.Message
}

// enqueueLogLocked hands a finalised transcript entry to the log drainer.
// Enqueueing happens under the session mutex, in the same critical section
// as the transcript append, so persisted order matches transcript order.
func (s *Session) enqueueLogLocked(msg assist.Message) {
	if s.logCh == nil {
		return
	}

	select {
	case s.logCh <- logRecord{sessionID: s.id, msg: msg}:
	default:
		logger.Warn("conversation log backlog is full, dropping message")
	}
}

// drainConversationLog is the single writer behind the conversation log;
// it applies enqueued entries one at a time, in enqueue order.
func (s *Session) drainConversationLog() {
	for record := range s.logCh {
		ctx, cancel := context.WithTimeout(s.baseContext, logWriteTimeout)
		if err := s.log.AppendMessage(ctx, record.sessionID, record.msg); err != nil {
			logger.Warn("failed to persist transcript message", "error", err)
		}
		cancel()
	}
}

func (s *Session) notify() {
	if s.onStateChanged == nil {
		return
	}

	s.onStateChanged(s.State())
}
