package assistant

import (
	"context"
	"fmt"

	"github.com/pantrypal/assistant-core/core/audio"
	"github.com/pantrypal/assistant-core/core/events"
	"github.com/pantrypal/assistant-core/core/speechcapture"
)

const captureEventBuffer = 16

// speechCapture is the capture facade used to handle optional client
// wiring. It bridges the client's callbacks into a per-attempt event
// channel; the channel closes once the capture stream has fully shut down,
// which is what lets a cancelled attempt be awaited before the next one.
type speechCapture struct {
	client SpeechCapture
}

func (s *speechCapture) set(client SpeechCapture) {
	if s != nil {
		s.client = client
	}
}

func (s *speechCapture) isConfigured() bool {
	return s != nil && s.client != nil
}

func (s *speechCapture) open(ctx context.Context, encoding audio.EncodingInfo) (<-chan events.Event, error) {
	if !s.isConfigured() {
		return nil, fmt.Errorf("no speech capture client configured")
	}

	stream := make(chan events.Event, captureEventBuffer)
	opts := []speechcapture.CaptureOption{
		speechcapture.WithInterimTranscriptionCallback(func(transcript string) {
			stream <- events.NewTranscriptInterim(transcript)
		}),
		speechcapture.WithSegmentTranscriptionCallback(func(segment string) {
			stream <- events.NewTranscriptSegment(segment)
		}),
		speechcapture.WithTranscriptionCallback(func(transcript string) {
			stream <- events.NewTranscriptFinal(transcript)
		}),
		speechcapture.WithErrorCallback(func(err error) {
			stream <- events.NewCaptureFailed(err)
		}),
		speechcapture.WithClosedCallback(func() {
			close(stream)
		}),
	}
	if !encoding.IsZero() {
		opts = append(opts, speechcapture.WithEncodingInfo(encoding))
	}

	if err := s.client.StartCapture(ctx, opts...); err != nil {
		return nil, fmt.Errorf("failed to start speech capture: %w", err)
	}

	return stream, nil
}

func (s *speechCapture) sendAudio(audio []byte) {
	if !s.isConfigured() {
		return
	}

	if err := s.client.SendAudio(audio); err != nil {
		logger.Warn("failed to forward audio to speech capture", "error", err)
	}
}

// stop asks the client to flush the utterance; remaining transcripts and
// the final arrive through the stream before it closes.
func (s *speechCapture) stop() error {
	if !s.isConfigured() {
		return nil
	}

	return s.client.StopCapture()
}
