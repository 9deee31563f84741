package deepgram

import (
	"testing"

	"github.com/pantrypal/assistant-core/core/speechcapture"
)

func newTestClient(opts ...speechcapture.CaptureOption) *CaptureClient {
	options := speechcapture.CaptureOptions{}
	for _, opt := range opts {
		opt(&options)
	}

	client := NewCaptureClient()
	client.options = options
	return client
}

func TestProcessMessageAccumulatesSegmentsIntoOneFinal(t *testing.T) {
	segments := []string{}
	finals := []string{}
	interims := []string{}

	client := newTestClient(
		speechcapture.WithInterimTranscriptionCallback(func(transcript string) {
			interims = append(interims, transcript)
		}),
		speechcapture.WithSegmentTranscriptionCallback(func(segment string) {
			segments = append(segments, segment)
		}),
		speechcapture.WithTranscriptionCallback(func(transcript string) {
			finals = append(finals, transcript)
		}),
	)

	client.processMessage([]byte(`{"type":"Results","is_final":false,"channel":{"alternatives":[{"transcript":"add"}]}}`))
	client.processMessage([]byte(`{"type":"Results","is_final":true,"speech_final":false,"channel":{"alternatives":[{"transcript":"add milk"}]}}`))
	client.processMessage([]byte(`{"type":"Results","is_final":true,"speech_final":true,"channel":{"alternatives":[{"transcript":"to my list"}]}}`))

	if len(interims) != 1 || interims[0] != "add" {
		t.Fatalf("expected interim [\"add\"], got %v", interims)
	}
	if len(segments) != 2 || segments[0] != "add milk" || segments[1] != "to my list" {
		t.Fatalf("expected two segments, got %v", segments)
	}
	if len(finals) != 1 || finals[0] != "add milk to my list" {
		t.Fatalf("expected one full final transcript, got %v", finals)
	}
}

func TestProcessMessageEmitsFinalAtMostOnce(t *testing.T) {
	finals := []string{}
	client := newTestClient(
		speechcapture.WithTranscriptionCallback(func(transcript string) {
			finals = append(finals, transcript)
		}),
	)

	client.processMessage([]byte(`{"type":"Results","is_final":true,"speech_final":true,"channel":{"alternatives":[{"transcript":"hello"}]}}`))
	client.processMessage([]byte(`{"type":"Results","is_final":true,"speech_final":true,"channel":{"alternatives":[{"transcript":"again"}]}}`))
	client.flushFinal()

	if len(finals) != 1 || finals[0] != "hello" {
		t.Fatalf("expected exactly one final transcript, got %v", finals)
	}
}

func TestUtteranceEndFlushesPendingSegments(t *testing.T) {
	finals := []string{}
	client := newTestClient(
		speechcapture.WithTranscriptionCallback(func(transcript string) {
			finals = append(finals, transcript)
		}),
	)

	client.processMessage([]byte(`{"type":"SpeechStarted"}`))
	client.processMessage([]byte(`{"type":"Results","is_final":true,"speech_final":false,"channel":{"alternatives":[{"transcript":"any bread left"}]}}`))
	client.processMessage([]byte(`{"type":"UtteranceEnd"}`))

	if len(finals) != 1 || finals[0] != "any bread left" {
		t.Fatalf("expected utterance end to flush the final transcript, got %v", finals)
	}
	if client.unendedSegment {
		t.Fatalf("expected no unended segment after utterance end")
	}
}

func TestSpeechStartedCallbackFires(t *testing.T) {
	started := 0
	client := newTestClient(
		speechcapture.WithSpeechStartedCallback(func() { started++ }),
	)

	client.processMessage([]byte(`{"type":"SpeechStarted"}`))

	if started != 1 {
		t.Fatalf("expected speech-started callback once, got %d", started)
	}
	if !client.unendedSegment {
		t.Fatalf("expected an unended segment after speech start")
	}
}
