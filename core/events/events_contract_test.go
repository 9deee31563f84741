package events

import (
	"errors"
	"testing"
)

func TestConstructorsEmitExpectedKinds(t *testing.T) {
	testCases := []struct {
		name     string
		event    Event
		expected Kind
	}{
		{name: "speech started", event: NewSpeechStarted(), expected: KindSpeechStarted},
		{name: "transcript interim", event: NewTranscriptInterim("add mi"), expected: KindTranscriptInterim},
		{name: "transcript segment", event: NewTranscriptSegment("add milk"), expected: KindTranscriptSegment},
		{name: "transcript final", event: NewTranscriptFinal("add milk to my list"), expected: KindTranscriptFinal},
		{name: "capture failed", event: NewCaptureFailed(errors.New("connection lost")), expected: KindCaptureFailed},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			if got := testCase.event.Kind(); got != testCase.expected {
				t.Fatalf("expected kind %q, got %q", testCase.expected, got)
			}
		})
	}
}

func TestTranscriptEventsCarryTheirPayload(t *testing.T) {
	if got := NewTranscriptInterim("add mi").Transcript(); got != "add mi" {
		t.Errorf("interim payload = %q", got)
	}
	if got := NewTranscriptSegment("add milk").Segment(); got != "add milk" {
		t.Errorf("segment payload = %q", got)
	}
	if got := NewTranscriptFinal("add milk to my list").Transcript(); got != "add milk to my list" {
		t.Errorf("final payload = %q", got)
	}

	err := errors.New("connection lost")
	if got := NewCaptureFailed(err).Err(); !errors.Is(got, err) {
		t.Errorf("capture failure payload = %v", got)
	}
}

func TestConstructorsStampEmissionTime(t *testing.T) {
	if NewTranscriptFinal("add milk").OccurredAt().IsZero() {
		t.Error("constructed events must carry their emission time")
	}
}
