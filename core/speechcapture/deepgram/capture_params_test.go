package deepgram

import (
	"testing"

	"github.com/pantrypal/assistant-core/core/audio"
)

func TestListenParamsValidatesEncoding(t *testing.T) {
	formatName, sampleRate, err := listenParams(audio.GetDefaultEncodingInfo())
	if err != nil {
		t.Fatalf("expected the default encoding to be accepted, got %v", err)
	}
	if formatName != "linear16" || sampleRate != 16000 {
		t.Fatalf("unexpected params for default encoding: %q %d", formatName, sampleRate)
	}

	formatName, sampleRate, err = listenParams(audio.EncodingInfo{SampleRate: 8000, Format: audio.EncodingALaw})
	if err != nil {
		t.Fatalf("expected 8kHz alaw to be accepted, got %v", err)
	}
	if formatName != "alaw" || sampleRate != 8000 {
		t.Fatalf("unexpected params for alaw: %q %d", formatName, sampleRate)
	}

	if _, _, err := listenParams(audio.EncodingInfo{SampleRate: 44100, Format: audio.EncodingLinear16}); err == nil {
		t.Error("expected an unsupported sample rate to be rejected")
	}
	if _, _, err := listenParams(audio.EncodingInfo{SampleRate: 16000, Format: audio.EncodingMulaw}); err == nil {
		t.Error("expected mulaw above 8kHz to be rejected")
	}
	if _, _, err := listenParams(audio.EncodingInfo{SampleRate: 16000, Format: "opus"}); err == nil {
		t.Error("expected an unknown format to be rejected")
	}
}
