// Package speechcapture defines the contract between the assistant session
// and streaming speech-capture clients.
//
// A capture session emits any number of interim and segment transcripts,
// followed by at most one final transcript. The final transcript is the
// terminal transcription event of the session; after it (or after an error)
// the client closes the stream and invokes the closed callback exactly once.
package speechcapture

import "github.com/pantrypal/assistant-core/core/audio"

type CaptureOptions struct {
	// InterimTranscriptionCallback receives the in-flight hypothesis for
	// the segment currently being spoken. Last write wins.
	InterimTranscriptionCallback func(transcript string)
	// SegmentTranscriptionCallback receives a finalised segment of the
	// utterance.
	SegmentTranscriptionCallback func(segment string)
	// TranscriptionCallback receives the whole utterance, at most once.
	TranscriptionCallback func(transcript string)

	SpeechStartedCallback func()
	// ErrorCallback reports a capture failure; the stream closes after it.
	ErrorCallback func(err error)
	// ClosedCallback fires once the stream has fully shut down.
	ClosedCallback func()

	EncodingInfo audio.EncodingInfo
}

type CaptureOption func(*CaptureOptions)

func WithInterimTranscriptionCallback(callback func(transcript string)) CaptureOption {
	return func(o *CaptureOptions) {
		o.InterimTranscriptionCallback = callback
	}
}

func WithSegmentTranscriptionCallback(callback func(segment string)) CaptureOption {
	return func(o *CaptureOptions) {
		o.SegmentTranscriptionCallback = callback
	}
}

func WithTranscriptionCallback(callback func(transcript string)) CaptureOption {
	return func(o *CaptureOptions) {
		o.TranscriptionCallback = callback
	}
}

func WithSpeechStartedCallback(callback func()) CaptureOption {
	return func(o *CaptureOptions) {
		o.SpeechStartedCallback = callback
	}
}

func WithErrorCallback(callback func(err error)) CaptureOption {
	return func(o *CaptureOptions) {
		o.ErrorCallback = callback
	}
}

func WithClosedCallback(callback func()) CaptureOption {
	return func(o *CaptureOptions) {
		o.ClosedCallback = callback
	}
}

func WithEncodingInfo(encodingInfo audio.EncodingInfo) CaptureOption {
	return func(o *CaptureOptions) {
		o.EncodingInfo = encodingInfo
	}
}
