package events

const (
	KindSpeechStarted     Kind = "user.speech.started"
	KindTranscriptInterim Kind = "user.transcript.interim"
	KindTranscriptSegment Kind = "user.transcript.segment"
	KindTranscriptFinal   Kind = "user.transcript.final"
	KindCaptureFailed     Kind = "user.capture.failed"
)

// SpeechStarted marks the capture layer detecting the user speaking.
type SpeechStarted struct {
	Base
}

func NewSpeechStarted() SpeechStarted {
	return SpeechStarted{Base: NewBase(KindSpeechStarted)}
}

// TranscriptInterim is the in-flight hypothesis for the segment currently
// being spoken; each one replaces the previous.
type TranscriptInterim struct {
	Base
	transcript string
}

func (t TranscriptInterim) String() string     { return t.transcript + "..." }
func (t TranscriptInterim) Transcript() string { return t.transcript }

func NewTranscriptInterim(transcript string) TranscriptInterim {
	return TranscriptInterim{Base: NewBase(KindTranscriptInterim), transcript: transcript}
}

// TranscriptSegment is a finalised piece of the utterance.
type TranscriptSegment struct {
	Base
	segment string
}

func (t TranscriptSegment) String() string  { return t.segment }
func (t TranscriptSegment) Segment() string { return t.segment }

func NewTranscriptSegment(segment string) TranscriptSegment {
	return TranscriptSegment{Base: NewBase(KindTranscriptSegment), segment: segment}
}

// TranscriptFinal carries the whole utterance. It is the terminal
// transcription event of a capture session.
type TranscriptFinal struct {
	Base
	transcript string
}

func (t TranscriptFinal) String() string     { return t.transcript }
func (t TranscriptFinal) Transcript() string { return t.transcript }

func NewTranscriptFinal(transcript string) TranscriptFinal {
	return TranscriptFinal{Base: NewBase(KindTranscriptFinal), transcript: transcript}
}

// CaptureFailed reports a speech-input failure; the capture stream closes
// after it.
type CaptureFailed struct {
	Base
	err error
}

func (t CaptureFailed) String() string { return t.err.Error() }
func (t CaptureFailed) Err() error     { return t.err }

func NewCaptureFailed(err error) CaptureFailed {
	return CaptureFailed{Base: NewBase(KindCaptureFailed), err: err}
}
