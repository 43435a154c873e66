// Package speech defines the two speech capabilities the practice engine
// consumes: speech output (text-to-speech playback) and speech capture
// (speech-to-text recognition of the learner's answer).
//
// Both capabilities are callback driven. A concrete runtime binding (a browser
// connected over WebSocket, a native OS speech API, a cloud service) implements
// [Speaker] and [Capturer]; the session controller never talks to a speech
// stack directly.
//
// Server-side helpers that operate on recorded audio rather than a live
// device are modelled separately as [Transcriber] and [Synthesizer].
package speech

import (
	"context"
	"errors"
)

// ErrUnsupported is returned by bindings that cannot provide a capability in
// the current runtime environment.
var ErrUnsupported = errors.New("speech: capability unsupported")

// Status is a capture lifecycle notification delivered through the status
// callback of [Capturer.StartCapture].
type Status string

const (
	// StatusListening reports that the recognizer is actively listening.
	StatusListening Status = "listening"

	// StatusIdle reports that the recognizer has stopped on its own. It is
	// transient: a result or terminal status may already have been delivered.
	StatusIdle Status = "idle"

	// StatusNoSpeech reports that the capture window closed without any
	// recognised speech. Terminal, but not an error.
	StatusNoSpeech Status = "no-speech"

	// StatusError reports a capture failure such as a denied microphone
	// permission. Terminal.
	StatusError Status = "error"

	// StatusUnsupported reports that no recognizer is available in the runtime.
	// Terminal.
	StatusUnsupported Status = "unsupported"
)

// IsTerminal reports whether s ends the capture session.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusNoSpeech, StatusError, StatusUnsupported:
		return true
	}
	return false
}

// IsValid reports whether s is a recognised status.
func (s Status) IsValid() bool {
	switch s {
	case StatusListening, StatusIdle, StatusNoSpeech, StatusError, StatusUnsupported:
		return true
	}
	return false
}

// Result is a successful recognition.
type Result struct {
	// Transcript is the recognised text, as produced by the recognizer.
	Transcript string `json:"transcript"`

	// Confidence is the recognizer's confidence in [0, 1]. Zero when the
	// recognizer does not report one.
	Confidence float64 `json:"confidence"`
}

// StopFunc cancels a capture session. After it returns no further callbacks
// from that session may be delivered. Calling it more than once is safe.
type StopFunc func()

// Speaker renders text audibly in the target language.
//
// Implementations must be safe for concurrent use.
type Speaker interface {
	// Speak begins rendering text. onComplete, when non-nil, is invoked exactly
	// once: when playback finishes or when a later Speak or Stop supersedes it.
	Speak(text string, onComplete func())

	// Stop cancels any in-flight rendering.
	Stop()
}

// Capturer activates speech recognition for a single answer.
//
// Implementations must be safe for concurrent use.
type Capturer interface {
	// StartCapture begins a capture session. The session delivers at most one
	// onResult call or one terminal status via onStatus, and may deliver the
	// transient statuses listening and idle. When the runtime has no recognizer
	// the binding delivers [StatusUnsupported] and returns a no-op StopFunc.
	// The returned StopFunc is never nil.
	StartCapture(onResult func(Result), onStatus func(Status)) StopFunc
}

// Transcriber converts a recorded utterance into text.
type Transcriber interface {
	// Transcribe recognises audio encoded in format (a file extension such as
	// "webm", "wav" or "mp3").
	Transcribe(ctx context.Context, audio []byte, format string) (Result, error)
}

// Synthesizer converts text into encoded audio.
type Synthesizer interface {
	// Synthesize returns audio for text along with its MIME type.
	Synthesize(ctx context.Context, text string) (audio []byte, mimeType string, err error)
}
