// Package session runs one exercise session: a finite-state machine that
// plays a prompt through a [speech.Speaker], opens a [speech.Capturer] for
// the learner's answer, scores the answer and finally credits the completed
// session to the progress ledger.
//
// # States
//
//	Ready → Listen → (intermediate stages) → Speak|Respond → Result → … → Done
//
// Every non-terminal state can move to Cancelled. A cancelled session is
// never credited.
//
// # Concurrency
//
// All events (public method calls, playback completion, capture callbacks,
// timer expiry) run one at a time on a serial executor, so controller state
// needs no further locking. Callbacks carry the sequence number of the
// playback, capture or timer that produced them; callbacks from a superseded
// handle are dropped. At most one capture is open at any time and it is
// always stopped before another one starts.
package session

import (
	"errors"

	"github.com/MrWong99/parla/pkg/speech"
)

// ErrInvalidTransition is returned when an action does not apply to the
// controller's current state.
var ErrInvalidTransition = errors.New("session: invalid transition")

// State is a controller state.
type State string

const (
	StateReady     State = "ready"
	StateListen    State = "listen"
	StateMemorize  State = "memorize"
	StateRespond   State = "respond"
	StateSpeak     State = "speak"
	StateResult    State = "result"
	StateDone      State = "done"
	StateCancelled State = "cancelled"
)

// IsTerminal reports whether s ends the session.
func (s State) IsTerminal() bool {
	return s == StateDone || s == StateCancelled
}

// Ending records what closed a prompt's answer window.
type Ending string

const (
	// EndCaptured means the capture delivered a transcript.
	EndCaptured Ending = "captured"
	// EndCaptureStatus means the capture ended with a terminal status
	// (unsupported, error or no-speech).
	EndCaptureStatus Ending = "capture_status"
	// EndSaidIt means the learner confirmed answering without waiting for
	// the recognizer.
	EndSaidIt Ending = "said_it"
	// EndStarter means the learner picked one of the prompt's starters.
	EndStarter Ending = "starter"
	// EndSkipped means the learner skipped the prompt.
	EndSkipped Ending = "skipped"
	// EndTimeout means the response window ran out.
	EndTimeout Ending = "timeout"
)

// metricLabel is the capture outcome label recorded for an ending.
func metricLabel(e Ending, status speech.Status) string {
	if e == EndCaptureStatus && status != "" {
		return string(status)
	}
	return string(e)
}
