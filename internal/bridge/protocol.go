// Package bridge runs exercise sessions for browsers over a WebSocket.
//
// The browser owns the speech devices. The server drives a
// [session.Controller] and asks the browser to speak and to capture through
// JSON messages; [Binding] implements [speech.Speaker] and [speech.Capturer]
// on top of that exchange. Every speak and capture request carries an id and
// replies naming an outdated id are ignored.
//
// Server to client:
//
//	speak          {id, text, audio?, mime_type?}
//	stop_speaking  {}
//	capture_start  {id, record}
//	capture_stop   {id}
//	state          {snapshot}
//	outcome        {outcome}
//	done           {snapshot}
//	error          {error}
//
// Client to server:
//
//	start          {window_seconds?, capabilities}
//	speak_done     {id}
//	capture_result {id, transcript, confidence}
//	capture_status {id, status}
//	capture_audio  {id, audio, format}
//	said_it, skip, next, cancel, pause, resume
//	starter        {starter}
//
// When the browser lacks a recognizer but the server has a transcriber,
// capture_start sets record and the browser uploads the recording as
// capture_audio (base64). A browser without a synthesizer receives
// server-rendered audio in speak when a synthesizer is configured.
package bridge

import (
	"github.com/MrWong99/parla/internal/session"
	"github.com/MrWong99/parla/pkg/speech"
)

// Server message types.
const (
	MsgSpeak        = "speak"
	MsgStopSpeaking = "stop_speaking"
	MsgCaptureStart = "capture_start"
	MsgCaptureStop  = "capture_stop"
	MsgState        = "state"
	MsgOutcome      = "outcome"
	MsgDone         = "done"
	MsgError        = "error"
)

// Client message types.
const (
	MsgStart         = "start"
	MsgSpeakDone     = "speak_done"
	MsgCaptureResult = "capture_result"
	MsgCaptureStatus = "capture_status"
	MsgCaptureAudio  = "capture_audio"
	MsgSaidIt        = "said_it"
	MsgSkip          = "skip"
	MsgStarter       = "starter"
	MsgNext          = "next"
	MsgCancel        = "cancel"
	MsgPause         = "pause"
	MsgResume        = "resume"
)

// ServerMessage is sent to the browser.
type ServerMessage struct {
	Type string `json:"type"`
	ID   uint64 `json:"id,omitempty"`

	Text     string `json:"text,omitempty"`
	Audio    string `json:"audio,omitempty"`
	MIMEType string `json:"mime_type,omitempty"`

	// Record asks the browser to upload a recording instead of recognising
	// speech itself.
	Record bool `json:"record,omitempty"`

	Snapshot *session.Snapshot `json:"snapshot,omitempty"`
	Outcome  *session.Outcome  `json:"outcome,omitempty"`
	Error    string            `json:"error,omitempty"`

	// final closes the connection once the message is written.
	final bool
}

// Capabilities describes the browser's speech support.
type Capabilities struct {
	Recognition bool `json:"recognition"`
	Synthesis   bool `json:"synthesis"`
}

// ClientMessage is received from the browser.
type ClientMessage struct {
	Type string `json:"type"`
	ID   uint64 `json:"id,omitempty"`

	WindowSeconds int           `json:"window_seconds,omitempty"`
	Capabilities  *Capabilities `json:"capabilities,omitempty"`

	Transcript string        `json:"transcript,omitempty"`
	Confidence float64       `json:"confidence,omitempty"`
	Status     speech.Status `json:"status,omitempty"`

	Audio  string `json:"audio,omitempty"`
	Format string `json:"format,omitempty"`

	Starter string `json:"starter,omitempty"`
}
