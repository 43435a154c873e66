// Package mock provides test doubles for the speech package interfaces.
//
// Speaker records every utterance and holds its completion callback until the
// test calls [Speaker.Complete]. Capturer records every capture session as a
// [Capture]; tests drive a session with [Capture.Deliver] and
// [Capture.SendStatus]. The doubles deliberately keep firing callbacks after a
// session was stopped so that consumers can be tested against stale-callback
// delivery.
//
// Example:
//
//	cap := &mock.Capturer{}
//	stop := cap.StartCapture(onResult, onStatus)
//	cap.Last().Deliver(speech.Result{Transcript: "hello"})
//	stop()
package mock

import (
	"context"
	"sync"

	"github.com/MrWong99/parla/pkg/speech"
)

// Utterance records a single Speak call.
type Utterance struct {
	Text       string
	onComplete func()
	completed  bool
}

// Speaker is a mock implementation of speech.Speaker.
type Speaker struct {
	mu sync.Mutex

	// AutoComplete, when true, invokes the completion callback synchronously
	// from inside Speak.
	AutoComplete bool

	// Utterances records every Speak call in order.
	Utterances []*Utterance

	// StopCallCount is the number of times Stop was called.
	StopCallCount int
}

// Speak records the call. The completion callback is held until Complete.
func (s *Speaker) Speak(text string, onComplete func()) {
	s.mu.Lock()
	u := &Utterance{Text: text, onComplete: onComplete}
	s.Utterances = append(s.Utterances, u)
	auto := s.AutoComplete
	s.mu.Unlock()
	if auto {
		s.complete(u)
	}
}

// Stop records the call.
func (s *Speaker) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.StopCallCount++
}

// Complete invokes the completion callback of the i-th utterance. Each
// callback fires at most once.
func (s *Speaker) Complete(i int) {
	s.mu.Lock()
	if i < 0 || i >= len(s.Utterances) {
		s.mu.Unlock()
		return
	}
	u := s.Utterances[i]
	s.mu.Unlock()
	s.complete(u)
}

// CompleteLast invokes the completion callback of the most recent utterance.
func (s *Speaker) CompleteLast() {
	s.Complete(s.Count() - 1)
}

func (s *Speaker) complete(u *Utterance) {
	s.mu.Lock()
	if u.completed || u.onComplete == nil {
		u.completed = true
		s.mu.Unlock()
		return
	}
	u.completed = true
	fn := u.onComplete
	s.mu.Unlock()
	fn()
}

// Count returns the number of Speak calls. Thread-safe.
func (s *Speaker) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.Utterances)
}

// Texts returns the spoken texts in order. Thread-safe.
func (s *Speaker) Texts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.Utterances))
	for i, u := range s.Utterances {
		out[i] = u.Text
	}
	return out
}

// Stops returns StopCallCount. Thread-safe.
func (s *Speaker) Stops() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.StopCallCount
}

// Ensure Speaker implements speech.Speaker at compile time.
var _ speech.Speaker = (*Speaker)(nil)

// Capture records a single StartCapture call.
type Capture struct {
	mu       sync.Mutex
	onResult func(speech.Result)
	onStatus func(speech.Status)
	stopped  int
}

// Deliver invokes the result callback, even after the capture was stopped.
func (c *Capture) Deliver(r speech.Result) {
	c.mu.Lock()
	fn := c.onResult
	c.mu.Unlock()
	if fn != nil {
		fn(r)
	}
}

// SendStatus invokes the status callback, even after the capture was stopped.
func (c *Capture) SendStatus(s speech.Status) {
	c.mu.Lock()
	fn := c.onStatus
	c.mu.Unlock()
	if fn != nil {
		fn(s)
	}
}

// Stopped reports how many times the capture's StopFunc was called.
func (c *Capture) Stopped() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stopped
}

// Capturer is a mock implementation of speech.Capturer.
type Capturer struct {
	mu sync.Mutex

	// Unsupported, when true, makes StartCapture report
	// speech.StatusUnsupported synchronously.
	Unsupported bool

	// Captures records every StartCapture call in order.
	Captures []*Capture
}

// StartCapture records the call and returns a StopFunc that counts stops.
func (c *Capturer) StartCapture(onResult func(speech.Result), onStatus func(speech.Status)) speech.StopFunc {
	c.mu.Lock()
	cp := &Capture{onResult: onResult, onStatus: onStatus}
	c.Captures = append(c.Captures, cp)
	unsupported := c.Unsupported
	c.mu.Unlock()

	if unsupported {
		cp.SendStatus(speech.StatusUnsupported)
	}
	return func() {
		cp.mu.Lock()
		cp.stopped++
		cp.mu.Unlock()
	}
}

// Count returns the number of StartCapture calls. Thread-safe.
func (c *Capturer) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.Captures)
}

// Last returns the most recent capture, or nil.
func (c *Capturer) Last() *Capture {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.Captures) == 0 {
		return nil
	}
	return c.Captures[len(c.Captures)-1]
}

// Ensure Capturer implements speech.Capturer at compile time.
var _ speech.Capturer = (*Capturer)(nil)

// TranscribeCall records a single Transcribe invocation.
type TranscribeCall struct {
	Audio  []byte
	Format string
}

// Transcriber is a mock implementation of speech.Transcriber.
type Transcriber struct {
	mu sync.Mutex

	// Result is returned by Transcribe when Err is nil.
	Result speech.Result

	// Err, if non-nil, is returned by Transcribe.
	Err error

	// Calls records every Transcribe call.
	Calls []TranscribeCall
}

// Transcribe records the call and returns Result, Err.
func (t *Transcriber) Transcribe(_ context.Context, audio []byte, format string) (speech.Result, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	cp := make([]byte, len(audio))
	copy(cp, audio)
	t.Calls = append(t.Calls, TranscribeCall{Audio: cp, Format: format})
	if t.Err != nil {
		return speech.Result{}, t.Err
	}
	return t.Result, nil
}

// CallCount returns the number of Transcribe calls. Thread-safe.
func (t *Transcriber) CallCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.Calls)
}

// Ensure Transcriber implements speech.Transcriber at compile time.
var _ speech.Transcriber = (*Transcriber)(nil)

// Synthesizer is a mock implementation of speech.Synthesizer.
type Synthesizer struct {
	mu sync.Mutex

	Audio    []byte
	MIMEType string
	Err      error

	// Texts records every synthesised text.
	Texts []string
}

// Synthesize records the call and returns Audio, MIMEType, Err.
func (s *Synthesizer) Synthesize(_ context.Context, text string) ([]byte, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Texts = append(s.Texts, text)
	if s.Err != nil {
		return nil, "", s.Err
	}
	return s.Audio, s.MIMEType, nil
}

// Ensure Synthesizer implements speech.Synthesizer at compile time.
var _ speech.Synthesizer = (*Synthesizer)(nil)
