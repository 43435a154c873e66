package session_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"go.opentelemetry.io/otel/metric/noop"

	"github.com/MrWong99/parla/internal/interference"
	"github.com/MrWong99/parla/internal/observe"
	"github.com/MrWong99/parla/internal/prompts"
	"github.com/MrWong99/parla/internal/session"
	"github.com/MrWong99/parla/internal/session/mock"
	"github.com/MrWong99/parla/pkg/speech"
	speechmock "github.com/MrWong99/parla/pkg/speech/mock"
)

// fixedSource hands out prompts in order, cycling.
type fixedSource struct {
	mu    sync.Mutex
	items []prompts.Prompt
	i     int
}

func (s *fixedSource) Next() prompts.Prompt {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.items[s.i%len(s.items)]
	s.i++
	return p
}

var phrases = []prompts.Prompt{
	{Text: "What do you think about this?"},
	{Text: "I totally agree with you."},
	{Text: "That makes a lot of sense."},
}

var situation = prompts.Prompt{
	Text:     "A waiter asks what you would like to order.",
	Starters: []string{"I'd like to have..."},
}

type harness struct {
	ctl      *session.Controller
	speaker  *speechmock.Speaker
	capturer *speechmock.Capturer
	clock    *mock.Clock
	recorder *mock.Recorder
	states   *stateLog
}

type stateLog struct {
	mu     sync.Mutex
	states []session.State
}

func (l *stateLog) observe(s session.Snapshot) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if n := len(l.states); n == 0 || l.states[n-1] != s.State {
		l.states = append(l.states, s.State)
	}
}

func (l *stateLog) all() []session.State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]session.State(nil), l.states...)
}

func newHarness(t *testing.T, mode session.Mode, items ...prompts.Prompt) *harness {
	t.Helper()
	if len(items) == 0 {
		items = phrases
	}
	met, err := observe.NewMetrics(noop.NewMeterProvider())
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	h := &harness{
		speaker:  &speechmock.Speaker{},
		capturer: &speechmock.Capturer{},
		clock:    mock.NewClock(time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)),
		recorder: &mock.Recorder{},
		states:   &stateLog{},
	}
	h.ctl, err = session.New(session.Config{
		Mode:     mode,
		Speaker:  h.speaker,
		Capturer: h.capturer,
		Recorder: h.recorder,
		Source:   &fixedSource{items: items},
	},
		session.WithClock(h.clock),
		session.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		session.WithMetrics(met),
		session.WithID("test-session"),
		session.WithObserver(h.states.observe),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return h
}

func (h *harness) state() session.State { return h.ctl.Snapshot().State }

func (h *harness) requireState(t *testing.T, want session.State) {
	t.Helper()
	if got := h.state(); got != want {
		t.Fatalf("state = %q, want %q", got, want)
	}
}

// reachSpeak plays the current fluency prompt through to the Speak state.
func (h *harness) reachSpeak(t *testing.T) {
	t.Helper()
	h.requireState(t, session.StateListen)
	h.speaker.CompleteLast()
	h.clock.Advance(400 * time.Millisecond)
	h.requireState(t, session.StateSpeak)
}

func TestController_FluencyPrompt(t *testing.T) {
	t.Parallel()

	h := newHarness(t, session.Fluency)
	h.requireState(t, session.StateReady)

	if err := h.ctl.Start(session.StartOptions{}); err != nil {
		t.Fatalf("Start: %v", err)
	}
	h.requireState(t, session.StateListen)
	if got := h.speaker.Texts(); len(got) != 1 || got[0] != phrases[0].Text {
		t.Fatalf("spoken = %v, want first phrase", got)
	}
	if h.capturer.Count() != 0 {
		t.Fatal("capture opened while the prompt is still playing")
	}

	h.speaker.CompleteLast()
	h.clock.Advance(399 * time.Millisecond)
	h.requireState(t, session.StateListen)
	h.clock.Advance(time.Millisecond)
	h.requireState(t, session.StateSpeak)
	if h.capturer.Count() != 1 {
		t.Fatalf("captures = %d, want 1", h.capturer.Count())
	}

	h.capturer.Last().Deliver(speech.Result{Transcript: "what do you think about this", Confidence: 0.9})
	h.requireState(t, session.StateResult)

	snap := h.ctl.Snapshot()
	if snap.Outcome == nil {
		t.Fatal("Result snapshot carries no outcome")
	}
	o := snap.Outcome
	if !o.Scored || o.Score != 100 {
		t.Errorf("score = %d (scored=%v), want 100", o.Score, o.Scored)
	}
	if o.Ending != session.EndCaptured || !o.Survived || o.Confidence != 0.9 {
		t.Errorf("outcome = %+v, want captured and survived", o)
	}
	if o.Analysis == nil || len(o.Analysis.Missing) != 0 {
		t.Errorf("analysis = %+v, want no missing words", o.Analysis)
	}
	if o.Interference.Detected {
		t.Errorf("interference detected in plain English: %+v", o.Interference)
	}
	if h.capturer.Last().Stopped() == 0 {
		t.Error("capture not stopped after its result")
	}

	if err := h.ctl.Next(context.Background()); err != nil {
		t.Fatalf("Next: %v", err)
	}
	h.requireState(t, session.StateListen)
	if snap := h.ctl.Snapshot(); snap.Completed != 1 || snap.Prompt.Text != phrases[1].Text {
		t.Errorf("after Next: completed=%d prompt=%q", snap.Completed, snap.Prompt.Text)
	}
}

func TestController_CompletesAndRecordsOnce(t *testing.T) {
	t.Parallel()

	h := newHarness(t, session.Fluency.With(session.Override{Target: 3}))
	if err := h.ctl.Start(session.StartOptions{}); err != nil {
		t.Fatalf("Start: %v", err)
	}

	for i := range 3 {
		h.reachSpeak(t)
		h.clock.Advance(10 * time.Second)
		h.capturer.Last().Deliver(speech.Result{Transcript: phrases[i].Text})
		h.requireState(t, session.StateResult)
		if err := h.ctl.Next(context.Background()); err != nil {
			t.Fatalf("Next %d: %v", i, err)
		}
	}

	h.requireState(t, session.StateDone)
	if n := h.recorder.CallCount(); n != 1 {
		t.Fatalf("RecordSession calls = %d, want 1", n)
	}
	call, _ := h.recorder.LastCall()
	// 3 × (0.4 s delay + 10 s speaking) = 31.2 s, floored.
	want := mock.RecordCall{Phrases: 3, Seconds: 31, Mode: "fluency"}
	if call != want {
		t.Errorf("RecordSession(%+v), want %+v", call, want)
	}

	snap := h.ctl.Snapshot()
	if snap.Progress == nil || snap.Progress.XP != 3*10+31 {
		t.Errorf("done snapshot progress = %+v, want xp 61", snap.Progress)
	}
	if snap.Phrases != 3 || snap.ElapsedSeconds != 31 {
		t.Errorf("done snapshot = %+v", snap)
	}
	if len(h.ctl.Outcomes()) != 3 {
		t.Errorf("outcomes = %d, want 3", len(h.ctl.Outcomes()))
	}

	if err := h.ctl.Next(context.Background()); !errors.Is(err, session.ErrInvalidTransition) {
		t.Errorf("Next after Done err = %v, want ErrInvalidTransition", err)
	}
	h.ctl.Cancel()
	h.requireState(t, session.StateDone)
	if h.recorder.CallCount() != 1 {
		t.Error("session credited more than once")
	}
}

func TestController_AbandonedSessionIsNotRecorded(t *testing.T) {
	t.Parallel()

	h := newHarness(t, session.Fluency.With(session.Override{Target: 10}))
	if err := h.ctl.Start(session.StartOptions{}); err != nil {
		t.Fatalf("Start: %v", err)
	}
	for range 2 {
		h.reachSpeak(t)
		h.capturer.Last().Deliver(speech.Result{Transcript: "something"})
		if err := h.ctl.Next(context.Background()); err != nil {
			t.Fatalf("Next: %v", err)
		}
	}
	// Prompt 3 of 10, mid capture.
	h.reachSpeak(t)
	open := h.capturer.Last()

	h.ctl.Cancel()
	h.requireState(t, session.StateCancelled)
	if n := h.recorder.CallCount(); n != 0 {
		t.Fatalf("RecordSession calls = %d, want 0", n)
	}
	if open.Stopped() == 0 {
		t.Error("open capture not stopped on cancel")
	}
	if h.clock.Pending() != 0 {
		t.Errorf("pending timers after cancel = %d, want 0", h.clock.Pending())
	}

	// Late callbacks from the torn-down capture change nothing.
	open.Deliver(speech.Result{Transcript: "late"})
	h.requireState(t, session.StateCancelled)
}

func TestController_CancelDuringPlaybackStopsSpeaker(t *testing.T) {
	t.Parallel()

	h := newHarness(t, session.Fluency)
	if err := h.ctl.Start(session.StartOptions{}); err != nil {
		t.Fatalf("Start: %v", err)
	}
	h.ctl.Cancel()
	if h.speaker.Stops() != 1 {
		t.Errorf("speaker stops = %d, want 1", h.speaker.Stops())
	}
	// A completion that arrives after cancellation is ignored.
	h.speaker.CompleteLast()
	h.clock.Advance(time.Second)
	h.requireState(t, session.StateCancelled)
	if h.capturer.Count() != 0 {
		t.Error("capture opened after cancel")
	}
}

func TestController_StaleCaptureCallbacksIgnored(t *testing.T) {
	t.Parallel()

	h := newHarness(t, session.Fluency)
	if err := h.ctl.Start(session.StartOptions{}); err != nil {
		t.Fatalf("Start: %v", err)
	}

	h.reachSpeak(t)
	first := h.capturer.Last()
	if err := h.ctl.Skip(); err != nil {
		t.Fatalf("Skip: %v", err)
	}
	h.requireState(t, session.StateResult)
	if first.Stopped() == 0 {
		t.Fatal("skip did not stop the capture")
	}

	// The skipped capture reports late; the evaluated outcome stands.
	first.Deliver(speech.Result{Transcript: "late answer"})
	first.SendStatus(speech.StatusIdle)
	snap := h.ctl.Snapshot()
	if snap.Outcome.Transcript != "" || snap.Outcome.Ending != session.EndSkipped || snap.Outcome.Scored {
		t.Fatalf("outcome overwritten by stale capture: %+v", snap.Outcome)
	}

	if err := h.ctl.Next(context.Background()); err != nil {
		t.Fatalf("Next: %v", err)
	}
	h.reachSpeak(t)
	second := h.capturer.Last()
	if second == first {
		t.Fatal("no new capture for the second prompt")
	}

	// Old handle fires while the new one is open.
	first.Deliver(speech.Result{Transcript: "cross talk"})
	first.SendStatus(speech.StatusError)
	h.requireState(t, session.StateSpeak)

	second.SendStatus(speech.StatusListening)
	if got := h.ctl.Snapshot().CaptureStatus; got != speech.StatusListening {
		t.Errorf("capture status = %q, want listening", got)
	}
	second.Deliver(speech.Result{Transcript: "I totally agree with you"})
	h.requireState(t, session.StateResult)

	// The current handle's own teardown status must not override the result.
	second.SendStatus(speech.StatusIdle)
	snap = h.ctl.Snapshot()
	if snap.Outcome.Transcript != "I totally agree with you" || snap.Outcome.Score != 100 {
		t.Errorf("outcome = %+v, want second transcript scored 100", snap.Outcome)
	}
	if len(h.ctl.Outcomes()) != 2 {
		t.Errorf("outcomes = %d, want 2", len(h.ctl.Outcomes()))
	}
}

func TestController_AtMostOneCaptureOpen(t *testing.T) {
	t.Parallel()

	h := newHarness(t, session.Fluency)
	if err := h.ctl.Start(session.StartOptions{}); err != nil {
		t.Fatalf("Start: %v", err)
	}
	for range 4 {
		h.reachSpeak(t)
		open := 0
		for _, c := range h.capturer.Captures {
			if c.Stopped() == 0 {
				open++
			}
		}
		if open != 1 {
			t.Fatalf("open captures = %d, want 1", open)
		}
		if err := h.ctl.SaidIt(); err != nil {
			t.Fatalf("SaidIt: %v", err)
		}
		if err := h.ctl.Next(context.Background()); err != nil {
			t.Fatalf("Next: %v", err)
		}
	}
}

func TestController_TerminalCaptureStatuses(t *testing.T) {
	t.Parallel()

	for _, status := range []speech.Status{speech.StatusError, speech.StatusNoSpeech, speech.StatusUnsupported} {
		t.Run(string(status), func(t *testing.T) {
			t.Parallel()

			h := newHarness(t, session.Fluency)
			if err := h.ctl.Start(session.StartOptions{}); err != nil {
				t.Fatalf("Start: %v", err)
			}
			h.reachSpeak(t)
			h.capturer.Last().SendStatus(status)

			h.requireState(t, session.StateResult)
			o := h.ctl.Snapshot().Outcome
			if o.Ending != session.EndCaptureStatus || o.CaptureStatus != status {
				t.Errorf("outcome ending=%q status=%q, want capture_status %q", o.Ending, o.CaptureStatus, status)
			}
			if o.Transcript != "" || o.Score != 0 || o.Survived {
				t.Errorf("degraded outcome = %+v, want empty transcript, score 0", o)
			}
			if err := h.ctl.Next(context.Background()); err != nil {
				t.Errorf("cannot continue after %s: %v", status, err)
			}
		})
	}
}

func TestController_UnsupportedCaptureStillProgresses(t *testing.T) {
	t.Parallel()

	h := newHarness(t, session.Fluency.With(session.Override{Target: 2}))
	h.capturer.Unsupported = true
	if err := h.ctl.Start(session.StartOptions{}); err != nil {
		t.Fatalf("Start: %v", err)
	}
	for range 2 {
		h.speaker.CompleteLast()
		h.clock.Advance(400 * time.Millisecond)
		h.requireState(t, session.StateResult)
		if err := h.ctl.Next(context.Background()); err != nil {
			t.Fatalf("Next: %v", err)
		}
	}
	h.requireState(t, session.StateDone)
	if h.recorder.CallCount() != 1 {
		t.Error("session without a recognizer was not credited")
	}
}

func TestController_SaidItInterruptsCapture(t *testing.T) {
	t.Parallel()

	h := newHarness(t, session.Fluency)
	if err := h.ctl.Start(session.StartOptions{}); err != nil {
		t.Fatalf("Start: %v", err)
	}
	h.reachSpeak(t)
	if err := h.ctl.SaidIt(); err != nil {
		t.Fatalf("SaidIt: %v", err)
	}
	h.requireState(t, session.StateResult)
	if h.capturer.Last().Stopped() == 0 {
		t.Error("SaidIt left the capture running")
	}
	o := h.ctl.Snapshot().Outcome
	if o.Ending != session.EndSaidIt || !o.Survived || !o.Scored || o.Score != 0 {
		t.Errorf("outcome = %+v", o)
	}
	if err := h.ctl.SaidIt(); !errors.Is(err, session.ErrInvalidTransition) {
		t.Errorf("second SaidIt err = %v, want ErrInvalidTransition", err)
	}
}

func TestController_InvalidTransitions(t *testing.T) {
	t.Parallel()

	h := newHarness(t, session.Fluency)
	if err := h.ctl.Next(context.Background()); !errors.Is(err, session.ErrInvalidTransition) {
		t.Errorf("Next from Ready err = %v", err)
	}
	if err := h.ctl.SaidIt(); !errors.Is(err, session.ErrInvalidTransition) {
		t.Errorf("SaidIt from Ready err = %v", err)
	}
	if err := h.ctl.Start(session.StartOptions{}); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := h.ctl.Start(session.StartOptions{}); !errors.Is(err, session.ErrInvalidTransition) {
		t.Errorf("second Start err = %v", err)
	}
	if err := h.ctl.Next(context.Background()); !errors.Is(err, session.ErrInvalidTransition) {
		t.Errorf("Next from Listen err = %v", err)
	}
	if err := h.ctl.Pause(); !errors.Is(err, session.ErrInvalidTransition) {
		t.Errorf("Pause in fluency err = %v", err)
	}
}

func TestController_ReactionTimeout(t *testing.T) {
	t.Parallel()

	h := newHarness(t, session.Reaction, situation)
	if err := h.ctl.Start(session.StartOptions{}); err != nil {
		t.Fatalf("Start: %v", err)
	}
	h.requireState(t, session.StateListen)

	// The response countdown does not wait for playback to finish.
	h.clock.Advance(2500 * time.Millisecond)
	h.requireState(t, session.StateRespond)
	if h.speaker.Stops() != 0 {
		t.Error("entering Respond stopped playback")
	}
	if got := h.ctl.Snapshot().RemainingMS; got != 5000 {
		t.Errorf("remaining = %dms, want 5000", got)
	}

	h.clock.Advance(5 * time.Second)
	h.requireState(t, session.StateResult)
	o := h.ctl.Snapshot().Outcome
	if o.Ending != session.EndTimeout || o.Survived || o.Scored {
		t.Errorf("outcome = %+v, want unscored timeout", o)
	}
	if h.capturer.Last().Stopped() == 0 {
		t.Error("capture still open after the window closed")
	}
}

func TestController_ReactionStarter(t *testing.T) {
	t.Parallel()

	h := newHarness(t, session.Reaction, situation)
	if err := h.ctl.Start(session.StartOptions{}); err != nil {
		t.Fatalf("Start: %v", err)
	}
	h.clock.Advance(3 * time.Second)
	h.requireState(t, session.StateRespond)

	if err := h.ctl.UseStarter(""); err == nil {
		t.Error("UseStarter(\"\") succeeded")
	}
	if err := h.ctl.UseStarter(situation.Starters[0]); err != nil {
		t.Fatalf("UseStarter: %v", err)
	}
	o := h.ctl.Snapshot().Outcome
	if o.Ending != session.EndStarter || o.Starter != situation.Starters[0] || !o.Survived {
		t.Errorf("outcome = %+v", o)
	}
	if h.clock.Pending() != 0 {
		t.Errorf("pending timers = %d, want 0", h.clock.Pending())
	}
}

func TestController_ReactionDetectsInterference(t *testing.T) {
	t.Parallel()

	h := newHarness(t, session.Reaction, situation)
	if err := h.ctl.Start(session.StartOptions{}); err != nil {
		t.Fatalf("Start: %v", err)
	}
	h.clock.Advance(2500 * time.Millisecond)
	h.capturer.Last().Deliver(speech.Result{Transcript: "yo quiero una pizza please"})

	o := h.ctl.Snapshot().Outcome
	if !o.Interference.Detected || o.Interference.Confidence != interference.ConfidenceHigh {
		t.Errorf("interference = %+v, want high", o.Interference)
	}
	if !o.Survived {
		t.Error("answered prompt not counted as survived")
	}
}

func TestController_RecallMemorizeStage(t *testing.T) {
	t.Parallel()

	h := newHarness(t, session.Recall)
	if err := h.ctl.Start(session.StartOptions{}); err != nil {
		t.Fatalf("Start: %v", err)
	}
	h.clock.Advance(time.Minute)
	h.requireState(t, session.StateListen)

	h.speaker.CompleteLast()
	h.requireState(t, session.StateMemorize)
	if h.capturer.Count() != 0 {
		t.Fatal("capture opened while memorizing")
	}
	h.clock.Advance(3 * time.Second)
	h.requireState(t, session.StateSpeak)

	want := []session.State{session.StateListen, session.StateMemorize, session.StateSpeak}
	got := h.states.all()
	if len(got) != len(want) {
		t.Fatalf("states = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("states = %v, want %v", got, want)
			break
		}
	}
}

func TestController_FocusCreditsMinutes(t *testing.T) {
	t.Parallel()

	h := newHarness(t, session.Focus)
	if err := h.ctl.Start(session.StartOptions{Window: 7 * time.Minute}); err == nil {
		t.Fatal("Start accepted a window the mode does not offer")
	}
	if err := h.ctl.Start(session.StartOptions{Window: 10 * time.Minute}); err != nil {
		t.Fatalf("Start: %v", err)
	}
	h.requireState(t, session.StateSpeak)
	if h.capturer.Count() != 0 {
		t.Error("focus mode opened a capture")
	}

	h.clock.Advance(10 * time.Minute)
	h.requireState(t, session.StateDone)
	call, ok := h.recorder.LastCall()
	if !ok {
		t.Fatal("focus session not recorded")
	}
	if want := (mock.RecordCall{Phrases: 10, Seconds: 600, Mode: "focus"}); call != want {
		t.Errorf("RecordSession(%+v), want %+v", call, want)
	}
}

func TestController_FocusPauseResume(t *testing.T) {
	t.Parallel()

	h := newHarness(t, session.Focus)
	if err := h.ctl.Start(session.StartOptions{}); err != nil {
		t.Fatalf("Start: %v", err)
	}
	h.clock.Advance(2 * time.Minute)
	if err := h.ctl.Pause(); err != nil {
		t.Fatalf("Pause: %v", err)
	}
	snap := h.ctl.Snapshot()
	if !snap.Paused || snap.RemainingMS != (3*time.Minute).Milliseconds() {
		t.Errorf("paused snapshot = %+v, want 3m remaining", snap)
	}
	if err := h.ctl.Pause(); !errors.Is(err, session.ErrInvalidTransition) {
		t.Errorf("double Pause err = %v", err)
	}

	h.clock.Advance(5 * time.Minute)
	h.requireState(t, session.StateSpeak)

	if err := h.ctl.Resume(); err != nil {
		t.Fatalf("Resume: %v", err)
	}
	h.clock.Advance(3*time.Minute - time.Second)
	h.requireState(t, session.StateSpeak)
	h.clock.Advance(time.Second)
	h.requireState(t, session.StateDone)

	// Wall-clock time, pause included: 10 minutes.
	call, _ := h.recorder.LastCall()
	if call.Seconds != 600 || call.Phrases != 10 {
		t.Errorf("RecordSession(%+v), want 10 phrases 600 s", call)
	}
}

func TestController_AntiBlockWaitsForPlayback(t *testing.T) {
	t.Parallel()

	h := newHarness(t, session.AntiBlock, prompts.Prompt{Text: "Describe your morning routine step by step."})
	if err := h.ctl.Start(session.StartOptions{}); err != nil {
		t.Fatalf("Start: %v", err)
	}
	h.clock.Advance(10 * time.Second)
	h.requireState(t, session.StateListen)

	h.speaker.CompleteLast()
	h.clock.Advance(500 * time.Millisecond)
	h.requireState(t, session.StateSpeak)
	h.clock.Advance(time.Minute)
	h.requireState(t, session.StateDone)

	call, _ := h.recorder.LastCall()
	if call.Phrases != 1 || call.Mode != "antiblock" || call.Seconds != 70 {
		t.Errorf("RecordSession(%+v), want 1 phrase, 70 s, antiblock", call)
	}
}

func TestController_RecorderFailureStillCompletes(t *testing.T) {
	t.Parallel()

	h := newHarness(t, session.Fluency.With(session.Override{Target: 1}))
	h.recorder.Err = errors.New("database unavailable")
	if err := h.ctl.Start(session.StartOptions{}); err != nil {
		t.Fatalf("Start: %v", err)
	}
	h.reachSpeak(t)
	h.capturer.Last().Deliver(speech.Result{Transcript: "what do you think about this"})
	if err := h.ctl.Next(context.Background()); err != nil {
		t.Fatalf("Next: %v", err)
	}
	snap := h.ctl.Snapshot()
	if snap.State != session.StateDone || snap.RecordError == "" || snap.Progress != nil {
		t.Errorf("snapshot = %+v, want done with record error", snap)
	}
}

func TestController_ConcurrentManualActions(t *testing.T) {
	t.Parallel()

	h := newHarness(t, session.Fluency)
	if err := h.ctl.Start(session.StartOptions{}); err != nil {
		t.Fatalf("Start: %v", err)
	}
	h.reachSpeak(t)
	capture := h.capturer.Last()

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0
	for i := range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var err error
			switch i % 3 {
			case 0:
				err = h.ctl.SaidIt()
			case 1:
				err = h.ctl.Skip()
			default:
				capture.Deliver(speech.Result{Transcript: "what do you think"})
				return
			}
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	h.requireState(t, session.StateResult)
	if n := len(h.ctl.Outcomes()); n != 1 {
		t.Errorf("outcomes = %d, want exactly 1", n)
	}
	if succeeded > 1 {
		t.Errorf("%d manual actions succeeded, want at most 1", succeeded)
	}
}

func TestNew_Validation(t *testing.T) {
	t.Parallel()

	if _, err := session.New(session.Config{Mode: session.Fluency}); err == nil {
		t.Error("New without speaker succeeded")
	}
	if _, err := session.New(session.Config{Mode: session.Fluency, Speaker: &speechmock.Speaker{}}); err == nil {
		t.Error("New for a capturing mode without capturer succeeded")
	}
	bad := session.Fluency
	bad.Target = 0
	if _, err := session.New(session.Config{Mode: bad, Speaker: &speechmock.Speaker{}, Capturer: &speechmock.Capturer{}}); err == nil {
		t.Error("New with target 0 succeeded")
	}

	ctl, err := session.New(session.Config{Mode: session.Focus, Speaker: &speechmock.Speaker{}})
	if err != nil {
		t.Fatalf("New(focus): %v", err)
	}
	if ctl.ID() == "" {
		t.Error("generated session ID is empty")
	}
}
