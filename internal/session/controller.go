package session

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/MrWong99/parla/internal/interference"
	"github.com/MrWong99/parla/internal/observe"
	"github.com/MrWong99/parla/internal/progress"
	"github.com/MrWong99/parla/internal/prompts"
	"github.com/MrWong99/parla/internal/scoring"
	"github.com/MrWong99/parla/pkg/speech"
)

// Recorder credits completed sessions. [*progress.Service] implements it.
type Recorder interface {
	RecordSession(ctx context.Context, phrases, seconds int, mode string) (progress.UserProgress, error)
}

var _ Recorder = (*progress.Service)(nil)

// Config holds the collaborators of a [Controller].
type Config struct {
	Mode     Mode
	Speaker  speech.Speaker
	Capturer speech.Capturer
	Recorder Recorder

	// Source overrides the prompt source derived from Mode.Catalogue.
	Source prompts.Source
}

// Option configures a [Controller].
type Option func(*Controller)

// WithClock replaces the system clock.
func WithClock(c Clock) Option {
	return func(ctl *Controller) { ctl.clock = c }
}

// WithLogger sets the logger. Defaults to [slog.Default].
func WithLogger(l *slog.Logger) Option {
	return func(ctl *Controller) { ctl.log = l }
}

// WithMetrics sets the metrics sink. Defaults to [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(ctl *Controller) { ctl.metrics = m }
}

// WithAnalyzer replaces the word-level answer analyzer.
func WithAnalyzer(a *scoring.Analyzer) Option {
	return func(ctl *Controller) { ctl.analyzer = a }
}

// WithDetector replaces the interference detector.
func WithDetector(d *interference.Detector) Option {
	return func(ctl *Controller) { ctl.detector = d }
}

// WithID sets the session identifier. Defaults to a random UUID.
func WithID(id string) Option {
	return func(ctl *Controller) { ctl.id = id }
}

// WithObserver registers fn to receive a snapshot after every change. fn
// runs on the controller's executor and must not call back into the
// controller synchronously.
func WithObserver(fn func(Snapshot)) Option {
	return func(ctl *Controller) { ctl.observers = append(ctl.observers, fn) }
}

// StartOptions parameterise [Controller.Start].
type StartOptions struct {
	// Window picks one of Mode.Windows as the response window.
	Window time.Duration
}

// Snapshot is an immutable view of a controller.
type Snapshot struct {
	ID        string          `json:"id"`
	Mode      string          `json:"mode"`
	State     State           `json:"state"`
	Prompt    *prompts.Prompt `json:"prompt,omitempty"`
	Completed int             `json:"completed"`
	Target    int             `json:"target"`

	CaptureStatus speech.Status `json:"capture_status,omitempty"`

	// RemainingMS is the time left in the current timed state.
	RemainingMS int64 `json:"remaining_ms,omitempty"`
	Paused      bool  `json:"paused,omitempty"`

	// Outcome is the latest evaluated answer while in Result.
	Outcome *Outcome `json:"outcome,omitempty"`

	// Set once the session is done.
	ElapsedSeconds int                    `json:"elapsed_seconds,omitempty"`
	Phrases        int                    `json:"phrases,omitempty"`
	Progress       *progress.UserProgress `json:"progress,omitempty"`
	RecordError    string                 `json:"record_error,omitempty"`
}

// Controller drives one exercise session. Create it with [New]; all methods
// are safe for concurrent use.
type Controller struct {
	id       string
	mode     Mode
	speaker  speech.Speaker
	capturer speech.Capturer
	recorder Recorder
	source   prompts.Source

	clock     Clock
	log       *slog.Logger
	metrics   *observe.Metrics
	analyzer  *scoring.Analyzer
	detector  *interference.Detector
	observers []func(Snapshot)

	exec serial

	// Everything below is owned by exec.
	state     State
	window    time.Duration
	startedAt time.Time
	completed int
	prompt    prompts.Prompt
	outcomes  []Outcome
	last      *Outcome
	recorded  bool

	transcript    string
	confidence    float64
	captureStatus speech.Status

	speakSeq  uint64
	speaking  bool
	captureID uint64
	stopCap   speech.StopFunc

	timerSeq  uint64
	timer     Timer
	deadline  time.Time
	remaining time.Duration
	paused    bool

	elapsed   int
	credited  int
	progress  *progress.UserProgress
	recordErr error

	snapMu sync.RWMutex
	snap   Snapshot
}

// New creates a controller in the Ready state.
func New(cfg Config, opts ...Option) (*Controller, error) {
	if err := cfg.Mode.Validate(); err != nil {
		return nil, err
	}
	if cfg.Speaker == nil {
		return nil, fmt.Errorf("session: speaker is required")
	}
	if cfg.Mode.Capture && cfg.Capturer == nil {
		return nil, fmt.Errorf("session: mode %q captures speech but no capturer was given", cfg.Mode.Name)
	}

	c := &Controller{
		mode:     cfg.Mode,
		speaker:  cfg.Speaker,
		capturer: cfg.Capturer,
		recorder: cfg.Recorder,
		source:   cfg.Source,
		clock:    SystemClock(),
		log:      slog.Default(),
		state:    StateReady,
		window:   cfg.Mode.ResponseWindow,
	}
	for _, o := range opts {
		o(c)
	}
	if c.id == "" {
		c.id = uuid.NewString()
	}
	if c.metrics == nil {
		c.metrics = observe.DefaultMetrics()
	}
	if c.analyzer == nil {
		c.analyzer = scoring.NewAnalyzer()
	}
	if c.detector == nil {
		c.detector = interference.New()
	}
	if c.source == nil {
		items, err := prompts.Catalogue(c.mode.Catalogue)
		if err != nil {
			return nil, fmt.Errorf("session: mode %q: %w", c.mode.Name, err)
		}
		if c.mode.Shuffle {
			c.source = prompts.NewQueue(items, nil)
		} else {
			c.source = prompts.NewPicker(items, nil)
		}
	}
	c.log = c.log.With("session_id", c.id, "mode", c.mode.Name)
	c.snap = c.buildSnapshot()
	return c, nil
}

// ID returns the session identifier.
func (c *Controller) ID() string { return c.id }

// Mode returns the controller's mode.
func (c *Controller) Mode() Mode { return c.mode }

// Snapshot returns the latest published state.
func (c *Controller) Snapshot() Snapshot {
	c.snapMu.RLock()
	defer c.snapMu.RUnlock()
	return c.snap
}

// Outcomes returns every evaluated answer so far.
func (c *Controller) Outcomes() []Outcome {
	var out []Outcome
	c.exec.call(func() error {
		out = slices.Clone(c.outcomes)
		return nil
	})
	return out
}

// Start leaves Ready and plays the first prompt.
func (c *Controller) Start(opts StartOptions) error {
	return c.exec.call(func() error {
		if c.state != StateReady {
			return fmt.Errorf("%w: start from %s", ErrInvalidTransition, c.state)
		}
		if opts.Window > 0 {
			if len(c.mode.Windows) > 0 && !slices.Contains(c.mode.Windows, opts.Window) {
				return fmt.Errorf("session: window %s not offered by mode %q", opts.Window, c.mode.Name)
			}
			c.window = opts.Window
		}
		c.startedAt = c.clock.Now()
		c.metrics.SessionStarted(context.Background(), c.mode.Name)
		c.log.Info("session started", "target", c.mode.Target, "window", c.window)
		c.enterListen()
		return nil
	})
}

// SaidIt closes the answer window with whatever transcript is available.
func (c *Controller) SaidIt() error {
	return c.exec.call(func() error { return c.finishManually(EndSaidIt, "") })
}

// Skip abandons the current prompt without scoring it.
func (c *Controller) Skip() error {
	return c.exec.call(func() error { return c.finishManually(EndSkipped, "") })
}

// UseStarter closes the answer window crediting starter as the answer.
func (c *Controller) UseStarter(starter string) error {
	return c.exec.call(func() error {
		if starter == "" {
			return fmt.Errorf("session: starter must not be empty")
		}
		return c.finishManually(EndStarter, starter)
	})
}

// Next leaves Result. It plays the following prompt or, once the target is
// reached, credits the session and enters Done.
func (c *Controller) Next(ctx context.Context) error {
	return c.exec.call(func() error {
		if c.state != StateResult {
			return fmt.Errorf("%w: next from %s", ErrInvalidTransition, c.state)
		}
		c.advance(ctx)
		return nil
	})
}

// Pause freezes the response window of a pausable mode.
func (c *Controller) Pause() error {
	return c.exec.call(func() error {
		if !c.mode.Pausable || c.state != c.mode.Answer || c.paused || c.timer == nil {
			return fmt.Errorf("%w: pause in %s", ErrInvalidTransition, c.state)
		}
		c.remaining = max(c.deadline.Sub(c.clock.Now()), 0)
		c.stopTimer()
		c.paused = true
		c.publish()
		return nil
	})
}

// Resume restarts a paused response window.
func (c *Controller) Resume() error {
	return c.exec.call(func() error {
		if !c.paused {
			return fmt.Errorf("%w: resume while not paused", ErrInvalidTransition)
		}
		c.paused = false
		c.schedule(c.remaining, func() { c.finishPrompt(EndTimeout, "") })
		c.publish()
		return nil
	})
}

// Cancel tears down playback, capture and timers and enters Cancelled. The
// session is not credited. Cancelling a finished session is a no-op.
func (c *Controller) Cancel() {
	c.exec.call(func() error {
		if c.state.IsTerminal() {
			return nil
		}
		started := c.state != StateReady
		c.teardown()
		if started {
			c.metrics.SessionAbandoned(context.Background(), c.mode.Name)
			c.log.Info("session cancelled", "completed", c.completed)
		}
		c.setState(StateCancelled)
		return nil
	})
}

// ---- transitions (run on exec) ----

func (c *Controller) enterListen() {
	c.prompt = c.source.Next()
	c.transcript = ""
	c.confidence = 0
	c.captureStatus = ""
	c.last = nil
	c.setState(StateListen)

	c.speakSeq++
	seq := c.speakSeq
	c.speaking = true
	c.speaker.Speak(c.prompt.Text, func() {
		c.exec.post(func() { c.onPlaybackDone(seq) })
	})

	if !c.mode.WaitForPlayback {
		c.schedule(c.mode.ListenDelay, func() { c.enterStage(0) })
	}
}

func (c *Controller) onPlaybackDone(seq uint64) {
	if seq != c.speakSeq {
		return
	}
	c.speaking = false
	if c.state == StateListen && c.mode.WaitForPlayback {
		c.schedule(c.mode.ListenDelay, func() { c.enterStage(0) })
	}
}

func (c *Controller) enterStage(i int) {
	if i >= len(c.mode.Stages) {
		c.enterAnswer()
		return
	}
	st := c.mode.Stages[i]
	c.setState(st.State)
	c.schedule(st.Duration, func() { c.enterStage(i + 1) })
}

func (c *Controller) enterAnswer() {
	c.setState(c.mode.Answer)
	if c.window > 0 {
		c.schedule(c.window, func() { c.finishPrompt(EndTimeout, "") })
	}
	if c.mode.Capture {
		c.startCapture()
	}
	c.publish()
}

func (c *Controller) startCapture() {
	c.stopCapture()
	c.captureID++
	id := c.captureID
	c.stopCap = c.capturer.StartCapture(
		func(r speech.Result) { c.exec.post(func() { c.onCaptureResult(id, r) }) },
		func(s speech.Status) { c.exec.post(func() { c.onCaptureStatus(id, s) }) },
	)
}

// stopCapture closes the open capture and invalidates its callbacks.
func (c *Controller) stopCapture() {
	if c.stopCap != nil {
		stop := c.stopCap
		c.stopCap = nil
		stop()
	}
	c.captureID++
}

func (c *Controller) onCaptureResult(id uint64, r speech.Result) {
	if id != c.captureID || c.state != c.mode.Answer {
		c.log.Debug("dropping stale capture result", "capture", id)
		return
	}
	c.transcript = r.Transcript
	c.confidence = r.Confidence
	c.finishPrompt(EndCaptured, "")
}

func (c *Controller) onCaptureStatus(id uint64, s speech.Status) {
	if id != c.captureID || c.state != c.mode.Answer {
		c.log.Debug("dropping stale capture status", "capture", id, "status", s)
		return
	}
	c.captureStatus = s
	if s.IsTerminal() {
		if s == speech.StatusError {
			c.log.Warn("speech capture failed")
		}
		c.finishPrompt(EndCaptureStatus, "")
		return
	}
	c.publish()
}

func (c *Controller) finishManually(ending Ending, starter string) error {
	switch c.state {
	case StateListen, StateMemorize, StateRespond, StateSpeak:
	default:
		if !slices.ContainsFunc(c.mode.Stages, func(s Stage) bool { return s.State == c.state }) {
			return fmt.Errorf("%w: %s from %s", ErrInvalidTransition, ending, c.state)
		}
	}
	c.finishPrompt(ending, starter)
	return nil
}

// finishPrompt closes the answer window, evaluates the answer and enters
// Result.
func (c *Controller) finishPrompt(ending Ending, starter string) {
	c.teardown()

	out := c.evaluate(ending, starter)
	c.outcomes = append(c.outcomes, out)
	c.last = &out
	c.metrics.RecordAnswer(context.Background(),
		metricLabel(ending, c.captureStatus), out.Scored, out.Score, string(out.Interference.Confidence))
	c.log.Debug("prompt finished",
		"index", out.Index,
		"ending", ending,
		"score", out.Score,
		"interference", out.Interference.Confidence,
	)

	c.setState(StateResult)
	if c.mode.AutoAdvance {
		c.advance(context.Background())
	}
}

func (c *Controller) advance(ctx context.Context) {
	c.completed++
	if c.completed < c.mode.Target {
		c.enterListen()
		return
	}
	c.finish(ctx)
}

func (c *Controller) finish(ctx context.Context) {
	c.elapsed = int(c.clock.Now().Sub(c.startedAt) / time.Second)
	c.credited = c.completed
	if c.mode.CreditByMinutes {
		c.credited = int(math.Round(float64(c.elapsed) / 60))
	}

	if c.recorder != nil && !c.recorded {
		c.recorded = true
		p, err := c.recorder.RecordSession(ctx, c.credited, c.elapsed, c.mode.Name)
		if err != nil {
			c.recordErr = err
			c.log.Error("failed to record session", "err", err)
		} else {
			c.progress = &p
		}
	}

	c.metrics.SessionCompleted(ctx, c.mode.Name)
	c.log.Info("session completed", "phrases", c.credited, "seconds", c.elapsed)
	c.setState(StateDone)
}

// teardown stops playback, capture and timers.
func (c *Controller) teardown() {
	c.stopTimer()
	c.stopCapture()
	c.paused = false
	if c.speaking {
		c.speakSeq++
		c.speaking = false
		c.speaker.Stop()
	}
}

// schedule runs fn on the executor after d, replacing any pending timer. A
// non-positive d runs fn immediately.
func (c *Controller) schedule(d time.Duration, fn func()) {
	c.stopTimer()
	if d <= 0 {
		fn()
		return
	}
	c.timerSeq++
	seq := c.timerSeq
	c.deadline = c.clock.Now().Add(d)
	c.timer = c.clock.AfterFunc(d, func() {
		c.exec.post(func() {
			if seq != c.timerSeq {
				return
			}
			c.timer = nil
			fn()
		})
	})
}

func (c *Controller) stopTimer() {
	c.timerSeq++
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

func (c *Controller) setState(s State) {
	c.state = s
	c.publish()
}

func (c *Controller) publish() {
	snap := c.buildSnapshot()
	c.snapMu.Lock()
	c.snap = snap
	c.snapMu.Unlock()
	for _, fn := range c.observers {
		fn(snap)
	}
}

func (c *Controller) buildSnapshot() Snapshot {
	s := Snapshot{
		ID:            c.id,
		Mode:          c.mode.Name,
		State:         c.state,
		Completed:     c.completed,
		Target:        c.mode.Target,
		CaptureStatus: c.captureStatus,
		Paused:        c.paused,
	}
	if c.state != StateReady && !c.state.IsTerminal() {
		p := c.prompt
		s.Prompt = &p
	}
	switch {
	case c.paused:
		s.RemainingMS = c.remaining.Milliseconds()
	case c.timer != nil:
		s.RemainingMS = max(c.deadline.Sub(c.clock.Now()), 0).Milliseconds()
	}
	if c.state == StateResult && c.last != nil {
		o := *c.last
		s.Outcome = &o
	}
	if c.state == StateDone {
		s.ElapsedSeconds = c.elapsed
		s.Phrases = c.credited
		s.Progress = c.progress
		if c.recordErr != nil {
			s.RecordError = c.recordErr.Error()
		}
	}
	return s
}
