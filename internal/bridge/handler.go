package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/coder/websocket"
	"golang.org/x/sync/errgroup"

	"github.com/MrWong99/parla/internal/observe"
	"github.com/MrWong99/parla/internal/session"
	"github.com/MrWong99/parla/pkg/speech"
)

const (
	outboxSize          = 64
	defaultReadLimit    = 8 << 20
	defaultWriteTimeout = 10 * time.Second
	keepaliveInterval   = 20 * time.Second
	keepaliveTimeout    = 5 * time.Second
)

// errSessionEnded stops the connection loops after the final message.
var errSessionEnded = errors.New("bridge: session ended")

// Config wires a [Handler].
type Config struct {
	// Modes resolves the ?mode= query parameter. Required.
	Modes func(name string) (session.Mode, bool)

	// Recorder credits completed sessions. Optional.
	Recorder session.Recorder

	Transcriber     speech.Transcriber
	TranscriberName string
	Synthesizer     speech.Synthesizer
	SynthesizerName string

	// OriginPatterns lists extra hosts allowed to open a session. See
	// [websocket.AcceptOptions].
	OriginPatterns []string

	// ReadLimit caps a single client message. Default: 8 MiB, enough for
	// a recorded answer.
	ReadLimit int64

	// WriteTimeout bounds each message write. Default: 10s.
	WriteTimeout time.Duration

	Metrics *observe.Metrics
	Logger  *slog.Logger

	// SessionOptions are appended to every controller's options.
	SessionOptions []session.Option
}

// Handler upgrades HTTP requests to WebSocket exercise sessions. It is safe
// for concurrent use.
type Handler struct {
	cfg Config

	mu       sync.Mutex
	sessions map[string]*session.Controller
}

// NewHandler returns a Handler. It panics when cfg.Modes is nil.
func NewHandler(cfg Config) *Handler {
	if cfg.Modes == nil {
		panic("bridge: Config.Modes is required")
	}
	if cfg.ReadLimit <= 0 {
		cfg.ReadLimit = defaultReadLimit
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = defaultWriteTimeout
	}
	if cfg.Metrics == nil {
		cfg.Metrics = observe.DefaultMetrics()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Handler{cfg: cfg, sessions: make(map[string]*session.Controller)}
}

// Sessions returns snapshots of the sessions currently connected, ordered
// by id.
func (h *Handler) Sessions() []session.Snapshot {
	h.mu.Lock()
	out := make([]session.Snapshot, 0, len(h.sessions))
	for _, c := range h.sessions {
		out = append(out, c.Snapshot())
	}
	h.mu.Unlock()
	slices.SortFunc(out, func(a, b session.Snapshot) int { return strings.Compare(a.ID, b.ID) })
	return out
}

// ServeHTTP implements [http.Handler].
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("mode")
	mode, ok := h.cfg.Modes(name)
	if !ok {
		http.Error(w, fmt.Sprintf("unknown mode %q", name), http.StatusBadRequest)
		return
	}

	log := observe.LoggerFrom(r.Context(), h.cfg.Logger)
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.cfg.OriginPatterns,
	})
	if err != nil {
		log.Warn("websocket upgrade failed", "err", err)
		return
	}
	defer conn.CloseNow()
	conn.SetReadLimit(h.cfg.ReadLimit)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// gctx ends as soon as any connection loop fails, so a sender blocked on
	// a full outbox is released once the writer is gone.
	g, gctx := errgroup.WithContext(ctx)
	out := make(chan ServerMessage, outboxSize)
	send := outboxSender(gctx, out)

	binding := NewBinding(gctx, send, BindingOptions{
		Transcriber:     h.cfg.Transcriber,
		TranscriberName: h.cfg.TranscriberName,
		Synthesizer:     h.cfg.Synthesizer,
		SynthesizerName: h.cfg.SynthesizerName,
		Metrics:         h.cfg.Metrics,
		Logger:          log,
	})

	pub := &publisher{send: send, lastOutcome: -1}
	opts := append([]session.Option{
		session.WithLogger(log),
		session.WithMetrics(h.cfg.Metrics),
		session.WithObserver(pub.observe),
	}, h.cfg.SessionOptions...)
	ctl, err := session.New(session.Config{
		Mode:     mode,
		Speaker:  binding,
		Capturer: binding,
		Recorder: h.cfg.Recorder,
	}, opts...)
	if err != nil {
		log.Error("failed to create session", "err", err)
		conn.Close(websocket.StatusInternalError, "session setup failed")
		return
	}
	log = log.With("session_id", ctl.ID(), "mode", mode.Name)

	h.track(ctl)
	defer h.untrack(ctl)

	snap := ctl.Snapshot()
	send(ServerMessage{Type: MsgState, Snapshot: &snap})

	g.Go(func() error { return h.writeLoop(gctx, conn, out) })
	g.Go(func() error { return h.readLoop(gctx, conn, ctl, binding, send) })
	g.Go(func() error { return keepalive(gctx, conn) })

	err = g.Wait()
	cancel()
	ctl.Cancel()
	binding.Wait()

	switch {
	case errors.Is(err, errSessionEnded):
		log.Debug("session connection closed")
	case websocket.CloseStatus(err) == websocket.StatusNormalClosure,
		websocket.CloseStatus(err) == websocket.StatusGoingAway:
		log.Info("client closed session", "state", ctl.Snapshot().State)
	default:
		log.Info("session connection lost", "err", err)
	}
}

// outboxSender returns a send function queueing onto out. It gives up once
// ctx is done instead of blocking on a full outbox.
func outboxSender(ctx context.Context, out chan<- ServerMessage) func(ServerMessage) {
	return func(m ServerMessage) {
		select {
		case out <- m:
		case <-ctx.Done():
		}
	}
}

func (h *Handler) track(c *session.Controller) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sessions[c.ID()] = c
}

func (h *Handler) untrack(c *session.Controller) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.sessions, c.ID())
}

func (h *Handler) writeLoop(ctx context.Context, conn *websocket.Conn, out <-chan ServerMessage) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case m := <-out:
			data, err := json.Marshal(m)
			if err != nil {
				return fmt.Errorf("bridge: marshal %s: %w", m.Type, err)
			}
			wctx, cancel := context.WithTimeout(ctx, h.cfg.WriteTimeout)
			err = conn.Write(wctx, websocket.MessageText, data)
			cancel()
			if err != nil {
				return err
			}
			if m.final {
				conn.Close(websocket.StatusNormalClosure, "session finished")
				return errSessionEnded
			}
		}
	}
}

func (h *Handler) readLoop(ctx context.Context, conn *websocket.Conn, ctl *session.Controller, b *Binding, send func(ServerMessage)) error {
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return err
		}
		var msg ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			send(ServerMessage{Type: MsgError, Error: "malformed message"})
			continue
		}
		if err := dispatch(ctx, ctl, b, msg); err != nil {
			send(ServerMessage{Type: MsgError, Error: err.Error()})
		}
	}
}

// dispatch applies one client message.
func dispatch(ctx context.Context, ctl *session.Controller, b *Binding, msg ClientMessage) error {
	switch msg.Type {
	case MsgStart:
		if msg.Capabilities != nil {
			b.SetCapabilities(*msg.Capabilities)
		}
		if msg.WindowSeconds < 0 {
			return fmt.Errorf("window_seconds must not be negative")
		}
		return ctl.Start(session.StartOptions{Window: time.Duration(msg.WindowSeconds) * time.Second})
	case MsgSpeakDone:
		b.HandleSpeakDone(msg.ID)
	case MsgCaptureResult:
		b.HandleCaptureResult(msg.ID, speech.Result{Transcript: msg.Transcript, Confidence: msg.Confidence})
	case MsgCaptureStatus:
		return b.HandleCaptureStatus(msg.ID, msg.Status)
	case MsgCaptureAudio:
		return b.HandleCaptureAudio(msg.ID, msg.Audio, msg.Format)
	case MsgSaidIt:
		return ctl.SaidIt()
	case MsgSkip:
		return ctl.Skip()
	case MsgStarter:
		return ctl.UseStarter(msg.Starter)
	case MsgNext:
		return ctl.Next(ctx)
	case MsgPause:
		return ctl.Pause()
	case MsgResume:
		return ctl.Resume()
	case MsgCancel:
		ctl.Cancel()
	default:
		return fmt.Errorf("unknown message type %q", msg.Type)
	}
	return nil
}

func keepalive(ctx context.Context, conn *websocket.Conn) error {
	ticker := time.NewTicker(keepaliveInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			pctx, cancel := context.WithTimeout(ctx, keepaliveTimeout)
			err := conn.Ping(pctx)
			cancel()
			if err != nil && ctx.Err() == nil {
				return fmt.Errorf("bridge: keepalive: %w", err)
			}
		}
	}
}

// publisher turns controller snapshots into server messages. It runs on the
// controller's executor, one snapshot at a time.
type publisher struct {
	send        func(ServerMessage)
	lastOutcome int
}

func (p *publisher) observe(s session.Snapshot) {
	switch s.State {
	case session.StateDone:
		p.send(ServerMessage{Type: MsgDone, Snapshot: &s, final: true})
		return
	case session.StateCancelled:
		p.send(ServerMessage{Type: MsgState, Snapshot: &s, final: true})
		return
	}
	p.send(ServerMessage{Type: MsgState, Snapshot: &s})
	if s.State == session.StateResult && s.Outcome != nil && s.Outcome.Index > p.lastOutcome {
		p.lastOutcome = s.Outcome.Index
		p.send(ServerMessage{Type: MsgOutcome, Outcome: s.Outcome})
	}
}
