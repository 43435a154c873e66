package bridge

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/MrWong99/parla/internal/observe"
	"github.com/MrWong99/parla/pkg/speech"
)

const defaultProviderTimeout = 30 * time.Second

var (
	_ speech.Speaker  = (*Binding)(nil)
	_ speech.Capturer = (*Binding)(nil)
)

// BindingOptions configures the optional server-side speech helpers of a
// [Binding].
type BindingOptions struct {
	// Transcriber handles capture_audio uploads from browsers without a
	// recognizer. Nil reports such browsers as unsupported.
	Transcriber     speech.Transcriber
	TranscriberName string

	// Synthesizer renders prompts for browsers without speech synthesis.
	Synthesizer     speech.Synthesizer
	SynthesizerName string

	// ProviderTimeout bounds each transcription or synthesis. Default: 30s.
	ProviderTimeout time.Duration

	Metrics *observe.Metrics
	Logger  *slog.Logger
}

// Binding implements [speech.Speaker] and [speech.Capturer] by exchanging
// messages with a browser. Outgoing messages go through send; incoming ones
// are fed in through the Handle methods.
type Binding struct {
	ctx  context.Context
	send func(ServerMessage)
	opts BindingOptions
	log  *slog.Logger
	wg   sync.WaitGroup

	mu   sync.Mutex
	caps Capabilities

	speakID  uint64
	speaking bool
	onSpeak  func()

	captureID   uint64
	captureOpen bool
	onResult    func(speech.Result)
	onStatus    func(speech.Status)
}

// NewBinding returns a Binding that sends through send. Background
// transcription and synthesis stop when ctx is cancelled.
func NewBinding(ctx context.Context, send func(ServerMessage), opts BindingOptions) *Binding {
	if opts.ProviderTimeout <= 0 {
		opts.ProviderTimeout = defaultProviderTimeout
	}
	if opts.Metrics == nil {
		opts.Metrics = observe.DefaultMetrics()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Binding{ctx: ctx, send: send, opts: opts, log: opts.Logger}
}

// SetCapabilities records what the browser can do on its own.
func (b *Binding) SetCapabilities(c Capabilities) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.caps = c
}

// Wait blocks until background provider calls have returned.
func (b *Binding) Wait() { b.wg.Wait() }

// Speak implements [speech.Speaker]. A pending completion is invoked first
// since the new utterance supersedes it.
func (b *Binding) Speak(text string, onComplete func()) {
	b.mu.Lock()
	prev := b.takeSpeak()
	b.speakID++
	id := b.speakID
	b.speaking = true
	b.onSpeak = onComplete
	serverAudio := b.opts.Synthesizer != nil && !b.caps.Synthesis
	b.mu.Unlock()

	if prev != nil {
		prev()
	}
	if !serverAudio {
		b.send(ServerMessage{Type: MsgSpeak, ID: id, Text: text})
		return
	}

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		msg := ServerMessage{Type: MsgSpeak, ID: id, Text: text}

		ctx, span := observe.StartSpan(b.ctx, "speech.synthesize", trace.WithAttributes(
			attribute.String("speech.provider", b.opts.SynthesizerName),
			attribute.Int64("speech.speak_id", int64(id)),
		))
		tctx, cancel := context.WithTimeout(ctx, b.opts.ProviderTimeout)
		start := time.Now()
		audio, mimeType, err := b.opts.Synthesizer.Synthesize(tctx, text)
		cancel()
		b.opts.Metrics.RecordSpeechCall(ctx, b.opts.SynthesizerName, "synthesize", time.Since(start), err)
		endSpan(span, err)
		if err != nil {
			observe.LoggerFrom(ctx, b.log).Warn("speech synthesis failed, sending text only", "err", err)
		} else {
			msg.Audio = base64.StdEncoding.EncodeToString(audio)
			msg.MIMEType = mimeType
		}

		b.mu.Lock()
		current := b.speaking && b.speakID == id
		b.mu.Unlock()
		if current {
			b.send(msg)
		}
	}()
}

// Stop implements [speech.Speaker].
func (b *Binding) Stop() {
	b.mu.Lock()
	prev := b.takeSpeak()
	b.speakID++
	b.mu.Unlock()

	b.send(ServerMessage{Type: MsgStopSpeaking})
	if prev != nil {
		prev()
	}
}

// takeSpeak clears the pending utterance and returns its completion. Must
// be called with b.mu held.
func (b *Binding) takeSpeak() func() {
	fn := b.onSpeak
	b.speaking = false
	b.onSpeak = nil
	return fn
}

// HandleSpeakDone completes utterance id if it is still current.
func (b *Binding) HandleSpeakDone(id uint64) {
	b.mu.Lock()
	if !b.speaking || id != b.speakID {
		b.mu.Unlock()
		return
	}
	fn := b.takeSpeak()
	b.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// StartCapture implements [speech.Capturer].
func (b *Binding) StartCapture(onResult func(speech.Result), onStatus func(speech.Status)) speech.StopFunc {
	b.mu.Lock()
	b.closeCapture()
	b.captureID++
	id := b.captureID
	record := !b.caps.Recognition
	if record && b.opts.Transcriber == nil {
		b.mu.Unlock()
		if onStatus != nil {
			onStatus(speech.StatusUnsupported)
		}
		return func() {}
	}
	b.captureOpen = true
	b.onResult = onResult
	b.onStatus = onStatus
	b.mu.Unlock()

	b.send(ServerMessage{Type: MsgCaptureStart, ID: id, Record: record})

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			open := b.captureOpen && b.captureID == id
			if open {
				b.closeCapture()
			}
			b.mu.Unlock()
			if open {
				b.send(ServerMessage{Type: MsgCaptureStop, ID: id})
			}
		})
	}
}

// closeCapture must be called with b.mu held.
func (b *Binding) closeCapture() {
	b.captureOpen = false
	b.onResult = nil
	b.onStatus = nil
}

// HandleCaptureResult delivers a recognition result for capture id.
func (b *Binding) HandleCaptureResult(id uint64, r speech.Result) {
	b.mu.Lock()
	if !b.captureOpen || id != b.captureID {
		b.mu.Unlock()
		return
	}
	fn := b.onResult
	b.closeCapture()
	b.mu.Unlock()
	if fn != nil {
		fn(r)
	}
}

// HandleCaptureStatus delivers a lifecycle status for capture id.
func (b *Binding) HandleCaptureStatus(id uint64, s speech.Status) error {
	if !s.IsValid() {
		return fmt.Errorf("bridge: unknown capture status %q", s)
	}
	b.mu.Lock()
	if !b.captureOpen || id != b.captureID {
		b.mu.Unlock()
		return nil
	}
	fn := b.onStatus
	if s.IsTerminal() {
		b.closeCapture()
	}
	b.mu.Unlock()
	if fn != nil {
		fn(s)
	}
	return nil
}

// HandleCaptureAudio transcribes an uploaded recording for capture id in
// the background. A failed transcription ends the capture with
// [speech.StatusError]; an empty transcript with [speech.StatusNoSpeech].
func (b *Binding) HandleCaptureAudio(id uint64, encoded, format string) error {
	b.mu.Lock()
	current := b.captureOpen && id == b.captureID
	b.mu.Unlock()
	if !current {
		return nil
	}
	if b.opts.Transcriber == nil {
		return fmt.Errorf("bridge: no transcriber configured")
	}
	audio, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil || len(audio) == 0 {
		_ = b.HandleCaptureStatus(id, speech.StatusError)
		return fmt.Errorf("bridge: capture audio is not valid base64")
	}
	format = strings.TrimPrefix(strings.ToLower(format), ".")

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		ctx, span := observe.StartSpan(b.ctx, "speech.transcribe", trace.WithAttributes(
			attribute.String("speech.provider", b.opts.TranscriberName),
			attribute.Int64("speech.capture_id", int64(id)),
			attribute.String("speech.format", format),
			attribute.Int("speech.audio_bytes", len(audio)),
		))
		tctx, cancel := context.WithTimeout(ctx, b.opts.ProviderTimeout)
		start := time.Now()
		r, err := b.opts.Transcriber.Transcribe(tctx, audio, format)
		cancel()
		b.opts.Metrics.RecordSpeechCall(ctx, b.opts.TranscriberName, "transcribe", time.Since(start), err)
		endSpan(span, err)

		switch {
		case err != nil:
			observe.LoggerFrom(ctx, b.log).Warn("transcription failed", "capture", id, "err", err)
			_ = b.HandleCaptureStatus(id, speech.StatusError)
		case strings.TrimSpace(r.Transcript) == "":
			_ = b.HandleCaptureStatus(id, speech.StatusNoSpeech)
		default:
			b.HandleCaptureResult(id, r)
		}
	}()
	return nil
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
