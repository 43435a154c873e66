package bridge

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/MrWong99/parla/pkg/speech"
	"github.com/MrWong99/parla/pkg/speech/mock"
)

type outbox struct {
	mu   sync.Mutex
	msgs []ServerMessage
}

func (o *outbox) send(m ServerMessage) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.msgs = append(o.msgs, m)
}

func (o *outbox) types() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]string, len(o.msgs))
	for i, m := range o.msgs {
		out[i] = m.Type
	}
	return out
}

func (o *outbox) snapshot() []ServerMessage {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]ServerMessage(nil), o.msgs...)
}

func (o *outbox) last() ServerMessage {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.msgs[len(o.msgs)-1]
}

func newTestBinding(t *testing.T, opts BindingOptions) (*Binding, *outbox) {
	t.Helper()
	ob := &outbox{}
	b := NewBinding(context.Background(), ob.send, opts)
	t.Cleanup(b.Wait)
	return b, ob
}

func TestBinding_SpeakSupersedesPending(t *testing.T) {
	t.Parallel()
	b, ob := newTestBinding(t, BindingOptions{})

	var done []string
	b.Speak("uno", func() { done = append(done, "uno") })
	first := ob.last().ID
	b.Speak("due", func() { done = append(done, "due") })
	second := ob.last().ID

	if len(done) != 1 || done[0] != "uno" {
		t.Fatalf("completions after supersede = %v, want [uno]", done)
	}
	b.HandleSpeakDone(first)
	if len(done) != 1 {
		t.Fatalf("stale speak_done completed an utterance: %v", done)
	}
	b.HandleSpeakDone(second)
	b.HandleSpeakDone(second)
	if len(done) != 2 || done[1] != "due" {
		t.Errorf("completions = %v, want [uno due]", done)
	}
}

func TestBinding_StopCompletesAndNotifies(t *testing.T) {
	t.Parallel()
	b, ob := newTestBinding(t, BindingOptions{})

	completed := 0
	b.Speak("ciao", func() { completed++ })
	id := ob.last().ID
	b.Stop()

	if completed != 1 {
		t.Errorf("completed = %d, want 1", completed)
	}
	if got := ob.last().Type; got != MsgStopSpeaking {
		t.Errorf("last message = %s, want %s", got, MsgStopSpeaking)
	}
	b.HandleSpeakDone(id)
	if completed != 1 {
		t.Errorf("speak_done after stop completed again")
	}
}

func TestBinding_SynthesisFailureSendsText(t *testing.T) {
	t.Parallel()
	syn := &mock.Synthesizer{Err: errors.New("quota")}
	b, ob := newTestBinding(t, BindingOptions{Synthesizer: syn})

	b.Speak("buongiorno", nil)
	b.Wait()

	m := ob.last()
	if m.Type != MsgSpeak || m.Text != "buongiorno" || m.Audio != "" {
		t.Errorf("speak = %+v, want text without audio", m)
	}
}

// gatedSynth blocks until release is closed.
type gatedSynth struct{ release chan struct{} }

func (g gatedSynth) Synthesize(context.Context, string) ([]byte, string, error) {
	<-g.release
	return []byte("a"), "audio/mpeg", nil
}

func TestBinding_SupersededSynthesisDropped(t *testing.T) {
	t.Parallel()
	syn := gatedSynth{release: make(chan struct{})}
	b, ob := newTestBinding(t, BindingOptions{Synthesizer: syn})

	b.Speak("uno", nil)
	b.Stop()
	close(syn.release)
	b.Wait()

	for _, typ := range ob.types() {
		if typ == MsgSpeak {
			t.Fatalf("messages = %v, superseded speak should not be sent", ob.types())
		}
	}
}

func TestBinding_CaptureLifecycle(t *testing.T) {
	t.Parallel()
	b, ob := newTestBinding(t, BindingOptions{})
	b.SetCapabilities(Capabilities{Recognition: true})

	var results []speech.Result
	var statuses []speech.Status
	stop := b.StartCapture(
		func(r speech.Result) { results = append(results, r) },
		func(s speech.Status) { statuses = append(statuses, s) },
	)
	id := ob.last().ID

	if err := b.HandleCaptureStatus(id, speech.StatusListening); err != nil {
		t.Fatalf("HandleCaptureStatus: %v", err)
	}
	if err := b.HandleCaptureStatus(id, "shouting"); err == nil {
		t.Error("unknown status accepted")
	}
	b.HandleCaptureResult(id+1, speech.Result{Transcript: "stale"})
	b.HandleCaptureResult(id, speech.Result{Transcript: "ciao"})
	b.HandleCaptureResult(id, speech.Result{Transcript: "again"})

	if len(results) != 1 || results[0].Transcript != "ciao" {
		t.Errorf("results = %+v, want one ciao", results)
	}
	if len(statuses) != 1 || statuses[0] != speech.StatusListening {
		t.Errorf("statuses = %v, want [listening]", statuses)
	}

	n := len(ob.types())
	stop()
	stop()
	if got := len(ob.types()); got != n {
		t.Errorf("stop after a result sent %d messages, want none", got-n)
	}
}

func TestBinding_StopSendsCaptureStopOnce(t *testing.T) {
	t.Parallel()
	b, ob := newTestBinding(t, BindingOptions{})
	b.SetCapabilities(Capabilities{Recognition: true})

	var statuses []speech.Status
	stop := b.StartCapture(nil, func(s speech.Status) { statuses = append(statuses, s) })
	id := ob.last().ID
	stop()
	stop()

	stops := 0
	for _, typ := range ob.types() {
		if typ == MsgCaptureStop {
			stops++
		}
	}
	if stops != 1 {
		t.Errorf("capture_stop sent %d times, want 1", stops)
	}
	_ = b.HandleCaptureStatus(id, speech.StatusNoSpeech)
	if len(statuses) != 0 {
		t.Errorf("status delivered after stop: %v", statuses)
	}
}

func TestBinding_UnsupportedWithoutRecognizer(t *testing.T) {
	t.Parallel()
	b, ob := newTestBinding(t, BindingOptions{})

	var statuses []speech.Status
	stop := b.StartCapture(nil, func(s speech.Status) { statuses = append(statuses, s) })
	stop()

	if len(statuses) != 1 || statuses[0] != speech.StatusUnsupported {
		t.Errorf("statuses = %v, want [unsupported]", statuses)
	}
	if got := ob.types(); len(got) != 0 {
		t.Errorf("messages = %v, want none", got)
	}
}

func TestBinding_CaptureAudio(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name       string
		result     speech.Result
		err        error
		audio      string
		wantResult string
		wantStatus speech.Status
		wantErr    bool
	}{
		{name: "transcribed", result: speech.Result{Transcript: "ciao"}, audio: "YXVkaW8=", wantResult: "ciao"},
		{name: "empty transcript", result: speech.Result{Transcript: "  "}, audio: "YXVkaW8=", wantStatus: speech.StatusNoSpeech},
		{name: "provider error", err: errors.New("boom"), audio: "YXVkaW8=", wantStatus: speech.StatusError},
		{name: "bad base64", audio: "%%%", wantStatus: speech.StatusError, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			tr := &mock.Transcriber{Result: tt.result, Err: tt.err}
			b, ob := newTestBinding(t, BindingOptions{Transcriber: tr})

			var mu sync.Mutex
			var gotResult string
			var gotStatus speech.Status
			b.StartCapture(
				func(r speech.Result) { mu.Lock(); gotResult = r.Transcript; mu.Unlock() },
				func(s speech.Status) { mu.Lock(); gotStatus = s; mu.Unlock() },
			)
			start := ob.last()
			if !start.Record {
				t.Fatal("capture_start should request a recording")
			}

			err := b.HandleCaptureAudio(start.ID, tt.audio, ".WEBM")
			if (err != nil) != tt.wantErr {
				t.Fatalf("HandleCaptureAudio err = %v, wantErr %v", err, tt.wantErr)
			}
			b.Wait()

			mu.Lock()
			defer mu.Unlock()
			if gotResult != tt.wantResult || gotStatus != tt.wantStatus {
				t.Errorf("result %q status %q, want %q %q", gotResult, gotStatus, tt.wantResult, tt.wantStatus)
			}
			if !tt.wantErr && tr.Calls[0].Format != "webm" {
				t.Errorf("format = %q, want webm", tr.Calls[0].Format)
			}
		})
	}
}

func TestBinding_ProviderCallsAreTraced(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	orig := otel.GetTracerProvider()
	otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec)))
	t.Cleanup(func() { otel.SetTracerProvider(orig) })

	b, ob := newTestBinding(t, BindingOptions{
		Transcriber:     &mock.Transcriber{Err: errors.New("quota")},
		TranscriberName: "openai",
		Synthesizer:     &mock.Synthesizer{Audio: []byte("mp3"), MIMEType: "audio/mpeg"},
		SynthesizerName: "openai",
	})

	b.Speak("ciao", func() {})
	b.StartCapture(func(speech.Result) {}, func(speech.Status) {})
	var captureID uint64
	for _, m := range ob.snapshot() {
		if m.Type == MsgCaptureStart {
			captureID = m.ID
		}
	}
	if err := b.HandleCaptureAudio(captureID, "YXVkaW8=", "webm"); err != nil {
		t.Fatalf("HandleCaptureAudio: %v", err)
	}
	b.Wait()

	got := map[string]sdktrace.ReadOnlySpan{}
	for _, sp := range rec.Ended() {
		got[sp.Name()] = sp
	}
	synth, ok := got["speech.synthesize"]
	if !ok {
		t.Fatalf("no speech.synthesize span among %v", rec.Ended())
	}
	if synth.Status().Code == codes.Error {
		t.Error("successful synthesis span has error status")
	}
	tr, ok := got["speech.transcribe"]
	if !ok {
		t.Fatalf("no speech.transcribe span among %v", rec.Ended())
	}
	if tr.Status().Code != codes.Error {
		t.Errorf("failed transcription status = %v, want error", tr.Status().Code)
	}
}

func TestOutboxSender_ReleasedWhenWriterGone(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	out := make(chan ServerMessage, 1)
	send := outboxSender(ctx, out)

	send(ServerMessage{Type: MsgState})
	if len(out) != 1 {
		t.Fatalf("queued = %d, want 1", len(out))
	}

	// The outbox is full and nothing drains it; cancelling must unblock
	// every pending sender.
	returned := make(chan struct{})
	go func() {
		send(ServerMessage{Type: MsgOutcome})
		send(ServerMessage{Type: MsgDone})
		close(returned)
	}()
	cancel()
	select {
	case <-returned:
	case <-time.After(5 * time.Second):
		t.Fatal("send still blocked after the connection context ended")
	}
}
