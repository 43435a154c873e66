package resilience_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/MrWong99/parla/internal/resilience"
	"github.com/MrWong99/parla/pkg/speech"
	"github.com/MrWong99/parla/pkg/speech/mock"
)

func TestTranscriberFallback(t *testing.T) {
	t.Parallel()

	primary := &mock.Transcriber{Err: errors.New("503")}
	secondary := &mock.Transcriber{Result: speech.Result{Transcript: "hello there", Confidence: 0.8}}

	f := resilience.NewTranscriberFallback(primary, "openai", resilience.FallbackConfig{
		CircuitBreaker: resilience.CircuitBreakerConfig{MaxFailures: 2, ResetTimeout: time.Hour},
	})
	f.AddFallback("local", secondary)

	for range 3 {
		got, err := f.Transcribe(context.Background(), []byte{1, 2, 3}, "webm")
		if err != nil {
			t.Fatalf("Transcribe: %v", err)
		}
		if got.Transcript != "hello there" {
			t.Errorf("transcript = %q", got.Transcript)
		}
	}
	if primary.CallCount() != 2 {
		t.Errorf("primary calls = %d, want 2 before the breaker opened", primary.CallCount())
	}
	if secondary.Calls[0].Format != "webm" || len(secondary.Calls[0].Audio) != 3 {
		t.Errorf("secondary call = %+v", secondary.Calls[0])
	}
	if got := f.States()["openai"]; got != resilience.StateOpen {
		t.Errorf("openai breaker = %v, want open", got)
	}
}

func TestSynthesizerFallback(t *testing.T) {
	t.Parallel()

	primary := &mock.Synthesizer{Audio: []byte("ID3"), MIMEType: "audio/mpeg"}
	f := resilience.NewSynthesizerFallback(primary, "openai", resilience.FallbackConfig{})

	audio, mimeType, err := f.Synthesize(context.Background(), "Nice to meet you.")
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if string(audio) != "ID3" || mimeType != "audio/mpeg" {
		t.Errorf("Synthesize() = %q, %q", audio, mimeType)
	}

	primary.Err = errors.New("quota exceeded")
	if _, _, err := f.Synthesize(context.Background(), "again"); !errors.Is(err, resilience.ErrAllFailed) {
		t.Errorf("err = %v, want ErrAllFailed", err)
	}
}
