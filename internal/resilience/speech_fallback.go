package resilience

import (
	"context"
	"errors"

	"github.com/MrWong99/parla/pkg/speech"
)

var (
	_ speech.Transcriber = (*TranscriberFallback)(nil)
	_ speech.Synthesizer = (*SynthesizerFallback)(nil)
)

// TranscriberFallback is a [speech.Transcriber] that fails over across
// several backends.
type TranscriberFallback struct {
	group *FallbackGroup[speech.Transcriber]
}

// NewTranscriberFallback creates a TranscriberFallback preferring primary.
func NewTranscriberFallback(primary speech.Transcriber, primaryName string, cfg FallbackConfig) *TranscriberFallback {
	return &TranscriberFallback{group: NewFallbackGroup(primary, primaryName, cfg)}
}

// AddFallback registers another backend.
func (f *TranscriberFallback) AddFallback(name string, t speech.Transcriber) {
	f.group.AddFallback(name, t)
}

// States reports the breaker state of every backend.
func (f *TranscriberFallback) States() map[string]State { return f.group.States() }

// Transcribe implements [speech.Transcriber].
func (f *TranscriberFallback) Transcribe(ctx context.Context, audio []byte, format string) (speech.Result, error) {
	return ExecuteWithResult(f.group, func(t speech.Transcriber) (speech.Result, error) {
		return t.Transcribe(ctx, audio, format)
	})
}

// SynthesizerFallback is a [speech.Synthesizer] that fails over across
// several backends.
type SynthesizerFallback struct {
	group *FallbackGroup[speech.Synthesizer]
}

// NewSynthesizerFallback creates a SynthesizerFallback preferring primary.
func NewSynthesizerFallback(primary speech.Synthesizer, primaryName string, cfg FallbackConfig) *SynthesizerFallback {
	return &SynthesizerFallback{group: NewFallbackGroup(primary, primaryName, cfg)}
}

// AddFallback registers another backend.
func (f *SynthesizerFallback) AddFallback(name string, s speech.Synthesizer) {
	f.group.AddFallback(name, s)
}

// States reports the breaker state of every backend.
func (f *SynthesizerFallback) States() map[string]State { return f.group.States() }

type synthesized struct {
	audio    []byte
	mimeType string
}

// Synthesize implements [speech.Synthesizer].
func (f *SynthesizerFallback) Synthesize(ctx context.Context, text string) ([]byte, string, error) {
	out, err := ExecuteWithResult(f.group, func(s speech.Synthesizer) (synthesized, error) {
		a, m, err := s.Synthesize(ctx, text)
		return synthesized{a, m}, err
	})
	return out.audio, out.mimeType, err
}

func isCallerGone(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
