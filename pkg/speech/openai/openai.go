// Package openai provides server-side speech helpers backed by the OpenAI
// audio API: a [Transcriber] that turns an uploaded recording into text and a
// [Synthesizer] that renders prompts as MP3 audio.
//
// Both are used by the browser bridge when the client runtime lacks a native
// speech recognizer or synthesizer.
package openai

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/MrWong99/parla/pkg/speech"
)

const (
	// DefaultTranscriptionModel is used when no model is configured.
	DefaultTranscriptionModel = oai.AudioModelWhisper1

	// DefaultSpeechModel is used when no model is configured.
	DefaultSpeechModel = oai.SpeechModelTTS1

	// DefaultVoice is used when no voice is configured.
	DefaultVoice = "alloy"

	// DefaultLanguage is the ISO-639-1 code of the target language.
	DefaultLanguage = "en"

	// speechRate matches the slightly slowed playback used for prompts.
	speechRate = 0.9
)

// Ensure the adapters implement the speech interfaces.
var (
	_ speech.Transcriber = (*Transcriber)(nil)
	_ speech.Synthesizer = (*Synthesizer)(nil)
)

// config holds optional configuration shared by both adapters.
type config struct {
	baseURL  string
	model    string
	language string
	voice    string
	timeout  time.Duration
}

// Option is a functional option for the adapters.
type Option func(*config)

// WithBaseURL overrides the default OpenAI API base URL.
func WithBaseURL(url string) Option {
	return func(c *config) {
		c.baseURL = url
	}
}

// WithModel selects the transcription or speech model.
func WithModel(model string) Option {
	return func(c *config) {
		c.model = model
	}
}

// WithLanguage sets the expected spoken language for transcription.
func WithLanguage(lang string) Option {
	return func(c *config) {
		c.language = lang
	}
}

// WithVoice selects the synthesis voice.
func WithVoice(voice string) Option {
	return func(c *config) {
		c.voice = voice
	}
}

// WithTimeout sets a per-request HTTP timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *config) {
		c.timeout = d
	}
}

func newClient(apiKey string, cfg *config) oai.Client {
	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
	}
	if cfg.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.baseURL))
	}
	if cfg.timeout > 0 {
		reqOpts = append(reqOpts, option.WithHTTPClient(&http.Client{
			Timeout: cfg.timeout,
		}))
	}
	return oai.NewClient(reqOpts...)
}

// Transcriber implements speech.Transcriber using the OpenAI transcription API.
type Transcriber struct {
	client   oai.Client
	model    string
	language string
}

// NewTranscriber constructs a Transcriber. apiKey must not be empty.
func NewTranscriber(apiKey string, opts ...Option) (*Transcriber, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai transcriber: apiKey must not be empty")
	}
	cfg := &config{model: DefaultTranscriptionModel, language: DefaultLanguage}
	for _, o := range opts {
		o(cfg)
	}
	if cfg.model == "" {
		cfg.model = DefaultTranscriptionModel
	}
	return &Transcriber{
		client:   newClient(apiKey, cfg),
		model:    cfg.model,
		language: cfg.language,
	}, nil
}

// Transcribe implements speech.Transcriber.
func (t *Transcriber) Transcribe(ctx context.Context, audio []byte, format string) (speech.Result, error) {
	if len(audio) == 0 {
		return speech.Result{}, fmt.Errorf("openai transcriber: empty audio")
	}
	format = strings.TrimPrefix(strings.ToLower(format), ".")
	if format == "" {
		format = "webm"
	}
	contentType := mime.TypeByExtension("." + format)
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	params := oai.AudioTranscriptionNewParams{
		File:  oai.File(bytes.NewReader(audio), "answer."+format, contentType),
		Model: t.model,
	}
	if t.language != "" {
		params.Language = oai.String(t.language)
	}

	resp, err := t.client.Audio.Transcriptions.New(ctx, params)
	if err != nil {
		return speech.Result{}, fmt.Errorf("openai transcriber: transcribe: %w", err)
	}
	// The API does not report an utterance-level confidence.
	return speech.Result{Transcript: strings.TrimSpace(resp.Text)}, nil
}

// Synthesizer implements speech.Synthesizer using the OpenAI speech API.
type Synthesizer struct {
	client oai.Client
	model  string
	voice  string
}

// NewSynthesizer constructs a Synthesizer. apiKey must not be empty.
func NewSynthesizer(apiKey string, opts ...Option) (*Synthesizer, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai synthesizer: apiKey must not be empty")
	}
	cfg := &config{model: DefaultSpeechModel, voice: DefaultVoice}
	for _, o := range opts {
		o(cfg)
	}
	if cfg.model == "" {
		cfg.model = DefaultSpeechModel
	}
	if cfg.voice == "" {
		cfg.voice = DefaultVoice
	}
	return &Synthesizer{
		client: newClient(apiKey, cfg),
		model:  cfg.model,
		voice:  cfg.voice,
	}, nil
}

// Synthesize implements speech.Synthesizer. The audio is MP3 encoded.
func (s *Synthesizer) Synthesize(ctx context.Context, text string) ([]byte, string, error) {
	if strings.TrimSpace(text) == "" {
		return nil, "", fmt.Errorf("openai synthesizer: empty text")
	}
	resp, err := s.client.Audio.Speech.New(ctx, oai.AudioSpeechNewParams{
		Input:          text,
		Model:          s.model,
		Voice:          oai.AudioSpeechNewParamsVoice(s.voice),
		ResponseFormat: oai.AudioSpeechNewParamsResponseFormatMP3,
		Speed:          oai.Float(speechRate),
	})
	if err != nil {
		return nil, "", fmt.Errorf("openai synthesizer: synthesize: %w", err)
	}
	defer resp.Body.Close()

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("openai synthesizer: read audio: %w", err)
	}
	return audio, "audio/mpeg", nil
}
