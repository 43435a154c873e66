package config

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/MrWong99/parla/internal/progress"
	"github.com/MrWong99/parla/pkg/speech"
)

// ErrBackendNotRegistered is returned by the Create methods when no factory
// is registered under the requested name.
var ErrBackendNotRegistered = errors.New("config: backend not registered")

// OpenedStore is a progress store together with its lifecycle hooks. Ping
// and Close may be nil.
type OpenedStore struct {
	Store progress.Store
	Ping  func(ctx context.Context) error
	Close func() error
}

// StoreFactory opens a progress store.
type StoreFactory func(ctx context.Context, cfg StorageConfig) (OpenedStore, error)

// TranscriberFactory builds a server-side transcriber.
type TranscriberFactory func(ProviderEntry) (speech.Transcriber, error)

// SynthesizerFactory builds a server-side synthesizer.
type SynthesizerFactory func(ProviderEntry) (speech.Synthesizer, error)

// Registry maps backend and provider names to constructors. It is safe for
// concurrent use.
type Registry struct {
	mu           sync.RWMutex
	stores       map[StorageBackend]StoreFactory
	transcribers map[string]TranscriberFactory
	synthesizers map[string]SynthesizerFactory
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		stores:       make(map[StorageBackend]StoreFactory),
		transcribers: make(map[string]TranscriberFactory),
		synthesizers: make(map[string]SynthesizerFactory),
	}
}

// RegisterStore registers a store factory, replacing any earlier one.
func (r *Registry) RegisterStore(backend StorageBackend, f StoreFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stores[backend] = f
}

// RegisterTranscriber registers a transcriber factory.
func (r *Registry) RegisterTranscriber(name string, f TranscriberFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transcribers[name] = f
}

// RegisterSynthesizer registers a synthesizer factory.
func (r *Registry) RegisterSynthesizer(name string, f SynthesizerFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.synthesizers[name] = f
}

// OpenStore opens the store selected by cfg.Backend.
func (r *Registry) OpenStore(ctx context.Context, cfg StorageConfig) (OpenedStore, error) {
	r.mu.RLock()
	f, ok := r.stores[cfg.Backend]
	r.mu.RUnlock()
	if !ok {
		return OpenedStore{}, fmt.Errorf("%w: storage/%q", ErrBackendNotRegistered, cfg.Backend)
	}
	return f(ctx, cfg)
}

// CreateTranscriber builds the transcriber registered under entry.Name.
func (r *Registry) CreateTranscriber(entry ProviderEntry) (speech.Transcriber, error) {
	r.mu.RLock()
	f, ok := r.transcribers[entry.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: transcriber/%q", ErrBackendNotRegistered, entry.Name)
	}
	return f(entry)
}

// CreateSynthesizer builds the synthesizer registered under entry.Name.
func (r *Registry) CreateSynthesizer(entry ProviderEntry) (speech.Synthesizer, error) {
	r.mu.RLock()
	f, ok := r.synthesizers[entry.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: synthesizer/%q", ErrBackendNotRegistered, entry.Name)
	}
	return f(entry)
}

// Names lists the registered names per kind, sorted.
func (r *Registry) Names() map[string][]string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := map[string][]string{}
	for b := range r.stores {
		out["storage"] = append(out["storage"], string(b))
	}
	for n := range r.transcribers {
		out["transcriber"] = append(out["transcriber"], n)
	}
	for n := range r.synthesizers {
		out["synthesizer"] = append(out["synthesizer"], n)
	}
	for k := range out {
		slices.Sort(out[k])
	}
	return out
}
