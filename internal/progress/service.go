package progress

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/MrWong99/parla/internal/observe"
)

// ErrNotFound is returned by a [Store] when no value exists for a key.
var ErrNotFound = errors.New("progress: record not found")

// DefaultRecordKey names the single persisted progress record.
const DefaultRecordKey = "parla_progress"

// Store persists opaque values under string keys.
//
// Implementations must be safe for concurrent use.
type Store interface {
	// Get returns the value stored under key, or [ErrNotFound].
	Get(ctx context.Context, key string) ([]byte, error)

	// Put stores value under key, replacing any previous value.
	Put(ctx context.Context, key string, value []byte) error
}

// Service loads, updates and saves the progress record held in a [Store].
// Read-modify-write cycles are serialised so concurrent session completions
// are never lost.
type Service struct {
	store  Store
	ledger *Ledger
	key    string
	log    *slog.Logger

	mu sync.Mutex
}

// ServiceOption configures a [Service].
type ServiceOption func(*Service)

// WithRecordKey overrides [DefaultRecordKey].
func WithRecordKey(key string) ServiceOption {
	return func(s *Service) {
		if key != "" {
			s.key = key
		}
	}
}

// WithLedger sets the ledger used to apply sessions.
func WithLedger(l *Ledger) ServiceOption {
	return func(s *Service) {
		if l != nil {
			s.ledger = l
		}
	}
}

// WithLogger sets the logger. Defaults to [slog.Default].
func WithLogger(l *slog.Logger) ServiceOption {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}

// NewService creates a Service backed by store.
func NewService(store Store, opts ...ServiceOption) *Service {
	s := &Service{
		store:  store,
		ledger: NewLedger(),
		key:    DefaultRecordKey,
		log:    slog.Default(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Ledger returns the ledger the service applies sessions with.
func (s *Service) Ledger() *Ledger { return s.ledger }

// Load returns the persisted record. A missing or undecodable record yields
// [Default]; only storage failures are returned as errors.
func (s *Service) Load(ctx context.Context) (UserProgress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(ctx)
}

func (s *Service) load(ctx context.Context) (UserProgress, error) {
	raw, err := s.store.Get(ctx, s.key)
	if errors.Is(err, ErrNotFound) {
		return Default(), nil
	}
	if err != nil {
		return UserProgress{}, fmt.Errorf("progress: load %q: %w", s.key, err)
	}
	if len(raw) == 0 {
		return Default(), nil
	}

	var p UserProgress
	if err := json.Unmarshal(raw, &p); err != nil {
		s.log.Warn("progress record unreadable, starting fresh", "key", s.key, "err", err)
		return Default(), nil
	}
	return p.normalize(), nil
}

// Save replaces the persisted record with p.
func (s *Service) Save(ctx context.Context, p UserProgress) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(ctx, p)
}

func (s *Service) save(ctx context.Context, p UserProgress) error {
	raw, err := json.Marshal(p.normalize())
	if err != nil {
		return fmt.Errorf("progress: encode: %w", err)
	}
	if err := s.store.Put(ctx, s.key, raw); err != nil {
		return fmt.Errorf("progress: save %q: %w", s.key, err)
	}
	return nil
}

// RecordSession credits a completed session to the persisted record and
// returns the updated value.
func (s *Service) RecordSession(ctx context.Context, phrases, seconds int, mode string) (_ UserProgress, err error) {
	ctx, span := observe.StartSpan(ctx, "progress.RecordSession", trace.WithAttributes(
		attribute.String("parla.mode", mode),
		attribute.Int("parla.phrases", phrases),
		attribute.Int("parla.seconds", seconds),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.load(ctx)
	if err != nil {
		return UserProgress{}, err
	}
	p = s.ledger.RecordSession(p, phrases, seconds, mode)
	if err := s.save(ctx, p); err != nil {
		return UserProgress{}, err
	}

	observe.LoggerFrom(ctx, s.log).Info("session recorded",
		"mode", mode,
		"phrases", max(phrases, 0),
		"seconds", max(seconds, 0),
		"streak", p.Streak,
		"xp", p.XP,
		"level", p.Level,
	)
	return p, nil
}

// Reset replaces the persisted record with [Default].
func (s *Service) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(ctx, Default())
}
