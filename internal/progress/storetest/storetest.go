// Package storetest holds a conformance suite shared by every
// [progress.Store] implementation.
package storetest

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/MrWong99/parla/internal/progress"
)

// Run exercises the store contract against s. s must start empty.
func Run(t *testing.T, s progress.Store) {
	t.Helper()
	ctx := context.Background()

	if _, err := s.Get(ctx, "missing"); !errors.Is(err, progress.ErrNotFound) {
		t.Fatalf("Get(missing) err = %v, want ErrNotFound", err)
	}

	first := []byte(`{"streak":1}`)
	if err := s.Put(ctx, "k", first); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, err := s.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !bytes.Equal(got, first) {
		t.Errorf("Get = %q, want %q", got, first)
	}

	second := []byte(`{"streak":2}`)
	if err := s.Put(ctx, "k", second); err != nil {
		t.Fatalf("Put overwrite: %v", err)
	}
	got, err = s.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get after overwrite: %v", err)
	}
	if !bytes.Equal(got, second) {
		t.Errorf("Get after overwrite = %q, want %q", got, second)
	}

	if err := s.Put(ctx, "other", []byte("x")); err != nil {
		t.Fatalf("Put other: %v", err)
	}
	got, _ = s.Get(ctx, "k")
	if !bytes.Equal(got, second) {
		t.Errorf("keys not isolated: Get(k) = %q", got)
	}

	// Round-trip through a Service to make sure the stored bytes are usable.
	svc := progress.NewService(s, progress.WithRecordKey("svc"))
	p, err := svc.RecordSession(ctx, 2, 30, "fluency")
	if err != nil {
		t.Fatalf("RecordSession: %v", err)
	}
	loaded, err := svc.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.XP != p.XP || loaded.XP != 50 {
		t.Errorf("loaded xp = %d, want 50", loaded.XP)
	}
}
