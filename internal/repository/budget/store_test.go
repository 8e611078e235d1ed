package budget

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kailas-cloud/bookrec/internal/db"
)

type fakeKV struct {
	values  map[string][]byte
	incrs   map[string]int64
	ttls    map[string]time.Duration
	getErr  error
	incrErr error
}

func newFakeKV() *fakeKV {
	return &fakeKV{
		values: map[string][]byte{},
		incrs:  map[string]int64{},
		ttls:   map[string]time.Duration{},
	}
}

func (f *fakeKV) Get(_ context.Context, key string) ([]byte, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	v, ok := f.values[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return v, nil
}

func (f *fakeKV) Incr(_ context.Context, key string, by int64, ttl time.Duration) (int64, error) {
	if f.incrErr != nil {
		return 0, f.incrErr
	}
	f.incrs[key] += by
	if _, ok := f.ttls[key]; !ok {
		f.ttls[key] = ttl
	}
	return f.incrs[key], nil
}

func TestStore_AddExpiresAfterWindow(t *testing.T) {
	kv := newFakeKV()
	s := New(kv, 24*time.Hour)
	now := time.Date(2026, 10, 19, 18, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }
	ctx := context.Background()

	if err := s.Add(ctx, "bookrec:budget:openai:daily:2026-10-19", 5, now.Add(6*time.Hour)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.Add(ctx, "bookrec:budget:openai:monthly:2026-09", 5, now.Add(-time.Hour)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := kv.incrs["bookrec:budget:openai:daily:2026-10-19"]; got != 5 {
		t.Errorf("incr = %d, want 5", got)
	}
	if got := kv.ttls["bookrec:budget:openai:daily:2026-10-19"]; got != 30*time.Hour {
		t.Errorf("daily ttl = %v, want 30h", got)
	}
	if got := kv.ttls["bookrec:budget:openai:monthly:2026-09"]; got != 24*time.Hour {
		t.Errorf("closed window ttl = %v, want grace only", got)
	}
}

func TestStore_AddError(t *testing.T) {
	kv := newFakeKV()
	kv.incrErr = errors.New("conn refused")
	s := New(kv, time.Hour)

	if err := s.Add(context.Background(), "k", 1, time.Now()); !errors.Is(err, kv.incrErr) {
		t.Fatalf("expected wrapped error, got %v", err)
	}
	if len(kv.incrs) != 0 {
		t.Error("failed increment must not be counted")
	}
}

func TestStore_Load(t *testing.T) {
	kv := newFakeKV()
	kv.values["present"] = []byte("42")
	kv.values["garbage"] = []byte("forty")
	s := New(kv, time.Hour)
	ctx := context.Background()

	if v, err := s.Load(ctx, "present"); err != nil || v != 42 {
		t.Errorf("Load(present) = %d, %v", v, err)
	}
	if v, err := s.Load(ctx, "missing"); err != nil || v != 0 {
		t.Errorf("Load(missing) = %d, %v; want 0, nil", v, err)
	}
	if _, err := s.Load(ctx, "garbage"); err == nil {
		t.Error("expected parse error")
	}

	kv.getErr = errors.New("timeout")
	if _, err := s.Load(ctx, "present"); !errors.Is(err, kv.getErr) {
		t.Errorf("expected wrapped store error, got %v", err)
	}
}
