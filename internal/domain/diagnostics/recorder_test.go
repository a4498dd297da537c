package diagnostics

import (
	"context"
	"sync"
	"testing"
)

func TestRecorder_CountersAndHitRate(t *testing.T) {
	r := New()
	r.APICall()
	r.APICall()
	r.CacheHit()
	r.CacheHit()
	r.CacheHit()
	r.CacheMiss()

	snap := r.Snapshot()
	if snap.APICalls != 2 {
		t.Errorf("expected 2 api calls, got %d", snap.APICalls)
	}
	if snap.CacheHitRate() != 0.75 {
		t.Errorf("expected hit rate 0.75, got %v", snap.CacheHitRate())
	}
}

func TestRecorder_HitRateWithoutLookups(t *testing.T) {
	if rate := New().Snapshot().CacheHitRate(); rate != 0 {
		t.Errorf("expected 0, got %v", rate)
	}
}

func TestRecorder_WarnDeduplicates(t *testing.T) {
	r := New()
	r.Warn("a")
	r.Warn("b")
	r.Warn("a")

	snap := r.Snapshot()
	if len(snap.Warnings) != 2 {
		t.Fatalf("expected 2 warnings, got %v", snap.Warnings)
	}
	if snap.Warnings[0] != "a" || snap.Warnings[1] != "b" {
		t.Errorf("unexpected order: %v", snap.Warnings)
	}
}

func TestRecorder_NilSafe(t *testing.T) {
	var r *Recorder
	r.APICall()
	r.CacheHit()
	r.CacheMiss()
	r.Warn("ignored")

	snap := r.Snapshot()
	if snap.APICalls != 0 || snap.Warnings == nil {
		t.Errorf("unexpected snapshot from nil recorder: %+v", snap)
	}

	// no recorder attached
	Warn(context.Background(), "ignored")
}

func TestRecorder_Context(t *testing.T) {
	r := New()
	ctx := WithRecorder(context.Background(), r)

	if FromContext(ctx) != r {
		t.Fatal("expected recorder from context")
	}
	Warn(ctx, "via context")
	if got := r.Snapshot().Warnings; len(got) != 1 {
		t.Errorf("expected 1 warning, got %v", got)
	}
}

func TestRecorder_Concurrent(t *testing.T) {
	r := New()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.APICall()
			r.CacheMiss()
			r.Warn("same")
		}()
	}
	wg.Wait()

	snap := r.Snapshot()
	if snap.APICalls != 50 || snap.CacheMisses != 50 {
		t.Errorf("unexpected counters: %+v", snap)
	}
	if len(snap.Warnings) != 1 {
		t.Errorf("expected 1 warning, got %d", len(snap.Warnings))
	}
}
