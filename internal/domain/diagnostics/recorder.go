// Package diagnostics collects per-request counters and warnings that end up in a search result's metadata.
package diagnostics

import (
	"context"
	"sync"
	"sync/atomic"
)

type ctxKey struct{}

// Recorder is safe for concurrent use. All methods accept a nil receiver.
type Recorder struct {
	apiCalls    atomic.Int64
	cacheHits   atomic.Int64
	cacheMisses atomic.Int64

	mu       sync.Mutex
	warnings []string
	seen     map[string]struct{}
}

// New creates an empty recorder
func New() *Recorder {
	return &Recorder{seen: make(map[string]struct{})}
}

// WithRecorder attaches r to ctx
func WithRecorder(ctx context.Context, r *Recorder) context.Context {
	return context.WithValue(ctx, ctxKey{}, r)
}

// FromContext returns the recorder attached to ctx, or nil
func FromContext(ctx context.Context) *Recorder {
	r, _ := ctx.Value(ctxKey{}).(*Recorder)
	return r
}

func (r *Recorder) APICall() {
	if r != nil {
		r.apiCalls.Add(1)
	}
}

func (r *Recorder) CacheHit() {
	if r != nil {
		r.cacheHits.Add(1)
	}
}

func (r *Recorder) CacheMiss() {
	if r != nil {
		r.cacheMisses.Add(1)
	}
}

// Warn records a warning once; repeated identical messages are dropped
func (r *Recorder) Warn(msg string) {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.seen[msg]; ok {
		return
	}
	r.seen[msg] = struct{}{}
	r.warnings = append(r.warnings, msg)
}

// Snapshot is a point-in-time copy of the recorder
type Snapshot struct {
	APICalls    int64
	CacheHits   int64
	CacheMisses int64
	Warnings    []string
}

// CacheHitRate is hits / (hits + misses), zero when there were no lookups
func (s Snapshot) CacheHitRate() float64 {
	total := s.CacheHits + s.CacheMisses
	if total == 0 {
		return 0
	}
	return float64(s.CacheHits) / float64(total)
}

func (r *Recorder) Snapshot() Snapshot {
	if r == nil {
		return Snapshot{Warnings: []string{}}
	}
	r.mu.Lock()
	warnings := make([]string, len(r.warnings))
	copy(warnings, r.warnings)
	r.mu.Unlock()

	return Snapshot{
		APICalls:    r.apiCalls.Load(),
		CacheHits:   r.cacheHits.Load(),
		CacheMisses: r.cacheMisses.Load(),
		Warnings:    warnings,
	}
}

// Warn records msg on the recorder attached to ctx, if any
func Warn(ctx context.Context, msg string) {
	FromContext(ctx).Warn(msg)
}
