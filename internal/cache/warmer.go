package cache

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/scriptvoid/scriptvoid/internal/metrics"
	"github.com/scriptvoid/scriptvoid/internal/model"
)

// Warm data kinds served by GetWarmedData.
const (
	WarmPopular = "popular"
	WarmNewest  = "newest"
)

// WarmSource is the read side the warmer prefetches from. Implemented by
// the script repository.
type WarmSource interface {
	ListPopular(ctx context.Context, limit int) ([]model.Script, error)
	ListNewest(ctx context.Context, limit int) ([]model.Script, error)
}

// Warmer prefetches the popular and newest first pages ahead of request
// time. It is cold until the first successful warm; while a warm cycle is
// in flight, concurrent callers share that cycle instead of launching their
// own. A failed cycle leaves the warmer cold so the next trigger retries.
type Warmer struct {
	source    WarmSource
	pageSize  int
	freshness time.Duration
	now       func() time.Time

	mu       sync.Mutex
	warm     bool
	warmedAt time.Time
	data     map[string][]model.Script
	inflight chan struct{} // non-nil while a cycle runs; closed on completion
	lastErr  error
}

// NewWarmer builds a warmer over source. pageSize is the number of scripts
// prefetched per kind; freshness is how long warmed data is served before
// callers must fall back to a live query.
func NewWarmer(source WarmSource, pageSize int, freshness time.Duration) *Warmer {
	return &Warmer{
		source:    source,
		pageSize:  pageSize,
		freshness: freshness,
		now:       time.Now,
	}
}

// WarmCache runs one warm cycle, or joins the cycle already in flight.
// It returns the cycle's error; the warmer itself never stays in a partial
// state on failure.
func (w *Warmer) WarmCache(ctx context.Context) error {
	w.mu.Lock()
	if ch := w.inflight; ch != nil {
		w.mu.Unlock()
		select {
		case <-ch:
		case <-ctx.Done():
			return ctx.Err()
		}
		w.mu.Lock()
		err := w.lastErr
		w.mu.Unlock()
		return err
	}
	ch := make(chan struct{})
	w.inflight = ch
	w.mu.Unlock()

	popular, errP := w.source.ListPopular(ctx, w.pageSize)
	newest, errN := w.source.ListNewest(ctx, w.pageSize)

	w.mu.Lock()
	defer w.mu.Unlock()
	w.inflight = nil
	close(ch)

	if errP != nil || errN != nil {
		// Revert to cold; do not keep partial data.
		w.warm = false
		w.data = nil
		if errP != nil {
			w.lastErr = errP
		} else {
			w.lastErr = errN
		}
		log.Printf("[WARMER] warm cycle failed: %v", w.lastErr)
		return w.lastErr
	}

	w.warm = true
	w.warmedAt = w.now()
	w.data = map[string][]model.Script{
		WarmPopular: popular,
		WarmNewest:  newest,
	}
	w.lastErr = nil
	metrics.WarmCycle()
	return nil
}

// GetWarmedData returns the prefetched page for kind while the data is
// within the freshness window, else nil (caller falls through to a live
// query).
func (w *Warmer) GetWarmedData(kind string) []model.Script {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.warm || w.now().Sub(w.warmedAt) >= w.freshness {
		return nil
	}
	return w.data[kind]
}

// ReWarmCache forces a fresh cycle: state is reset to cold first so stale
// data is never served while the new cycle runs.
func (w *Warmer) ReWarmCache(ctx context.Context) error {
	w.mu.Lock()
	if ch := w.inflight; ch != nil {
		// Let the running cycle finish before invalidating its result.
		w.mu.Unlock()
		select {
		case <-ch:
		case <-ctx.Done():
			return ctx.Err()
		}
		w.mu.Lock()
	}
	w.warm = false
	w.data = nil
	w.mu.Unlock()

	return w.WarmCache(ctx)
}
