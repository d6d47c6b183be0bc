// usage:
//
//	raw := sloghooks.New(slog.Default(), sloghooks.Options{
//	    DecodeRejectedEvery: 100, // hostile input can be frequent
//	})
//
//	hooks := asynchook.New(raw, 1, 1000) // 1 worker; queue 1000 events
//	defer hooks.Close()
//
//	store, _ := blockstore.New(blockstore.Options{
//	    Provider: provider,
//	    Hooks:    hooks, // or `raw` if you don't want async
//	})
package asynchook

import (
	"sync"
	"sync/atomic"

	"github.com/unkn0wn-root/canoncbor"
)

// Hooks forwards events to inner on worker goroutines. When the queue is
// full, events are dropped and counted.
type Hooks struct {
	inner   canoncbor.Hooks
	q       chan func()
	wg      sync.WaitGroup
	once    sync.Once
	mu      sync.RWMutex
	closed  bool
	dropped atomic.Uint64
}

var _ canoncbor.Hooks = (*Hooks)(nil)

func New(inner canoncbor.Hooks, workers, qlen int) *Hooks {
	if workers <= 0 {
		workers = 1
	}
	if qlen <= 0 {
		qlen = 1024
	}

	h := &Hooks{inner: inner, q: make(chan func(), qlen)}
	h.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer h.wg.Done()
			for f := range h.q {
				f()
			}
		}()
	}
	return h
}

// Close drains queued events and stops the workers. Events after Close are dropped.
func (h *Hooks) Close() {
	h.once.Do(func() {
		h.mu.Lock()
		h.closed = true
		close(h.q)
		h.mu.Unlock()
		h.wg.Wait()
	})
}

// Dropped is the number of events lost to a full queue or a closed Hooks.
func (h *Hooks) Dropped() uint64 { return h.dropped.Load() }

func (h *Hooks) try(f func()) {
	h.mu.RLock()
	if !h.closed {
		select {
		case h.q <- f:
			h.mu.RUnlock()
			return
		default:
		}
	}
	h.mu.RUnlock()
	h.dropped.Add(1)
}

func (h *Hooks) DecodeRejected(kind, limit string, size int) {
	h.try(func() { h.inner.DecodeRejected(kind, limit, size) })
}
func (h *Hooks) NonCanonicalInput(size, canonicalSize int) {
	h.try(func() { h.inner.NonCanonicalInput(size, canonicalSize) })
}
func (h *Hooks) EncodeRejected(size, max int) { h.try(func() { h.inner.EncodeRejected(size, max) }) }
func (h *Hooks) BlockCorrupt(id string)       { h.try(func() { h.inner.BlockCorrupt(id) }) }
