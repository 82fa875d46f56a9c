// Package inflight tracks which entities have a mutating call outstanding,
// so a second submit for the same entity is refused until the first
// settles.
package inflight

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrBusy is returned by Begin when the key already has a call in flight.
var ErrBusy = errors.New("an operation for this item is already in progress")

// Key kinds.
const (
	KindRequest = "request"
	KindAccept  = "accept"
	KindReturn  = "return"
	KindProfile = "profile"
)

// Key builds a guard key such as "accept:12".
func Key(kind string, id interface{}) string {
	return fmt.Sprintf("%s:%v", kind, id)
}

// Guard is a set of busy keys. The zero value is ready to use.
type Guard struct {
	mu   sync.Mutex
	busy map[string]context.CancelFunc
}

// New returns an empty Guard.
func New() *Guard {
	return &Guard{}
}

// Begin marks key busy and returns a context derived from ctx that Cancel
// can abort. done must be called once the call settles; it releases the
// key and the context. Begin returns ErrBusy if key is already marked.
func (g *Guard) Begin(ctx context.Context, key string) (context.Context, func(), error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.busy[key]; ok {
		return ctx, func() {}, fmt.Errorf("%s: %w", key, ErrBusy)
	}
	if g.busy == nil {
		g.busy = make(map[string]context.CancelFunc)
	}
	cctx, cancel := context.WithCancel(ctx)
	g.busy[key] = cancel

	var once sync.Once
	done := func() {
		once.Do(func() {
			g.mu.Lock()
			delete(g.busy, key)
			g.mu.Unlock()
			cancel()
		})
	}
	return cctx, done, nil
}

// Busy reports whether key has a call in flight.
func (g *Guard) Busy(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.busy[key]
	return ok
}

// Cancel aborts the call in flight for key, if any. The key stays busy
// until the caller's done runs.
func (g *Guard) Cancel(key string) bool {
	g.mu.Lock()
	cancel, ok := g.busy[key]
	g.mu.Unlock()
	if ok {
		cancel()
	}
	return ok
}

// CancelAll aborts every call in flight.
func (g *Guard) CancelAll() {
	g.mu.Lock()
	cancels := make([]context.CancelFunc, 0, len(g.busy))
	for _, c := range g.busy {
		cancels = append(cancels, c)
	}
	g.mu.Unlock()
	for _, c := range cancels {
		c()
	}
}

// Len returns the number of busy keys.
func (g *Guard) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.busy)
}
