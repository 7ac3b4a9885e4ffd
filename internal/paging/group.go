package paging

import (
	"context"
	"sync"

	"github.com/sourcegraph/conc/panics"
)

// Group owns the cancellation handle for every fetch started by one loader.
// Cancelling the group cancels all of them as a unit.
type Group struct {
	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	idle   *sync.Cond
	active int
	panics panics.Catcher
}

// NewGroup derives a cancellable group from parent.
func NewGroup(parent context.Context) *Group {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)
	g := &Group{ctx: ctx, cancel: cancel}
	g.idle = sync.NewCond(&g.mu)
	return g
}

// Go runs fn on a new goroutine with the group context. It reports false, without
// running fn, once the group is cancelled.
func (g *Group) Go(fn func(ctx context.Context)) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.ctx.Err() != nil {
		return false
	}
	g.active++
	ctx := g.ctx
	go func() {
		defer g.finish()
		g.panics.Try(func() { fn(ctx) })
	}()
	return true
}

func (g *Group) finish() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.active--
	if g.active == 0 {
		g.idle.Broadcast()
	}
}

// Cancel cancels the group context. It does not wait.
func (g *Group) Cancel() {
	g.mu.Lock()
	g.cancel()
	g.mu.Unlock()
}

// Wait blocks until no goroutine started with Go is running. Go may be called
// concurrently; work it starts before Wait observes an idle group is waited for too.
// A panic in one of the goroutines is re-raised here.
func (g *Group) Wait() {
	g.mu.Lock()
	for g.active > 0 {
		g.idle.Wait()
	}
	g.mu.Unlock()
	g.panics.Repanic()
}

// Done is closed when the group is cancelled.
func (g *Group) Done() <-chan struct{} {
	return g.ctx.Done()
}
