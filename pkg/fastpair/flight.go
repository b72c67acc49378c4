package fastpair

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"
)

// flightGroup runs at most one call per key. Callers arriving while a call
// is in flight wait for it and receive its result.
type flightGroup struct {
	group singleflight.Group

	mu      sync.Mutex
	callers map[string]int
}

// flightResult is what a call hands back to everyone in its flight. sess is
// set when the call failed after starting a session.
type flightResult struct {
	secret SharedSecret
	sess   *session
}

// do runs fn as the leader for key, or joins the running call. A joiner whose
// ctx is done detaches with a KindCancelled error. The leader always waits
// for fn, which observes ctx itself. A leader whose ctx ended before fn
// started gets KindCancelled without fn running.
//
// The key is released before any caller returns, so the leader may start a
// new call for the same key as soon as do returns.
func (g *flightGroup) do(ctx context.Context, key string, op string, fn func() (flightResult, error)) (r flightResult, err error, leader bool) {
	g.enter(key)
	defer g.leave(key)

	started := make(chan struct{})
	ch := g.group.DoChan(key, func() (any, error) {
		close(started)
		if err := ctx.Err(); err != nil {
			return flightResult{}, &Error{Kind: KindCancelled, Op: op, Err: err}
		}
		return fn()
	})

	select {
	case res := <-ch:
		r, _ = res.Val.(flightResult)
		return r, res.Err, isClosed(started)
	case <-ctx.Done():
	}

	if isClosed(started) {
		res := <-ch
		r, _ = res.Val.(flightResult)
		return r, res.Err, true
	}
	return flightResult{}, &Error{Kind: KindCancelled, Op: op, Err: ctx.Err()}, false
}

// joiners returns the number of callers waiting on the running call for key.
func (g *flightGroup) joiners(key string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	if n := g.callers[key]; n > 1 {
		return n - 1
	}
	return 0
}

func (g *flightGroup) enter(key string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.callers == nil {
		g.callers = make(map[string]int)
	}
	g.callers[key]++
}

func (g *flightGroup) leave(key string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.callers[key]--; g.callers[key] <= 0 {
		delete(g.callers, key)
	}
}

func isClosed(ch <-chan struct{}) bool {
	select {
	case <-ch:
		return true
	default:
		return false
	}
}
