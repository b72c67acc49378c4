package fastpair

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var errHookTimeout = errors.New("callback timed out")

type hookResult[T any] struct {
	v   T
	err error
}

// callWithTimeout runs fn on its own goroutine under timeout. It returns when
// fn returns or when its context is done, whichever comes first; in the
// latter case fn has been cancelled. A fn that fails after its context ended
// counts as having run out of time. The error is then ctx.Err() if the
// caller's ctx ended, errHookTimeout if only the timeout did.
func callWithTimeout[T any](ctx context.Context, timeout time.Duration, fn func(context.Context) (T, error)) (T, error) {
	hctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ch := make(chan hookResult[T], 1)
	go func() {
		v, err := fn(hctx)
		ch <- hookResult[T]{v: v, err: err}
	}()

	var zero T
	select {
	case r := <-ch:
		if r.err == nil || hctx.Err() == nil {
			return r.v, r.err
		}
	case <-hctx.Done():
	}
	if err := ctx.Err(); err != nil {
		return zero, err
	}
	return zero, errHookTimeout
}

// onLink runs one step on the provider link under timeout. A step that fails
// once its deadline passed is a KindTimeout failure, unless the caller's ctx
// ended first.
func onLink[T any](ctx context.Context, timeout time.Duration, step string, fn func(context.Context) (T, error)) (T, error) {
	lctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	v, err := fn(lctx)
	if err != nil && ctx.Err() == nil && lctx.Err() != nil {
		return v, &Error{Kind: KindTimeout, Err: fmt.Errorf("%s: provider did not answer within %s: %w", step, timeout, err)}
	}
	return v, err
}
