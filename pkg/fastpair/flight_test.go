package fastpair

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestFlightGroupJoins(t *testing.T) {
	var g flightGroup
	release := make(chan struct{})
	started := make(chan struct{})
	var calls atomic.Int32

	want, err := NewSharedSecret([]byte{0x04, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15}, "AA:BB:CC:DD:EE:FF")
	if err != nil {
		t.Fatalf("NewSharedSecret() error = %v", err)
	}

	type outcome struct {
		r      flightResult
		err    error
		leader bool
	}
	leader := make(chan outcome, 1)
	go func() {
		r, err, l := g.do(context.Background(), "k", "pair", func() (flightResult, error) {
			calls.Add(1)
			close(started)
			<-release
			return flightResult{secret: want}, nil
		})
		leader <- outcome{r, err, l}
	}()
	<-started

	joiner := make(chan outcome, 1)
	go func() {
		r, err, l := g.do(context.Background(), "k", "pair", func() (flightResult, error) {
			t.Error("joiner ran fn")
			return flightResult{}, nil
		})
		joiner <- outcome{r, err, l}
	}()
	waitFor(t, func() bool { return g.joiners("k") == 1 })

	close(release)
	l := <-leader
	if !l.leader || l.err != nil || !l.r.secret.Equal(want) {
		t.Errorf("leader got %+v", l)
	}
	j := <-joiner
	if j.leader || j.err != nil || !j.r.secret.Equal(want) {
		t.Errorf("joiner got %+v, want the leader's result", j)
	}
	if n := calls.Load(); n != 1 {
		t.Errorf("fn ran %d times, want 1", n)
	}
	if g.joiners("k") != 0 {
		t.Error("flight not cleaned up")
	}
}

func TestFlightGroupJoinerCancel(t *testing.T) {
	var g flightGroup
	release := make(chan struct{})
	started := make(chan struct{})
	defer close(release)

	go g.do(context.Background(), "k", "pair", func() (flightResult, error) {
		close(started)
		<-release
		return flightResult{}, nil
	})
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err, leader := g.do(ctx, "k", "pair", func() (flightResult, error) {
		t.Error("joiner ran fn")
		return flightResult{}, nil
	})
	if leader {
		t.Error("leader = true for a joiner")
	}
	if KindOf(err) != KindCancelled || !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("error = %v, want CANCELLED wrapping DeadlineExceeded", err)
	}
	if g.joiners("k") != 0 {
		t.Errorf("joiners = %d after detach, want 0", g.joiners("k"))
	}
}

func TestFlightGroupLeaderWaitsForFn(t *testing.T) {
	var g flightGroup
	ctx, cancel := context.WithCancel(context.Background())

	var finished atomic.Bool
	_, err, leader := g.do(ctx, "k", "pair", func() (flightResult, error) {
		cancel()
		time.Sleep(10 * time.Millisecond)
		finished.Store(true)
		return flightResult{}, &Error{Kind: KindCancelled, Err: ctx.Err()}
	})
	if !leader {
		t.Error("leader = false")
	}
	if !finished.Load() {
		t.Error("leader returned before fn finished")
	}
	if KindOf(err) != KindCancelled {
		t.Errorf("error = %v, want CANCELLED", err)
	}
}

func TestFlightGroupCancelledLeaderSkipsFn(t *testing.T) {
	var g flightGroup
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err, _ := g.do(ctx, "k", "pair", func() (flightResult, error) {
		t.Error("fn ran with a cancelled context")
		return flightResult{}, nil
	})
	if KindOf(err) != KindCancelled || !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want CANCELLED wrapping Canceled", err)
	}
}

func TestFlightGroupKeyFreeAfterReturn(t *testing.T) {
	var g flightGroup
	var calls atomic.Int32
	fn := func() (flightResult, error) {
		calls.Add(1)
		return flightResult{}, nil
	}

	for range 2 {
		if _, _, leader := g.do(context.Background(), "k", "pair", fn); !leader {
			t.Error("sequential call joined a finished flight")
		}
	}
	if n := calls.Load(); n != 2 {
		t.Errorf("fn ran %d times, want 2", n)
	}
}

func TestCallWithTimeout(t *testing.T) {
	v, err := callWithTimeout(context.Background(), time.Second, func(context.Context) (int, error) {
		return 7, nil
	})
	if err != nil || v != 7 {
		t.Errorf("callWithTimeout() = %d, %v; want 7, nil", v, err)
	}

	_, err = callWithTimeout(context.Background(), 10*time.Millisecond, func(ctx context.Context) (int, error) {
		<-ctx.Done()
		return 0, ctx.Err()
	})
	if !errors.Is(err, errHookTimeout) {
		t.Errorf("slow hook error = %v, want errHookTimeout", err)
	}
	if classify(err, KindBond) != KindTimeout {
		t.Error("hook timeout should classify as TIMEOUT")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = callWithTimeout(ctx, time.Second, func(ctx context.Context) (int, error) {
		<-ctx.Done()
		return 0, ctx.Err()
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("cancelled caller error = %v, want context.Canceled", err)
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met within 1s")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestOnLink(t *testing.T) {
	v, err := onLink(context.Background(), time.Second, "dial", func(context.Context) (int, error) {
		return 3, nil
	})
	if err != nil || v != 3 {
		t.Errorf("onLink() = %d, %v; want 3, nil", v, err)
	}

	_, err = onLink(context.Background(), 10*time.Millisecond, "dial", func(ctx context.Context) (int, error) {
		<-ctx.Done()
		return 0, ctx.Err()
	})
	if KindOf(err) != KindTimeout || !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("silent step error = %v, want TIMEOUT wrapping DeadlineExceeded", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = onLink(ctx, time.Second, "dial", func(ctx context.Context) (int, error) {
		return 0, ctx.Err()
	})
	if KindOf(err) == KindTimeout || !errors.Is(err, context.Canceled) {
		t.Errorf("cancelled caller error = %v, want plain context.Canceled", err)
	}
}

func TestClassifyDeadline(t *testing.T) {
	if k := classify(context.DeadlineExceeded, KindBond); k != KindTimeout {
		t.Errorf("classify(DeadlineExceeded) = %v, want TIMEOUT", k)
	}
	if k := classify(context.Canceled, KindBond); k != KindCancelled {
		t.Errorf("classify(Canceled) = %v, want CANCELLED", k)
	}
}
