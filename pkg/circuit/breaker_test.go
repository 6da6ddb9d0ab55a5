package circuit

import (
	"context"
	"errors"
	"testing"
	"time"
)

var errUpstream = errors.New("upstream down")

func failing(context.Context) error { return errUpstream }
func passing(context.Context) error { return nil }

func TestBreaker_OpensAfterConsecutiveFailures(t *testing.T) {
	b := New(Config{Name: "test_consec", MaxConsecFailures: 3, OpenFor: time.Minute}, nil)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := b.Do(ctx, failing, nil); !errors.Is(err, errUpstream) {
			t.Fatalf("call %d: err = %v", i, err)
		}
	}
	if b.State() != Open {
		t.Fatalf("state = %v, want open", b.State())
	}

	called := false
	err := b.Do(ctx, func(context.Context) error { called = true; return nil }, nil)
	if !errors.Is(err, ErrOpen) || called {
		t.Errorf("open breaker should short-circuit, err=%v called=%v", err, called)
	}
}

func TestBreaker_HalfOpenProbe(t *testing.T) {
	b := New(Config{Name: "test_probe", MaxConsecFailures: 1, OpenFor: time.Second}, nil)
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	b.now = func() time.Time { return now }
	ctx := context.Background()

	_ = b.Do(ctx, failing, nil)
	if b.State() != Open {
		t.Fatalf("state = %v, want open", b.State())
	}

	now = now.Add(2 * time.Second)
	if err := b.Do(ctx, passing, nil); err != nil {
		t.Fatalf("probe err = %v", err)
	}
	if b.State() != Closed {
		t.Errorf("successful probe should close, state = %v", b.State())
	}

	_ = b.Do(ctx, failing, nil)
	now = now.Add(2 * time.Second)
	_ = b.Do(ctx, failing, nil)
	if b.State() != Open {
		t.Errorf("failed probe should reopen, state = %v", b.State())
	}
}

func TestBreaker_UncountableErrorsPassThrough(t *testing.T) {
	b := New(Config{Name: "test_uncountable", MaxConsecFailures: 1}, nil)
	errBadInput := errors.New("bad input")
	notInput := func(err error) bool { return !errors.Is(err, errBadInput) }

	for i := 0; i < 5; i++ {
		err := b.Do(context.Background(), func(context.Context) error { return errBadInput }, notInput)
		if !errors.Is(err, errBadInput) {
			t.Fatalf("err = %v", err)
		}
	}
	if b.State() != Closed {
		t.Errorf("caller errors should not trip the breaker, state = %v", b.State())
	}
}

func TestBreaker_FailureRate(t *testing.T) {
	b := New(Config{Name: "test_rate", WindowSize: 4, MinSamples: 4, FailureRate: 0.5}, nil)
	ctx := context.Background()

	_ = b.Do(ctx, passing, nil)
	_ = b.Do(ctx, failing, nil)
	_ = b.Do(ctx, passing, nil)
	if b.State() != Closed {
		t.Fatalf("below min samples, state = %v", b.State())
	}
	_ = b.Do(ctx, failing, nil)
	if b.State() != Open {
		t.Errorf("half the window failed, state = %v", b.State())
	}
}

func TestBreaker_OperationTimeout(t *testing.T) {
	b := New(Config{Name: "test_timeout", OperationTimeout: 10 * time.Millisecond}, nil)
	err := b.Do(context.Background(), func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}, nil)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v, want deadline exceeded", err)
	}
}
