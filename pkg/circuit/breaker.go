package circuit

import (
	"context"
	"errors"
	"sync"
	"time"

	"address-reconciliation/pkg/logging"
	"address-reconciliation/pkg/metrics"
)

// State represents the circuit breaker state
// Closed: normal operation; HalfOpen: testing; Open: fail fast
type State int

const (
	Closed State = iota
	Open
	HalfOpen
)

func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case HalfOpen:
		return "half_open"
	}
	return "unknown"
}

// Config tunes a circuit breaker instance.
type Config struct {
	Name string

	OperationTimeout  time.Duration // per-call timeout, 0 = caller's deadline only
	OpenFor           time.Duration // how long to stay open before probing
	MaxConsecFailures int           // consecutive failures to open
	WindowSize        int           // sliding window of recent calls
	FailureRate       float64       // 0..1 fraction in window to open
	MinSamples        int           // calls needed before FailureRate applies
}

// ErrOpen indicates the breaker is open and calls are short-circuited.
var ErrOpen = errors.New("circuit open")

var (
	mState = metrics.Default.GaugeVec("circuit_state",
		"Circuit breaker state (0=closed,1=open,2=half-open)", "breaker")
	mCalls = metrics.Default.CounterVec("circuit_calls_total",
		"Calls through a circuit breaker by result", "breaker", "result")
	mLatency = metrics.Default.HistogramVec("circuit_call_duration_seconds",
		"Latency of calls through a circuit breaker", nil, "breaker")
)

type Breaker struct {
	cfg        Config
	mu         sync.Mutex
	st         State
	nextProbe  time.Time
	consecFail int

	win  []bool // true = failure
	idx  int
	used int

	now func() time.Time
	log *logging.ComponentLogger
}

func New(cfg Config, log *logging.Logger) *Breaker {
	if cfg.WindowSize <= 0 {
		cfg.WindowSize = 20
	}
	if cfg.OpenFor <= 0 {
		cfg.OpenFor = 30 * time.Second
	}
	if cfg.MinSamples <= 0 {
		cfg.MinSamples = cfg.WindowSize / 2
	}
	if log == nil {
		log = logging.Nop()
	}
	b := &Breaker{
		cfg: cfg,
		st:  Closed,
		win: make([]bool, cfg.WindowSize),
		now: time.Now,
		log: log.WithComponent("circuit"),
	}
	mState.WithLabelValues(cfg.Name).Set(0)
	return b
}

// State returns the current state without side effects.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.st
}

func (b *Breaker) setStateLocked(st State) {
	if b.st == st {
		return
	}
	b.st = st
	mState.WithLabelValues(b.cfg.Name).Set(float64(st))
	b.log.Info("breaker state change", logging.String("name", b.cfg.Name), logging.String("state", st.String()))
}

func (b *Breaker) tripLocked() {
	b.setStateLocked(Open)
	b.nextProbe = b.now().Add(b.cfg.OpenFor)
}

// record adds a sample into the ring and opens the breaker past a threshold.
func (b *Breaker) recordLocked(failed bool) {
	b.win[b.idx] = failed
	if b.used < len(b.win) {
		b.used++
	}
	b.idx = (b.idx + 1) % len(b.win)

	if b.st != Closed {
		return
	}
	if b.cfg.MaxConsecFailures > 0 && b.consecFail >= b.cfg.MaxConsecFailures {
		b.tripLocked()
		return
	}
	if b.cfg.FailureRate > 0 && b.used >= b.cfg.MinSamples {
		fail := 0
		for i := 0; i < b.used; i++ {
			if b.win[i] {
				fail++
			}
		}
		if float64(fail)/float64(b.used) >= b.cfg.FailureRate {
			b.tripLocked()
		}
	}
}

// Do runs op under the breaker. While open it returns ErrOpen without calling op.
// Errors for which countable returns false (caller mistakes such as bad input)
// are passed through without counting against the breaker.
func (b *Breaker) Do(ctx context.Context, op func(ctx context.Context) error, countable func(error) bool) error {
	b.mu.Lock()
	if b.st == Open {
		if b.now().Before(b.nextProbe) {
			b.mu.Unlock()
			mCalls.WithLabelValues(b.cfg.Name, "rejected").Inc()
			return ErrOpen
		}
		b.setStateLocked(HalfOpen)
	}
	b.mu.Unlock()

	if b.cfg.OperationTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.cfg.OperationTimeout)
		defer cancel()
	}

	start := time.Now()
	err := op(ctx)
	mLatency.WithLabelValues(b.cfg.Name).Observe(time.Since(start).Seconds())

	b.mu.Lock()
	defer b.mu.Unlock()

	if err != nil && (countable == nil || countable(err)) {
		b.consecFail++
		mCalls.WithLabelValues(b.cfg.Name, "failure").Inc()
		b.recordLocked(true)
		if b.st == HalfOpen {
			b.tripLocked()
		}
		return err
	}

	b.consecFail = 0
	mCalls.WithLabelValues(b.cfg.Name, "success").Inc()
	b.recordLocked(false)
	if b.st == HalfOpen {
		b.setStateLocked(Closed)
	}
	return err
}
