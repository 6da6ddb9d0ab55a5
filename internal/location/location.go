// Package location acquires the current position of the device or server
// making a service attempt. Every acquisition is a fresh single request: no
// retry, no cached fix, and concurrent calls are never coalesced.
package location

import (
	"context"
	"errors"
	"fmt"
	"time"

	"address-reconciliation/internal/constants"
	"address-reconciliation/pkg/geography"
	"address-reconciliation/pkg/logging"
	"address-reconciliation/pkg/metrics"
)

// Position is a fix reported by a provider. Accuracy is in meters.
type Position struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Accuracy  float64 `json:"accuracy"`
}

// Point drops the accuracy so the fix can be fed to the proximity verifier.
func (p *Position) Point() *geography.GeoPoint {
	if p == nil {
		return nil
	}
	return &geography.GeoPoint{Latitude: p.Latitude, Longitude: p.Longitude}
}

// Provider returns the current position. Implementations should honor ctx
// and may return an *Error to pick the failure code themselves.
type Provider interface {
	CurrentPosition(ctx context.Context) (*Position, error)
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func(ctx context.Context) (*Position, error)

func (f ProviderFunc) CurrentPosition(ctx context.Context) (*Position, error) { return f(ctx) }

// Code identifies why a position could not be acquired.
type Code string

const (
	CodePermissionDenied    Code = "permission_denied"
	CodePositionUnavailable Code = "position_unavailable"
	CodeTimeout             Code = "timeout"
	CodeUnknown             Code = "unknown"
)

// Message is the fixed user-facing text for a code.
func (c Code) Message() string {
	switch c {
	case CodePermissionDenied:
		return "Location permission denied"
	case CodePositionUnavailable:
		return "Location information unavailable"
	case CodeTimeout:
		return "Location request timed out"
	default:
		return "Failed to get location"
	}
}

// Error is the only failure Acquire returns.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("location %s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("location %s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// NewError builds an Error carrying the fixed message for code.
func NewError(code Code, cause error) *Error {
	return &Error{Code: code, Message: code.Message(), Err: cause}
}

// CodeOf returns the code of a location error in err's chain, or "" when
// err is not one.
func CodeOf(err error) Code {
	var le *Error
	if errors.As(err, &le) {
		return le.Code
	}
	return ""
}

var (
	mAcquired = metrics.Default.Counter("location_acquired_total",
		"Positions acquired successfully")
	mFailures = metrics.Default.CounterVec("location_failures_total",
		"Position acquisition failures by code", "code")
	mLatency = metrics.Default.Histogram("location_acquire_duration_seconds",
		"Time spent waiting for a position", nil)
)

// Locator applies the acquisition timeout and classifies failures.
type Locator struct {
	provider Provider
	timeout  time.Duration
	log      *logging.ComponentLogger
}

// NewLocator wraps p. A non-positive timeout uses the 10s default.
func NewLocator(p Provider, timeout time.Duration, log *logging.Logger) *Locator {
	if timeout <= 0 {
		timeout = constants.LocationTimeoutDefault
	}
	if log == nil {
		log = logging.Nop()
	}
	return &Locator{provider: p, timeout: timeout, log: log.WithComponent("location")}
}

// Timeout reports the deadline applied to each acquisition.
func (l *Locator) Timeout() time.Duration { return l.timeout }

// Acquire asks the provider for one fix. Any failure comes back as *Error
// with exactly one of the four codes.
func (l *Locator) Acquire(ctx context.Context) (*Position, error) {
	if l.provider == nil {
		return nil, l.fail(ctx, NewError(CodePositionUnavailable, errors.New("no location provider configured")))
	}

	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	start := time.Now()
	pos, err := l.provider.CurrentPosition(ctx)
	mLatency.Observe(time.Since(start).Seconds())

	if err != nil {
		return nil, l.fail(ctx, classify(ctx, err))
	}
	if pos == nil {
		return nil, l.fail(ctx, NewError(CodePositionUnavailable, errors.New("provider returned no position")))
	}

	mAcquired.Inc()
	l.log.WithContext(ctx).Debug("Position acquired",
		logging.Float64("accuracy_m", pos.Accuracy),
		logging.Duration("elapsed", time.Since(start)))
	return pos, nil
}

func (l *Locator) fail(ctx context.Context, e *Error) error {
	mFailures.WithLabelValues(string(e.Code)).Inc()
	l.log.WithContext(ctx).Warn("Position acquisition failed",
		logging.String("code", string(e.Code)),
		logging.String("cause", errString(e.Err)))
	return e
}

func classify(ctx context.Context, err error) *Error {
	var le *Error
	if errors.As(err, &le) {
		switch le.Code {
		case CodePermissionDenied, CodePositionUnavailable, CodeTimeout:
			return le
		}
		return NewError(CodeUnknown, le.Err)
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return NewError(CodeTimeout, err)
	}
	return NewError(CodeUnknown, err)
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
