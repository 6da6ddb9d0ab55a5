// Package health aggregates component checks into one service status.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"sync"
	"time"

	"address-reconciliation/pkg/database"
	"address-reconciliation/pkg/logging"
)

type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
	StatusUnknown   Status = "unknown"
)

// ComponentHealth is the result of one check.
type ComponentHealth struct {
	Name        string         `json:"name"`
	Status      Status         `json:"status"`
	Message     string         `json:"message,omitempty"`
	LastChecked time.Time      `json:"last_checked"`
	Duration    time.Duration  `json:"duration"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	Error       string         `json:"error,omitempty"`
}

type SystemHealth struct {
	Status     Status                     `json:"status"`
	Timestamp  time.Time                  `json:"timestamp"`
	Version    string                     `json:"version,omitempty"`
	Uptime     string                     `json:"uptime"`
	Components map[string]ComponentHealth `json:"components"`
	Summary    Summary                    `json:"summary"`
}

type Summary struct {
	Total     int `json:"total"`
	Healthy   int `json:"healthy"`
	Degraded  int `json:"degraded"`
	Unhealthy int `json:"unhealthy"`
	Unknown   int `json:"unknown"`
}

type Checker interface {
	Name() string
	Check(ctx context.Context) ComponentHealth
}

type checkFunc struct {
	name string
	fn   func(ctx context.Context) ComponentHealth
}

func (c checkFunc) Name() string                              { return c.name }
func (c checkFunc) Check(ctx context.Context) ComponentHealth { return c.fn(ctx) }

// CheckFunc adapts fn to a Checker.
func CheckFunc(name string, fn func(ctx context.Context) ComponentHealth) Checker {
	return checkFunc{name: name, fn: fn}
}

type Config struct {
	Timeout time.Duration
	Version string
}

// Manager runs registered checkers concurrently and caches their last result.
type Manager struct {
	mu        sync.RWMutex
	checkers  map[string]Checker
	results   map[string]ComponentHealth
	startTime time.Time
	version   string
	timeout   time.Duration
	logger    *logging.ComponentLogger
}

func NewManager(cfg Config, logger *logging.Logger) *Manager {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if logger == nil {
		logger = logging.Nop()
	}
	return &Manager{
		checkers:  make(map[string]Checker),
		results:   make(map[string]ComponentHealth),
		startTime: time.Now(),
		version:   cfg.Version,
		timeout:   cfg.Timeout,
		logger:    logger.WithComponent("health"),
	}
}

// Register adds c, replacing any checker with the same name.
func (m *Manager) Register(c Checker) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checkers[c.Name()] = c
	m.results[c.Name()] = ComponentHealth{Name: c.Name(), Status: StatusUnknown}
	m.logger.Info("Registered health checker", logging.String("checker", c.Name()))
}

// CheckAll runs every checker, each bounded by the manager timeout.
func (m *Manager) CheckAll(ctx context.Context) SystemHealth {
	start := time.Now()

	m.mu.RLock()
	checkers := make([]Checker, 0, len(m.checkers))
	for _, c := range m.checkers {
		checkers = append(checkers, c)
	}
	m.mu.RUnlock()

	out := make([]ComponentHealth, len(checkers))
	var wg sync.WaitGroup
	for i, c := range checkers {
		i, c := i, c
		wg.Add(1)
		go func() {
			defer wg.Done()
			cctx, cancel := context.WithTimeout(ctx, m.timeout)
			defer cancel()
			r := c.Check(cctx)
			r.Name = c.Name()
			if r.LastChecked.IsZero() {
				r.LastChecked = time.Now()
			}
			out[i] = r
		}()
	}
	wg.Wait()

	components := make(map[string]ComponentHealth, len(out))
	m.mu.Lock()
	for _, r := range out {
		components[r.Name] = r
		m.results[r.Name] = r
	}
	m.mu.Unlock()

	sh := m.build(components)
	m.logger.Debug("Completed health check",
		logging.String("status", string(sh.Status)),
		logging.Duration("duration", time.Since(start)),
		logging.Int("components", len(components)))
	return sh
}

// Cached returns the last known results without running any checks.
func (m *Manager) Cached() SystemHealth {
	m.mu.RLock()
	components := make(map[string]ComponentHealth, len(m.results))
	for name, r := range m.results {
		components[name] = r
	}
	m.mu.RUnlock()
	return m.build(components)
}

func (m *Manager) build(components map[string]ComponentHealth) SystemHealth {
	sum := Summary{Total: len(components)}
	for _, c := range components {
		switch c.Status {
		case StatusHealthy:
			sum.Healthy++
		case StatusDegraded:
			sum.Degraded++
		case StatusUnhealthy:
			sum.Unhealthy++
		default:
			sum.Unknown++
		}
	}
	return SystemHealth{
		Status:     overall(sum),
		Timestamp:  time.Now(),
		Version:    m.version,
		Uptime:     time.Since(m.startTime).Round(time.Second).String(),
		Components: components,
		Summary:    sum,
	}
}

func overall(s Summary) Status {
	switch {
	case s.Total == 0:
		return StatusUnknown
	case s.Unhealthy > 0:
		return StatusUnhealthy
	case s.Degraded > 0:
		return StatusDegraded
	case s.Healthy == s.Total:
		return StatusHealthy
	}
	return StatusUnknown
}

// Names lists registered checkers in order.
func (m *Manager) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.checkers))
	for n := range m.checkers {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// DatabaseChecker pings the store and reports pool stats.
func DatabaseChecker(name string, db *database.DB) Checker {
	return CheckFunc(name, func(ctx context.Context) ComponentHealth {
		start := time.Now()
		r := ComponentHealth{Name: name, LastChecked: start, Metadata: map[string]any{}}
		if err := db.Ping(ctx); err != nil {
			r.Status = StatusUnhealthy
			r.Message = "Database connection failed"
			r.Error = err.Error()
			r.Duration = time.Since(start)
			return r
		}
		stats := db.Conn().Stats()
		r.Metadata["open_connections"] = stats.OpenConnections
		r.Metadata["in_use"] = stats.InUse
		r.Metadata["idle"] = stats.Idle
		r.Metadata["wait_count"] = stats.WaitCount
		r.Status = StatusHealthy
		r.Message = "Database connection successful"
		r.Duration = time.Since(start)
		return r
	})
}

// OptionalChecker reports an integration that runs only when configured.
// An unconfigured integration degrades the service; it does not fail it.
func OptionalChecker(name string, configured bool) Checker {
	return CheckFunc(name, func(ctx context.Context) ComponentHealth {
		if configured {
			return ComponentHealth{Status: StatusHealthy, Message: "configured"}
		}
		return ComponentHealth{Status: StatusDegraded, Message: "not configured"}
	})
}

// Handler serves a full check. Unhealthy answers 503.
func Handler(m *Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var sh SystemHealth
		if r.URL.Query().Get("cached") == "true" {
			sh = m.Cached()
		} else {
			sh = m.CheckAll(r.Context())
		}
		code := http.StatusOK
		if sh.Status == StatusUnhealthy {
			code = http.StatusServiceUnavailable
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		json.NewEncoder(w).Encode(sh)
	}
}

// LiveHandler answers 200 while the process is serving.
func LiveHandler(m *Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"status": "alive",
			"uptime": time.Since(m.startTime).Round(time.Second).String(),
		})
	}
}
