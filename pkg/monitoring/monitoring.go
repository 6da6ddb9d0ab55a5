// Package monitoring instruments HTTP handlers and exposes runtime profiling.
package monitoring

import (
	"encoding/json"
	"net/http"
	"runtime"
	"sort"
	"strconv"
	"sync"
	"time"

	pp "net/http/pprof"

	"github.com/gorilla/mux"

	"address-reconciliation/pkg/metrics"
)

var (
	mRequests = metrics.Default.HistogramVec("http_request_duration_seconds",
		"HTTP request latency by route template", nil, "route", "method", "status")
	mInFlight = metrics.Default.Gauge("http_requests_in_flight", "Requests being served")
)

// Recent keeps the last N request latencies for the JSON summary.
type Recent struct {
	mu      sync.Mutex
	samples []time.Duration
	next    int
	filled  bool
	total   int64
}

func NewRecent(capacity int) *Recent {
	if capacity <= 0 {
		capacity = 256
	}
	return &Recent{samples: make([]time.Duration, capacity)}
}

func (r *Recent) Observe(d time.Duration) {
	r.mu.Lock()
	r.samples[r.next] = d
	r.next++
	if r.next == len(r.samples) {
		r.next, r.filled = 0, true
	}
	r.total++
	r.mu.Unlock()
}

// Stats summarizes the retained window. Quantiles are nearest-rank.
type Stats struct {
	Total int64         `json:"requests_total"`
	Avg   time.Duration `json:"avg_ns"`
	P50   time.Duration `json:"p50_ns"`
	P95   time.Duration `json:"p95_ns"`
}

func (r *Recent) Stats() Stats {
	r.mu.Lock()
	n := r.next
	if r.filled {
		n = len(r.samples)
	}
	window := append([]time.Duration(nil), r.samples[:n]...)
	st := Stats{Total: r.total}
	r.mu.Unlock()

	if len(window) == 0 {
		return st
	}
	var sum time.Duration
	for _, d := range window {
		sum += d
	}
	sort.Slice(window, func(i, j int) bool { return window[i] < window[j] })
	st.Avg = sum / time.Duration(len(window))
	st.P50 = window[len(window)*50/100]
	st.P95 = window[len(window)*95/100]
	return st
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (sw *statusWriter) WriteHeader(code int) {
	sw.status = code
	sw.ResponseWriter.WriteHeader(code)
}

// Middleware records latency per route template. Attach it with
// (*mux.Router).Use so the matched route is known; unmatched requests are
// labelled "unmatched". recent may be nil.
func Middleware(recent *Recent) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			mInFlight.Inc()
			defer mInFlight.Dec()

			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(sw, r)

			d := time.Since(start)
			mRequests.WithLabelValues(routeOf(r), r.Method, strconv.Itoa(sw.status)).Observe(d.Seconds())
			if recent != nil {
				recent.Observe(d)
			}
		})
	}
}

func routeOf(r *http.Request) string {
	if cur := mux.CurrentRoute(r); cur != nil {
		if tpl, err := cur.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return "unmatched"
}

// SummaryHandler serves recent latency and runtime stats as JSON.
func SummaryHandler(recent *Recent) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var ms runtime.MemStats
		runtime.ReadMemStats(&ms)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"time":             time.Now().Format(time.RFC3339),
			"requests":         recent.Stats(),
			"goroutines":       runtime.NumGoroutine(),
			"mem_alloc_bytes":  ms.Alloc,
			"heap_inuse_bytes": ms.HeapInuse,
			"gc_num":           ms.NumGC,
		})
	})
}

// RegisterPprof mounts the standard pprof handlers under /debug/pprof/.
func RegisterPprof(mux *http.ServeMux) {
	mux.HandleFunc("/debug/pprof/", pp.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pp.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pp.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pp.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pp.Trace)
}

// EnableProfiling turns block and mutex sampling on or off.
func EnableProfiling(enabled bool) {
	if enabled {
		runtime.SetBlockProfileRate(1)
		runtime.SetMutexProfileFraction(5)
		return
	}
	runtime.SetBlockProfileRate(0)
	runtime.SetMutexProfileFraction(0)
}
