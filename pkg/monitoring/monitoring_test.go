package monitoring

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"

	"address-reconciliation/pkg/metrics"
)

func TestRecent_Stats(t *testing.T) {
	r := NewRecent(4)
	if st := r.Stats(); st.Total != 0 || st.Avg != 0 {
		t.Fatalf("empty = %+v", st)
	}
	for _, ms := range []int{10, 20, 30, 40, 50, 60} {
		r.Observe(time.Duration(ms) * time.Millisecond)
	}
	st := r.Stats()
	if st.Total != 6 {
		t.Errorf("Total = %d", st.Total)
	}
	// window holds 30..60
	if st.Avg != 45*time.Millisecond {
		t.Errorf("Avg = %v", st.Avg)
	}
	if st.P50 != 50*time.Millisecond || st.P95 != 60*time.Millisecond {
		t.Errorf("P50 = %v, P95 = %v", st.P50, st.P95)
	}
}

func TestMiddleware_RouteLabel(t *testing.T) {
	recent := NewRecent(8)
	r := mux.NewRouter()
	r.Use(Middleware(recent))
	r.HandleFunc("/api/records/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/records/42", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("code = %d", rec.Code)
	}
	if recent.Stats().Total != 1 {
		t.Error("request not observed")
	}

	out := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(out, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := out.Body.String()
	if !strings.Contains(body, `route="/api/records/{id}"`) || !strings.Contains(body, `status="404"`) {
		t.Errorf("route label missing from exposition:\n%s", body)
	}
}

func TestSummaryHandler(t *testing.T) {
	recent := NewRecent(2)
	recent.Observe(time.Millisecond)
	rec := httptest.NewRecorder()
	SummaryHandler(recent).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics.json", nil))

	var body struct {
		Requests   Stats `json:"requests"`
		Goroutines int   `json:"goroutines"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body.Requests.Total != 1 || body.Goroutines == 0 {
		t.Errorf("body = %+v", body)
	}
}
