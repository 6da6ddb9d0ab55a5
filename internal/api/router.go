// Package api exposes canonicalization, matching, proximity, qualifier and
// attempt-log operations over JSON HTTP.
package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"address-reconciliation/internal/domain"
	"address-reconciliation/internal/matching"
	"address-reconciliation/pkg/health"
	"address-reconciliation/pkg/logging"
	"address-reconciliation/pkg/monitoring"
)

// Deps wires the router. Scanner and Locator are optional; leave them nil
// (not a typed nil pointer) when the integration is not configured.
type Deps struct {
	Repo     domain.Repository
	Matching *matching.Service
	Scanner  Extractor
	Locator  Locator
	Health   *health.Manager
	Recent   *monitoring.Recent
	Logger   *logging.Logger
}

func NewRouter(d Deps) *mux.Router {
	if d.Logger == nil {
		d.Logger = logging.Nop()
	}
	log := d.Logger.WithComponent("api")

	r := mux.NewRouter()
	r.Use(RequestID, Recover(log), monitoring.Middleware(d.Recent))
	r.NotFoundHandler = RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "route not found", RequestID: logging.RequestID(r.Context())})
	}))

	if d.Health != nil {
		r.HandleFunc("/health", health.Handler(d.Health)).Methods(http.MethodGet)
		r.HandleFunc("/health/live", health.LiveHandler(d.Health)).Methods(http.MethodGet)
	}

	a := r.PathPrefix("/api").Subrouter()
	a.HandleFunc("/canonicalize", CanonicalizeHandler(log)).Methods(http.MethodPost)
	a.HandleFunc("/match-key", MatchKeyHandler(log)).Methods(http.MethodPost)
	a.HandleFunc("/distance", DistanceHandler(log)).Methods(http.MethodPost)
	a.HandleFunc("/qualifier", QualifierHandler(log)).Methods(http.MethodPost)
	a.HandleFunc("/qualifier/labels", QualifierLabelsHandler()).Methods(http.MethodGet)
	a.HandleFunc("/qualifier/labels/{q}", QualifierLabelHandler()).Methods(http.MethodGet)

	a.HandleFunc("/reconcile", ReconcileHandler(d.Matching, log)).Methods(http.MethodPost)
	a.HandleFunc("/reconcile/batch", ReconcileBatchHandler(d.Matching, log)).Methods(http.MethodPost)
	a.HandleFunc("/records", CreateRecordHandler(d.Repo, log)).Methods(http.MethodPost)
	a.HandleFunc("/records/{id}", GetRecordHandler(d.Repo, log)).Methods(http.MethodGet)

	a.HandleFunc("/scan", ScanHandler(d.Scanner, log)).Methods(http.MethodPost)
	a.HandleFunc("/location", LocationHandler(d.Locator, log)).Methods(http.MethodGet)

	jobs := attemptDeps{attempts: d.Repo, records: d.Repo, locator: d.Locator, log: log}
	a.HandleFunc("/jobs/{id}/attempts", RecordAttemptHandler(jobs)).Methods(http.MethodPost)
	a.HandleFunc("/jobs/{id}/attempts", ListAttemptsHandler(jobs)).Methods(http.MethodGet)

	return r
}
