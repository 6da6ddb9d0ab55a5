package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"address-reconciliation/internal/domain"
	"address-reconciliation/internal/location"
	errs "address-reconciliation/pkg/errors"
	"address-reconciliation/pkg/events"
	"address-reconciliation/pkg/geography"
	"address-reconciliation/pkg/logging"
	"address-reconciliation/pkg/metrics"
	"address-reconciliation/pkg/qualifier"
)

var mAttempts = metrics.Default.CounterVec("attempts_recorded_total",
	"Service attempts recorded by qualifier", "qualifier")

// Locator acquires the server's current position.
type Locator interface {
	Acquire(ctx context.Context) (*location.Position, error)
}

type attemptRequest struct {
	// AttemptedAt defaults to now. Timezone, when set, is the zone the
	// attempt is classified in.
	AttemptedAt time.Time `json:"attempted_at"`
	Timezone    string    `json:"timezone"`

	Position *geography.PointInput `json:"position"`
	// UseLocation acquires the position when none is given.
	UseLocation bool `json:"use_location"`

	// The job address fix comes from JobAddress, or from the stored record.
	JobAddress *geography.PointInput `json:"job_address"`
	RecordID   int64                 `json:"record_id"`

	Note string `json:"note"`
}

type attemptDeps struct {
	attempts domain.AttemptRepository
	records  domain.AddressRepository
	locator  Locator
	log      *logging.ComponentLogger
}

func jobID(r *http.Request) (context.Context, string, error) {
	id := strings.TrimSpace(mux.Vars(r)["id"])
	if id == "" {
		return r.Context(), "", errs.NewValidation("api.jobID", "job id is required", nil)
	}
	return logging.WithJobID(r.Context(), id), id, nil
}

func RecordAttemptHandler(d attemptDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, id, err := jobID(r)
		if err != nil {
			writeError(w, r, d.log, err)
			return
		}
		r = r.WithContext(ctx)

		var body attemptRequest
		if err := decode(w, r, "api.RecordAttempt", &body); err != nil {
			writeError(w, r, d.log, err)
			return
		}
		at, err := localTime(body.AttemptedAt, body.Timezone, false)
		if err != nil {
			writeError(w, r, d.log, err)
			return
		}

		pos := body.Position.Point()
		if pos == nil && body.UseLocation {
			if d.locator == nil {
				writeError(w, r, d.log, fmt.Errorf("location %w", ErrNotConfigured))
				return
			}
			p, err := d.locator.Acquire(ctx)
			if err != nil {
				writeError(w, r, d.log, err)
				return
			}
			pos = p.Point()
		}

		jobAt := body.JobAddress.Point()
		if jobAt == nil && body.RecordID > 0 {
			rec, err := d.records.GetAddressRecordCtx(ctx, body.RecordID)
			if err != nil {
				writeError(w, r, d.log, err)
				return
			}
			jobAt = rec.Position()
		}

		attempt := events.NewAttempt(id, at, pos, jobAt, body.Note)
		if err := d.attempts.Append(ctx, attempt); err != nil {
			writeError(w, r, d.log, err)
			return
		}
		mAttempts.WithLabelValues(string(attempt.Qualifier)).Inc()
		d.log.WithContext(ctx).Info("Recorded service attempt",
			logging.String("qualifier", string(attempt.Qualifier)),
			logging.String("distance", geography.FormatDistance(attempt.DistanceFeet)))
		writeJSON(w, http.StatusCreated, attempt)
	}
}

type AttemptsResponse struct {
	JobID    string                 `json:"job_id"`
	Attempts []events.StoredAttempt `json:"attempts"`
	Summary  events.Summary         `json:"summary"`
	Labels   []events.LabelCount    `json:"labels"`
	Weekend  int                    `json:"weekend"`
	Missing  []qualifier.Qualifier  `json:"missing,omitempty"`
}

// ListAttemptsHandler lists a job's attempts with their summary. The
// optional ?required=am,pm,... reports which qualifiers still lack an attempt.
func ListAttemptsHandler(d attemptDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, id, err := jobID(r)
		if err != nil {
			writeError(w, r, d.log, err)
			return
		}
		required, err := parseRequired(r.URL.Query().Get("required"))
		if err != nil {
			writeError(w, r, d.log, err)
			return
		}
		list, err := d.attempts.ListByJob(ctx, id)
		if err != nil {
			writeError(w, r, d.log, err)
			return
		}
		sum := events.Summarize(list)
		sum.JobID = id
		resp := AttemptsResponse{
			JobID:    id,
			Attempts: list,
			Summary:  sum,
			Labels:   sum.Labels(),
			Weekend:  sum.Weekend(),
		}
		if len(required) > 0 {
			resp.Missing = sum.Missing(required...)
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func parseRequired(raw string) ([]qualifier.Qualifier, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	known := make(map[qualifier.Qualifier]bool)
	for _, q := range qualifier.All() {
		known[q] = true
	}
	var out []qualifier.Qualifier
	for _, part := range strings.Split(raw, ",") {
		q := qualifier.Qualifier(strings.ToLower(strings.TrimSpace(part)))
		if q == "" {
			continue
		}
		if !known[q] {
			return nil, errs.NewValidation("api.parseRequired", "unknown qualifier "+string(q), nil)
		}
		out = append(out, q)
	}
	return out, nil
}
