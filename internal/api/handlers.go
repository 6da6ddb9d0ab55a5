package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"address-reconciliation/pkg/address"
	errs "address-reconciliation/pkg/errors"
	"address-reconciliation/pkg/geography"
	"address-reconciliation/pkg/logging"
	"address-reconciliation/pkg/qualifier"
)

type addressRequest struct {
	Address json.RawMessage `json:"address"`
}

// CanonicalResponse carries null fields when the input has no usable street.
type CanonicalResponse struct {
	Canonical *address.Canonical `json:"canonical"`
	Display   *string            `json:"display"`
	MatchKey  *string            `json:"match_key"`
}

func canonicalResponse(in address.RawInput) CanonicalResponse {
	c, ok := address.Canonicalize(in)
	if !ok {
		return CanonicalResponse{}
	}
	display, key := c.String(), address.MatchKey(c)
	return CanonicalResponse{Canonical: &c, Display: &display, MatchKey: &key}
}

func CanonicalizeHandler(log *logging.ComponentLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req addressRequest
		if err := decode(w, r, "api.Canonicalize", &req); err != nil {
			writeError(w, r, log, err)
			return
		}
		in, err := address.DecodeRawInput(req.Address)
		if err != nil {
			writeError(w, r, log, err)
			return
		}
		writeJSON(w, http.StatusOK, canonicalResponse(in))
	}
}

type matchKeyRequest struct {
	Address   json.RawMessage    `json:"address"`
	Canonical *address.Canonical `json:"canonical"`
}

// MatchKeyHandler keys an already canonical address, or canonicalizes a raw
// one first.
func MatchKeyHandler(log *logging.ComponentLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req matchKeyRequest
		if err := decode(w, r, "api.MatchKey", &req); err != nil {
			writeError(w, r, log, err)
			return
		}
		if req.Canonical != nil {
			// still needs a street; fields are trimmed on the way through
			resp := canonicalResponse(address.Scanned(*req.Canonical))
			writeJSON(w, http.StatusOK, map[string]any{"match_key": resp.MatchKey})
			return
		}
		in, err := address.DecodeRawInput(req.Address)
		if err != nil {
			writeError(w, r, log, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"match_key": canonicalResponse(in).MatchKey})
	}
}

type distanceRequest struct {
	From *geography.PointInput `json:"from"`
	To   *geography.PointInput `json:"to"`
}

type DistanceResponse struct {
	DistanceFeet *int   `json:"distance_feet"`
	Formatted    string `json:"formatted"`
}

func DistanceHandler(log *logging.ComponentLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req distanceRequest
		if err := decode(w, r, "api.Distance", &req); err != nil {
			writeError(w, r, log, err)
			return
		}
		d := geography.Distance(req.From.Point(), req.To.Point())
		writeJSON(w, http.StatusOK, DistanceResponse{DistanceFeet: d, Formatted: geography.FormatDistance(d)})
	}
}

type qualifierRequest struct {
	AttemptedAt time.Time `json:"attempted_at"`
	// Timezone, when set, is the IANA zone the attempt is classified in.
	// Otherwise the offset carried by AttemptedAt is used.
	Timezone string `json:"timezone"`
}

type QualifierResponse struct {
	Qualifier qualifier.Qualifier `json:"qualifier"`
	Label     string              `json:"label"`
	LocalTime time.Time           `json:"local_time"`
}

func QualifierHandler(log *logging.ComponentLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req qualifierRequest
		if err := decode(w, r, "api.Qualifier", &req); err != nil {
			writeError(w, r, log, err)
			return
		}
		at, err := localTime(req.AttemptedAt, req.Timezone, true)
		if err != nil {
			writeError(w, r, log, err)
			return
		}
		q := qualifier.Classify(at)
		writeJSON(w, http.StatusOK, QualifierResponse{Qualifier: q, Label: q.Label(), LocalTime: at})
	}
}

// localTime converts t into tz. A zero t is an error when required and now
// otherwise.
func localTime(t time.Time, tz string, required bool) (time.Time, error) {
	if t.IsZero() {
		if required {
			return t, errs.NewValidation("api.localTime", "attempted_at is required", nil)
		}
		t = time.Now()
	}
	if tz == "" {
		return t, nil
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return t, errs.NewValidation("api.localTime", "unknown timezone "+tz, err)
	}
	return t.In(loc), nil
}

type labelResponse struct {
	Qualifier string `json:"qualifier"`
	Label     string `json:"label"`
	Known     bool   `json:"known"`
}

func QualifierLabelHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw := mux.Vars(r)["q"]
		known := false
		for _, q := range qualifier.All() {
			if string(q) == raw {
				known = true
				break
			}
		}
		writeJSON(w, http.StatusOK, labelResponse{Qualifier: raw, Label: qualifier.Label(raw), Known: known})
	}
}

func QualifierLabelsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		all := qualifier.All()
		out := make([]labelResponse, len(all))
		for i, q := range all {
			out[i] = labelResponse{Qualifier: string(q), Label: q.Label(), Known: true}
		}
		writeJSON(w, http.StatusOK, map[string]any{"labels": out})
	}
}
