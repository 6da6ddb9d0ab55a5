package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"address-reconciliation/internal/domain"
	"address-reconciliation/internal/matching"
	"address-reconciliation/internal/models"
	"address-reconciliation/pkg/address"
	errs "address-reconciliation/pkg/errors"
	"address-reconciliation/pkg/geography"
	"address-reconciliation/pkg/logging"
)

type reconcileRequest struct {
	Address  json.RawMessage       `json:"address"`
	Position *geography.PointInput `json:"position"`
}

func (rr reconcileRequest) toRequest() (matching.Request, error) {
	in, err := address.DecodeRawInput(rr.Address)
	if err != nil {
		return matching.Request{}, err
	}
	return matching.Request{Input: in, Position: rr.Position.Point()}, nil
}

func ReconcileHandler(svc *matching.Service, log *logging.ComponentLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body reconcileRequest
		if err := decode(w, r, "api.Reconcile", &body); err != nil {
			writeError(w, r, log, err)
			return
		}
		req, err := body.toRequest()
		if err != nil {
			writeError(w, r, log, err)
			return
		}
		res, err := svc.Reconcile(r.Context(), req)
		if err != nil {
			writeError(w, r, log, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

func ReconcileBatchHandler(svc *matching.Service, log *logging.ComponentLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Items []reconcileRequest `json:"items"`
		}
		if err := decode(w, r, "api.ReconcileBatch", &body); err != nil {
			writeError(w, r, log, err)
			return
		}
		reqs := make([]matching.Request, len(body.Items))
		for i, item := range body.Items {
			req, err := item.toRequest()
			if err != nil {
				writeError(w, r, log, errs.NewValidation("api.ReconcileBatch", fmt.Sprintf("item %d: invalid address", i), err))
				return
			}
			reqs[i] = req
		}
		results, err := svc.ReconcileBatch(r.Context(), reqs)
		if err != nil {
			writeError(w, r, log, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"results": results})
	}
}

type recordRequest struct {
	LegalAddress      string   `json:"legal_address"`
	NormalizedAddress string   `json:"normalized_address"`
	City              string   `json:"city"`
	State             string   `json:"state"`
	Zip               string   `json:"zip"`
	Latitude          *float64 `json:"latitude"`
	Longitude         *float64 `json:"longitude"`
}

// CreateRecordHandler stores a job address. The match key is derived by the
// store; an address without a usable street is rejected.
func CreateRecordHandler(repo domain.AddressRepository, log *logging.ComponentLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body recordRequest
		if err := decode(w, r, "api.CreateRecord", &body); err != nil {
			writeError(w, r, log, err)
			return
		}
		if (body.Latitude == nil) != (body.Longitude == nil) {
			writeError(w, r, log, errs.NewValidation("api.CreateRecord", "latitude and longitude must be given together", nil))
			return
		}
		rec := &models.AddressRecord{
			LegalAddress:      body.LegalAddress,
			NormalizedAddress: body.NormalizedAddress,
			City:              body.City,
			State:             body.State,
			Zip:               body.Zip,
			Latitude:          body.Latitude,
			Longitude:         body.Longitude,
		}
		if err := repo.SaveAddressRecordCtx(r.Context(), rec); err != nil {
			writeError(w, r, log, err)
			return
		}
		log.WithContext(r.Context()).Info("Stored address record",
			logging.Int64("record_id", rec.ID),
			logging.String("match_key", rec.MatchKey))
		writeJSON(w, http.StatusCreated, rec)
	}
}

func GetRecordHandler(repo domain.AddressRepository, log *logging.ComponentLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
		if err != nil || id <= 0 {
			writeError(w, r, log, errs.NewValidation("api.GetRecord", "invalid record id", err))
			return
		}
		rec, err := repo.GetAddressRecordCtx(r.Context(), id)
		if err != nil {
			writeError(w, r, log, err)
			return
		}
		writeJSON(w, http.StatusOK, rec)
	}
}
