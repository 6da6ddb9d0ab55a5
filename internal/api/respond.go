package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"address-reconciliation/internal/constants"
	"address-reconciliation/internal/location"
	errs "address-reconciliation/pkg/errors"
	"address-reconciliation/pkg/logging"
)

// ErrNotConfigured marks an optional integration that was not set up.
var ErrNotConfigured = errors.New("not configured")

type errorBody struct {
	Error     string `json:"error"`
	Code      string `json:"code,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// statusFor maps an error kind to its HTTP status, the message shown to the
// caller and an optional machine-readable code.
func statusFor(err error) (int, string, string) {
	if errors.Is(err, ErrNotConfigured) {
		return http.StatusServiceUnavailable, err.Error(), "not_configured"
	}
	var le *location.Error
	if errors.As(err, &le) {
		switch le.Code {
		case location.CodePermissionDenied:
			return http.StatusForbidden, le.Message, string(le.Code)
		case location.CodeTimeout:
			return http.StatusGatewayTimeout, le.Message, string(le.Code)
		case location.CodePositionUnavailable:
			return http.StatusServiceUnavailable, le.Message, string(le.Code)
		default:
			return http.StatusBadGateway, le.Message, string(le.Code)
		}
	}

	var ve *errs.ValidationError
	if errors.As(err, &ve) {
		return http.StatusBadRequest, ve.Message(), "validation"
	}
	var nf *errs.NotFoundError
	if errors.As(err, &nf) {
		return http.StatusNotFound, nf.Message(), "not_found"
	}
	var ex *errs.ExternalAPIError
	if errors.As(err, &ex) {
		return http.StatusBadGateway, ex.Message(), "external"
	}
	if errs.Is(err, errs.ErrDB) {
		return http.StatusInternalServerError, "storage error", "db"
	}
	return http.StatusInternalServerError, "internal error", ""
}

func writeError(w http.ResponseWriter, r *http.Request, log *logging.ComponentLogger, err error) {
	status, msg, code := statusFor(err)
	if status >= http.StatusInternalServerError {
		log.WithContext(r.Context()).Error("Request failed", err,
			logging.String("method", r.Method),
			logging.String("path", r.URL.Path),
			logging.Int("status", status))
	}
	writeJSON(w, status, errorBody{Error: msg, Code: code, RequestID: logging.RequestID(r.Context())})
}

// decode reads a JSON body capped at MaxRequestBodyBytes. Unknown fields are
// rejected so typos in field names surface as 400s.
func decode(w http.ResponseWriter, r *http.Request, op string, dst any) error {
	body := http.MaxBytesReader(w, r.Body, constants.MaxRequestBodyBytes)
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var tooBig *http.MaxBytesError
		switch {
		case errors.As(err, &tooBig):
			return errs.NewValidation(op, "request body too large", err)
		case errors.Is(err, io.EOF):
			return errs.NewValidation(op, "request body is empty", err)
		default:
			return errs.NewValidation(op, "invalid JSON body", err)
		}
	}
	return nil
}
