package api

import (
	"context"
	"fmt"
	"net/http"

	"address-reconciliation/pkg/address"
	"address-reconciliation/pkg/logging"
)

// Extractor pulls a structured address out of OCR text.
type Extractor interface {
	Extract(ctx context.Context, ocrText string) (address.Scanned, error)
}

type ScanResponse struct {
	Scanned address.Scanned `json:"scanned"`
	CanonicalResponse
}

// ScanHandler extracts an address from OCR text and canonicalizes it. An
// extraction with no usable street is still a 200 with null fields.
func ScanHandler(ex Extractor, log *logging.ComponentLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if ex == nil {
			writeError(w, r, log, fmt.Errorf("scanner %w", ErrNotConfigured))
			return
		}
		var body struct {
			Text string `json:"text"`
		}
		if err := decode(w, r, "api.Scan", &body); err != nil {
			writeError(w, r, log, err)
			return
		}
		sc, err := ex.Extract(r.Context(), body.Text)
		if err != nil {
			writeError(w, r, log, err)
			return
		}
		writeJSON(w, http.StatusOK, ScanResponse{Scanned: sc, CanonicalResponse: canonicalResponse(sc)})
	}
}

// LocationHandler reports the server's current position, a single attempt
// bounded by the locator timeout.
func LocationHandler(loc Locator, log *logging.ComponentLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if loc == nil {
			writeError(w, r, log, fmt.Errorf("location %w", ErrNotConfigured))
			return
		}
		pos, err := loc.Acquire(r.Context())
		if err != nil {
			writeError(w, r, log, err)
			return
		}
		writeJSON(w, http.StatusOK, pos)
	}
}
