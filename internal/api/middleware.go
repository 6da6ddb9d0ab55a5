package api

import (
	"fmt"
	"net/http"
	"regexp"

	"github.com/google/uuid"

	"address-reconciliation/pkg/logging"
)

const RequestIDHeader = "X-Request-ID"

// inbound ids are echoed only when they look like ids, never arbitrary text
var requestIDRe = regexp.MustCompile(`^[A-Za-z0-9._-]{1,64}$`)

// RequestID tags every request with an id, reusing a well-formed inbound
// X-Request-ID, and stores it in the context for the loggers.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if !requestIDRe.MatchString(id) {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(logging.WithRequestID(r.Context(), id)))
	})
}

// Recover turns a handler panic into a 500 and logs it.
func Recover(log *logging.ComponentLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if v := recover(); v != nil {
					if v == http.ErrAbortHandler {
						panic(v)
					}
					log.WithContext(r.Context()).Error("Handler panic", fmt.Errorf("%v", v),
						logging.String("path", r.URL.Path))
					writeJSON(w, http.StatusInternalServerError, errorBody{
						Error:     "internal error",
						RequestID: logging.RequestID(r.Context()),
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
