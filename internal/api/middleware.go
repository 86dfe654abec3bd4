package api

import (
	"net/http"
)

// --- Body Limit Middleware ---

// MaxBodySize caps the request body at limit bytes. Reads past the limit fail
// with *http.MaxBytesError, which handlers map to 413.
func MaxBodySize(limit int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body != nil && limit > 0 {
				r.Body = http.MaxBytesReader(w, r.Body, limit)
			}
			next.ServeHTTP(w, r)
		})
	}
}
