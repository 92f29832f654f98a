package middleware

import (
	"net/http"

	"github.com/avriza/simrunner/pkg/requestid"
)

// RequestID reads the request ID from the x-request-id header or generates
// a new one, and injects it into the request's context for consistent
// access across the application layers.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("x-request-id")
		if id == "" {
			id = requestid.Generate()
		}

		ctx := requestid.ToContext(r.Context(), id)
		w.Header().Set("x-request-id", id)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
