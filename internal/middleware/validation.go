package middleware

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// ValidateIDParams rejects requests whose named URL parameters are present
// but not UUIDs.
func ValidateIDParams(names ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, name := range names {
				v := chi.URLParam(r, name)
				if v == "" {
					continue
				}
				if _, err := uuid.Parse(v); err != nil {
					writeJSONError(w, http.StatusBadRequest, "invalid "+name+" format")
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
