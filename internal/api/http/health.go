package http

import (
	"context"
	"log"
	"net/http"
	"time"
)

type Pinger interface {
	PingContext(ctx context.Context) error
}

func HealthzHandler(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) }

// ReadyzHandler reports 503 while the database is unreachable.
func ReadyzHandler(db Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			log.Printf("[http] readyz: %v", err)
			jsonError(w, http.StatusServiceUnavailable, "database unavailable")
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}
