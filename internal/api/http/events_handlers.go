package http

import (
	"net/http"

	syncx "github.com/mind-engage/mindengage-quiz/internal/sync"
)

// GET /events?after=0&limit=100
// Pull feed of the attempt event log for downstream consumers.
func ListEventsHandler(repo *syncx.EventRepo) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		evs, err := repo.Since(r.Context(), parseInt64Default(q.Get("after"), 0), parseIntDefault(q.Get("limit"), 100))
		if err != nil {
			writeError(w, r, err)
			return
		}
		out := make([]map[string]any, len(evs))
		for i, e := range evs {
			out[i] = map[string]any{
				"seq":        e.Seq,
				"event_id":   e.ID,
				"site_id":    e.SiteID,
				"type":       e.Type,
				"key":        e.Key,
				"data":       rawJSON(e.DataJSON),
				"created_at": e.CreatedAt,
			}
		}
		writeJSON(w, http.StatusOK, out)
	}
}

type rawJSON string

func (r rawJSON) MarshalJSON() ([]byte, error) {
	if r == "" {
		return []byte("null"), nil
	}
	return []byte(r), nil
}
