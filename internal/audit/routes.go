package audit

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/civicgrid/grievd/internal/db"
)

// RegisterRoutes mounts the audit trail API routes. The API is
// read-only: records are appended only by the engine itself.
func RegisterRoutes(r chi.Router, store *Store) {
	r.Route("/api/audit", func(r chi.Router) {
		r.Get("/", handleQuery(store))
	})
}

func handleQuery(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filter := QueryFilter{}
		q := r.URL.Query()
		if v := q.Get("entity_type"); v != "" {
			filter.EntityType = EntityType(v)
		}
		if v := q.Get("entity_id"); v != "" {
			filter.EntityID = v
		}
		if v := q.Get("action"); v != "" {
			filter.Action = Action(v)
		}
		if v := q.Get("actor_id"); v != "" {
			filter.ActorID = v
		}
		if v := q.Get("since"); v != "" {
			if t, err := time.Parse(db.TimeFormat, v); err == nil {
				filter.Since = &t
			}
		}
		if v := q.Get("until"); v != "" {
			if t, err := time.Parse(db.TimeFormat, v); err == nil {
				filter.Until = &t
			}
		}
		if v := q.Get("limit"); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				filter.Limit = n
			}
		}
		if v := q.Get("offset"); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				filter.Offset = n
			}
		}

		records, err := store.Query(r.Context(), filter)
		if err != nil {
			http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
			return
		}
		if records == nil {
			records = []Record{}
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(records)
	}
}
