package sla

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
)

// RegisterRoutes mounts the SLA reporting API routes.
func RegisterRoutes(r chi.Router, store *Store, approachingWithin time.Duration) {
	r.Route("/api/sla", func(r chi.Router) {
		r.Get("/stats", handleStats(store, approachingWithin))
		r.Get("/breached", handleBreached(store))
		r.Get("/approaching", handleApproaching(store, approachingWithin))
	})
}

func handleStats(store *Store, approachingWithin time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := store.Statistics(r.Context(), r.URL.Query().Get("department_id"), time.Now(), approachingWithin)
		if err != nil {
			http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(stats)
	}
}

func handleBreached(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		breached, err := store.Breached(r.Context(), time.Now())
		if err != nil {
			http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
			return
		}
		if breached == nil {
			breached = []BreachedComplaint{}
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(breached)
	}
}

func handleApproaching(store *Store, defaultWithin time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		within := defaultWithin
		if v := r.URL.Query().Get("hours"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				within = time.Duration(n) * time.Hour
			}
		}

		approaching, err := store.Approaching(r.Context(), time.Now(), within)
		if err != nil {
			http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
			return
		}
		if approaching == nil {
			approaching = []BreachedComplaint{}
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(approaching)
	}
}
