package review

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Reviewer applies a review decision to a flagged complaint. It is
// implemented by the complaint service, which owns the transactional
// side effects (status change, reassignment, audit record).
type Reviewer interface {
	Review(ctx context.Context, complaintID string, d Decision) (*Entry, error)
}

// RegisterRoutes mounts the manual review queue API.
func RegisterRoutes(r chi.Router, store *Store, reviewer Reviewer) {
	r.Route("/api/reviews", func(r chi.Router) {
		r.Get("/", handleList(store))
		r.Get("/{id}", handleGet(store))
		r.Post("/complaint/{complaintID}", handleReview(reviewer))
	})
}

func handleList(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := Outcome(r.URL.Query().Get("status"))
		if status != "" && !status.Valid() {
			http.Error(w, `{"error":"invalid status filter"}`, http.StatusBadRequest)
			return
		}
		entries, err := store.List(r.Context(), status)
		if err != nil {
			http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
			return
		}
		if entries == nil {
			entries = []Entry{}
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(entries)
	}
}

func handleGet(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		e, err := store.Get(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
			return
		}
		if e == nil {
			http.Error(w, `{"error":"not found"}`, http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(e)
	}
}

func handleReview(reviewer Reviewer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var d Decision
		if err := json.NewDecoder(r.Body).Decode(&d); err != nil {
			http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
			return
		}
		if !d.Outcome.Valid() || d.Outcome == OutcomePending {
			http.Error(w, `{"error":"outcome must be approved, rejected, or modified"}`, http.StatusBadRequest)
			return
		}
		if d.ReviewerID == "" {
			http.Error(w, `{"error":"reviewer_id is required"}`, http.StatusBadRequest)
			return
		}

		entry, err := reviewer.Review(r.Context(), chi.URLParam(r, "complaintID"), d)
		if err != nil {
			http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusConflict)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(entry)
	}
}
