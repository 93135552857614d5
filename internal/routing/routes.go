package routing

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/civicgrid/grievd/internal/classify"
)

// RegisterRoutes mounts the routing rule admin API plus the dry-run
// resolve endpoint used by "test this routing" tooling.
func RegisterRoutes(r chi.Router, store *Store, resolver *Resolver) {
	r.Route("/api/routing", func(r chi.Router) {
		r.Get("/rules", handleListRules(store))
		r.Post("/rules", handleCreateRule(store))
		r.Get("/rules/{id}", handleGetRule(store))
		r.Put("/rules/{id}", handleUpdateRule(store))
		r.Delete("/rules/{id}", handleDeleteRule(store))
		r.Post("/resolve", handleResolve(store, resolver))
	})
}

func handleListRules(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rules, err := store.List(r.Context())
		if err != nil {
			http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
			return
		}
		if rules == nil {
			rules = []Rule{}
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(rules)
	}
}

func handleCreateRule(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var rule Rule
		if err := json.NewDecoder(r.Body).Decode(&rule); err != nil {
			http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
			return
		}
		if rule.DepartmentID == "" {
			http.Error(w, `{"error":"department_id is required"}`, http.StatusBadRequest)
			return
		}
		rule.Active = true

		created, err := store.Create(r.Context(), rule)
		if err != nil {
			http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(created)
	}
}

func handleGetRule(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil {
			http.Error(w, `{"error":"invalid rule id"}`, http.StatusBadRequest)
			return
		}
		rule, err := store.GetByID(r.Context(), id)
		if err != nil {
			http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
			return
		}
		if rule == nil {
			http.Error(w, `{"error":"not found"}`, http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(rule)
	}
}

func handleUpdateRule(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil {
			http.Error(w, `{"error":"invalid rule id"}`, http.StatusBadRequest)
			return
		}
		var rule Rule
		if err := json.NewDecoder(r.Body).Decode(&rule); err != nil {
			http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
			return
		}

		updated, err := store.Update(r.Context(), id, rule)
		if err != nil {
			http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusBadRequest)
			return
		}
		if updated == nil {
			http.Error(w, `{"error":"not found"}`, http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(updated)
	}
}

func handleDeleteRule(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil {
			http.Error(w, `{"error":"invalid rule id"}`, http.StatusBadRequest)
			return
		}
		if err := store.Delete(r.Context(), id); err != nil {
			http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

type resolveRequest struct {
	Category string           `json:"category"`
	Urgency  classify.Urgency `json:"urgency"`
	Location string           `json:"location,omitempty"`
}

type resolveResponse struct {
	*Resolution
	Description string `json:"description"`
}

// handleResolve performs a dry-run resolution without creating a
// complaint.
func handleResolve(store *Store, resolver *Resolver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req resolveRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
			return
		}
		if !classify.ValidCategory(req.Category) {
			http.Error(w, `{"error":"unknown category"}`, http.StatusBadRequest)
			return
		}
		if !req.Urgency.Valid() {
			http.Error(w, `{"error":"unknown urgency"}`, http.StatusBadRequest)
			return
		}

		res, err := resolver.Resolve(r.Context(), store.db, req.Category, req.Urgency, req.Location)
		if err != nil {
			if errors.Is(err, ErrNoRoutableDepartment) {
				http.Error(w, `{"error":"no active department configured"}`, http.StatusConflict)
				return
			}
			http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resolveResponse{
			Resolution:  res,
			Description: Describe(res, req.Category, req.Urgency, req.Location),
		})
	}
}
