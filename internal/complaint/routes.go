package complaint

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/civicgrid/grievd/internal/classify"
	"github.com/civicgrid/grievd/internal/routing"
)

// RegisterRoutes mounts the complaint intake and lifecycle API. The
// classifier runs here, before the service is invoked, so the intake
// transaction only ever consumes an already-validated classification.
func RegisterRoutes(r chi.Router, svc *Service, classifier *classify.Classifier) {
	r.Route("/api/complaints", func(r chi.Router) {
		r.Post("/", handleCreate(svc, classifier))
		r.Get("/", handleList(svc))
		r.Get("/{id}", handleGet(svc))
		r.Put("/{id}/status", handleUpdateStatus(svc))
	})
}

func handleCreate(svc *Service, classifier *classify.Classifier) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
			return
		}
		if req.Text == "" {
			http.Error(w, `{"error":"text is required"}`, http.StatusBadRequest)
			return
		}

		c := classifier.Classify(r.Context(), req.Text)

		created, err := svc.Create(r.Context(), req, c)
		if err != nil {
			if errors.Is(err, routing.ErrNoRoutableDepartment) {
				http.Error(w, `{"error":"no active department available for routing"}`, http.StatusConflict)
				return
			}
			http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(created)
	}
}

func handleList(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		filter := ListFilter{
			Status:       Status(q.Get("status")),
			DepartmentID: q.Get("department_id"),
			Category:     q.Get("category"),
		}
		if filter.Status != "" && !filter.Status.Valid() {
			http.Error(w, `{"error":"invalid status filter"}`, http.StatusBadRequest)
			return
		}
		filter.Limit, _ = strconv.Atoi(q.Get("limit"))
		filter.Offset, _ = strconv.Atoi(q.Get("offset"))

		complaints, err := svc.Store().List(r.Context(), filter)
		if err != nil {
			http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
			return
		}
		if complaints == nil {
			complaints = []Complaint{}
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(complaints)
	}
}

func handleGet(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := svc.Store().Get(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
			return
		}
		if c == nil {
			http.Error(w, `{"error":"not found"}`, http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(c)
	}
}

func handleUpdateStatus(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Status  Status `json:"status"`
			ActorID string `json:"actor_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
			return
		}

		updated, err := svc.UpdateStatus(r.Context(), chi.URLParam(r, "id"), req.Status, req.ActorID)
		if err != nil {
			http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusConflict)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(updated)
	}
}
