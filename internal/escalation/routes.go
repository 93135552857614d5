package escalation

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

// RegisterRoutes mounts the escalation API: history, manual trigger,
// and scanner status.
func RegisterRoutes(r chi.Router, store *Store, engine *Engine) {
	r.Route("/api/escalations", func(r chi.Router) {
		r.Get("/", handleList(store))
		r.Get("/complaint/{complaintID}", handleListByComplaint(store))
		r.Post("/complaint/{complaintID}", handleTrigger(engine))
		r.Get("/scanner", handleScannerStatus(engine))
	})
}

func handleList(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		escalations, err := store.List(r.Context(), limit)
		if err != nil {
			http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
			return
		}
		if escalations == nil {
			escalations = []Escalation{}
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(escalations)
	}
}

func handleListByComplaint(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		escalations, err := store.ListByComplaint(r.Context(), chi.URLParam(r, "complaintID"))
		if err != nil {
			http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
			return
		}
		if escalations == nil {
			escalations = []Escalation{}
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(escalations)
	}
}

func handleTrigger(engine *Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Reason string `json:"reason"`
		}
		// Body is optional for a manual trigger.
		json.NewDecoder(r.Body).Decode(&req)

		rec, err := engine.TriggerEscalation(r.Context(), chi.URLParam(r, "complaintID"), req.Reason)
		if err != nil {
			if errors.Is(err, ErrAlreadyEscalated) {
				http.Error(w, `{"error":"complaint already escalated"}`, http.StatusConflict)
				return
			}
			http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusUnprocessableEntity)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(rec)
	}
}

func handleScannerStatus(engine *Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := struct {
			Running  bool       `json:"running"`
			LastScan *ScanStats `json:"last_scan,omitempty"`
		}{
			Running:  engine.IsRunning(),
			LastScan: engine.LastRunStats(),
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}
}
