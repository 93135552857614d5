package department

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/civicgrid/grievd/internal/db"
)

func setupStore(t *testing.T) *Store {
	t.Helper()
	database, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return NewStore(database)
}

func TestCreateAndGet(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	created, err := store.Create(ctx, Department{
		Name:         "Sanitation",
		Description:  "Sewage and garbage",
		SLADays:      2,
		ContactEmail: "sanitation@city.example",
		Active:       true,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.ID == "" {
		t.Error("expected generated ID")
	}

	got, err := store.GetByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Name != "Sanitation" || got.SLADays != 2 || !got.Active {
		t.Errorf("unexpected department: %+v", got)
	}
}

func TestCreateDefaultsSLADays(t *testing.T) {
	store := setupStore(t)

	created, err := store.Create(context.Background(), Department{Name: "Roads", Active: true})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.SLADays != 7 {
		t.Errorf("SLADays = %d, want default 7", created.SLADays)
	}
}

func TestDeactivateKeepsRow(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	created, _ := store.Create(ctx, Department{Name: "Water Works", SLADays: 3, Active: true})

	if err := store.Deactivate(ctx, created.ID); err != nil {
		t.Fatalf("Deactivate: %v", err)
	}

	got, err := store.GetByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got == nil {
		t.Fatal("deactivated department must stay queryable")
	}
	if got.Active {
		t.Error("department still active after Deactivate")
	}

	active, _ := store.List(ctx, true)
	if len(active) != 0 {
		t.Errorf("expected no active departments, got %d", len(active))
	}
	all, _ := store.List(ctx, false)
	if len(all) != 1 {
		t.Errorf("expected 1 department in full list, got %d", len(all))
	}
}

func TestGetActiveByName(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	created, _ := store.Create(ctx, Department{Name: "General Administration", SLADays: 7, Active: true})

	got, err := store.GetActiveByName(ctx, store.DB(), "General Administration")
	if err != nil {
		t.Fatalf("GetActiveByName: %v", err)
	}
	if got == nil || got.ID != created.ID {
		t.Fatalf("expected department %s, got %+v", created.ID, got)
	}

	store.Deactivate(ctx, created.ID)
	got, err = store.GetActiveByName(ctx, store.DB(), "General Administration")
	if err != nil {
		t.Fatalf("GetActiveByName after deactivate: %v", err)
	}
	if got != nil {
		t.Error("inactive department should not be returned")
	}
}

func TestAnyActiveExcludes(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	a, _ := store.Create(ctx, Department{Name: "A", SLADays: 2, Active: true})
	b, _ := store.Create(ctx, Department{Name: "B", SLADays: 2, Active: true})

	got, err := store.AnyActive(ctx, store.DB(), a.ID)
	if err != nil {
		t.Fatalf("AnyActive: %v", err)
	}
	if got == nil || got.ID != b.ID {
		t.Fatalf("expected %s, got %+v", b.ID, got)
	}

	store.Deactivate(ctx, b.ID)
	got, _ = store.AnyActive(ctx, store.DB(), a.ID)
	if got != nil {
		t.Errorf("expected nil when only excluded department active, got %+v", got)
	}
}

func TestUpdate(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	created, _ := store.Create(ctx, Department{Name: "Parks", SLADays: 5, Active: true})

	days := 10
	updated, err := store.Update(ctx, created.ID, UpdateRequest{SLADays: &days})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.SLADays != 10 {
		t.Errorf("SLADays = %d, want 10", updated.SLADays)
	}

	bad := 0
	if _, err := store.Update(ctx, created.ID, UpdateRequest{SLADays: &bad}); err == nil {
		t.Error("expected error for non-positive sla_days")
	}
}

func TestRoutes(t *testing.T) {
	store := setupStore(t)
	r := chi.NewRouter()
	RegisterRoutes(r, store)

	body := `{"name":"Sanitation","sla_days":2,"contact_email":"s@city.example"}`
	req := httptest.NewRequest(http.MethodPost, "/api/departments", strings.NewReader(body))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body %s", rec.Code, rec.Body.String())
	}

	var created Department
	json.Unmarshal(rec.Body.Bytes(), &created)
	if !created.Active {
		t.Error("created department should be active")
	}

	req = httptest.NewRequest(http.MethodGet, "/api/departments/"+created.ID, nil)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodDelete, "/api/departments/"+created.ID, nil)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("deactivate status = %d", rec.Code)
	}
}
