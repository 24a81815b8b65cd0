package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/algasur/algatrack/gate"
	"github.com/algasur/algatrack/internal/models"
)

func TestAlgaeCreateDefaults(t *testing.T) {
	db := setupTestDB(t)
	h := NewAlgaeHandler(db)
	admin := seedUser(t, db, "root", "pw", gate.RoleAdministrator)

	body := `{"name":"Cochayuyo","description":"Alga parda"}`
	r := httptest.NewRequest(http.MethodPost, "/algae-types", strings.NewReader(body))
	r.Header.Set("Content-Type", "application/json")
	r.Header.Set("Accept", "application/json")
	w := httptest.NewRecorder()
	asUser(admin, h.Create).ServeHTTP(w, r)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d body=%s", w.Code, w.Body.String())
	}
	var at models.AlgaeType
	if err := db.Where("name = ?", "Cochayuyo").First(&at).Error; err != nil {
		t.Fatalf("load: %v", err)
	}
	if at.ConversionFactor != 1.0 || !at.Active {
		t.Fatalf("expected factor 1 and active, got %+v", at)
	}
}

func TestAlgaeCreateRejectsNonPositiveFactor(t *testing.T) {
	db := setupTestDB(t)
	h := NewAlgaeHandler(db)
	admin := seedUser(t, db, "root", "pw", gate.RoleAdministrator)

	body := `{"name":"Luga","conversion_factor":-2}`
	r := httptest.NewRequest(http.MethodPost, "/algae-types", strings.NewReader(body))
	r.Header.Set("Content-Type", "application/json")
	r.Header.Set("Accept", "application/json")
	w := httptest.NewRecorder()
	asUser(admin, h.Create).ServeHTTP(w, r)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "conversion_factor") {
		t.Fatalf("expected factor violation, body=%s", w.Body.String())
	}
}

func TestAlgaeToggle(t *testing.T) {
	db := setupTestDB(t)
	h := NewAlgaeHandler(db)
	admin := seedUser(t, db, "root", "pw", gate.RoleAdministrator)
	at := seedSpecies(t, db, "Cochayuyo", 1.0, true)

	toggle := func() {
		r := httptest.NewRequest(http.MethodPost, "/algae-types/1/toggle", nil)
		r.SetPathValue("id", "1")
		r.Header.Set("Accept", "application/json")
		w := httptest.NewRecorder()
		asUser(admin, h.Toggle).ServeHTTP(w, r)
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200 got %d", w.Code)
		}
	}

	toggle()
	var got models.AlgaeType
	if err := db.First(&got, at.ID).Error; err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Active {
		t.Fatalf("expected inactive after toggle")
	}
	toggle()
	if err := db.First(&got, at.ID).Error; err != nil {
		t.Fatalf("load: %v", err)
	}
	if !got.Active {
		t.Fatalf("expected active after second toggle")
	}
}

func TestAlgaeDeleteRefusedWhenReferenced(t *testing.T) {
	db := setupTestDB(t)
	h := NewAlgaeHandler(db)
	admin := seedUser(t, db, "root", "pw", gate.RoleAdministrator)
	worker := seedUser(t, db, "maria", "pw", gate.RoleWorker)
	at := seedSpecies(t, db, "Cochayuyo", 1.0, true)
	seedRecord(t, db, worker.ID, at.ID, 10, "Norte", time.Time{})

	r := httptest.NewRequest(http.MethodPost, "/algae-types/1/delete", nil)
	r.SetPathValue("id", "1")
	r.Header.Set("Accept", "application/json")
	w := httptest.NewRecorder()
	asUser(admin, h.Delete).ServeHTTP(w, r)
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d body=%s", w.Code, w.Body.String())
	}
	// The refusal should point at deactivation as the alternative.
	if !strings.Contains(w.Body.String(), "deactivate") {
		t.Fatalf("expected deactivation hint, body=%s", w.Body.String())
	}
	var count int64
	if err := db.Model(&models.AlgaeType{}).Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("species should still exist")
	}
}

func TestAlgaeDeleteOK(t *testing.T) {
	db := setupTestDB(t)
	h := NewAlgaeHandler(db)
	admin := seedUser(t, db, "root", "pw", gate.RoleAdministrator)
	seedSpecies(t, db, "Luga", 1.0, true)

	r := httptest.NewRequest(http.MethodPost, "/algae-types/1/delete", nil)
	r.SetPathValue("id", "1")
	r.Header.Set("Accept", "application/json")
	w := httptest.NewRecorder()
	asUser(admin, h.Delete).ServeHTTP(w, r)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d body=%s", w.Code, w.Body.String())
	}
	var count int64
	if err := db.Model(&models.AlgaeType{}).Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 0 {
		t.Fatalf("species should be gone")
	}
}
