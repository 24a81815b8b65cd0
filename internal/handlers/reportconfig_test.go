package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/algasur/algatrack/gate"
	"github.com/algasur/algatrack/internal/models"
)

func postConfigJSON(t *testing.T, h *ReportConfigHandler, u *models.User, body string) *httptest.ResponseRecorder {
	t.Helper()
	r := httptest.NewRequest(http.MethodPost, "/report-configs", strings.NewReader(body))
	r.Header.Set("Content-Type", "application/json")
	r.Header.Set("Accept", "application/json")
	w := httptest.NewRecorder()
	asUser(u, h.Create).ServeHTTP(w, r)
	return w
}

func TestReportConfigCreateWithSpeciesFilter(t *testing.T) {
	db := setupTestDB(t)
	h := NewReportConfigHandler(db)
	admin := seedUser(t, db, "root", "pw", gate.RoleAdministrator)
	a := seedSpecies(t, db, "Cochayuyo", 1.0, true)
	b := seedSpecies(t, db, "Luga", 1.0, true)

	body := `{"company":"SeaFarm","country":"Chile","unit":"ton","format":"pdf","show_history":true,"history_months":12,"algae_type_ids":[1,2],"sectors":"Sector A, Sector B"}`
	w := postConfigJSON(t, h, admin, body)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d body=%s", w.Code, w.Body.String())
	}
	var cfg models.ReportConfiguration
	if err := db.Preload("AlgaeTypes").Where("company = ?", "SeaFarm").First(&cfg).Error; err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(cfg.AlgaeTypes) != 2 {
		t.Fatalf("expected 2 species, got %d", len(cfg.AlgaeTypes))
	}
	ids := map[uint]bool{cfg.AlgaeTypes[0].ID: true, cfg.AlgaeTypes[1].ID: true}
	if !ids[a.ID] || !ids[b.ID] {
		t.Fatalf("wrong species assigned: %+v", cfg.AlgaeTypes)
	}
	if got := cfg.SectorList(); len(got) != 2 || got[0] != "Sector A" || got[1] != "Sector B" {
		t.Fatalf("wrong sector list: %v", got)
	}
	if !cfg.Active || cfg.HistoryMonths != 12 {
		t.Fatalf("defaults wrong: %+v", cfg)
	}
}

func TestReportConfigCreateValidation(t *testing.T) {
	db := setupTestDB(t)
	h := NewReportConfigHandler(db)
	admin := seedUser(t, db, "root", "pw", gate.RoleAdministrator)

	cases := []struct {
		name string
		body string
		want string
	}{
		{"missing company", `{"company":"","unit":"kg","format":"pdf"}`, "company"},
		{"bad unit", `{"company":"X","unit":"stone","format":"pdf"}`, "unit"},
		{"bad format", `{"company":"X","unit":"kg","format":"docx"}`, "format"},
		{"bad email", `{"company":"X","unit":"kg","format":"pdf","email":"nope"}`, "email"},
		{"custom range missing dates", `{"company":"X","unit":"kg","format":"pdf","use_custom_range":true}`, "date_from"},
		{"custom range inverted", `{"company":"X","unit":"kg","format":"pdf","use_custom_range":true,"date_from":"2026-08-10","date_to":"2026-08-01"}`, "date_range"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := postConfigJSON(t, h, admin, tc.body)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("expected 400 got %d body=%s", w.Code, w.Body.String())
			}
			if !strings.Contains(w.Body.String(), tc.want) {
				t.Fatalf("expected violation on %s, body=%s", tc.want, w.Body.String())
			}
		})
	}
}

func TestReportConfigUpdateReplacesSpecies(t *testing.T) {
	db := setupTestDB(t)
	h := NewReportConfigHandler(db)
	admin := seedUser(t, db, "root", "pw", gate.RoleAdministrator)
	seedSpecies(t, db, "Cochayuyo", 1.0, true)
	luga := seedSpecies(t, db, "Luga", 1.0, true)
	if w := postConfigJSON(t, h, admin, `{"company":"SeaFarm","unit":"kg","format":"pdf","algae_type_ids":[1]}`); w.Code != http.StatusCreated {
		t.Fatalf("seed: %d", w.Code)
	}

	body := `{"company":"SeaFarm","unit":"lb","format":"excel","algae_type_ids":[2]}`
	r := httptest.NewRequest(http.MethodPost, "/report-configs/1", strings.NewReader(body))
	r.SetPathValue("id", "1")
	r.Header.Set("Content-Type", "application/json")
	r.Header.Set("Accept", "application/json")
	w := httptest.NewRecorder()
	asUser(admin, h.Update).ServeHTTP(w, r)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d body=%s", w.Code, w.Body.String())
	}
	var cfg models.ReportConfiguration
	if err := db.Preload("AlgaeTypes").First(&cfg, 1).Error; err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Unit != models.UnitLb || cfg.Format != models.FormatExcel {
		t.Fatalf("update not applied: %+v", cfg)
	}
	if len(cfg.AlgaeTypes) != 1 || cfg.AlgaeTypes[0].ID != luga.ID {
		t.Fatalf("species filter not replaced: %+v", cfg.AlgaeTypes)
	}
}

func TestReportConfigDelete(t *testing.T) {
	db := setupTestDB(t)
	h := NewReportConfigHandler(db)
	admin := seedUser(t, db, "root", "pw", gate.RoleAdministrator)
	seedSpecies(t, db, "Cochayuyo", 1.0, true)
	if w := postConfigJSON(t, h, admin, `{"company":"SeaFarm","unit":"kg","format":"pdf","algae_type_ids":[1]}`); w.Code != http.StatusCreated {
		t.Fatalf("seed: %d", w.Code)
	}

	r := httptest.NewRequest(http.MethodPost, "/report-configs/1/delete", nil)
	r.SetPathValue("id", "1")
	r.Header.Set("Accept", "application/json")
	w := httptest.NewRecorder()
	asUser(admin, h.Delete).ServeHTTP(w, r)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d body=%s", w.Code, w.Body.String())
	}
	var count int64
	if err := db.Model(&models.ReportConfiguration{}).Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 0 {
		t.Fatalf("config should be gone")
	}
	// Species survive the config deletion.
	if err := db.Model(&models.AlgaeType{}).Count(&count).Error; err != nil {
		t.Fatalf("count species: %v", err)
	}
	if count != 1 {
		t.Fatalf("species should survive")
	}
}

func TestReportConfigListJSON(t *testing.T) {
	db := setupTestDB(t)
	h := NewReportConfigHandler(db)
	partner := seedUser(t, db, "cliente", "pw", gate.RolePartner)
	admin := seedUser(t, db, "root", "pw", gate.RoleAdministrator)
	if w := postConfigJSON(t, h, admin, `{"company":"SeaFarm","unit":"ton","format":"pdf"}`); w.Code != http.StatusCreated {
		t.Fatalf("seed: %d", w.Code)
	}

	r := httptest.NewRequest(http.MethodGet, "/report-configs", nil)
	r.Header.Set("Accept", "application/json")
	w := httptest.NewRecorder()
	asUser(partner, h.List).ServeHTTP(w, r)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", w.Code)
	}
	var out struct {
		Items []models.ReportConfiguration `json:"items"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out.Items) != 1 || out.Items[0].Company != "SeaFarm" {
		t.Fatalf("unexpected items: %+v", out.Items)
	}
}
