package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/algasur/algatrack/gate"
	"github.com/algasur/algatrack/internal/models"
	"github.com/algasur/algatrack/internal/services"
	"gorm.io/gorm"
)

func dashboardJSON(t *testing.T, db *gorm.DB, u *models.User) map[string]json.RawMessage {
	t.Helper()
	h := NewDashboardHandler(db, services.NewAggregator(db, 50000), gate.Default)
	r := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	r.Header.Set("Accept", "application/json")
	w := httptest.NewRecorder()
	asUser(u, h.Show).ServeHTTP(w, r)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d body=%s", w.Code, w.Body.String())
	}
	var out map[string]json.RawMessage
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return out
}

func TestDashboardScopesFiguresToViewer(t *testing.T) {
	db := setupTestDB(t)
	worker := seedUser(t, db, "maria", "pw", gate.RoleWorker)
	other := seedUser(t, db, "pedro", "pw", gate.RoleWorker)
	admin := seedUser(t, db, "root", "pw", gate.RoleAdministrator)
	species := seedSpecies(t, db, "Cochayuyo", 1.0, true)
	now := time.Now()
	seedRecord(t, db, worker.ID, species.ID, 150.50, "Norte", now.AddDate(0, 0, -1))
	seedRecord(t, db, other.ID, species.ID, 100, "Sur", now.AddDate(0, 0, -1))
	// Outside the 7-day window, still counted in the record total.
	seedRecord(t, db, worker.ID, species.ID, 999, "Norte", now.AddDate(0, 0, -20))

	out := dashboardJSON(t, db, worker)
	var total int64
	var weekSum float64
	if err := json.Unmarshal(out["total_records"], &total); err != nil {
		t.Fatalf("decode total: %v", err)
	}
	if err := json.Unmarshal(out["week_total_kg"], &weekSum); err != nil {
		t.Fatalf("decode week sum: %v", err)
	}
	if total != 2 || weekSum != 150.50 {
		t.Fatalf("worker figures wrong: total=%d week=%v", total, weekSum)
	}

	adminOut := dashboardJSON(t, db, admin)
	if err := json.Unmarshal(adminOut["total_records"], &total); err != nil {
		t.Fatalf("decode total: %v", err)
	}
	if err := json.Unmarshal(adminOut["week_total_kg"], &weekSum); err != nil {
		t.Fatalf("decode week sum: %v", err)
	}
	if total != 3 || weekSum != 250.50 {
		t.Fatalf("admin figures wrong: total=%d week=%v", total, weekSum)
	}
}

func TestDashboardModulesFollowRole(t *testing.T) {
	db := setupTestDB(t)
	worker := seedUser(t, db, "maria", "pw", gate.RoleWorker)
	partner := seedUser(t, db, "cliente", "pw", gate.RolePartner)

	decode := func(out map[string]json.RawMessage) []string {
		var modules []string
		if err := json.Unmarshal(out["modules"], &modules); err != nil {
			t.Fatalf("decode modules: %v", err)
		}
		return modules
	}

	workerModules := decode(dashboardJSON(t, db, worker))
	has := func(list []string, m string) bool {
		for _, v := range list {
			if v == m {
				return true
			}
		}
		return false
	}
	if !has(workerModules, "production_entry") || has(workerModules, "users") {
		t.Fatalf("worker modules wrong: %v", workerModules)
	}
	partnerModules := decode(dashboardJSON(t, db, partner))
	if !has(partnerModules, "advanced_statistics") || has(partnerModules, "production_entry") {
		t.Fatalf("partner modules wrong: %v", partnerModules)
	}
}
