package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/algasur/algatrack/gate"
	"github.com/algasur/algatrack/internal/config"
	"github.com/algasur/algatrack/internal/db"
	"github.com/algasur/algatrack/internal/models"
)

func newTestApp(t *testing.T) (http.Handler, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	dbConn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.Migrate(dbConn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	cfg := &config.Config{
		Report: config.ReportConfig{DefaultMonthlyCapacityKg: 50000, WeeklyLookbackWeeks: 8},
	}
	return NewApp(dbConn, cfg, zap.NewNop()), dbConn
}

func createUser(t *testing.T, dbConn *gorm.DB, username, password string, role gate.Role) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	u := &models.User{Username: username, Password: string(hash), Role: string(role)}
	if err := dbConn.Create(u).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

func login(t *testing.T, app http.Handler, username, password string) *http.Cookie {
	t.Helper()
	form := url.Values{"username": {username}, "password": {password}}
	r := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form.Encode()))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	app.ServeHTTP(w, r)
	if w.Code != http.StatusSeeOther {
		t.Fatalf("login failed: %d %s", w.Code, w.Body.String())
	}
	for _, c := range w.Result().Cookies() {
		if c.Name == "session" {
			return c
		}
	}
	t.Fatalf("no session cookie")
	return nil
}

func TestEndToEndWorkerFlow(t *testing.T) {
	app, dbConn := newTestApp(t)
	createUser(t, dbConn, "maria", "harvest-pass", gate.RoleWorker)
	if err := dbConn.Create(&models.AlgaeType{Name: "Cochayuyo", ConversionFactor: 1, Active: true}).Error; err != nil {
		t.Fatalf("seed species: %v", err)
	}
	cookie := login(t, app, "maria", "harvest-pass")

	// Record a harvest.
	body := `{"algae_type_id":1,"quantity":150.50,"sector":"Sector Norte"}`
	r := httptest.NewRequest(http.MethodPost, "/production", strings.NewReader(body))
	r.Header.Set("Content-Type", "application/json")
	r.Header.Set("Accept", "application/json")
	r.AddCookie(cookie)
	w := httptest.NewRecorder()
	app.ServeHTTP(w, r)
	if w.Code != http.StatusCreated {
		t.Fatalf("create record: %d %s", w.Code, w.Body.String())
	}

	// The dashboard reflects it.
	r2 := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	r2.Header.Set("Accept", "application/json")
	r2.AddCookie(cookie)
	w2 := httptest.NewRecorder()
	app.ServeHTTP(w2, r2)
	if w2.Code != http.StatusOK {
		t.Fatalf("dashboard: %d %s", w2.Code, w2.Body.String())
	}
	var out struct {
		TotalRecords int64   `json:"total_records"`
		WeekTotalKg  float64 `json:"week_total_kg"`
	}
	if err := json.Unmarshal(w2.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.TotalRecords != 1 || out.WeekTotalKg != 150.50 {
		t.Fatalf("dashboard figures wrong: %+v", out)
	}

	// Workers cannot reach user administration.
	r3 := httptest.NewRequest(http.MethodGet, "/users", nil)
	r3.Header.Set("Accept", "application/json")
	r3.AddCookie(cookie)
	w3 := httptest.NewRecorder()
	app.ServeHTTP(w3, r3)
	if w3.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for worker on /users, got %d", w3.Code)
	}
	var denied int64
	if err := dbConn.Model(&models.AccessLog{}).
		Where("access_type = ?", models.AccessDenied).Count(&denied).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if denied != 1 {
		t.Fatalf("expected 1 access_denied log got %d", denied)
	}
}

func TestEndToEndAdminAndReports(t *testing.T) {
	app, dbConn := newTestApp(t)
	createUser(t, dbConn, "root", "root-pass-123", gate.RoleAdministrator)
	cookie := login(t, app, "root", "root-pass-123")

	post := func(path, body string) *httptest.ResponseRecorder {
		r := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
		r.Header.Set("Content-Type", "application/json")
		r.Header.Set("Accept", "application/json")
		r.AddCookie(cookie)
		w := httptest.NewRecorder()
		app.ServeHTTP(w, r)
		return w
	}

	if w := post("/algae-types", `{"name":"Cochayuyo"}`); w.Code != http.StatusCreated {
		t.Fatalf("create species: %d %s", w.Code, w.Body.String())
	}
	if w := post("/capacity", `{"month":"2026-08","max_monthly":50000}`); w.Code != http.StatusCreated {
		t.Fatalf("create capacity: %d %s", w.Code, w.Body.String())
	}
	if w := post("/production", `{"algae_type_id":1,"quantity":500,"sector":"Norte"}`); w.Code != http.StatusCreated {
		t.Fatalf("create record: %d %s", w.Code, w.Body.String())
	}
	if w := post("/report-configs", `{"company":"SeaFarm","unit":"ton","format":"pdf","show_history":true,"show_capacity":true}`); w.Code != http.StatusCreated {
		t.Fatalf("create config: %d %s", w.Code, w.Body.String())
	}

	// Custom report downloads as PDF.
	r := httptest.NewRequest(http.MethodGet, "/reports/custom/1", nil)
	r.AddCookie(cookie)
	w := httptest.NewRecorder()
	app.ServeHTTP(w, r)
	if w.Code != http.StatusOK || w.Header().Get("Content-Type") != "application/pdf" {
		t.Fatalf("custom report: %d %s", w.Code, w.Header().Get("Content-Type"))
	}

	// Reports overview aggregates.
	r2 := httptest.NewRequest(http.MethodGet, "/reports", nil)
	r2.Header.Set("Accept", "application/json")
	r2.AddCookie(cookie)
	w2 := httptest.NewRecorder()
	app.ServeHTTP(w2, r2)
	if w2.Code != http.StatusOK {
		t.Fatalf("reports: %d %s", w2.Code, w2.Body.String())
	}
	if !strings.Contains(w2.Body.String(), "Cochayuyo") {
		t.Fatalf("expected species aggregate in body: %s", w2.Body.String())
	}
}

func TestEndToEndUnauthenticated(t *testing.T) {
	app, _ := newTestApp(t)

	r := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	w := httptest.NewRecorder()
	app.ServeHTTP(w, r)
	if w.Code != http.StatusSeeOther || w.Header().Get("Location") != "/login" {
		t.Fatalf("expected redirect to login got %d %s", w.Code, w.Header().Get("Location"))
	}

	hw := httptest.NewRecorder()
	app.ServeHTTP(hw, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if hw.Code != http.StatusOK {
		t.Fatalf("healthz: %d", hw.Code)
	}
}
