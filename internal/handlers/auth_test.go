package handlers

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/algasur/algatrack/auth"
	"github.com/algasur/algatrack/gate"
	"github.com/algasur/algatrack/internal/audit"
	"github.com/algasur/algatrack/internal/models"
)

func TestLoginSuccessSetsSessionAndAudits(t *testing.T) {
	db := setupTestDB(t)
	rec := audit.NewRecorder(db, zap.NewNop())
	h := NewAuthHandler(db, rec)
	seedUser(t, db, "maria", "harvest-pass", gate.RoleWorker)

	form := url.Values{"username": {"maria"}, "password": {"harvest-pass"}}
	r := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form.Encode()))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	h.Login(w, r)

	if w.Code != http.StatusSeeOther {
		t.Fatalf("expected 303 got %d body=%s", w.Code, w.Body.String())
	}
	if loc := w.Header().Get("Location"); loc != "/dashboard" {
		t.Fatalf("expected redirect to /dashboard got %s", loc)
	}
	var found bool
	for _, c := range w.Result().Cookies() {
		if c.Name == "session" && c.Value != "" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected session cookie")
	}
	var logs []models.AccessLog
	if err := db.Find(&logs).Error; err != nil {
		t.Fatalf("load logs: %v", err)
	}
	if len(logs) != 1 || logs[0].AccessType != models.AccessLoginSuccess {
		t.Fatalf("expected one login_success log, got %#v", logs)
	}
}

func TestLoginFailureIsGenericForUnknownUserAndWrongPassword(t *testing.T) {
	db := setupTestDB(t)
	rec := audit.NewRecorder(db, zap.NewNop())
	h := NewAuthHandler(db, rec)
	seedUser(t, db, "maria", "harvest-pass", gate.RoleWorker)

	attempt := func(username, password string) *httptest.ResponseRecorder {
		form := url.Values{"username": {username}, "password": {password}}
		r := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form.Encode()))
		r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		r.Header.Set("Accept", "application/json")
		w := httptest.NewRecorder()
		h.Login(w, r)
		return w
	}

	unknown := attempt("nobody", "whatever")
	wrongPass := attempt("maria", "wrong")
	if unknown.Code != http.StatusUnauthorized || wrongPass.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401/401 got %d/%d", unknown.Code, wrongPass.Code)
	}
	// Same status, same body: the response must not reveal which part
	// of the credentials was wrong.
	if unknown.Body.String() != wrongPass.Body.String() {
		t.Fatalf("expected identical failure bodies, got %q vs %q",
			unknown.Body.String(), wrongPass.Body.String())
	}
	var count int64
	if err := db.Model(&models.AccessLog{}).
		Where("access_type = ?", models.AccessLoginFailure).Count(&count).Error; err != nil {
		t.Fatalf("count logs: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 login_failure logs got %d", count)
	}
}

func TestLogoutClearsSessionAndAudits(t *testing.T) {
	db := setupTestDB(t)
	rec := audit.NewRecorder(db, zap.NewNop())
	h := NewAuthHandler(db, rec)
	u := seedUser(t, db, "maria", "harvest-pass", gate.RoleWorker)

	r := httptest.NewRequest(http.MethodPost, "/logout", nil)
	r = r.WithContext(auth.WithUserID(r.Context(), u.ID))
	w := httptest.NewRecorder()
	h.Logout(w, r)

	if w.Code != http.StatusSeeOther {
		t.Fatalf("expected 303 got %d", w.Code)
	}
	var cleared bool
	for _, c := range w.Result().Cookies() {
		if c.Name == "session" && c.MaxAge < 0 {
			cleared = true
		}
	}
	if !cleared {
		t.Fatalf("expected expired session cookie")
	}
	var count int64
	if err := db.Model(&models.AccessLog{}).
		Where("access_type = ?", models.AccessLogout).Count(&count).Error; err != nil {
		t.Fatalf("count logs: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 logout log got %d", count)
	}
}
