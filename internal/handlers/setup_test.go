package handlers

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/algasur/algatrack/gate"
	"github.com/algasur/algatrack/internal/models"
	"github.com/algasur/algatrack/internal/policy"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	// unique in-memory DB per test name to avoid leakage via shared cache
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(
		&models.User{},
		&models.AlgaeType{},
		&models.ProductionRecord{},
		&models.ProductiveCapacity{},
		&models.ReportConfiguration{},
		&models.AccessLog{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func seedUser(t *testing.T, db *gorm.DB, username, password string, role gate.Role) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	u := &models.User{Username: username, Password: string(hash), Role: string(role)}
	if err := db.Create(u).Error; err != nil {
		t.Fatalf("seed user %s: %v", username, err)
	}
	return u
}

func seedSpecies(t *testing.T, db *gorm.DB, name string, factor float64, active bool) *models.AlgaeType {
	t.Helper()
	at := &models.AlgaeType{Name: name, ConversionFactor: factor, Active: active}
	if err := db.Create(at).Error; err != nil {
		t.Fatalf("seed species %s: %v", name, err)
	}
	return at
}

func seedRecord(t *testing.T, db *gorm.DB, userID, algaeTypeID uint, qty float64, sector string, at time.Time) *models.ProductionRecord {
	t.Helper()
	rec := &models.ProductionRecord{UserID: userID, AlgaeTypeID: algaeTypeID, Quantity: qty, Sector: sector}
	if err := db.Create(rec).Error; err != nil {
		t.Fatalf("seed record: %v", err)
	}
	if !at.IsZero() {
		if err := db.Model(rec).UpdateColumn("created_at", at).Error; err != nil {
			t.Fatalf("backdate record: %v", err)
		}
	}
	return rec
}

// asUser runs the handler with the user preloaded into context, the way
// the access gate does for routed requests.
func asUser(u *models.User, h http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h(w, r.WithContext(policy.WithUser(r.Context(), u)))
	})
}
