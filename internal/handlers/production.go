package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"gorm.io/gorm"

	"github.com/algasur/algatrack/httpx"
	"github.com/algasur/algatrack/internal/models"
	"github.com/algasur/algatrack/internal/policy"
	"github.com/algasur/algatrack/validation"
)

type ProductionHandler struct {
	DB *gorm.DB
}

func NewProductionHandler(db *gorm.DB) *ProductionHandler {
	return &ProductionHandler{DB: db}
}

// activeSpecies lists the species offered in the entry form. Inactive
// species stay out of new entries but remain on historical records.
func (h *ProductionHandler) activeSpecies() []models.AlgaeType {
	var types []models.AlgaeType
	_ = h.DB.Where("active = ?", true).Order("name asc").Find(&types).Error
	return types
}

// List shows the entry form plus existing records. Non-administrators see
// only their own rows.
func (h *ProductionHandler) List(w http.ResponseWriter, r *http.Request) {
	user, ok := policy.UserFromContext(r.Context())
	if !ok {
		httpx.JSONError(w, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}
	q := h.DB.WithContext(r.Context()).Model(&models.ProductionRecord{})
	if !user.IsAdmin() {
		q = q.Where("user_id = ?", user.ID)
	}
	var records []models.ProductionRecord
	if err := q.Preload("User").Preload("AlgaeType").
		Order("created_at desc").Limit(limit).Find(&records).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_list_records", nil)
		return
	}
	if httpx.WantsJSON(r) {
		httpx.JSON(w, http.StatusOK, map[string]any{"items": records, "limit": limit})
		return
	}
	renderTemplate(w, r, "production", map[string]any{
		"User":       user,
		"Records":    records,
		"AlgaeTypes": h.activeSpecies(),
	})
}

type productionInput struct {
	AlgaeTypeID uint    `json:"algae_type_id"`
	Quantity    float64 `json:"quantity"`
	Sector      string  `json:"sector"`
	Notes       string  `json:"notes"`
}

func (h *ProductionHandler) parseInput(r *http.Request) (*productionInput, error) {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		var in productionInput
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			return nil, err
		}
		return &in, nil
	}
	if err := r.ParseForm(); err != nil {
		return nil, err
	}
	id, _ := strconv.Atoi(r.FormValue("algae_type_id"))
	qty, _ := strconv.ParseFloat(r.FormValue("quantity"), 64)
	return &productionInput{
		AlgaeTypeID: uint(id),
		Quantity:    qty,
		Sector:      strings.TrimSpace(r.FormValue("sector")),
		Notes:       strings.TrimSpace(r.FormValue("notes")),
	}, nil
}

// Create records a harvest entry for the logged-in user. The record owner
// is always the session user, never a form field.
func (h *ProductionHandler) Create(w http.ResponseWriter, r *http.Request) {
	user, ok := policy.UserFromContext(r.Context())
	if !ok {
		httpx.JSONError(w, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	in, err := h.parseInput(r)
	if err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_input", nil)
		return
	}
	v := validation.Violations{}
	validation.Required("sector", in.Sector, v)
	validation.PositiveFloat("quantity", in.Quantity, v)
	if in.AlgaeTypeID == 0 {
		v["algae_type_id"] = "required"
	} else {
		var count int64
		if err := h.DB.Model(&models.AlgaeType{}).
			Where("id = ? AND active = ?", in.AlgaeTypeID, true).
			Limit(1).Count(&count).Error; err != nil || count == 0 {
			v["algae_type_id"] = "unknown or inactive species"
		}
	}
	if !v.Empty() {
		if httpx.WantsJSON(r) {
			httpx.JSONError(w, http.StatusBadRequest, "validation_failed", v)
			return
		}
		w.WriteHeader(http.StatusBadRequest)
		renderTemplate(w, r, "production", map[string]any{
			"User":       user,
			"Errors":     v,
			"AlgaeTypes": h.activeSpecies(),
		})
		return
	}
	rec := models.ProductionRecord{
		UserID:      user.ID,
		AlgaeTypeID: in.AlgaeTypeID,
		Quantity:    in.Quantity,
		Sector:      in.Sector,
		Notes:       in.Notes,
	}
	if err := h.DB.WithContext(r.Context()).Create(&rec).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "record_create_failed", nil)
		return
	}
	if httpx.WantsJSON(r) {
		httpx.JSON(w, http.StatusCreated, rec)
		return
	}
	http.Redirect(w, r, "/production", statusSeeOther)
}

// Delete removes a record. Routed behind the admin gate.
func (h *ProductionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	idStr := r.PathValue("id")
	if idStr == "" {
		idStr = r.FormValue("id")
	}
	id, _ := strconv.Atoi(idStr)
	if id <= 0 {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	var rec models.ProductionRecord
	if err := h.DB.First(&rec, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
			return
		}
		httpx.JSONError(w, http.StatusInternalServerError, "delete_failed", nil)
		return
	}
	if err := h.DB.Delete(&rec).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "delete_failed", nil)
		return
	}
	if httpx.WantsJSON(r) {
		httpx.JSON(w, http.StatusOK, map[string]any{"deleted": id})
		return
	}
	http.Redirect(w, r, "/production", statusSeeOther)
}
