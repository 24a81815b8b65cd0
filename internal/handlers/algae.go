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

type AlgaeHandler struct {
	DB *gorm.DB
}

func NewAlgaeHandler(db *gorm.DB) *AlgaeHandler { return &AlgaeHandler{DB: db} }

func (h *AlgaeHandler) List(w http.ResponseWriter, r *http.Request) {
	var types []models.AlgaeType
	if err := h.DB.WithContext(r.Context()).Order("name asc").Find(&types).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_list_algae_types", nil)
		return
	}
	if httpx.WantsJSON(r) {
		httpx.JSON(w, http.StatusOK, map[string]any{"items": types})
		return
	}
	viewer, _ := policy.UserFromContext(r.Context())
	renderTemplate(w, r, "algae_types", map[string]any{
		"User":       viewer,
		"AlgaeTypes": types,
	})
}

type algaeInput struct {
	Name             string   `json:"name"`
	ConversionFactor *float64 `json:"conversion_factor"`
	Description      string   `json:"description"`
	Active           *bool    `json:"active"`
}

func (h *AlgaeHandler) parseInput(r *http.Request) (*algaeInput, error) {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		var in algaeInput
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			return nil, err
		}
		return &in, nil
	}
	if err := r.ParseForm(); err != nil {
		return nil, err
	}
	in := &algaeInput{
		Name:        strings.TrimSpace(r.FormValue("name")),
		Description: strings.TrimSpace(r.FormValue("description")),
	}
	if v := r.FormValue("conversion_factor"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			in.ConversionFactor = &f
		}
	}
	if v := r.FormValue("active"); v != "" {
		b := v == "on" || v == "true" || v == "1"
		in.Active = &b
	}
	return in, nil
}

func (h *AlgaeHandler) Create(w http.ResponseWriter, r *http.Request) {
	in, err := h.parseInput(r)
	if err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_input", nil)
		return
	}
	factor := 1.0
	if in.ConversionFactor != nil {
		factor = *in.ConversionFactor
	}
	v := validation.Violations{}
	validation.Required("name", in.Name, v)
	validation.PositiveFloat("conversion_factor", factor, v)
	if !v.Empty() {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", v)
		return
	}
	at := models.AlgaeType{
		Name:             in.Name,
		ConversionFactor: factor,
		Description:      in.Description,
		Active:           true,
	}
	if in.Active != nil {
		at.Active = *in.Active
	}
	if err := h.DB.WithContext(r.Context()).Create(&at).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) || strings.Contains(strings.ToLower(err.Error()), "unique") {
			httpx.JSONError(w, http.StatusConflict, "name_already_exists", nil)
			return
		}
		httpx.JSONError(w, http.StatusInternalServerError, "algae_type_create_failed", nil)
		return
	}
	if httpx.WantsJSON(r) {
		httpx.JSON(w, http.StatusCreated, at)
		return
	}
	http.Redirect(w, r, "/algae-types", statusSeeOther)
}

func (h *AlgaeHandler) load(w http.ResponseWriter, r *http.Request) (*models.AlgaeType, bool) {
	idStr := r.PathValue("id")
	if idStr == "" {
		idStr = r.FormValue("id")
	}
	id, _ := strconv.Atoi(idStr)
	if id <= 0 {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return nil, false
	}
	var at models.AlgaeType
	if err := h.DB.First(&at, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
			return nil, false
		}
		httpx.JSONError(w, http.StatusInternalServerError, "load_failed", nil)
		return nil, false
	}
	return &at, true
}

func (h *AlgaeHandler) Update(w http.ResponseWriter, r *http.Request) {
	at, ok := h.load(w, r)
	if !ok {
		return
	}
	in, err := h.parseInput(r)
	if err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_input", nil)
		return
	}
	if in.Name != "" {
		at.Name = in.Name
	}
	if in.ConversionFactor != nil {
		if *in.ConversionFactor <= 0 {
			httpx.JSONError(w, http.StatusBadRequest, "validation_failed",
				validation.Violations{"conversion_factor": "must be > 0"})
			return
		}
		at.ConversionFactor = *in.ConversionFactor
	}
	if in.Description != "" {
		at.Description = in.Description
	}
	if in.Active != nil {
		at.Active = *in.Active
	}
	if err := h.DB.Save(at).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "update_failed", nil)
		return
	}
	if httpx.WantsJSON(r) {
		httpx.JSON(w, http.StatusOK, at)
		return
	}
	http.Redirect(w, r, "/algae-types", statusSeeOther)
}

// Toggle flips the active flag. Deactivation is the recommended path when
// a species still has production records.
func (h *AlgaeHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	at, ok := h.load(w, r)
	if !ok {
		return
	}
	at.Active = !at.Active
	if err := h.DB.Save(at).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "toggle_failed", nil)
		return
	}
	if httpx.WantsJSON(r) {
		httpx.JSON(w, http.StatusOK, at)
		return
	}
	http.Redirect(w, r, "/algae-types", statusSeeOther)
}

// Delete removes a species only when no production records reference it.
func (h *AlgaeHandler) Delete(w http.ResponseWriter, r *http.Request) {
	at, ok := h.load(w, r)
	if !ok {
		return
	}
	var refs int64
	if err := h.DB.Model(&models.ProductionRecord{}).
		Where("algae_type_id = ?", at.ID).Limit(1).Count(&refs).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "delete_failed", nil)
		return
	}
	if refs > 0 {
		httpx.JSONError(w, http.StatusConflict, "algae_type_in_use_deactivate_instead", nil)
		return
	}
	if err := h.DB.Delete(at).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "delete_failed", nil)
		return
	}
	if httpx.WantsJSON(r) {
		httpx.JSON(w, http.StatusOK, map[string]any{"deleted": at.ID})
		return
	}
	http.Redirect(w, r, "/algae-types", statusSeeOther)
}
