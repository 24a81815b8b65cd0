package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/algasur/algatrack/httpx"
	"github.com/algasur/algatrack/internal/models"
	"github.com/algasur/algatrack/internal/policy"
	"github.com/algasur/algatrack/validation"
)

const dateInputLayout = "2006-01-02"

var (
	unitChoices   = []string{models.UnitKg, models.UnitTon, models.UnitLb}
	formatChoices = []string{models.FormatPDF, models.FormatExcel, models.FormatBoth}
)

type ReportConfigHandler struct {
	DB *gorm.DB
}

func NewReportConfigHandler(db *gorm.DB) *ReportConfigHandler {
	return &ReportConfigHandler{DB: db}
}

func (h *ReportConfigHandler) List(w http.ResponseWriter, r *http.Request) {
	var configs []models.ReportConfiguration
	if err := h.DB.WithContext(r.Context()).
		Preload("AlgaeTypes").Order("company asc").Find(&configs).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_list_configs", nil)
		return
	}
	if httpx.WantsJSON(r) {
		httpx.JSON(w, http.StatusOK, map[string]any{"items": configs})
		return
	}
	viewer, _ := policy.UserFromContext(r.Context())
	var species []models.AlgaeType
	_ = h.DB.Where("active = ?", true).Order("name asc").Find(&species).Error
	renderTemplate(w, r, "report_configs", map[string]any{
		"User":       viewer,
		"Configs":    configs,
		"AlgaeTypes": species,
		"Units":      unitChoices,
		"Formats":    formatChoices,
	})
}

type reportConfigInput struct {
	Company          string `json:"company"`
	Country          string `json:"country"`
	Contact          string `json:"contact"`
	Email            string `json:"email"`
	Unit             string `json:"unit"`
	Format           string `json:"format"`
	ShowCapacity     bool   `json:"show_capacity"`
	ShowAvailability bool   `json:"show_availability"`
	ShowHistory      bool   `json:"show_history"`
	ShowCharts       bool   `json:"show_charts"`
	IncludeNotes     bool   `json:"include_notes"`
	HistoryMonths    int    `json:"history_months"`
	UseCustomRange   bool   `json:"use_custom_range"`
	DateFrom         string `json:"date_from"` // YYYY-MM-DD
	DateTo           string `json:"date_to"`
	AlgaeTypeIDs     []uint `json:"algae_type_ids"`
	Sectors          string `json:"sectors"`
	Active           *bool  `json:"active"`
}

func formBool(r *http.Request, field string) bool {
	v := r.FormValue(field)
	return v == "on" || v == "true" || v == "1"
}

func (h *ReportConfigHandler) parseInput(r *http.Request) (*reportConfigInput, error) {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		var in reportConfigInput
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			return nil, err
		}
		return &in, nil
	}
	if err := r.ParseForm(); err != nil {
		return nil, err
	}
	months, _ := strconv.Atoi(r.FormValue("history_months"))
	in := &reportConfigInput{
		Company:          strings.TrimSpace(r.FormValue("company")),
		Country:          strings.TrimSpace(r.FormValue("country")),
		Contact:          strings.TrimSpace(r.FormValue("contact")),
		Email:            strings.TrimSpace(r.FormValue("email")),
		Unit:             r.FormValue("unit"),
		Format:           r.FormValue("format"),
		ShowCapacity:     formBool(r, "show_capacity"),
		ShowAvailability: formBool(r, "show_availability"),
		ShowHistory:      formBool(r, "show_history"),
		ShowCharts:       formBool(r, "show_charts"),
		IncludeNotes:     formBool(r, "include_notes"),
		HistoryMonths:    months,
		UseCustomRange:   formBool(r, "use_custom_range"),
		DateFrom:         strings.TrimSpace(r.FormValue("date_from")),
		DateTo:           strings.TrimSpace(r.FormValue("date_to")),
		Sectors:          strings.TrimSpace(r.FormValue("sectors")),
	}
	for _, s := range r.Form["algae_type_ids"] {
		if id, err := strconv.Atoi(s); err == nil && id > 0 {
			in.AlgaeTypeIDs = append(in.AlgaeTypeIDs, uint(id))
		}
	}
	if v := r.FormValue("active"); v != "" {
		b := v == "on" || v == "true" || v == "1"
		in.Active = &b
	}
	return in, nil
}

func (h *ReportConfigHandler) validate(in *reportConfigInput) (from, to *time.Time, v validation.Violations) {
	v = validation.Violations{}
	validation.Required("company", in.Company, v)
	validation.OneOf("unit", in.Unit, unitChoices, v)
	validation.OneOf("format", in.Format, formatChoices, v)
	if in.Email != "" {
		validation.Email("email", in.Email, v)
	}
	if in.HistoryMonths != 0 {
		validation.MinInt("history_months", in.HistoryMonths, 1, v)
	}
	if in.UseCustomRange {
		f, errF := time.Parse(dateInputLayout, in.DateFrom)
		t, errT := time.Parse(dateInputLayout, in.DateTo)
		if errF != nil {
			v["date_from"] = "expected YYYY-MM-DD"
		}
		if errT != nil {
			v["date_to"] = "expected YYYY-MM-DD"
		}
		if errF == nil && errT == nil {
			validation.DateOrder("date_range", f, t, v)
			from, to = &f, &t
		}
	}
	return from, to, v
}

func (h *ReportConfigHandler) Create(w http.ResponseWriter, r *http.Request) {
	in, err := h.parseInput(r)
	if err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_input", nil)
		return
	}
	from, to, v := h.validate(in)
	if !v.Empty() {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", v)
		return
	}
	cfg := models.ReportConfiguration{
		Company:          in.Company,
		Country:          in.Country,
		Contact:          in.Contact,
		Email:            in.Email,
		Unit:             in.Unit,
		Format:           in.Format,
		ShowCapacity:     in.ShowCapacity,
		ShowAvailability: in.ShowAvailability,
		ShowHistory:      in.ShowHistory,
		ShowCharts:       in.ShowCharts,
		IncludeNotes:     in.IncludeNotes,
		HistoryMonths:    in.HistoryMonths,
		UseCustomRange:   in.UseCustomRange,
		DateFrom:         from,
		DateTo:           to,
		Sectors:          in.Sectors,
		Active:           true,
	}
	if cfg.HistoryMonths == 0 {
		cfg.HistoryMonths = 6
	}
	if in.Active != nil {
		cfg.Active = *in.Active
	}
	if err := h.DB.WithContext(r.Context()).Create(&cfg).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "config_create_failed", nil)
		return
	}
	if err := h.assignSpecies(&cfg, in.AlgaeTypeIDs); err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "config_create_failed", nil)
		return
	}
	if httpx.WantsJSON(r) {
		httpx.JSON(w, http.StatusCreated, cfg)
		return
	}
	http.Redirect(w, r, "/report-configs", statusSeeOther)
}

// assignSpecies replaces the configuration's species filter. An empty id
// list means no filter, i.e. all species.
func (h *ReportConfigHandler) assignSpecies(cfg *models.ReportConfiguration, ids []uint) error {
	if len(ids) == 0 {
		return h.DB.Model(cfg).Association("AlgaeTypes").Clear()
	}
	var species []models.AlgaeType
	if err := h.DB.Where("id IN ?", ids).Find(&species).Error; err != nil {
		return err
	}
	return h.DB.Model(cfg).Association("AlgaeTypes").Replace(species)
}

func (h *ReportConfigHandler) Update(w http.ResponseWriter, r *http.Request) {
	idStr := r.PathValue("id")
	if idStr == "" {
		idStr = r.FormValue("id")
	}
	id, _ := strconv.Atoi(idStr)
	if id <= 0 {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	var cfg models.ReportConfiguration
	if err := h.DB.First(&cfg, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
			return
		}
		httpx.JSONError(w, http.StatusInternalServerError, "update_failed", nil)
		return
	}
	in, err := h.parseInput(r)
	if err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_input", nil)
		return
	}
	from, to, v := h.validate(in)
	if !v.Empty() {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", v)
		return
	}
	cfg.Company = in.Company
	cfg.Country = in.Country
	cfg.Contact = in.Contact
	cfg.Email = in.Email
	cfg.Unit = in.Unit
	cfg.Format = in.Format
	cfg.ShowCapacity = in.ShowCapacity
	cfg.ShowAvailability = in.ShowAvailability
	cfg.ShowHistory = in.ShowHistory
	cfg.ShowCharts = in.ShowCharts
	cfg.IncludeNotes = in.IncludeNotes
	cfg.UseCustomRange = in.UseCustomRange
	cfg.DateFrom = from
	cfg.DateTo = to
	cfg.Sectors = in.Sectors
	if in.HistoryMonths > 0 {
		cfg.HistoryMonths = in.HistoryMonths
	}
	if in.Active != nil {
		cfg.Active = *in.Active
	}
	if err := h.DB.Save(&cfg).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "update_failed", nil)
		return
	}
	if err := h.assignSpecies(&cfg, in.AlgaeTypeIDs); err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "update_failed", nil)
		return
	}
	if httpx.WantsJSON(r) {
		httpx.JSON(w, http.StatusOK, cfg)
		return
	}
	http.Redirect(w, r, "/report-configs", statusSeeOther)
}

func (h *ReportConfigHandler) Delete(w http.ResponseWriter, r *http.Request) {
	idStr := r.PathValue("id")
	if idStr == "" {
		idStr = r.FormValue("id")
	}
	id, _ := strconv.Atoi(idStr)
	if id <= 0 {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	var cfg models.ReportConfiguration
	if err := h.DB.First(&cfg, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
			return
		}
		httpx.JSONError(w, http.StatusInternalServerError, "delete_failed", nil)
		return
	}
	if err := h.DB.Model(&cfg).Association("AlgaeTypes").Clear(); err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "delete_failed", nil)
		return
	}
	if err := h.DB.Delete(&cfg).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "delete_failed", nil)
		return
	}
	if httpx.WantsJSON(r) {
		httpx.JSON(w, http.StatusOK, map[string]any{"deleted": id})
		return
	}
	http.Redirect(w, r, "/report-configs", statusSeeOther)
}
