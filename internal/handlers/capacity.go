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

const monthLayout = "2006-01"

type CapacityHandler struct {
	DB *gorm.DB
}

func NewCapacityHandler(db *gorm.DB) *CapacityHandler { return &CapacityHandler{DB: db} }

func (h *CapacityHandler) List(w http.ResponseWriter, r *http.Request) {
	var rows []models.ProductiveCapacity
	if err := h.DB.WithContext(r.Context()).Order("month desc").Find(&rows).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_list_capacity", nil)
		return
	}
	if httpx.WantsJSON(r) {
		type capacityRow struct {
			models.ProductiveCapacity
			Availability        float64 `json:"availability"`
			UtilizationPercent  float64 `json:"utilization_percent"`
			AvailabilityPercent float64 `json:"availability_percent"`
		}
		out := make([]capacityRow, 0, len(rows))
		for _, c := range rows {
			out = append(out, capacityRow{
				ProductiveCapacity:  c,
				Availability:        c.Availability(),
				UtilizationPercent:  c.UtilizationPercent(),
				AvailabilityPercent: c.AvailabilityPercent(),
			})
		}
		httpx.JSON(w, http.StatusOK, map[string]any{"items": out})
		return
	}
	viewer, _ := policy.UserFromContext(r.Context())
	renderTemplate(w, r, "capacity", map[string]any{
		"User":       viewer,
		"Capacities": rows,
	})
}

type capacityInput struct {
	Month      string  `json:"month"` // YYYY-MM
	MaxMonthly float64 `json:"max_monthly"`
	MaxAnnual  float64 `json:"max_annual"`
	Produced   float64 `json:"produced"`
	Committed  float64 `json:"committed"`
	Notes      string  `json:"notes"`
}

func (h *CapacityHandler) parseInput(r *http.Request) (*capacityInput, error) {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		var in capacityInput
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			return nil, err
		}
		return &in, nil
	}
	if err := r.ParseForm(); err != nil {
		return nil, err
	}
	maxMonthly, _ := strconv.ParseFloat(r.FormValue("max_monthly"), 64)
	maxAnnual, _ := strconv.ParseFloat(r.FormValue("max_annual"), 64)
	produced, _ := strconv.ParseFloat(r.FormValue("produced"), 64)
	committed, _ := strconv.ParseFloat(r.FormValue("committed"), 64)
	return &capacityInput{
		Month:      strings.TrimSpace(r.FormValue("month")),
		MaxMonthly: maxMonthly,
		MaxAnnual:  maxAnnual,
		Produced:   produced,
		Committed:  committed,
		Notes:      strings.TrimSpace(r.FormValue("notes")),
	}, nil
}

func (h *CapacityHandler) validate(in *capacityInput) (time.Time, validation.Violations) {
	v := validation.Violations{}
	validation.Required("month", in.Month, v)
	validation.PositiveFloat("max_monthly", in.MaxMonthly, v)
	validation.NonNegativeFloat("max_annual", in.MaxAnnual, v)
	validation.NonNegativeFloat("produced", in.Produced, v)
	validation.NonNegativeFloat("committed", in.Committed, v)
	var month time.Time
	if in.Month != "" {
		var err error
		month, err = time.Parse(monthLayout, in.Month)
		if err != nil {
			v["month"] = "expected YYYY-MM"
		}
	}
	return month, v
}

func (h *CapacityHandler) Create(w http.ResponseWriter, r *http.Request) {
	in, err := h.parseInput(r)
	if err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_input", nil)
		return
	}
	month, v := h.validate(in)
	if !v.Empty() {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", v)
		return
	}
	row := models.ProductiveCapacity{
		Month:      models.MonthStart(month),
		MaxMonthly: in.MaxMonthly,
		MaxAnnual:  in.MaxAnnual,
		Produced:   in.Produced,
		Committed:  in.Committed,
		Notes:      in.Notes,
	}
	if err := h.DB.WithContext(r.Context()).Create(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) || strings.Contains(strings.ToLower(err.Error()), "unique") {
			httpx.JSONError(w, http.StatusConflict, "month_already_configured", nil)
			return
		}
		httpx.JSONError(w, http.StatusInternalServerError, "capacity_create_failed", nil)
		return
	}
	if httpx.WantsJSON(r) {
		httpx.JSON(w, http.StatusCreated, row)
		return
	}
	http.Redirect(w, r, "/capacity", statusSeeOther)
}

func (h *CapacityHandler) Update(w http.ResponseWriter, r *http.Request) {
	idStr := r.PathValue("id")
	if idStr == "" {
		idStr = r.FormValue("id")
	}
	id, _ := strconv.Atoi(idStr)
	if id <= 0 {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	var row models.ProductiveCapacity
	if err := h.DB.First(&row, id).Error; err != nil {
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
	if in.Month == "" {
		in.Month = row.Month.Format(monthLayout)
	}
	month, v := h.validate(in)
	if !v.Empty() {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", v)
		return
	}
	row.Month = models.MonthStart(month)
	row.MaxMonthly = in.MaxMonthly
	row.MaxAnnual = in.MaxAnnual
	row.Produced = in.Produced
	row.Committed = in.Committed
	row.Notes = in.Notes
	if err := h.DB.Save(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) || strings.Contains(strings.ToLower(err.Error()), "unique") {
			httpx.JSONError(w, http.StatusConflict, "month_already_configured", nil)
			return
		}
		httpx.JSONError(w, http.StatusInternalServerError, "update_failed", nil)
		return
	}
	if httpx.WantsJSON(r) {
		httpx.JSON(w, http.StatusOK, row)
		return
	}
	http.Redirect(w, r, "/capacity", statusSeeOther)
}

func (h *CapacityHandler) Delete(w http.ResponseWriter, r *http.Request) {
	idStr := r.PathValue("id")
	if idStr == "" {
		idStr = r.FormValue("id")
	}
	id, _ := strconv.Atoi(idStr)
	if id <= 0 {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	res := h.DB.Delete(&models.ProductiveCapacity{}, id)
	if res.Error != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "delete_failed", nil)
		return
	}
	if res.RowsAffected == 0 {
		httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
		return
	}
	if httpx.WantsJSON(r) {
		httpx.JSON(w, http.StatusOK, map[string]any{"deleted": id})
		return
	}
	http.Redirect(w, r, "/capacity", statusSeeOther)
}
