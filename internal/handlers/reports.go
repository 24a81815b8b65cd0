package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/algasur/algatrack/httpx"
	"github.com/algasur/algatrack/internal/export"
	"github.com/algasur/algatrack/internal/models"
	"github.com/algasur/algatrack/internal/policy"
	"github.com/algasur/algatrack/internal/services"
)

type ReportsHandler struct {
	DB       *gorm.DB
	Agg      *services.Aggregator
	Composer *services.Composer
	Log      *zap.Logger

	// WeeklyLookback is how many Monday-start weeks the overview charts
	// cover, most recent week included.
	WeeklyLookback int
}

func NewReportsHandler(db *gorm.DB, agg *services.Aggregator, composer *services.Composer, log *zap.Logger, weeklyLookback int) *ReportsHandler {
	if weeklyLookback < 1 {
		weeklyLookback = 8
	}
	return &ReportsHandler{DB: db, Agg: agg, Composer: composer, Log: log, WeeklyLookback: weeklyLookback}
}

// Overview serves the statistics page: totals per species, the recent
// weekly series, and current month capacity usage.
func (h *ReportsHandler) Overview(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	now := time.Now()

	species, err := h.Agg.TotalsBySpecies(ctx)
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "report_failed", nil)
		return
	}
	weekly, err := h.Agg.WeeklyBuckets(ctx, now, h.WeeklyLookback)
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "report_failed", nil)
		return
	}
	usage, err := h.Agg.MonthlyCapacityUsage(ctx, now)
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "report_failed", nil)
		return
	}

	if httpx.WantsJSON(r) {
		httpx.JSON(w, http.StatusOK, map[string]any{
			"species":        species,
			"weekly":         weekly,
			"capacity_usage": usage,
		})
		return
	}
	viewer, _ := policy.UserFromContext(ctx)
	renderTemplate(w, r, "reports", map[string]any{
		"User":          viewer,
		"Species":       species,
		"Weekly":        weekly,
		"CapacityUsage": usage,
	})
}

// Daily serves the JSON feed behind the dashboard chart: one point per
// day over the requested trailing window (default 30, max 365).
func (h *ReportsHandler) Daily(w http.ResponseWriter, r *http.Request) {
	days := 30
	if v := r.URL.Query().Get("days"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 365 {
			days = n
		}
	}
	points, err := h.Agg.DailyTotals(r.Context(), time.Now(), days)
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "report_failed", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"days": days, "points": points})
}

// Custom generates a per-client report from its stored configuration and
// delivers it in the configured format. When PDF or Excel rendering
// fails, the handler logs it and falls back to the inline view so the
// data is still reachable.
func (h *ReportsHandler) Custom(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.Atoi(r.PathValue("config_id"))
	if id <= 0 {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	var cfg models.ReportConfiguration
	if err := h.DB.WithContext(r.Context()).
		Preload("AlgaeTypes").First(&cfg, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
			return
		}
		httpx.JSONError(w, http.StatusInternalServerError, "report_failed", nil)
		return
	}
	if !cfg.Active {
		httpx.JSONError(w, http.StatusConflict, "configuration_inactive", nil)
		return
	}

	data, err := h.Composer.Compose(r.Context(), &cfg, time.Now())
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "report_failed", nil)
		return
	}

	// Explicit ?format= overrides the stored preference. "both" means the
	// client receives each format separately; a single request gets PDF.
	format := cfg.Format
	switch q := r.URL.Query().Get("format"); q {
	case models.FormatPDF, models.FormatExcel:
		format = q
	case "inline":
		format = "inline"
	}
	if format == models.FormatBoth {
		format = models.FormatPDF
	}

	switch format {
	case models.FormatPDF:
		body, name, err := export.PDF(data)
		if err != nil {
			h.Log.Warn("pdf export failed, serving inline view",
				zap.Uint("config_id", cfg.ID), zap.Error(err))
			h.inline(w, r, data)
			return
		}
		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
		_, _ = w.Write(body)
	case models.FormatExcel:
		body, name, err := export.Excel(data)
		if err != nil {
			h.Log.Warn("excel export failed, serving inline view",
				zap.Uint("config_id", cfg.ID), zap.Error(err))
			h.inline(w, r, data)
			return
		}
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
		_, _ = w.Write(body)
	default:
		h.inline(w, r, data)
	}
}

func (h *ReportsHandler) inline(w http.ResponseWriter, r *http.Request, data *services.ReportData) {
	if httpx.WantsJSON(r) {
		httpx.JSON(w, http.StatusOK, data)
		return
	}
	renderTemplate(w, r, "report_inline", map[string]any{
		"Report": data,
	})
}
