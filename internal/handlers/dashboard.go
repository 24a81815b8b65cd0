package handlers

import (
	"net/http"
	"sort"
	"time"

	"gorm.io/gorm"

	"github.com/algasur/algatrack/gate"
	"github.com/algasur/algatrack/httpx"
	"github.com/algasur/algatrack/internal/policy"
	"github.com/algasur/algatrack/internal/services"
)

type DashboardHandler struct {
	DB    *gorm.DB
	Agg   *services.Aggregator
	Table gate.Table
}

func NewDashboardHandler(db *gorm.DB, agg *services.Aggregator, table gate.Table) *DashboardHandler {
	return &DashboardHandler{DB: db, Agg: agg, Table: table}
}

// Show renders the landing page: record count, trailing 7-day volume,
// the five most recent records, and the viewer's reachable modules.
// Workers and partners see only their own records; administrators see all.
func (h *DashboardHandler) Show(w http.ResponseWriter, r *http.Request) {
	user, ok := policy.UserFromContext(r.Context())
	if !ok {
		httpx.JSONError(w, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	ctx := r.Context()

	ownerID := user.ID
	if user.IsAdmin() {
		ownerID = 0
	}
	now := time.Now()

	total, err := h.Agg.CountRecords(ctx, ownerID)
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "dashboard_failed", nil)
		return
	}
	weekSum, err := h.Agg.WindowedSum(ctx, now.AddDate(0, 0, -7), now, ownerID)
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "dashboard_failed", nil)
		return
	}
	recent, err := h.Agg.RecentRecords(ctx, user, 5)
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "dashboard_failed", nil)
		return
	}

	role, _ := user.AccessRole()
	modules := h.Table.Modules(role)
	names := make([]string, 0, len(modules))
	for _, m := range modules {
		names = append(names, string(m))
	}
	sort.Strings(names)

	if httpx.WantsJSON(r) {
		httpx.JSON(w, http.StatusOK, map[string]any{
			"username":       user.Username,
			"role":           user.Role,
			"total_records":  total,
			"week_total_kg":  weekSum,
			"recent_records": recent,
			"modules":        names,
		})
		return
	}
	renderTemplate(w, r, "dashboard", map[string]any{
		"User":          user,
		"TotalRecords":  total,
		"WeekTotal":     weekSum,
		"RecentRecords": recent,
		"Modules":       names,
	})
}
