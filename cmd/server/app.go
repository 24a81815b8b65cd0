package main

import (
	"net/http"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/algasur/algatrack/auth"
	"github.com/algasur/algatrack/gate"
	"github.com/algasur/algatrack/httpx"
	"github.com/algasur/algatrack/internal/audit"
	"github.com/algasur/algatrack/internal/config"
	"github.com/algasur/algatrack/internal/handlers"
	"github.com/algasur/algatrack/internal/policy"
	"github.com/algasur/algatrack/internal/services"
	"github.com/algasur/algatrack/view"
)

// NewApp wires the full HTTP surface: session middleware, the access
// gate per route, and the handlers. The returned handler is what main
// mounts on the server and what the end-to-end tests drive directly.
func NewApp(dbConn *gorm.DB, cfg *config.Config, log *zap.Logger) http.Handler {
	recorder := audit.NewRecorder(dbConn, log)
	accessGate := policy.NewAccessGate(dbConn, gate.Default, recorder, log)
	aggregator := services.NewAggregator(dbConn, cfg.Report.DefaultMonthlyCapacityKg)
	composer := services.NewComposer(dbConn)

	authH := handlers.NewAuthHandler(dbConn, recorder)
	dashboardH := handlers.NewDashboardHandler(dbConn, aggregator, gate.Default)
	productionH := handlers.NewProductionHandler(dbConn)
	usersH := handlers.NewUserHandler(dbConn)
	algaeH := handlers.NewAlgaeHandler(dbConn)
	capacityH := handlers.NewCapacityHandler(dbConn)
	configsH := handlers.NewReportConfigHandler(dbConn)
	reportsH := handlers.NewReportsHandler(dbConn, aggregator, composer, log, cfg.Report.WeeklyLookbackWeeks)

	// Navigation visibility in templates follows the same table as the
	// route gates.
	view.SetCanModuleResolver(func(r *http.Request, module string) bool {
		return accessGate.CanModule(r, gate.Module(module))
	})
	view.SetIsAdminResolver(accessGate.IsAdmin)

	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.HandleFunc("GET /healthz", healthz(dbConn))

	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.Dir("static"))))

	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
	})

	mux.HandleFunc("GET /login", authH.LoginForm)
	mux.HandleFunc("POST /login", authH.Login)
	mux.HandleFunc("GET /logout", authH.Logout)
	mux.HandleFunc("POST /logout", authH.Logout)

	handle := func(pattern string, mw func(http.Handler) http.Handler, h http.HandlerFunc) {
		mux.Handle(pattern, mw(h))
	}

	handle("GET /dashboard",
		accessGate.RequireModule("dashboard", gate.ModuleDashboard), dashboardH.Show)

	handle("GET /production",
		accessGate.RequireModule("production list", gate.ModuleProductionEntry), productionH.List)
	handle("POST /production",
		accessGate.RequireModule("production create", gate.ModuleProductionEntry), productionH.Create)
	handle("POST /production/{id}/delete",
		accessGate.RequireAdmin("production delete"), productionH.Delete)

	handle("GET /reports",
		accessGate.RequireModule("reports overview",
			gate.ModuleReports, gate.ModuleBasicReports, gate.ModuleAdvancedStatistics), reportsH.Overview)
	handle("GET /api/production-daily",
		accessGate.RequireModule("daily production feed",
			gate.ModuleDashboard, gate.ModuleReports), reportsH.Daily)
	handle("GET /reports/custom/{config_id}",
		accessGate.RequireModule("custom report",
			gate.ModuleReportConfiguration, gate.ModuleReports), reportsH.Custom)

	handle("GET /users", accessGate.RequireAdmin("user list"), usersH.List)
	handle("POST /users", accessGate.RequireAdmin("user create"), usersH.Create)
	handle("POST /users/{id}/delete", accessGate.RequireAdmin("user delete"), usersH.Delete)

	algaeGate := accessGate.RequireReadWrite("algae types", gate.ModuleAlgaeTypes)
	handle("GET /algae-types", algaeGate, algaeH.List)
	handle("POST /algae-types", algaeGate, algaeH.Create)
	handle("POST /algae-types/{id}", algaeGate, algaeH.Update)
	handle("POST /algae-types/{id}/toggle", algaeGate, algaeH.Toggle)
	handle("POST /algae-types/{id}/delete", algaeGate, algaeH.Delete)

	capacityGate := accessGate.RequireReadWrite("productive capacity", gate.ModuleProductiveCapacity)
	handle("GET /capacity", capacityGate, capacityH.List)
	handle("POST /capacity", capacityGate, capacityH.Create)
	handle("POST /capacity/{id}", capacityGate, capacityH.Update)
	handle("POST /capacity/{id}/delete", capacityGate, capacityH.Delete)

	configGate := accessGate.RequireReadWrite("report configuration", gate.ModuleReportConfiguration)
	handle("GET /report-configs", configGate, configsH.List)
	handle("POST /report-configs", configGate, configsH.Create)
	handle("POST /report-configs/{id}", configGate, configsH.Update)
	handle("POST /report-configs/{id}/delete", configGate, configsH.Delete)

	return auth.Middleware(mux)
}

// healthz verifies the database connection with a trivial query.
func healthz(dbConn *gorm.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := dbConn.WithContext(r.Context()).Exec("SELECT 1").Error; err != nil {
			httpx.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
			return
		}
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
