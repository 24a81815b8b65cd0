// Package policy enforces who may reach which operation. It combines the
// static gate.Table with the session identity: every protected request
// re-loads the user row, converts the stored role once, and consults the
// table. Denials are audited and answered with a redirect, never an error
// surfaced to the handler.
package policy

import (
	"context"
	"errors"
	"net/http"

	"github.com/algasur/algatrack/auth"
	"github.com/algasur/algatrack/gate"
	"github.com/algasur/algatrack/httpx"
	"github.com/algasur/algatrack/internal/audit"
	"github.com/algasur/algatrack/internal/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type userCtxKey struct{}

// WithUser stores the loaded user in context so handlers behind the gate
// do not re-query it.
func WithUser(ctx context.Context, u *models.User) context.Context {
	return context.WithValue(ctx, userCtxKey{}, u)
}

// UserFromContext returns the user loaded by the access gate.
func UserFromContext(ctx context.Context) (*models.User, bool) {
	u, ok := ctx.Value(userCtxKey{}).(*models.User)
	return u, ok && u != nil
}

// AccessGate guards protected operations.
type AccessGate struct {
	db    *gorm.DB
	table gate.Table
	audit *audit.Recorder
	log   *zap.Logger
}

func NewAccessGate(db *gorm.DB, table gate.Table, rec *audit.Recorder, log *zap.Logger) *AccessGate {
	return &AccessGate{db: db, table: table, audit: rec, log: log}
}

// loadSessionUser resolves the session to a live user row.
// Returns nil when the request is unauthenticated or the session is stale.
func (g *AccessGate) loadSessionUser(r *http.Request) (*models.User, bool, error) {
	uid, ok := auth.UserIDFromContext(r.Context())
	if !ok || uid == 0 {
		return nil, false, nil
	}
	var user models.User
	if err := g.db.WithContext(r.Context()).First(&user, uid).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, true, nil // stale session: user was deleted
		}
		return nil, true, err
	}
	return &user, true, nil
}

func redirectToLogin(w http.ResponseWriter, r *http.Request) {
	if httpx.WantsJSON(r) {
		httpx.JSONError(w, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func redirectToDashboard(w http.ResponseWriter, r *http.Request) {
	if httpx.WantsJSON(r) {
		httpx.JSONError(w, http.StatusForbidden, "forbidden", nil)
		return
	}
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

// authenticate runs steps 1+2 shared by every gate variant: session
// present, user row still exists. On failure the response is written and
// nil is returned.
func (g *AccessGate) authenticate(w http.ResponseWriter, r *http.Request, operation string) *models.User {
	user, hadSession, err := g.loadSessionUser(r)
	if err != nil {
		g.log.Error("session user lookup failed", zap.String("operation", operation), zap.Error(err))
		redirectToLogin(w, r)
		return nil
	}
	if user == nil {
		if !hadSession {
			g.audit.Record(r, nil, models.AccessDenied, "unauthenticated - "+operation)
		} else {
			auth.ClearSession(w)
		}
		redirectToLogin(w, r)
		return nil
	}
	return user
}

// RequireModule admits users whose role reaches at least one of the given
// modules. The operation name only feeds audit detail.
func (g *AccessGate) RequireModule(operation string, modules ...gate.Module) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := g.authenticate(w, r, operation)
			if user == nil {
				return
			}
			role, ok := user.AccessRole()
			if !ok || !g.table.HasAny(role, modules...) {
				g.audit.RecordUser(r, user.ID, models.AccessDenied,
					"permission denied - "+operation+" - role: "+user.Role)
				redirectToDashboard(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}

// RequireAdmin admits only Administrators, regardless of the table.
// Used for destructive or sensitive operations.
func (g *AccessGate) RequireAdmin(operation string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := g.authenticate(w, r, operation)
			if user == nil {
				return
			}
			if !user.IsAdmin() {
				g.audit.RecordUser(r, user.ID, models.AccessDenied,
					"admin required - "+operation+" - role: "+user.Role)
				redirectToDashboard(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}

// RequireReadWrite checks table membership for reads and additionally
// requires the Administrator role for mutating methods.
func (g *AccessGate) RequireReadWrite(operation string, module gate.Module) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := g.authenticate(w, r, operation)
			if user == nil {
				return
			}
			role, ok := user.AccessRole()
			if !ok || !g.table.Has(role, module) {
				g.audit.RecordUser(r, user.ID, models.AccessDenied,
					"no read permission - "+operation+" - role: "+user.Role)
				redirectToDashboard(w, r)
				return
			}
			if r.Method != http.MethodGet && r.Method != http.MethodHead && !user.IsAdmin() {
				g.audit.RecordUser(r, user.ID, models.AccessDenied,
					"no write permission - "+operation+" - role: "+user.Role)
				redirectToDashboard(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}

// CanModule reports table membership for the current session's user.
// Used by templates to show or hide navigation.
func (g *AccessGate) CanModule(r *http.Request, module gate.Module) bool {
	user, _, err := g.loadSessionUser(r)
	if err != nil || user == nil {
		return false
	}
	role, ok := user.AccessRole()
	return ok && g.table.Has(role, module)
}

// IsAdmin reports whether the current session belongs to an Administrator.
func (g *AccessGate) IsAdmin(r *http.Request) bool {
	user, _, err := g.loadSessionUser(r)
	return err == nil && user != nil && user.IsAdmin()
}
