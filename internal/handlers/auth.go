package handlers

import (
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/algasur/algatrack/auth"
	"github.com/algasur/algatrack/httpx"
	"github.com/algasur/algatrack/internal/audit"
	"github.com/algasur/algatrack/internal/models"
)

// loginErrMsg is deliberately identical for unknown users and wrong
// passwords so the form cannot be used to enumerate usernames.
const loginErrMsg = "Usuario o contraseña incorrectos"

type AuthHandler struct {
	DB    *gorm.DB
	Audit *audit.Recorder
}

func NewAuthHandler(db *gorm.DB, rec *audit.Recorder) *AuthHandler {
	return &AuthHandler{DB: db, Audit: rec}
}

func (h *AuthHandler) LoginForm(w http.ResponseWriter, r *http.Request) {
	// Already logged in with a live user row: straight to the dashboard.
	if uid, ok := auth.UserIDFromContext(r.Context()); ok && uid != 0 {
		var count int64
		if err := h.DB.Model(&models.User{}).Where("id = ?", uid).Limit(1).Count(&count).Error; err == nil && count > 0 {
			http.Redirect(w, r, "/dashboard", statusSeeOther)
			return
		}
		auth.ClearSession(w)
	}
	renderTemplate(w, r, "login", nil)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_form", nil)
		return
	}
	username := strings.TrimSpace(r.FormValue("username"))
	password := r.FormValue("password")
	if username == "" || password == "" {
		h.loginFailed(w, r, "missing credentials")
		return
	}
	var user models.User
	if err := h.DB.Where("username = ?", username).First(&user).Error; err != nil {
		h.Audit.Record(r, nil, models.AccessLoginFailure, "unknown user: "+username)
		h.loginFailed(w, r, loginErrMsg)
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)) != nil {
		h.Audit.RecordUser(r, user.ID, models.AccessLoginFailure, "wrong password")
		h.loginFailed(w, r, loginErrMsg)
		return
	}
	auth.CreateSession(w, user.ID)
	h.Audit.RecordUser(r, user.ID, models.AccessLoginSuccess, "")
	if httpx.WantsJSON(r) {
		httpx.JSON(w, http.StatusOK, map[string]any{"id": user.ID, "username": user.Username, "role": user.Role})
		return
	}
	http.Redirect(w, r, "/dashboard", statusSeeOther)
}

func (h *AuthHandler) loginFailed(w http.ResponseWriter, r *http.Request, msg string) {
	if httpx.WantsJSON(r) {
		httpx.JSONError(w, http.StatusUnauthorized, "invalid_credentials", nil)
		return
	}
	w.WriteHeader(http.StatusUnauthorized)
	renderTemplate(w, r, "login", map[string]any{"Error": msg})
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if uid, ok := auth.UserIDFromContext(r.Context()); ok && uid != 0 {
		h.Audit.RecordUser(r, uid, models.AccessLogout, "")
	}
	auth.ClearSession(w)
	if httpx.WantsJSON(r) {
		httpx.JSON(w, http.StatusOK, map[string]any{"logged_out": true})
		return
	}
	http.Redirect(w, r, "/login", statusSeeOther)
}
