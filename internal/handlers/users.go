package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/algasur/algatrack/gate"
	"github.com/algasur/algatrack/httpx"
	"github.com/algasur/algatrack/internal/models"
	"github.com/algasur/algatrack/internal/policy"
	"github.com/algasur/algatrack/validation"
)

var roleChoices = []string{
	string(gate.RoleAdministrator),
	string(gate.RoleWorker),
	string(gate.RolePartner),
}

type UserHandler struct {
	DB *gorm.DB
}

func NewUserHandler(db *gorm.DB) *UserHandler { return &UserHandler{DB: db} }

func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	var users []models.User
	if err := h.DB.WithContext(r.Context()).Order("username asc").Find(&users).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_list_users", nil)
		return
	}
	if httpx.WantsJSON(r) {
		httpx.JSON(w, http.StatusOK, map[string]any{"items": users})
		return
	}
	viewer, _ := policy.UserFromContext(r.Context())
	renderTemplate(w, r, "users", map[string]any{
		"User":  viewer,
		"Users": users,
		"Roles": roleChoices,
	})
}

type userInput struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Role     string `json:"role"`
}

func (h *UserHandler) parseInput(r *http.Request) (*userInput, error) {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		var in userInput
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			return nil, err
		}
		return &in, nil
	}
	if err := r.ParseForm(); err != nil {
		return nil, err
	}
	return &userInput{
		Username: strings.TrimSpace(r.FormValue("username")),
		Password: r.FormValue("password"),
		Email:    strings.TrimSpace(r.FormValue("email")),
		Phone:    strings.TrimSpace(r.FormValue("phone")),
		Role:     strings.TrimSpace(r.FormValue("role")),
	}, nil
}

func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	in, err := h.parseInput(r)
	if err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_input", nil)
		return
	}
	v := validation.Violations{}
	validation.Required("username", in.Username, v)
	validation.MinLen("password", in.Password, 8, v)
	validation.OneOf("role", in.Role, roleChoices, v)
	if in.Email != "" {
		validation.Email("email", in.Email, v)
	}
	if in.Phone != "" {
		validation.Phone("phone", in.Phone, v)
	}
	if !v.Empty() {
		h.createFailed(w, r, http.StatusBadRequest, "validation_failed", v)
		return
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "user_create_failed", nil)
		return
	}
	user := models.User{
		Username: in.Username,
		Password: string(hash),
		Email:    in.Email,
		Phone:    in.Phone,
		Role:     in.Role,
	}
	if err := h.DB.WithContext(r.Context()).Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) || strings.Contains(strings.ToLower(err.Error()), "unique") {
			h.createFailed(w, r, http.StatusConflict, "username_already_exists",
				validation.Violations{"username": "already taken"})
			return
		}
		httpx.JSONError(w, http.StatusInternalServerError, "user_create_failed", nil)
		return
	}
	if httpx.WantsJSON(r) {
		httpx.JSON(w, http.StatusCreated, user)
		return
	}
	http.Redirect(w, r, "/users", statusSeeOther)
}

func (h *UserHandler) createFailed(w http.ResponseWriter, r *http.Request, status int, code string, v validation.Violations) {
	if httpx.WantsJSON(r) {
		httpx.JSONError(w, status, code, v)
		return
	}
	viewer, _ := policy.UserFromContext(r.Context())
	w.WriteHeader(status)
	renderTemplate(w, r, "users", map[string]any{
		"User":   viewer,
		"Errors": v,
		"Roles":  roleChoices,
	})
}

// Delete removes an account. Self-deletion is refused, as is deleting a
// user who still owns production records.
func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	viewer, ok := policy.UserFromContext(r.Context())
	if !ok {
		httpx.JSONError(w, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	idStr := r.PathValue("id")
	if idStr == "" {
		idStr = r.FormValue("id")
	}
	id, _ := strconv.Atoi(idStr)
	if id <= 0 {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	if uint(id) == viewer.ID {
		httpx.JSONError(w, http.StatusBadRequest, "cannot_delete_self", nil)
		return
	}
	var user models.User
	if err := h.DB.First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
			return
		}
		httpx.JSONError(w, http.StatusInternalServerError, "delete_failed", nil)
		return
	}
	var refs int64
	if err := h.DB.Model(&models.ProductionRecord{}).
		Where("user_id = ?", user.ID).Limit(1).Count(&refs).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "delete_failed", nil)
		return
	}
	if refs > 0 {
		httpx.JSONError(w, http.StatusConflict, "user_has_production_records", nil)
		return
	}
	if err := h.DB.Delete(&user).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "delete_failed", nil)
		return
	}
	if httpx.WantsJSON(r) {
		httpx.JSON(w, http.StatusOK, map[string]any{"deleted": id})
		return
	}
	http.Redirect(w, r, "/users", statusSeeOther)
}
