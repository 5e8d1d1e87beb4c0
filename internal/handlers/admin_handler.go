package handlers

import (
	"context"
	"net/http"

	"github.com/fahndung/backend/internal/middlewares"
	"github.com/fahndung/backend/internal/models"
	"github.com/fahndung/backend/internal/services"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// UserService is the interface that wraps methods for user administration
type UserService interface {
	// Method ListUsers returns all staff profiles.
	//
	// Callers below admin get services.ErrForbidden.
	ListUsers(ctx context.Context, actor services.Actor) ([]models.Profile, error)
	// Method UpdateRole changes the role of "userID".
	//
	// Nobody changes their own role and only a super admin grants super admin; both are reported as services.ErrForbidden.
	// A missing profile is reported as services.ErrNotFound.
	UpdateRole(ctx context.Context, actor services.Actor, userID string, role models.Role) (*models.Profile, error)
	// Method DeleteUser removes the identity of "userID" and with it the profile.
	DeleteUser(ctx context.Context, actor services.Actor, userID string) error
}

// UpdateRoleRequest is the body of PUT /admin/users/{id}/role
type UpdateRoleRequest struct {
	Role models.Role `json:"role"`
}

// AdminHandler handles HTTP requests for user administration
type AdminHandler struct {
	BaseHandler
	service UserService
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(svc UserService, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{
		BaseHandler: BaseHandler{logger: logger},
		service:     svc,
	}
}

// RegisterRoutes registers all admin handler routes
// Note: This assumes the router is already scoped to /api/v1
func (h *AdminHandler) RegisterRoutes(r chi.Router) {
	r.Route("/admin", func(r chi.Router) {
		r.Use(middlewares.RequireRole(models.RoleAdmin))
		r.Route("/users", func(r chi.Router) {
			r.Get("/", h.ListUsers)
			r.Put("/{id}/role", h.UpdateRole)
			r.Delete("/{id}", h.DeleteUser)
		})
	})
}

// ListUsers handles GET /api/v1/admin/users
// @Summary List users
// @Description Get all staff profiles
// @Tags admin
// @Produce json
// @Success 200 {array} models.Profile
// @Failure 401 {object} map[string]string "Authentication required"
// @Failure 403 {object} map[string]string "Insufficient permissions"
// @Failure 501 {object} map[string]string "User administration is not configured"
// @Router /api/v1/admin/users [get]
func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	profiles, err := h.service.ListUsers(r.Context(), actor(r))
	if err != nil {
		h.respondServiceError(w, err, "list users")
		return
	}

	h.respondJSON(w, http.StatusOK, profiles)
}

// UpdateRole handles PUT /api/v1/admin/users/{id}/role
// @Summary Update user role
// @Description Change the role of a user
// @Tags admin
// @Accept json
// @Produce json
// @Param id path string true "User ID"
// @Param request body UpdateRoleRequest true "Role: user, editor, admin or super_admin"
// @Success 200 {object} models.Profile
// @Failure 400 {object} map[string]string "Invalid role"
// @Failure 403 {object} map[string]string "Insufficient permissions"
// @Failure 404 {object} map[string]string "User not found"
// @Router /api/v1/admin/users/{id}/role [put]
func (h *AdminHandler) UpdateRole(w http.ResponseWriter, r *http.Request) {
	var req UpdateRoleRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	profile, err := h.service.UpdateRole(r.Context(), actor(r), chi.URLParam(r, "id"), req.Role)
	if err != nil {
		h.respondServiceError(w, err, "update role")
		return
	}

	h.respondJSON(w, http.StatusOK, profile)
}

// DeleteUser handles DELETE /api/v1/admin/users/{id}
// @Summary Delete user
// @Description Delete a user and their profile
// @Tags admin
// @Param id path string true "User ID"
// @Success 204 "No Content"
// @Failure 403 {object} map[string]string "Insufficient permissions"
// @Router /api/v1/admin/users/{id} [delete]
func (h *AdminHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteUser(r.Context(), actor(r), chi.URLParam(r, "id")); err != nil {
		h.respondServiceError(w, err, "delete user")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
