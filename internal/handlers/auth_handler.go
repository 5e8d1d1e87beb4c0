package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/fahndung/backend/internal/middlewares"
	"github.com/fahndung/backend/internal/models"
	"github.com/fahndung/backend/internal/session"
	"github.com/fahndung/backend/internal/supabase"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// TokenValidator is the interface that wraps bearer token validation
type TokenValidator interface {
	// Method GetUser validates "token" and returns the user it was issued to.
	//
	// Invalid or expired tokens are reported as errors of kind supabase.KindUnauthorized or supabase.KindExpired.
	GetUser(ctx context.Context, token string) (*models.User, error)
}

// LoginRequest is the body of POST /auth/login
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// VisibilityRequest is the body of POST /auth/visibility
type VisibilityRequest struct {
	Visible bool `json:"visible"`
}

// SessionResponse is the visitor's session state with the permissions of its role
type SessionResponse struct {
	session.State
	Permissions models.Permissions `json:"permissions"`
}

// AuthHandler handles the visitor's session lifecycle
type AuthHandler struct {
	BaseHandler
	validator TokenValidator
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(validator TokenValidator, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		BaseHandler: BaseHandler{logger: logger},
		validator:   validator,
	}
}

// RegisterRoutes registers all auth handler routes
// Note: This assumes the router is already scoped to /api/v1
func (h *AuthHandler) RegisterRoutes(r chi.Router) {
	r.Route("/auth", func(r chi.Router) {
		r.Post("/login", h.Login)
		r.Post("/logout", h.Logout)
		r.Get("/session", h.GetSession)
		r.Post("/session/check", h.CheckSession)
		r.Post("/visibility", h.SetVisibility)
		r.Get("/user", h.GetUser)
	})
}

// RegisterProfileRoutes registers the profile routes behind authMiddleware
func (h *AuthHandler) RegisterProfileRoutes(r chi.Router, authMiddleware func(http.Handler) http.Handler) {
	r.Route("/profile", func(r chi.Router) {
		r.Use(authMiddleware)
		r.Get("/", h.GetProfile)
		r.Put("/", h.UpdateProfile)
	})
}

func newSessionResponse(state session.State) SessionResponse {
	return SessionResponse{
		State:       state,
		Permissions: models.PermissionsFor(state.Session.Role()),
	}
}

// Login handles POST /api/v1/auth/login
// @Summary Sign in
// @Description Sign in with email and password. The session is re-checked right away so the response carries the profile.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Credentials"
// @Success 200 {object} SessionResponse
// @Failure 400 {object} map[string]string "Invalid request body"
// @Failure 401 {object} map[string]string "Invalid email or password"
// @Failure 502 {object} map[string]string "Identity backend failed"
// @Failure 504 {object} map[string]string "Identity backend timed out"
// @Router /api/v1/auth/login [post]
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || req.Password == "" {
		h.respondError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	visitor, ok := middlewares.EnsureVisitor(w, r)
	if !ok {
		h.logger.Error("visitor middleware not mounted", zap.String("path", r.URL.Path))
		h.respondError(w, http.StatusInternalServerError, "visitor not resolved")
		return
	}

	if err := visitor.Store.SignIn(r.Context(), req.Email, req.Password); err != nil {
		h.respondSignInError(w, err)
		return
	}

	visitor.Store.CheckSession(r.Context(), true)
	h.respondJSON(w, http.StatusOK, newSessionResponse(visitor.Store.State()))
}

func (h *AuthHandler) respondSignInError(w http.ResponseWriter, err error) {
	var backendErr *supabase.Error
	switch {
	case errors.Is(err, supabase.ErrTimeout):
		h.respondError(w, http.StatusGatewayTimeout, "identity backend timed out")
	case errors.Is(err, supabase.ErrUnauthorized),
		errors.As(err, &backendErr) && backendErr.Status == http.StatusBadRequest:
		h.respondError(w, http.StatusUnauthorized, "invalid email or password")
	default:
		h.logger.Error("failed to sign in", zap.Error(err))
		h.respondError(w, http.StatusBadGateway, "sign in failed")
	}
}

// Logout handles POST /api/v1/auth/logout
// @Summary Sign out
// @Description Sign out on the identity backend and reset the visitor's session
// @Tags auth
// @Produce json
// @Success 200 {object} SessionResponse
// @Router /api/v1/auth/logout [post]
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	visitor, ok := session.FromContext(r.Context())
	if !ok {
		h.respondJSON(w, http.StatusOK, newSessionResponse(anonymousState))
		return
	}

	// The local session is cleared even when the backend call fails
	if err := visitor.Store.Logout(r.Context()); err != nil {
		h.logger.Warn("backend sign out failed", zap.String("visitor_id", visitor.ID), zap.Error(err))
	}

	h.respondJSON(w, http.StatusOK, newSessionResponse(visitor.Store.State()))
}

// GetSession handles GET /api/v1/auth/session
// @Summary Get session state
// @Description Get the visitor's current session state without contacting the backend
// @Tags auth
// @Produce json
// @Success 200 {object} SessionResponse
// @Router /api/v1/auth/session [get]
func (h *AuthHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, newSessionResponse(visitorState(r)))
}

// CheckSession handles POST /api/v1/auth/session/check
// @Summary Check session
// @Description Re-validate the session against the backend. A check already in flight makes this a no-op; force bypasses the retry ceiling.
// @Tags auth
// @Produce json
// @Param force query bool false "Bypass the retry ceiling"
// @Success 200 {object} SessionResponse
// @Router /api/v1/auth/session/check [post]
func (h *AuthHandler) CheckSession(w http.ResponseWriter, r *http.Request) {
	visitor, ok := session.FromContext(r.Context())
	if !ok {
		h.respondJSON(w, http.StatusOK, newSessionResponse(anonymousState))
		return
	}

	force := r.URL.Query().Get("force") == "true"
	visitor.Store.CheckSession(r.Context(), force)

	h.respondJSON(w, http.StatusOK, newSessionResponse(visitor.Store.State()))
}

// SetVisibility handles POST /api/v1/auth/visibility
// @Summary Report page visibility
// @Description Report that the visitor's page became visible or hidden. Becoming visible with a session re-validates it.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body VisibilityRequest true "Visibility"
// @Success 200 {object} map[string]bool
// @Failure 400 {object} map[string]string "Invalid request body"
// @Router /api/v1/auth/visibility [post]
func (h *AuthHandler) SetVisibility(w http.ResponseWriter, r *http.Request) {
	var req VisibilityRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	visitor, ok := session.FromContext(r.Context())
	if !ok {
		h.respondJSON(w, http.StatusOK, map[string]bool{"revalidated": false})
		return
	}

	revalidated := visitor.Poller.SetVisible(r.Context(), req.Visible)
	h.respondJSON(w, http.StatusOK, map[string]bool{"revalidated": revalidated})
}

// GetUser handles GET /api/v1/auth/user
// @Summary Validate bearer token
// @Description Validate an access token passed as bearer token and return its user
// @Tags auth
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} models.User
// @Failure 401 {object} map[string]string "Missing, invalid or expired token"
// @Router /api/v1/auth/user [get]
func (h *AuthHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	token, ok := bearerToken(r)
	if !ok {
		h.respondError(w, http.StatusUnauthorized, "authorization header required")
		return
	}

	user, err := h.validator.GetUser(r.Context(), token)
	if err != nil {
		switch supabase.KindOf(err) {
		case supabase.KindExpired:
			h.respondError(w, http.StatusUnauthorized, "token expired")
		case supabase.KindUnauthorized:
			h.respondError(w, http.StatusUnauthorized, "invalid token")
		case supabase.KindTimeout:
			h.respondError(w, http.StatusGatewayTimeout, "identity backend timed out")
		default:
			h.logger.Error("failed to validate token", zap.Error(err))
			h.respondError(w, http.StatusBadGateway, "failed to validate token")
		}
		return
	}

	h.respondJSON(w, http.StatusOK, user)
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", false
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", false
	}
	return strings.TrimSpace(parts[1]), true
}

// GetProfile handles GET /api/v1/profile
// @Summary Get own profile
// @Description Get the signed-in user's profile as held in the session
// @Tags profile
// @Produce json
// @Success 200 {object} models.Session
// @Failure 401 {object} map[string]string "Authentication required"
// @Router /api/v1/profile [get]
func (h *AuthHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	visitor, ok := session.FromContext(r.Context())
	if !ok {
		h.respondError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	h.respondJSON(w, http.StatusOK, visitor.Store.State().Session)
}

// UpdateProfile handles PUT /api/v1/profile
// @Summary Update own profile
// @Description Update name, department or phone of the signed-in user. The role cannot be changed here.
// @Tags profile
// @Accept json
// @Produce json
// @Param request body models.ProfileUpdate true "Profile fields"
// @Success 200 {object} models.Profile
// @Failure 400 {object} map[string]string "Invalid request body"
// @Failure 401 {object} map[string]string "Session lost"
// @Failure 502 {object} map[string]string "Identity backend failed"
// @Router /api/v1/profile [put]
func (h *AuthHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	visitor, ok := session.FromContext(r.Context())
	if !ok {
		h.respondError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var update models.ProfileUpdate
	if !h.decodeJSON(w, r, &update) {
		return
	}
	if update.Empty() {
		h.respondError(w, http.StatusBadRequest, "nothing to update")
		return
	}
	if update.Name != nil && strings.TrimSpace(*update.Name) == "" {
		h.respondError(w, http.StatusBadRequest, "name must not be empty")
		return
	}

	profile, err := visitor.Store.UpdateProfile(r.Context(), update)
	if err != nil {
		if errors.Is(err, supabase.ErrNoSession) {
			h.respondError(w, http.StatusUnauthorized, "authentication required")
			return
		}
		if visitor.Triage.ReportError(r.Context(), err) {
			h.respondError(w, http.StatusUnauthorized, "session ended")
			return
		}
		h.logger.Error("failed to update profile", zap.String("visitor_id", visitor.ID), zap.Error(err))
		h.respondError(w, http.StatusBadGateway, "failed to update profile")
		return
	}

	h.respondJSON(w, http.StatusOK, profile)
}
