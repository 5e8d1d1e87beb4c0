package handlers

import (
	"bytes"
	"embed"
	"errors"
	"html/template"
	"net/http"
	"strings"

	"github.com/fahndung/backend/internal/middlewares"
	"github.com/fahndung/backend/internal/models"
	"github.com/fahndung/backend/internal/services"
	"github.com/fahndung/backend/internal/session"
	"github.com/fahndung/backend/internal/supabase"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

//go:embed templates/*.html.tmpl
var pageTemplates embed.FS

const (
	loginPath     = "/login"
	dashboardPath = "/dashboard"
)

type pageData struct {
	Title       string
	Session     *models.Session
	Permissions models.Permissions
	Error       string

	// login
	Email string
	// dashboard
	DisplayName    string
	Role           string
	ProfileMissing bool
	// admin
	Users []models.Profile
}

// PageHandler serves the server-rendered pages: login, logout, dashboard and user administration
type PageHandler struct {
	BaseHandler
	users     UserService
	templates *template.Template
}

// NewPageHandler creates a new page handler
func NewPageHandler(users UserService, logger *zap.Logger) *PageHandler {
	return &PageHandler{
		BaseHandler: BaseHandler{logger: logger},
		users:       users,
		templates:   template.Must(template.ParseFS(pageTemplates, "templates/*.html.tmpl")),
	}
}

// RegisterRoutes registers all page routes at the router root
func (h *PageHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, dashboardPath, http.StatusSeeOther)
	})
	r.Get(loginPath, h.LoginPage)
	r.Post(loginPath, h.Login)
	r.Post("/logout", h.Logout)

	r.With(middlewares.RouteGuard(middlewares.GuardOptions{})).Get(dashboardPath, h.Dashboard)
	r.With(middlewares.RouteGuard(middlewares.GuardOptions{
		RequiredRoles: []models.Role{models.RoleAdmin},
	})).Get("/admin", h.Admin)
}

// LoginPage renders the login form. Signed-in visitors are sent on right away.
func (h *PageHandler) LoginPage(w http.ResponseWriter, r *http.Request) {
	state := visitorState(r)
	if state.Settled() && state.IsAuthenticated() {
		h.redirectAfterLogin(w, r)
		return
	}

	h.render(w, http.StatusOK, "login.html.tmpl", pageData{Title: "Anmelden"})
}

// Login signs the visitor in from the login form
func (h *PageHandler) Login(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBodyBytes)
	if err := r.ParseForm(); err != nil {
		h.render(w, http.StatusBadRequest, "login.html.tmpl", pageData{Title: "Anmelden", Error: "Ungültige Anfrage"})
		return
	}

	email := strings.TrimSpace(r.PostFormValue("email"))
	password := r.PostFormValue("password")
	data := pageData{Title: "Anmelden", Email: email}
	if email == "" || password == "" {
		data.Error = "Bitte E-Mail und Passwort eingeben"
		h.render(w, http.StatusBadRequest, "login.html.tmpl", data)
		return
	}

	visitor, ok := middlewares.EnsureVisitor(w, r)
	if !ok {
		h.logger.Error("visitor middleware not mounted", zap.String("path", r.URL.Path))
		http.Error(w, "visitor not resolved", http.StatusInternalServerError)
		return
	}

	if err := visitor.Store.SignIn(r.Context(), email, password); err != nil {
		var backendErr *supabase.Error
		switch {
		case errors.Is(err, supabase.ErrUnauthorized),
			errors.As(err, &backendErr) && backendErr.Status == http.StatusBadRequest:
			data.Error = "E-Mail oder Passwort ist falsch"
			h.render(w, http.StatusUnauthorized, "login.html.tmpl", data)
		default:
			h.logger.Error("failed to sign in", zap.String("visitor_id", visitor.ID), zap.Error(err))
			data.Error = "Anmeldung derzeit nicht möglich. Bitte später erneut versuchen."
			h.render(w, http.StatusBadGateway, "login.html.tmpl", data)
		}
		return
	}

	visitor.Store.CheckSession(r.Context(), true)
	h.redirectAfterLogin(w, r)
}

// Logout signs the visitor out and returns to the login page
func (h *PageHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if visitor, ok := session.FromContext(r.Context()); ok {
		if err := visitor.Store.Logout(r.Context()); err != nil {
			h.logger.Warn("backend sign out failed", zap.String("visitor_id", visitor.ID), zap.Error(err))
		}
	}

	http.Redirect(w, r, loginPath, http.StatusSeeOther)
}

// Dashboard renders the signed-in user's overview
func (h *PageHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	data := h.sessionData(r, "Dashboard")
	data.DisplayName = data.Session.User.Email
	if profile := data.Session.Profile; profile != nil && profile.Name != "" {
		data.DisplayName = profile.Name
	}
	data.Role = data.Session.Role().String()
	data.ProfileMissing = data.Session.Profile == nil

	h.render(w, http.StatusOK, "dashboard.html.tmpl", data)
}

// Admin renders the user list
func (h *PageHandler) Admin(w http.ResponseWriter, r *http.Request) {
	data := h.sessionData(r, "Benutzerverwaltung")

	users, err := h.users.ListUsers(r.Context(), actor(r))
	if err != nil {
		status := http.StatusBadGateway
		switch {
		case errors.Is(err, services.ErrForbidden):
			status = http.StatusForbidden
			data.Error = "Keine Berechtigung"
		case errors.Is(err, supabase.ErrServiceKeyMissing):
			status = http.StatusNotImplemented
			data.Error = "Benutzerverwaltung ist nicht konfiguriert"
		default:
			h.logger.Error("failed to list users", zap.Error(err))
			data.Error = "Benutzer konnten nicht geladen werden"
		}
		h.render(w, status, "admin.html.tmpl", data)
		return
	}
	data.Users = users

	h.render(w, http.StatusOK, "admin.html.tmpl", data)
}

func (h *PageHandler) sessionData(r *http.Request, title string) pageData {
	state := visitorState(r)
	return pageData{
		Title:       title,
		Session:     state.Session,
		Permissions: models.PermissionsFor(state.Session.Role()),
	}
}

// redirectAfterLogin sends the visitor to the page stored by the route guard, or the dashboard
func (h *PageHandler) redirectAfterLogin(w http.ResponseWriter, r *http.Request) {
	target := dashboardPath
	if cookie, err := r.Cookie(middlewares.RedirectCookieName); err == nil {
		if isLocalPath(cookie.Value) && !strings.HasPrefix(cookie.Value, loginPath) {
			target = cookie.Value
		}
		http.SetCookie(w, &http.Cookie{
			Name:     middlewares.RedirectCookieName,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
	}

	http.Redirect(w, r, target, http.StatusSeeOther)
}

// isLocalPath reports whether path stays on this host
func isLocalPath(path string) bool {
	if !strings.HasPrefix(path, "/") {
		return false
	}
	return !strings.HasPrefix(path, "//") && !strings.HasPrefix(path, `/\`)
}

func (h *PageHandler) render(w http.ResponseWriter, status int, name string, data pageData) {
	var buf bytes.Buffer
	if err := h.templates.ExecuteTemplate(&buf, name, data); err != nil {
		h.logger.Error("failed to render page", zap.String("template", name), zap.Error(err))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if _, err := buf.WriteTo(w); err != nil {
		h.logger.Debug("failed to write page", zap.Error(err))
	}
}
