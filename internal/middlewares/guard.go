package middlewares

import (
	"net/http"

	"github.com/fahndung/backend/internal/models"
	"github.com/fahndung/backend/internal/session"
)

// RedirectCookieName stores the path a signed-out visitor tried to open
const RedirectCookieName = "redirect_after_login"

// Decision is what a guard does with a request
type Decision int

const (
	// DecisionWait means the session is not settled yet
	DecisionWait Decision = iota
	// DecisionLogin means the visitor is not signed in
	DecisionLogin
	// DecisionLanding means the visitor is signed in without a sufficient role
	DecisionLanding
	// DecisionAllow means the request may proceed
	DecisionAllow
)

// Decide gates a request on the visitor's session state. With required roles the
// effective role must reach at least one of them.
func Decide(state session.State, required []models.Role) Decision {
	switch {
	case !state.Settled():
		return DecisionWait
	case !state.IsAuthenticated():
		return DecisionLogin
	case !state.Session.Role().Satisfies(required):
		return DecisionLanding
	default:
		return DecisionAllow
	}
}

// GuardOptions configures RouteGuard
type GuardOptions struct {
	RequiredRoles []models.Role
	// Fallback renders while the session is settling; defaults to a self-refreshing spinner page
	Fallback     http.Handler
	LoginPath    string
	RegisterPath string
	LandingPath  string
}

func (o GuardOptions) withDefaults() GuardOptions {
	if o.Fallback == nil {
		o.Fallback = http.HandlerFunc(spinner)
	}
	if o.LoginPath == "" {
		o.LoginPath = "/login"
	}
	if o.RegisterPath == "" {
		o.RegisterPath = "/register"
	}
	if o.LandingPath == "" {
		o.LandingPath = "/dashboard"
	}
	return o
}

// RouteGuard protects server-rendered pages. Requests without a visitor count as signed out.
func RouteGuard(opts GuardOptions) func(http.Handler) http.Handler {
	opts = opts.withDefaults()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch Decide(visitorState(r), opts.RequiredRoles) {
			case DecisionWait:
				opts.Fallback.ServeHTTP(w, r)
			case DecisionLogin:
				if r.URL.Path != opts.LoginPath && r.URL.Path != opts.RegisterPath {
					http.SetCookie(w, &http.Cookie{
						Name:     RedirectCookieName,
						Value:    r.URL.RequestURI(),
						Path:     "/",
						MaxAge:   600,
						HttpOnly: true,
						SameSite: http.SameSiteLaxMode,
					})
				}
				http.Redirect(w, r, opts.LoginPath, http.StatusSeeOther)
			case DecisionLanding:
				http.Redirect(w, r, opts.LandingPath, http.StatusSeeOther)
			default:
				next.ServeHTTP(w, r)
			}
		})
	}
}

// RequireRole protects API routes with the same decision as RouteGuard, answering in JSON
func RequireRole(required ...models.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch Decide(visitorState(r), required) {
			case DecisionWait:
				w.Header().Set("Retry-After", "1")
				writeJSONError(w, http.StatusServiceUnavailable, "session is initializing")
			case DecisionLogin:
				writeJSONError(w, http.StatusUnauthorized, "authentication required")
			case DecisionLanding:
				writeJSONError(w, http.StatusForbidden, "insufficient permissions")
			default:
				next.ServeHTTP(w, r)
			}
		})
	}
}

func visitorState(r *http.Request) session.State {
	visitor, ok := session.FromContext(r.Context())
	if !ok {
		return session.State{Initialized: true}
	}
	return visitor.Store.State()
}

const spinnerPage = `<!DOCTYPE html>
<html lang="de">
<head><meta charset="utf-8"><meta http-equiv="refresh" content="1"><title>Fahndung</title></head>
<body><div class="spinner" role="status" aria-live="polite">Sitzung wird geladen…</div></body>
</html>
`

func spinner(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Retry-After", "1")
	w.WriteHeader(http.StatusServiceUnavailable)
	w.Write([]byte(spinnerPage))
}
