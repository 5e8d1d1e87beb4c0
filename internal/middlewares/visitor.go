package middlewares

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/fahndung/backend/internal/session"
)

const (
	// VisitorCookieName identifies the visitor across requests
	VisitorCookieName = "fahndung_sid"
	// NavigateHeader tells API clients where a forced navigation wants them to go
	NavigateHeader = "X-Session-Navigate"

	apiPrefix = "/api/"
)

// VisitorRegistry looks up and creates visitors
type VisitorRegistry interface {
	// Method Get returns the visitor with id.
	Get(id string) (*session.Visitor, bool)
	// Method Create registers a new visitor.
	Create() *session.Visitor
}

type visitorCreatorKey struct{}

type visitorCreator func(w http.ResponseWriter) *session.Visitor

// VisitorMiddleware resolves the visitor from its cookie and puts it into the request context.
// Requests without a known visitor stay anonymous; only EnsureVisitor creates one.
// A navigation queued by the error triage is applied here: pages are redirected,
// API responses carry NavigateHeader. The profile of a signed-in visitor is reloaded
// once it is older than the store's ProfileMaxAge.
func VisitorMiddleware(registry VisitorRegistry, secureCookies bool) func(http.Handler) http.Handler {
	create := func(w http.ResponseWriter) *session.Visitor {
		visitor := registry.Create()
		http.SetCookie(w, &http.Cookie{
			Name:     VisitorCookieName,
			Value:    visitor.ID,
			Path:     "/",
			HttpOnly: true,
			Secure:   secureCookies,
			SameSite: http.SameSiteLaxMode,
		})
		return visitor
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := context.WithValue(r.Context(), visitorCreatorKey{}, visitorCreator(create))

			var visitor *session.Visitor
			if cookie, err := r.Cookie(VisitorCookieName); err == nil {
				visitor, _ = registry.Get(cookie.Value)
			}
			if visitor == nil {
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			api := isAPIRequest(r)
			viewPath := r.URL.Path
			if api {
				viewPath = ""
			}
			visitor.Touch(viewPath, time.Now())

			if target := visitor.TakeNavigation(); target != "" {
				switch {
				case api:
					w.Header().Set(NavigateHeader, target)
				case r.URL.Path != target:
					http.Redirect(w, r, target, http.StatusSeeOther)
					return
				}
			}

			if visitor.Store != nil {
				visitor.Store.RefreshProfile(r.Context(), false)
			}

			next.ServeHTTP(w, r.WithContext(session.WithVisitor(ctx, visitor)))
		})
	}
}

// EnsureVisitor returns the visitor of the request, creating one and setting its cookie
// when the request has none. It reports false when VisitorMiddleware did not run.
func EnsureVisitor(w http.ResponseWriter, r *http.Request) (*session.Visitor, bool) {
	if visitor, ok := session.FromContext(r.Context()); ok {
		return visitor, true
	}

	create, ok := r.Context().Value(visitorCreatorKey{}).(visitorCreator)
	if !ok {
		return nil, false
	}
	visitor := create(w)
	viewPath := r.URL.Path
	if isAPIRequest(r) {
		viewPath = ""
	}
	visitor.Touch(viewPath, time.Now())

	return visitor, true
}

func isAPIRequest(r *http.Request) bool {
	return strings.HasPrefix(r.URL.Path, apiPrefix)
}
