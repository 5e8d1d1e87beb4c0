// Package handlers exposes the session lifecycle, investigations and user administration over HTTP
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/fahndung/backend/internal/services"
	"github.com/fahndung/backend/internal/session"
	"github.com/fahndung/backend/internal/supabase"
	"go.uber.org/zap"
)

// maxJSONBodyBytes bounds JSON request bodies
const maxJSONBodyBytes = 1 << 20

type BaseHandler struct {
	logger *zap.Logger
}

// respondJSON sends a JSON response
func (h *BaseHandler) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode JSON response", zap.Error(err))
	}
}

// respondError sends an error JSON response
func (h *BaseHandler) respondError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// respondServiceError maps service and backend errors to HTTP statuses.
// Validation messages are passed to the client, everything unexpected is logged and hidden.
func (h *BaseHandler) respondServiceError(w http.ResponseWriter, err error, action string) {
	switch {
	case errors.Is(err, services.ErrValidation):
		h.respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, services.ErrNotFound):
		h.respondError(w, http.StatusNotFound, "not found")
	case errors.Is(err, services.ErrForbidden):
		h.respondError(w, http.StatusForbidden, "insufficient permissions")
	case errors.Is(err, services.ErrConflict):
		h.respondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, supabase.ErrServiceKeyMissing):
		h.respondError(w, http.StatusNotImplemented, "user administration is not configured")
	case errors.Is(err, supabase.ErrTimeout):
		h.logger.Warn("backend timed out", zap.String("action", action), zap.Error(err))
		h.respondError(w, http.StatusGatewayTimeout, "backend timed out")
	default:
		h.logger.Error("failed to "+action, zap.Error(err))
		h.respondError(w, http.StatusInternalServerError, "failed to "+action)
	}
}

// decodeJSON reads a size-limited JSON body into dst
func (h *BaseHandler) decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		h.logger.Debug("failed to decode request body", zap.Error(err))
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// anonymousState is what a request without visitor sees
var anonymousState = session.State{Initialized: true}

// visitorState returns the session state of the request's visitor; requests without a visitor count as signed out
func visitorState(r *http.Request) session.State {
	visitor, ok := session.FromContext(r.Context())
	if !ok {
		return anonymousState
	}
	return visitor.Store.State()
}

// actor returns the caller of the request; requests without a visitor or session are anonymous
func actor(r *http.Request) services.Actor {
	visitor, ok := session.FromContext(r.Context())
	if !ok {
		return services.Actor{}
	}
	return services.ActorFromSession(visitor.Store.State().Session)
}
