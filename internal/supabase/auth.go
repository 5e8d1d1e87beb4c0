package supabase

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"

	"github.com/fahndung/backend/internal/models"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// AuthListener receives auth-state changes
type AuthListener func(event models.AuthEvent, session *models.AuthSession)

// AuthClient holds the auth session of one visitor and talks to GoTrue on its behalf.
// It plays the role the browser-side client plays for a single tab.
type AuthClient struct {
	client *Client

	mu        sync.RWMutex
	session   *models.AuthSession
	listeners map[int]AuthListener
	nextID    int

	refreshGroup singleflight.Group
}

// NewAuthClient creates an AuthClient without a session
func (c *Client) NewAuthClient() *AuthClient {
	return &AuthClient{
		client:    c,
		listeners: make(map[int]AuthListener),
	}
}

// GetSession returns the current session or nil when signed out.
// The session is returned as stored, expired or not.
func (a *AuthClient) GetSession(ctx context.Context) (*models.AuthSession, error) {
	if err := ctx.Err(); err != nil {
		return nil, transportError(err)
	}

	a.mu.RLock()
	defer a.mu.RUnlock()

	if a.session == nil {
		return nil, nil
	}
	session := *a.session
	return &session, nil
}

// SignInWithPassword exchanges email and password for a session and emits SIGNED_IN
func (a *AuthClient) SignInWithPassword(ctx context.Context, email, password string) (*models.AuthSession, error) {
	var resp models.AuthSession
	err := a.client.do(ctx, request{
		method: http.MethodPost,
		path:   "/auth/v1/token",
		query:  url.Values{"grant_type": {"password"}},
		body:   map[string]string{"email": email, "password": password},
	}, &resp)
	if err != nil {
		var backendErr *Error
		// GoTrue answers bad credentials with 400 invalid_grant
		if errors.As(err, &backendErr) && backendErr.Status == http.StatusBadRequest {
			backendErr.Kind = KindUnauthorized
		}
		return nil, fmt.Errorf("failed to sign in: %w", err)
	}

	session := a.store(resp)
	a.emit(models.AuthEventSignedIn, session)

	return session, nil
}

// SignOut revokes the session remotely and always clears it locally
func (a *AuthClient) SignOut(ctx context.Context) error {
	a.mu.Lock()
	previous := a.session
	a.session = nil
	a.mu.Unlock()

	if previous == nil {
		return nil
	}

	a.emit(models.AuthEventSignedOut, nil)

	err := a.client.do(ctx, request{
		method: http.MethodPost,
		path:   "/auth/v1/logout",
		query:  url.Values{"scope": {"local"}},
		token:  previous.AccessToken,
	}, nil)
	if err != nil {
		// A token the backend no longer knows is already signed out
		if KindOf(err) == KindUnauthorized {
			return nil
		}
		return fmt.Errorf("failed to sign out: %w", err)
	}

	return nil
}

// RefreshSession exchanges the refresh token for a new session.
// Concurrent callers share one request.
func (a *AuthClient) RefreshSession(ctx context.Context) (*models.AuthSession, error) {
	result, err, _ := a.refreshGroup.Do("refresh", func() (any, error) {
		return a.refresh(ctx)
	})
	if err != nil {
		return nil, err
	}
	session := *result.(*models.AuthSession)
	return &session, nil
}

func (a *AuthClient) refresh(ctx context.Context) (*models.AuthSession, error) {
	a.mu.RLock()
	current := a.session
	a.mu.RUnlock()

	if current == nil || current.RefreshToken == "" {
		return nil, ErrNoSession
	}

	var resp models.AuthSession
	err := a.client.do(ctx, request{
		method: http.MethodPost,
		path:   "/auth/v1/token",
		query:  url.Values{"grant_type": {"refresh_token"}},
		body:   map[string]string{"refresh_token": current.RefreshToken},
	}, &resp)
	if err != nil {
		var backendErr *Error
		// A revoked refresh token ends the session
		if errors.As(err, &backendErr) && (backendErr.Kind == KindUnauthorized || backendErr.Status == http.StatusBadRequest) {
			backendErr.Kind = KindUnauthorized
			a.mu.Lock()
			if a.session == current {
				a.session = nil
			}
			a.mu.Unlock()
			a.emit(models.AuthEventSignedOut, nil)
		}
		return nil, fmt.Errorf("failed to refresh session: %w", err)
	}

	session := a.store(resp)
	a.emit(models.AuthEventTokenRefreshed, session)

	return session, nil
}

// GetUser validates a bearer token and returns its user.
// An empty token validates the visitor's own access token.
func (a *AuthClient) GetUser(ctx context.Context, token string) (*models.User, error) {
	if token == "" {
		a.mu.RLock()
		if a.session != nil {
			token = a.session.AccessToken
		}
		a.mu.RUnlock()
	}
	if token == "" {
		return nil, ErrNoSession
	}
	return a.client.GetUser(ctx, token)
}

// GetProfile loads the profile row of userID with the visitor's access token
func (a *AuthClient) GetProfile(ctx context.Context, userID string) (*models.Profile, error) {
	return a.client.GetProfile(ctx, a.accessToken(), userID)
}

// UpdateProfile changes the visitor's own profile row
func (a *AuthClient) UpdateProfile(ctx context.Context, userID string, update models.ProfileUpdate) (*models.Profile, error) {
	token := a.accessToken()
	if token == "" {
		return nil, ErrNoSession
	}
	return a.client.UpdateProfile(ctx, token, userID, update)
}

// OnAuthStateChange registers a listener and returns its unsubscribe function
func (a *AuthClient) OnAuthStateChange(listener AuthListener) func() {
	a.mu.Lock()
	id := a.nextID
	a.nextID++
	a.listeners[id] = listener
	a.mu.Unlock()

	return func() {
		a.mu.Lock()
		delete(a.listeners, id)
		a.mu.Unlock()
	}
}

func (a *AuthClient) accessToken() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.session == nil {
		return ""
	}
	return a.session.AccessToken
}

// store saves a fresh token set, filling expires_at from expires_in when missing
func (a *AuthClient) store(session models.AuthSession) *models.AuthSession {
	if session.ExpiresAt == 0 && session.ExpiresIn > 0 {
		session.ExpiresAt = a.client.now().Unix() + session.ExpiresIn
	}

	a.mu.Lock()
	a.session = &session
	a.mu.Unlock()

	copied := session
	return &copied
}

// emit notifies listeners outside the lock
func (a *AuthClient) emit(event models.AuthEvent, session *models.AuthSession) {
	a.mu.RLock()
	listeners := make([]AuthListener, 0, len(a.listeners))
	for _, listener := range a.listeners {
		listeners = append(listeners, listener)
	}
	a.mu.RUnlock()

	a.client.logger.Debug("auth state changed", zap.String("event", string(event)))

	for _, listener := range listeners {
		listener(event, session)
	}
}
