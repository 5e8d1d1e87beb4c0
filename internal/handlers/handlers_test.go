package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/fahndung/backend/internal/models"
	"github.com/fahndung/backend/internal/session"
	"github.com/fahndung/backend/internal/supabase"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testUserID = "user-1"

// fakeBackend is an in-memory identity backend for one visitor
type fakeBackend struct {
	mu sync.Mutex

	session   *models.AuthSession
	profile   *models.Profile
	signInErr error
	updateErr error
	signOuts  int
}

func signedInBackend(role models.Role) *fakeBackend {
	b := &fakeBackend{session: validAuthSession()}
	if role != 0 {
		b.profile = &models.Profile{ID: testUserID, Email: "user@polizei.example", Name: "Erika Muster", Role: role}
	}
	return b
}

func validAuthSession() *models.AuthSession {
	return &models.AuthSession{
		AccessToken:  "access-1",
		RefreshToken: "refresh-1",
		ExpiresAt:    time.Now().Add(time.Hour).Unix(),
		User:         models.User{ID: testUserID, Email: "user@polizei.example"},
	}
}

func (b *fakeBackend) GetSession(ctx context.Context) (*models.AuthSession, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.session, nil
}

func (b *fakeBackend) SignInWithPassword(ctx context.Context, email, password string) (*models.AuthSession, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.signInErr != nil {
		return nil, b.signInErr
	}
	b.session = validAuthSession()
	return b.session, nil
}

func (b *fakeBackend) SignOut(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.session = nil
	b.signOuts++
	return nil
}

func (b *fakeBackend) RefreshSession(ctx context.Context) (*models.AuthSession, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.session, nil
}

func (b *fakeBackend) GetProfile(ctx context.Context, userID string) (*models.Profile, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.profile == nil {
		return nil, &supabase.Error{Kind: supabase.KindPolicyDenied, Status: http.StatusNotAcceptable}
	}
	profile := *b.profile
	return &profile, nil
}

func (b *fakeBackend) UpdateProfile(ctx context.Context, userID string, update models.ProfileUpdate) (*models.Profile, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.updateErr != nil {
		return nil, b.updateErr
	}
	profile := models.Profile{ID: userID, Role: models.RoleUser}
	if b.profile != nil {
		profile = *b.profile
	}
	if update.Name != nil {
		profile.Name = *update.Name
	}
	if update.Department != nil {
		profile.Department = update.Department
	}
	if update.Phone != nil {
		profile.Phone = update.Phone
	}
	b.profile = &profile
	return &profile, nil
}

func (b *fakeBackend) OnAuthStateChange(listener supabase.AuthListener) func() {
	return func() {}
}

func (b *fakeBackend) signOutCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.signOuts
}

// newTestVisitor wires a visitor around backend without starting its poller.
// With settle the session is checked once so the state is initialized.
func newTestVisitor(t *testing.T, backend *fakeBackend, settle bool) *session.Visitor {
	t.Helper()
	logger := zap.NewNop()

	store := session.NewStore(backend, session.StoreConfig{SessionTimeout: time.Second, MaxRetries: 3}, logger)
	v := &session.Visitor{ID: "visitor-1", Store: store}
	v.Triage = session.NewTriage(store, v, session.TriageConfig{MaxErrorCount: 3, LoginPath: "/login"}, logger)
	v.Poller = session.NewPoller(backend, store, v.Triage, session.PollerConfig{}, logger)
	t.Cleanup(func() {
		v.Triage.Close()
		v.Store.Close()
	})

	if settle {
		store.CheckSession(context.Background(), true)
		require.True(t, store.State().Settled())
	}
	return v
}

// injectVisitor puts v into every request context, standing in for the visitor middleware
func injectVisitor(v *session.Visitor) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if v != nil {
				r = r.WithContext(session.WithVisitor(r.Context(), v))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// newAPIRouter scopes register to /api/v1 behind the visitor injection
func newAPIRouter(v *session.Visitor, register func(r chi.Router)) chi.Router {
	r := chi.NewRouter()
	r.Use(injectVisitor(v))
	r.Route("/api/v1", register)
	return r
}

func doRequest(t *testing.T, handler http.Handler, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}
