package session

import (
	"context"
	"sync"
	"time"

	"github.com/fahndung/backend/internal/models"
	"github.com/fahndung/backend/internal/supabase"
)

// fakeBackend is a hand-written in-memory Backend
type fakeBackend struct {
	mu sync.Mutex

	session    *models.AuthSession
	sessionErr error
	// gate, when set, holds GetSession until closed or the context is done
	gate chan struct{}

	profile    *models.Profile
	profileErr error
	signInErr  error
	refreshErr error

	calls     map[string]int
	listeners map[int]supabase.AuthListener
	nextID    int
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		calls:     make(map[string]int),
		listeners: make(map[int]supabase.AuthListener),
	}
}

func validAuthSession() *models.AuthSession {
	return &models.AuthSession{
		AccessToken:  "access-1",
		RefreshToken: "refresh-1",
		ExpiresAt:    time.Now().Add(time.Hour).Unix(),
		User:         models.User{ID: "user-1", Email: "user@example.com"},
	}
}

func (f *fakeBackend) setSession(s *models.AuthSession, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.session = s
	f.sessionErr = err
}

func (f *fakeBackend) setProfile(profile *models.Profile, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.profile = profile
	f.profileErr = err
}

func (f *fakeBackend) setGate(gate chan struct{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gate = gate
}

func (f *fakeBackend) count(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[method]
}

func (f *fakeBackend) resetCalls() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = make(map[string]int)
}

func (f *fakeBackend) listenerCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.listeners)
}

func (f *fakeBackend) GetSession(ctx context.Context) (*models.AuthSession, error) {
	f.mu.Lock()
	f.calls["GetSession"]++
	session, err, gate := f.session, f.sessionErr, f.gate
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, nil
	}
	copied := *session
	return &copied, nil
}

func (f *fakeBackend) SignInWithPassword(_ context.Context, email, _ string) (*models.AuthSession, error) {
	f.mu.Lock()
	f.calls["SignInWithPassword"]++
	if f.signInErr != nil {
		err := f.signInErr
		f.mu.Unlock()
		return nil, err
	}
	session := validAuthSession()
	session.User.Email = email
	f.session = session
	f.mu.Unlock()

	f.emit(models.AuthEventSignedIn, session)
	return session, nil
}

func (f *fakeBackend) SignOut(_ context.Context) error {
	f.mu.Lock()
	f.calls["SignOut"]++
	had := f.session != nil
	f.session = nil
	f.mu.Unlock()

	if had {
		f.emit(models.AuthEventSignedOut, nil)
	}
	return nil
}

func (f *fakeBackend) RefreshSession(_ context.Context) (*models.AuthSession, error) {
	f.mu.Lock()
	f.calls["RefreshSession"]++
	err := f.refreshErr
	f.mu.Unlock()

	if err != nil {
		return nil, err
	}
	session := validAuthSession()
	f.emit(models.AuthEventTokenRefreshed, session)
	return session, nil
}

func (f *fakeBackend) GetProfile(_ context.Context, userID string) (*models.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["GetProfile"]++
	if f.profileErr != nil {
		return nil, f.profileErr
	}
	if f.profile == nil {
		return &models.Profile{ID: userID, Email: "user@example.com", Name: "Test User", Role: models.RoleEditor}, nil
	}
	copied := *f.profile
	return &copied, nil
}

func (f *fakeBackend) UpdateProfile(_ context.Context, userID string, update models.ProfileUpdate) (*models.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["UpdateProfile"]++
	profile := &models.Profile{ID: userID, Email: "user@example.com", Role: models.RoleEditor}
	if update.Name != nil {
		profile.Name = *update.Name
	}
	profile.Department = update.Department
	profile.Phone = update.Phone
	return profile, nil
}

func (f *fakeBackend) OnAuthStateChange(listener supabase.AuthListener) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.nextID
	f.nextID++
	f.listeners[id] = listener
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		delete(f.listeners, id)
	}
}

func (f *fakeBackend) emit(event models.AuthEvent, session *models.AuthSession) {
	f.mu.Lock()
	listeners := make([]supabase.AuthListener, 0, len(f.listeners))
	for _, l := range f.listeners {
		listeners = append(listeners, l)
	}
	f.mu.Unlock()

	for _, l := range listeners {
		l(event, session)
	}
}

// fakeNavigator records navigations
type fakeNavigator struct {
	mu      sync.Mutex
	current string
	paths   []string
}

func (n *fakeNavigator) CurrentPath() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.current
}

func (n *fakeNavigator) Navigate(path string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.paths = append(n.paths, path)
}

func (n *fakeNavigator) navigations() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.paths...)
}
