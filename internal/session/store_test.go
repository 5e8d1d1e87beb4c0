package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/fahndung/backend/internal/models"
	"github.com/fahndung/backend/internal/supabase"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestStore(backend *fakeBackend, timeout time.Duration) *Store {
	return NewStore(backend, StoreConfig{SessionTimeout: timeout, MaxRetries: 1}, zap.NewNop())
}

func TestNewStore(t *testing.T) {
	backend := newFakeBackend()
	store := NewStore(backend, StoreConfig{}, zap.NewNop())

	state := store.State()
	assert.True(t, state.Loading)
	assert.False(t, state.Initialized)
	assert.Nil(t, state.Session)
	assert.Equal(t, 500*time.Millisecond, store.cfg.SessionTimeout)
	assert.Equal(t, 1, store.cfg.MaxRetries)
	assert.Equal(t, 1, backend.listenerCount())

	store.Close()
	assert.Equal(t, 0, backend.listenerCount())
}

func TestStore_CheckSession(t *testing.T) {
	expiredSession := validAuthSession()
	expiredSession.ExpiresAt = time.Now().Unix() - 1

	tests := []struct {
		name              string
		session           *models.AuthSession
		sessionErr        error
		profileErr        error
		expectedUser      bool
		expectedProfile   bool
		expectedCondition Condition
		expectedKind      supabase.Kind
		expectedFailures  int
		expectedSignOuts  int
		expectedProfiles  int
	}{
		{
			name:              "no session",
			expectedCondition: ConditionNoSession,
		},
		{
			name:             "valid session with profile",
			session:          validAuthSession(),
			expectedUser:     true,
			expectedProfile:  true,
			expectedProfiles: 1,
		},
		{
			name:              "expired session is cleared",
			session:           expiredSession,
			expectedCondition: ConditionExpired,
			expectedSignOuts:  1,
		},
		{
			name:              "profile hidden by policy keeps the user",
			session:           validAuthSession(),
			profileErr:        &supabase.Error{Kind: supabase.KindPolicyDenied, Status: 406, Message: "Not Acceptable"},
			expectedUser:      true,
			expectedCondition: ConditionProfileUnavailable,
			expectedProfiles:  1,
		},
		{
			name:              "any profile error keeps the user",
			session:           validAuthSession(),
			profileErr:        errors.New("connection reset"),
			expectedUser:      true,
			expectedCondition: ConditionProfileUnavailable,
			expectedProfiles:  1,
		},
		{
			name:              "unexpected backend error",
			sessionErr:        &supabase.Error{Kind: supabase.KindUnexpected, Message: "boom"},
			expectedCondition: ConditionBackendError,
			expectedKind:      supabase.KindUnexpected,
			expectedFailures:  1,
		},
		{
			name:              "backend timeout clears auth",
			sessionErr:        &supabase.Error{Kind: supabase.KindTimeout, Message: "gateway timeout"},
			expectedCondition: ConditionBackendError,
			expectedKind:      supabase.KindTimeout,
			expectedFailures:  1,
			expectedSignOuts:  1,
		},
		{
			name:              "rejected token clears auth",
			sessionErr:        &supabase.Error{Kind: supabase.KindUnauthorized, Status: 401, Message: "invalid JWT"},
			expectedCondition: ConditionBackendError,
			expectedKind:      supabase.KindUnauthorized,
			expectedFailures:  1,
			expectedSignOuts:  1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := newFakeBackend()
			backend.setSession(tt.session, tt.sessionErr)
			backend.profileErr = tt.profileErr
			store := newTestStore(backend, time.Second)

			store.CheckSession(context.Background(), false)

			state := store.State()
			assert.False(t, state.Loading)
			assert.True(t, state.Initialized)
			assert.Equal(t, tt.expectedCondition, state.Condition)
			assert.Equal(t, tt.expectedKind, state.ErrorKind)
			assert.Equal(t, tt.expectedKind != "", state.Error != "")
			assert.Equal(t, tt.expectedFailures, store.Failures())
			assert.Equal(t, tt.expectedSignOuts, backend.count("SignOut"))
			assert.Equal(t, tt.expectedProfiles, backend.count("GetProfile"))

			if !tt.expectedUser {
				assert.Nil(t, state.Session)
				assert.False(t, state.IsAuthenticated())
				return
			}
			require.NotNil(t, state.Session)
			assert.True(t, state.IsAuthenticated())
			assert.Equal(t, "user-1", state.Session.User.ID)
			assert.Equal(t, "user@example.com", state.Session.User.Email)
			if tt.expectedProfile {
				require.NotNil(t, state.Session.Profile)
				assert.Equal(t, models.RoleEditor, state.Session.Profile.Role)
			} else {
				assert.Nil(t, state.Session.Profile)
				assert.Equal(t, models.RoleUser, state.Session.Role())
			}
		})
	}
}

func TestStore_CheckSession_InFlightNoOp(t *testing.T) {
	backend := newFakeBackend()
	backend.setSession(validAuthSession(), nil)
	gate := make(chan struct{})
	backend.setGate(gate)
	store := newTestStore(backend, 5*time.Second)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		store.CheckSession(context.Background(), false)
	}()

	require.Eventually(t, func() bool { return backend.count("GetSession") == 1 }, time.Second, 5*time.Millisecond)
	assert.True(t, store.State().Loading)

	store.CheckSession(context.Background(), false)
	assert.Equal(t, 1, backend.count("GetSession"))

	close(gate)
	wg.Wait()

	state := store.State()
	assert.False(t, state.Loading)
	require.NotNil(t, state.Session)
	assert.Equal(t, 1, backend.count("GetSession"))
}

func TestStore_CheckSession_RetryCeiling(t *testing.T) {
	backend := newFakeBackend()
	backend.setSession(nil, &supabase.Error{Kind: supabase.KindUnexpected, Message: "boom"})
	store := newTestStore(backend, time.Second)

	store.CheckSession(context.Background(), false)
	assert.Equal(t, 1, backend.count("GetSession"))
	assert.Equal(t, 1, store.Failures())

	backend.setSession(validAuthSession(), nil)
	for i := 0; i < 3; i++ {
		store.CheckSession(context.Background(), false)
	}
	assert.Equal(t, 1, backend.count("GetSession"))

	state := store.State()
	assert.Nil(t, state.Session)
	assert.True(t, state.Initialized)
	assert.False(t, state.Loading)
	assert.Equal(t, ConditionRetriesExhausted, state.Condition)

	store.CheckSession(context.Background(), true)
	assert.Equal(t, 2, backend.count("GetSession"))
	assert.Equal(t, 0, store.Failures())
	require.NotNil(t, store.State().Session)
}

func TestStore_CheckSession_SlowBackendResolvesToNoSession(t *testing.T) {
	backend := newFakeBackend()
	backend.setSession(validAuthSession(), nil)
	backend.setGate(make(chan struct{}))
	store := newTestStore(backend, 50*time.Millisecond)

	start := time.Now()
	store.CheckSession(context.Background(), false)
	elapsed := time.Since(start)

	state := store.State()
	assert.GreaterOrEqual(t, elapsed, 50*time.Millisecond)
	assert.Less(t, elapsed, time.Second)
	assert.True(t, state.Initialized)
	assert.False(t, state.Loading)
	assert.Nil(t, state.Session)
	assert.Empty(t, state.Error)
	assert.Equal(t, ConditionNoSession, state.Condition)
	assert.Equal(t, 0, store.Failures())
}

func TestStore_CheckSession_CancelledContext(t *testing.T) {
	backend := newFakeBackend()
	backend.setGate(make(chan struct{}))
	store := newTestStore(backend, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	store.CheckSession(ctx, false)

	state := store.State()
	assert.True(t, state.Initialized)
	assert.Nil(t, state.Session)
	assert.NotEmpty(t, state.Error)
	assert.Equal(t, supabase.KindUnexpected, state.ErrorKind)
	assert.Equal(t, ConditionBackendError, state.Condition)
}

func TestStore_CheckSession_StaleResultDiscardedAfterLogout(t *testing.T) {
	backend := newFakeBackend()
	backend.setSession(validAuthSession(), nil)
	gate := make(chan struct{})
	backend.setGate(gate)
	store := newTestStore(backend, 5*time.Second)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		store.CheckSession(context.Background(), false)
	}()
	require.Eventually(t, func() bool { return backend.count("GetSession") == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, store.Logout(context.Background()))
	close(gate)
	wg.Wait()

	state := store.State()
	assert.Nil(t, state.Session)
	assert.True(t, state.Initialized)
	assert.False(t, state.Loading)
	assert.Equal(t, 1, backend.count("GetProfile"))
}

func TestStore_SignIn(t *testing.T) {
	backend := newFakeBackend()
	store := newTestStore(backend, time.Second)
	store.CheckSession(context.Background(), false)

	err := store.SignIn(context.Background(), "user@example.com", "secret")
	require.NoError(t, err)

	state := store.State()
	require.NotNil(t, state.Session)
	assert.Equal(t, models.User{ID: "user-1", Email: "user@example.com"}, state.Session.User)
	assert.Nil(t, state.Session.Profile)
	assert.True(t, state.Initialized)
	assert.False(t, state.Loading)
	assert.Equal(t, 0, backend.count("GetProfile"))

	store.CheckSession(context.Background(), false)

	state = store.State()
	require.NotNil(t, state.Session)
	require.NotNil(t, state.Session.Profile)
	assert.Equal(t, "Test User", state.Session.Profile.Name)
}

func TestStore_SignIn_Error(t *testing.T) {
	backend := newFakeBackend()
	backend.signInErr = &supabase.Error{Kind: supabase.KindUnauthorized, Message: "Invalid login credentials"}
	store := newTestStore(backend, time.Second)
	store.CheckSession(context.Background(), false)

	err := store.SignIn(context.Background(), "user@example.com", "wrong")
	assert.ErrorIs(t, err, supabase.ErrUnauthorized)
	assert.Nil(t, store.State().Session)
}

func TestStore_Logout(t *testing.T) {
	backend := newFakeBackend()
	backend.setSession(validAuthSession(), nil)
	store := newTestStore(backend, time.Second)
	store.CheckSession(context.Background(), false)
	require.NotNil(t, store.State().Session)

	require.NoError(t, store.Logout(context.Background()))

	state := store.State()
	assert.Equal(t, State{Initialized: true}, state)
	assert.Equal(t, 1, backend.count("SignOut"))
	assert.Equal(t, 0, store.Failures())
}

func TestStore_ClearAuthKeepsFailures(t *testing.T) {
	backend := newFakeBackend()
	backend.setSession(nil, &supabase.Error{Kind: supabase.KindUnexpected, Message: "boom"})
	store := newTestStore(backend, time.Second)
	store.CheckSession(context.Background(), false)

	require.NoError(t, store.ClearAuth(context.Background()))

	state := store.State()
	assert.Nil(t, state.Session)
	assert.Contains(t, state.Error, "boom")
	assert.Equal(t, 1, store.Failures())
	assert.Equal(t, 1, backend.count("SignOut"))
}

func TestStore_AuthEvents(t *testing.T) {
	tests := []struct {
		name            string
		event           models.AuthEvent
		session         *models.AuthSession
		expectedSession bool
		expectedChange  bool
	}{
		{name: "signed in", event: models.AuthEventSignedIn, session: validAuthSession(), expectedSession: true, expectedChange: true},
		{name: "signed out", event: models.AuthEventSignedOut, expectedChange: true},
		{name: "token refreshed is ignored", event: models.AuthEventTokenRefreshed, session: validAuthSession()},
		{name: "user updated is ignored", event: models.AuthEventUserUpdated, session: validAuthSession()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := newFakeBackend()
			backend.setSession(nil, &supabase.Error{Kind: supabase.KindUnexpected, Message: "boom"})
			store := newTestStore(backend, time.Second)
			store.CheckSession(context.Background(), false)
			before := store.State()

			backend.emit(tt.event, tt.session)

			state := store.State()
			if !tt.expectedChange {
				assert.Equal(t, before, state)
				assert.Equal(t, 1, store.Failures())
				return
			}
			assert.True(t, state.Initialized)
			assert.False(t, state.Loading)
			assert.Empty(t, state.Error)
			assert.Equal(t, 0, store.Failures())
			assert.Equal(t, tt.expectedSession, state.Session != nil)
		})
	}
}

func TestStore_UpdateProfile(t *testing.T) {
	backend := newFakeBackend()
	store := newTestStore(backend, time.Second)

	_, err := store.UpdateProfile(context.Background(), models.ProfileUpdate{})
	assert.ErrorIs(t, err, supabase.ErrNoSession)

	backend.setSession(validAuthSession(), nil)
	store.CheckSession(context.Background(), false)

	name := "Kommissarin Weber"
	profile, err := store.UpdateProfile(context.Background(), models.ProfileUpdate{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, name, profile.Name)

	state := store.State()
	require.NotNil(t, state.Session)
	require.NotNil(t, state.Session.Profile)
	assert.Equal(t, name, state.Session.Profile.Name)
}

func TestStore_RefreshProfile_RoleChange(t *testing.T) {
	backend := newFakeBackend()
	backend.setSession(validAuthSession(), nil)
	backend.setProfile(&models.Profile{ID: "user-1", Name: "Weber", Role: models.RoleAdmin}, nil)
	store := newTestStore(backend, time.Second)
	now := time.Now()
	store.now = func() time.Time { return now }

	store.CheckSession(context.Background(), false)
	require.Equal(t, models.RoleAdmin, store.State().Session.Profile.Role)

	backend.setProfile(&models.Profile{ID: "user-1", Name: "Weber", Role: models.RoleUser}, nil)
	backend.resetCalls()

	store.RefreshProfile(context.Background(), false)
	assert.Equal(t, 0, backend.count("GetProfile"))
	assert.Equal(t, models.RoleAdmin, store.State().Session.Profile.Role)

	now = now.Add(31 * time.Second)
	store.RefreshProfile(context.Background(), false)
	assert.Equal(t, 1, backend.count("GetProfile"))

	state := store.State()
	require.NotNil(t, state.Session)
	require.NotNil(t, state.Session.Profile)
	assert.Equal(t, models.RoleUser, state.Session.Profile.Role)
	assert.Equal(t, "user-1", state.Session.User.ID)
	assert.Equal(t, ConditionNone, state.Condition)
	assert.True(t, state.Settled())
}

func TestStore_RefreshProfile(t *testing.T) {
	tests := []struct {
		name              string
		signedIn          bool
		profile           *models.Profile
		profileErr        error
		expectedLoads     int
		expectedWrites    int
		expectedProfile   bool
		expectedCondition Condition
	}{
		{
			name:          "signed out never loads",
			expectedLoads: 0,
		},
		{
			name:            "unchanged profile is not written",
			signedIn:        true,
			expectedLoads:   1,
			expectedProfile: true,
		},
		{
			name:            "changed profile is written",
			signedIn:        true,
			profile:         &models.Profile{ID: "user-1", Name: "Neu", Role: models.RoleEditor},
			expectedLoads:   1,
			expectedWrites:  1,
			expectedProfile: true,
		},
		{
			name:              "failed load drops the profile",
			signedIn:          true,
			profileErr:        &supabase.Error{Kind: supabase.KindPolicyDenied, Message: "row hidden"},
			expectedLoads:     1,
			expectedWrites:    1,
			expectedCondition: ConditionProfileUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := newFakeBackend()
			if tt.signedIn {
				backend.setSession(validAuthSession(), nil)
			}
			store := newTestStore(backend, time.Second)
			store.CheckSession(context.Background(), false)
			backend.setProfile(tt.profile, tt.profileErr)
			backend.resetCalls()

			writes := 0
			store.Subscribe(func(State) { writes++ })

			store.RefreshProfile(context.Background(), true)

			state := store.State()
			assert.Equal(t, tt.expectedLoads, backend.count("GetProfile"))
			assert.Equal(t, tt.expectedWrites, writes)
			assert.Equal(t, tt.signedIn, state.IsAuthenticated())
			if tt.signedIn {
				assert.Equal(t, tt.expectedProfile, state.Session.Profile != nil)
				assert.Equal(t, tt.expectedCondition, state.Condition)
			}
			assert.Equal(t, 0, backend.count("SignOut"))
		})
	}
}

func TestStore_TokenRefreshMarksProfileStale(t *testing.T) {
	backend := newFakeBackend()
	backend.setSession(validAuthSession(), nil)
	store := newTestStore(backend, time.Second)
	store.CheckSession(context.Background(), false)

	backend.setProfile(&models.Profile{ID: "user-1", Role: models.RoleSuperAdmin}, nil)
	backend.resetCalls()

	store.RefreshProfile(context.Background(), false)
	assert.Equal(t, 0, backend.count("GetProfile"))

	backend.emit(models.AuthEventTokenRefreshed, validAuthSession())
	store.RefreshProfile(context.Background(), false)

	assert.Equal(t, 1, backend.count("GetProfile"))
	assert.Equal(t, models.RoleSuperAdmin, store.State().Session.Profile.Role)
}

func TestStore_Subscribe(t *testing.T) {
	backend := newFakeBackend()
	backend.setSession(validAuthSession(), nil)
	store := newTestStore(backend, time.Second)

	var mu sync.Mutex
	var seen []State
	unsubscribe := store.Subscribe(func(s State) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, s)
	})

	store.CheckSession(context.Background(), false)

	mu.Lock()
	require.Len(t, seen, 2)
	assert.True(t, seen[0].Loading)
	assert.False(t, seen[1].Loading)
	assert.NotNil(t, seen[1].Session)
	mu.Unlock()

	unsubscribe()
	store.CheckSession(context.Background(), true)

	mu.Lock()
	assert.Len(t, seen, 2)
	mu.Unlock()
}
