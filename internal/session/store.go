// Package session holds the per-visitor session lifecycle: the session store, the poller
// that keeps it fresh, and the error triage that turns sustained failures into a logout.
package session

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"time"

	"github.com/fahndung/backend/internal/metrics"
	"github.com/fahndung/backend/internal/models"
	"github.com/fahndung/backend/internal/supabase"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Backend is the identity and profile service as seen by one visitor
type Backend interface {
	// Method GetSession returns the current auth session or nil when signed out.
	//
	// The returned session may be expired; callers check ExpiresAt themselves.
	GetSession(ctx context.Context) (*models.AuthSession, error)
	// Method SignInWithPassword signs the visitor in and emits SIGNED_IN to registered listeners.
	SignInWithPassword(ctx context.Context, email, password string) (*models.AuthSession, error)
	// Method SignOut clears the auth session locally and remotely.
	//
	// The local session is gone even when an error is returned.
	SignOut(ctx context.Context) error
	// Method RefreshSession exchanges the refresh token for a new token set.
	RefreshSession(ctx context.Context) (*models.AuthSession, error)
	// Method GetProfile loads the profile row of a user.
	//
	// A row hidden by access policy is reported as an error of kind supabase.KindPolicyDenied.
	GetProfile(ctx context.Context, userID string) (*models.Profile, error)
	// Method UpdateProfile changes the visitor's own profile row and returns the stored row.
	UpdateProfile(ctx context.Context, userID string, update models.ProfileUpdate) (*models.Profile, error)
	// Method OnAuthStateChange registers a listener for auth-state events and returns its unsubscribe function.
	OnAuthStateChange(listener supabase.AuthListener) func()
}

// Condition explains why the last settled state looks the way it does
type Condition string

const (
	ConditionNone               Condition = ""
	ConditionNoSession          Condition = "no_session"
	ConditionExpired            Condition = "expired"
	ConditionProfileUnavailable Condition = "profile_unavailable"
	ConditionRetriesExhausted   Condition = "retries_exhausted"
	ConditionBackendError       Condition = "backend_error"
)

// State is an immutable snapshot of the store
type State struct {
	Session     *models.Session `json:"session"`
	Loading     bool            `json:"loading"`
	Initialized bool            `json:"initialized"`
	Error       string          `json:"error,omitempty"`
	ErrorKind   supabase.Kind   `json:"error_kind,omitempty"`
	Condition   Condition       `json:"condition,omitempty"`
}

// IsAuthenticated reports whether the store holds a session, with or without profile
func (s State) IsAuthenticated() bool {
	return s.Session != nil
}

// Settled reports whether dependent views may act on the state
func (s State) Settled() bool {
	return s.Initialized && !s.Loading
}

// StoreConfig holds the tunables of CheckSession
type StoreConfig struct {
	// SessionTimeout bounds how long CheckSession waits for the backend session
	SessionTimeout time.Duration
	// MaxRetries is the number of consecutive failures after which non-forced checks stop calling the backend
	MaxRetries int
	// ProfileMaxAge is how long a loaded profile is trusted before RefreshProfile reloads it
	ProfileMaxAge time.Duration
}

// Store holds the session of one visitor. Every write replaces the whole state.
type Store struct {
	backend Backend
	cfg     StoreConfig
	logger  *zap.Logger
	now     func() time.Time

	mu        sync.Mutex
	state     State
	inFlight  int
	failures  int
	epoch     uint64
	selfClear int
	listeners map[int]func(State)
	nextID    int

	// profileCheckedAt is the last profile load attempt; zero marks the profile stale
	profileCheckedAt time.Time
	profileLoads    singleflight.Group

	unsubscribe func()
}

// NewStore creates a store in its initial loading state and subscribes to backend auth events
func NewStore(backend Backend, cfg StoreConfig, logger *zap.Logger) *Store {
	if cfg.SessionTimeout <= 0 {
		cfg.SessionTimeout = 500 * time.Millisecond
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 1
	}
	if cfg.ProfileMaxAge <= 0 {
		cfg.ProfileMaxAge = 30 * time.Second
	}

	s := &Store{
		backend:   backend,
		cfg:       cfg,
		logger:    logger,
		now:       time.Now,
		state:     State{Loading: true},
		listeners: make(map[int]func(State)),
	}
	s.unsubscribe = backend.OnAuthStateChange(s.handleAuthEvent)

	return s
}

// State returns the current snapshot
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Failures returns the number of consecutive failed checks
func (s *Store) Failures() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failures
}

// Subscribe registers fn for every future state write and returns its unsubscribe function.
// fn runs on the writing goroutine after the store lock is released.
func (s *Store) Subscribe(fn func(State)) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

// checkResult is the outcome of one check before it is written
type checkResult struct {
	session   *models.Session
	err       error
	condition Condition
	// success resets the failure counter, failure increments it
	success bool
	failure bool
}

// CheckSession determines the current session and writes it to the store.
//
// A non-forced call is a no-op while another check is running, and short-circuits to
// "no session" once MaxRetries consecutive checks have failed. The backend session is
// awaited at most SessionTimeout; a slower backend is treated as "no session".
// Results of a check overtaken by a newer check, a sign-in or a logout are discarded.
func (s *Store) CheckSession(ctx context.Context, force bool) {
	s.mu.Lock()
	if s.inFlight > 0 && !force {
		s.mu.Unlock()
		metrics.SessionChecksTotal.WithLabelValues("skipped").Inc()
		return
	}

	if s.failures >= s.cfg.MaxRetries && !force {
		s.epoch++
		next := s.state
		next.Session = nil
		next.Loading = false
		next.Initialized = true
		next.Condition = ConditionRetriesExhausted
		listeners := s.writeLocked(next)
		s.mu.Unlock()
		s.notify(next, listeners)
		metrics.SessionChecksTotal.WithLabelValues("short_circuit").Inc()
		return
	}

	s.epoch++
	epoch := s.epoch
	s.inFlight++
	next := s.state
	next.Loading = true
	next.Error = ""
	next.ErrorKind = ""
	listeners := s.writeLocked(next)
	s.mu.Unlock()
	s.notify(next, listeners)

	result := s.runCheck(ctx)

	s.mu.Lock()
	s.inFlight--
	if epoch != s.epoch {
		s.mu.Unlock()
		s.logger.Debug("discarding stale session check", zap.Uint64("epoch", epoch))
		metrics.SessionChecksTotal.WithLabelValues("stale").Inc()
		return
	}
	if result.success {
		s.failures = 0
	}
	if result.failure {
		s.failures++
	}

	s.profileCheckedAt = time.Time{}
	if result.session != nil {
		s.profileCheckedAt = s.now()
	}

	next = s.state
	next.Session = result.session
	next.Loading = false
	next.Initialized = true
	next.Condition = result.condition
	if result.err != nil {
		next.Error = result.err.Error()
		next.ErrorKind = supabase.KindOf(result.err)
	}
	listeners = s.writeLocked(next)
	s.mu.Unlock()
	s.notify(next, listeners)

	metrics.SessionChecksTotal.WithLabelValues(checkLabel(result)).Inc()
}

func checkLabel(result checkResult) string {
	switch {
	case result.err != nil:
		return "error"
	case result.session == nil:
		return "no_session"
	case result.condition == ConditionProfileUnavailable:
		return "degraded"
	default:
		return "authenticated"
	}
}

// runCheck performs the backend calls of one check without touching the state
func (s *Store) runCheck(ctx context.Context) checkResult {
	authSession, err := s.fetchSession(ctx)
	if err != nil {
		kind := supabase.KindOf(err)
		s.logger.Warn("session check failed", zap.String("kind", string(kind)), zap.Error(err))
		// Timeouts and rejected tokens leave the backend in an unknown state
		if kind == supabase.KindTimeout || kind == supabase.KindUnauthorized {
			s.clearBackend(ctx)
		}
		return checkResult{err: err, condition: ConditionBackendError, failure: true}
	}

	if authSession == nil {
		return checkResult{condition: ConditionNoSession}
	}

	if authSession.Expired(s.now()) {
		s.logger.Info("session expired", zap.String("user_id", authSession.User.ID))
		s.clearBackend(ctx)
		return checkResult{condition: ConditionExpired}
	}

	user := authSession.User
	profile, err := s.backend.GetProfile(ctx, user.ID)
	if err != nil {
		// A missing or unreadable profile never locks out a valid identity
		s.logger.Warn("profile unavailable, continuing without profile",
			zap.String("user_id", user.ID),
			zap.String("kind", string(supabase.KindOf(err))),
			zap.Error(err),
		)
		return checkResult{
			session:   &models.Session{User: user},
			condition: ConditionProfileUnavailable,
			success:   true,
		}
	}

	return checkResult{
		session: &models.Session{User: user, Profile: profile},
		success: true,
	}
}

// fetchSession races the backend against SessionTimeout; losing the race means "no session"
func (s *Store) fetchSession(ctx context.Context) (*models.AuthSession, error) {
	raceCtx, cancel := context.WithTimeout(ctx, s.cfg.SessionTimeout)
	defer cancel()

	type fetched struct {
		session *models.AuthSession
		err     error
	}
	done := make(chan fetched, 1)
	go func() {
		session, err := s.backend.GetSession(raceCtx)
		done <- fetched{session: session, err: err}
	}()

	select {
	case r := <-done:
		// A backend that gave up because our race timer fired lost the race as well
		if r.err != nil && raceCtx.Err() != nil && ctx.Err() == nil {
			return nil, nil
		}
		return r.session, r.err
	case <-raceCtx.Done():
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("session check cancelled: %w", err)
		}
		s.logger.Debug("session fetch timed out, treating as signed out", zap.Duration("timeout", s.cfg.SessionTimeout))
		return nil, nil
	}
}

// SignIn signs in with email and password. The SIGNED_IN event sets the session
// without profile; the profile arrives with the next CheckSession.
func (s *Store) SignIn(ctx context.Context, email, password string) error {
	if _, err := s.backend.SignInWithPassword(ctx, email, password); err != nil {
		return err
	}
	return nil
}

// Logout clears the backend auth state and resets the store to a settled, signed-out state
func (s *Store) Logout(ctx context.Context) error {
	err := s.clearBackend(ctx)

	s.mu.Lock()
	s.epoch++
	s.failures = 0
	next := State{Initialized: true}
	listeners := s.writeLocked(next)
	s.mu.Unlock()
	s.notify(next, listeners)

	return err
}

// ClearAuth drops the session after a sustained failure pattern. Unlike Logout the
// failure counter and last error survive, so the retry ceiling keeps applying.
func (s *Store) ClearAuth(ctx context.Context) error {
	err := s.clearBackend(ctx)

	s.mu.Lock()
	s.epoch++
	next := s.state
	next.Session = nil
	next.Loading = false
	next.Initialized = true
	listeners := s.writeLocked(next)
	s.mu.Unlock()
	s.notify(next, listeners)

	return err
}

// UpdateProfile changes the signed-in user's profile and stores the result in the session
func (s *Store) UpdateProfile(ctx context.Context, update models.ProfileUpdate) (*models.Profile, error) {
	current := s.State().Session
	if current == nil {
		return nil, supabase.ErrNoSession
	}

	profile, err := s.backend.UpdateProfile(ctx, current.User.ID, update)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if s.state.Session == nil || s.state.Session.User.ID != current.User.ID {
		s.mu.Unlock()
		return profile, nil
	}
	s.profileCheckedAt = s.now()
	next := s.state
	next.Session = &models.Session{User: current.User, Profile: profile}
	next.Condition = ConditionNone
	listeners := s.writeLocked(next)
	s.mu.Unlock()
	s.notify(next, listeners)

	return profile, nil
}

// RefreshProfile reloads the profile of the signed-in user once it is older than
// ProfileMaxAge, or always when forced, so a changed role applies without a new sign-in.
// A failed load drops the profile like CheckSession does. Concurrent calls share one load.
func (s *Store) RefreshProfile(ctx context.Context, force bool) {
	s.mu.Lock()
	if s.state.Session == nil || !s.state.Settled() {
		s.mu.Unlock()
		return
	}
	if !force && !s.profileCheckedAt.IsZero() && s.now().Sub(s.profileCheckedAt) < s.cfg.ProfileMaxAge {
		s.mu.Unlock()
		return
	}
	epoch := s.epoch
	user := s.state.Session.User
	s.mu.Unlock()

	_, _, _ = s.profileLoads.Do(user.ID, func() (any, error) {
		s.loadProfile(ctx, epoch, user)
		return nil, nil
	})
}

func (s *Store) loadProfile(ctx context.Context, epoch uint64, user models.User) {
	profile, err := s.backend.GetProfile(ctx, user.ID)
	if err != nil && ctx.Err() != nil {
		return
	}

	s.mu.Lock()
	current := s.state.Session
	if epoch != s.epoch || current == nil || current.User.ID != user.ID {
		s.mu.Unlock()
		s.logger.Debug("discarding stale profile reload", zap.String("user_id", user.ID))
		return
	}

	s.profileCheckedAt = s.now()
	next := s.state
	next.Condition = ConditionNone
	if err != nil {
		profile = nil
		next.Condition = ConditionProfileUnavailable
	}

	if reflect.DeepEqual(current.Profile, profile) && next.Condition == s.state.Condition {
		s.mu.Unlock()
		metrics.SessionChecksTotal.WithLabelValues("profile_unchanged").Inc()
		return
	}

	next.Session = &models.Session{User: current.User, Profile: profile}
	listeners := s.writeLocked(next)
	s.mu.Unlock()

	if err != nil {
		s.logger.Warn("profile reload failed, continuing without profile",
			zap.String("user_id", user.ID),
			zap.String("kind", string(supabase.KindOf(err))),
			zap.Error(err),
		)
		metrics.SessionChecksTotal.WithLabelValues("degraded").Inc()
	} else {
		if current.Profile == nil || current.Profile.Role != profile.Role {
			s.logger.Info("profile role changed", zap.String("user_id", user.ID), zap.Stringer("role", profile.Role))
		}
		metrics.SessionChecksTotal.WithLabelValues("profile_reloaded").Inc()
	}
	s.notify(next, listeners)
}

// Close detaches the store from backend events
func (s *Store) Close() {
	if s.unsubscribe != nil {
		s.unsubscribe()
	}
}

// clearBackend signs out on the backend; the resulting SIGNED_OUT event is not applied twice
func (s *Store) clearBackend(ctx context.Context) error {
	s.mu.Lock()
	s.selfClear++
	s.mu.Unlock()

	err := s.backend.SignOut(ctx)

	s.mu.Lock()
	s.selfClear--
	s.mu.Unlock()

	if err != nil && !errors.Is(err, supabase.ErrNoSession) {
		s.logger.Warn("failed to clear backend session", zap.Error(err))
		return fmt.Errorf("failed to clear auth session: %w", err)
	}
	return nil
}

// handleAuthEvent applies SIGNED_IN and SIGNED_OUT. TOKEN_REFRESHED only marks the
// profile stale; other events leave the state alone.
func (s *Store) handleAuthEvent(event models.AuthEvent, authSession *models.AuthSession) {
	s.mu.Lock()
	var next State
	switch {
	case event == models.AuthEventTokenRefreshed:
		s.profileCheckedAt = time.Time{}
		s.mu.Unlock()
		return
	case event == models.AuthEventSignedOut && s.selfClear == 0:
		next = State{Initialized: true}
	case event == models.AuthEventSignedIn && authSession != nil:
		next = State{
			Session:     &models.Session{User: authSession.User},
			Initialized: true,
		}
	default:
		s.mu.Unlock()
		return
	}
	s.epoch++
	s.failures = 0
	s.profileCheckedAt = time.Time{}
	listeners := s.writeLocked(next)
	s.mu.Unlock()

	s.logger.Debug("auth event applied", zap.String("event", string(event)))
	s.notify(next, listeners)
}

// writeLocked replaces the state and returns the listeners to notify; s.mu must be held
func (s *Store) writeLocked(next State) []func(State) {
	s.state = next
	listeners := make([]func(State), 0, len(s.listeners))
	for _, fn := range s.listeners {
		listeners = append(listeners, fn)
	}
	return listeners
}

func (s *Store) notify(state State, listeners []func(State)) {
	for _, fn := range listeners {
		fn(state)
	}
}
