package session

import (
	"context"
	"sync"
	"time"

	"github.com/fahndung/backend/internal/metrics"
	"github.com/fahndung/backend/internal/supabase"
	"go.uber.org/zap"
)

const forcedLogoutTimeout = 5 * time.Second

// Navigator moves a visitor to another view
type Navigator interface {
	// Method CurrentPath returns the path the visitor is currently on.
	CurrentPath() string
	// Method Navigate sends the visitor to path.
	Navigate(path string)
}

// TriageConfig holds the tunables of the error triage
type TriageConfig struct {
	// MaxErrorCount is the streak length that forces a logout
	MaxErrorCount int
	// LoginPath is where a forced logout sends the visitor
	LoginPath string
}

// Triage counts consecutive auth failures of one visitor and forces a logout
// once the streak reaches MaxErrorCount. The forced logout fires once until
// a success resets the streak.
type Triage struct {
	store  *Store
	nav    Navigator
	cfg    TriageConfig
	logger *zap.Logger

	mu        sync.Mutex
	count     int
	handled   bool
	lastError string

	unsubscribe func()
}

// NewTriage creates a triage observing store
func NewTriage(store *Store, nav Navigator, cfg TriageConfig, logger *zap.Logger) *Triage {
	if cfg.MaxErrorCount <= 0 {
		cfg.MaxErrorCount = 5
	}
	if cfg.LoginPath == "" {
		cfg.LoginPath = "/login"
	}

	t := &Triage{
		store:  store,
		nav:    nav,
		cfg:    cfg,
		logger: logger,
	}
	t.unsubscribe = store.Subscribe(t.observeState)

	return t
}

// Streak returns the current number of consecutive failures
func (t *Triage) Streak() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.count
}

// Tripped reports whether a forced logout happened since the last success
func (t *Triage) Tripped() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.handled
}

// ObserveFailure records a failed validation
func (t *Triage) ObserveFailure(ctx context.Context, err error) {
	t.mu.Lock()
	if t.handled {
		t.mu.Unlock()
		return
	}
	trip := t.incrementLocked()
	count := t.count
	t.mu.Unlock()

	t.logger.Debug("session validation failed", zap.Int("streak", count), zap.Error(err))
	if trip {
		t.forceLogout(ctx, "threshold")
	}
}

// ObserveSuccess records a successful validation and forgives all prior failures
func (t *Triage) ObserveSuccess() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.count = 0
	t.handled = false
	t.lastError = ""
}

// ReportError funnels a backend error seen outside the session check through the triage.
// A rejected token forces the logout at once. It reports whether a logout was forced.
func (t *Triage) ReportError(ctx context.Context, err error) bool {
	if supabase.KindOf(err) != supabase.KindUnauthorized {
		return false
	}

	t.mu.Lock()
	if t.handled {
		t.mu.Unlock()
		return false
	}
	t.handled = true
	t.mu.Unlock()

	t.forceLogout(ctx, "unauthorized")
	return true
}

// Close stops observing the store
func (t *Triage) Close() {
	if t.unsubscribe != nil {
		t.unsubscribe()
	}
}

// observeState counts each distinct store error once and treats a settled session as success
func (t *Triage) observeState(state State) {
	if state.Error != "" {
		t.mu.Lock()
		if t.handled || state.Error == t.lastError {
			t.mu.Unlock()
			return
		}
		t.lastError = state.Error
		trip := t.incrementLocked()
		t.mu.Unlock()

		if trip {
			t.forceLogout(context.Background(), "threshold")
		}
		return
	}

	if state.Settled() && state.Session != nil {
		t.ObserveSuccess()
	}
}

// incrementLocked bumps the streak and arms the one-shot guard at the threshold; t.mu must be held
func (t *Triage) incrementLocked() bool {
	t.count++
	if t.count < t.cfg.MaxErrorCount {
		return false
	}
	t.handled = true
	return true
}

func (t *Triage) forceLogout(ctx context.Context, reason string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), forcedLogoutTimeout)
	defer cancel()

	t.logger.Warn("forcing logout after auth failures", zap.String("reason", reason), zap.Int("streak", t.Streak()))
	metrics.ForcedLogoutsTotal.WithLabelValues(reason).Inc()

	if err := t.store.ClearAuth(ctx); err != nil {
		t.logger.Error("failed to clear auth during forced logout", zap.Error(err))
	}

	if t.nav.CurrentPath() != t.cfg.LoginPath {
		t.nav.Navigate(t.cfg.LoginPath)
	}
}
