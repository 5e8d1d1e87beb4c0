package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/fahndung/backend/internal/metrics"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ErrSessionLost is observed when the backend has no session while the store still holds one
var ErrSessionLost = errors.New("session lost on backend")

// PollerConfig holds the intervals of the background tasks
type PollerConfig struct {
	PollInterval    time.Duration
	RefreshInterval time.Duration
}

// Poller keeps the session of one visitor fresh: it re-validates on an interval,
// refreshes tokens on a longer interval and re-validates when the visitor returns.
type Poller struct {
	backend Backend
	store   *Store
	triage  *Triage
	cfg     PollerConfig
	logger  *zap.Logger
	now     func() time.Time

	mu      sync.Mutex
	visible bool
	cancel  context.CancelFunc
	group   *errgroup.Group
}

// NewPoller creates a stopped poller
func NewPoller(backend Backend, store *Store, triage *Triage, cfg PollerConfig, logger *zap.Logger) *Poller {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 2 * time.Minute
	}
	if cfg.RefreshInterval <= 0 {
		cfg.RefreshInterval = 30 * time.Minute
	}

	return &Poller{
		backend: backend,
		store:   store,
		triage:  triage,
		cfg:     cfg,
		logger:  logger,
		now:     time.Now,
		visible: true,
	}
}

// Start launches the validation and refresh tasks. They run until ctx is done or Stop is called.
func (p *Poller) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		p.every(groupCtx, p.cfg.PollInterval, func(ctx context.Context) {
			p.validate(ctx, "interval")
		})
		return nil
	})
	group.Go(func() error {
		p.every(groupCtx, p.cfg.RefreshInterval, p.RefreshOnce)
		return nil
	})

	p.cancel = cancel
	p.group = group
}

// Stop cancels the tasks and waits for them to return
func (p *Poller) Stop() {
	p.mu.Lock()
	cancel, group := p.cancel, p.group
	p.cancel, p.group = nil, nil
	p.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	_ = group.Wait()
}

// PollOnce runs one interval validation
func (p *Poller) PollOnce(ctx context.Context) {
	p.validate(ctx, "interval")
}

// RefreshOnce asks the backend for a new token set when the store holds a session
func (p *Poller) RefreshOnce(ctx context.Context) {
	if !p.store.State().IsAuthenticated() {
		metrics.SessionRefreshesTotal.WithLabelValues("skipped").Inc()
		return
	}

	if _, err := p.backend.RefreshSession(ctx); err != nil {
		p.logger.Warn("proactive token refresh failed", zap.Error(err))
		metrics.SessionRefreshesTotal.WithLabelValues("failure").Inc()
		return
	}

	p.logger.Debug("token refreshed")
	metrics.SessionRefreshesTotal.WithLabelValues("success").Inc()
}

// SetVisible records the visibility of the visitor's view. Becoming visible again with a
// session runs one immediate validation; it reports whether that happened.
func (p *Poller) SetVisible(ctx context.Context, visible bool) bool {
	p.mu.Lock()
	wasVisible := p.visible
	p.visible = visible
	p.mu.Unlock()

	if !visible || wasVisible {
		return false
	}
	if !p.store.State().IsAuthenticated() {
		return false
	}

	p.validate(ctx, "visibility")
	return true
}

// validate compares the backend session with the store and feeds the result to the triage.
// A lost session is only counted, never cleared here. An expired session is handed to
// CheckSession, which clears it. A live session reloads the profile.
func (p *Poller) validate(ctx context.Context, trigger string) {
	state := p.store.State()
	if !state.Initialized {
		metrics.SessionPollsTotal.WithLabelValues(trigger, "skipped").Inc()
		return
	}

	authSession, err := p.backend.GetSession(ctx)
	switch {
	case err != nil:
		p.logger.Warn("session validation failed", zap.String("trigger", trigger), zap.Error(err))
		p.triage.ObserveFailure(ctx, err)
		metrics.SessionPollsTotal.WithLabelValues(trigger, "failure").Inc()
	case authSession == nil:
		if state.IsAuthenticated() {
			p.logger.Warn("session missing on backend", zap.String("trigger", trigger))
			p.triage.ObserveFailure(ctx, ErrSessionLost)
			metrics.SessionPollsTotal.WithLabelValues(trigger, "lost").Inc()
			return
		}
		metrics.SessionPollsTotal.WithLabelValues(trigger, "signed_out").Inc()
	case authSession.Expired(p.now()):
		p.logger.Info("session expired on backend", zap.String("trigger", trigger), zap.String("user_id", authSession.User.ID))
		metrics.SessionPollsTotal.WithLabelValues(trigger, "expired").Inc()
		p.store.CheckSession(ctx, true)
	default:
		p.triage.ObserveSuccess()
		metrics.SessionPollsTotal.WithLabelValues(trigger, "success").Inc()
		p.store.RefreshProfile(ctx, true)
	}
}

func (p *Poller) every(ctx context.Context, interval time.Duration, fn func(context.Context)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fn(ctx)
		}
	}
}
