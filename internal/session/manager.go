package session

import (
	"context"
	"sync"
	"time"

	"github.com/fahndung/backend/internal/metrics"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Visitor is one cookie-identified client with its own session lifecycle
type Visitor struct {
	ID     string
	Store  *Store
	Poller *Poller
	Triage *Triage

	mu          sync.Mutex
	currentPath string
	pendingNav  string
	lastSeen    time.Time

	cancel context.CancelFunc
}

// CurrentPath returns the path of the visitor's latest request
func (v *Visitor) CurrentPath() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.currentPath
}

// Navigate queues a navigation that is applied on the visitor's next request
func (v *Visitor) Navigate(path string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.pendingNav = path
}

// TakeNavigation returns and clears the queued navigation
func (v *Visitor) TakeNavigation() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	path := v.pendingNav
	v.pendingNav = ""
	return path
}

// Touch records a request. A non-empty path becomes the visitor's current view.
func (v *Visitor) Touch(path string, now time.Time) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if path != "" {
		v.currentPath = path
	}
	v.lastSeen = now
}

// LastSeen returns the time of the visitor's latest request
func (v *Visitor) LastSeen() time.Time {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.lastSeen
}

func (v *Visitor) authenticated() bool {
	return v.Store != nil && v.Store.State().IsAuthenticated()
}

func (v *Visitor) close() {
	if v.cancel != nil {
		v.cancel()
	}
	v.Poller.Stop()
	v.Triage.Close()
	v.Store.Close()
}

// BackendFactory creates the backend of a new visitor
type BackendFactory func() Backend

// ManagerConfig holds the tunables of every visitor
type ManagerConfig struct {
	Store  StoreConfig
	Poller PollerConfig
	Triage TriageConfig
	// VisitorTTL is the idle time after which a signed-in visitor is evicted
	VisitorTTL time.Duration
	// AnonymousTTL is the idle time after which a visitor without session is evicted
	AnonymousTTL time.Duration
	// MaxVisitors caps the registry; creating one more evicts the least recently seen visitor
	MaxVisitors int
	// CleanupInterval is how often idle visitors are looked for
	CleanupInterval time.Duration
}

// Manager owns all visitors of the process
type Manager struct {
	factory BackendFactory
	cfg     ManagerConfig
	logger  *zap.Logger
	now     func() time.Time

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.RWMutex
	visitors map[string]*Visitor

	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewManager creates a manager. Call Start to evict idle visitors and Close on shutdown.
func NewManager(factory BackendFactory, cfg ManagerConfig, logger *zap.Logger) *Manager {
	if cfg.VisitorTTL <= 0 {
		cfg.VisitorTTL = 24 * time.Hour
	}
	if cfg.AnonymousTTL <= 0 {
		cfg.AnonymousTTL = 15 * time.Minute
	}
	if cfg.MaxVisitors <= 0 {
		cfg.MaxVisitors = 10000
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = time.Minute
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Manager{
		factory:  factory,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
		ctx:      ctx,
		cancel:   cancel,
		visitors: make(map[string]*Visitor),
		stopChan: make(chan struct{}),
	}
}

// Get returns the visitor with id
func (m *Manager) Get(id string) (*Visitor, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.visitors[id]
	return v, ok
}

// Create registers a new visitor and runs its initial session check in the background.
// The poller starts once the visitor holds a session. At MaxVisitors the least recently
// seen visitor is evicted first, preferring visitors without session.
func (m *Manager) Create() *Visitor {
	backend := m.factory()
	store := NewStore(backend, m.cfg.Store, m.logger)
	ctx, cancel := context.WithCancel(m.ctx)

	v := &Visitor{
		ID:       uuid.New().String(),
		Store:    store,
		lastSeen: m.now(),
		cancel:   cancel,
	}
	v.Triage = NewTriage(store, v, m.cfg.Triage, m.logger)
	v.Poller = NewPoller(backend, store, v.Triage, m.cfg.Poller, m.logger)
	store.Subscribe(func(state State) {
		if state.IsAuthenticated() {
			v.Poller.Start(ctx)
		}
	})

	m.mu.Lock()
	var evicted *Visitor
	if len(m.visitors) >= m.cfg.MaxVisitors {
		evicted = m.oldestLocked()
		delete(m.visitors, evicted.ID)
	}
	m.visitors[v.ID] = v
	m.mu.Unlock()
	metrics.ActiveVisitors.Inc()

	if evicted != nil {
		evicted.close()
		metrics.ActiveVisitors.Dec()
		m.logger.Warn("visitor limit reached, evicted least recently seen visitor",
			zap.Int("max_visitors", m.cfg.MaxVisitors),
			zap.String("visitor_id", evicted.ID),
		)
	}

	go store.CheckSession(ctx, false)

	m.logger.Debug("visitor created", zap.String("visitor_id", v.ID))
	return v
}

// oldestLocked returns the least recently seen visitor, preferring one without session; m.mu must be held
func (m *Manager) oldestLocked() *Visitor {
	var oldest *Visitor
	oldestAuthenticated := true
	for _, v := range m.visitors {
		authenticated := v.authenticated()
		switch {
		case oldest == nil,
			oldestAuthenticated && !authenticated,
			authenticated == oldestAuthenticated && v.LastSeen().Before(oldest.LastSeen()):
			oldest = v
			oldestAuthenticated = authenticated
		}
	}
	return oldest
}

// Remove stops and forgets the visitor with id
func (m *Manager) Remove(id string) {
	m.mu.Lock()
	v, ok := m.visitors[id]
	delete(m.visitors, id)
	m.mu.Unlock()

	if ok {
		v.close()
		metrics.ActiveVisitors.Dec()
	}
}

// Len returns the number of live visitors
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.visitors)
}

// Start begins the periodic eviction of idle visitors
func (m *Manager) Start() {
	m.wg.Add(1)
	go m.cleanupLoop()
	m.logger.Info("visitor manager started",
		zap.Duration("visitor_ttl", m.cfg.VisitorTTL),
		zap.Duration("anonymous_ttl", m.cfg.AnonymousTTL),
		zap.Int("max_visitors", m.cfg.MaxVisitors),
		zap.Duration("cleanup_interval", m.cfg.CleanupInterval),
	)
}

// Close stops the eviction loop and all visitors
func (m *Manager) Close() {
	m.stopOnce.Do(func() {
		close(m.stopChan)
	})
	m.wg.Wait()
	m.cancel()

	m.mu.Lock()
	visitors := m.visitors
	m.visitors = make(map[string]*Visitor)
	m.mu.Unlock()

	for _, v := range visitors {
		v.close()
		metrics.ActiveVisitors.Dec()
	}
	m.logger.Info("visitor manager stopped", zap.Int("visitors", len(visitors)))
}

func (m *Manager) cleanupLoop() {
	defer m.wg.Done()

	ticker := time.NewTicker(m.cfg.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.evictIdle()
		case <-m.stopChan:
			return
		}
	}
}

// evictIdle removes visitors idle longer than their TTL and returns how many were removed.
// Visitors with a session get VisitorTTL, all others AnonymousTTL.
func (m *Manager) evictIdle() int {
	now := m.now()
	cutoff := now.Add(-m.cfg.VisitorTTL)
	anonymousCutoff := now.Add(-m.cfg.AnonymousTTL)

	m.mu.Lock()
	var idle []*Visitor
	for id, v := range m.visitors {
		limit := cutoff
		if !v.authenticated() {
			limit = anonymousCutoff
		}
		if v.LastSeen().Before(limit) {
			idle = append(idle, v)
			delete(m.visitors, id)
		}
	}
	m.mu.Unlock()

	for _, v := range idle {
		v.close()
		metrics.ActiveVisitors.Dec()
	}
	if len(idle) > 0 {
		m.logger.Info("evicted idle visitors", zap.Int("count", len(idle)))
	}
	return len(idle)
}
