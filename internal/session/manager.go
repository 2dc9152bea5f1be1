// Package session keeps the registry of live simulations. Each session owns
// one engine and the driver goroutine stepping it.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/san-kum/spacesim/internal/dynamo"
	"github.com/san-kum/spacesim/internal/physics"
	"github.com/san-kum/spacesim/internal/sim"
)

type ID string

var (
	ErrTooManySessions = errors.New("session: too many sessions")
	ErrClosed          = errors.New("session: manager is shut down")
)

// FinishFunc is called from the driver goroutine once a session has ended
// and been unregistered. It runs before Stop or Wait return for that session.
// The engine is no longer stepped and may be read.
type FinishFunc func(id ID, engine *physics.Engine, result *sim.Result, err error)

type Session struct {
	id     ID
	engine *physics.Engine
	driver *sim.Driver
	cancel context.CancelFunc
	done   chan struct{}

	result *sim.Result
	err    error
}

func (s *Session) ID() ID                { return s.id }
func (s *Session) Status() sim.Status    { return s.driver.Status() }
func (s *Session) Done() <-chan struct{} { return s.done }

// Result is valid once Done is closed.
func (s *Session) Result() (*sim.Result, error) {
	<-s.done
	return s.result, s.err
}

type Manager struct {
	mu       sync.Mutex
	sessions map[ID]*Session
	closed   bool

	limit      int
	interval   time.Duration
	driverOpts func(ID) []sim.Option
	onFinish   FinishFunc
	logger     *zap.Logger
}

type Option func(*Manager)

// WithLimit caps the number of live sessions. Zero means unlimited.
func WithLimit(n int) Option {
	return func(m *Manager) { m.limit = n }
}

func WithInterval(d time.Duration) Option {
	return func(m *Manager) { m.interval = d }
}

// WithDriverOptions adds per-session driver options such as metrics, which
// must not be shared between sessions.
func WithDriverOptions(fn func(ID) []sim.Option) Option {
	return func(m *Manager) { m.driverOpts = fn }
}

func WithOnFinish(fn FinishFunc) Option {
	return func(m *Manager) { m.onFinish = fn }
}

func WithLogger(l *zap.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

func NewManager(opts ...Option) *Manager {
	m := &Manager{
		sessions: make(map[ID]*Session),
		interval: sim.DefaultInterval,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Create registers a session for engine and starts stepping it. A live
// session under the same id is stopped first. opts are applied after the
// manager's own driver options.
func (m *Manager) Create(id ID, engine *physics.Engine, emitter sim.Emitter, opts ...sim.Option) (*Session, error) {
	for {
		m.Stop(id)
		m.mu.Lock()
		if _, exists := m.sessions[id]; !exists {
			break
		}
		m.mu.Unlock()
	}
	defer m.mu.Unlock()

	if m.closed {
		return nil, ErrClosed
	}
	if m.limit > 0 && len(m.sessions) >= m.limit {
		return nil, ErrTooManySessions
	}

	logger := m.logger.With(zap.String("session_id", string(id)))
	driverOpts := []sim.Option{sim.WithInterval(m.interval), sim.WithLogger(logger)}
	if m.driverOpts != nil {
		driverOpts = append(driverOpts, m.driverOpts(id)...)
	}
	driverOpts = append(driverOpts, opts...)

	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		id:     id,
		engine: engine,
		driver: sim.NewDriver(engine, emitter, driverOpts...),
		cancel: cancel,
		done:   make(chan struct{}),
	}
	if err := s.driver.Start(); err != nil {
		cancel()
		return nil, err
	}
	m.sessions[id] = s

	logger.Info("session started",
		zap.Int("bodies", engine.Len()),
		zap.Int("total_steps", engine.Params().TotalSteps()))

	go m.run(ctx, s, logger)
	return s, nil
}

func (m *Manager) run(ctx context.Context, s *Session, logger *zap.Logger) {
	defer close(s.done)
	defer s.cancel()

	s.result, s.err = s.driver.Run(ctx)

	m.mu.Lock()
	if m.sessions[s.id] == s {
		delete(m.sessions, s.id)
	}
	m.mu.Unlock()

	logger.Info("session finished",
		zap.Stringer("status", s.result.Status),
		zap.Int("steps", s.result.StepsTaken))

	if m.onFinish != nil {
		m.onFinish(s.id, s.engine, s.result, s.err)
	}
}

func (m *Manager) Get(id ID) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	return s, ok
}

// Stop cancels the session and blocks until its driver goroutine has exited.
// Unknown ids are a no-op.
func (m *Manager) Stop(id ID) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
	}
	m.mu.Unlock()
	if !ok {
		return
	}
	s.cancel()
	<-s.done
}

// Control forwards a direction event to the session's engine.
func (m *Manager) Control(id ID, dir physics.Direction, pressed bool) error {
	s, ok := m.Get(id)
	if !ok {
		return dynamo.ErrUnknownSession
	}
	return s.engine.SetControl(dir, pressed)
}

// Wait blocks until the live session id has ended.
func (m *Manager) Wait(id ID) (*sim.Result, error) {
	s, ok := m.Get(id)
	if !ok {
		return nil, dynamo.ErrUnknownSession
	}
	return s.Result()
}

func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Shutdown stops every session and rejects further Create calls.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	m.closed = true
	live := make([]*Session, 0, len(m.sessions))
	for id, s := range m.sessions {
		live = append(live, s)
		delete(m.sessions, id)
	}
	m.mu.Unlock()

	for _, s := range live {
		s.cancel()
	}
	for _, s := range live {
		<-s.done
	}
	m.logger.Info("sessions shut down", zap.Int("stopped", len(live)))
}
