// Package server exposes simulation sessions over a websocket and a small
// HTTP API. Every connected client owns at most one session, keyed by the
// user id assigned on connect.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/san-kum/spacesim/internal/config"
	"github.com/san-kum/spacesim/internal/dynamo"
	"github.com/san-kum/spacesim/internal/physics"
	"github.com/san-kum/spacesim/internal/session"
	"github.com/san-kum/spacesim/internal/sim"
	"github.com/san-kum/spacesim/internal/storage"
)

const (
	writeTimeout      = 10 * time.Second
	shutdownTimeout   = 5 * time.Second
	maxBodyBytes      = 1 << 20
	maxRecordedFrames = 2000
)

var ErrUnknownUser = errors.New("server: unknown user_id")

type Server struct {
	cfg      config.ServerConfig
	sessions *session.Manager
	upgrader websocket.Upgrader
	logger   *zap.Logger

	// store is nil when finished runs are not kept.
	store *storage.Store

	mu         sync.Mutex
	clients    map[string]*client
	recordings map[*physics.Engine]*storage.Recorder
}

type Option func(*Server)

func WithLogger(l *zap.Logger) Option {
	return func(s *Server) { s.logger = l }
}

func New(cfg config.ServerConfig, opts ...Option) *Server {
	s := &Server{
		cfg:        cfg,
		logger:     zap.NewNop(),
		clients:    make(map[string]*client),
		recordings: make(map[*physics.Engine]*storage.Recorder),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(zap.String("component", "server"))
	if cfg.DataDir != "" {
		st := storage.New(cfg.DataDir)
		if err := st.Init(); err != nil {
			s.logger.Warn("run store disabled", zap.String("dir", cfg.DataDir), zap.Error(err))
		} else {
			s.store = st
		}
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}
	s.sessions = session.NewManager(
		session.WithLimit(cfg.MaxSessions),
		session.WithInterval(cfg.FrameInterval),
		session.WithOnFinish(s.finished),
		session.WithLogger(s.logger),
	)
	return s
}

func (s *Server) Sessions() *session.Manager { return s.sessions }

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /ws", s.handleWebSocket)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("POST /launch_simulation", s.handleLaunch)
	mux.HandleFunc("POST /delete_simulation", s.handleDelete)
	return s.cors(mux)
}

// Run listens on the configured address until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.cfg.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is done, then shuts down the
// HTTP server, every session and every client connection.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("listening", zap.String("addr", ln.Addr().String()))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)
		s.sessions.Shutdown()
		s.closeClients()
		s.logger.Info("server stopped")
		return err
	})
	return g.Wait()
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	c := &client{
		id:     uuid.NewString(),
		conn:   conn,
		logger: s.logger,
	}
	c.logger = s.logger.With(zap.String("user_id", c.id))

	s.mu.Lock()
	s.clients[c.id] = c
	s.mu.Unlock()
	c.logger.Info("client connected", zap.String("remote", conn.RemoteAddr().String()))

	if err := c.send(TypeConnected, Connected{UserID: c.id}); err != nil {
		s.disconnect(c)
		return
	}
	s.readLoop(c)
}

func (s *Server) readLoop(c *client) {
	defer s.disconnect(c)
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Debug("read failed", zap.Error(err))
			}
			return
		}
		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			c.sendError(fmt.Errorf("malformed message: %w", err))
			continue
		}
		if err := s.dispatch(c, msg); err != nil {
			c.sendError(err)
		}
	}
}

func (s *Server) dispatch(c *client, msg Message) error {
	switch msg.Type {
	case TypeButtonPress:
		var press ButtonPress
		if err := json.Unmarshal(msg.Data, &press); err != nil {
			return fmt.Errorf("malformed button_press: %w", err)
		}
		dir, err := physics.ParseDirection(press.Direction)
		if err != nil {
			return err
		}
		return s.sessions.Control(session.ID(c.id), dir, press.IsPressed)
	case TypeLaunchSimulation:
		return s.launch(c, msg.Data)
	case TypeDeleteSimulation:
		s.sessions.Stop(session.ID(c.id))
		return nil
	default:
		return fmt.Errorf("unknown message type %q", msg.Type)
	}
}

// launch replaces the client's session with one built from data.
func (s *Server) launch(c *client, data []byte) error {
	cfg, err := config.Parse(data)
	if err != nil {
		return err
	}
	engine, err := config.Build(cfg)
	if err != nil {
		return err
	}

	var opts []sim.Option
	if s.store != nil {
		rec := storage.NewRecorder(recordEvery(engine))
		s.mu.Lock()
		s.recordings[engine] = rec
		s.mu.Unlock()
		opts = append(opts, sim.WithObserver(rec))
	}
	if _, err := s.sessions.Create(session.ID(c.id), engine, c, opts...); err != nil {
		s.takeRecording(engine)
		return err
	}
	return nil
}

func recordEvery(e *physics.Engine) int {
	total := e.Params().TotalSteps()
	if total <= maxRecordedFrames {
		return 1
	}
	return (total + maxRecordedFrames - 1) / maxRecordedFrames
}

func (s *Server) takeRecording(e *physics.Engine) *storage.Recorder {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := s.recordings[e]
	delete(s.recordings, e)
	return rec
}

// save keeps runs that completed or failed. Cancelled sessions were
// abandoned by their client.
func (s *Server) save(id session.ID, e *physics.Engine, result *sim.Result) {
	rec := s.takeRecording(e)
	if rec == nil || result.Status == sim.Cancelled {
		return
	}
	meta := storage.NewRunMetadata("session", e, result)
	runID, err := s.store.Save(meta, rec.Frames())
	if err != nil {
		s.logger.Warn("saving run failed", zap.String("user_id", string(id)), zap.Error(err))
		return
	}
	s.logger.Debug("run saved", zap.String("user_id", string(id)), zap.String("run_id", runID))
}

func (s *Server) handleLaunch(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	data, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeStatus(w, http.StatusBadRequest, err)
		return
	}
	var ref userRef
	if err := json.Unmarshal(data, &ref); err != nil {
		writeStatus(w, http.StatusBadRequest, fmt.Errorf("invalid json: %w", err))
		return
	}
	c, ok := s.client(ref.UserID)
	if !ok {
		writeStatus(w, http.StatusBadRequest, ErrUnknownUser)
		return
	}

	switch err := s.launch(c, data); {
	case err == nil:
		writeStatus(w, http.StatusOK, nil)
	case errors.Is(err, session.ErrTooManySessions), errors.Is(err, session.ErrClosed):
		writeStatus(w, http.StatusServiceUnavailable, err)
	default:
		writeStatus(w, http.StatusBadRequest, err)
	}
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	var ref userRef
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&ref); err == nil {
		s.sessions.Stop(session.ID(ref.UserID))
	}
	writeStatus(w, http.StatusOK, nil)
}

// finished runs on the driver goroutine after a session ended.
func (s *Server) finished(id session.ID, e *physics.Engine, result *sim.Result, err error) {
	s.save(id, e, result)
	c, ok := s.client(string(id))
	if !ok {
		return
	}
	switch result.Status {
	case sim.Completed:
		_ = c.send(TypeSimulationFinished, Finished{Status: result.Status.String(), Steps: result.StepsTaken})
	case sim.Failed:
		var simErr *dynamo.SimulationError
		if errors.As(err, &simErr) {
			c.logger.Warn("simulation failed", zap.Error(err))
		}
		_ = c.send(TypeSimulationError, ErrorData{Message: err.Error()})
	}
}

func (s *Server) client(id string) (*client, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.clients[id]
	return c, ok
}

func (s *Server) disconnect(c *client) {
	s.sessions.Stop(session.ID(c.id))
	s.mu.Lock()
	if s.clients[c.id] == c {
		delete(s.clients, c.id)
	}
	s.mu.Unlock()
	_ = c.conn.Close()
	c.logger.Info("client disconnected")
}

func (s *Server) closeClients() {
	s.mu.Lock()
	live := make([]*client, 0, len(s.clients))
	for _, c := range s.clients {
		live = append(live, c)
	}
	s.mu.Unlock()
	for _, c := range live {
		_ = c.conn.Close()
	}
}

func writeStatus(w http.ResponseWriter, code int, err error) {
	body := Status{Status: "success"}
	if err != nil {
		body = Status{Status: "error", Message: err.Error()}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}

// client is one websocket connection. It doubles as the frame emitter of
// its session; writes are serialised because the read loop and the driver
// goroutine both send.
type client struct {
	id     string
	conn   *websocket.Conn
	logger *zap.Logger

	writeMu sync.Mutex
}

func (c *client) Emit(_ context.Context, f sim.Frame) error {
	return c.send(TypeUpdateStep, f)
}

func (c *client) send(msgType string, data any) error {
	payload, err := json.Marshal(outbound{Type: msgType, Data: data})
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.conn.WriteMessage(websocket.TextMessage, payload)
}

func (c *client) sendError(err error) {
	c.logger.Debug("request rejected", zap.Error(err))
	_ = c.send(TypeError, ErrorData{Message: err.Error()})
}
