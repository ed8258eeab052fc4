package network

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/amalg/bomb-arena/internal/game"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	sendBufferSize = 256
)

// Server hosts one room and fans engine events out to websocket clients. It
// is the engine's Publisher.
type Server struct {
	engine   *game.Engine
	upgrader websocket.Upgrader
	clients  map[string]*clientConn
	mu       sync.RWMutex
	log      zerolog.Logger

	actionRate  rate.Limit
	actionBurst int
	engineOpts  []game.Option
}

// clientConn represents a connected client.
type clientConn struct {
	conn     *websocket.Conn
	playerID string
	send     chan []byte
	limiter  *rate.Limiter
}

// Option customizes a Server.
type Option func(*Server)

// WithLogger sets the server logger. The engine logs through a child of it.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Server) { s.log = l }
}

// WithActionRate limits inbound actions per connection. Excess actions are
// dropped.
func WithActionRate(perSecond float64, burst int) Option {
	return func(s *Server) {
		s.actionRate = rate.Limit(perSecond)
		s.actionBurst = burst
	}
}

// WithEngineOptions passes options through to the engine.
func WithEngineOptions(opts ...game.Option) Option {
	return func(s *Server) { s.engineOpts = append(s.engineOpts, opts...) }
}

// NewServer creates a room server around a new engine.
func NewServer(config game.Config, opts ...Option) (*Server, error) {
	s := &Server{
		clients: make(map[string]*clientConn),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		log:         zerolog.Nop(),
		actionRate:  20,
		actionBurst: 10,
	}
	for _, opt := range opts {
		opt(s)
	}

	engineOpts := append([]game.Option{
		game.WithPublisher(s),
		game.WithLogger(s.log.With().Str("component", "engine").Logger()),
	}, s.engineOpts...)

	engine, err := game.NewEngine(config, engineOpts...)
	if err != nil {
		return nil, err
	}
	s.engine = engine
	return s, nil
}

// Engine returns the underlying game engine.
func (s *Server) Engine() *game.Engine {
	return s.engine
}

// Handler returns the HTTP handler serving the websocket endpoint and the
// read-only state routes.
func (s *Server) Handler() http.Handler {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())
	s.Routes(r)
	return r
}

// Routes registers the server's endpoints on r.
func (s *Server) Routes(r gin.IRoutes) {
	r.GET("/health", func(c *gin.Context) { c.String(http.StatusOK, "healthy") })
	r.GET("/state", func(c *gin.Context) { c.JSON(http.StatusOK, s.engine.Snapshot()) })
	r.GET("/ws", s.handleWebsocket)
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.Debug().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("elapsed", time.Since(start)).
			Msg("http request")
	}
}

// Serve handles HTTP on ln until ctx is done, then closes every client and
// drains in-flight requests.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	httpSrv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- httpSrv.Serve(ln) }()
	s.log.Info().Str("addr", ln.Addr().String()).Msg("server listening")

	select {
	case err := <-errCh:
		s.engine.Stop()
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.Shutdown(shutdownCtx)
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	s.log.Info().Msg("server stopped")
	return nil
}

// Publish implements game.Publisher.
func (s *Server) Publish(ev game.Event) {
	data, err := EncodeEvent(ev)
	if err != nil {
		s.log.Error().Err(err).Str("event", string(ev.Type)).Msg("encode event")
		return
	}
	s.broadcast(data)
}

// Shutdown stops the engine and closes every client connection.
func (s *Server) Shutdown(ctx context.Context) error {
	s.engine.Stop()

	s.mu.Lock()
	for id, cc := range s.clients {
		close(cc.send)
		delete(s.clients, id)
	}
	s.mu.Unlock()

	return ctx.Err()
}

func (s *Server) handleWebsocket(c *gin.Context) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.log.Warn().Err(err).Str("remote", c.ClientIP()).Msg("websocket upgrade failed")
		return
	}
	s.serveConn(conn)
}

func (s *Server) serveConn(conn *websocket.Conn) {
	defer conn.Close()

	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	// First frame must be a join
	name, err := readJoin(conn)
	if err != nil {
		s.log.Debug().Err(err).Msg("rejecting connection")
		writeError(conn, err.Error())
		return
	}

	playerID := uuid.NewString()
	player, err := s.engine.Join(playerID, name)
	if err != nil {
		writeError(conn, err.Error())
		return
	}

	cc := &clientConn{
		conn:     conn,
		playerID: playerID,
		send:     make(chan []byte, sendBufferSize),
		limiter:  rate.NewLimiter(s.actionRate, s.actionBurst),
	}
	s.mu.Lock()
	s.clients[playerID] = cc
	s.mu.Unlock()
	defer s.removeClient(playerID)

	go cc.writePump()

	s.log.Info().Str("player", playerID).Str("name", player.Name).Msg("client connected")

	if data, err := Encode(MsgJoined, player); err == nil {
		s.sendTo(cc, data)
	}
	snap := s.engine.Snapshot()
	if data, err := Encode(MsgState, &snap); err == nil {
		s.sendTo(cc, data)
	}

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.log.Debug().Err(err).Str("player", playerID).Msg("read failed")
			}
			return
		}
		if !cc.limiter.Allow() {
			continue
		}

		env, err := Decode(data)
		if err != nil {
			s.log.Debug().Err(err).Str("player", playerID).Msg("invalid message")
			continue
		}
		s.dispatch(playerID, env)
	}
}

func (s *Server) dispatch(playerID string, env *Envelope) {
	switch env.Type {
	case MsgMove:
		var move MoveMsg
		if err := DecodePayload(env, &move); err != nil {
			return
		}
		s.engine.Apply(game.Action{PlayerID: playerID, Type: game.ActionMove, Dir: move.Direction})
	case MsgPlaceBomb:
		s.engine.Apply(game.Action{PlayerID: playerID, Type: game.ActionPlaceBomb})
	case MsgChat:
		var chat ChatMsg
		if err := DecodePayload(env, &chat); err != nil {
			return
		}
		s.relayChat(playerID, chat.Message)
	default:
		s.log.Debug().Str("player", playerID).Str("type", string(env.Type)).Msg("unknown message type")
	}
}

func (s *Server) relayChat(playerID, message string) {
	player, ok := s.engine.Player(playerID)
	if !ok {
		return
	}
	message = SanitizeChat(message)
	if message == "" {
		return
	}
	data, err := Encode(MsgChat, newChat(player.Name, message, time.Now()))
	if err != nil {
		return
	}
	s.broadcast(data)
}

func (s *Server) removeClient(playerID string) {
	s.mu.Lock()
	if cc, ok := s.clients[playerID]; ok {
		close(cc.send)
		delete(s.clients, playerID)
	}
	s.mu.Unlock()

	// Never call into the engine while holding s.mu: the engine publishes
	// back into the server under its own lock.
	s.engine.Disconnect(playerID)
	s.log.Info().Str("player", playerID).Msg("client disconnected")
}

func (s *Server) broadcast(data []byte) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, cc := range s.clients {
		s.enqueue(cc, data)
	}
}

func (s *Server) sendTo(cc *clientConn, data []byte) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.clients[cc.playerID]; ok {
		s.enqueue(cc, data)
	}
}

// enqueue never blocks; a client that cannot keep up loses frames.
// MUST be called while s.mu is held.
func (s *Server) enqueue(cc *clientConn, data []byte) {
	select {
	case cc.send <- data:
	default:
		s.log.Warn().Str("player", cc.playerID).Msg("send buffer full, dropping frame")
	}
}

func (cc *clientConn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		cc.conn.Close()
	}()

	for {
		select {
		case data, ok := <-cc.send:
			cc.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				cc.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := cc.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			cc.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := cc.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

var errExpectedJoin = errors.New("expected join message")

func readJoin(conn *websocket.Conn) (string, error) {
	_, data, err := conn.ReadMessage()
	if err != nil {
		return "", err
	}
	env, err := Decode(data)
	if err != nil {
		return "", err
	}
	if env.Type != MsgJoin {
		return "", errExpectedJoin
	}
	var join JoinMsg
	if len(env.Payload) > 0 {
		if err := DecodePayload(env, &join); err != nil {
			return "", err
		}
	}
	return join.Name, nil
}

// writeError is used before the write pump exists, so it writes directly.
func writeError(conn *websocket.Conn, message string) {
	data, err := Encode(MsgError, ErrorMsg{Message: message})
	if err != nil {
		return
	}
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	conn.WriteMessage(websocket.TextMessage, data)
}
