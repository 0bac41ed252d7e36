package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/lhdbsbz/botproxy/internal/action"
	"github.com/lhdbsbz/botproxy/internal/config"
	"github.com/lhdbsbz/botproxy/internal/cron"
	"github.com/lhdbsbz/botproxy/internal/message"
	"github.com/lhdbsbz/botproxy/internal/relay"
	"github.com/lhdbsbz/botproxy/internal/tool"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  16 * 1024,
	WriteBufferSize: 16 * 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Server is the botproxy gateway: bridges and clients connect over WebSocket,
// management goes through the HTTP API.
type Server struct {
	Config    *config.Config
	Relay     *relay.Proxy
	Tools     *tool.Registry
	Scheduler *cron.Scheduler // optional
	Dedup     *message.Dedup  // optional
	Conns     *ConnManager

	report  atomic.Pointer[action.Report]
	httpSrv *http.Server
	startAt time.Time
}

func NewServer(cfg *config.Config, conns *ConnManager, proxy *relay.Proxy, tools *tool.Registry) *Server {
	return &Server{
		Config:  cfg,
		Relay:   proxy,
		Tools:   tools,
		Conns:   conns,
		startAt: time.Now(),
	}
}

// SetActionReport publishes the latest action parse report for GET /api/actions.
func (s *Server) SetActionReport(r action.Report) {
	s.report.Store(&r)
}

// Handler builds the gin engine with every route registered.
func (s *Server) Handler() http.Handler {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	engine.GET("/health", s.ginHealth)
	engine.GET("/ws", s.ginWebSocket)
	s.registerAPIRoutes(engine)
	return engine
}

// Start begins listening for connections and blocks until ctx is done.
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf(":%d", s.Config.Gateway.Port)
	s.httpSrv = &http.Server{
		Addr:    addr,
		Handler: s.Handler(),
	}

	slog.Info("botproxy gateway starting", "port", s.Config.Gateway.Port, "channel", s.Config.Gateway.Channel)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.httpSrv.Shutdown(shutdownCtx)
	}()

	if err := s.httpSrv.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) ginHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"uptime":  time.Since(s.startAt).String(),
		"bridges": len(s.Conns.ListBridges()),
		"clients": s.Conns.ClientCount(),
		"pending": len(s.Relay.Pending()),
	})
}

func (s *Server) ginWebSocket(c *gin.Context) {
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		slog.Error("websocket upgrade failed", "error", err)
		return
	}
	defer ws.Close()

	connID := fmt.Sprintf("conn_%d", time.Now().UnixNano())
	conn := &Conn{
		ID:          connID,
		WS:          ws,
		ConnectedAt: time.Now(),
	}

	// First message must be a connect request
	frame, err := ReadFrame(ws)
	if err != nil {
		slog.Warn("failed to read connect frame", "error", err)
		return
	}
	if frame.Method != MethodConnect {
		conn.Send(ResErr(frame.ID, "HANDSHAKE_REQUIRED", "first message must be a connect request"))
		return
	}

	var connectParams ConnectParams
	if err := json.Unmarshal(frame.Params, &connectParams); err != nil {
		conn.Send(ResErr(frame.ID, "INVALID_PARAMS", "invalid connect params"))
		return
	}
	if !s.authenticate(connectParams.Token) {
		conn.Send(ResErr(frame.ID, "AUTH_FAILED", "invalid token"))
		return
	}
	if connectParams.Role != RoleBridge && connectParams.Role != RoleClient {
		conn.Send(ResErr(frame.ID, "INVALID_PARAMS", "role must be bridge or client"))
		return
	}

	conn.Role = connectParams.Role
	conn.Channel = connectParams.Channel
	conn.SelfID = connectParams.SelfID
	if conn.Role == RoleBridge && conn.Channel == "" {
		conn.Channel = s.Config.Gateway.Channel
	}
	s.Conns.Add(conn)
	defer s.Conns.Remove(connID)

	slog.Info("connection established", "id", connID, "role", conn.Role, "channel", conn.Channel, "selfId", conn.SelfID)

	conn.Send(ResOK(frame.ID, map[string]any{
		"connId":   connID,
		"protocol": 1,
	}))

	for {
		frame, err := ReadFrame(ws)
		if err != nil {
			slog.Debug("connection closed", "id", connID, "error", err)
			return
		}
		if frame.Type != "req" {
			continue
		}

		switch {
		case frame.Method == MethodInboundMessage && conn.Role == RoleBridge:
			// Inline so replies from one bridge are matched in arrival order.
			s.respond(conn, frame, s.handleInboundMessage)
		case frame.Method == MethodToolExecute:
			go s.respond(conn, frame, s.handleToolExecute)
		default:
			conn.Send(ResErr(frame.ID, "UNKNOWN_METHOD", "supported: inbound.message (bridge), tool.execute"))
		}
	}
}

func (s *Server) respond(conn *Conn, f Frame, handle func(context.Context, *Conn, json.RawMessage) (any, error)) {
	result, err := handle(context.Background(), conn, f.Params)
	if err != nil {
		conn.Send(ResErr(f.ID, "ERROR", err.Error()))
		return
	}
	conn.Send(ResOK(f.ID, result))
}

// authToken prefers the hot-reloaded config so a token change applies without a restart.
func (s *Server) authToken() string {
	if cfg := config.Get(); cfg != nil {
		return cfg.Gateway.Auth.Token
	}
	return s.Config.Gateway.Auth.Token
}

func (s *Server) authenticate(token string) bool {
	expected := s.authToken()
	if expected == "" {
		return true // no auth configured
	}
	return token == expected
}
