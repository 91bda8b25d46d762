package httpserver

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/codec404/Konfig/internal/distribution"
	"github.com/codec404/Konfig/internal/model"
	"github.com/codec404/Konfig/pkg/log"
)

const (
	wsWriteTimeout = 10 * time.Second
	wsPongWait     = 90 * time.Second
	wsPingPeriod   = 30 * time.Second
)

// connSender implements distribution.Sender over one WebSocket connection.
// gorilla/websocket connections are not safe for concurrent writers, so
// every Send is serialized behind mu — the engine's own Push broadcast and
// this connection's ping ticker can both reach it concurrently.
type connSender struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *connSender) Send(update model.ConfigUpdate) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return c.conn.WriteJSON(update)
}

func (c *connSender) ping() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return c.conn.WriteMessage(websocket.PingMessage, nil)
}

// DistServer upgrades each subscriber connection to a WebSocket and bridges
// it to distribution.Engine via the Sender interface, replacing the
// original's bidirectional gRPC stream handler.
type DistServer struct {
	engine   *distribution.Engine
	upgrader websocket.Upgrader
	srv      *http.Server
	lis      net.Listener
	logger   log.Logger
}

func NewDistServer(engine *distribution.Engine, logger log.Logger) *DistServer {
	mux := http.NewServeMux()
	s := &DistServer{
		engine: engine,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		srv:    &http.Server{Handler: mux},
		logger: logger,
	}
	mux.HandleFunc("/v1/healthz", s.handleHealth)
	mux.HandleFunc("/v1/distribution/subscribe", s.handleStream)
	mux.HandleFunc("/v1/distribution/push", s.handlePush)
	return s
}

func (s *DistServer) ListenAndServe(ctx context.Context, addr string) error {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.lis = l
	errCh := make(chan error, 1)
	go func() { errCh <- s.srv.Serve(l) }()
	select {
	case <-ctx.Done():
		cctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.srv.Shutdown(cctx)
		return nil
	case err := <-errCh:
		return err
	}
}

func (s *DistServer) Close() {
	if s.lis != nil {
		_ = s.lis.Close()
	}
}

func (s *DistServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "active_clients": "see metrics"})
}

// handlePush is called by the control plane (a separate process) after it
// persists a new config version, so the engine can fan it out to every
// already-connected subscriber without either process sharing memory.
func (s *DistServer) handlePush(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req model.PushUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.engine.Push(r.Context(), req.ServiceName, req.Config)
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// handleStream implements one subscriber's connection lifecycle: upgrade,
// read the initial SubscribeRequest, register with the engine, then read
// heartbeat frames until the socket closes.
func (s *DistServer) handleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warnf("websocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	var req model.SubscribeRequest
	conn.SetReadDeadline(time.Now().Add(wsPongWait))
	if err := conn.ReadJSON(&req); err != nil {
		s.logger.Warnf("read subscribe frame failed: %v", err)
		return
	}

	sender := &connSender{conn: conn}
	key, err := s.engine.Subscribe(r.Context(), req, sender)
	if err != nil {
		s.logger.Warnf("subscribe failed for %s/%s: %v", req.ServiceName, req.InstanceID, err)
		conn.WriteJSON(model.ConfigUpdate{UpdateType: model.UpdateHeartbeatAck})
		return
	}
	defer s.engine.Unsubscribe(context.Background(), key)

	stopPing := make(chan struct{})
	go s.pingLoop(sender, stopPing)
	defer close(stopPing)

	// The subscriber SDK never writes further app-level frames after the
	// initial subscribe (matching the original client's stream, which
	// relied on transport-level keepalive for liveness) — WebSocket
	// ping/pong stands in for gRPC's HTTP/2 keepalive, so a received pong
	// is itself what refreshes the heartbeat clock.
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(wsPongWait))
		s.engine.Heartbeat(key)
		return nil
	})

	for {
		var hb model.SubscribeRequest
		conn.SetReadDeadline(time.Now().Add(wsPongWait))
		if err := conn.ReadJSON(&hb); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				s.logger.Warnf("stream read error for %s: %v", key, err)
			}
			return
		}
		s.engine.Heartbeat(key)
	}
}

func (s *DistServer) pingLoop(sender *connSender, stop <-chan struct{}) {
	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if err := sender.ping(); err != nil {
				return
			}
		}
	}
}
