// Package status publishes driver events to websocket clients and answers
// status queries over JSON-RPC 2.0.
package status

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"penbot/pkg/driver"
	"penbot/pkg/drawing"
	"penbot/pkg/log"
	"penbot/pkg/safety"
)

// Snapshot is the plotter state sent to clients.
type Snapshot struct {
	State      string         `json:"state"`
	DrawingID  string         `json:"drawing_id,omitempty"`
	Name       string         `json:"name,omitempty"`
	Segment    uint16         `json:"segment"`
	Segments   uint16         `json:"segments"`
	PenDown    bool           `json:"pen_down"`
	LeftSteps  int64          `json:"left_steps"`
	RightSteps int64          `json:"right_steps"`
	Moves      uint64         `json:"moves"`
	Drawings   uint64         `json:"drawings"`
	Safety     *safety.Status `json:"safety,omitempty"`
}

// Config holds hub settings.
type Config struct {
	// Addr to listen on, e.g. ":7125"
	Addr string

	// Safety, when set, is reported in snapshots and stopped by the
	// plotter.stop method.
	Safety *safety.Monitor

	Logger *log.Logger
}

// Hub fans driver events out to websocket clients. It implements
// driver.Observer; observer calls never block on slow clients.
type Hub struct {
	safety *safety.Monitor
	log    *log.Logger

	upgrader websocket.Upgrader
	mux      *http.ServeMux
	server   *http.Server
	listener net.Listener
	started  time.Time

	mu       sync.RWMutex
	snapshot Snapshot

	clientMu sync.RWMutex
	clients  map[int64]*client
	nextID   atomic.Int64
}

var _ driver.Observer = (*Hub)(nil)

// New creates a hub. Call Start to serve it or use Handler directly.
func New(cfg Config) *Hub {
	h := &Hub{
		safety:   cfg.Safety,
		log:      cfg.Logger,
		mux:      http.NewServeMux(),
		clients:  make(map[int64]*client),
		snapshot: Snapshot{State: driver.Idle.String()},
		started:  time.Now(),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
	if h.log == nil {
		h.log = log.GetLogger("status")
	}
	h.mux.HandleFunc("/websocket", h.handleWebSocket)
	h.mux.HandleFunc("/jsonrpc", h.handleJSONRPC)
	h.mux.HandleFunc("/status", h.handleStatus)
	h.server = &http.Server{Addr: cfg.Addr, Handler: h.mux}
	return h
}

// Handler returns the HTTP handler.
func (h *Hub) Handler() http.Handler { return h.mux }

// Start binds the listen address and serves in the background.
func (h *Hub) Start() (<-chan error, error) {
	ln, err := net.Listen("tcp", h.server.Addr)
	if err != nil {
		return nil, err
	}
	h.listener = ln
	h.log.Info("status server listening on %s", ln.Addr())
	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		if err := h.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	return errCh, nil
}

// Addr returns the bound address after Start.
func (h *Hub) Addr() string {
	if h.listener != nil {
		return h.listener.Addr().String()
	}
	return h.server.Addr
}

// Shutdown closes every client and stops the server.
func (h *Hub) Shutdown(ctx context.Context) error {
	h.clientMu.Lock()
	for _, c := range h.clients {
		c.Close()
	}
	h.clients = make(map[int64]*client)
	h.clientMu.Unlock()
	return h.server.Shutdown(ctx)
}

// Snapshot returns the current state.
func (h *Hub) Snapshot() Snapshot {
	h.mu.RLock()
	s := h.snapshot
	h.mu.RUnlock()
	if h.safety != nil {
		st := h.safety.GetStatus()
		s.Safety = &st
	}
	return s
}

// Clients returns the number of connected websocket clients.
func (h *Hub) Clients() int {
	h.clientMu.RLock()
	defer h.clientMu.RUnlock()
	return len(h.clients)
}

func (h *Hub) update(fn func(*Snapshot)) {
	h.mu.Lock()
	fn(&h.snapshot)
	h.mu.Unlock()
	h.broadcast(notification{JSONRPC: "2.0", Method: "notify_status_update", Params: []any{h.Snapshot()}})
}

func (h *Hub) broadcast(msg any) {
	h.clientMu.RLock()
	defer h.clientMu.RUnlock()
	for _, c := range h.clients {
		c.Send(msg)
	}
}

func (h *Hub) DrawingStarted(info driver.DrawingInfo) {
	h.update(func(s *Snapshot) {
		s.State = driver.Playing.String()
		s.DrawingID = info.ID.String()
		s.Name = info.Name
		s.Segment = 0
		s.Segments = info.Segments
	})
}

func (h *Hub) SegmentStarted(_ uuid.UUID, index uint16, _ drawing.Segment) {
	h.update(func(s *Snapshot) { s.Segment = index })
}

func (h *Hub) PenChanged(down bool) {
	h.update(func(s *Snapshot) { s.PenDown = down })
}

func (h *Hub) MoveFinished(m driver.MoveResult) {
	h.update(func(s *Snapshot) {
		s.Moves++
		s.LeftSteps += int64(m.Left)
		s.RightSteps += int64(m.Right)
	})
}

func (h *Hub) DrawingFinished(r driver.DrawingResult) {
	h.update(func(s *Snapshot) {
		s.State = r.State.String()
		s.Segment = r.Drawn
		s.Drawings++
	})
}

type notification struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  []any  `json:"params,omitempty"`
}

type rpcRequest struct {
	JSONRPC string         `json:"jsonrpc"`
	Method  string         `json:"method"`
	Params  map[string]any `json:"params,omitempty"`
	ID      any            `json:"id,omitempty"`
}

type rpcResponse struct {
	JSONRPC string    `json:"jsonrpc"`
	Result  any       `json:"result,omitempty"`
	Error   *rpcError `json:"error,omitempty"`
	ID      any       `json:"id,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

var errUnknownMethod = errors.New("method not found")

func (h *Hub) dispatch(method string) (any, error) {
	switch method {
	case "server.info":
		return map[string]any{
			"clients": h.Clients(),
			"uptime":  time.Since(h.started).Seconds(),
		}, nil
	case "plotter.status":
		return h.Snapshot(), nil
	case "plotter.stop":
		if h.safety == nil {
			return nil, errors.New("no safety monitor")
		}
		h.log.Warn("stop requested over the API")
		h.safety.RequestStop(safety.ReasonUserStop)
		return "ok", nil
	}
	return nil, errUnknownMethod
}

func (h *Hub) respond(req rpcRequest) rpcResponse {
	result, err := h.dispatch(req.Method)
	if err != nil {
		code := -32000
		if errors.Is(err, errUnknownMethod) {
			code = -32601
		}
		return rpcResponse{JSONRPC: "2.0", Error: &rpcError{Code: code, Message: err.Error()}, ID: req.ID}
	}
	return rpcResponse{JSONRPC: "2.0", Result: result, ID: req.ID}
}

func (h *Hub) handleJSONRPC(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req rpcRequest
	resp := rpcResponse{JSONRPC: "2.0", Error: &rpcError{Code: -32700, Message: "Parse error"}}
	if err := json.NewDecoder(r.Body).Decode(&req); err == nil {
		resp = h.respond(req)
	}
	writeJSON(w, resp)
}

func (h *Hub) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, map[string]any{"result": h.Snapshot()})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func (h *Hub) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade: %v", err)
		return
	}
	c := newClient(h, conn, h.nextID.Add(1))
	h.clientMu.Lock()
	h.clients[c.id] = c
	h.clientMu.Unlock()
	h.log.Debug("websocket client %d connected", c.id)

	go c.writePump()
	c.Send(notification{JSONRPC: "2.0", Method: "notify_status_update", Params: []any{h.Snapshot()}})
	c.readPump()
}

func (h *Hub) removeClient(c *client) {
	h.clientMu.Lock()
	delete(h.clients, c.id)
	h.clientMu.Unlock()
	h.log.Debug("websocket client %d disconnected", c.id)
}
