package status

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"penbot/pkg/driver"
	"penbot/pkg/drawing"
	"penbot/pkg/safety"
)

type update struct {
	Method string     `json:"method"`
	Params []Snapshot `json:"params"`
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/websocket"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readUpdate(t *testing.T, conn *websocket.Conn) Snapshot {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var u update
	if err := conn.ReadJSON(&u); err != nil {
		t.Fatal(err)
	}
	if u.Method != "notify_status_update" || len(u.Params) != 1 {
		t.Fatalf("unexpected message %+v", u)
	}
	return u.Params[0]
}

func waitClients(t *testing.T, h *Hub, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for h.Clients() != n {
		if time.Now().After(deadline) {
			t.Fatalf("clients = %d, want %d", h.Clients(), n)
		}
		time.Sleep(time.Millisecond)
	}
}

func TestWebSocketReceivesEvents(t *testing.T) {
	h := New(Config{})
	srv := httptest.NewServer(h.Handler())
	defer srv.Close()

	conn := dial(t, srv)
	if s := readUpdate(t, conn); s.State != "idle" {
		t.Errorf("initial state = %q", s.State)
	}
	waitClients(t, h, 1)

	id := uuid.New()
	h.DrawingStarted(driver.DrawingInfo{ID: id, Name: "cat", Segments: 3})
	s := readUpdate(t, conn)
	if s.State != "playing" || s.DrawingID != id.String() || s.Name != "cat" || s.Segments != 3 {
		t.Errorf("after start: %+v", s)
	}

	h.SegmentStarted(id, 2, drawing.Segment{})
	h.PenChanged(true)
	h.MoveFinished(driver.MoveResult{Left: -40, Right: 40})
	readUpdate(t, conn)
	readUpdate(t, conn)
	s = readUpdate(t, conn)
	if s.Segment != 2 || !s.PenDown || s.LeftSteps != -40 || s.RightSteps != 40 || s.Moves != 1 {
		t.Errorf("after move: %+v", s)
	}

	h.DrawingFinished(driver.DrawingResult{State: driver.Completed, Drawn: 3})
	if s = readUpdate(t, conn); s.State != "completed" || s.Drawings != 1 {
		t.Errorf("after finish: %+v", s)
	}
}

func TestWebSocketRPC(t *testing.T) {
	mon := safety.New(safety.Config{})
	h := New(Config{Safety: mon})
	srv := httptest.NewServer(h.Handler())
	defer srv.Close()

	conn := dial(t, srv)
	readUpdate(t, conn)
	if err := conn.WriteJSON(map[string]any{"jsonrpc": "2.0", "method": "plotter.stop", "id": 7}); err != nil {
		t.Fatal(err)
	}
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var resp rpcResponse
	if err := conn.ReadJSON(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Error != nil || resp.Result != "ok" || resp.ID != float64(7) {
		t.Errorf("response = %+v", resp)
	}
	if !mon.Interrupted() {
		t.Error("stop did not reach the safety monitor")
	}
}

func TestJSONRPCOverHTTP(t *testing.T) {
	h := New(Config{})
	tests := []struct {
		body string
		code int
	}{
		{`{"jsonrpc":"2.0","method":"server.info","id":1}`, 0},
		{`{"jsonrpc":"2.0","method":"nope","id":2}`, -32601},
		{`{"jsonrpc":"2.0","method":"plotter.stop","id":3}`, -32000},
		{`not json`, -32700},
	}
	for _, tt := range tests {
		w := httptest.NewRecorder()
		h.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/jsonrpc", strings.NewReader(tt.body)))
		var resp rpcResponse
		if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
			t.Fatalf("%s: %v", tt.body, err)
		}
		got := 0
		if resp.Error != nil {
			got = resp.Error.Code
		}
		if got != tt.code {
			t.Errorf("%s: code %d, want %d", tt.body, got, tt.code)
		}
	}

	w := httptest.NewRecorder()
	h.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/jsonrpc", nil))
	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET /jsonrpc = %d", w.Code)
	}
}

func TestStatusEndpoint(t *testing.T) {
	mon := safety.New(safety.Config{})
	h := New(Config{Safety: mon})
	h.PenChanged(true)

	w := httptest.NewRecorder()
	h.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/status", nil))
	var body struct {
		Result Snapshot `json:"result"`
	}
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if !body.Result.PenDown || body.Result.Safety == nil || body.Result.Safety.State != "running" {
		t.Errorf("status = %+v", body.Result)
	}
}
