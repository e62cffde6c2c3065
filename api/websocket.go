package api

import (
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 8192
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return isAllowedOrigin(r.Header.Get("Origin"))
	},
}

// wsClient is one connected WebSocket monitor
type wsClient struct {
	conn *websocket.Conn
	mu   sync.Mutex

	watchMu sync.Mutex
	watch   []string
}

func (c *wsClient) setWatch(addrs []string) {
	clean := make([]string, 0, len(addrs))
	for _, addr := range addrs {
		addr = strings.ToUpper(strings.TrimSpace(addr))
		if addr != "" {
			clean = append(clean, addr)
		}
	}
	c.watchMu.Lock()
	c.watch = clean
	c.watchMu.Unlock()
}

func (c *wsClient) watched() []string {
	c.watchMu.Lock()
	defer c.watchMu.Unlock()
	return c.watch
}

func (c *wsClient) writeJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteJSON(v)
}

// handleWebSocket upgrades the connection and streams scan events with
// the client's watched addresses until either side closes.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade: %v", err)
		return
	}
	client := &wsClient{conn: conn}

	events, cancel := s.controller.Subscribe()
	defer cancel()
	defer func() { _ = conn.Close() }()

	done := make(chan struct{})

	// Reader: watch subscriptions and connection liveness
	go func() {
		defer close(done)
		conn.SetReadLimit(maxMessageSize)
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			var req WatchRequest
			if err := conn.ReadJSON(&req); err != nil {
				return
			}
			if req.Type == "watch" {
				client.setWatch(req.Addresses)
			}
		}
	}()

	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()

	for {
		select {
		case <-done:
			return

		case <-ping.C:
			client.mu.Lock()
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			err := conn.WriteMessage(websocket.PingMessage, nil)
			client.mu.Unlock()
			if err != nil {
				return
			}

		case event := <-events:
			frame := WatchFrame{Type: "scan", Status: event}
			if watch := client.watched(); len(watch) > 0 {
				snapshot := s.controller.Snapshot()
				frame.Values = make(map[string]any, len(watch))
				for _, addr := range watch {
					if v, err := snapshot.GetValue(addr); err == nil {
						frame.Values[addr] = v
					}
				}
			}
			if err := client.writeJSON(frame); err != nil {
				return
			}
		}
	}
}
