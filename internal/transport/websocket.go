// SPDX-License-Identifier: MIT
package transport

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	applog "spectrum/internal/log"

	"github.com/gorilla/websocket"
)

const (
	// WebSocketPath is the endpoint clients connect to.
	WebSocketPath = "/ws"

	broadcastQueue = 256
	writeTimeout   = time.Second

	// DefaultMinSendInterval caps broadcasts at ~120 per second.
	DefaultMinSendInterval = 8 * time.Millisecond
)

// WebSocketTransport implements the Transport interface for WebSocket
// connections. Every message passed to Send is encoded as JSON once and
// broadcast to all connected clients.
type WebSocketTransport struct {
	addr     string
	upgrader websocket.Upgrader
	server   *http.Server
	listener net.Listener

	clients   map[*websocket.Conn]bool
	clientsMu sync.Mutex

	broadcast chan []byte
	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup

	sendMu          sync.Mutex
	lastSend        time.Time
	minSendInterval time.Duration
	dropped         uint64
}

// NewWebSocketTransport creates a WebSocketTransport for addr. The broadcast
// loop runs immediately; call Start to accept connections on addr, or mount
// Handler on an existing server.
func NewWebSocketTransport(addr string) *WebSocketTransport {
	wst := &WebSocketTransport{
		addr: addr,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		clients:         make(map[*websocket.Conn]bool),
		broadcast:       make(chan []byte, broadcastQueue),
		done:            make(chan struct{}),
		minSendInterval: DefaultMinSendInterval,
	}

	wst.wg.Add(1)
	go wst.handleBroadcasts()
	return wst
}

// SetMinSendInterval changes the rate limit applied by Send. Zero disables it.
func (wst *WebSocketTransport) SetMinSendInterval(d time.Duration) {
	wst.sendMu.Lock()
	wst.minSendInterval = max(d, 0)
	wst.sendMu.Unlock()
}

// Handler returns the HTTP handler serving WebSocketPath.
func (wst *WebSocketTransport) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(WebSocketPath, wst.handleWebSocket)
	return mux
}

// Start binds the listen address and serves connections in the background.
// Bind errors are returned directly.
func (wst *WebSocketTransport) Start() error {
	ln, err := net.Listen("tcp", wst.addr)
	if err != nil {
		return fmt.Errorf("WebSocketTransport: listen on %s: %w", wst.addr, err)
	}
	wst.listener = ln
	wst.server = &http.Server{
		Handler:           wst.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		applog.Infof("WebSocketTransport: Serving ws://%s%s", ln.Addr(), WebSocketPath)
		if err := wst.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			applog.Errorf("WebSocketTransport: Server error: %v", err)
		}
	}()
	return nil
}

// Addr returns the bound address once started, or the configured one.
func (wst *WebSocketTransport) Addr() string {
	if wst.listener != nil {
		return wst.listener.Addr().String()
	}
	return wst.addr
}

// ClientCount returns the number of connected clients.
func (wst *WebSocketTransport) ClientCount() int {
	wst.clientsMu.Lock()
	defer wst.clientsMu.Unlock()
	return len(wst.clients)
}

func (wst *WebSocketTransport) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	select {
	case <-wst.done:
		http.Error(w, "shutting down", http.StatusServiceUnavailable)
		return
	default:
	}

	conn, err := wst.upgrader.Upgrade(w, r, nil)
	if err != nil {
		applog.Warnf("WebSocketTransport: Upgrade error: %v", err)
		return
	}

	wst.clientsMu.Lock()
	wst.clients[conn] = true
	total := len(wst.clients)
	wst.clientsMu.Unlock()
	applog.WithFields(applog.Fields{"remote": conn.RemoteAddr().String(), "clients": total}).
		Info("WebSocketTransport: Client connected")

	// Clients only listen; reading surfaces the close.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				wst.removeClient(conn)
				return
			}
		}
	}()
}

func (wst *WebSocketTransport) removeClient(conn *websocket.Conn) {
	wst.clientsMu.Lock()
	_, ok := wst.clients[conn]
	delete(wst.clients, conn)
	total := len(wst.clients)
	wst.clientsMu.Unlock()

	if ok {
		conn.Close()
		applog.Debugf("WebSocketTransport: Client disconnected, total: %d", total)
	}
}

func (wst *WebSocketTransport) handleBroadcasts() {
	defer wst.wg.Done()
	for {
		select {
		case msg := <-wst.broadcast:
			wst.clientsMu.Lock()
			for client := range wst.clients {
				client.SetWriteDeadline(time.Now().Add(writeTimeout))
				if err := client.WriteMessage(websocket.TextMessage, msg); err != nil {
					applog.Warnf("WebSocketTransport: Error sending to client: %v", err)
					client.Close()
					delete(wst.clients, client)
				}
			}
			wst.clientsMu.Unlock()
		case <-wst.done:
			return
		}
	}
}

// Send queues data for broadcast. Messages arriving faster than the minimum
// send interval, or while the queue is full, are dropped without error.
func (wst *WebSocketTransport) Send(data any) error {
	select {
	case <-wst.done:
		return ErrClosed
	default:
	}

	wst.sendMu.Lock()
	now := time.Now()
	if wst.minSendInterval > 0 && now.Sub(wst.lastSend) < wst.minSendInterval {
		wst.dropped++
		wst.sendMu.Unlock()
		return nil
	}
	wst.lastSend = now
	wst.sendMu.Unlock()

	msg, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("WebSocketTransport: encode %T: %w", data, err)
	}

	select {
	case wst.broadcast <- msg:
	default:
		wst.sendMu.Lock()
		wst.dropped++
		wst.sendMu.Unlock()
	}
	return nil
}

// Dropped returns the number of messages discarded by Send.
func (wst *WebSocketTransport) Dropped() uint64 {
	wst.sendMu.Lock()
	defer wst.sendMu.Unlock()
	return wst.dropped
}

// Close disconnects all clients and shuts down the server.
func (wst *WebSocketTransport) Close() error {
	var err error
	wst.closeOnce.Do(func() {
		applog.Debugf("WebSocketTransport: Closing server")
		close(wst.done)
		wst.wg.Wait()

		wst.clientsMu.Lock()
		for client := range wst.clients {
			client.Close()
		}
		clear(wst.clients)
		wst.clientsMu.Unlock()

		if wst.server != nil {
			err = wst.server.Close()
		}
	})
	return err
}

var _ Transport = (*WebSocketTransport)(nil)
