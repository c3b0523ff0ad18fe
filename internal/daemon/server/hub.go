package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/AdbAutoPlayer/shell/internal/daemon/window"
	"github.com/AdbAutoPlayer/shell/internal/events"
	"github.com/AdbAutoPlayer/shell/internal/logging"
)

const (
	writeWait      = 5 * time.Second
	clientSendSize = 64
)

// forwarded lists the bus events pushed to every connected UI. kill-python
// is written by the server itself, ahead of the close-response it precedes.
var forwarded = []events.Name{events.LogMessage, events.WindowIsVisible}

type client struct {
	id   string
	conn *websocket.Conn
	send chan Frame
	once sync.Once
}

func (c *client) close() {
	c.once.Do(func() { close(c.send) })
}

// Hub tracks the UI connections and fans frames out to them.
type Hub struct {
	log      *slog.Logger
	upgrader websocket.Upgrader
	window   *RemoteWindow
	subs     []<-chan events.Event

	mu      sync.RWMutex
	clients map[string]*client
	onFrame func(c *client, f Frame)
	onLeave func()
}

// NewHub creates a hub forwarding events from bus. The bus subscriptions are
// made here so no event emitted before Run is lost.
func NewHub(bus *events.Bus) *Hub {
	h := &Hub{
		log:     logging.For("bridge"),
		clients: make(map[string]*client),
		upgrader: websocket.Upgrader{
			CheckOrigin: checkOrigin,
		},
	}
	h.window = newRemoteWindow(h)
	if bus != nil {
		for _, name := range forwarded {
			h.subs = append(h.subs, bus.Subscribe(name))
		}
	}
	return h
}

// Window returns the main window as driven through the connected UI.
func (h *Hub) Window() *RemoteWindow {
	return h.window
}

// ClientCount returns the number of connected UIs.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Run forwards bus events to the connected UIs until ctx is done.
func (h *Hub) Run(ctx context.Context) {
	merged := make(chan events.Event, events.DefaultBuffer)
	for _, ch := range h.subs {
		go func() {
			for e := range ch {
				select {
				case merged <- e:
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case e := <-merged:
			h.broadcast(eventFrame(e))
		}
	}
}

// ServeHTTP upgrades the request and serves one UI connection.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", "error", err)
		return
	}

	c := &client{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan Frame, clientSendSize),
	}
	h.mu.Lock()
	h.clients[c.id] = c
	h.mu.Unlock()
	h.log.Info("ui connected", "client", c.id, "remote", r.RemoteAddr)

	go h.writePump(c)
	h.readPump(c)
}

func (h *Hub) readPump(c *client) {
	defer func() {
		h.mu.Lock()
		delete(h.clients, c.id)
		onLeave := h.onLeave
		h.mu.Unlock()
		c.close()
		_ = c.conn.Close()
		h.log.Info("ui disconnected", "client", c.id)
		if onLeave != nil {
			onLeave()
		}
	}()

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.log.Warn("websocket read error", "client", c.id, "error", err)
			}
			return
		}

		var f Frame
		if err := json.Unmarshal(data, &f); err != nil || f.Type == "" {
			h.log.Debug("skipping malformed frame", "client", c.id)
			continue
		}

		h.mu.RLock()
		onFrame := h.onFrame
		h.mu.RUnlock()
		if onFrame != nil {
			onFrame(c, f)
		}
	}
}

func (h *Hub) writePump(c *client) {
	for f := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteJSON(f); err != nil {
			h.log.Debug("websocket write failed", "client", c.id, "error", err)
			_ = c.conn.Close()
			// Drain so senders never block on a dead client.
			for range c.send {
			}
			return
		}
	}
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
}

// broadcast queues f for every client and reports how many accepted it.
func (h *Hub) broadcast(f Frame) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, c := range h.clients {
		if h.trySend(c, f) {
			n++
		}
	}
	return n
}

func (h *Hub) reply(c *client, f Frame) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if _, ok := h.clients[c.id]; ok {
		h.trySend(c, f)
	}
}

// trySend must be called with h.mu held. Clients leave the map before their
// send channel is closed.
func (h *Hub) trySend(c *client, f Frame) bool {
	select {
	case c.send <- f:
		return true
	default:
		h.log.Warn("dropping frame for slow client", "client", c.id, "type", f.Type)
		return false
	}
}

// command sends a window command to every connected UI.
func (h *Hub) command(name string, payload interface{}) error {
	f := Frame{Type: FrameCommand, ID: uuid.NewString(), Name: name}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		f.Payload = data
	}
	if h.broadcast(f) == 0 {
		return window.ErrNoWindow
	}
	return nil
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, c := range h.clients {
		delete(h.clients, id)
		c.close()
	}
}

// checkOrigin admits the bundled UI and local pages only.
func checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	switch u.Scheme {
	case "tauri", "wails", "file":
		return true
	}
	switch u.Hostname() {
	case "localhost", "127.0.0.1", "::1", "tauri.localhost", "wails.localhost":
		return true
	}
	return false
}
