package devstack

import (
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/aisocialapp/appcore/internal/platform"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// wsFrame mirrors the change-channel wire format.
type wsFrame struct {
	Action     string          `json:"action,omitempty"`
	Type       string          `json:"type,omitempty"`
	Collection string          `json:"collection,omitempty"`
	Op         string          `json:"op,omitempty"`
	Record     platform.Record `json:"record,omitempty"`
}

// Hub fans change events out to websocket subscribers. Each connection
// announces the collections it wants and receives only those.
type Hub struct {
	log *zap.Logger

	mu      sync.Mutex
	clients map[*wsClient]struct{}
}

type wsClient struct {
	conn *websocket.Conn

	writeMu     sync.Mutex
	mu          sync.Mutex
	collections map[string]struct{}
}

// NewHub creates an empty hub.
func NewHub(log *zap.Logger) *Hub {
	return &Hub{log: log, clients: make(map[*wsClient]struct{})}
}

// Serve upgrades the request and pumps subscription commands until the
// connection drops.
func (h *Hub) Serve(c echo.Context) error {
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}
	client := &wsClient{conn: conn, collections: make(map[string]struct{})}

	h.mu.Lock()
	h.clients[client] = struct{}{}
	h.mu.Unlock()
	h.log.Debug("realtime client connected")

	defer func() {
		h.mu.Lock()
		delete(h.clients, client)
		h.mu.Unlock()
		conn.Close()
		h.log.Debug("realtime client disconnected")
	}()

	for {
		var frame wsFrame
		if err := conn.ReadJSON(&frame); err != nil {
			return nil
		}
		switch frame.Action {
		case "subscribe":
			client.mu.Lock()
			client.collections[frame.Collection] = struct{}{}
			client.mu.Unlock()
		case "unsubscribe":
			client.mu.Lock()
			delete(client.collections, frame.Collection)
			client.mu.Unlock()
		}
	}
}

// Broadcast sends one change event to every subscriber of the
// collection. Connections that fail to take the write are dropped.
func (h *Hub) Broadcast(collection, op string, record platform.Record) {
	frame := wsFrame{Type: "change", Collection: collection, Op: op, Record: record}

	h.mu.Lock()
	clients := make([]*wsClient, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	h.mu.Unlock()

	for _, client := range clients {
		client.mu.Lock()
		_, wants := client.collections[collection]
		client.mu.Unlock()
		if !wants {
			continue
		}
		client.writeMu.Lock()
		err := client.conn.WriteJSON(frame)
		client.writeMu.Unlock()
		if err != nil {
			h.log.Debug("dropping realtime client", zap.Error(err))
			client.conn.Close()
			h.mu.Lock()
			delete(h.clients, client)
			h.mu.Unlock()
		}
	}
}
