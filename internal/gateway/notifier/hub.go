package notifier

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"verge/internal/logger"
)

const (
	writeWait      = 2 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	clientBuffer   = 64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Hub broadcasts events to connected websocket clients. A client that
// cannot keep up is disconnected instead of stalling the hub.
type Hub struct {
	register   chan *client
	unregister chan *client
	broadcast  chan Event
	done       chan struct{}
	clients    map[*client]struct{}
}

type client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan Event
}

func NewHub() *Hub {
	return &Hub{
		register:   make(chan *client),
		unregister: make(chan *client),
		broadcast:  make(chan Event, 256),
		done:       make(chan struct{}),
		clients:    make(map[*client]struct{}),
	}
}

// Run is the hub loop. It returns when ctx is done.
func (h *Hub) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			close(h.done)
			for c := range h.clients {
				delete(h.clients, c)
				close(c.send)
			}
			return nil
		case c := <-h.register:
			h.clients[c] = struct{}{}
		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
		case evt := <-h.broadcast:
			for c := range h.clients {
				select {
				case c.send <- evt:
				default:
					delete(h.clients, c)
					close(c.send)
				}
			}
		}
	}
}

func (h *Hub) Notify(_ context.Context, evt Event) {
	select {
	case h.broadcast <- evt:
	default:
		logger.Warnf("websocket hub backlog full, dropping %s", evt.Type)
	}
}

// Handle upgrades a gin request to a websocket subscription.
func (h *Hub) Handle(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Warnf("websocket upgrade failed: %v", err)
		return
	}
	cl := &client{hub: h, conn: conn, send: make(chan Event, clientBuffer)}
	select {
	case h.register <- cl:
	case <-h.done:
		conn.Close()
		return
	}
	go cl.writePump()
	go cl.readPump()
}

// readPump only drains control frames; clients do not send commands.
func (c *client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Debugf("websocket read: %v", err)
			}
			return
		}
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case evt, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(evt); err != nil {
				logger.Debugf("websocket write: %v", err)
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
