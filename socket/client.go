package socket

import (
	"context"
	"errors"
	"net/http"
	"time"

	"satupapan/internal/protocol"
	"satupapan/internal/shape"
	"satupapan/pkg/logger"

	"github.com/gorilla/websocket"
)

// Client is one websocket connection. A connection is joined to at most one (document, instance)
// at a time; docID, instanceID and gone are owned by the hub goroutine.
type Client struct {
	Hub      *Hub
	Conn     *websocket.Conn
	UserID   string
	Identity protocol.Identity
	Send     chan []byte

	docID      string
	instanceID string
	gone       bool
}

func (c *Client) bind(r protocol.Route) {
	c.docID = r.DocumentID
	c.instanceID = r.InstanceID
}

func (c *Client) unbind() {
	c.docID = ""
	c.instanceID = ""
}

func (c *Client) boundTo(r protocol.Route) bool {
	return c.docID != "" && c.docID == r.DocumentID && c.instanceID == r.InstanceID
}

// enqueue hands a frame to the write pump without blocking. It reports false when the buffer is
// full.
func (c *Client) enqueue(payload []byte) bool {
	if c.gone {
		return true
	}
	select {
	case c.Send <- payload:
		return true
	default:
		return false
	}
}

func (h *Hub) upgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  h.opts.ReadBufferSize,
		WriteBufferSize: h.opts.WriteBufferSize,
		// Origins are filtered by the CORS middleware in front of the router.
		CheckOrigin: func(r *http.Request) bool { return true },
	}
}

// ServeWs upgrades an authenticated request. The connection joins rooms through
// join-whiteboard events.
func ServeWs(hub *Hub, w http.ResponseWriter, r *http.Request, identity protocol.Identity) {
	up := hub.upgrader()
	conn, err := up.Upgrade(w, r, nil)
	if err != nil {
		logger.Sugar.Error(err)
		return
	}

	client := &Client{
		Hub:      hub,
		Conn:     conn,
		UserID:   identity.ID,
		Identity: identity,
		Send:     make(chan []byte, hub.opts.SendBufferSize),
	}
	logger.Sugar.Infof("Client connected: user=%s remote=%s", client.UserID, r.RemoteAddr)

	go client.writePump()
	go client.readPump()
}

func (c *Client) readPump() {
	defer func() {
		select {
		case c.Hub.Unregister <- c:
		case <-c.Hub.done:
		}
		c.Conn.Close()
	}()

	if c.Hub.opts.MaxMessageSize > 0 {
		c.Conn.SetReadLimit(c.Hub.opts.MaxMessageSize)
	}
	if wait := c.pongWait(); wait > 0 {
		c.Conn.SetReadDeadline(time.Now().Add(wait))
		c.Conn.SetPongHandler(func(string) error {
			c.Conn.SetReadDeadline(time.Now().Add(wait))
			return nil
		})
	}

	for {
		_, raw, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Sugar.Errorf("error: %v", err)
			}
			return
		}

		ev, err := protocol.Decode(raw)
		if err != nil {
			if errors.Is(err, protocol.ErrUnknownEvent) {
				logger.Sugar.Warnf("Ignoring frame from %s: %v", c.UserID, err)
			} else {
				logger.Sugar.Errorf("Error decoding message from %s: %v", c.UserID, err)
			}
			continue
		}

		in := inbound{client: c, event: ev}
		if claimed, isJoin := ev.(protocol.JoinWhiteboard); isJoin {
			join, seed, ok := c.authorize(claimed)
			if !ok {
				continue
			}
			in.event = join
			in.seed = seed
		}

		select {
		case c.Hub.Inbound <- in:
		case <-c.Hub.done:
			return
		}
	}
}

// authorize replaces the client-claimed identity and permission of a join with the
// server-authoritative ones and loads the stored shapes in case the join opens the room.
func (c *Client) authorize(join protocol.JoinWhiteboard) (protocol.JoinWhiteboard, []shape.Shape, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), c.Hub.opts.StoreTimeout)
	defer cancel()

	access, err := c.Hub.access.Access(ctx, join.DocumentID, c.UserID)
	if err != nil {
		logger.Sugar.Errorf("Database error checking access to %s for %s: %v", join.DocumentID, c.UserID, err)
		return join, nil, false
	}
	if !access.Exists {
		logger.Sugar.Warnf("Join rejected: Whiteboard %s not found", join.DocumentID)
		return join, nil, false
	}
	if !access.CanView {
		logger.Sugar.Warnf("Join rejected: User %s has no access to %s", c.UserID, join.DocumentID)
		return join, nil, false
	}

	join.Identity = c.Identity
	join.CanEdit = access.CanEdit

	var seed []shape.Shape
	if c.Hub.store != nil {
		seed, err = c.Hub.store.LoadShapes(ctx, join.DocumentID)
		if err != nil {
			logger.Sugar.Errorf("Failed to load shapes of %s: %v", join.DocumentID, err)
			seed = nil
		}
	}
	return join, seed, true
}

func (c *Client) pongWait() time.Duration {
	if c.Hub.opts.PingInterval <= 0 {
		return 0
	}
	return 2 * c.Hub.opts.PingInterval
}

func (c *Client) writePump() {
	interval := c.Hub.opts.PingInterval
	if interval <= 0 {
		interval = DefaultOptions().PingInterval
	}
	ticker := time.NewTicker(interval)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.setWriteDeadline()
			if !ok {
				// The hub closed the channel.
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.setWriteDeadline()
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) setWriteDeadline() {
	if c.Hub.opts.WriteTimeout > 0 {
		c.Conn.SetWriteDeadline(time.Now().Add(c.Hub.opts.WriteTimeout))
	}
}
