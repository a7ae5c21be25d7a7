package syncclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"satupapan/internal/protocol"
	"satupapan/pkg/logger"

	"github.com/gorilla/websocket"
)

// ErrEvicted is returned by Run when the room replaced this instance with a newer join of the same
// user. The connection is not re-established.
var ErrEvicted = errors.New("instance was replaced by a newer join")

const (
	writeWait        = 10 * time.Second
	handshakeTimeout = 10 * time.Second
)

// Conn is a self-healing connection to one whiteboard room. It re-sends the join after every
// reconnect; events emitted while it is down are dropped.
type Conn struct {
	policy RetryPolicy
	token  string
	join   protocol.JoinWhiteboard
	dialer *websocket.Dialer

	events chan protocol.Event
	status chan bool

	// mu guards ws and serializes writes.
	mu sync.Mutex
	ws *websocket.Conn
}

func NewConn(policy RetryPolicy, token string, join protocol.JoinWhiteboard) *Conn {
	return &Conn{
		policy: policy,
		token:  token,
		join:   join,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: handshakeTimeout,
		},
		events: make(chan protocol.Event, 256),
		status: make(chan bool, 8),
	}
}

// Events delivers decoded events from the room in arrival order.
func (c *Conn) Events() <-chan protocol.Event { return c.events }

// Status reports true after every successful join and false after every drop.
func (c *Conn) Status() <-chan bool { return c.status }

func (c *Conn) Online() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ws != nil
}

func (c *Conn) Emit(ev protocol.Event) {
	raw, err := protocol.Encode(ev)
	if err != nil {
		logger.Sugar.Errorf("Failed to encode %s: %v", ev.Name(), err)
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ws == nil {
		logger.Sugar.Debugf("Offline, dropping %s", ev.Name())
		return
	}
	c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.ws.WriteMessage(websocket.TextMessage, raw); err != nil {
		logger.Sugar.Warnf("Failed to send %s: %v", ev.Name(), err)
		// The read loop sees the closed socket and reconnects.
		c.ws.Close()
	}
}

// Run keeps the connection up until ctx is cancelled, the retry policy gives up or the instance
// is evicted.
func (c *Conn) Run(ctx context.Context) error {
	failures := 0
	for attempt := 0; ; attempt++ {
		endpoint := c.policy.Endpoint(attempt)
		ws, err := c.dial(ctx, endpoint)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			failures++
			logger.Sugar.Warnf("Connect attempt %d to %s failed: %v", failures, endpoint, err)
			if c.policy.exhausted(failures) {
				return fmt.Errorf("%w: %d attempts, last error: %v", ErrRetriesExhausted, failures, err)
			}
			if !sleep(ctx, c.policy.Backoff(failures-1)) {
				return ctx.Err()
			}
			continue
		}

		failures = 0
		if err := c.serve(ctx, ws); err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !sleep(ctx, c.policy.Backoff(0)) {
			return ctx.Err()
		}
	}
}

func (c *Conn) dial(ctx context.Context, endpoint string) (*websocket.Conn, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, err
	}
	if c.token != "" {
		q := u.Query()
		q.Set("token", c.token)
		u.RawQuery = q.Encode()
	}
	ws, _, err := c.dialer.DialContext(ctx, u.String(), nil)
	return ws, err
}

// serve joins the room over ws and pumps inbound events until the socket fails. It returns
// ErrEvicted when the room announces this instance's own departure.
func (c *Conn) serve(ctx context.Context, ws *websocket.Conn) error {
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			ws.Close()
		case <-stop:
		}
	}()

	raw, err := protocol.Encode(c.join)
	if err != nil {
		logger.Sugar.Errorf("Failed to encode join: %v", err)
		ws.Close()
		return nil
	}
	ws.SetWriteDeadline(time.Now().Add(writeWait))
	if err := ws.WriteMessage(websocket.TextMessage, raw); err != nil {
		logger.Sugar.Warnf("Failed to join %s: %v", c.join.DocumentID, err)
		ws.Close()
		return nil
	}

	c.mu.Lock()
	c.ws = ws
	c.mu.Unlock()
	logger.Sugar.Infof("Joined whiteboard %s as %s", c.join.DocumentID, c.join.InstanceID)
	c.notify(ctx, true)

	defer func() {
		c.mu.Lock()
		c.ws = nil
		c.mu.Unlock()
		ws.Close()
		c.notify(ctx, false)
	}()

	for {
		_, raw, err := ws.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				logger.Sugar.Warnf("Connection to %s lost: %v", c.join.DocumentID, err)
			}
			return nil
		}
		ev, err := protocol.Decode(raw)
		if err != nil {
			logger.Sugar.Warnf("Ignoring frame: %v", err)
			continue
		}
		if left, ok := ev.(protocol.UserLeft); ok && left.Route == c.join.Route {
			logger.Sugar.Warnf("Instance %s was replaced in %s by a newer join", c.join.InstanceID, c.join.DocumentID)
			return ErrEvicted
		}
		select {
		case c.events <- ev:
		case <-ctx.Done():
			return nil
		}
	}
}

func (c *Conn) notify(ctx context.Context, online bool) {
	select {
	case c.status <- online:
	case <-ctx.Done():
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
