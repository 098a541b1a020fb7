package signaling

import (
	"fmt"
	"math/rand"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	clientWriteWait      = 10 * time.Second
	clientPongWait       = 60 * time.Second
	clientPingPeriod     = (clientPongWait * 9) / 10
	clientInitialBackoff = 1 * time.Second
	clientMaxBackoff     = 60 * time.Second
	clientBackoffFactor  = 2.0
	clientJitterFactor   = 0.3
)

// ClientConfig holds the remote WebSocket signaling client's configuration.
type ClientConfig struct {
	ServerURL string
	RoomID    string
	APIKey    string // if set, an Auth envelope is sent on every reconnect
	DeviceID  string
}

// EnvelopeHandler processes one inbound envelope.
type EnvelopeHandler func(env SignalEnvelope)

// Client is a remote WebSocket signaling client mirroring the embedded
// fabric's grammar. It reconnects with exponential backoff, grounded on
// the reconnect/ping machinery the teacher's websocket client uses for its
// own control-plane connection.
type Client struct {
	cfg     ClientConfig
	handler EnvelopeHandler

	connMu sync.RWMutex
	conn   *websocket.Conn

	send chan SignalEnvelope
	done chan struct{}

	runningMu sync.RWMutex
	running   bool
	stopOnce  sync.Once
}

// NewClient constructs a remote signaling client. handler is invoked from
// a private goroutine for every inbound envelope.
func NewClient(cfg ClientConfig, handler EnvelopeHandler) *Client {
	return &Client{
		cfg:     cfg,
		handler: handler,
		send:    make(chan SignalEnvelope, 256),
		done:    make(chan struct{}),
	}
}

// Start runs the reconnect loop until Stop is called. Blocks the calling
// goroutine; callers typically invoke it via `go client.Start()`.
func (c *Client) Start() {
	c.runningMu.Lock()
	if c.running {
		c.runningMu.Unlock()
		return
	}
	c.running = true
	c.runningMu.Unlock()

	c.reconnectLoop()
}

// Stop closes the connection and terminates the reconnect loop.
func (c *Client) Stop() {
	c.stopOnce.Do(func() {
		c.runningMu.Lock()
		c.running = false
		c.runningMu.Unlock()
		close(c.done)

		c.connMu.Lock()
		if c.conn != nil {
			c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(clientWriteWait))
			c.conn.Close()
			c.conn = nil
		}
		c.connMu.Unlock()
	})
}

// Send enqueues an envelope for delivery; non-blocking, drops on a full
// queue rather than stalling the caller.
func (c *Client) Send(env SignalEnvelope) error {
	select {
	case c.send <- env:
		return nil
	case <-c.done:
		return fmt.Errorf("signaling client stopped")
	default:
		return fmt.Errorf("signaling client send queue full")
	}
}

func (c *Client) connect() error {
	u, err := url.Parse(c.cfg.ServerURL)
	if err != nil {
		return err
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	case "http":
		u.Scheme = "ws"
	}

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.Dial(u.String(), nil)
	if err != nil {
		return fmt.Errorf("signaling: dial %s: %w", u.String(), err)
	}

	c.connMu.Lock()
	c.conn = conn
	c.connMu.Unlock()

	log.Info("signaling client connected", "server", c.cfg.ServerURL)

	if c.cfg.APIKey != "" {
		nonce := fmt.Sprintf("%d", rand.Int63())
		ts := time.Now().Unix()
		c.Send(SignalEnvelope{
			Type:      KindAuth,
			DeviceID:  c.cfg.DeviceID,
			APIKey:    c.cfg.APIKey,
			Timestamp: ts,
			Nonce:     nonce,
			Token:     Token(c.cfg.APIKey, c.cfg.DeviceID, ts, nonce),
		})
	}
	c.Send(SignalEnvelope{Type: KindJoin, RoomID: c.cfg.RoomID})
	return nil
}

func (c *Client) reconnectLoop() {
	backoff := clientInitialBackoff
	for {
		select {
		case <-c.done:
			return
		default:
		}

		if err := c.connect(); err != nil {
			log.Warn("signaling connect failed", "error", err)
			jitter := time.Duration(float64(backoff) * clientJitterFactor * (rand.Float64()*2 - 1))
			sleep := backoff + jitter
			if sleep < 0 {
				sleep = backoff
			}
			select {
			case <-c.done:
				return
			case <-time.After(sleep):
			}
			backoff = time.Duration(float64(backoff) * clientBackoffFactor)
			if backoff > clientMaxBackoff {
				backoff = clientMaxBackoff
			}
			continue
		}

		backoff = clientInitialBackoff
		pumpDone := make(chan struct{})
		go c.writePump(pumpDone)
		c.readPump()
		close(pumpDone)

		c.runningMu.RLock()
		running := c.running
		c.runningMu.RUnlock()
		if !running {
			return
		}
	}
}

func (c *Client) readPump() {
	c.connMu.RLock()
	conn := c.conn
	c.connMu.RUnlock()
	if conn == nil {
		return
	}

	conn.SetReadDeadline(time.Now().Add(clientPongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(clientPongWait))
		return nil
	})

	for {
		var env SignalEnvelope
		if err := conn.ReadJSON(&env); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn("signaling read error", "error", err)
			}
			return
		}
		c.handler(env)
	}
}

func (c *Client) writePump(done chan struct{}) {
	ticker := time.NewTicker(clientPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-c.done:
			return
		case env := <-c.send:
			c.connMu.RLock()
			conn := c.conn
			c.connMu.RUnlock()
			if conn == nil {
				continue
			}
			conn.SetWriteDeadline(time.Now().Add(clientWriteWait))
			if err := conn.WriteJSON(env); err != nil {
				log.Warn("signaling write error", "error", err)
				return
			}
		case <-ticker.C:
			c.connMu.RLock()
			conn := c.conn
			c.connMu.RUnlock()
			if conn == nil {
				continue
			}
			conn.SetWriteDeadline(time.Now().Add(clientWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
