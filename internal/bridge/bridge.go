// Package bridge maintains the WebSocket subscription to the simulation
// host's event stream and feeds received envelopes into the dispatcher.
package bridge

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	ws "github.com/gorilla/websocket"

	"github.com/InnovativeDigitalSolution/NASA-ow-simulator/internal/dispatcher"
)

const (
	maxReconnect = 10
	maxBackoff   = 30 * time.Second
	writeWait    = 10 * time.Second
)

// Envelope is one frame on the event stream.
type Envelope struct {
	Topic   string          `json:"topic"`
	Payload json.RawMessage `json:"payload"`
}

// subscribeMessage is sent after every (re)connect so the host knows which
// topics to stream.
type subscribeMessage struct {
	Op     string   `json:"op"`
	Topics []string `json:"topics"`
}

// Config holds the bridge's connection settings.
type Config struct {
	// URL is the host's event stream endpoint, e.g. ws://localhost:9090/events.
	URL string
	// APIKey is passed as the secret query parameter when non-empty.
	APIKey string
	// Topics lists the stream topics to subscribe to.
	Topics []string
}

// Client subscribes to the simulation host's event stream and dispatches
// every received envelope. It reconnects with exponential backoff and
// re-subscribes after every reconnect.
type Client struct {
	mu     sync.Mutex
	conn   *ws.Conn
	done   chan struct{}
	closed bool

	cfg        Config
	dispatcher *dispatcher.Dispatcher
	logger     *slog.Logger
}

// New creates a bridge client. Call Connect to start streaming.
func New(cfg Config, d *dispatcher.Dispatcher, logger *slog.Logger) *Client {
	return &Client{
		done:       make(chan struct{}),
		cfg:        cfg,
		dispatcher: d,
		logger:     logger,
	}
}

// Connect dials the event stream, subscribes, and starts the read loop.
func (c *Client) Connect() error {
	conn, err := c.dialOnce()
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	if err := c.subscribe(conn); err != nil {
		_ = conn.Close()
		return err
	}

	go c.readLoop()
	return nil
}

// dialOnce performs a single WebSocket dial with the secret query param.
func (c *Client) dialOnce() (*ws.Conn, error) {
	u, err := url.Parse(c.cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid websocket URL: %w", err)
	}
	if c.cfg.APIKey != "" {
		q := u.Query()
		q.Set("secret", c.cfg.APIKey)
		u.RawQuery = q.Encode()
	}

	conn, _, err := ws.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("websocket dial failed: %w", err)
	}
	return conn, nil
}

// subscribe announces the topic list to the host.
func (c *Client) subscribe(conn *ws.Conn) error {
	msg := subscribeMessage{Op: "subscribe", Topics: c.cfg.Topics}
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal subscribe message: %w", err)
	}
	if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	if err := conn.WriteMessage(ws.TextMessage, data); err != nil {
		return fmt.Errorf("websocket subscribe failed: %w", err)
	}
	return nil
}

// readLoop reads envelopes from the stream and dispatches them.
// It returns on error or shutdown; errors trigger a reconnect.
func (c *Client) readLoop() {
	for {
		c.mu.Lock()
		conn := c.conn
		c.mu.Unlock()

		if conn == nil {
			return
		}

		_, message, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-c.done:
				return
			default:
			}
			c.logger.Warn("WebSocket read error", "error", err)
			go c.reconnect()
			return
		}

		var env Envelope
		if err := json.Unmarshal(message, &env); err != nil {
			c.logger.Debug("undecodable stream frame", "raw", string(message))
			continue
		}
		if env.Topic == "" {
			continue
		}

		if !c.dispatcher.HasHandler(env.Topic) {
			c.logger.Debug("no handler for topic", "topic", env.Topic)
			continue
		}

		if _, err := c.dispatcher.Dispatch(dispatcher.Event{
			Topic:     env.Topic,
			Payload:   env.Payload,
			Timestamp: time.Now(),
		}); err != nil {
			c.logger.Error("event dispatch failed", "topic", env.Topic, "error", err)
		}
	}
}

// reconnect attempts to re-establish the stream with exponential backoff.
// On success it re-subscribes and restarts the read loop.
func (c *Client) reconnect() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
	c.mu.Unlock()

	backoff := time.Second
	for attempt := 1; attempt <= maxReconnect; attempt++ {
		select {
		case <-c.done:
			return
		default:
		}

		c.logger.Info("Reconnecting to event stream", "attempt", attempt, "backoff", backoff)
		time.Sleep(backoff)

		conn, err := c.dialOnce()
		if err != nil {
			c.logger.Warn("Reconnect dial failed", "attempt", attempt, "error", err)
			backoff *= 2
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
			continue
		}

		if err := c.subscribe(conn); err != nil {
			c.logger.Warn("Re-subscribe failed after reconnect", "error", err)
			_ = conn.Close()
			continue
		}

		c.mu.Lock()
		c.conn = conn
		c.mu.Unlock()

		c.logger.Info("Event stream reconnected", "attempt", attempt)
		go c.readLoop()
		return
	}

	c.logger.Error("Event stream reconnect failed after max attempts", "maxAttempts", maxReconnect)
}

// Close sends a WebSocket close frame and shuts down the read loop.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	close(c.done)
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()

	if conn != nil {
		_ = conn.WriteMessage(
			ws.CloseMessage,
			ws.FormatCloseMessage(ws.CloseNormalClosure, ""),
		)
		return conn.Close()
	}
	return nil
}
