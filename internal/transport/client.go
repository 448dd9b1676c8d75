package transport

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// Client maintains a WebSocket session with automatic reconnection.
// Inbound text frames are decoded as Envelopes; binary frames are passed
// through raw. Delivery is reliable and ordered per connection; across
// reconnects the server re-establishes state.
type Client struct {
	wsURL  string
	logger zerolog.Logger

	reconnectDelay time.Duration
	maxBackoff     time.Duration

	mu        sync.Mutex
	conn      *websocket.Conn
	connected bool
	cancel    context.CancelFunc

	onEnvelope   func(Envelope)
	onBinary     func([]byte)
	onConnect    func()
	onDisconnect func()
}

// NewClient creates a client for wsURL. Query parameters should already be
// encoded into the URL.
func NewClient(wsURL string, reconnectDelay, maxBackoff time.Duration, logger zerolog.Logger) *Client {
	if reconnectDelay <= 0 {
		reconnectDelay = 3 * time.Second
	}
	if maxBackoff <= 0 {
		maxBackoff = 60 * time.Second
	}
	return &Client{
		wsURL:          wsURL,
		reconnectDelay: reconnectDelay,
		maxBackoff:     maxBackoff,
		logger:         logger.With().Str("component", "transport").Logger(),
	}
}

// SetEnvelopeHandler sets the callback for decoded event records.
func (c *Client) SetEnvelopeHandler(fn func(Envelope)) { c.onEnvelope = fn }

// SetBinaryHandler sets the callback for raw binary frames.
func (c *Client) SetBinaryHandler(fn func([]byte)) { c.onBinary = fn }

// SetConnectHandler sets the callback invoked after each (re)connect.
func (c *Client) SetConnectHandler(fn func()) { c.onConnect = fn }

// SetDisconnectHandler sets the callback invoked when a connection drops.
func (c *Client) SetDisconnectHandler(fn func()) { c.onDisconnect = fn }

// Connect starts the connection loop in the background.
func (c *Client) Connect(ctx context.Context) error {
	if _, err := url.Parse(c.wsURL); err != nil {
		return fmt.Errorf("parse url: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel

	go c.connectLoop(ctx)
	return nil
}

// Disconnect closes the connection and stops reconnecting.
func (c *Client) Disconnect() {
	if c.cancel != nil {
		c.cancel()
	}
	c.mu.Lock()
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	c.connected = false
	c.mu.Unlock()
}

// IsConnected returns connection status
func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// SendEnvelope writes one JSON event record.
func (c *Client) SendEnvelope(env Envelope) error {
	conn, err := c.current()
	if err != nil {
		return err
	}
	if err := conn.WriteJSON(env); err != nil {
		return fmt.Errorf("write record: %w", err)
	}
	return nil
}

// SendBinary writes one raw binary frame.
func (c *Client) SendBinary(data []byte) error {
	conn, err := c.current()
	if err != nil {
		return err
	}
	if err := conn.WriteMessage(websocket.BinaryMessage, data); err != nil {
		return fmt.Errorf("write binary: %w", err)
	}
	return nil
}

// SendText writes one bare text frame (the stop sentinel).
func (c *Client) SendText(text string) error {
	conn, err := c.current()
	if err != nil {
		return err
	}
	if err := conn.WriteMessage(websocket.TextMessage, []byte(text)); err != nil {
		return fmt.Errorf("write text: %w", err)
	}
	return nil
}

func (c *Client) current() (*websocket.Conn, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.connected || c.conn == nil {
		return nil, fmt.Errorf("not connected")
	}
	return c.conn, nil
}

// connectLoop maintains the connection with exponential backoff.
func (c *Client) connectLoop(ctx context.Context) {
	backoff := c.reconnectDelay

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		dialed, err := c.runConn(ctx)
		if dialed {
			// A successful session resets the backoff ladder.
			backoff = c.reconnectDelay
		}
		if err != nil {
			c.mu.Lock()
			c.connected = false
			c.mu.Unlock()

			if dialed && c.onDisconnect != nil {
				c.onDisconnect()
			}

			if ctx.Err() != nil {
				return
			}

			c.logger.Warn().Err(err).Dur("backoff", backoff).Msg("connection lost, reconnecting")

			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}

			backoff *= 2
			if backoff > c.maxBackoff {
				backoff = c.maxBackoff
			}
		}
	}
}

// runConn dials and pumps messages until the connection fails. The bool
// reports whether the dial itself succeeded.
func (c *Client) runConn(ctx context.Context) (bool, error) {
	c.logger.Info().Str("url", c.wsURL).Msg("connecting")

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.wsURL, nil)
	if err != nil {
		return false, fmt.Errorf("dial: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.connected = true
	c.mu.Unlock()

	c.logger.Info().Msg("connected")
	if c.onConnect != nil {
		c.onConnect()
	}

	for {
		select {
		case <-ctx.Done():
			conn.Close()
			return true, ctx.Err()
		default:
		}

		msgType, data, err := conn.ReadMessage()
		if err != nil {
			return true, fmt.Errorf("read: %w", err)
		}

		switch msgType {
		case websocket.TextMessage:
			env, err := DecodeEnvelope(data)
			if err != nil {
				// Malformed records are dropped, state unchanged.
				c.logger.Debug().Err(err).Int("bytes", len(data)).Msg("dropping malformed record")
				continue
			}
			if c.onEnvelope != nil {
				c.onEnvelope(env)
			}
		case websocket.BinaryMessage:
			if c.onBinary != nil {
				c.onBinary(data)
			}
		}
	}
}
