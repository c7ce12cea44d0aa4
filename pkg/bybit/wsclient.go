package bybit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

const (
	reconnectDelay = 3 * time.Second
	pingInterval   = 20 * time.Second
	// Bybit spot accepts at most 10 args per subscribe request.
	maxArgsPerSubscribe = 10
)

// WSClient handles WebSocket connection to Bybit and message routing.
type WSClient struct {
	url     string
	args    []string
	handler func([]byte)
	logger  *zap.Logger

	mu     sync.Mutex // guards conn and serializes writes
	conn   *websocket.Conn
	dialer *websocket.Dialer
}

// NewWSClient creates a new WebSocket client with the given URL and logger.
func NewWSClient(url string, logger *zap.Logger) *WSClient {
	return &WSClient{
		url:    url,
		logger: logger,
		dialer: websocket.DefaultDialer,
	}
}

// TickerTopics returns the ticker topics for the given exchange symbols.
func TickerTopics(symbols []string) []string {
	return lo.Map(symbols, func(s string, _ int) string {
		return "tickers." + s
	})
}

// SetMessageHandler sets the function to handle incoming messages.
func (c *WSClient) SetMessageHandler(h func([]byte)) {
	c.handler = h
}

// Connect establishes the WebSocket connection and subscribes to args.
// It does not start the listener.
func (c *WSClient) Connect(args []string) error {
	c.args = args
	if err := c.dial(); err != nil {
		c.logger.Error("Failed to connect to WebSocket", zap.String("url", c.url), zap.Error(err))
		return err
	}
	c.logger.Info("WebSocket connected", zap.String("url", c.url), zap.Int("topics", len(args)))
	return nil
}

// Listen reads messages until ctx is cancelled, reconnecting on read errors.
func (c *WSClient) Listen(ctx context.Context) {
	go func() {
		<-ctx.Done()
		c.close()
	}()
	go c.keepAlive(ctx)

	for {
		conn := c.current()
		if conn == nil {
			return
		}

		_, msg, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.logger.Error("WebSocket read error", zap.Error(err))

			// Retry reconnecting until the context ends
			for {
				select {
				case <-ctx.Done():
					return
				case <-time.After(reconnectDelay):
				}
				if err := c.dial(); err != nil {
					c.logger.Warn("Retrying reconnect...", zap.Error(err))
					continue
				}
				c.logger.Info("Reconnected successfully")
				break
			}
			continue
		}

		if c.handler != nil {
			c.handler(msg)
		}
	}
}

func (c *WSClient) dial() error {
	newConn, _, err := c.dialer.Dial(c.url, nil)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// Close the old connection if it exists
	if c.conn != nil {
		_ = c.conn.Close()
	}
	c.conn = newConn

	for _, chunk := range lo.Chunk(c.args, maxArgsPerSubscribe) {
		subMsg := map[string]interface{}{
			"op":   "subscribe",
			"args": chunk,
		}
		if err := c.conn.WriteJSON(subMsg); err != nil {
			return fmt.Errorf("websocket subscribe failed: %w", err)
		}
	}
	return nil
}

func (c *WSClient) keepAlive(ctx context.Context) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		c.mu.Lock()
		if c.conn != nil {
			if err := c.conn.WriteJSON(map[string]string{"op": "ping"}); err != nil {
				c.logger.Warn("WebSocket ping failed", zap.Error(err))
			}
		}
		c.mu.Unlock()
	}
}

func (c *WSClient) current() *websocket.Conn {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn
}

func (c *WSClient) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		_ = c.conn.Close()
	}
}
