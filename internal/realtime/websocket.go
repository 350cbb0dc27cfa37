package realtime

import (
	"errors"
	"sync"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/post-scheduler/internal/auth"
)

const tokenLocalKey = "realtime_token"

var (
	errChannelClosed  = errors.New("channel closed")
	errChannelPending = errors.New("channel not accepted")
)

// wsChannel adapts a fiber websocket connection to Conn.
// Writes are serialised and refused once the channel is closed, because the
// underlying connection is recycled when the handler returns.
type wsChannel struct {
	conn         *websocket.Conn
	writeTimeout time.Duration

	mu       sync.Mutex
	accepted bool
	closed   bool
}

func newWSChannel(conn *websocket.Conn, writeTimeout time.Duration) *wsChannel {
	return &wsChannel{conn: conn, writeTimeout: writeTimeout}
}

func (c *wsChannel) Accept() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errChannelClosed
	}
	c.accepted = true
	return nil
}

func (c *wsChannel) Send(msg string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errChannelClosed
	}
	if !c.accepted {
		return errChannelPending
	}
	if err := c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
		return err
	}
	return c.conn.WriteMessage(websocket.TextMessage, []byte(msg))
}

func (c *wsChannel) Close(code int, reason string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	deadline := time.Now().Add(c.writeTimeout)
	_ = c.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), deadline)
	return c.conn.Close()
}

func (c *wsChannel) Receive() error {
	_, _, err := c.conn.ReadMessage()
	return err
}

// TransportConfig tunes the websocket transport.
type TransportConfig struct {
	WriteTimeout time.Duration
	// AllowedOrigins restricts the Origin header of upgrades. Empty accepts any
	// origin; the token check in Registry.Connect still gates every channel.
	AllowedOrigins []string
}

// UpgradeGuard rejects plain HTTP requests and stashes the bearer token for the handler.
// The token comes from the token query parameter or an Authorization header.
func UpgradeGuard(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	token := c.Query("token")
	if token == "" {
		token, _ = auth.BearerToken(c.Get(fiber.HeaderAuthorization))
	}
	c.Locals(tokenLocalKey, token)
	return c.Next()
}

// Handler returns the fiber handler serving live channels.
func (e *Endpoint) Handler(cfg TransportConfig) fiber.Handler {
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 5 * time.Second
	}
	wsCfg := websocket.Config{}
	if len(cfg.AllowedOrigins) > 0 {
		wsCfg.Origins = cfg.AllowedOrigins
	}
	return websocket.New(func(conn *websocket.Conn) {
		token, _ := conn.Locals(tokenLocalKey).(string)
		ch := newWSChannel(conn, cfg.WriteTimeout)
		defer ch.Close(CloseNormal, "")
		e.Serve(ch, token)
	}, wsCfg)
}
