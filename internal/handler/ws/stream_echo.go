package ws

import (
	"net/http"
	"sync"
	"time"

	"GovPulse/internal/gateway"
	xlogger "GovPulse/pkg/logger"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

const defaultWriteTimeout = 5 * time.Second

// StreamHandler exposes the fan-out gateway over a websocket endpoint.
// A client subscribes implicitly by connecting; it receives envelopes and
// is expected to send nothing back.
type StreamHandler struct {
	logger       *xlogger.Logger
	hub          *gateway.Hub
	upgrader     websocket.Upgrader
	writeTimeout time.Duration
}

func NewStreamHandler(logger *xlogger.Logger, hub *gateway.Hub, writeTimeout time.Duration) *StreamHandler {
	if writeTimeout <= 0 {
		writeTimeout = defaultWriteTimeout
	}
	return &StreamHandler{
		logger: logger,
		hub:    hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		writeTimeout: writeTimeout,
	}
}

func (h *StreamHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/ws/stream", h.Stream)
}

// Stream upgrades the connection and parks it on the hub until the client
// disconnects or a send fails.
func (h *StreamHandler) Stream(c echo.Context) error {
	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", xlogger.Error(err))
		return nil // upgrader already wrote the HTTP error
	}

	wc := newWSConn(conn, h.writeTimeout)
	lc, err := h.hub.Subscribe(wc)
	if err != nil {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseTryAgainLater, err.Error()),
			time.Now().Add(h.writeTimeout))
		_ = conn.Close()
		return nil
	}
	defer func() {
		h.hub.Unsubscribe(lc)
		_ = conn.Close()
	}()

	// Block on the read side to detect disconnects; inbound frames are
	// ignored. Idle connections stay open, bounded only by the transport's
	// own timeout policy.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return nil
		}
	}
}

// wsConn adapts a gorilla connection to the hub's Conn. Writes are
// serialized: the hub may broadcast from several topic readers at once.
type wsConn struct {
	mu      sync.Mutex
	conn    *websocket.Conn
	timeout time.Duration
}

func newWSConn(conn *websocket.Conn, timeout time.Duration) *wsConn {
	return &wsConn{conn: conn, timeout: timeout}
}

func (w *wsConn) WriteMessage(data []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	_ = w.conn.SetWriteDeadline(time.Now().Add(w.timeout))
	return w.conn.WriteMessage(websocket.TextMessage, data)
}

func (w *wsConn) Close() error {
	return w.conn.Close()
}
