package signal

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/meetclone/backend/internal/core"
)

var ErrBackpressure = errors.New("backpressure")

const writeWait = 5 * time.Second

// Controller accepts signaling websockets and runs one session per
// connection.
type Controller struct {
	Registry   *core.Registry
	ReadLimit  int64
	PingPeriod time.Duration
}

func NewController(reg *core.Registry, readLimit int64, pingPeriod time.Duration) *Controller {
	return &Controller{Registry: reg, ReadLimit: readLimit, PingPeriod: pingPeriod}
}

// wsConn wraps a gorilla conn behind a bounded send queue. TrySend
// never blocks: a full queue or a closed connection drops the frame
// with an error the caller may ignore (fire-and-forget relay).
type wsConn struct {
	conn *websocket.Conn
	send chan core.Frame

	mu     sync.RWMutex
	closed bool
}

func newWSConn(conn *websocket.Conn) *wsConn {
	return &wsConn{conn: conn, send: make(chan core.Frame, 32)}
}

func (c *wsConn) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return errors.New("connection closed")
	}
	select {
	case c.send <- f:
	default:
		return ErrBackpressure
	}
	return nil
}

func (c *wsConn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
	c.mu.Unlock()
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// HandleSignal upgrades the request and starts the read/write pumps.
func (ctl *Controller) HandleSignal(ctx context.Context, c *gin.Context) {
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("ws upgrade")
		return
	}
	log.Info().Str("module", "signal").Str("remote", ws.RemoteAddr().String()).Msg("new WS connection")

	conn := newWSConn(ws)
	sess := newSession(ctl.Registry, conn)

	ctx, cancel := context.WithCancel(ctx)
	go func() {
		defer cancel()
		ctl.writePump(ctx, conn)
	}()
	go func() {
		defer cancel()
		ctl.readPump(ctx, conn, sess)
	}()
}
