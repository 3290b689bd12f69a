package signal

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/dkeye/chatline/internal/app"
	"github.com/dkeye/chatline/internal/core"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// Options tunes the websocket transport.
type Options struct {
	ReadLimit    int64
	PingPeriod   time.Duration
	SendBuffer   int
	RateLimit    int
	RateInterval time.Duration
}

func (o Options) withDefaults() Options {
	if o.ReadLimit <= 0 {
		o.ReadLimit = 4 << 20
	}
	if o.PingPeriod <= 0 {
		o.PingPeriod = 54 * time.Second
	}
	if o.SendBuffer <= 0 {
		o.SendBuffer = 64
	}
	if o.RateLimit <= 0 {
		o.RateLimit = 20
	}
	if o.RateInterval <= 0 {
		o.RateInterval = time.Second
	}
	return o
}

// pongWait is how long a connection may stay silent before it is dropped.
func (o Options) pongWait() time.Duration {
	return o.PingPeriod * 10 / 9
}

type WsSignalConn struct {
	conn *websocket.Conn
	send chan core.Frame

	mu     sync.RWMutex
	closed bool
}

func (c *WsSignalConn) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return core.ErrConnClosed
	}
	select {
	case c.send <- f:
	default:
		return core.ErrBackpressure
	}
	return nil
}

func (c *WsSignalConn) Close() {
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

// SignalWSController owns every live websocket and feeds their events to the
// orchestrator through a single hub goroutine.
type SignalWSController struct {
	Orch    *app.Orchestrator
	Conns   *Conns
	Hub     *Hub
	Limiter *RateLimiter

	opts     Options
	upgrader websocket.Upgrader
}

// NewSignalWSController builds the transport and the orchestrator on top of
// it. Run must be called for events to be processed.
func NewSignalWSController(policy app.Policy, opts Options) *SignalWSController {
	opts = opts.withDefaults()
	conns := NewConns()
	return &SignalWSController{
		Orch:    app.NewOrchestrator(conns, policy),
		Conns:   conns,
		Hub:     NewHub(256),
		Limiter: NewRateLimiter(opts.RateLimit, opts.RateInterval),
		opts:    opts,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Run processes events until ctx is done.
func (ctl *SignalWSController) Run(ctx context.Context) {
	ctl.Hub.Run(ctx)
}

func (ctl *SignalWSController) HandleSignal(ctx context.Context, c *gin.Context) {
	ws, err := ctl.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("ws upgrade")
		return
	}
	ctl.Serve(ctx, ws, c.GetString("client_token"))
}

// Serve attaches an upgraded websocket as a new connection.
func (ctl *SignalWSController) Serve(ctx context.Context, ws *websocket.Conn, token string) core.ConnID {
	sid := core.ConnID(uuid.NewString())
	log.Info().Str("module", "signal").Str("sid", string(sid)).Str("token", token).Msg("new WS connection")

	conn := &WsSignalConn{
		conn: ws,
		send: make(chan core.Frame, ctl.opts.SendBuffer),
	}
	ctl.Conns.Add(sid, conn)
	_ = ctl.Conns.SendTo(sid, app.EventConnected, app.Connected{SocketID: sid})

	ctx, cancel := context.WithCancel(ctx)
	go ctl.writePump(ctx, sid, conn)
	go func() {
		defer cancel()
		ctl.readPump(ctx, sid, conn)
	}()
	return sid
}

// disconnect runs on the hub so it is ordered after the connection's last event.
func (ctl *SignalWSController) disconnect(sid core.ConnID) {
	ctl.Hub.Post(func() {
		ctl.Conns.Remove(sid)
		ctl.Limiter.Forget(sid)
		ctl.Orch.OnDisconnect(sid)
		log.Info().Str("module", "signal").Str("sid", string(sid)).Msg("disconnected")
	})
}
