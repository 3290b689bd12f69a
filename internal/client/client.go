// Package client is a Go client for the chat relay: it keeps the websocket,
// mirrors the call state machine locally and debounces typing indicators.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/dkeye/chatline/internal/adapters/signal"
	"github.com/dkeye/chatline/internal/app"
	"github.com/dkeye/chatline/internal/core"
	"github.com/dkeye/chatline/internal/domain"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const DefaultTypingDelay = 800 * time.Millisecond

// Callbacks are invoked from the client's read goroutine. Any may be nil.
type Callbacks struct {
	OnState    func(Transition)
	OnIncoming func(app.IncomingCall)
	OnChat     func(domain.ChatMessage)
	OnTyping   func(domain.Typing)
	OnClosed   func(error)
}

type Options struct {
	URL         string
	Name        string
	Dialer      *websocket.Dialer
	TypingDelay time.Duration
	Callbacks   Callbacks
}

type Client struct {
	name   string
	sid    core.ConnID
	conn   *websocket.Conn
	calls  *CallMachine
	cb     Callbacks
	logger zerolog.Logger

	wmu sync.Mutex

	tmu         sync.Mutex
	typing      bool
	typingTimer *time.Timer
	typingDelay time.Duration

	echoes echoes

	done chan struct{}
}

// Dial connects, waits for the server-assigned socket id and registers
// opts.Name.
func Dial(ctx context.Context, opts Options) (*Client, error) {
	name, err := domain.NormalizeUsername(opts.Name)
	if err != nil {
		return nil, err
	}
	dialer := opts.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	conn, _, err := dialer.DialContext(ctx, opts.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", opts.URL, err)
	}

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetReadDeadline(deadline)
	}
	var env signal.Envelope
	if err := conn.ReadJSON(&env); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("read hello: %w", err)
	}
	_ = conn.SetReadDeadline(time.Time{})
	var hello app.Connected
	if env.Event != app.EventConnected || json.Unmarshal(env.Data, &hello) != nil || hello.SocketID == "" {
		_ = conn.Close()
		return nil, fmt.Errorf("unexpected first event %q", env.Event)
	}

	delay := opts.TypingDelay
	if delay <= 0 {
		delay = DefaultTypingDelay
	}
	c := &Client{
		name:        name,
		sid:         hello.SocketID,
		conn:        conn,
		calls:       NewCallMachine(name),
		cb:          opts.Callbacks,
		logger:      log.With().Str("module", "client").Str("name", name).Str("sid", string(hello.SocketID)).Logger(),
		typingDelay: delay,
		done:        make(chan struct{}),
	}
	if err := c.emit(app.EventRegister, name); err != nil {
		_ = conn.Close()
		return nil, err
	}
	go c.readLoop()
	return c, nil
}

func (c *Client) Name() string          { return c.name }
func (c *Client) SocketID() core.ConnID { return c.sid }
func (c *Client) State() State          { return c.calls.State() }
func (c *Client) Done() <-chan struct{} { return c.done }

// Close ends any call in progress and closes the connection.
func (c *Client) Close() error {
	if out, tr, err := c.calls.Hangup(); err == nil {
		_ = c.emit(out.Event, out.Data)
		c.notify(&tr)
	}
	c.wmu.Lock()
	_ = c.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	c.wmu.Unlock()
	return c.conn.Close()
}

func (c *Client) emit(event string, data any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encode %s: %w", event, err)
	}
	c.wmu.Lock()
	defer c.wmu.Unlock()
	if err := c.conn.WriteJSON(signal.Envelope{Event: event, Data: raw}); err != nil {
		return fmt.Errorf("send %s: %w", event, err)
	}
	return nil
}

func (c *Client) notify(tr *Transition) {
	if tr == nil {
		return
	}
	c.logger.Info().Str("from", tr.From.String()).Str("to", tr.To.String()).Str("call", string(tr.CallID)).Str("reason", tr.Reason).Msg("call state")
	if c.cb.OnState != nil {
		c.cb.OnState(*tr)
	}
}

// Call rings the user registered as `to`. The call id is a millisecond
// timestamp.
func (c *Client) Call(to string) error {
	id := domain.CallID(strconv.FormatInt(time.Now().UnixMilli(), 10))
	out, tr, err := c.calls.Dial(to, id)
	if err != nil {
		return err
	}
	if err := c.emit(out.Event, out.Data); err != nil {
		c.calls.Reset("", "send failed")
		return err
	}
	c.notify(&tr)
	return nil
}

func (c *Client) Accept() error {
	out, tr, err := c.calls.Accept()
	if err != nil {
		return err
	}
	c.notify(&tr)
	return c.emit(out.Event, out.Data)
}

func (c *Client) Decline() error {
	out, tr, err := c.calls.Decline()
	if err != nil {
		return err
	}
	c.notify(&tr)
	return c.emit(out.Event, out.Data)
}

func (c *Client) Hangup() error {
	out, tr, err := c.calls.Hangup()
	if err != nil {
		return err
	}
	c.notify(&tr)
	return c.emit(out.Event, out.Data)
}

// Send broadcasts a text line. The server echoes it back; that echo is not
// reported to OnChat.
func (c *Client) Send(text string) error {
	return c.sendChat(domain.ChatMessage{User: c.name, Text: text})
}

// SendHTML broadcasts pre-rendered markup, e.g. an inline image.
func (c *Client) SendHTML(html string) error {
	return c.sendChat(domain.ChatMessage{User: c.name, HTML: &html})
}

func (c *Client) sendChat(msg domain.ChatMessage) error {
	if msg.Empty() {
		return nil
	}
	now := time.Now()
	msg.TS = now.UnixMilli()
	c.echoes.add(msg, now)
	return c.emit(app.EventChatMessage, msg)
}

// Typing signals activity. The first call sends typing=true; typing=false
// follows once no call has been made for the typing delay.
func (c *Client) Typing() error {
	c.tmu.Lock()
	defer c.tmu.Unlock()
	if c.typingTimer != nil {
		c.typingTimer.Stop()
	}
	c.typingTimer = time.AfterFunc(c.typingDelay, c.stopTyping)
	if c.typing {
		return nil
	}
	c.typing = true
	return c.emit(app.EventTyping, domain.Typing{User: c.name, Typing: true})
}

func (c *Client) stopTyping() {
	c.tmu.Lock()
	if !c.typing {
		c.tmu.Unlock()
		return
	}
	c.typing = false
	c.tmu.Unlock()
	if err := c.emit(app.EventTyping, domain.Typing{User: c.name, Typing: false}); err != nil {
		c.logger.Warn().Err(err).Msg("typing stop")
	}
}

func (c *Client) readLoop() {
	var err error
	defer func() {
		c.tmu.Lock()
		if c.typingTimer != nil {
			c.typingTimer.Stop()
		}
		c.tmu.Unlock()
		close(c.done)
		if c.cb.OnClosed != nil {
			c.cb.OnClosed(err)
		}
	}()
	for {
		var env signal.Envelope
		if err = c.conn.ReadJSON(&env); err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				err = nil
			}
			return
		}
		c.dispatch(env)
	}
}

func (c *Client) dispatch(env signal.Envelope) {
	switch env.Event {
	case app.EventChatMessage:
		var msg domain.ChatMessage
		if json.Unmarshal(env.Data, &msg) != nil || c.echoes.take(&msg, time.Now()) {
			return
		}
		if c.cb.OnChat != nil {
			c.cb.OnChat(msg)
		}
	case app.EventTyping:
		var t domain.Typing
		if json.Unmarshal(env.Data, &t) != nil || t.User == c.name {
			return
		}
		if c.cb.OnTyping != nil {
			c.cb.OnTyping(t)
		}
	case app.EventIncomingCall:
		var ic app.IncomingCall
		if json.Unmarshal(env.Data, &ic) != nil {
			return
		}
		busy, tr := c.calls.Incoming(ic)
		if busy != nil {
			c.logger.Info().Str("from", ic.FromName).Msg("busy, declining")
			_ = c.emit(busy.Event, busy.Data)
			return
		}
		if tr == nil {
			return
		}
		c.notify(tr)
		if c.cb.OnIncoming != nil {
			c.cb.OnIncoming(ic)
		}
	case app.EventCallAccepted:
		var a app.CallAccepted
		if json.Unmarshal(env.Data, &a) != nil {
			return
		}
		if tr, ok := c.calls.Accepted(a); ok {
			c.notify(tr)
		}
	case app.EventCallDeclined:
		var d app.CallDeclined
		_ = json.Unmarshal(env.Data, &d)
		c.reset(d.CallID, fmt.Sprintf("%s declined the call", orDefault(d.FromName, "user")))
	case app.EventCallFailed:
		var f app.CallFailed
		_ = json.Unmarshal(env.Data, &f)
		c.reset(f.CallID, "call failed: "+orDefault(f.Reason, "unknown"))
	case app.EventCallEnded:
		var e app.CallEnded
		_ = json.Unmarshal(env.Data, &e)
		c.reset(e.CallID, "ended")
	default:
		c.logger.Debug().Str("event", env.Event).Msg("ignored event")
	}
}

func (c *Client) reset(id domain.CallID, reason string) {
	if tr, ok := c.calls.Reset(id, reason); ok {
		c.notify(tr)
	}
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
