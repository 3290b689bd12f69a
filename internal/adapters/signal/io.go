package signal

import (
	"context"
	"encoding/json"
	"time"

	"github.com/dkeye/chatline/internal/app"
	"github.com/dkeye/chatline/internal/core"
	"github.com/dkeye/chatline/internal/domain"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const writeWait = 5 * time.Second

func (ctl *SignalWSController) writePump(ctx context.Context, sid core.ConnID, c *WsSignalConn) {
	ping := time.NewTicker(ctl.opts.PingPeriod)
	defer func() {
		ping.Stop()
		c.Close()
	}()
	for {
		select {
		case <-ctx.Done():
			log.Debug().Str("module", "signal").Str("sid", string(sid)).Msg("writePump ctx done")
			return
		case <-ping.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				log.Warn().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("writePump ping")
				return
			}
		case data, ok := <-c.send:
			if !ok {
				log.Debug().Str("module", "signal").Str("sid", string(sid)).Msg("writePump channel closed")
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump set deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("writePump write error")
				return
			}
		}
	}
}

func (ctl *SignalWSController) readPump(ctx context.Context, sid core.ConnID, c *WsSignalConn) {
	defer func() {
		log.Info().Str("module", "signal").Str("sid", string(sid)).Msg("readPump closing")
		c.Close()
		ctl.disconnect(sid)
	}()

	c.conn.SetReadLimit(ctl.opts.ReadLimit)
	_ = c.conn.SetReadDeadline(time.Now().Add(ctl.opts.pongWait()))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(ctl.opts.pongWait()))
	})

	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "signal").Str("sid", string(sid)).Msg("readPump ctx done")
			return
		default:
			_, data, err := c.conn.ReadMessage()
			if err != nil {
				if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					log.Info().Str("module", "signal").Str("sid", string(sid)).Msg("connection closed")
				} else {
					log.Warn().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("readPump read error")
				}
				return
			}
			_ = c.conn.SetReadDeadline(time.Now().Add(ctl.opts.pongWait()))
			ctl.handleSignal(sid, data)
		}
	}
}

// handleSignal decodes and validates one frame on the reader goroutine and
// posts the resulting orchestrator call to the hub. Malformed frames are
// dropped; they never close the connection.
func (ctl *SignalWSController) handleSignal(sid core.ConnID, data []byte) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("bad json")
		return
	}
	logger := log.With().Str("module", "signal").Str("sid", string(sid)).Str("event", env.Event).Logger()

	var fn func()
	switch env.Event {
	case app.EventRegister:
		name, err := decodeName(env.Data)
		if err != nil {
			logger.Warn().Err(err).Msg("dropped")
			return
		}
		fn = func() { ctl.Orch.Register(sid, name) }
	case app.EventChatMessage:
		if !ctl.Limiter.Allow(sid) {
			logger.Debug().Msg("rate limited")
			return
		}
		var msg domain.ChatMessage
		if err := decodePayload(env.Data, &msg); err != nil {
			logger.Warn().Err(err).Msg("dropped")
			return
		}
		msg.Raw = env.Data
		fn = func() { ctl.Orch.Chat(sid, msg) }
	case app.EventTyping:
		if !ctl.Limiter.Allow(sid) {
			logger.Debug().Msg("rate limited")
			return
		}
		var t domain.Typing
		if err := decodePayload(env.Data, &t); err != nil {
			logger.Warn().Err(err).Msg("dropped")
			return
		}
		t.Raw = env.Data
		fn = func() { ctl.Orch.Typing(sid, t) }
	case app.EventCallRequest:
		var req app.CallRequest
		if err := decodePayload(env.Data, &req); err != nil {
			logger.Warn().Err(err).Msg("dropped")
			return
		}
		req.Raw = env.Data
		fn = func() { ctl.Orch.CallRequest(sid, req) }
	case app.EventCallAccept:
		var req app.CallAccept
		if err := decodePayload(env.Data, &req); err != nil {
			logger.Warn().Err(err).Msg("dropped")
			return
		}
		fn = func() { ctl.Orch.CallAccept(sid, req) }
	case app.EventCallDecline:
		var req app.CallDecline
		if err := decodePayload(env.Data, &req); err != nil {
			logger.Warn().Err(err).Msg("dropped")
			return
		}
		fn = func() { ctl.Orch.CallDecline(sid, req) }
	case app.EventCallEnd:
		var req app.CallEnd
		if len(env.Data) > 0 {
			if err := json.Unmarshal(env.Data, &req); err != nil {
				logger.Warn().Err(err).Msg("dropped")
				return
			}
		}
		fn = func() { ctl.Orch.CallEnd(sid, req) }
	default:
		logger.Warn().Msg("unknown signal")
		return
	}
	ctl.Hub.Post(fn)
}
