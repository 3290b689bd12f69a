package app

import (
	"time"

	"github.com/dkeye/chatline/internal/core"
	"github.com/dkeye/chatline/internal/domain"
	"github.com/rs/zerolog/log"
)

// Chat broadcasts a message to every connection, sender included. The
// payload goes out as received; only a missing ts is filled in.
func (o *Orchestrator) Chat(sid core.ConnID, msg domain.ChatMessage) {
	if msg.Empty() {
		log.Debug().Str("module", "app.relay").Str("sid", string(sid)).Msg("empty chat message dropped")
		return
	}
	msg.Stamp(time.Now())
	var payload any = msg
	if msg.Raw != nil {
		raw, err := withFields(msg.Raw, nil, map[string]any{"ts": msg.TS})
		if err != nil {
			log.Warn().Err(err).Str("module", "app.relay").Str("sid", string(sid)).Msg("chat message dropped")
			return
		}
		payload = raw
	}
	res := o.Transport.Broadcast(EventChatMessage, payload)
	log.Debug().Str("module", "app.relay").Str("from", string(sid)).Int("sent_to", res.SendTo).Int("dropped", len(res.Dropped)).Msg("chat broadcast")
	o.onDropped(res.Dropped)
}

// Typing broadcasts a typing indicator to everyone but the sender.
func (o *Orchestrator) Typing(sid core.ConnID, t domain.Typing) {
	var payload any = t
	if t.Raw != nil {
		payload = t.Raw
	}
	res := o.Transport.BroadcastExcept(sid, EventTyping, payload)
	o.onDropped(res.Dropped)
}
