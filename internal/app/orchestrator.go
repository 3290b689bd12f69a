package app

import (
	"github.com/dkeye/chatline/internal/core"
	"github.com/dkeye/chatline/internal/domain"
	"github.com/rs/zerolog/log"
)

// Orchestrator drives registration, the call signaling state machine and the
// chat relay on top of a Transport. Handlers are expected to run one event at
// a time; the transport hub guarantees that.
type Orchestrator struct {
	Registry  *Registry
	Calls     *CallTable
	Transport core.Transport
	Policy    Policy
}

func NewOrchestrator(t core.Transport, policy Policy) *Orchestrator {
	return &Orchestrator{
		Registry:  NewRegistry(),
		Calls:     NewCallTable(),
		Transport: t,
		Policy:    policy,
	}
}

// Register binds a display name to the connection, overwriting whoever held
// it. Surrounding whitespace is trimmed; nothing else is checked.
func (o *Orchestrator) Register(sid core.ConnID, name string) {
	o.Registry.Register(sid, domain.TrimUsername(name))
}

// OnDisconnect purges the registry and ends every call the connection was
// party to, notifying the remaining peer.
func (o *Orchestrator) OnDisconnect(sid core.ConnID) {
	for _, c := range o.Calls.Involving(sid) {
		if _, err := o.Calls.Transition(c.ID, domain.CallEnded); err != nil {
			continue
		}
		peer, _ := c.Peer(sid)
		log.Info().Str("module", "app.orch").Str("sid", string(sid)).Str("peer", string(peer)).Str("call", string(c.ID)).Msg("call ended by disconnect")
		o.send(peer, EventCallEnded, CallEnded{CallID: c.ID})
	}
	o.Registry.Unregister(sid)
}

// send delivers to one connection if it is still alive. Stale targets are
// treated as not found and reported false.
func (o *Orchestrator) send(to core.ConnID, event string, payload any) bool {
	if to == "" || !o.Transport.Alive(to) {
		log.Debug().Str("module", "app.orch").Str("dst", string(to)).Str("event", event).Msg("target not found, dropped")
		return false
	}
	if err := o.Transport.SendTo(to, event, payload); err != nil {
		log.Warn().Err(err).Str("module", "app.orch").Str("dst", string(to)).Str("event", event).Msg("send failed")
		o.onDropped([]core.ConnID{to})
		return false
	}
	return true
}

func (o *Orchestrator) onDropped(dropped []core.ConnID) {
	if o.Policy == nil {
		return
	}
	for _, slow := range dropped {
		switch o.Policy.OnBackPressure(slow) {
		case KickMember:
			log.Warn().Str("module", "app.orch").Str("sid", string(slow)).Msg("kicking slow connection")
			o.Transport.Kick(slow)
		case DropFrame, NoAction:
		}
	}
}
