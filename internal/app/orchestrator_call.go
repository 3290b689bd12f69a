package app

import (
	"github.com/dkeye/chatline/internal/core"
	"github.com/dkeye/chatline/internal/domain"
	"github.com/rs/zerolog/log"
)

const ReasonSelfCall = "cannot call yourself"

// CallRequest resolves the target name and rings it, or fails the call back
// to the initiator when nobody live is registered under that name.
func (o *Orchestrator) CallRequest(sid core.ConnID, req CallRequest) {
	logger := log.With().Str("module", "app.orch").Str("sid", string(sid)).Str("call", string(req.CallID)).Logger()

	to := domain.TrimUsername(req.To)
	target, ok := o.Registry.Lookup(to)
	if !ok || !o.Transport.Alive(target) {
		logger.Info().Str("to", req.To).Msg("call target not found")
		o.send(sid, EventCallFailed, CallFailed{Reason: domain.ReasonUserNotFound, CallID: req.CallID})
		return
	}
	if target == sid {
		o.send(sid, EventCallFailed, CallFailed{Reason: ReasonSelfCall, CallID: req.CallID})
		return
	}

	var ring any = IncomingCall{
		From:           req.From,
		To:             req.To,
		CallID:         req.CallID,
		FromName:       req.From,
		CallerSocketID: sid,
	}
	if req.Raw != nil {
		raw, err := withFields(req.Raw, map[string]any{"fromName": req.From, "callerSocketId": sid}, nil)
		if err != nil {
			logger.Warn().Err(err).Msg("call request dropped")
			return
		}
		ring = raw
	}

	o.Calls.Open(Call{
		ID:         req.CallID,
		Caller:     sid,
		CallerName: req.From,
		Callee:     target,
		CalleeName: to,
	})
	if !o.send(target, EventIncomingCall, ring) {
		_, _ = o.Calls.Transition(req.CallID, domain.CallFailed)
		o.send(sid, EventCallFailed, CallFailed{Reason: domain.ReasonUserNotFound, CallID: req.CallID})
		return
	}
	logger.Info().Str("to", req.To).Str("dst", string(target)).Msg("ringing")
}

// CallAccept relays the responder's acceptance to the initiator. Accepts for
// unknown, finished or foreign calls are dropped.
func (o *Orchestrator) CallAccept(sid core.ConnID, req CallAccept) {
	logger := log.With().Str("module", "app.orch").Str("sid", string(sid)).Str("call", string(req.CallID)).Logger()

	c, ok := o.Calls.Get(req.CallID)
	if !ok {
		logger.Warn().Msg("accept for unknown call dropped")
		return
	}
	if c.Callee != sid || c.Caller != req.CallerSocketID {
		logger.Warn().Str("caller", string(req.CallerSocketID)).Msg("accept from non-participant dropped")
		return
	}
	if !o.Transport.Alive(c.Caller) {
		_, _ = o.Calls.Transition(c.ID, domain.CallFailed)
		o.send(sid, EventCallFailed, CallFailed{Reason: domain.ReasonCallerUnavailable, CallID: c.ID})
		return
	}
	if _, err := o.Calls.Transition(c.ID, domain.CallAccepted); err != nil {
		logger.Warn().Err(err).Str("status", string(c.Status)).Msg("accept out of order dropped")
		return
	}

	o.send(c.Caller, EventCallAccepted, CallAccepted{
		FromName:       o.responderName(sid, c),
		CalleeSocketID: sid,
		CallID:         c.ID,
	})
	logger.Info().Str("dst", string(c.Caller)).Msg("call accepted")
}

// CallDecline tells the initiator the call was refused. Without a call id the
// newest pending call from that initiator to the sender is used.
func (o *Orchestrator) CallDecline(sid core.ConnID, req CallDecline) {
	logger := log.With().Str("module", "app.orch").Str("sid", string(sid)).Logger()

	var (
		c  Call
		ok bool
	)
	if req.CallID != "" {
		c, ok = o.Calls.Get(req.CallID)
	} else {
		c, ok = o.Calls.PendingBetween(req.CallerSocketID, sid)
	}
	if !ok || c.Callee != sid || c.Caller != req.CallerSocketID {
		logger.Warn().Str("caller", string(req.CallerSocketID)).Msg("decline without matching call dropped")
		return
	}
	if _, err := o.Calls.Transition(c.ID, domain.CallDeclined); err != nil {
		logger.Warn().Err(err).Str("call", string(c.ID)).Msg("decline out of order dropped")
		return
	}
	o.send(c.Caller, EventCallDeclined, CallDeclined{FromName: o.responderName(sid, c), CallID: c.ID})
	logger.Info().Str("call", string(c.ID)).Msg("call declined")
}

// CallEnd terminates calls the sender is party to and notifies each peer once.
// A target that no longer exists receives nothing. Neither does a live target
// with no tracked call between the two: callEnded only ever reaches the other
// party of a call this table knows about.
func (o *Orchestrator) CallEnd(sid core.ConnID, req CallEnd) {
	var calls []Call
	for _, c := range o.Calls.Involving(sid) {
		if req.CallID != "" && c.ID != req.CallID {
			continue
		}
		if req.TargetSocketID != "" && !c.Involves(req.TargetSocketID) {
			continue
		}
		calls = append(calls, c)
	}
	if len(calls) == 0 {
		log.Debug().Str("module", "app.orch").Str("sid", string(sid)).Str("target", string(req.TargetSocketID)).Msg("end without matching call")
		return
	}

	notified := make(map[core.ConnID]struct{}, len(calls))
	for _, c := range calls {
		if _, err := o.Calls.Transition(c.ID, domain.CallEnded); err != nil {
			continue
		}
		peer, _ := c.Peer(sid)
		if _, done := notified[peer]; done {
			continue
		}
		notified[peer] = struct{}{}
		o.send(peer, EventCallEnded, CallEnded{CallID: c.ID})
		log.Info().Str("module", "app.orch").Str("sid", string(sid)).Str("peer", string(peer)).Str("call", string(c.ID)).Msg("call ended")
	}
}

func (o *Orchestrator) responderName(sid core.ConnID, c Call) string {
	if name, ok := o.Registry.NameOf(sid); ok {
		return name
	}
	return c.CalleeName
}
