package client

import (
	"errors"
	"sync"

	"github.com/dkeye/chatline/internal/app"
	"github.com/dkeye/chatline/internal/core"
	"github.com/dkeye/chatline/internal/domain"
)

// State is the local view of the call, used to drive the UI.
type State int

const (
	Idle State = iota
	Dialing
	Ringing
	InCall
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Dialing:
		return "dialing"
	case Ringing:
		return "ringing"
	case InCall:
		return "in-call"
	}
	return "unknown"
}

var (
	ErrBusy   = errors.New("a call is already in progress")
	ErrNoCall = errors.New("no call to act on")
)

// Outbound is an event the machine wants sent to the server.
type Outbound struct {
	Event string
	Data  any
}

// Transition describes one local state change.
type Transition struct {
	From, To State
	CallID   domain.CallID
	PeerName string
	Reason   string
}

// CallMachine mirrors the server's call transitions for one client. It does
// no I/O; callers send the returned Outbound events.
type CallMachine struct {
	mu       sync.Mutex
	self     string
	state    State
	callID   domain.CallID
	peerID   core.ConnID
	peerName string
}

func NewCallMachine(self string) *CallMachine {
	return &CallMachine{self: self}
}

func (m *CallMachine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Peer returns the other party's name and socket id, if known.
func (m *CallMachine) Peer() (string, core.ConnID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.peerName, m.peerID
}

func (m *CallMachine) move(to State, reason string) Transition {
	tr := Transition{From: m.state, To: to, CallID: m.callID, PeerName: m.peerName, Reason: reason}
	m.state = to
	if to == Idle {
		m.callID, m.peerID, m.peerName = "", "", ""
	}
	return tr
}

// Dial starts an outgoing call.
func (m *CallMachine) Dial(to string, id domain.CallID) (Outbound, Transition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != Idle {
		return Outbound{}, Transition{}, ErrBusy
	}
	m.callID, m.peerName = id, to
	tr := m.move(Dialing, "")
	return Outbound{
		Event: app.EventCallRequest,
		Data:  app.CallRequest{From: m.self, To: to, CallID: id},
	}, tr, nil
}

// Incoming handles a ring. A busy client declines it straight away and keeps
// its current call; the returned Outbound is then non-nil.
func (m *CallMachine) Incoming(ic app.IncomingCall) (*Outbound, *Transition) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ic.CallerSocketID == "" {
		return nil, nil
	}
	if m.state != Idle {
		return &Outbound{
			Event: app.EventCallDecline,
			Data:  app.CallDecline{CallerSocketID: ic.CallerSocketID, CallID: ic.CallID},
		}, nil
	}
	m.callID, m.peerID, m.peerName = ic.CallID, ic.CallerSocketID, ic.FromName
	tr := m.move(Ringing, "")
	return nil, &tr
}

func (m *CallMachine) Accept() (Outbound, Transition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != Ringing {
		return Outbound{}, Transition{}, ErrNoCall
	}
	out := Outbound{
		Event: app.EventCallAccept,
		Data:  app.CallAccept{CallerSocketID: m.peerID, CallID: m.callID},
	}
	return out, m.move(InCall, ""), nil
}

func (m *CallMachine) Decline() (Outbound, Transition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != Ringing {
		return Outbound{}, Transition{}, ErrNoCall
	}
	out := Outbound{
		Event: app.EventCallDecline,
		Data:  app.CallDecline{CallerSocketID: m.peerID, CallID: m.callID},
	}
	return out, m.move(Idle, "declined"), nil
}

// Hangup leaves whatever call is in progress. While dialing the peer socket
// is not known yet, so the server resolves the call from the sender.
func (m *CallMachine) Hangup() (Outbound, Transition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == Idle {
		return Outbound{}, Transition{}, ErrNoCall
	}
	out := Outbound{
		Event: app.EventCallEnd,
		Data:  app.CallEnd{TargetSocketID: m.peerID, CallID: m.callID},
	}
	return out, m.move(Idle, "hangup"), nil
}

// Accepted completes an outgoing call.
func (m *CallMachine) Accepted(a app.CallAccepted) (*Transition, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != Dialing {
		return nil, false
	}
	if a.CallID != "" && a.CallID != m.callID {
		return nil, false
	}
	m.peerID = a.CalleeSocketID
	if a.FromName != "" {
		m.peerName = a.FromName
	}
	tr := m.move(InCall, "")
	return &tr, true
}

// Reset handles callDeclined, callFailed and callEnded: all of them return
// the machine to Idle from any state. An event carrying the id of some other
// call is ignored, and repeated resets are no-ops.
func (m *CallMachine) Reset(id domain.CallID, reason string) (*Transition, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == Idle || (id != "" && id != m.callID) {
		return nil, false
	}
	tr := m.move(Idle, reason)
	return &tr, true
}
