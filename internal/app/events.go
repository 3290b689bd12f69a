package app

import (
	"encoding/json"

	"github.com/dkeye/chatline/internal/core"
	"github.com/dkeye/chatline/internal/domain"
)

// Event names, client → server.
const (
	EventRegister    = "register"
	EventChatMessage = "chatMessage"
	EventTyping      = "typing"
	EventCallRequest = "callRequest"
	EventCallAccept  = "callAccept"
	EventCallDecline = "callDecline"
	EventCallEnd     = "callEnd"
)

// Event names, server → client.
const (
	EventConnected    = "connected"
	EventIncomingCall = "incomingCall"
	EventCallAccepted = "callAccepted"
	EventCallDeclined = "callDeclined"
	EventCallEnded    = "callEnded"
	EventCallFailed   = "callFailed"
)

type CallRequest struct {
	From   string        `json:"from" validate:"required"`
	To     string        `json:"to" validate:"required"`
	CallID domain.CallID `json:"callId" validate:"required"`

	// Raw is the request as received. incomingCall relays it with the
	// routing fields merged in.
	Raw json.RawMessage `json:"-"`
}

// IncomingCall echoes the original request plus routing details.
type IncomingCall struct {
	From           string        `json:"from"`
	To             string        `json:"to"`
	CallID         domain.CallID `json:"callId"`
	FromName       string        `json:"fromName"`
	CallerSocketID core.ConnID   `json:"callerSocketId"`
}

type CallAccept struct {
	CallerSocketID core.ConnID   `json:"callerSocketId" validate:"required"`
	CallID         domain.CallID `json:"callId" validate:"required"`
}

type CallAccepted struct {
	FromName       string        `json:"fromName"`
	CalleeSocketID core.ConnID   `json:"calleeSocketId"`
	CallID         domain.CallID `json:"callId"`
}

type CallDecline struct {
	CallerSocketID core.ConnID   `json:"callerSocketId" validate:"required"`
	CallID         domain.CallID `json:"callId,omitempty"`
}

type CallDeclined struct {
	FromName string        `json:"fromName"`
	CallID   domain.CallID `json:"callId,omitempty"`
}

type CallEnd struct {
	TargetSocketID core.ConnID   `json:"targetSocketId,omitempty"`
	CallID         domain.CallID `json:"callId,omitempty"`
}

type CallEnded struct {
	CallID domain.CallID `json:"callId,omitempty"`
}

type CallFailed struct {
	Reason string        `json:"reason"`
	CallID domain.CallID `json:"callId,omitempty"`
}

type Connected struct {
	SocketID core.ConnID `json:"socketId"`
}
