package core

import "errors"

// ConnID is assigned by the transport at connect time.
type ConnID string

// Frame is one encoded outbound event.
type Frame []byte

var (
	ErrBackpressure = errors.New("backpressure")
	ErrConnClosed   = errors.New("connection closed")
	ErrConnNotFound = errors.New("connection not found")
)

// SignalConnection abstracts for a system messaging transport
// Owned by the adapter; the adapter must Close() it.
type SignalConnection interface {
	TrySend(Frame) error
	Close()
}

// Transport delivers named events. Sends are fire-and-forget: the returned
// error only reports local failures (unknown target, full buffer).
type Transport interface {
	SendTo(to ConnID, event string, payload any) error
	Broadcast(event string, payload any) PublishResult
	BroadcastExcept(from ConnID, event string, payload any) PublishResult
	Alive(id ConnID) bool
	// Kick closes a connection; its disconnect is reported as usual.
	Kick(id ConnID)
}

// PublishResult reports delivery stats/backpressure to the caller.
type PublishResult struct {
	SendTo  int
	Dropped []ConnID
}
