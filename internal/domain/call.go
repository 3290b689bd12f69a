package domain

import (
	"bytes"
	"encoding/json"
	"errors"
)

var ErrBadCallID = errors.New("call id must be a string or a number")

// CallID is the caller-chosen token correlating one call attempt.
// Numeric ids are kept as their JSON literal and re-encoded as numbers.
type CallID string

func (id *CallID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = CallID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return ErrBadCallID
	}
	*id = CallID(n.String())
	return nil
}

func (id CallID) MarshalJSON() ([]byte, error) {
	if id.numeric() {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

func (id CallID) numeric() bool {
	if id == "" {
		return false
	}
	var n json.Number
	return json.Unmarshal([]byte(id), &n) == nil
}

type CallStatus string

const (
	CallRequested CallStatus = "requested"
	CallAccepted  CallStatus = "accepted"
	CallDeclined  CallStatus = "declined"
	CallFailed    CallStatus = "failed"
	CallEnded     CallStatus = "ended"
)

// Terminal reports whether no further signaling is expected for the call.
func (s CallStatus) Terminal() bool {
	switch s {
	case CallDeclined, CallFailed, CallEnded:
		return true
	}
	return false
}

// CanTransition encodes IDLE → REQUESTED → {ACCEPTED | DECLINED | FAILED} → ENDED.
func (s CallStatus) CanTransition(to CallStatus) bool {
	switch s {
	case "":
		return to == CallRequested
	case CallRequested:
		return to == CallAccepted || to == CallDeclined || to == CallFailed || to == CallEnded
	case CallAccepted:
		return to == CallEnded
	}
	return false
}

// Failure reasons carried by callFailed.
const (
	ReasonUserNotFound      = "user not found"
	ReasonCallerUnavailable = "caller unavailable"
)
