package app

import (
	"errors"
	"sync"
	"time"

	"github.com/dkeye/chatline/internal/core"
	"github.com/dkeye/chatline/internal/domain"
	"github.com/rs/zerolog/log"
)

var (
	ErrCallNotFound   = errors.New("call not found")
	ErrBadTransition  = errors.New("invalid call transition")
	ErrNotParticipant = errors.New("connection is not a call participant")
)

// Call is the server's view of one call attempt.
type Call struct {
	ID         domain.CallID
	Caller     core.ConnID
	CallerName string
	Callee     core.ConnID
	CalleeName string
	Status     domain.CallStatus
	CreatedAt  time.Time
}

// Peer returns the other participant.
func (c Call) Peer(id core.ConnID) (core.ConnID, error) {
	switch id {
	case c.Caller:
		return c.Callee, nil
	case c.Callee:
		return c.Caller, nil
	}
	return "", ErrNotParticipant
}

func (c Call) Involves(id core.ConnID) bool {
	return c.Caller == id || c.Callee == id
}

// CallTable tracks live calls by id. Terminal transitions discard the record.
type CallTable struct {
	mu    sync.RWMutex
	calls map[domain.CallID]*Call
}

func NewCallTable() *CallTable {
	return &CallTable{calls: make(map[domain.CallID]*Call)}
}

// Open records a new requested call. An existing record with the same id is
// replaced: ids are chosen by callers and not checked for uniqueness.
func (t *CallTable) Open(c Call) Call {
	c.Status = domain.CallRequested
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if prev, ok := t.calls[c.ID]; ok {
		log.Warn().Str("module", "app.calls").Str("call", string(c.ID)).Str("prev_caller", string(prev.Caller)).Msg("call id reused, replacing")
	}
	t.calls[c.ID] = &c
	return c
}

func (t *CallTable) Get(id domain.CallID) (Call, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	c, ok := t.calls[id]
	if !ok {
		return Call{}, false
	}
	return *c, true
}

// Transition moves a call to status `to` and returns the updated record.
// Terminal statuses remove the call from the table.
func (t *CallTable) Transition(id domain.CallID, to domain.CallStatus) (Call, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	c, ok := t.calls[id]
	if !ok {
		return Call{}, ErrCallNotFound
	}
	if !c.Status.CanTransition(to) {
		return *c, ErrBadTransition
	}
	c.Status = to
	if to.Terminal() {
		delete(t.calls, id)
	}
	log.Debug().Str("module", "app.calls").Str("call", string(id)).Str("status", string(to)).Msg("call transition")
	return *c, nil
}

// PendingBetween finds a requested call from caller to callee.
func (t *CallTable) PendingBetween(caller, callee core.ConnID) (Call, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	var (
		found Call
		ok    bool
	)
	for _, c := range t.calls {
		if c.Status != domain.CallRequested || c.Caller != caller || c.Callee != callee {
			continue
		}
		// newest wins if the caller re-dialed
		if !ok || c.CreatedAt.After(found.CreatedAt) {
			found, ok = *c, true
		}
	}
	return found, ok
}

// Involving returns every live call id participates in.
func (t *CallTable) Involving(id core.ConnID) []Call {
	t.mu.RLock()
	defer t.mu.RUnlock()
	var out []Call
	for _, c := range t.calls {
		if c.Involves(id) {
			out = append(out, *c)
		}
	}
	return out
}

func (t *CallTable) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.calls)
}
