package signal

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/dkeye/chatline/internal/core"
	"github.com/rs/zerolog/log"
)

// Envelope is the wire shape of every websocket frame in both directions.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Conns is the set of open connections. It implements core.Transport.
type Conns struct {
	mu    sync.RWMutex
	bySID map[core.ConnID]core.SignalConnection
}

func NewConns() *Conns {
	return &Conns{bySID: make(map[core.ConnID]core.SignalConnection)}
}

func (cs *Conns) Add(sid core.ConnID, c core.SignalConnection) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.bySID[sid] = c
}

func (cs *Conns) Remove(sid core.ConnID) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	delete(cs.bySID, sid)
}

func (cs *Conns) Len() int {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	return len(cs.bySID)
}

func (cs *Conns) Alive(sid core.ConnID) bool {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	_, ok := cs.bySID[sid]
	return ok
}

func (cs *Conns) Kick(sid core.ConnID) {
	cs.mu.RLock()
	c, ok := cs.bySID[sid]
	cs.mu.RUnlock()
	if ok {
		c.Close()
	}
}

func encode(event string, payload any) (core.Frame, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", event, err)
	}
	return json.Marshal(Envelope{Event: event, Data: data})
}

func (cs *Conns) SendTo(to core.ConnID, event string, payload any) error {
	cs.mu.RLock()
	c, ok := cs.bySID[to]
	cs.mu.RUnlock()
	if !ok {
		return core.ErrConnNotFound
	}
	f, err := encode(event, payload)
	if err != nil {
		return err
	}
	return c.TrySend(f)
}

func (cs *Conns) Broadcast(event string, payload any) core.PublishResult {
	return cs.BroadcastExcept("", event, payload)
}

func (cs *Conns) BroadcastExcept(from core.ConnID, event string, payload any) core.PublishResult {
	res := core.PublishResult{}
	f, err := encode(event, payload)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("broadcast marshal")
		return res
	}

	cs.mu.RLock()
	defer cs.mu.RUnlock()
	for sid, c := range cs.bySID {
		if sid == from {
			continue
		}
		if err := c.TrySend(f); err != nil {
			res.Dropped = append(res.Dropped, sid)
			continue
		}
		res.SendTo++
	}
	log.Debug().Str("module", "signal").Str("event", event).Str("from", string(from)).Int("sent_to", res.SendTo).Int("dropped", len(res.Dropped)).Msg("broadcast result")
	return res
}
