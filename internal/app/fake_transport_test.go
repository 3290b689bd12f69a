package app

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/dkeye/chatline/internal/core"
)

type sent struct {
	To      core.ConnID
	Event   string
	Payload []byte
}

// fakeTransport records deliveries instead of writing to sockets.
type fakeTransport struct {
	mu     sync.Mutex
	alive  map[core.ConnID]bool
	full   map[core.ConnID]bool
	kicked []core.ConnID
	out    []sent
}

func newFakeTransport(ids ...core.ConnID) *fakeTransport {
	ft := &fakeTransport{alive: make(map[core.ConnID]bool), full: make(map[core.ConnID]bool)}
	for _, id := range ids {
		ft.alive[id] = true
	}
	return ft
}

func (ft *fakeTransport) deliver(to core.ConnID, event string, payload any) error {
	if ft.full[to] {
		return core.ErrBackpressure
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	ft.out = append(ft.out, sent{To: to, Event: event, Payload: b})
	return nil
}

func (ft *fakeTransport) SendTo(to core.ConnID, event string, payload any) error {
	ft.mu.Lock()
	defer ft.mu.Unlock()
	if !ft.alive[to] {
		return core.ErrConnNotFound
	}
	return ft.deliver(to, event, payload)
}

func (ft *fakeTransport) Broadcast(event string, payload any) core.PublishResult {
	return ft.BroadcastExcept("", event, payload)
}

func (ft *fakeTransport) BroadcastExcept(from core.ConnID, event string, payload any) core.PublishResult {
	ft.mu.Lock()
	defer ft.mu.Unlock()
	res := core.PublishResult{}
	for id, ok := range ft.alive {
		if !ok || id == from {
			continue
		}
		if err := ft.deliver(id, event, payload); err != nil {
			res.Dropped = append(res.Dropped, id)
			continue
		}
		res.SendTo++
	}
	return res
}

func (ft *fakeTransport) Alive(id core.ConnID) bool {
	ft.mu.Lock()
	defer ft.mu.Unlock()
	return ft.alive[id]
}

func (ft *fakeTransport) Kick(id core.ConnID) {
	ft.mu.Lock()
	defer ft.mu.Unlock()
	ft.kicked = append(ft.kicked, id)
	delete(ft.alive, id)
}

func (ft *fakeTransport) connect(id core.ConnID) {
	ft.mu.Lock()
	ft.alive[id] = true
	ft.mu.Unlock()
}

func (ft *fakeTransport) disconnect(id core.ConnID) {
	ft.mu.Lock()
	delete(ft.alive, id)
	ft.mu.Unlock()
}

// take returns and clears everything delivered so far.
func (ft *fakeTransport) take() []sent {
	ft.mu.Lock()
	defer ft.mu.Unlock()
	out := ft.out
	ft.out = nil
	return out
}

func only(t *testing.T, got []sent, to core.ConnID, event string, into any) {
	t.Helper()
	if len(got) != 1 {
		t.Fatalf("deliveries=%d (%+v), want 1", len(got), got)
	}
	if got[0].To != to || got[0].Event != event {
		t.Fatalf("delivered %s to %s, want %s to %s", got[0].Event, got[0].To, event, to)
	}
	if into != nil {
		if err := json.Unmarshal(got[0].Payload, into); err != nil {
			t.Fatalf("unmarshal %s: %v", event, err)
		}
	}
}
