package signal

import (
	"context"

	"github.com/rs/zerolog/log"
)

// Hub runs posted handlers one at a time, each to completion, so the
// orchestrator never sees concurrent events.
type Hub struct {
	inbox chan func()
	done  chan struct{}
}

func NewHub(size int) *Hub {
	return &Hub{
		inbox: make(chan func(), size),
		done:  make(chan struct{}),
	}
}

// Post queues fn. It blocks while the inbox is full and gives up once the
// hub has stopped.
func (h *Hub) Post(fn func()) bool {
	select {
	case h.inbox <- fn:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	log.Info().Str("module", "signal.hub").Msg("hub started")
	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "signal.hub").Msg("hub stopped")
			return
		case fn := <-h.inbox:
			fn()
		}
	}
}
