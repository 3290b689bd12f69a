package client

import (
	"sync"
	"time"

	"github.com/dkeye/chatline/internal/domain"
)

const (
	echoTTL     = 10 * time.Second
	echoPending = 32
)

// echoes remembers sent chat lines until the server broadcasts them back.
// Lines never echoed, e.g. dropped by the rate limiter, expire after echoTTL
// and at most echoPending are kept.
type echoes struct {
	mu      sync.Mutex
	pending []sentLine
}

type sentLine struct {
	msg domain.ChatMessage
	at  time.Time
}

func (e *echoes) add(msg domain.ChatMessage, now time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.expire(now)
	if len(e.pending) == echoPending {
		e.pending = e.pending[1:]
	}
	e.pending = append(e.pending, sentLine{msg: msg, at: now})
}

// take consumes a pending line equal to msg.
func (e *echoes) take(msg *domain.ChatMessage, now time.Time) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.expire(now)
	for i := range e.pending {
		if e.pending[i].msg.SameAs(msg) {
			e.pending = append(e.pending[:i], e.pending[i+1:]...)
			return true
		}
	}
	return false
}

func (e *echoes) expire(now time.Time) {
	n := 0
	for n < len(e.pending) && now.Sub(e.pending[n].at) > echoTTL {
		n++
	}
	e.pending = e.pending[n:]
}

func (e *echoes) size() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.pending)
}
