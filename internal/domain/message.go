package domain

import (
	"encoding/json"
	"time"
)

// ChatMessage is relayed verbatim; Text and HTML are both optional but at least
// one must be present. Raw holds the payload as it arrived on the wire, with
// any fields the struct does not know about.
type ChatMessage struct {
	User string  `json:"user" validate:"required"`
	Text string  `json:"text,omitempty"`
	HTML *string `json:"html,omitempty"`
	TS   int64   `json:"ts"`

	Raw json.RawMessage `json:"-"`
}

func (m *ChatMessage) Empty() bool {
	return m.Text == "" && (m.HTML == nil || *m.HTML == "")
}

// Stamp fills a missing timestamp with the current time in unix millis.
func (m *ChatMessage) Stamp(now time.Time) {
	if m.TS == 0 {
		m.TS = now.UnixMilli()
	}
}

// SameAs reports whether two messages are the same chat line. Clients use it
// to drop the broadcast echo of a message they already rendered locally.
func (m *ChatMessage) SameAs(o *ChatMessage) bool {
	if m == nil || o == nil {
		return false
	}
	return m.User == o.User && m.Text == o.Text && m.htmlOrEmpty() == o.htmlOrEmpty()
}

func (m *ChatMessage) htmlOrEmpty() string {
	if m.HTML == nil {
		return ""
	}
	return *m.HTML
}

type Typing struct {
	User   string `json:"user" validate:"required"`
	Typing bool   `json:"typing"`

	Raw json.RawMessage `json:"-"`
}
