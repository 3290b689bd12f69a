package client_test

import (
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	router "github.com/dkeye/chatline/internal/adapters/http"
	"github.com/dkeye/chatline/internal/adapters/signal"
	"github.com/dkeye/chatline/internal/app"
	"github.com/dkeye/chatline/internal/client"
	"github.com/dkeye/chatline/internal/config"
	"github.com/dkeye/chatline/internal/domain"
)

type server struct {
	url string
	ctl *signal.SignalWSController
}

func newServer(t *testing.T) *server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	static := t.TempDir()
	if err := os.WriteFile(filepath.Join(static, "index.html"), []byte("ok"), 0o644); err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	ctl := signal.NewSignalWSController(app.DropPolicy{}, signal.Options{PingPeriod: time.Minute})
	go ctl.Run(ctx)
	ts := httptest.NewServer(router.SetupRouter(ctx, &config.Config{Mode: "test", StaticPath: static, Secret: "s"}, ctl))
	t.Cleanup(func() {
		cancel()
		ts.Close()
	})
	return &server{url: "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws", ctl: ctl}
}

type peer struct {
	*client.Client
	states chan client.Transition
	rings  chan app.IncomingCall
	chat   chan domain.ChatMessage
	typing chan domain.Typing
}

func (s *server) join(t *testing.T, name string, typingDelay time.Duration) *peer {
	t.Helper()
	p := &peer{
		states: make(chan client.Transition, 16),
		rings:  make(chan app.IncomingCall, 16),
		chat:   make(chan domain.ChatMessage, 16),
		typing: make(chan domain.Typing, 16),
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	c, err := client.Dial(ctx, client.Options{
		URL:         s.url,
		Name:        name,
		TypingDelay: typingDelay,
		Callbacks: client.Callbacks{
			OnState:    func(tr client.Transition) { p.states <- tr },
			OnIncoming: func(ic app.IncomingCall) { p.rings <- ic },
			OnChat:     func(m domain.ChatMessage) { p.chat <- m },
			OnTyping:   func(ty domain.Typing) { p.typing <- ty },
		},
	})
	if err != nil {
		t.Fatalf("Dial %s: %v", name, err)
	}
	t.Cleanup(func() { _ = c.Close() })
	p.Client = c

	deadline := time.Now().Add(3 * time.Second)
	for {
		if id, ok := s.ctl.Orch.Registry.Lookup(name); ok && id == c.SocketID() {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("%s never registered", name)
		}
		time.Sleep(5 * time.Millisecond)
	}
	return p
}

func recv[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(3 * time.Second):
		var zero T
		t.Fatalf("timed out waiting for %T", zero)
		return zero
	}
}

func TestClientCallLifecycle(t *testing.T) {
	s := newServer(t)
	a := s.join(t, "alice", 0)
	b := s.join(t, "bob", 0)

	if err := a.Call("bob"); err != nil {
		t.Fatalf("Call: %v", err)
	}
	if tr := recv(t, a.states); tr.To != client.Dialing {
		t.Fatalf("alice=%+v", tr)
	}
	ring := recv(t, b.rings)
	if ring.FromName != "alice" || ring.CallerSocketID != a.SocketID() {
		t.Fatalf("ring=%+v", ring)
	}
	if tr := recv(t, b.states); tr.To != client.Ringing {
		t.Fatalf("bob=%+v", tr)
	}

	if err := b.Accept(); err != nil {
		t.Fatalf("Accept: %v", err)
	}
	if tr := recv(t, b.states); tr.To != client.InCall {
		t.Fatalf("bob=%+v", tr)
	}
	if tr := recv(t, a.states); tr.To != client.InCall || tr.PeerName != "bob" {
		t.Fatalf("alice=%+v", tr)
	}

	if err := b.Hangup(); err != nil {
		t.Fatalf("Hangup: %v", err)
	}
	recv(t, b.states)
	if tr := recv(t, a.states); tr.To != client.Idle || tr.Reason != "ended" {
		t.Fatalf("alice=%+v", tr)
	}
}

func TestClientDeclineAndFailure(t *testing.T) {
	s := newServer(t)
	a := s.join(t, "alice", 0)
	b := s.join(t, "bob", 0)

	if err := a.Call("nobody"); err != nil {
		t.Fatal(err)
	}
	recv(t, a.states)
	if tr := recv(t, a.states); tr.To != client.Idle || !strings.Contains(tr.Reason, "user not found") {
		t.Fatalf("alice=%+v", tr)
	}

	if err := a.Call("bob"); err != nil {
		t.Fatal(err)
	}
	recv(t, a.states)
	recv(t, b.rings)
	recv(t, b.states)
	if err := b.Decline(); err != nil {
		t.Fatal(err)
	}
	if tr := recv(t, a.states); tr.To != client.Idle || !strings.Contains(tr.Reason, "bob declined") {
		t.Fatalf("alice=%+v", tr)
	}
}

func TestClientBusyAutoDeclines(t *testing.T) {
	s := newServer(t)
	a := s.join(t, "alice", 0)
	b := s.join(t, "bob", 0)
	c := s.join(t, "carol", 0)

	if err := b.Call("carol"); err != nil {
		t.Fatal(err)
	}
	recv(t, b.states)
	recv(t, c.rings)

	if err := a.Call("bob"); err != nil {
		t.Fatal(err)
	}
	recv(t, a.states)
	if tr := recv(t, a.states); tr.To != client.Idle {
		t.Fatalf("alice=%+v, want declined", tr)
	}
	if b.State() != client.Dialing {
		t.Fatalf("bob state=%v", b.State())
	}
}

func TestClientChatSuppressesOwnEcho(t *testing.T) {
	s := newServer(t)
	a := s.join(t, "alice", 0)
	b := s.join(t, "bob", 0)

	if err := a.Send("hello"); err != nil {
		t.Fatal(err)
	}
	if m := recv(t, b.chat); m.User != "alice" || m.Text != "hello" || m.TS == 0 {
		t.Fatalf("bob got %+v", m)
	}
	if err := b.Send("hi"); err != nil {
		t.Fatal(err)
	}
	if m := recv(t, a.chat); m.User != "bob" || m.Text != "hi" {
		t.Fatalf("alice got %+v, own echo leaked?", m)
	}
}

func TestClientTypingDebounce(t *testing.T) {
	s := newServer(t)
	a := s.join(t, "alice", 50*time.Millisecond)
	b := s.join(t, "bob", 0)

	for i := 0; i < 3; i++ {
		if err := a.Typing(); err != nil {
			t.Fatal(err)
		}
	}
	if ty := recv(t, b.typing); ty.User != "alice" || !ty.Typing {
		t.Fatalf("first=%+v", ty)
	}
	if ty := recv(t, b.typing); ty.Typing {
		t.Fatalf("second=%+v, want stop", ty)
	}
}

func TestDialRejectsBadName(t *testing.T) {
	if _, err := client.Dial(context.Background(), client.Options{URL: "ws://127.0.0.1:1/ws", Name: "  "}); err == nil {
		t.Fatalf("Dial with blank name succeeded")
	}
}
