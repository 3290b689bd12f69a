package domain

import (
	"errors"
	"strings"
	"testing"
)

func TestNormalizeUsername(t *testing.T) {
	if got, err := NormalizeUsername("  Bailey  "); err != nil || got != "Bailey" {
		t.Fatalf("got %q,%v", got, err)
	}
	if _, err := NormalizeUsername(" "); !errors.Is(err, ErrUsernameEmpty) {
		t.Fatalf("err=%v, want ErrUsernameEmpty", err)
	}
	if _, err := NormalizeUsername(strings.Repeat("x", MaxUsernameLen+1)); !errors.Is(err, ErrUsernameTooLong) {
		t.Fatalf("err=%v, want ErrUsernameTooLong", err)
	}
	cyr := strings.Repeat("Ж", MaxUsernameLen)
	if got, err := NormalizeUsername(cyr); err != nil || got != cyr {
		t.Fatalf("%d-rune cyrillic name: got %q,%v", MaxUsernameLen, got, err)
	}
}

func TestChatMessageSameAs(t *testing.T) {
	img := "<img>"
	a := &ChatMessage{User: "A", Text: "hi", TS: 1}
	b := &ChatMessage{User: "A", Text: "hi", TS: 2}
	if !a.SameAs(b) {
		t.Fatalf("same author+content should match regardless of ts")
	}
	c := &ChatMessage{User: "A", HTML: &img}
	if a.SameAs(c) {
		t.Fatalf("different content matched")
	}
	if (&ChatMessage{User: "A", HTML: &img}).Empty() {
		t.Fatalf("html-only message reported empty")
	}
}
