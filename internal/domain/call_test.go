package domain

import (
	"encoding/json"
	"testing"
)

func TestCallIDKeepsJSONShape(t *testing.T) {
	cases := []struct {
		in   string
		id   CallID
		back string
	}{
		{`1718000000000`, "1718000000000", `1718000000000`},
		{`"abc"`, "abc", `"abc"`},
		{`null`, "", `""`},
	}
	for _, tc := range cases {
		var id CallID
		if err := json.Unmarshal([]byte(tc.in), &id); err != nil {
			t.Fatalf("unmarshal %s: %v", tc.in, err)
		}
		if id != tc.id {
			t.Fatalf("id=%q, want %q", id, tc.id)
		}
		b, err := json.Marshal(id)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		if string(b) != tc.back {
			t.Fatalf("marshal=%s, want %s", b, tc.back)
		}
	}
}

func TestCallIDRejectsOtherKinds(t *testing.T) {
	var id CallID
	if err := json.Unmarshal([]byte(`true`), &id); err == nil {
		t.Fatalf("bool accepted as call id")
	}
	if err := json.Unmarshal([]byte(`{"x":1}`), &id); err == nil {
		t.Fatalf("object accepted as call id")
	}
}

func TestCallStatusMachine(t *testing.T) {
	allowed := map[CallStatus][]CallStatus{
		"":            {CallRequested},
		CallRequested: {CallAccepted, CallDeclined, CallFailed, CallEnded},
		CallAccepted:  {CallEnded},
	}
	all := []CallStatus{CallRequested, CallAccepted, CallDeclined, CallFailed, CallEnded}
	for from, tos := range allowed {
		ok := map[CallStatus]bool{}
		for _, to := range tos {
			ok[to] = true
		}
		for _, to := range all {
			if got := from.CanTransition(to); got != ok[to] {
				t.Fatalf("%q -> %q = %v, want %v", from, to, got, ok[to])
			}
		}
	}
	for _, s := range []CallStatus{CallDeclined, CallFailed, CallEnded} {
		if !s.Terminal() {
			t.Fatalf("%s not terminal", s)
		}
		if s.CanTransition(CallEnded) {
			t.Fatalf("%s allows further transitions", s)
		}
	}
}
