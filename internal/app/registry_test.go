package app

import (
	"reflect"
	"testing"
)

func TestRegistryLastRegisterWins(t *testing.T) {
	r := NewRegistry()
	r.Register("c1", "A")
	r.Register("c2", "A")

	if id, ok := r.Lookup("A"); !ok || id != "c2" {
		t.Fatalf("lookup(A)=%q,%v want c2", id, ok)
	}

	// the displaced connection leaving must not drop the new owner
	r.Unregister("c1")
	if id, ok := r.Lookup("A"); !ok || id != "c2" {
		t.Fatalf("lookup(A) after c1 left=%q,%v want c2", id, ok)
	}
}

func TestRegistryRenameReleasesOldName(t *testing.T) {
	r := NewRegistry()
	r.Register("c1", "A")
	r.Register("c1", "B")

	if _, ok := r.Lookup("A"); ok {
		t.Fatalf("A still resolves after rename")
	}
	if id, _ := r.Lookup("B"); id != "c1" {
		t.Fatalf("lookup(B)=%q, want c1", id)
	}
}

func TestRegistryUnregister(t *testing.T) {
	r := NewRegistry()
	r.Unregister("never")

	r.Register("c1", "A")
	r.Unregister("c1")
	if _, ok := r.Lookup("A"); ok {
		t.Fatalf("A resolves after unregister")
	}
	if _, ok := r.NameOf("c1"); ok {
		t.Fatalf("c1 still has a name")
	}
}

func TestRegistryNamesSorted(t *testing.T) {
	r := NewRegistry()
	r.Register("c1", "zed")
	r.Register("c2", "amy")
	r.Register("c3", "amy")

	if got, want := r.Names(), []string{"amy", "zed"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("names=%v, want %v", got, want)
	}
}

func TestRegistryLongNonASCIIName(t *testing.T) {
	r := NewRegistry()
	name := "東京タワーの見える部屋から" + "ЖЖЖЖЖЖЖЖЖЖЖЖЖЖЖЖЖЖЖЖЖЖЖЖЖ"
	r.Register("c1", name)
	if id, ok := r.Lookup(name); !ok || id != "c1" {
		t.Fatalf("lookup=%q,%v want c1", id, ok)
	}
	if got, _ := r.NameOf("c1"); got != name {
		t.Fatalf("NameOf=%q", got)
	}
}
