package app

import (
	"sort"
	"sync"

	"github.com/dkeye/chatline/internal/core"
	"github.com/rs/zerolog/log"
)

// Registry maps display names to the connection that registered them last.
// It does not own connections; the transport does.
type Registry struct {
	mu     sync.RWMutex
	byName map[string]core.ConnID
	names  map[core.ConnID]string
}

func NewRegistry() *Registry {
	return &Registry{
		byName: make(map[string]core.ConnID),
		names:  make(map[core.ConnID]string),
	}
}

// Register binds name to id, overwriting any prior binding for that name.
// A connection that re-registers under a new name releases its old one.
func (r *Registry) Register(id core.ConnID, name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if old, ok := r.names[id]; ok && old != name && r.byName[old] == id {
		delete(r.byName, old)
	}
	if prev, ok := r.byName[name]; ok && prev != id {
		log.Info().Str("module", "app.registry").Str("name", name).Str("prev", string(prev)).Str("sid", string(id)).Msg("name taken over")
	}
	r.byName[name] = id
	r.names[id] = name
	log.Info().Str("module", "app.registry").Str("sid", string(id)).Str("name", name).Msg("registered")
}

func (r *Registry) Lookup(name string) (core.ConnID, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byName[name]
	return id, ok
}

// NameOf returns the name id registered with, even if another connection
// has since taken the name over.
func (r *Registry) NameOf(id core.ConnID) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	name, ok := r.names[id]
	return name, ok
}

// Unregister removes every entry pointing at id. Unknown ids are a no-op.
func (r *Registry) Unregister(id core.ConnID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	name, ok := r.names[id]
	if !ok {
		return
	}
	delete(r.names, id)
	if r.byName[name] == id {
		delete(r.byName, name)
	}
	log.Info().Str("module", "app.registry").Str("sid", string(id)).Str("name", name).Msg("unregistered")
}

// Names returns the currently resolvable names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.byName))
	for name := range r.byName {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
