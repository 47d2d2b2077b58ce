package devnode

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"

	"ringchat/internal/domain"
)

// registry is a static two-way name table standing in for ENS.
type registry struct {
	mu     sync.RWMutex
	byAddr map[domain.Address]string
	byName map[string]domain.Address
}

func newRegistry() *registry {
	return &registry{byAddr: map[domain.Address]string{}, byName: map[string]domain.Address{}}
}

func (g *registry) add(addr domain.Address, name string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	name = strings.ToLower(name)
	g.byAddr[addr] = name
	g.byName[name] = addr
}

func (g *registry) handleReverse(w http.ResponseWriter, r *http.Request) {
	addr := domain.NormalizeAddress(r.PathValue("address"))
	g.mu.RLock()
	name, ok := g.byAddr[addr]
	g.mu.RUnlock()
	if !ok {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"name": name})
}

func (g *registry) handleResolve(w http.ResponseWriter, r *http.Request) {
	name := strings.ToLower(r.PathValue("name"))
	g.mu.RLock()
	addr, ok := g.byName[name]
	g.mu.RUnlock()
	if !ok {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"address": addr.String()})
}
