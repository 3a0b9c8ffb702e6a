package exchange

import (
	"fmt"
	"strings"
	"sync"

	"github.com/wonhyungLee/hookingauto/pkg/model"
)

// Registry resolves a Gateway by exchange name and market variant. Each
// variant is a separately constructed gateway so request handling never
// mutates shared client state.
type Registry struct {
	mu       sync.RWMutex
	gateways map[string]Gateway
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{gateways: make(map[string]Gateway)}
}

func key(name string, market model.Market) string {
	return strings.ToUpper(name) + "/" + market.String()
}

// Register adds a gateway for the given exchange and market variant.
func (r *Registry) Register(name string, market model.Market, gw Gateway) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gateways[key(name, market)] = gw
}

// Gateway returns the gateway for the exchange and market variant.
func (r *Registry) Gateway(name string, market model.Market) (Gateway, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	gw, ok := r.gateways[key(name, market)]
	if !ok {
		return nil, fmt.Errorf("exchange: no gateway for %s on %s market", strings.ToUpper(name), market)
	}
	return gw, nil
}

// Exchanges returns the distinct exchange names registered.
func (r *Registry) Exchanges() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	seen := make(map[string]bool)
	var names []string
	for k := range r.gateways {
		name := strings.SplitN(k, "/", 2)[0]
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	return names
}
