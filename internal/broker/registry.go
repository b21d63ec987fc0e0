// Package broker provides the adapter registry mapping broker ids to
// their BrokerAdapter implementations.
package broker

import (
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"brokerhub/internal/domain"
)

// Registry maps broker identifiers to adapter instances.
// It is constructed once at process start and passed by reference to the
// services that need it; there is no package-level registry.
type Registry struct {
	mu       sync.RWMutex
	adapters map[string]domain.BrokerAdapter
	log      zerolog.Logger
}

// NewRegistry creates an empty adapter registry
func NewRegistry(log zerolog.Logger) *Registry {
	return &Registry{
		adapters: make(map[string]domain.BrokerAdapter),
		log:      log.With().Str("component", "broker_registry").Logger(),
	}
}

// Register stores an adapter under the given broker id.
// Re-registering the same id overwrites (last-write-wins), which is how
// tests install doubles.
func (r *Registry) Register(brokerID string, adapter domain.BrokerAdapter) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.adapters[brokerID]; exists {
		r.log.Debug().Str("broker_id", brokerID).Msg("Overwriting registered adapter")
	}
	r.adapters[brokerID] = adapter

	r.log.Info().Str("broker_id", brokerID).Msg("Broker adapter registered")
}

// Resolve returns the adapter for a broker id.
// Lookup fails closed: an unknown broker id is an error.
func (r *Registry) Resolve(brokerID string) (domain.BrokerAdapter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	adapter, ok := r.adapters[brokerID]
	if !ok {
		return nil, fmt.Errorf("broker %q: %w", brokerID, domain.ErrUnsupportedBroker)
	}
	return adapter, nil
}

// BrokerIDs returns the registered broker ids, sorted
func (r *Registry) BrokerIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.adapters))
	for id := range r.adapters {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
