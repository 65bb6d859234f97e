package cloudjack

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Constructor builds a service client from resolved provider configuration.
// The returned value must satisfy the contract interface for the service it
// was registered under; the factory's typed accessors enforce this at
// retrieval time.
type Constructor func(ctx context.Context, cfg ProviderConfig) (any, error)

// Registry maps (provider, service) pairs to client constructors. There is
// no package-level instance; callers build a Registry, register providers
// explicitly, and hand it to a Factory. pkg/universal does this wiring for
// everything the module ships with.
type Registry struct {
	mu           sync.RWMutex
	constructors map[CloudProvider]map[Service]Constructor
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		constructors: make(map[CloudProvider]map[Service]Constructor),
	}
}

// Register adds a constructor for a (provider, service) pair. Registering
// the same pair twice is a programming error and panics.
func (r *Registry) Register(provider CloudProvider, service Service, ctor Constructor) {
	r.mu.Lock()
	defer r.mu.Unlock()

	services, ok := r.constructors[provider]
	if !ok {
		services = make(map[Service]Constructor)
		r.constructors[provider] = services
	}
	if _, exists := services[service]; exists {
		panic(fmt.Sprintf("cloudjack: duplicate registration for %s/%s", provider, service))
	}
	services[service] = ctor
}

// Constructor returns the constructor for a (provider, service) pair. A
// provider with no registrations at all yields UnsupportedProviderError; a
// known provider missing the service yields UnsupportedServiceError.
func (r *Registry) Constructor(provider CloudProvider, service Service) (Constructor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	services, ok := r.constructors[provider]
	if !ok {
		return nil, &UnsupportedProviderError{Provider: string(provider)}
	}
	ctor, ok := services[service]
	if !ok {
		return nil, &UnsupportedServiceError{Provider: provider, Service: service}
	}
	return ctor, nil
}

// Providers returns all providers with at least one registration, sorted.
func (r *Registry) Providers() []CloudProvider {
	r.mu.RLock()
	defer r.mu.RUnlock()

	providers := make([]CloudProvider, 0, len(r.constructors))
	for p := range r.constructors {
		providers = append(providers, p)
	}
	sort.Slice(providers, func(i, j int) bool { return providers[i] < providers[j] })
	return providers
}

// ServicesFor returns the services registered for a provider, sorted.
func (r *Registry) ServicesFor(provider CloudProvider) []Service {
	r.mu.RLock()
	defer r.mu.RUnlock()

	services := make([]Service, 0, len(r.constructors[provider]))
	for s := range r.constructors[provider] {
		services = append(services, s)
	}
	sort.Slice(services, func(i, j int) bool { return services[i] < services[j] })
	return services
}
