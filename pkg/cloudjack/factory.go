package cloudjack

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
)

// Factory resolves configuration, looks up adapter constructors and hands
// out cached, contract-typed service clients. A Factory is safe for
// concurrent use.
type Factory struct {
	registry *Registry
	cache    *clientCache
	log      zerolog.Logger
}

// FactoryOption configures a Factory.
type FactoryOption func(*Factory)

// WithLogger sets the factory's logger. The default discards everything.
func WithLogger(log zerolog.Logger) FactoryOption {
	return func(f *Factory) {
		f.log = log
	}
}

// NewFactory creates a Factory serving the registry's providers.
func NewFactory(registry *Registry, opts ...FactoryOption) *Factory {
	f := &Factory{
		registry: registry,
		cache:    newClientCache(),
		log:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Client returns a service client for the provider, building it on first
// use and caching it by resolved configuration. The result satisfies the
// contract interface for the service; prefer the typed accessors unless the
// service is only known at runtime.
func (f *Factory) Client(ctx context.Context, service Service, provider CloudProvider, raw map[string]string) (any, error) {
	ctor, err := f.registry.Constructor(provider, service)
	if err != nil {
		return nil, err
	}
	cfg, err := ResolveConfig(ctx, provider, raw)
	if err != nil {
		return nil, err
	}

	key := cacheKey(provider, service, cfg)
	built := false
	client, err := f.cache.getOrCreate(ctx, key, func(ctx context.Context) (any, error) {
		built = true
		f.log.Debug().
			Str("provider", string(provider)).
			Str("service", string(service)).
			Msg("constructing service client")
		return ctor(ctx, cfg)
	})
	if err != nil {
		return nil, err
	}
	if !built {
		f.log.Debug().
			Str("provider", string(provider)).
			Str("service", string(service)).
			Msg("reusing cached service client")
	}
	return client, nil
}

// ClearCache evicts all cached clients. Subsequent calls rebuild them.
func (f *Factory) ClearCache() {
	f.cache.clear()
}

// CachedClients reports how many clients the factory currently holds.
func (f *Factory) CachedClients() int {
	return f.cache.len()
}

// SecretManager returns a secret storage client for the provider.
func (f *Factory) SecretManager(ctx context.Context, provider CloudProvider, raw map[string]string) (SecretManager, error) {
	client, err := f.Client(ctx, ServiceSecretManager, provider, raw)
	if err != nil {
		return nil, err
	}
	return assertContract[SecretManager](client, provider, ServiceSecretManager)
}

// ObjectStorage returns an object storage client for the provider.
func (f *Factory) ObjectStorage(ctx context.Context, provider CloudProvider, raw map[string]string) (ObjectStorage, error) {
	client, err := f.Client(ctx, ServiceStorage, provider, raw)
	if err != nil {
		return nil, err
	}
	return assertContract[ObjectStorage](client, provider, ServiceStorage)
}

// Queue returns a message queue client for the provider.
func (f *Factory) Queue(ctx context.Context, provider CloudProvider, raw map[string]string) (Queue, error) {
	client, err := f.Client(ctx, ServiceQueue, provider, raw)
	if err != nil {
		return nil, err
	}
	return assertContract[Queue](client, provider, ServiceQueue)
}

// Compute returns a virtual machine client for the provider.
func (f *Factory) Compute(ctx context.Context, provider CloudProvider, raw map[string]string) (Compute, error) {
	client, err := f.Client(ctx, ServiceCompute, provider, raw)
	if err != nil {
		return nil, err
	}
	return assertContract[Compute](client, provider, ServiceCompute)
}

// DNS returns a hosted zone client for the provider.
func (f *Factory) DNS(ctx context.Context, provider CloudProvider, raw map[string]string) (DNS, error) {
	client, err := f.Client(ctx, ServiceDNS, provider, raw)
	if err != nil {
		return nil, err
	}
	return assertContract[DNS](client, provider, ServiceDNS)
}

// IAM returns a role and policy client for the provider.
func (f *Factory) IAM(ctx context.Context, provider CloudProvider, raw map[string]string) (IAM, error) {
	client, err := f.Client(ctx, ServiceIAM, provider, raw)
	if err != nil {
		return nil, err
	}
	return assertContract[IAM](client, provider, ServiceIAM)
}

// Logging returns a log management client for the provider.
func (f *Factory) Logging(ctx context.Context, provider CloudProvider, raw map[string]string) (Logging, error) {
	client, err := f.Client(ctx, ServiceLogging, provider, raw)
	if err != nil {
		return nil, err
	}
	return assertContract[Logging](client, provider, ServiceLogging)
}

// assertContract narrows a registry-constructed client to its contract
// interface. A mismatch means a constructor was registered under the wrong
// service.
func assertContract[T any](client any, provider CloudProvider, service Service) (T, error) {
	typed, ok := client.(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("registered %s/%s constructor returned %T, which does not satisfy the %s contract",
			provider, service, client, service)
	}
	return typed, nil
}
