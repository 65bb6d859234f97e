package cloudjack

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sync"
)

// clientCache stores constructed service clients keyed by their resolved
// identity, so repeated factory calls with equivalent configuration reuse
// one client. The mutex is held across construction: two goroutines racing
// on the same key build the client once, at the cost of serializing first
// construction of different keys. Client construction is cheap (no network
// round-trips except the AWS secret manager identity check), so the simple
// policy wins.
type clientCache struct {
	mu      sync.Mutex
	clients map[string]any
}

func newClientCache() *clientCache {
	return &clientCache{clients: make(map[string]any)}
}

// cacheKey derives a deterministic identity for a client from its provider,
// service and canonical config fields. SHA-256 keeps credential material out
// of the key itself; config fields include secrets, and map keys may end up
// in logs or debug output.
func cacheKey(provider CloudProvider, service Service, cfg ProviderConfig) string {
	payload := struct {
		Provider CloudProvider     `json:"provider"`
		Service  Service           `json:"service"`
		Config   map[string]string `json:"config"`
	}{
		Provider: provider,
		Service:  service,
		Config:   cfg.cacheFields(),
	}
	// Map keys marshal in sorted order, so the encoding is canonical.
	data, _ := json.Marshal(payload)
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// getOrCreate returns the cached client for key, constructing and storing it
// on first use. A failed construction stores nothing; the next call retries.
func (c *clientCache) getOrCreate(ctx context.Context, key string, build func(ctx context.Context) (any, error)) (any, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if client, ok := c.clients[key]; ok {
		return client, nil
	}
	client, err := build(ctx)
	if err != nil {
		return nil, err
	}
	c.clients[key] = client
	return client, nil
}

// clear evicts every cached client.
func (c *clientCache) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clients = make(map[string]any)
}

// len reports the number of cached clients.
func (c *clientCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.clients)
}
