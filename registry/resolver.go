package registry

import (
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/BorislavEnchev/AuctionHouse/auction"
)

// StaticResolver maps fixed registry addresses to registry instances. Used
// in tests and single-process dev deployments where the registry lives in
// the same binary as the engine.
type StaticResolver struct {
	mu         sync.Mutex
	registries map[string]auction.AssetRegistry
}

// NewStaticResolver creates an empty static resolver.
func NewStaticResolver() *StaticResolver {
	return &StaticResolver{registries: make(map[string]auction.AssetRegistry)}
}

// Register binds a registry address to an instance.
func (r *StaticResolver) Register(address string, reg auction.AssetRegistry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.registries[address] = reg
}

// Resolve returns the registry bound to the address.
func (r *StaticResolver) Resolve(address string) (auction.AssetRegistry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	reg, ok := r.registries[address]
	if !ok {
		return nil, fmt.Errorf("no registry bound to address %q", address)
	}
	return reg, nil
}

// HTTPResolver treats registry addresses as base URLs of remote registry
// services and caches one client per address.
type HTTPResolver struct {
	client *http.Client

	mu      sync.Mutex
	clients map[string]*HTTPClient
}

// NewHTTPResolver creates a resolver with a shared HTTP client.
func NewHTTPResolver() *HTTPResolver {
	return &HTTPResolver{
		client:  &http.Client{Timeout: 10 * time.Second},
		clients: make(map[string]*HTTPClient),
	}
}

// Resolve returns a client for the registry service at the address.
func (r *HTTPResolver) Resolve(address string) (auction.AssetRegistry, error) {
	if !strings.HasPrefix(address, "http://") && !strings.HasPrefix(address, "https://") {
		return nil, fmt.Errorf("registry address %q is not a URL", address)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if c, ok := r.clients[address]; ok {
		return c, nil
	}
	c := NewHTTPClientWith(address, r.client)
	r.clients[address] = c
	return c, nil
}
