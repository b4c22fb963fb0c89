package llm

import (
	"context"
	"fmt"
	"sync"
)

// Router manages generative-model providers and routing
type Router struct {
	providers       map[string]Provider
	defaultProvider string
	mu              sync.RWMutex
}

// NewRouter creates a new provider router
func NewRouter(defaultProvider string) *Router {
	return &Router{
		providers:       make(map[string]Provider),
		defaultProvider: defaultProvider,
	}
}

// RegisterProvider registers a provider
func (r *Router) RegisterProvider(provider Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[provider.Name()] = provider
}

// GetProvider returns a provider by name
func (r *Router) GetProvider(name string) (Provider, error) {
	if name == "" {
		name = r.defaultProvider
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.providers[name]
	if !ok {
		return nil, fmt.Errorf("provider not found: %s", name)
	}
	if !p.IsConfigured() {
		return nil, fmt.Errorf("provider not configured: %s", name)
	}
	return p, nil
}

// Default returns the default provider, or nil when none is configured.
func (r *Router) Default() Provider {
	p, err := r.GetProvider("")
	if err != nil {
		return nil
	}
	return p
}

// DefaultProvider returns the default provider name
func (r *Router) DefaultProvider() string {
	return r.defaultProvider
}

// ListProviders returns list of configured provider names
func (r *Router) ListProviders() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var providers []string
	for name, p := range r.providers {
		if p.IsConfigured() {
			providers = append(providers, name)
		}
	}
	return providers
}

// Complete routes a completion request to the default provider.
func (r *Router) Complete(ctx context.Context, system, prompt string) (string, error) {
	p := r.Default()
	if p == nil {
		return "", fmt.Errorf("no provider configured")
	}
	return p.Complete(ctx, Request{
		System:   system,
		Messages: []Message{{Role: "user", Content: prompt}},
	})
}

// Embed routes an embedding request to the default provider.
func (r *Router) Embed(ctx context.Context, text string) ([]float32, error) {
	p := r.Default()
	if p == nil {
		return nil, fmt.Errorf("no provider configured")
	}
	return p.Embed(ctx, text)
}
