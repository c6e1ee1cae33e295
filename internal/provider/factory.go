package provider

import (
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"kakeibot/internal/config"
	"kakeibot/internal/domain"
)

// Constructor builds a provider from a config entry.
type Constructor func(pc config.ProviderConfig) domain.Provider

// Factory creates and caches generation providers from config. Providers are
// constructed once at startup and read-only thereafter; the cache exists so
// the failover chain and the default share instances.
type Factory struct {
	cfg          *config.Config
	ack          string // persona acknowledgment for session-seeded providers
	client       *http.Client
	logger       *slog.Logger
	constructors map[string]Constructor
	cache        map[string]domain.Provider
	mu           sync.RWMutex
}

// NewFactory creates a provider factory with the built-in constructors
// registered. ack is the persona acknowledgment turn used by providers that
// seed a fresh session per request.
func NewFactory(cfg *config.Config, ack string, client *http.Client, logger *slog.Logger) *Factory {
	if client == nil {
		client = SharedHTTPClient(cfg.RequestTimeout())
	}
	f := &Factory{
		cfg:          cfg,
		ack:          ack,
		client:       client,
		logger:       logger,
		constructors: make(map[string]Constructor),
		cache:        make(map[string]domain.Provider),
	}
	f.registerDefaults()
	return f
}

// RegisterConstructor adds (or replaces) a provider constructor by name.
func (f *Factory) RegisterConstructor(name string, ctor Constructor) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.constructors[name] = ctor
}

func (f *Factory) registerDefaults() {
	f.constructors["groq"] = func(pc config.ProviderConfig) domain.Provider {
		return NewGroq(GroqConfig{
			APIKey: pc.APIKey, APIBase: pc.APIBase, Model: pc.Model,
			MaxTokens: pc.MaxTokens, Temperature: pc.Temperature,
			Client: f.client, Logger: f.logger,
		})
	}

	f.constructors["gemini"] = func(pc config.ProviderConfig) domain.Provider {
		return NewGemini(GeminiConfig{
			APIKey: pc.APIKey, APIBase: pc.APIBase, Model: pc.Model, Ack: f.ack,
			MaxTokens: pc.MaxTokens, Temperature: pc.Temperature,
			Client: f.client, Logger: f.logger,
		})
	}

	f.constructors["claude"] = func(pc config.ProviderConfig) domain.Provider {
		return NewClaude(ClaudeConfig{
			APIKey: pc.APIKey, APIURL: pc.APIBase, Model: pc.Model,
			MaxTokens: pc.MaxTokens, Temperature: pc.Temperature,
			Client: f.client, Logger: f.logger,
		})
	}
}

// Get returns the provider with the given name, or the configured default
// when name is empty. Instances are cached. Uses double-check locking to
// avoid TOCTOU races.
func (f *Factory) Get(name string) (domain.Provider, error) {
	if name == "" {
		name = f.cfg.General.DefaultProvider
	}

	f.mu.RLock()
	if cached, ok := f.cache[name]; ok {
		f.mu.RUnlock()
		return cached, nil
	}
	f.mu.RUnlock()

	f.mu.Lock()
	defer f.mu.Unlock()

	if cached, ok := f.cache[name]; ok {
		return cached, nil
	}

	pc, ok := f.cfg.Providers[name]
	if !ok {
		return nil, fmt.Errorf("unknown provider: %s", name)
	}
	if !pc.Enabled {
		return nil, fmt.Errorf("provider %s is disabled", name)
	}

	ctor, found := f.constructors[name]

	var p domain.Provider
	if found {
		p = ctor(pc)
	} else if pc.APIBase != "" && pc.APIKey != "" {
		// Fallback: treat unknown providers as OpenAI-compatible.
		p = NewGroq(GroqConfig{
			APIKey: pc.APIKey, APIBase: pc.APIBase, Model: pc.Model,
			MaxTokens: pc.MaxTokens, Temperature: pc.Temperature,
			Client: f.client, Logger: f.logger,
		})
	} else {
		return nil, fmt.Errorf("provider %s: no constructor registered and no API base/key configured", name)
	}

	f.cache[name] = p
	return p, nil
}

// DefaultProvider returns the configured default provider, wrapped in a
// failover chain when general.failoverChain lists additional providers.
func (f *Factory) DefaultProvider() (domain.Provider, error) {
	if len(f.cfg.General.FailoverChain) > 0 {
		var chain []domain.Provider
		for _, name := range f.cfg.General.FailoverChain {
			p, err := f.Get(name)
			if err != nil {
				return nil, fmt.Errorf("failover chain: %w", err)
			}
			chain = append(chain, p)
		}
		return NewFailover(chain, f.logger), nil
	}
	return f.Get("")
}
