package embed

import "fmt"

// ProviderConfig holds everything needed to construct any embedding provider.
type ProviderConfig struct {
	Provider string // "openai", "cohere", or an OpenAI-compatible preset
	APIKey   string
	Model    string
	BaseURL  string // override for self-hosted / custom endpoints
}

// Constructor builds a Provider from config.
type Constructor func(cfg ProviderConfig) (Provider, error)

// Factory creates Provider instances from config.
type Factory struct {
	constructors map[string]Constructor
}

// NewFactory returns a factory with the built-in providers registered.
func NewFactory() *Factory {
	f := &Factory{constructors: make(map[string]Constructor)}
	f.Register("openai", func(cfg ProviderConfig) (Provider, error) {
		return NewOpenAI(cfg.APIKey, cfg.Model, cfg.BaseURL), nil
	})
	f.Register("cohere", func(cfg ProviderConfig) (Provider, error) {
		return NewCohere(cfg.APIKey, cfg.Model), nil
	})
	return f
}

// Register adds a provider constructor under the given name.
func (f *Factory) Register(name string, ctor Constructor) {
	f.constructors[name] = ctor
}

// Create builds a Provider from config.
func (f *Factory) Create(cfg ProviderConfig) (Provider, error) {
	name := cfg.Provider
	if name == "" {
		name = "openai"
	}
	ctor, ok := f.constructors[name]
	if !ok {
		return nil, fmt.Errorf("unknown embedding provider %q — registered: %v", name, f.names())
	}
	return ctor(cfg)
}

func (f *Factory) names() []string {
	var out []string
	for k := range f.constructors {
		out = append(out, k)
	}
	return out
}
