package environment

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"gopkg.in/launchdarkly/go-sdk-common.v2/ldvalue"
)

// DefaultDOMEnvironment is the provider used when Options.DOMEnvironment is empty.
const DefaultDOMEnvironment = "memory"

// ProviderOptions are passed to a Provider when a window is opened.
type ProviderOptions struct {
	URL string
	// Settings are provider-specific; they come from Options.ProviderSettings.
	Settings ldvalue.Value
}

// Provider opens a simulated window and returns a function that releases whatever the
// window holds. The returned teardown runs before any binding is restored.
type Provider func(ctx context.Context, opts ProviderOptions) (*Window, func() error, error)

var (
	providers = map[string]Provider{
		DefaultDOMEnvironment: memoryProvider,
	}
	providersLock sync.RWMutex
)

// RegisterProvider makes a DOM provider available under name, replacing any provider
// already registered under that name.
func RegisterProvider(name string, p Provider) {
	providersLock.Lock()
	providers[name] = p
	providersLock.Unlock()
}

// Providers returns the names of the registered providers.
func Providers() []string {
	providersLock.RLock()
	ret := make([]string, 0, len(providers))
	for name := range providers {
		ret = append(ret, name)
	}
	providersLock.RUnlock()
	sort.Strings(ret)
	return ret
}

func lookupProvider(name string) (Provider, error) {
	if name == "" {
		name = DefaultDOMEnvironment
	}
	providersLock.RLock()
	p, ok := providers[name]
	providersLock.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown DOM environment %q (available: %v)", name, Providers())
	}
	return p, nil
}

func memoryProvider(ctx context.Context, opts ProviderOptions) (*Window, func() error, error) {
	w := NewWindow(opts.URL)
	return w, func() error {
		w.Document.Clear()
		return nil
	}, nil
}
