// Package backends holds the concrete power-control channels and the
// registry the CLI uses to find them by name.
package backends

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/samber/lo"

	"nathanbeddoewebdev/nodectl/internal/node/domain"
	"nathanbeddoewebdev/nodectl/internal/services/auth"
	"nathanbeddoewebdev/nodectl/internal/util"
)

// Factory opens a session to node. The store supplies credentials that
// were not given on the NodeRef itself.
type Factory func(ctx context.Context, node domain.NodeRef, store auth.Store) (domain.Connector, error)

type registration struct {
	factory   Factory
	supported domain.ActionSet
}

var (
	mu       sync.RWMutex
	registry = map[string]registration{}
)

// Register adds a backend under name. supported is the action set the
// backend maps; it is reported by Supported without opening a session.
func Register(name string, supported domain.ActionSet, factory Factory) {
	normalizedName := util.NormalizeKey(name)
	if normalizedName == "" {
		panic("backends: empty backend name")
	}
	if factory == nil {
		panic("backends: nil factory")
	}

	mu.Lock()
	defer mu.Unlock()
	if _, exists := registry[normalizedName]; exists {
		panic(fmt.Sprintf("backends: backend %q already registered", name))
	}

	registry[normalizedName] = registration{factory: factory, supported: supported}
}

// Get opens a connector for node through the backend it names.
func Get(ctx context.Context, node domain.NodeRef, store auth.Store) (domain.Connector, error) {
	normalizedName := util.NormalizeKey(node.Backend)
	mu.RLock()
	reg, ok := registry[normalizedName]
	mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("backends: unknown backend %q", node.Backend)
	}

	return reg.factory(ctx, node, store)
}

// Supported returns the actions the named backend maps.
func Supported(name string) (domain.ActionSet, error) {
	mu.RLock()
	reg, ok := registry[util.NormalizeKey(name)]
	mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("backends: unknown backend %q", name)
	}
	return reg.supported.Clone(), nil
}

// Reset clears the backend registry. Intended for use in tests only.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	registry = map[string]registration{}
}

// List returns the registered backend names in sorted order.
func List() []string {
	mu.RLock()
	defer mu.RUnlock()

	names := lo.Keys(registry)
	sort.Strings(names)
	return names
}

// NewOpener returns a domain.Opener that resolves backends through the
// registry.
func NewOpener(store auth.Store) domain.Opener {
	return domain.OpenerFunc(func(ctx context.Context, node domain.NodeRef) (domain.Connector, error) {
		return Get(ctx, node, store)
	})
}

// RegisterAll registers every built-in backend.
func RegisterAll() {
	RegisterAWS()
	RegisterHetzner()
	RegisterIPMI()
	RegisterIPMILocal()
	RegisterPDU()
}
