package adapter

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/leapstack-labs/crossfilter/pkg/core"
)

// Registration describes a store type: how to build its adapter and the
// connection defaults a target of that type starts from.
type Registration struct {
	Name    string
	Factory func(*slog.Logger) Adapter
	// DefaultPort is applied to targets that leave the port unset. Zero for
	// stores without a network endpoint.
	DefaultPort int
	// FileBacked stores keep their data in a local file named by the target's
	// database.
	FileBacked bool
}

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Registration)
)

// Register adds a store type. Adapter packages call it from init; a later
// registration under the same name replaces the earlier one.
func Register(r Registration) {
	if r.Name == "" || r.Factory == nil {
		panic("adapter: Register requires a name and a factory")
	}
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[r.Name] = r
}

// Lookup returns the registration of a store type.
func Lookup(name string) (Registration, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	r, ok := registry[name]
	return r, ok
}

// NewAdapter builds an unconnected adapter for cfg.Type. A nil logger
// discards output.
func NewAdapter(cfg core.AdapterConfig, logger *slog.Logger) (Adapter, error) {
	if cfg.Type == "" {
		return nil, fmt.Errorf("adapter type not specified")
	}
	r, ok := Lookup(cfg.Type)
	if !ok {
		return nil, &UnknownAdapterError{Type: cfg.Type, Available: ListAdapters()}
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return r.Factory(logger), nil
}

// ListAdapters returns the registered store types in name order.
func ListAdapters() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsRegistered reports whether a store type is known.
func IsRegistered(name string) bool {
	_, ok := Lookup(name)
	return ok
}

// UnknownAdapterError is returned for a store type nobody registered.
type UnknownAdapterError struct {
	Type      string
	Available []string
}

func (e *UnknownAdapterError) Error() string {
	return fmt.Sprintf("unknown adapter type %q\nAvailable adapters: %v\nHint: set target.type in crossfilter.yaml or pass --store", e.Type, e.Available)
}
