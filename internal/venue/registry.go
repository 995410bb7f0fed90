package venue

import (
	"fmt"
	"strings"
	"sync"
)

// registry is a string -> constructor map, mirroring
// original_source/exchanges/factory.py's ExchangeFactory: lookups are
// case-insensitive and construction is lazy (the constructor is only
// invoked by Create, never at Register time). Go has no dynamic class
// loading, so a constructor func stands in for factory.py's dotted
// class-path + __import__ dance.
type registry struct {
	mu    sync.RWMutex
	ctors map[string]Constructor
}

var defaultRegistry = &registry{ctors: make(map[string]Constructor)}

// Register adds a venue constructor under name (case-insensitive). Re-
// registering the same name overwrites the previous constructor, matching
// factory.py's register_exchange.
func Register(name string, ctor Constructor) {
	defaultRegistry.mu.Lock()
	defer defaultRegistry.mu.Unlock()
	defaultRegistry.ctors[strings.ToLower(name)] = ctor
}

// Create builds a new Adapter for the named venue.
func Create(name string, cfg Config) (Adapter, error) {
	defaultRegistry.mu.RLock()
	ctor, ok := defaultRegistry.ctors[strings.ToLower(name)]
	defaultRegistry.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q (supported: %s)", ErrUnknownVenue, name, strings.Join(Supported(), ", "))
	}
	return ctor(cfg)
}

// Supported lists the names currently registered.
func Supported() []string {
	defaultRegistry.mu.RLock()
	defer defaultRegistry.mu.RUnlock()
	names := make([]string, 0, len(defaultRegistry.ctors))
	for name := range defaultRegistry.ctors {
		names = append(names, name)
	}
	return names
}
