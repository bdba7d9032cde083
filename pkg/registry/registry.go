// Package registry provides a minimal thread-safe collection keyed by
// name, generic over the stored item. The schema registry is built on
// top of it.
package registry

import (
	"fmt"
	"sort"
	"sync"
)

// Registry is the name-keyed collection contract.
type Registry[T any] interface {
	Register(name string, item T) error
	Get(name string) (T, bool)
	List() []T
	Names() []string
	Remove(name string) error
	Count() int
	Clear()
}

// BaseRegistry is the map-backed implementation. The zero value is not
// usable; construct with NewBaseRegistry.
type BaseRegistry[T any] struct {
	mu     sync.RWMutex
	byName map[string]T
}

func NewBaseRegistry[T any]() *BaseRegistry[T] {
	return &BaseRegistry[T]{byName: make(map[string]T)}
}

// Register stores an item under name. Empty names and duplicate
// registrations are rejected.
func (r *BaseRegistry[T]) Register(name string, item T) error {
	if name == "" {
		return fmt.Errorf("name cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.byName[name]; dup {
		return fmt.Errorf("'%s' already registered", name)
	}
	r.byName[name] = item
	return nil
}

func (r *BaseRegistry[T]) Get(name string) (T, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	item, ok := r.byName[name]
	return item, ok
}

// List returns the items ordered by name, so callers iterate
// deterministically.
func (r *BaseRegistry[T]) List() []T {
	r.mu.RLock()
	defer r.mu.RUnlock()
	items := make([]T, 0, len(r.byName))
	for _, name := range r.sortedNames() {
		items = append(items, r.byName[name])
	}
	return items
}

// Names returns all registered names in sorted order.
func (r *BaseRegistry[T]) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sortedNames()
}

// sortedNames must be called with the lock held.
func (r *BaseRegistry[T]) sortedNames() []string {
	names := make([]string, 0, len(r.byName))
	for name := range r.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *BaseRegistry[T]) Remove(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byName[name]; !ok {
		return fmt.Errorf("'%s' not found", name)
	}
	delete(r.byName, name)
	return nil
}

func (r *BaseRegistry[T]) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byName)
}

func (r *BaseRegistry[T]) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byName = make(map[string]T)
}
