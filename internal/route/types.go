package route

import (
	"fmt"
	"reflect"
	"sort"
	"sync"
)

// Types maps the input type names used in routes files to Go types.
type Types struct {
	mu    sync.RWMutex
	types map[string]reflect.Type
}

// NewTypes creates an empty type registry.
func NewTypes() *Types {
	return &Types{types: make(map[string]reflect.Type)}
}

// Register records the type of prototype under name.
func (t *Types) Register(name string, prototype any) error {
	typ := elemType(prototype)
	if name == "" || typ == nil {
		return fmt.Errorf("register input type: name and prototype are required")
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if existing, ok := t.types[name]; ok && existing != typ {
		return fmt.Errorf("register input type %q: already bound to %s", name, existing)
	}
	t.types[name] = typ
	return nil
}

// Resolve returns the type registered under name.
func (t *Types) Resolve(name string) (reflect.Type, error) {
	if t == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownType, name)
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	typ, ok := t.types[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownType, name)
	}
	return typ, nil
}

// Names returns the registered names in sorted order.
func (t *Types) Names() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	names := make([]string, 0, len(t.types))
	for n := range t.types {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
