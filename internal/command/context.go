package command

import (
	"context"
	"sort"
	"sync"
)

// Well-known context keys shared by the dispatcher, decorators and commands.
const (
	KeyRequest        = "_request_"
	KeyResponse       = "_response_"
	KeySession        = "_session_"
	KeyApplication    = "_application_"
	KeyPathParameters = "_pathparams_"
	KeyRoutingInfo    = "_routing_info_"
	KeyPrincipal      = "_principal_"

	// DefaultInputKey is where the decoded request body is bound when a
	// route does not name a key of its own.
	DefaultInputKey = "INPUT"
)

// Source is a read-only fallback consulted by Context.Get when a key is
// not present in the context's own store.
type Source interface {
	Lookup(key string) (any, bool)
}

// SourceFunc adapts a function to the Source interface.
type SourceFunc func(key string) (any, bool)

// Lookup calls f(key).
func (f SourceFunc) Lookup(key string) (any, bool) { return f(key) }

// MapSource is a Source backed by a plain map.
type MapSource map[string]any

// Lookup returns the value stored under key, ignoring nil entries.
func (m MapSource) Lookup(key string) (any, bool) {
	v, ok := m[key]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

// StringMapSource is a Source backed by a string map, such as extracted
// path parameters.
type StringMapSource map[string]string

// Lookup returns the value stored under key.
func (m StringMapSource) Lookup(key string) (any, bool) {
	v, ok := m[key]
	if !ok {
		return nil, false
	}
	return v, true
}

// Context is the request-scoped store handed to every command.
//
// Get consults the local store first and then each fallback source in the
// order they were added. Values written with Put after construction are
// recorded so the caller can push them back to the transport once the
// command has run. A Context belongs to exactly one request.
type Context struct {
	context.Context

	mu      sync.RWMutex
	values  map[string]any
	sources []Source
	updated map[string]struct{}
}

// NewContext creates an empty Context bound to parent. A nil parent is
// replaced with context.Background().
func NewContext(parent context.Context, sources ...Source) *Context {
	if parent == nil {
		parent = context.Background()
	}
	return &Context{
		Context: parent,
		values:  make(map[string]any),
		sources: append([]Source(nil), sources...),
		updated: make(map[string]struct{}),
	}
}

// AddSource appends a fallback source. Sources added later are consulted
// after the ones already present.
func (c *Context) AddSource(s Source) {
	if s == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sources = append(c.sources, s)
}

// Seed stores a value without recording it as an update. It is used while
// the context is being assembled.
func (c *Context) Seed(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if value == nil {
		delete(c.values, key)
		return
	}
	c.values[key] = value
}

// Put stores value under key and records the key as updated. A nil value
// removes the local entry so fallbacks become visible again.
func (c *Context) Put(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.updated[key] = struct{}{}
	if value == nil {
		delete(c.values, key)
		return
	}
	c.values[key] = value
}

// Remove deletes the local entry for key.
func (c *Context) Remove(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.values, key)
}

// Local returns the value held in the context's own store, ignoring
// fallback sources.
func (c *Context) Local(key string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.values[key]
	return v, ok
}

// Lookup resolves key through the local store and then the fallback
// sources.
func (c *Context) Lookup(key string) (any, bool) {
	c.mu.RLock()
	v, ok := c.values[key]
	sources := c.sources
	c.mu.RUnlock()
	if ok {
		return v, true
	}
	for _, s := range sources {
		if v, ok := s.Lookup(key); ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

// Get is Lookup without the presence flag.
func (c *Context) Get(key string) any {
	v, _ := c.Lookup(key)
	return v
}

// String returns the value for key when it is a string.
func (c *Context) String(key string) string {
	s, _ := Find[string](c, key)
	return s
}

// Keys returns the sorted keys of the local store.
func (c *Context) Keys() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	keys := make([]string, 0, len(c.values))
	for k := range c.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Updates returns the values written with Put since construction. Keys
// whose latest value was nil are omitted.
func (c *Context) Updates() map[string]any {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]any, len(c.updated))
	for k := range c.updated {
		if v, ok := c.values[k]; ok && v != nil {
			out[k] = v
		}
	}
	return out
}

// Find resolves key and asserts the value to T.
func Find[T any](c *Context, key string) (T, bool) {
	var zero T
	if c == nil {
		return zero, false
	}
	v, ok := c.Lookup(key)
	if !ok {
		return zero, false
	}
	t, ok := v.(T)
	if !ok {
		return zero, false
	}
	return t, true
}
