package template

import (
	"maps"
	"slices"
)

// Layer is one level of a Scope. A nil value declares an argument without giving
// it a value, so lookups of that name stay unresolved until a more specific layer
// supplies one.
type Layer map[string]*string

// Value returns a pointer to s for use as a layer value.
func Value(s string) *string {
	return &s
}

// Strings builds a layer from plain string pairs.
func Strings(pairs map[string]string) Layer {
	l := make(Layer, len(pairs))
	for k, v := range pairs {
		l[k] = Value(v)
	}
	return l
}

// Scope is an ordered list of layers. The first layer that declares a name wins.
// A Scope is never modified after construction; With and Then return new scopes.
type Scope struct {
	layers []Layer
}

// NewScope creates a scope from layers ordered most specific first.
func NewScope(layers ...Layer) Scope {
	return Scope{}.Then(layers...)
}

// With returns a scope where layers take precedence over the receiver's layers.
func (s Scope) With(layers ...Layer) Scope {
	out := make([]Layer, 0, len(layers)+len(s.layers))
	for _, l := range layers {
		if l != nil {
			out = append(out, l)
		}
	}
	return Scope{layers: append(out, s.layers...)}
}

// Then returns a scope where layers are consulted after the receiver's layers.
func (s Scope) Then(layers ...Layer) Scope {
	out := make([]Layer, 0, len(layers)+len(s.layers))
	out = append(out, s.layers...)
	for _, l := range layers {
		if l != nil {
			out = append(out, l)
		}
	}
	return Scope{layers: out}
}

// Lookup returns the value of name from the first layer declaring it. The
// returned pointer is nil when that layer declares the name without a value.
func (s Scope) Lookup(name string) (*string, bool) {
	for _, l := range s.layers {
		if v, ok := l[name]; ok {
			return v, true
		}
	}
	return nil, false
}

// Keys returns every declared name once, layer by layer from the most
// specific, sorted within each layer.
func (s Scope) Keys() []string {
	seen := make(map[string]bool)
	var keys []string
	for _, l := range s.layers {
		for _, k := range slices.Sorted(maps.Keys(l)) {
			if !seen[k] {
				seen[k] = true
				keys = append(keys, k)
			}
		}
	}
	return keys
}

// Chain returns a scope that consults next after every layer of the receiver.
func (s Scope) Chain(next Scope) Scope {
	return s.Then(next.layers...)
}
