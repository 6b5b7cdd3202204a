package document

import (
	"fmt"
	"iter"

	"gopkg.in/yaml.v3"
)

// Map is a map that iterates in first-insertion order. The zero value is ready to use.
type Map[K comparable, V any] struct {
	keys  []K
	items map[K]V
}

// NewMap creates an empty Map.
func NewMap[K comparable, V any]() *Map[K, V] {
	return &Map[K, V]{}
}

// Get returns the value stored under k.
func (m *Map[K, V]) Get(k K) (V, bool) {
	v, ok := m.items[k]
	return v, ok
}

// Has reports whether k is present.
func (m *Map[K, V]) Has(k K) bool {
	_, ok := m.items[k]
	return ok
}

// Set stores v under k. A key keeps the position of its first insertion.
func (m *Map[K, V]) Set(k K, v V) {
	if m.items == nil {
		m.items = make(map[K]V)
	}
	if _, ok := m.items[k]; !ok {
		m.keys = append(m.keys, k)
	}
	m.items[k] = v
}

// Delete removes k.
func (m *Map[K, V]) Delete(k K) {
	if _, ok := m.items[k]; !ok {
		return
	}
	delete(m.items, k)
	for i, key := range m.keys {
		if key == k {
			m.keys = append(m.keys[:i], m.keys[i+1:]...)
			break
		}
	}
}

// Clear removes every entry.
func (m *Map[K, V]) Clear() {
	m.keys = nil
	m.items = nil
}

// Len returns the number of entries.
func (m *Map[K, V]) Len() int {
	return len(m.keys)
}

// Keys returns the keys in insertion order.
func (m *Map[K, V]) Keys() []K {
	keys := make([]K, len(m.keys))
	copy(keys, m.keys)
	return keys
}

// Values returns the values in key insertion order.
func (m *Map[K, V]) Values() []V {
	values := make([]V, 0, len(m.keys))
	for _, k := range m.keys {
		values = append(values, m.items[k])
	}
	return values
}

// All iterates over the entries in insertion order.
func (m *Map[K, V]) All() iter.Seq2[K, V] {
	return func(yield func(K, V) bool) {
		for _, k := range m.keys {
			if !yield(k, m.items[k]) {
				return
			}
		}
	}
}

// MarshalYAML renders the map as a YAML mapping that keeps insertion order.
func (m Map[K, V]) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, k := range m.keys {
		var value yaml.Node
		if err := value.Encode(m.items[k]); err != nil {
			return nil, err
		}
		key := &yaml.Node{Kind: yaml.ScalarNode, Value: fmt.Sprint(k)}
		node.Content = append(node.Content, key, &value)
	}
	return node, nil
}
