package scope

import (
	"iter"
	"slices"
)

// Namespace is the output container of a [Capture], an open ended mapping of
// name to value that remembers insertion order.
//
// The zero value is not usable, construct one with [NewNamespace].
type Namespace[V any] struct {
	values map[string]V // The bindings
	order  []string     // Names in insertion order
}

// NewNamespace returns a new, empty [Namespace].
func NewNamespace[V any]() *Namespace[V] {
	return &Namespace[V]{
		values: make(map[string]V),
	}
}

// Get returns the value bound to name in the namespace.
func (n *Namespace[V]) Get(name string) (V, bool) {
	value, ok := n.values[name]
	return value, ok
}

// Set binds name to value. Rebinding an existing name keeps its original position.
func (n *Namespace[V]) Set(name string, value V) {
	if _, exists := n.values[name]; !exists {
		n.order = append(n.order, name)
	}
	n.values[name] = value
}

// Delete removes name from the namespace.
func (n *Namespace[V]) Delete(name string) {
	if _, exists := n.values[name]; !exists {
		return
	}
	delete(n.values, name)
	n.order = slices.DeleteFunc(n.order, func(s string) bool { return s == name })
}

// Len returns the number of bindings in the namespace.
func (n *Namespace[V]) Len() int {
	return len(n.order)
}

// Names returns the bound names in insertion order.
func (n *Namespace[V]) Names() []string {
	return slices.Clone(n.order)
}

// All returns an iterator over the bindings in insertion order.
func (n *Namespace[V]) All() iter.Seq2[string, V] {
	return func(yield func(string, V) bool) {
		for _, name := range n.order {
			if !yield(name, n.values[name]) {
				return
			}
		}
	}
}
