package eval

import (
	"iter"
	"maps"
	"slices"
)

// An Env is an environment of variables available to running scopescript code.
//
// The global environment has no parent, every function call gets a fresh environment
// whose parent is the environment the function was declared in. Blocks of if and with
// statements do not get their own environment.
//
// An Env implements [scope.Table] and [scope.Frame] so the global environment
// can host a scope.
type Env struct {
	parent *Env             // Enclosing environment, nil for the globals
	values map[string]Value // Variables bound directly in this environment
}

// NewEnv returns a new, empty [Env] enclosed by parent, parent may be nil
// in which case the returned Env is a global environment.
func NewEnv(parent *Env) *Env {
	return &Env{
		parent: parent,
		values: make(map[string]Value),
	}
}

// TopLevel reports whether code running in the environment is top-level
// execution, i.e. not inside any function call.
func (e *Env) TopLevel() bool {
	return e.parent == nil
}

// All returns an iterator over the variables bound directly in the environment.
func (e *Env) All() iter.Seq2[string, Value] {
	return maps.All(e.values)
}

// Get returns the variable bound to name directly in this environment, enclosing
// environments are not consulted.
func (e *Env) Get(name string) (Value, bool) {
	value, ok := e.values[name]
	return value, ok
}

// Set binds name to value in this environment.
func (e *Env) Set(name string, value Value) {
	e.values[name] = value
}

// Delete unbinds name from this environment.
func (e *Env) Delete(name string) {
	delete(e.values, name)
}

// Lookup resolves name in this environment then each enclosing one in turn.
func (e *Env) Lookup(name string) (Value, bool) {
	for env := e; env != nil; env = env.parent {
		if value, ok := env.values[name]; ok {
			return value, true
		}
	}
	return nil, false
}

// Names returns the names bound directly in this environment, sorted.
func (e *Env) Names() []string {
	return slices.Sorted(maps.Keys(e.values))
}

// Len returns the number of variables bound directly in this environment.
func (e *Env) Len() int {
	return len(e.values)
}
