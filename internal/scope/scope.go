// Package scope implements the scope capture construct: a delimited region of top-level
// execution whose effects on top-level bindings are redirected into a private [Namespace]
// instead of leaking into the shared top-level table.
//
// On [Space.Open] every binding in the table is snapshotted. On [Capture.Close] the table
// is diffed against that snapshot:
//
//   - Names introduced during the capture are moved into the namespace and removed from the table
//   - Names rebound to a different value are copied into the namespace and reset to their original value
//   - Names that still hold the identical value are left alone, even if that value was mutated in place
//   - Names deleted during the capture are restored to their original value
//
// "Identical" is Go's == on the host value type, so a host wanting reference semantics for
// mutable values should represent them as pointers.
//
// The construct is only meaningful at the top level of a single sequential program, it
// is not safe for concurrent use and captures on the same [Space] may not be nested.
package scope

import (
	"errors"
	"iter"
	"maps"
	"slices"

	"go.followtheprocess.codes/log"
)

var (
	// ErrScopeViolation is returned when a capture is opened from anywhere other than
	// top-level execution e.g. from inside a function body.
	ErrScopeViolation = errors.New("scope cannot be used inside functions")

	// ErrNested is returned when a capture is opened while another on the same
	// [Space] is still open.
	ErrNested = errors.New("scope cannot be nested inside another scope")
)

// Table is the host's top-level binding table.
//
// Implementations only need to support single entry operations, the capture never
// replaces the table wholesale.
type Table[V comparable] interface {
	// All returns an iterator over every name and value currently bound.
	All() iter.Seq2[string, V]

	// Get returns the value bound to name and whether it was bound at all.
	Get(name string) (V, bool)

	// Set binds name to value, overwriting any existing binding.
	Set(name string, value V)

	// Delete removes the binding for name, it is a no-op if name is not bound.
	Delete(name string)
}

// Frame describes the execution context a capture is opened from.
type Frame interface {
	// TopLevel reports whether the frame is top-level execution, i.e. not
	// inside any function or other callable body.
	TopLevel() bool
}

// Space owns the capture construct for a single [Table].
type Space[V comparable] struct {
	table  Table[V]                 // The top-level binding table captures operate on
	wrap   func(ns *Namespace[V]) V // Wraps a namespace in a host value so it can be bound in the table
	logger *log.Logger              // Debug logs of capture decisions
	active *Capture[V]              // The open capture, if any
}

// New returns a new [Space] operating on table.
//
// wrap converts the namespace of each capture into a host value, the result is what
// [Capture.Handle] returns and is the value callers bind the namespace to. It must return
// a value that is == only to itself (typically a fresh pointer) so the capture can
// recognise its own binding in the table.
func New[V comparable](table Table[V], wrap func(ns *Namespace[V]) V, logger *log.Logger) *Space[V] {
	return &Space[V]{
		table:  table,
		wrap:   wrap,
		logger: logger.Prefixed("scope"),
	}
}

// Active reports whether a capture is currently open on the space.
func (s *Space[V]) Active() bool {
	return s.active != nil
}

// Open snapshots the table and returns a new open [Capture].
//
// It returns [ErrScopeViolation] if caller is not top-level execution and [ErrNested]
// if a capture is already open, in both cases nothing is mutated.
func (s *Space[V]) Open(caller Frame) (*Capture[V], error) {
	if caller == nil || !caller.TopLevel() {
		return nil, ErrScopeViolation
	}

	if s.active != nil {
		return nil, ErrNested
	}

	ns := NewNamespace[V]()
	capture := &Capture[V]{
		space:    s,
		snapshot: maps.Collect(s.table.All()),
		ns:       ns,
		handle:   s.wrap(ns),
	}

	s.active = capture
	s.logger.Debug("Opened scope", "bindings", len(capture.snapshot))

	return capture, nil
}

// Do opens a capture, calls body with its handle and closes the capture on every exit
// path, including a panic in body.
//
// The error from body is returned untouched, after the capture has closed. The returned
// [Namespace] is fully populated by the time Do returns, it is nil only if the capture
// could not be opened.
func (s *Space[V]) Do(caller Frame, body func(handle V) error) (*Namespace[V], error) {
	capture, err := s.Open(caller)
	if err != nil {
		return nil, err
	}
	defer capture.Close()

	return capture.Namespace(), body(capture.Handle())
}

// Capture is a single open (or closed) use of a [Space].
type Capture[V comparable] struct {
	space    *Space[V]     // The space this capture was opened on
	snapshot map[string]V  // Every binding in the table at the time of Open
	ns       *Namespace[V] // Where captured bindings end up
	handle   V             // The host value wrapping ns
	closed   bool          // Whether Close has already run
}

// Namespace returns the capture's output namespace. It is empty until the capture
// is closed.
func (c *Capture[V]) Namespace() *Namespace[V] {
	return c.ns
}

// Handle returns the host value wrapping the capture's namespace.
func (c *Capture[V]) Handle() V {
	return c.handle
}

// Report summarises what a [Capture.Close] did to the table.
type Report struct {
	Captured []string // Names introduced during the capture, moved into the namespace
	Restored []string // Names rebound during the capture, reset to their original value
	Revived  []string // Names deleted during the capture, bound again to their original value
}

// Close diffs the table against the snapshot taken at open, moving new and rebound
// bindings into the namespace and restoring the original values of any pre-existing
// names.
//
// Close always succeeds. Calling it more than once is a no-op returning an empty [Report].
func (c *Capture[V]) Close() Report {
	var report Report
	if c.closed {
		return report
	}

	c.closed = true
	defer func() { c.space.active = nil }()

	table := c.space.table
	current := maps.Collect(table.All())

	for _, name := range slices.Sorted(maps.Keys(current)) {
		value := current[name]
		if value == c.handle {
			// The binding for the namespace itself
			continue
		}

		original, existed := c.snapshot[name]
		switch {
		case !existed:
			c.ns.Set(name, value)
			table.Delete(name)
			report.Captured = append(report.Captured, name)
			c.space.logger.Debug("Captured new binding", "name", name)
		case value != original && (value == value || original == original):
			// A value unequal to itself (NaN) still counts as untouched
			c.ns.Set(name, value)
			table.Set(name, original)
			report.Restored = append(report.Restored, name)
			c.space.logger.Debug("Captured rebound binding", "name", name)
		}
	}

	for _, name := range slices.Sorted(maps.Keys(c.snapshot)) {
		if _, ok := current[name]; ok {
			continue
		}
		table.Set(name, c.snapshot[name])
		report.Revived = append(report.Revived, name)
		c.space.logger.Debug("Restored deleted binding", "name", name)
	}

	c.space.logger.Debug(
		"Closed scope",
		"captured", len(report.Captured),
		"restored", len(report.Restored),
		"revived", len(report.Revived),
	)

	return report
}
