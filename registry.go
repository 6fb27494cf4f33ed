package uamodel

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/puzpuzpuz/xsync/v4"
)

// runtimeIDNamespace is the namespace index runtime-assigned encoding
// identifiers are minted in.
const runtimeIDNamespace uint16 = 1

// runtimeIDCounter is the single process-wide counter behind
// RuntimeAssigned encoding specs. Monotonic; values are never reused within
// a process's lifetime.
var runtimeIDCounter atomic.Uint32

func nextRuntimeNodeID() NodeID {
	return NewNumericNodeID(runtimeIDNamespace, runtimeIDCounter.Add(1))
}

// Registry is an append-only name catalog of compiled type definitions and
// enumerations. It enables forward and recursive references independent of
// compilation order: complex field types resolve through the registry on
// first use, not at compile time.
//
// Lookups are lock-free. Registrations serialize on a single writer lock,
// and runtime identifier assignment happens inside that critical section so
// counter order matches registration order.
type Registry struct {
	mu    sync.Mutex
	types *xsync.Map[string, *TypeDefinition]
	enums *xsync.Map[string, *EnumDefinition]
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		types: xsync.NewMap[string, *TypeDefinition](),
		enums: xsync.NewMap[string, *EnumDefinition](),
	}
}

// DefaultRegistry is the process-wide registry used by the zero-value
// Compiler. It lives for the life of the process and is never torn down.
var DefaultRegistry = NewRegistry()

// Register adds a compiled definition. Registering an identical definition
// again is a no-op returning the already-registered one; registering a
// divergent definition under the same name fails with ErrConflict, because
// a registered name's field layout is immutable.
func (r *Registry) Register(def *TypeDefinition) (*TypeDefinition, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.registerLocked(def)
}

func (r *Registry) registerLocked(def *TypeDefinition) (*TypeDefinition, error) {
	if existing, ok := r.types.Load(def.Name()); ok {
		if existing.fp == def.fp {
			return existing, nil
		}
		return nil, fmt.Errorf("%w: type %q is already registered with a different definition", ErrConflict, def.Name())
	}
	if def.runtimePending {
		def.binaryID = nextRuntimeNodeID()
		def.runtimePending = false
	}
	r.types.Store(def.Name(), def)
	return def, nil
}

// Lookup resolves a type name. A miss fails with ErrNotFound and callers
// must surface it as a missing dependency.
func (r *Registry) Lookup(name string) (*TypeDefinition, error) {
	if def, ok := r.types.Load(name); ok {
		return def, nil
	}
	return nil, fmt.Errorf("%w: type %q", ErrNotFound, name)
}

// RegisterEnum adds an enumeration with the same idempotency and conflict
// rules as Register.
func (r *Registry) RegisterEnum(e *EnumDefinition) (*EnumDefinition, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.enums.Load(e.Name()); ok {
		if existing.fingerprint() == e.fingerprint() {
			return existing, nil
		}
		return nil, fmt.Errorf("%w: enumeration %q is already registered with a different definition", ErrConflict, e.Name())
	}
	r.enums.Store(e.Name(), e)
	return e, nil
}

// LookupEnum resolves an enumeration name. A miss fails with ErrNotFound.
func (r *Registry) LookupEnum(name string) (*EnumDefinition, error) {
	if e, ok := r.enums.Load(name); ok {
		return e, nil
	}
	return nil, fmt.Errorf("%w: enumeration %q", ErrNotFound, name)
}

// TypeNames returns a snapshot of registered type names, for diagnostics.
// Order is unspecified.
func (r *Registry) TypeNames() []string {
	var names []string
	r.types.Range(func(name string, _ *TypeDefinition) bool {
		names = append(names, name)
		return true
	})
	return names
}
