package runtime

import (
	"github.com/google/uuid"
)

// TransportHandle is the abstracted, opaque handle to cross-runtime
// transport. spec.md places multi-runtime gossip transport out of scope
// for the core; a local-only Context carries a nil handle, and any
// non-local link endpoint is modeled as a typed channel adapter over
// whatever concrete handle an embedder plugs in here (no such adapter
// ships in this tree).
type TransportHandle any

// Registry looks up node factory entries by name, for dynamic (as opposed
// to statically wired) node construction. Optional: a purely static
// dataflow never calls through it.
type Registry interface {
	Lookup(name string) (any, bool)
}

// Context carries the per-runtime shared services every node callback
// receives read-only: the hybrid logical clock, runtime identity, an
// optional transport handle and an optional node registry. Context itself
// is cheap to copy/share across runners — Clone returns a value sharing
// the same HLC pointer, matching the "Contexts are logically shared by
// multiple runners" guidance (spec.md §9).
type Context struct {
	HLC         *HLC
	RuntimeName string
	RuntimeUUID uuid.UUID
	Transport   TransportHandle
	Registry    Registry
}

// NewContext constructs a Context for a fresh runtime process: a new HLC
// and a random runtime UUID.
func NewContext(runtimeName string) *Context {
	return &Context{
		HLC:         NewHLC(),
		RuntimeName: runtimeName,
		RuntimeUUID: uuid.New(),
	}
}

// Clone returns a Context sharing this one's HLC, identity and transport —
// safe to hand to many runners concurrently since none of its fields are
// ever mutated after construction.
func (c *Context) Clone() *Context {
	clone := *c
	return &clone
}
