package dataflow

import (
	"fmt"

	"firestige.xyz/otusflow/internal/errs"
)

// Payload is an erased, immutable value carrying a runtime type tag.
// Downcasting via As is fallible: a tag mismatch returns errs.ErrTypeMismatch
// rather than panicking, matching the original runtime's try_get::<T>()
// discipline (original_source/zenoh-flow/tests/input_rule_drop.rs).
//
// A Payload is logically shared when a link fans out to several consumers;
// callers must not mutate the wrapped value after publishing it.
type Payload struct {
	tag   string
	value any
}

// NewPayload boxes v as a Payload tagged with its concrete Go type.
func NewPayload[T any](v T) Payload {
	return Payload{tag: fmt.Sprintf("%T", v), value: v}
}

// Tag returns the payload's runtime type tag.
func (p Payload) Tag() string { return p.tag }

// IsZero reports whether the payload was never assigned a value.
func (p Payload) IsZero() bool { return p.tag == "" }

// As attempts to downcast p to T. It returns errs.ErrTypeMismatch, wrapped
// with the expected and actual tags, when T does not match the value's
// concrete type.
func As[T any](p Payload) (T, error) {
	v, ok := p.value.(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("%w: want %T, have %s", errs.ErrTypeMismatch, zero, p.tag)
	}
	return v, nil
}
