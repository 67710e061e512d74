// Package errs defines the sentinel error taxonomy shared across the
// runtime, following the same "sentinel + %w wrapping" pattern the rest of
// this codebase's lineage uses for its own error kinds.
package errs

import "errors"

var (
	// ErrTypeMismatch is returned when a Payload downcast targets the wrong
	// concrete type.
	ErrTypeMismatch = errors.New("otusflow: payload type mismatch")

	// ErrPortDisconnected is returned by a send on a closed link.
	ErrPortDisconnected = errors.New("otusflow: port disconnected")

	// ErrEndOfStream is yielded by a receive on a drained, closed link.
	// Not a runner-fatal error; it drives graceful shutdown of that node.
	ErrEndOfStream = errors.New("otusflow: end of stream")

	// ErrDeserialization indicates a node's initialize() could not decode
	// its configuration payload.
	ErrDeserialization = errors.New("otusflow: deserialization error")

	// ErrConfigInvalid indicates a node or dataflow configuration is
	// invalid.
	ErrConfigInvalid = errors.New("otusflow: invalid configuration")

	// Builder errors (C6).
	ErrDuplicateNode    = errors.New("otusflow: duplicate node id")
	ErrUnknownPort      = errors.New("otusflow: unknown port")
	ErrPortTypeMismatch = errors.New("otusflow: port type mismatch")
	ErrDuplicateLink    = errors.New("otusflow: duplicate inbound link on input port")

	// ErrMissingInput indicates a graph.Dataflow declares an operator or
	// sink input port that never received a link via AddLink. Returned by
	// Dataflow.Validate; such a node would otherwise sit Pending forever.
	ErrMissingInput = errors.New("otusflow: declared input port has no inbound link")

	// Lifecycle errors (C7).
	ErrAlreadyRunning = errors.New("otusflow: node already running")
	ErrNotRunning     = errors.New("otusflow: node not running")

	// ErrPluginNotFound indicates no factory is registered under the given
	// name.
	ErrPluginNotFound = errors.New("otusflow: node factory not found")
)
