package errs

import "fmt"

// UserError wraps any error returned by a node's input_rule, run or
// output_rule callback, tagging it with the node that produced it so the
// lifecycle manager can fault that node without killing its siblings.
type UserError struct {
	NodeID string
	Phase  string // "input_rule" | "run" | "output_rule" | "initialize" | "finalize"
	Err    error
}

func (e *UserError) Error() string {
	return fmt.Sprintf("otusflow: node %q failed in %s: %v", e.NodeID, e.Phase, e.Err)
}

func (e *UserError) Unwrap() error { return e.Err }

// NewUserError constructs a UserError, or returns nil if err is nil.
func NewUserError(nodeID, phase string, err error) error {
	if err == nil {
		return nil
	}
	return &UserError{NodeID: nodeID, Phase: phase, Err: err}
}
