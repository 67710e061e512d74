package dataflow

// OutputKind selects which variant of NodeOutput is populated.
type OutputKind int

const (
	OutputData OutputKind = iota
	OutputWatermark
	OutputControl
)

// NodeOutput is what an operator's output_rule produces for one output
// port this cycle: a fresh Data payload to be timestamped and dispatched,
// an explicit Watermark advance, or a Control signal to forward as-is.
// There is no implicit watermark forwarding (DESIGN.md Open Question #1):
// an embedder that wants downstream progress to advance on an otherwise
// silent port must return NewWatermarkOutput for it explicitly.
type NodeOutput struct {
	Kind OutputKind

	// Payload, populated iff Kind == OutputData.
	Payload Payload

	// Control, populated iff Kind == OutputControl.
	Control ControlKind
}

// NewDataOutput wraps payload as a data NodeOutput.
func NewDataOutput(payload Payload) NodeOutput {
	return NodeOutput{Kind: OutputData, Payload: payload}
}

// NewWatermarkOutput produces a watermark NodeOutput; the dispatched
// message's timestamp (stamped fresh from the shared HLC at send time) is
// itself the watermark value.
func NewWatermarkOutput() NodeOutput {
	return NodeOutput{Kind: OutputWatermark}
}

// NewControlOutput wraps kind as a control NodeOutput.
func NewControlOutput(kind ControlKind) NodeOutput {
	return NodeOutput{Kind: OutputControl, Control: kind}
}
