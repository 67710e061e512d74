package dataflow

// Action is the per-token disposition an input_rule may set before
// returning. The default action on a freshly-arrived message is Consume.
type Action int

const (
	// Consume removes the message when the rule fires.
	Consume Action = iota
	// Keep leaves the message at the head of the port queue for the next
	// firing cycle.
	Keep
	// Drop discards the message without firing; it is never seen by run.
	Drop
)

func (a Action) String() string {
	switch a {
	case Consume:
		return "consume"
	case Keep:
		return "keep"
	case Drop:
		return "drop"
	default:
		return "unknown"
	}
}

// TokenState selects which variant of Token is populated.
type TokenState int

const (
	// Pending means no message has arrived yet on this port.
	Pending TokenState = iota
	// Ready means a message is sitting at the head of this port's queue.
	Ready
)

// Token is the per-input-port firing-cycle handle an operator's input_rule
// inspects and mutates. Exactly one Token exists per input port per firing
// attempt.
type Token struct {
	State   TokenState
	Message Message // populated iff State == Ready
	Action  Action  // only meaningful iff State == Ready; default Consume
}

// NewPendingToken constructs a Token with no message yet.
func NewPendingToken() Token {
	return Token{State: Pending}
}

// NewReadyToken constructs a Token for an arrived message, defaulting its
// action to Consume per spec.
func NewReadyToken(msg Message) Token {
	return Token{State: Ready, Message: msg, Action: Consume}
}

// IsReady reports whether the token carries a message.
func (t Token) IsReady() bool { return t.State == Ready }

// SetAction mutates the token's action; input_rule implementations call
// this to request Keep or Drop instead of the default Consume.
func (t *Token) SetAction(a Action) { t.Action = a }
