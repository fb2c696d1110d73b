package domain

// Capability failure kinds.
const (
	FailureNotFound  = "not_found"
	FailureBadArgs   = "bad_args"
	FailureBlocked   = "blocked"
	FailureExecution = "execution"
)

// CapabilityRequest names one registered capability and supplies its
// arguments. Requests are transient: they are constructed per turn from
// model output and discarded after execution.
type CapabilityRequest struct {
	Name string         `json:"name"`
	Args map[string]any `json:"args"`
}

// CapabilityError is a structured capability failure.
type CapabilityError struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// CapabilityResult is the tagged outcome of a capability invocation:
// either a success payload or a structured failure, never both.
type CapabilityResult struct {
	Name    string           `json:"name"`
	Success bool             `json:"success"`
	Payload map[string]any   `json:"payload,omitempty"`
	Error   *CapabilityError `json:"error,omitempty"`
}

// ModelOutput is the typed union the orchestrator branches on. A response
// is either plain text or a set of capability requests; extracted slot
// values ride alongside and are folded into the tracker by the
// orchestrator. Control flow never depends on the prose itself.
type ModelOutput struct {
	Text     string              `json:"text,omitempty"`
	Requests []CapabilityRequest `json:"requests,omitempty"`
	Slots    map[string]string   `json:"slots,omitempty"`
}

// HasRequests reports whether the model asked for capability execution.
func (o *ModelOutput) HasRequests() bool {
	return len(o.Requests) > 0
}

// ChatTurn is one entry of the conversation context sent to the model.
type ChatTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// TurnInput is an inbound user turn.
type TurnInput struct {
	SessionID string `json:"session_id"`
	UserID    string `json:"user_id"`
	Text      string `json:"text"`
	ImageRef  string `json:"image_ref,omitempty"`
}

// TurnOutput is the orchestrator's reply for one turn.
type TurnOutput struct {
	SessionID string `json:"session_id"`
	Reply     string `json:"reply"`
	Phase     Phase  `json:"phase"`
	ProjectID string `json:"project_id,omitempty"`
	BidCardID string `json:"bid_card_id,omitempty"`
}
