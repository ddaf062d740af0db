package revdom

import "github.com/go-playground/validator/v10"

// InboundEvent is the shape of one item from `receive(session) →
// event_batch` (§6) for the reference server: form validation and event
// dispatch are explicitly out of scope for the core (§1 Non-goals), but a
// reference transport still needs some inbound shape to validate before
// handing payloads to application event handlers.
type InboundEvent struct {
	SessionID          string         `json:"session_id" validate:"required"`
	Kind               string         `json:"kind" validate:"required,oneof=event reset_request close"`
	Payload            map[string]any `json:"payload"`
	LastAppliedVersion uint64         `json:"last_applied_version"`
}

var inboundValidator = validator.New()

// ValidateInbound checks ev against its struct tags. A failure here is a
// transport-layer concern, not a core error: it is returned as a plain
// error rather than a *revdom.Error, since it doesn't appear in the §7
// taxonomy.
func ValidateInbound(ev *InboundEvent) error {
	return inboundValidator.Struct(ev)
}
