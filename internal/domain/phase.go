// Package domain defines the core domain models for the intake service.
package domain

// Phase represents the orchestration phase of a conversation session.
type Phase string

const (
	PhaseGreeting      Phase = "GREETING"
	PhaseSlotFilling   Phase = "SLOT_FILLING"
	PhaseClassifying   Phase = "CLASSIFYING"
	PhaseRecordCreated Phase = "RECORD_CREATED"
	PhaseCompleted     Phase = "COMPLETED"
	PhaseError         Phase = "ERROR"
)

// Terminal reports whether the phase accepts no further orchestration.
func (p Phase) Terminal() bool {
	return p == PhaseCompleted || p == PhaseError
}
