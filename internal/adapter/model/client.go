// Package model abstracts the language-model collaborator. The model is
// treated as a black box mapping conversation context to a typed union of
// plain text, capability requests, and extracted slot values.
package model

import (
	"context"

	"github.com/homequote/intake/internal/capability"
	"github.com/homequote/intake/internal/domain"
)

// UpdateSlotsName is the pseudo-capability the model uses to report slot
// values it extracted from the conversation. It is decoded into
// ModelOutput.Slots by the adapter and never reaches the registry.
const UpdateSlotsName = "update_slots"

// Request is the conversation context for one model call.
type Request struct {
	Turns        []domain.ChatTurn
	Capabilities []capability.Schema
}

// Client defines the model operations used by the orchestrator.
type Client interface {
	Complete(ctx context.Context, req *Request) (*domain.ModelOutput, error)
}
