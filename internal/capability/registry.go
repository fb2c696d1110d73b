// Package capability maps named external actions to callable contracts and
// executes them behind a policy gate.
package capability

import (
	"context"
	"fmt"
	"log"

	"github.com/homequote/intake/internal/domain"
	"github.com/homequote/intake/internal/policy"
)

// Handler is one registered capability. Handlers own argument validation
// beyond presence, defaulting, and all side effects.
type Handler interface {
	Name() string
	Description() string
	Required() []string
	Optional() []string
	Invoke(ctx context.Context, args map[string]any) (map[string]any, error)
}

// Schema is the declared surface of a capability, exported to the model.
type Schema struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Required    []string `json:"required"`
	Optional    []string `json:"optional,omitempty"`
}

// Registry resolves capability names to handlers. It is read-only after
// registration and safe for concurrent use across sessions.
type Registry struct {
	handlers map[string]Handler
	order    []string
	policy   *policy.Engine
}

// NewRegistry creates an empty registry. The policy engine may be nil, in
// which case every invocation is allowed.
func NewRegistry(policyEngine *policy.Engine) *Registry {
	return &Registry{
		handlers: make(map[string]Handler),
		policy:   policyEngine,
	}
}

// Register adds a handler. Re-registering a name replaces the handler but
// keeps its position.
func (r *Registry) Register(h Handler) {
	if _, exists := r.handlers[h.Name()]; !exists {
		r.order = append(r.order, h.Name())
	}
	r.handlers[h.Name()] = h
}

// Resolve returns the handler for a name.
func (r *Registry) Resolve(name string) (Handler, bool) {
	h, ok := r.handlers[name]
	return h, ok
}

// Schemas returns the declared capability surfaces in registration order.
func (r *Registry) Schemas() []Schema {
	out := make([]Schema, 0, len(r.order))
	for _, name := range r.order {
		h := r.handlers[name]
		out = append(out, Schema{
			Name:        h.Name(),
			Description: h.Description(),
			Required:    h.Required(),
			Optional:    h.Optional(),
		})
	}
	return out
}

// Invoke executes a capability request and returns a tagged result.
// Failures are folded into the result rather than raised: the caller
// decides which capabilities escalate.
func (r *Registry) Invoke(ctx context.Context, userID string, req domain.CapabilityRequest) domain.CapabilityResult {
	h, ok := r.handlers[req.Name]
	if !ok {
		return failure(req.Name, domain.FailureNotFound,
			fmt.Sprintf("capability %q is not registered", req.Name))
	}

	for _, arg := range h.Required() {
		if _, present := req.Args[arg]; !present {
			return failure(req.Name, domain.FailureBadArgs,
				fmt.Sprintf("missing required argument %q", arg))
		}
	}

	if r.policy != nil {
		decision, reason, err := r.policy.Evaluate(ctx, map[string]any{
			"capability_name": req.Name,
			"user_id":         userID,
			"args":            req.Args,
		})
		if err != nil {
			return failure(req.Name, domain.FailureExecution,
				fmt.Sprintf("policy evaluation failed: %v", err))
		}
		if decision == policy.DecisionBlock {
			if reason == "" {
				reason = "blocked by policy"
			}
			return failure(req.Name, domain.FailureBlocked, reason)
		}
	}

	payload, err := r.safeInvoke(ctx, h, req.Args)
	if err != nil {
		log.Printf("ERROR: capability %s failed: %v", req.Name, err)
		return failure(req.Name, domain.FailureExecution, err.Error())
	}

	return domain.CapabilityResult{Name: req.Name, Success: true, Payload: payload}
}

func (r *Registry) safeInvoke(ctx context.Context, h Handler, args map[string]any) (payload map[string]any, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("capability panicked: %v", p)
		}
	}()
	return h.Invoke(ctx, args)
}

func failure(name, kind, message string) domain.CapabilityResult {
	return domain.CapabilityResult{
		Name:  name,
		Error: &domain.CapabilityError{Kind: kind, Message: message},
	}
}
