// Package policy gates capability invocation with an OPA rego policy.
package policy

import (
	"context"
	"fmt"

	"github.com/open-policy-agent/opa/rego"
)

// Decisions returned by Evaluate.
const (
	DecisionAllow = "allow"
	DecisionBlock = "block"
)

// Engine is the OPA policy engine. It is read-only after construction and
// safe for concurrent use across sessions.
type Engine struct {
	query rego.PreparedEvalQuery
}

// NewEngine compiles the given rego policy content.
func NewEngine(ctx context.Context, policyContent string) (*Engine, error) {
	r := rego.New(
		rego.Query("data.capability_policy.decision"),
		rego.Module("capability_policy.rego", policyContent),
	)

	query, err := r.PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare rego: %w", err)
	}

	return &Engine{query: query}, nil
}

// Evaluate checks the capability policy. Input carries capability_name,
// args, and user_id. Returns the decision and an optional reason.
func (e *Engine) Evaluate(ctx context.Context, input interface{}) (string, string, error) {
	results, err := e.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return "", "", fmt.Errorf("failed to evaluate policy: %w", err)
	}

	if len(results) == 0 || len(results[0].Expressions) == 0 {
		return DecisionAllow, "default", nil
	}

	if s, ok := results[0].Expressions[0].Value.(string); ok {
		return s, "", nil
	}
	return DecisionAllow, "unexpected return type", nil
}

// DefaultPolicy allows every registered capability. Deployments override
// it to block capabilities per user or argument, e.g. writes for read-only
// API keys.
const DefaultPolicy = `
package capability_policy

default decision = "allow"

# Example: block persistence writes for the anonymous user.
decision = "block" {
	input.capability_name == "create_project"
	input.user_id == ""
}
`
