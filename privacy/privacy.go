// Package privacy provides rules deciding whether an edge may be written,
// and helpers to combine them into policies attached to edge classes.
package privacy

import (
	"context"
	"errors"
	"fmt"

	"github.com/syssam/relmap"
)

// Policy decision sentinel errors.
//
// These errors are returned from rules to indicate how the policy
// evaluation should proceed. Use errors.Is() to check for these values:
//
//	if errors.Is(err, privacy.Allow) { ... }
//	if errors.Is(err, privacy.Deny) { ... }
//	if errors.Is(err, privacy.Skip) { ... }
var (
	// Allow may be returned by rules to indicate that the policy
	// evaluation should terminate with an allow decision.
	Allow = errors.New("relmap/privacy: allow rule")

	// Deny may be returned by rules to indicate that the policy
	// evaluation should terminate with a deny decision.
	Deny = errors.New("relmap/privacy: deny rule")

	// Skip may be returned by rules to indicate that the policy
	// evaluation should continue to the next rule in the chain.
	Skip = errors.New("relmap/privacy: skip rule")
)

// Allowf returns a formatted wrapped Allow decision.
func Allowf(format string, a ...any) error {
	return fmt.Errorf(format+": %w", append(a, Allow)...)
}

// Denyf returns a formatted wrapped Deny decision.
func Denyf(format string, a ...any) error {
	return fmt.Errorf(format+": %w", append(a, Deny)...)
}

// Skipf returns a formatted wrapped Skip decision.
func Skipf(format string, a ...any) error {
	return fmt.Errorf(format+": %w", append(a, Skip)...)
}

// EdgeRule decides whether an edge may be written.
type EdgeRule interface {
	EvalEdge(context.Context, *relmap.Edge) error
}

// EdgeRuleFunc type is an adapter which allows the use of ordinary
// functions as edge rules.
type EdgeRuleFunc func(context.Context, *relmap.Edge) error

// EvalEdge returns f(ctx, e).
func (f EdgeRuleFunc) EvalEdge(ctx context.Context, e *relmap.Edge) error {
	return f(ctx, e)
}

// AlwaysAllowRule returns a rule that always returns an Allow decision.
func AlwaysAllowRule() EdgeRule {
	return fixedDecision{Allow}
}

// AlwaysDenyRule returns a rule that always returns a Deny decision.
func AlwaysDenyRule() EdgeRule {
	return fixedDecision{Deny}
}

// ContextEdgeRule creates an edge rule from a context evaluation function.
// Returning nil is equivalent to returning Skip.
func ContextEdgeRule(eval func(context.Context) error) EdgeRule {
	return EdgeRuleFunc(func(ctx context.Context, _ *relmap.Edge) error {
		return eval(ctx)
	})
}

// OnEdgeType evaluates the given rule only on edges of the given type.
func OnEdgeType(rule EdgeRule, typ string) EdgeRule {
	return EdgeRuleFunc(func(ctx context.Context, e *relmap.Edge) error {
		if e.Type() == typ {
			return rule.EvalEdge(ctx, e)
		}
		return Skip
	})
}

// DenySelfLoopRule returns a rule denying edges that start and end at the
// same node.
func DenySelfLoopRule() EdgeRule {
	return EdgeRuleFunc(func(_ context.Context, e *relmap.Edge) error {
		if e.Start().ID() == e.End().ID() {
			return Denyf("relmap/privacy: self loop on %s", e.Type())
		}
		return Skip
	})
}

// EdgePolicy evaluates its rules in order and implements relmap.EdgePolicy.
// The first rule returning Allow ends the evaluation with a nil error, the
// first returning any other non-Skip error denies the write. A policy whose
// rules all skip allows the write.
type EdgePolicy []EdgeRule

// EvalEdge evaluates the policy for e. A decision attached to ctx with
// DecisionContext takes precedence over the rules.
func (p EdgePolicy) EvalEdge(ctx context.Context, e *relmap.Edge) error {
	if decision, ok := DecisionFromContext(ctx); ok {
		return decision
	}
	for _, rule := range p {
		switch decision := rule.EvalEdge(ctx, e); {
		case decision == nil || errors.Is(decision, Skip):
		case errors.Is(decision, Allow):
			return nil
		default:
			return decision
		}
	}
	return nil
}

// NewClass returns an edge class guarded by the given rules.
func NewClass(name string, rules ...EdgeRule) *relmap.EdgeClass {
	return &relmap.EdgeClass{Name: name, Policy: EdgePolicy(rules)}
}

type decisionCtxKey struct{}

// DecisionContext creates a new context from the given parent context with
// a policy decision attached to it.
func DecisionContext(parent context.Context, decision error) context.Context {
	if decision == nil || errors.Is(decision, Skip) {
		return parent
	}
	return context.WithValue(parent, decisionCtxKey{}, decision)
}

// DecisionFromContext retrieves the policy decision from the context.
func DecisionFromContext(ctx context.Context) (error, bool) {
	decision, ok := ctx.Value(decisionCtxKey{}).(error)
	if ok && errors.Is(decision, Allow) {
		decision = nil
	}
	return decision, ok
}

type fixedDecision struct {
	decision error
}

func (f fixedDecision) EvalEdge(context.Context, *relmap.Edge) error {
	return f.decision
}

var (
	_ relmap.EdgePolicy = EdgePolicy(nil)
	_ EdgeRule          = EdgeRuleFunc(nil)
)
