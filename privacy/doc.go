// Package privacy decides whether edges may be written to the store.
//
// Rules are attached to an edge class and evaluated by Edge.Save before
// anything reaches the store. A denial fails the save with a
// *relmap.MutationError wrapping the decision, so callers can test it with
// errors.Is(err, privacy.Deny).
//
// # Rule Evaluation
//
// Rules are evaluated in order until one returns a final decision:
//
//   - Allow: permits the write and stops evaluation
//   - Deny: rejects the write and stops evaluation
//   - Skip: continues to the next rule
//
// A rule returning nil is treated as Skip, and a policy whose rules all skip
// permits the write. End a policy with AlwaysDenyRule to deny by default.
//
// # Edge Classes
//
//	friendship := privacy.NewClass("friendship",
//	    privacy.DenyIfNoViewer(),
//	    privacy.DenySelfLoopRule(),
//	    privacy.TenantRule("tenant"),
//	    privacy.AlwaysAllowRule(),
//	)
//	desc := edge.To("friends").Class(friendship).Descriptor()
//
// Classes can also be registered by name and referenced from relationship
// YAML through schema.Registry.RegisterClass.
//
// # Viewer
//
// The viewer making the request is carried by the context:
//
//	ctx = privacy.WithViewer(ctx, &privacy.SimpleViewer{UserID: "42"})
//
// DecisionContext short-circuits every policy evaluated with the returned
// context, which is useful for system tasks and migrations:
//
//	ctx = privacy.DecisionContext(ctx, privacy.Allow)
package privacy
