// Package harness runs conformance scenarios against a fully wired client.
//
// A scenario scripts the backend, drives operations through the registry
// and asserts on the resulting event trace and store state. Nothing is
// simulated above the transport: every event in the trace was applied by
// the engine.
//
// # Scenario Format
//
//	name: create_appends
//	description: "A created material is appended to the loaded list"
//	replies:
//	  - method: GET
//	    path: /materials
//	    body: [{_id: m1, name: Zinc}]
//	  - method: POST
//	    path: /materials/add-material
//	    body: {material: {_id: m9, name: Steel, stock: 100}}
//	setup:
//	  - invoke: material.listAll
//	flow:
//	  - invoke: material.create
//	    args: {payload: {name: Steel, stock: 100, unit: kg, threshold: 5}}
//	    expect: {phase: Succeeded}
//	assertions:
//	  - type: final_state
//	    resource: material
//	    ids: [m1, m9]
//	    status: {create: Succeeded}
//
// Invoke targets are "<resource>.<operation>", e.g. "order.receive" or
// "authentication.signIn".
//
// # Arrival Order
//
// A reply may name a hold. A step marked async is launched in the
// background and the harness waits until its request reaches the backend,
// where it blocks on the hold. A later release step opens the hold and
// waits for the invocation's terminal event. Releasing holds in a chosen
// order fixes the order in which results arrive.
//
// # Assertion Types
//
//   - trace_contains: an event for an invoke target, optionally in a phase
//     and with a failure message
//   - trace_order: first events of the given targets appear in order
//   - trace_count: exact number of events for a target
//   - final_state: items, pagination, status and last errors of a store
//   - session: signed-in user and admin gating
//   - notified: a transient notification was raised
//
// # Deterministic Testing
//
// Invocation IDs come from testutil.SequentialIDs and sequence numbers
// from a fresh engine clock, so a scenario always produces the same trace.
// RunWithGolden compares that trace with testdata/golden/<name>.golden.
package harness
