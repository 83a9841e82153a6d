// Package ops implements the operation contract shared by every resource.
//
// An Operation issues exactly one transport call per invocation and emits a
// Started event followed by exactly one Succeeded or Failed event to the
// engine. Operations never mutate store state themselves; the value they
// emit is reconciled by the store that owns the resource.
//
// Invocations are blocking calls on the caller's goroutine. Two
// invocations of the same operation may be in flight at once; their
// terminal events are applied in arrival order.
package ops
