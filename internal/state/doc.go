// Package state implements the per-resource store of the client core.
//
// A store is a pure reducer over (State, Event) wrapped in a small
// container that owns the current value and notifies subscribers. One
// generic construction (New with a Rules value) is instantiated once per
// resource kind; the rules name the operations a resource supports and the
// reconciliation class each one applies on success.
//
// Phases:
//   - Started: status[op] = Pending, lastError[op] cleared
//   - Succeeded: status[op] = Succeeded, then the reconciliation class runs
//   - Failed: status[op] = Failed, lastError[op] = failure; items and
//     pagination are left untouched
//
// Events are applied in the order they arrive. Two overlapping invocations
// of the same operation both mutate state; whichever response lands last
// wins.
package state
