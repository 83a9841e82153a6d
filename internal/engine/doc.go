// Package engine implements the single-writer event loop of the client core.
//
// ARCHITECTURE:
//
// Operations run on their callers' goroutines and may overlap freely, both
// across resources and within one resource. Their lifecycle events
// (Started, Succeeded, Failed) are funneled through one FIFO queue and
// applied to the target store by Engine.Run on exactly one goroutine. This
// gives the client the same model as a browser event loop:
//   - every store transition is applied atomically, one at a time
//   - transitions are applied in arrival order, so the last response to
//     land wins
//   - nothing is de-duplicated and nothing is cancelled
//
// Event Processing Flow:
//  1. An operation calls Dispatch with a lifecycle event
//  2. The event is stamped with the next seq from Clock and enqueued
//  3. Run dequeues it and calls the Applier registered for its resource
//  4. Dispatch returns once the transition has been applied, so the caller
//     continues with the updated state visible
package engine
