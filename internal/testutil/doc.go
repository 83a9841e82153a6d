// Package testutil provides deterministic collaborators for tests: invocation
// IDs, an in-memory session token store and a scripted backend transport.
package testutil
