// Package store provides SQLite-backed persistence for client session state.
//
// The client persists exactly one value across restarts: the opaque session
// token under the fixed key "session". The store is a small key/value table
// so that other client-side preferences can live next to it.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//
// Schema changes are tracked with PRAGMA user_version and applied on Open.
package store
