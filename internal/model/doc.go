// Package model provides the shared types of the erpsync client core.
//
// This package contains type definitions only. All other internal packages
// import model; model imports nothing internal. This keeps the resource
// entities, operation names and lifecycle events at the bottom of the
// dependency graph.
//
// Key design constraints:
//   - Every entity carries a server-issued identity key (Key()); the client
//     never fabricates one
//   - JSON tags follow the backend wire format (camelCase, Mongo "_id")
//   - A Failure is the only error shape the core recognizes
package model
