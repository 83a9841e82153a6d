// Package resources binds the six domain resources to their stores and
// operations.
//
// A Binding owns one resource store and the operations that feed it. The
// view layer calls the intent methods (RequestList, RequestPage, ...) and
// reads state back from the store; it never builds requests itself.
package resources
