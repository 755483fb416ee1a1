// Package session tracks which logins are currently active for each user
// and enforces the concurrent-session cap.
//
// # Design
//
// A [Tracker] fronts a [Store] holding per-user session lists in insertion
// order. Two stores ship: an in-process map for tests and single-instance
// deployments, and a Redis store (one list per user, versioned binary
// encoding) for multi-instance topologies.
//
// Eviction is FIFO by registration time. When tracking a session pushes a
// user over the cap, the oldest session is removed and its refresh token
// identifier is handed to the revocation registry; this is the only code
// path coupling the two structures.
package session
