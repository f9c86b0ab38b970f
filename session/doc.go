// Package session provides the Redis-backed conversational session store.
//
// One session exists per end-user identifier. A session carries the user's
// flow progress (wizard name, step index, accumulated answers), the PIN gate
// state (awaiting flag plus the pending operation payload), and bookkeeping
// counters. Sessions expire on a sliding TTL: every read through
// [Store.GetOrCreate] refreshes the expiry.
//
// # Architecture boundaries
//
// This package owns session persistence and the wire codec only. It never
// interprets flow steps, classifies messages, or verifies PINs — that logic
// lives above it. Absence of a session is not an error: mutating operations
// on a missing key are no-ops and reads return a fresh record.
//
// # What this package must NOT do
//
//   - Expose the Redis client or encoding details to callers.
//   - Enforce gate or flow semantics beyond the structural invariant that a
//     pending operation and the awaiting-PIN flag are set and cleared together.
package session
