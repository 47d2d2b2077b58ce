// Package session is the session and state coordinator.
//
// A Coordinator owns the lifecycle of the network client and a single State
// keyed by peer address: connection state per peer, a chat log per peer with
// read/unread status, the ordered set of open tabs with one active peer, and the
// pending draft.
//
// # Transitions
//
// State only changes through the closed set of Command values applied by
// (*State).Apply. Every event source (user commands, inbound messages, connect
// results, periodic peer-list snapshots, name updates) funnels into the same
// mutex-guarded dispatch. Network calls are made between transitions, never
// while the lock is held, and results that arrive after the client was rebuilt
// or torn down are discarded by generation.
//
// # Reconciliation
//
// While the client is connected the peer list is fetched at start, after each
// manual handshake step that can open a transport, and on a fixed interval.
// Peers missing from a snapshot that were connected become disconnected; their
// chat sessions are kept. Fetch failures are logged and retried with backoff.
//
// # Views
//
// Snapshot returns a deep copy of State. Changes delivers a coalesced
// notification after every transition.
package session
