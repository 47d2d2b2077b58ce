// Package presence tracks who is in the public room.
//
// The tracker keeps one websocket to the room server. It sends join and leave
// frames for the local address and replaces its member list with every snapshot
// the server pushes. Joined reports whether the local address was present in the
// last snapshot. The connection is re-dialed with backoff until Run's context
// ends, and a join requested earlier is repeated after each reconnect.
package presence
