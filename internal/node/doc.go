// Package node is the client for the remote side of the external network client.
//
// A node is reached over two channels:
//   - JSON-RPC 2.0 over HTTP at POST {base}/rpc for request/response calls
//     (open a session, list peers, connect, send, manual signaling).
//   - A websocket at GET {base}/events for the pushed event stream
//     (inbound messages and peer state changes).
//
// A session is opened once with a signed proof of the caller's address; the
// returned token is sent on every later call in the X-Session header.
//
// The wire types are shared with the development node in internal/devnode.
package node
