// Package devnode is an in-memory node for local development and tests.
//
// It serves the node protocol from internal/node (JSON-RPC at /rpc and the
// event websocket at /events), a public room websocket at /room speaking the
// presence frames, and a static name registry at /reverse/{address} and
// /resolve/{name}. Nothing is persisted; restarting the process forgets every
// session and link.
//
// Transports between sessions are simulated: a link is opened either directly
// by peer.connect or by a manual offer, answer and accept exchange, and messages
// are only delivered over a connected link.
package devnode
