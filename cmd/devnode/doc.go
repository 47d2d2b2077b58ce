// Package main runs the in-memory development node that ringchat clients
// connect to during local runs and tests. It stands in for the remote side of
// the network client and also hosts the public room and a name registry.
//
// HTTP API
//
//	POST /rpc
//	    JSON-RPC 2.0: session.open, session.close, peers.list, peer.connect,
//	    peer.disconnect, message.send, signal.offer, signal.answer,
//	    signal.accept. Every call except session.open carries the session
//	    token in the X-Session header.
//
//	GET /events
//	    Websocket stream of inbound messages for the session.
//
//	GET /room
//	    Websocket public room: join/leave frames in, snapshot frames out.
//
//	GET /reverse/{address}, GET /resolve/{name}
//	    Name registry seeded with --name address=name.
//
// Behaviour
//
//   - All state is held in memory and lost on process exit.
//   - A lightweight access log records method, path, remote, status, bytes and
//     duration for each request.
//   - The default listen address is :8080.
package main
