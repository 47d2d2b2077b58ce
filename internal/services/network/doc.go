// Package network adapts the external network client for the coordinator.
//
// A Client is one live instance: it is built with the local address and a
// signer, signs a session proof once at construction, races the configured node
// URLs to bind to the first one that accepts the proof, and then serves peer
// lists, transports, messages and manual signaling through that node.
//
// Inbound messages are delivered by a single reader goroutine in stream order.
package network
