// Package signaling wraps the node's opaque offer and answer blobs in a small
// correlation envelope so that blobs can be exchanged by hand (copy and paste or
// QR code) between two people.
//
// # Format
//
// An envelope is a CBOR map
//
//	{v: 1, kind: 1|2, id: "<uuid>", target: "0x...", payload: <bytes>}
//
// encoded with unpadded base64url. Kind 1 is an offer and kind 2 an answer. An
// answer carries the id of the offer it responds to, which lets the initiator
// match it to a pending offer.
//
// # Errors
//
// Every decoding failure wraps ErrMalformed.
package signaling
