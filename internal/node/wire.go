package node

import (
	"encoding/json"
	"fmt"

	"ringchat/internal/domain"
)

// SessionHeader carries the session token on RPC and event requests.
const SessionHeader = "X-Session"

// RPC method names.
const (
	MethodOpenSession  = "session.open"
	MethodCloseSession = "session.close"
	MethodListPeers    = "peers.list"
	MethodConnect      = "peer.connect"
	MethodDisconnect   = "peer.disconnect"
	MethodSend         = "message.send"
	MethodCreateOffer  = "signal.offer"
	MethodAnswerOffer  = "signal.answer"
	MethodAcceptAnswer = "signal.accept"
)

// JSON-RPC error codes used by the node.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeUnauthorized   = -32001
	CodeNotFound       = -32004
	CodeConflict       = -32009
)

// Request is a JSON-RPC 2.0 request.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      uint64          `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// Response is a JSON-RPC 2.0 response.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      uint64          `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
}

// Error is a JSON-RPC error object.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *Error) Error() string { return fmt.Sprintf("node rpc error %d: %s", e.Code, e.Message) }

// OpenParams opens a session for Address. Signature is the EIP-191 signature of
// Proof by Address, both hex encoded.
type OpenParams struct {
	Address     domain.Address `json:"address"`
	AddressType string         `json:"addressType"`
	RelayURL    string         `json:"relayUrl"`
	Proof       string         `json:"proof"`
	Signature   string         `json:"signature"`
}

// OpenResult is returned by session.open.
type OpenResult struct {
	Session string `json:"session"`
}

// PeerParams names a peer.
type PeerParams struct {
	Address domain.Address `json:"address"`
}

// SendParams sends Payload to Address.
type SendParams struct {
	Address domain.Address `json:"address"`
	Payload []byte         `json:"payload"`
}

// BlobParams carries an offer or answer blob.
type BlobParams struct {
	Blob string `json:"blob"`
}

// BlobResult returns an offer or answer blob.
type BlobResult struct {
	Blob string `json:"blob"`
}

// PeerEntry is one row of peers.list. State uses transport names
// (new, connecting, connected, disconnected, failed, closed) or is empty for
// peers that were never linked.
type PeerEntry struct {
	Address     domain.Address `json:"address"`
	TransportID string         `json:"transportId,omitempty"`
	State       string         `json:"state,omitempty"`
}

// Event types pushed on the event stream.
const (
	EventMessage = "message"
	EventPeer    = "peer"
)

// Event is one frame of the event stream.
type Event struct {
	Type    string         `json:"type"`
	From    domain.Address `json:"from,omitempty"`
	To      domain.Address `json:"to,omitempty"`
	Payload []byte         `json:"payload,omitempty"`

	Address domain.Address `json:"address,omitempty"`
	State   string         `json:"state,omitempty"`
}
