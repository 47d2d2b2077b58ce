package types

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// AddressTypeEIP191 is the only account type the network client is built with.
const AddressTypeEIP191 = "eip191"

// Address is a canonical peer address: lower-cased and 0x-prefixed.
type Address string

// String returns the string form of the address.
func (a Address) String() string { return string(a) }

// NormalizeAddress lower-cases s and adds the 0x prefix when it is missing.
// It does not validate length or alphabet; see ValidAddress.
func NormalizeAddress(s string) Address {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return ""
	}
	if !strings.HasPrefix(s, "0x") {
		s = "0x" + s
	}
	return Address(s)
}

// ValidAddress reports whether s is a 20-byte hex account address.
func ValidAddress(s string) bool {
	return common.IsHexAddress(strings.TrimSpace(s))
}

// ConnectionState is the coordinator's view of a peer transport.
type ConnectionState string

const (
	StateAbsent       ConnectionState = ""
	StateConnecting   ConnectionState = "connecting"
	StateConnected    ConnectionState = "connected"
	StateDisconnected ConnectionState = "disconnected"
)

// String returns the string form of the state; absent renders as "absent".
func (s ConnectionState) String() string {
	if s == StateAbsent {
		return "absent"
	}
	return string(s)
}

// ParseConnectionState maps a transport state reported by the network client
// (WebRTC-style names, any case) onto a ConnectionState.
func ParseConnectionState(s string) ConnectionState {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "connected", "completed":
		return StateConnected
	case "connecting", "new", "checking":
		return StateConnecting
	case "disconnected", "failed", "closed":
		return StateDisconnected
	default:
		return StateAbsent
	}
}

// ReadStatus marks whether a chat session has unseen messages.
type ReadStatus string

const (
	Read   ReadStatus = "read"
	Unread ReadStatus = "unread"
)

// ClientStatus is the lifecycle status of the network client.
type ClientStatus string

const (
	ClientDisconnected ClientStatus = "disconnected"
	ClientConnecting   ClientStatus = "connecting"
	ClientConnected    ClientStatus = "connected"
	ClientFailed       ClientStatus = "failed"
)

// String returns the string form of the status.
func (s ClientStatus) String() string { return string(s) }
