package session

import "ringchat/internal/domain"

// Command is one state transition. The set is closed: only the types in this
// file implement it.
type Command interface{ command() }

// Reconcile merges a peer-list snapshot.
type Reconcile struct{ Peers []domain.PeerInfo }

// BeginConnect marks a peer connecting and records it as dialing.
type BeginConnect struct{ Address domain.Address }

// FinishConnect ends a dial started by BeginConnect. On failure the peer
// returns to the state it had before the dial. It is ignored when the peer is
// not dialing.
type FinishConnect struct {
	Address domain.Address
	OK      bool
}

// ActivateTab opens (if needed) and focuses a tab, marking it read.
type ActivateTab struct{ Address domain.Address }

// CloseTab closes a tab.
type CloseTab struct{ Address domain.Address }

// ReceiveMessage records an inbound message.
type ReceiveMessage struct{ Message domain.Message }

// AppendOutgoing records a locally sent message.
type AppendOutgoing struct{ Message domain.Message }

// SetDraft replaces the pending outgoing text.
type SetDraft struct{ Text string }

// SetExternalName records a verified external name for a known peer.
type SetExternalName struct {
	Address domain.Address
	Name    string
}

// SetRegisteredName records the registered name a peer announced.
type SetRegisteredName struct {
	Address domain.Address
	Name    string
}

// MarkAllDisconnected drops every live or pending transport on client teardown.
type MarkAllDisconnected struct{}

// SetClientStatus records the network client status.
type SetClientStatus struct{ Status domain.ClientStatus }

func (Reconcile) command()           {}
func (BeginConnect) command()        {}
func (FinishConnect) command()       {}
func (ActivateTab) command()         {}
func (CloseTab) command()            {}
func (ReceiveMessage) command()      {}
func (AppendOutgoing) command()      {}
func (SetDraft) command()            {}
func (SetExternalName) command()     {}
func (SetRegisteredName) command()   {}
func (MarkAllDisconnected) command() {}
func (SetClientStatus) command()     {}
