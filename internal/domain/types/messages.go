package types

import "time"

// Message is one chat line. Order within a session is arrival order; At is for display only.
type Message struct {
	From Address   `json:"from"`
	To   Address   `json:"to"`
	Body string    `json:"body"`
	At   time.Time `json:"at"`
}

// Inbound is a payload delivered by the network client to this node.
type Inbound struct {
	From    Address
	To      Address
	Payload []byte
}
