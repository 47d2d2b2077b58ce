package interfaces

import (
	"context"
	"time"

	domaintypes "ringchat/internal/domain/types"
)

// Signer produces a signature over a proof; it is handed to the network client once at
// construction.
type Signer func(ctx context.Context, proof []byte) ([]byte, error)

// InboundHandler receives every message addressed to this node.
type InboundHandler func(msg domaintypes.Inbound)

// ClientParams are the inputs required to construct a network client.
type ClientParams struct {
	RelayURL      string
	StableTimeout time.Duration
	SelfAddress   domaintypes.Address
	AddressType   string
	Signer        Signer
	Inbound       InboundHandler
}

// NetworkClient is one live instance of the external network client.
type NetworkClient interface {
	Listen(ctx context.Context) error
	ConnectViaRelay(ctx context.Context, nodeURLs []string) error
	RequestPeerList(ctx context.Context) ([]domaintypes.PeerInfo, error)

	Connect(ctx context.Context, address domaintypes.Address) error
	Disconnect(ctx context.Context, address domaintypes.Address) error
	Send(ctx context.Context, address domaintypes.Address, payload []byte) error

	CreateOffer(ctx context.Context, target domaintypes.Address) (string, error)
	AnswerOffer(ctx context.Context, offer string) (string, error)
	AcceptAnswer(ctx context.Context, answer string) error

	Close() error
}

// ClientFactory builds a NetworkClient from params.
type ClientFactory func(ctx context.Context, params ClientParams) (NetworkClient, error)
