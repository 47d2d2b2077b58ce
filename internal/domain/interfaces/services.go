package interfaces

import (
	"context"

	domaintypes "ringchat/internal/domain/types"
)

// Wallet is an unlocked account able to produce personal-message signatures.
type Wallet interface {
	Address() domaintypes.Address
	// SignMessage returns a 0x-prefixed hex EIP-191 signature over msg.
	SignMessage(ctx context.Context, msg string) (string, error)
}

// IdentityService creates and unlocks the local wallet.
type IdentityService interface {
	GenerateWallet(passphrase string) (domaintypes.Address, error)
	UnlockWallet(passphrase string) (Wallet, error)
	WalletAddress() (domaintypes.Address, bool, error)
}

// NameService performs external name lookups (reverse and forward).
type NameService interface {
	LookupAddress(ctx context.Context, address domaintypes.Address) (string, error)
	ResolveName(ctx context.Context, name string) (domaintypes.Address, error)
}
