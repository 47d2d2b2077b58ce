package identity

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/ethereum/go-ethereum/common/hexutil"

	"ringchat/internal/crypto"
	"ringchat/internal/domain"
)

const (
	// minPassphraseLength defines the minimum number of characters required for a passphrase.
	minPassphraseLength = 12
)

var (
	// ErrWeakPassphrase is returned when the passphrase fails the strength policy.
	ErrWeakPassphrase = fmt.Errorf(
		"passphrase is too weak (must be at least %d characters and include upper, lower, "+
			"number, and symbol)",
		minPassphraseLength,
	)

	// ErrSigningFailed is returned by a Signer when the wallet refuses or fails to sign.
	ErrSigningFailed = errors.New("signing failed")
)

// Service manages the local wallet using a backing store.
//
// The wallet is a single secp256k1 key. Its address is the node identity on the
// network and the key signs the client's session proof (EIP-191).
type Service struct {
	store domain.WalletStore
}

// New returns an identity service backed by the given store.
func New(s domain.WalletStore) *Service { return &Service{store: s} }

// GenerateWallet creates a new key, saves it sealed with the passphrase and returns
// its address.
func (s *Service) GenerateWallet(passphrase string) (domain.Address, error) {
	if !isSecurePassphrase(passphrase) {
		return "", ErrWeakPassphrase
	}
	priv, err := crypto.GenerateKey()
	if err != nil {
		return "", err
	}
	raw := crypto.MarshalKey(priv)
	defer crypto.Wipe(raw)

	addr := crypto.AddressOf(&priv.PublicKey)
	if err := s.store.SaveWallet(passphrase, addr, raw); err != nil {
		return "", err
	}
	return addr, nil
}

// UnlockWallet unseals the key and returns a wallet able to sign.
func (s *Service) UnlockWallet(passphrase string) (domain.Wallet, error) {
	raw, err := s.store.LoadWalletKey(passphrase)
	if err != nil {
		return nil, err
	}
	defer crypto.Wipe(raw)

	priv, err := crypto.KeyFromBytes(raw)
	if err != nil {
		return nil, fmt.Errorf("wallet key: %w", err)
	}
	return NewKeyWallet(priv), nil
}

// WalletAddress returns the stored address without unlocking.
func (s *Service) WalletAddress() (domain.Address, bool, error) {
	return s.store.WalletAddress()
}

// KeyWallet signs with an in-memory private key.
type KeyWallet struct {
	priv *ecdsa.PrivateKey
	addr domain.Address
}

// NewKeyWallet wraps priv.
func NewKeyWallet(priv *ecdsa.PrivateKey) *KeyWallet {
	return &KeyWallet{priv: priv, addr: crypto.AddressOf(&priv.PublicKey)}
}

// Address returns the wallet's account address.
func (w *KeyWallet) Address() domain.Address { return w.addr }

// SignMessage returns a 0x-hex EIP-191 signature over msg.
func (w *KeyWallet) SignMessage(ctx context.Context, msg string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	sig, err := crypto.SignText(w.priv, []byte(msg))
	if err != nil {
		return "", err
	}
	return hexutil.Encode(sig), nil
}

// NewSigner adapts a wallet into the signing function the network client is
// constructed with: the proof is signed as a personal message and the hex
// signature decoded back to bytes.
func NewSigner(w domain.Wallet) domain.Signer {
	return func(ctx context.Context, proof []byte) ([]byte, error) {
		signed, err := w.SignMessage(ctx, string(proof))
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrSigningFailed, err)
		}
		if !strings.HasPrefix(signed, "0x") && !strings.HasPrefix(signed, "0X") {
			signed = "0x" + signed
		}
		sig, err := hexutil.Decode(signed)
		if err != nil {
			return nil, fmt.Errorf("%w: decode signature: %w", ErrSigningFailed, err)
		}
		return sig, nil
	}
}

// isSecurePassphrase enforces a basic strength policy.
func isSecurePassphrase(passphrase string) bool {
	var hasUpper, hasLower, hasDigit, hasSymbol bool
	if len(passphrase) < minPassphraseLength {
		return false
	}
	for _, r := range passphrase {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsPunct(r), unicode.IsSymbol(r):
			hasSymbol = true
		}
	}
	return hasUpper && hasLower && hasDigit && hasSymbol
}

// Compile-time assertions.
var (
	_ domain.IdentityService = (*Service)(nil)
	_ domain.Wallet          = (*KeyWallet)(nil)
)
