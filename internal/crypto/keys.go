package crypto

import (
	"crypto/ecdsa"
	"errors"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"ringchat/internal/domain"
)

// KeyBytes is the size of a raw secp256k1 private key.
const KeyBytes = 32

var errKeySize = errors.New("private key must be 32 bytes")

// GenerateKey returns a fresh secp256k1 account key.
func GenerateKey() (*ecdsa.PrivateKey, error) {
	return ethcrypto.GenerateKey()
}

// KeyFromBytes parses a raw 32-byte private key.
func KeyFromBytes(b []byte) (*ecdsa.PrivateKey, error) {
	if len(b) != KeyBytes {
		return nil, errKeySize
	}
	return ethcrypto.ToECDSA(b)
}

// MarshalKey returns the raw 32-byte form of priv. Callers should Wipe the result.
func MarshalKey(priv *ecdsa.PrivateKey) []byte {
	return ethcrypto.FromECDSA(priv)
}

// AddressOf returns the canonical account address of pub.
func AddressOf(pub *ecdsa.PublicKey) domain.Address {
	return domain.NormalizeAddress(ethcrypto.PubkeyToAddress(*pub).Hex())
}
