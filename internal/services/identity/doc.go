// Package identity manages the local wallet and adapts it into a signer.
//
// It enforces passphrase policy, generates the secp256k1 account key, persists it
// via the domain.WalletStore, and wraps an unlocked wallet into the
// (proof) -> signature function the network client is constructed with.
package identity
