// Package crypto exposes the minimal primitives used by ringchat.
//
// Contents
//
//   - secp256k1 account key generation and (de)serialization (GenerateKey,
//     KeyFromBytes, MarshalKey)
//   - EIP-191 personal-message signing and recovery (SignText, RecoverText,
//     VerifyText), the scheme the network client uses for "eip191" accounts
//   - Account address derivation (AddressOf)
//   - Best-effort memory wiping for sensitive byte slices (Wipe)
//
// # Notes
//
// Signatures carry V in {27, 28} to match what browser wallets return; recovery
// accepts both encodings.
package crypto
