// Package store provides local persistence for ringchat.
//
// It contains concrete implementations of the domain storage interfaces:
//   - WalletFileStore keeps the account key sealed with scrypt and
//     XChaCha20-Poly1305 in a JSON file, with the address stored in the clear.
//   - SettingsBoltStore keeps the relay URL and node URL in a bbolt database so
//     they survive restarts.
//
// Files live under the configured home directory (default ~/.ringchat). JSON
// files are replaced atomically via a temp file and rename.
package store
