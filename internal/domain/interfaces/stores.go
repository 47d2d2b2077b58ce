package interfaces

import domaintypes "ringchat/internal/domain/types"

// WalletStore persists the wallet private key sealed under a passphrase.
type WalletStore interface {
	SaveWallet(passphrase string, address domaintypes.Address, key []byte) error
	LoadWalletKey(passphrase string) ([]byte, error)
	// WalletAddress returns the unsealed address recorded next to the key.
	WalletAddress() (domaintypes.Address, bool, error)
}

// SettingsStore persists connection settings in durable key-value storage.
type SettingsStore interface {
	LoadSettings() (domaintypes.Settings, error)
	SaveSettings(settings domaintypes.Settings) error
}
