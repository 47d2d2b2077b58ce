package store

import (
	"errors"
	"path/filepath"
	"sync"

	"ringchat/internal/domain"
)

const walletFilename = "wallet.json"

// ErrNoWallet is returned when no wallet has been created yet.
var ErrNoWallet = errors.New("no wallet found; run init first")

type walletFile struct {
	Address domain.Address `json:"address"`
	Key     sealed         `json:"key"`
}

// WalletFileStore persists the wallet key to disk, sealed under a passphrase.
// The address is stored in the clear so it can be shown without unlocking.
type WalletFileStore struct {
	dir string
	mu  sync.Mutex

	// scrypt parameters; tests lower N to keep runs fast.
	n, r, p int
}

// NewWalletFileStore returns a WalletFileStore rooted at dir.
func NewWalletFileStore(dir string) *WalletFileStore {
	n, r, p := scryptParamsDefault()
	return &WalletFileStore{dir: dir, n: n, r: r, p: p}
}

// WithScryptN overrides the scrypt cost parameter.
func (s *WalletFileStore) WithScryptN(n int) *WalletFileStore {
	s.n = n
	return s
}

// SaveWallet seals key under passphrase and records address next to it.
func (s *WalletFileStore) SaveWallet(passphrase string, address domain.Address, key []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sk, err := seal(passphrase, key, []byte(address), s.n, s.r, s.p)
	if err != nil {
		return err
	}
	return writeJSON(filepath.Join(s.dir, walletFilename), walletFile{Address: address, Key: sk}, 0o600)
}

// LoadWalletKey reads and unseals the wallet key.
func (s *WalletFileStore) LoadWalletKey(passphrase string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	wf, ok, err := s.read()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNoWallet
	}
	return open(passphrase, wf.Key, []byte(wf.Address))
}

// WalletAddress returns the recorded address without unsealing the key.
func (s *WalletFileStore) WalletAddress() (domain.Address, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	wf, ok, err := s.read()
	if err != nil || !ok {
		return "", false, err
	}
	return wf.Address, true, nil
}

func (s *WalletFileStore) read() (walletFile, bool, error) {
	var wf walletFile
	found, err := readJSON(filepath.Join(s.dir, walletFilename), &wf)
	if err != nil {
		return walletFile{}, false, err
	}
	return wf, found, nil
}

// Compile-time assertion that WalletFileStore implements domain.WalletStore.
var _ domain.WalletStore = (*WalletFileStore)(nil)
