package store

import (
	"crypto/rand"
	"errors"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/scrypt"
)

const (
	// The current supported version of the sealed key format stored on disk.
	keystoreFormatVersion = 1
)

var (
	// ErrWrongPassphrase is returned when the passphrase is incorrect or the sealed key
	// has been modified.
	ErrWrongPassphrase = errors.New("wrong passphrase or corrupted wallet")
)

// sealed is the on-disk structure holding the ciphertext and KDF parameters.
type sealed struct {
	V      int    `json:"v"`
	Salt   []byte `json:"salt"`
	Nonce  []byte `json:"nonce"`
	N      int    `json:"scrypt_N"`
	R      int    `json:"scrypt_r"`
	P      int    `json:"scrypt_p"`
	Cipher []byte `json:"cipher"`
}

// seal derives a key from passphrase and encrypts raw. ad is bound to the ciphertext.
func seal(passphrase string, raw, ad []byte, N, r, p int) (sealed, error) {
	var salt [16]byte
	if _, err := rand.Read(salt[:]); err != nil {
		return sealed{}, err
	}
	key, err := scrypt.Key([]byte(passphrase), salt[:], N, r, p, chacha20poly1305.KeySize)
	if err != nil {
		return sealed{}, err
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return sealed{}, err
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return sealed{}, err
	}
	return sealed{
		V:      keystoreFormatVersion,
		Salt:   salt[:],
		Nonce:  nonce,
		N:      N,
		R:      r,
		P:      p,
		Cipher: aead.Seal(nil, nonce, raw, ad),
	}, nil
}

// open reverses seal.
func open(passphrase string, s sealed, ad []byte) ([]byte, error) {
	if s.V > keystoreFormatVersion {
		return nil, fmt.Errorf("unsupported keystore version %d", s.V)
	}
	key, err := scrypt.Key([]byte(passphrase), s.Salt, s.N, s.R, s.P, chacha20poly1305.KeySize)
	if err != nil {
		return nil, err
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}
	if len(s.Nonce) != aead.NonceSize() {
		return nil, ErrWrongPassphrase
	}
	pt, err := aead.Open(nil, s.Nonce, s.Cipher, ad)
	if err != nil {
		return nil, ErrWrongPassphrase
	}
	return pt, nil
}

// Tunables for scrypt key derivation.
func scryptParamsDefault() (N, r, p int) { return 1 << 15, 8, 1 }
