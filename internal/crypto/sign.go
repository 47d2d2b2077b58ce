package crypto

import (
	"bytes"
	"crypto/ecdsa"
	"errors"

	"github.com/ethereum/go-ethereum/accounts"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"ringchat/internal/domain"
)

// SignatureBytes is the size of an [R || S || V] recoverable signature.
const SignatureBytes = 65

// ErrBadSignature is returned for signatures of the wrong size or that do not recover.
var ErrBadSignature = errors.New("malformed signature")

// SignText signs msg as an EIP-191 personal message. V is 27 or 28, as wallets return it.
func SignText(priv *ecdsa.PrivateKey, msg []byte) ([]byte, error) {
	sig, err := ethcrypto.Sign(accounts.TextHash(msg), priv)
	if err != nil {
		return nil, err
	}
	sig[64] += 27
	return sig, nil
}

// RecoverText returns the address whose key produced sig over msg.
// Both V encodings (0/1 and 27/28) are accepted.
func RecoverText(msg, sig []byte) (domain.Address, error) {
	if len(sig) != SignatureBytes {
		return "", ErrBadSignature
	}
	s := bytes.Clone(sig)
	if s[64] >= 27 {
		s[64] -= 27
	}
	pub, err := ethcrypto.SigToPub(accounts.TextHash(msg), s)
	if err != nil {
		return "", errors.Join(ErrBadSignature, err)
	}
	return AddressOf(pub), nil
}

// VerifyText reports whether sig over msg was produced by address.
func VerifyText(address domain.Address, msg, sig []byte) bool {
	got, err := RecoverText(msg, sig)
	return err == nil && got == domain.NormalizeAddress(address.String())
}
