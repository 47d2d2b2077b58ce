package crypto_test

import (
	"testing"

	"ringchat/internal/crypto"
)

func TestSignText_RecoverRoundTrip(t *testing.T) {
	priv, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	want := crypto.AddressOf(&priv.PublicKey)

	msg := []byte("session proof")
	sig, err := crypto.SignText(priv, msg)
	if err != nil {
		t.Fatalf("SignText: %v", err)
	}
	if len(sig) != crypto.SignatureBytes {
		t.Fatalf("signature length = %d", len(sig))
	}
	if v := sig[64]; v != 27 && v != 28 {
		t.Fatalf("V = %d, want 27 or 28", v)
	}

	got, err := crypto.RecoverText(msg, sig)
	if err != nil {
		t.Fatalf("RecoverText: %v", err)
	}
	if got != want {
		t.Fatalf("recovered %s, want %s", got, want)
	}
	if !crypto.VerifyText(want, msg, sig) {
		t.Fatal("VerifyText rejected a valid signature")
	}
	if crypto.VerifyText(want, []byte("other message"), sig) {
		t.Fatal("VerifyText accepted a signature over a different message")
	}
}

func TestRecoverText_RejectsShortSignature(t *testing.T) {
	if _, err := crypto.RecoverText([]byte("m"), make([]byte, 10)); err == nil {
		t.Fatal("expected error for short signature")
	}
}

func TestKeyFromBytes_RoundTrip(t *testing.T) {
	priv, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	raw := crypto.MarshalKey(priv)
	defer crypto.Wipe(raw)

	back, err := crypto.KeyFromBytes(raw)
	if err != nil {
		t.Fatalf("KeyFromBytes: %v", err)
	}
	if crypto.AddressOf(&back.PublicKey) != crypto.AddressOf(&priv.PublicKey) {
		t.Fatal("address mismatch after round trip")
	}
	if _, err := crypto.KeyFromBytes(raw[:31]); err == nil {
		t.Fatal("expected error for 31-byte key")
	}
}
