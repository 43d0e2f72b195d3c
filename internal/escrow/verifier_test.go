package escrow

import (
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
)

func TestNewVerifierSchemes(t *testing.T) {
	for _, scheme := range []string{"", "keccak256", "KECCAK256", "sha256", "ed25519"} {
		if _, err := NewVerifier(scheme); err != nil {
			t.Errorf("NewVerifier(%q): %v", scheme, err)
		}
	}
	if _, err := NewVerifier("md5"); err == nil {
		t.Error("NewVerifier accepted unknown scheme")
	}
}

func TestPreimageVerifierKeccak(t *testing.T) {
	v, _ := NewVerifier("keccak256")
	preimage := []byte("the quick brown fox")
	hash := hex.EncodeToString(crypto.Keccak256(preimage))

	if !v.Verify(hash, preimage) {
		t.Error("valid preimage rejected")
	}
	if !v.Verify("0x"+hash, preimage) {
		t.Error("0x-prefixed hash rejected")
	}
	if v.Verify(hash, []byte("wrong")) {
		t.Error("wrong preimage accepted")
	}
	if v.Verify(hash, nil) {
		t.Error("empty proof accepted")
	}
	if v.Verify("", preimage) {
		t.Error("empty hash accepted")
	}
}

func TestPreimageVerifierSha256(t *testing.T) {
	v, _ := NewVerifier("sha256")
	preimage := []byte("settlement secret")
	sum := sha256.Sum256(preimage)
	hash := hex.EncodeToString(sum[:])

	if !v.Verify(hash, preimage) {
		t.Error("valid preimage rejected")
	}
	if v.Verify(hash, []byte("wrong")) {
		t.Error("wrong preimage accepted")
	}
}

func TestEd25519Verifier(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatal(err)
	}
	hash := hex.EncodeToString(pub)

	v, _ := NewVerifier("ed25519")

	msg := ClaimMessage(hash)
	sig := ed25519.Sign(priv, msg[:])

	if !v.Verify(hash, sig) {
		t.Error("valid signature rejected")
	}
	if !v.Verify("0x"+hash, sig) {
		t.Error("0x-prefixed key rejected")
	}

	sig[0] ^= 0xff
	if v.Verify(hash, sig) {
		t.Error("corrupted signature accepted")
	}

	if v.Verify("deadbeef", sig) {
		t.Error("short key accepted")
	}
	if v.Verify(hash, []byte("short")) {
		t.Error("short signature accepted")
	}
}
