package escrow

import (
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"
)

// Verifier checks a claim proof against the commitment hash stored on the
// record. The scheme is a deployment policy, not part of the state machine.
type Verifier interface {
	Verify(hash string, proof []byte) bool
}

// NewVerifier resolves the configured proof scheme.
func NewVerifier(scheme string) (Verifier, error) {
	switch strings.ToLower(strings.TrimSpace(scheme)) {
	case "", "keccak256":
		return PreimageVerifier{digest: func(b []byte) []byte {
			return crypto.Keccak256(b)
		}}, nil
	case "sha256":
		return PreimageVerifier{digest: func(b []byte) []byte {
			sum := sha256.Sum256(b)
			return sum[:]
		}}, nil
	case "ed25519":
		return Ed25519Verifier{}, nil
	default:
		return nil, fmt.Errorf("unknown proof scheme %q", scheme)
	}
}

// PreimageVerifier accepts a proof whose digest equals the stored hash.
type PreimageVerifier struct {
	digest func([]byte) []byte
}

func (v PreimageVerifier) Verify(hash string, proof []byte) bool {
	want := normalizeHex(hash)
	if want == "" || len(proof) == 0 {
		return false
	}
	return hex.EncodeToString(v.digest(proof)) == want
}

// Ed25519Verifier treats the stored hash as a hex-encoded ed25519 public key
// and the proof as a signature over that key's hex form. Deployments choosing
// this scheme must use a distinct key per escrow, since the signed message is
// derived from the commitment alone.
type Ed25519Verifier struct{}

const ed25519ClaimPrefix = "3tree-escrow claim:"

func (Ed25519Verifier) Verify(hash string, proof []byte) bool {
	keyHex := normalizeHex(hash)
	pub, err := hex.DecodeString(keyHex)
	if err != nil || len(pub) != ed25519.PublicKeySize {
		return false
	}
	if len(proof) != ed25519.SignatureSize {
		return false
	}
	msg := sha256.Sum256([]byte(ed25519ClaimPrefix + keyHex))
	return ed25519.Verify(ed25519.PublicKey(pub), msg[:], proof)
}

// ClaimMessage is the digest an ed25519 claimant signs. Exposed for clients
// and tests.
func ClaimMessage(hash string) [32]byte {
	return sha256.Sum256([]byte(ed25519ClaimPrefix + normalizeHex(hash)))
}

func normalizeHex(s string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), "0x"))
}
