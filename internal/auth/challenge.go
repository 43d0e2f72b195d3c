package auth

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// LoginMessage is the text a caller signs with their hot-wallet key to prove
// control of the address. The nonce is single use.
func LoginMessage(address common.Address, nonce string) string {
	return fmt.Sprintf("3tree-escrow login\naddress: %s\nnonce: %s", strings.ToLower(address.Hex()), nonce)
}

// VerifyLoginSignature checks an EIP-191 personal-sign signature over the
// login message and confirms the recovered key matches address.
func VerifyLoginSignature(address common.Address, nonce, signatureHex string) error {
	sig, err := hex.DecodeString(strings.TrimPrefix(signatureHex, "0x"))
	if err != nil {
		return fmt.Errorf("malformed signature: %w", err)
	}
	if len(sig) != crypto.SignatureLength {
		return fmt.Errorf("signature must be %d bytes", crypto.SignatureLength)
	}
	// Wallets emit V as 27/28; go-ethereum expects 0/1.
	if sig[crypto.RecoveryIDOffset] >= 27 {
		sig = append([]byte(nil), sig...)
		sig[crypto.RecoveryIDOffset] -= 27
	}

	msg := LoginMessage(address, nonce)
	digest := personalSignHash([]byte(msg))

	pub, err := crypto.SigToPub(digest, sig)
	if err != nil {
		return fmt.Errorf("recover signer: %w", err)
	}
	if crypto.PubkeyToAddress(*pub) != address {
		return fmt.Errorf("signature does not match address")
	}
	return nil
}

// personalSignHash applies the "\x19Ethereum Signed Message" envelope.
func personalSignHash(data []byte) []byte {
	prefixed := fmt.Sprintf("\x19Ethereum Signed Message:\n%d%s", len(data), data)
	return crypto.Keccak256([]byte(prefixed))
}
