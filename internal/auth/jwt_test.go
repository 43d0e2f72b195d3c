package auth

import (
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

func TestJWTRoundTrip(t *testing.T) {
	secret := "test-secret"
	address := common.HexToAddress("0x2000000000000000000000000000000000000002")

	token, err := GenerateJWT(secret, address, time.Hour)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	claims, err := ParseJWT(secret, token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if common.HexToAddress(claims.Address) != address {
		t.Fatalf("address = %s, want %s", claims.Address, address.Hex())
	}
}

func TestJWTWrongSecret(t *testing.T) {
	address := common.HexToAddress("0x2000000000000000000000000000000000000002")
	token, err := GenerateJWT("secret-a", address, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := ParseJWT("secret-b", token); err == nil {
		t.Fatal("token accepted with wrong secret")
	}
}

func TestJWTDefaultExpiration(t *testing.T) {
	// Non-positive expirations fall back to the default lifetime.
	address := common.HexToAddress("0x2000000000000000000000000000000000000002")
	token, err := GenerateJWT("secret", address, 0)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := ParseJWT("secret", token); err != nil {
		t.Fatalf("token with default lifetime rejected: %v", err)
	}
}
