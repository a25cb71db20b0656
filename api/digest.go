package api

import (
	"crypto/ecdsa"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/crypto"
)

// RequestDigest computes the digest an authenticated request is signed
// over: the EIP-191 prefixed hash of keccak256(path || body). Binding the
// path prevents replaying a signature against a different endpoint.
func RequestDigest(path string, body []byte) []byte {
	inner := crypto.Keccak256([]byte(path), body)
	return accounts.TextHash(inner)
}

// SignRequest signs a request digest with the caller's key, producing the
// X-Certvault-Signature header value's raw bytes.
func SignRequest(path string, body []byte, key *ecdsa.PrivateKey) ([]byte, error) {
	return crypto.Sign(RequestDigest(path, body), key)
}
