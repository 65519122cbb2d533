// utils/wallet.go
package utils

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
)

// Wallet is an Arweave JWK keyfile. Only the public half is needed
// here: the relay signs on our behalf, keyed by owner.
type Wallet struct {
	KeyType string `json:"kty"`
	Owner   string `json:"n"` // base64url RSA modulus
	raw     json.RawMessage
}

// LoadWallet reads and validates the JWK keyfile at path. A wallet
// that fails to load leaves the transfer path degraded, not the whole
// process dead, so callers decide what to do with the error.
func LoadWallet(path string) (*Wallet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read wallet file %s: %w", path, err)
	}

	var w Wallet
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("wallet file %s is not valid JSON: %w", path, err)
	}
	if w.KeyType != "RSA" || w.Owner == "" {
		return nil, fmt.Errorf("wallet file %s is not an RSA JWK keyfile", path)
	}
	w.raw = json.RawMessage(data)
	return &w, nil
}

// Address derives the wallet's own Arweave address:
// base64url(sha256(raw owner bytes)).
func (w *Wallet) Address() (string, error) {
	owner, err := base64.RawURLEncoding.DecodeString(w.Owner)
	if err != nil {
		return "", fmt.Errorf("wallet owner is not valid base64url: %w", err)
	}
	sum := sha256.Sum256(owner)
	return base64.RawURLEncoding.EncodeToString(sum[:]), nil
}

// Raw returns the full keyfile JSON for handing to the signing relay.
func (w *Wallet) Raw() json.RawMessage {
	return w.raw
}
