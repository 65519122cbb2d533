package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeWallet(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "wallet.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadWallet(t *testing.T) {
	path := writeWallet(t, `{"kty":"RSA","n":"dGVzdC1tb2R1bHVz","e":"AQAB"}`)

	wallet, err := LoadWallet(path)
	require.NoError(t, err)
	require.Equal(t, "dGVzdC1tb2R1bHVz", wallet.Owner)
	require.JSONEq(t, `{"kty":"RSA","n":"dGVzdC1tb2R1bHVz","e":"AQAB"}`, string(wallet.Raw()))

	// Arweave addresses are 43 chars of unpadded base64url sha256.
	address, err := wallet.Address()
	require.NoError(t, err)
	require.Len(t, address, 43)

	// Same keyfile, same address.
	again, err := LoadWallet(path)
	require.NoError(t, err)
	addr2, err := again.Address()
	require.NoError(t, err)
	require.Equal(t, address, addr2)
}

func TestLoadWalletMissingFile(t *testing.T) {
	_, err := LoadWallet(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
}

func TestLoadWalletInvalid(t *testing.T) {
	_, err := LoadWallet(writeWallet(t, `not json`))
	require.Error(t, err)

	_, err = LoadWallet(writeWallet(t, `{"kty":"EC","n":"x"}`))
	require.Error(t, err)

	_, err = LoadWallet(writeWallet(t, `{"kty":"RSA"}`))
	require.Error(t, err)
}
