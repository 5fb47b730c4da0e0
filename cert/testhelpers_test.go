package cert

import (
	"crypto/ed25519"
	"testing"
)

func genKeyPair(t *testing.T) KeyPair {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatalf("ed25519.GenerateKey: %v", err)
	}
	return KeyPair{PublicKey: PublicKey(pub), PrivateKey: []byte(priv)}
}
