package cert

import (
	"bytes"
	"crypto/ed25519"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
	"golang.org/x/crypto/sha3"
)

// Scheme is the signature algorithm inferred from a public key's byte
// length: Ed25519 for 32-byte keys, Ethereum-style
// secp256k1 for 20-byte addresses or 33-byte compressed keys.
type Scheme uint8

const (
	SchemeUnknown Scheme = iota
	SchemeEd25519
	SchemeEthSecp256k1
)

// PublicKey is a raw public-key (or, for the Ethereum scheme, an address)
// byte string whose length selects its Scheme.
type PublicKey []byte

func (pk PublicKey) Scheme() (Scheme, error) {
	switch len(pk) {
	case 32:
		return SchemeEd25519, nil
	case 20, 33:
		return SchemeEthSecp256k1, nil
	default:
		return SchemeUnknown, cerr(ErrSignatureFailed, "public key has unsupported length %d", len(pk))
	}
}

func (pk PublicKey) Equal(other PublicKey) bool { return bytes.Equal(pk, other) }

// KeyPair is a signer: a public key plus the private key material needed
// to produce a signature in the scheme its PublicKey implies.
type KeyPair struct {
	PublicKey  PublicKey
	PrivateKey []byte
}

// sign produces a signature over digest using kp's inferred scheme.
func sign(kp KeyPair, digest [32]byte) ([]byte, error) {
	scheme, err := kp.PublicKey.Scheme()
	if err != nil {
		return nil, err
	}
	switch scheme {
	case SchemeEd25519:
		if len(kp.PrivateKey) != ed25519.PrivateKeySize {
			return nil, cerr(ErrSignatureFailed, "ed25519 private key must be %d bytes", ed25519.PrivateKeySize)
		}
		return ed25519.Sign(ed25519.PrivateKey(kp.PrivateKey), digest[:]), nil

	case SchemeEthSecp256k1:
		if len(kp.PrivateKey) != 32 {
			return nil, cerr(ErrSignatureFailed, "secp256k1 private key must be 32 bytes")
		}
		priv := secp256k1.PrivKeyFromBytes(kp.PrivateKey)
		compressed := len(kp.PublicKey) == 33
		return ecdsa.SignCompact(priv, digest[:], compressed), nil

	default:
		return nil, cerr(ErrSignatureFailed, "unsupported signature scheme")
	}
}

// verifySignature checks sig over digest against the claimed public key
// (or, for a 20-byte Ethereum address, against the address the recovered
// key derives).
func verifySignature(pub PublicKey, sig []byte, digest [32]byte) (bool, error) {
	scheme, err := pub.Scheme()
	if err != nil {
		return false, err
	}
	switch scheme {
	case SchemeEd25519:
		if len(sig) != ed25519.SignatureSize {
			return false, nil
		}
		return ed25519.Verify(ed25519.PublicKey(pub), digest[:], sig), nil

	case SchemeEthSecp256k1:
		if len(sig) != 65 {
			return false, nil
		}
		recovered, wasCompressed, err := ecdsa.RecoverCompact(sig, digest[:])
		if err != nil {
			return false, nil
		}
		switch len(pub) {
		case 33:
			if !wasCompressed {
				return false, nil
			}
			return bytes.Equal(recovered.SerializeCompressed(), pub), nil
		case 20:
			addr := ethAddress(recovered)
			return bytes.Equal(addr, pub), nil
		}
		return false, nil

	default:
		return false, cerr(ErrSignatureFailed, "unsupported signature scheme")
	}
}

// ethAddress derives the 20-byte Ethereum-style address (Keccak-256 of the
// uncompressed public key's X||Y, low 20 bytes) from a recovered secp256k1
// public key.
func ethAddress(pub *secp256k1.PublicKey) []byte {
	uncompressed := pub.SerializeUncompressed() // 0x04 || X(32) || Y(32)
	h := sha3.NewLegacyKeccak256()
	h.Write(uncompressed[1:])
	sum := h.Sum(nil)
	return sum[len(sum)-20:]
}
