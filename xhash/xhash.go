// Package xhash provides the collision-resistant hash primitive injected
// into the model and cert packages.
package xhash

import "golang.org/x/crypto/blake2b"

// Blake2b256 is the default Hash primitive: BLAKE2b with a 32-byte digest.
// It satisfies model.Hasher and cert.Hasher by structural typing.
type Blake2b256 struct{}

// Hash returns the 32-byte BLAKE2b digest of data.
func (Blake2b256) Hash(data []byte) [32]byte {
	return blake2b.Sum256(data)
}

// New returns the default Hasher implementation.
func New() Blake2b256 { return Blake2b256{} }
