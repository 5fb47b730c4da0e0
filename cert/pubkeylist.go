package cert

// Model fields only carry scalar values; the cert layer bridges
// that to "ordered list of public keys" and "ordered list of signatures" by
// packing a small length-prefixed sub-structure into one BYTES field. Each
// entry's own length prefix (rather than a fixed per-entry width) is what
// lets a single targetPublicKeys list mix Ed25519 (32-byte) and
// Ethereum-secp256k1 (20- or 33-byte) keys.

func encodePublicKeys(keys []PublicKey) ([]byte, error) {
	var out []byte
	for _, k := range keys {
		if len(k) > 255 {
			return nil, cerr(ErrValidationFailed, "public key entry too long to encode")
		}
		out = append(out, byte(len(k)))
		out = append(out, k...)
	}
	return out, nil
}

func decodePublicKeys(b []byte) ([]PublicKey, error) {
	var out []PublicKey
	off := 0
	for off < len(b) {
		n := int(b[off])
		off++
		if off+n > len(b) {
			return nil, cerr(ErrValidationFailed, "truncated public key list")
		}
		key := make([]byte, n)
		copy(key, b[off:off+n])
		out = append(out, PublicKey(key))
		off += n
	}
	return out, nil
}

// Signature is one entry in a cert's signature list.
type Signature struct {
	PublicKey PublicKey
	Data      []byte
}

func encodeSignatures(sigs []Signature) ([]byte, error) {
	var out []byte
	for _, s := range sigs {
		if len(s.PublicKey) > 255 || len(s.Data) > 255 {
			return nil, cerr(ErrValidationFailed, "signature entry too long to encode")
		}
		out = append(out, byte(len(s.PublicKey)))
		out = append(out, s.PublicKey...)
		out = append(out, byte(len(s.Data)))
		out = append(out, s.Data...)
	}
	return out, nil
}

func decodeSignatures(b []byte) ([]Signature, error) {
	var out []Signature
	off := 0
	for off < len(b) {
		if off >= len(b) {
			return nil, cerr(ErrValidationFailed, "truncated signature list")
		}
		pkLen := int(b[off])
		off++
		if off+pkLen > len(b) {
			return nil, cerr(ErrValidationFailed, "truncated signature public key")
		}
		pk := make([]byte, pkLen)
		copy(pk, b[off:off+pkLen])
		off += pkLen

		if off >= len(b) {
			return nil, cerr(ErrValidationFailed, "truncated signature data length")
		}
		sigLen := int(b[off])
		off++
		if off+sigLen > len(b) {
			return nil, cerr(ErrValidationFailed, "truncated signature data")
		}
		data := make([]byte, sigLen)
		copy(data, b[off:off+sigLen])
		off += sigLen

		out = append(out, Signature{PublicKey: PublicKey(pk), Data: data})
	}
	return out, nil
}
