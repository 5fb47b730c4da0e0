// Package cert implements the certificate hierarchy:
// BaseCert plus the five concrete variants (ChainCert, FriendCert,
// LicenseCert, DataCert, AuthCert), signing, verification, and chain-walk
// validation (validateAgainstTarget).
package cert

import (
	"odin.dev/model/model"
	"odin.dev/model/xhash"
)

// defaultHasher is used whenever a cert is constructed or decoded without
// an explicit Hasher.
var defaultHasher Hasher = xhash.New()

// DefaultHasher returns the package's default Hasher (blake2b-256). Pass
// it explicitly to a Create*Cert factory, or pass nil to have the
// factory substitute it automatically.
func DefaultHasher() Hasher { return defaultHasher }

// Primary model-type identifiers.
const (
	PrimaryChainCert   byte = 1
	PrimaryDefaultCert byte = 2
	PrimaryNodeCert    byte = 3
	PrimaryAuthCert    byte = 4
)

// Secondary model-type identifiers, scoped per primary.
const (
	SecondaryChainCert   byte = 1 // under PrimaryChainCert
	SecondaryFriendCert  byte = 2 // under PrimaryDefaultCert
	SecondaryDataCert    byte = 1 // under PrimaryNodeCert
	SecondaryLicenseCert byte = 2 // under PrimaryNodeCert
	SecondaryAuthCert    byte = 1 // under PrimaryAuthCert
)

func modelType(primary, secondary byte) [6]byte {
	return [6]byte{0, primary, 0, secondary, 0, 0}
}

var (
	ModelTypeChainCert   = modelType(PrimaryChainCert, SecondaryChainCert)
	ModelTypeFriendCert  = modelType(PrimaryDefaultCert, SecondaryFriendCert)
	ModelTypeDataCert    = modelType(PrimaryNodeCert, SecondaryDataCert)
	ModelTypeLicenseCert = modelType(PrimaryNodeCert, SecondaryLicenseCert)
	ModelTypeAuthCert    = modelType(PrimaryAuthCert, SecondaryAuthCert)
)

func modelTypeEqual(a, b [6]byte) bool { return a == b }

// PrefixMatch reports whether the first len(prefix) bytes of mt equal
// prefix, implementing the targetType wildcard rule.
func PrefixMatch(mt [6]byte, prefix []byte) bool {
	if len(prefix) > 6 {
		return false
	}
	for i := 0; i < len(prefix); i++ {
		if mt[i] != prefix[i] {
			return false
		}
	}
	return true
}

// DecodeCert inspects the 6-byte model-type header of image and constructs
// + loads the matching concrete Cert, using the package default Hasher.
func DecodeCert(image []byte) (Cert, error) {
	return decodeCertWithHasher(image, defaultHasher)
}

// decodeCertWithHasher is DecodeCert with an explicit Hasher, used so an
// embedded cert inherits the same Hasher as the cert embedding it.
func decodeCertWithHasher(image []byte, h Hasher) (Cert, error) {
	if len(image) < 6 {
		return nil, cerr(ErrValidationFailed, "embedded cert image too short for model-type header")
	}
	var mt [6]byte
	copy(mt[:], image[:6])

	var c Cert
	switch {
	case modelTypeEqual(mt, ModelTypeChainCert):
		c = NewChainCert(h)
	case modelTypeEqual(mt, ModelTypeFriendCert):
		c = NewFriendCert(h)
	case modelTypeEqual(mt, ModelTypeDataCert):
		c = NewDataCert(h)
	case modelTypeEqual(mt, ModelTypeLicenseCert):
		c = NewLicenseCert(h)
	case modelTypeEqual(mt, ModelTypeAuthCert):
		c = NewAuthCert(h)
	default:
		return nil, cerr(ErrValidationFailed, "unrecognized embedded cert model type")
	}
	if err := c.Load(image); err != nil {
		return nil, err
	}
	return c, nil
}

// baseFieldDefs is the fixed BaseCert schema shared by every variant.
// Subclasses append fields starting at index 30.
func baseFieldDefs() []model.FieldDef {
	return []model.FieldDef{
		{Index: 1, Name: "owner", Type: model.TypeBytes, MaxSize: 33, Hash: true},
		{Index: 2, Name: "targetPublicKeys", Type: model.TypeBytes, MaxSize: 4096, Hash: true},
		{Index: 3, Name: "config", Type: model.TypeU32LE, Hash: true},
		{Index: 4, Name: "lockedConfig", Type: model.TypeU32LE, Hash: true},
		{Index: 5, Name: "creationTime", Type: model.TypeU48LE, Hash: true},
		{Index: 6, Name: "expireTime", Type: model.TypeU48LE, Hash: true},
		{Index: 7, Name: "signatures", Type: model.TypeBytes, MaxSize: 8192, Hash: false},
		{Index: 8, Name: "constraints", Type: model.TypeBlock32, Hash: true},
		{Index: 9, Name: "cert", Type: model.TypeBytes, MaxSize: 16384, Hash: true},
		{Index: 10, Name: "multiSigThreshold", Type: model.TypeU8, Hash: true},
		{Index: 11, Name: "targetType", Type: model.TypeBytes, MaxSize: 6, Hash: true},
		{Index: 12, Name: "maxChainLength", Type: model.TypeU8, Hash: true},
		{Index: 13, Name: "targetMaxExpireTime", Type: model.TypeU48LE, Hash: true},
		{Index: 14, Name: "dynamicSelfSpec", Type: model.TypeBytes, MaxSize: 256, Hash: false},
		{Index: 15, Name: "transientConfig", Type: model.TypeU32LE, Hash: true},
	}
}

// BaseCert config bits.
const (
	ConfigHasDynamicSelf   uint32 = 1 << 0
	ConfigHasDynamicCert   uint32 = 1 << 1
	ConfigIsIndestructible uint32 = 1 << 2
)
