package cert

import (
	"bytes"

	"odin.dev/model/model"
)

// FriendCert links two issuers as mutually trusting peers. Its
// constraints formula is deliberately symmetric under swapping
// (owner, own shared key) with (otherIssuerPublicKey, the peer's shared key
// supplied as TargetValues.OtherIssuerKey): two FriendCerts issued by
// either side of the same pair produce the same constraints hash.
type FriendCert struct {
	*BaseCert
}

// FriendCert lockedConfig bits, scoped on top of BaseCert's.
// Each set bit feeds the matching embedder value (TargetValues.FriendLevel,
// TargetValues.IntermediaryPublicKey) into CalcConstraintsOnTarget; an
// unset bit feeds an absent marker instead.
const (
	LockedOnLevel        uint32 = 1 << 0
	LockedOnIntermediary uint32 = 1 << 1
)

func friendFieldDefs() []model.FieldDef {
	return append(baseFieldDefs(),
		model.FieldDef{Index: 30, Name: "otherIssuerPublicKey", Type: model.TypeBytes, MaxSize: 33, Hash: true},
	)
}

func friendSchema() *model.Schema {
	s, err := model.NewSchema(ModelTypeFriendCert, friendFieldDefs())
	if err != nil {
		panic(err)
	}
	return s
}

func NewFriendCert(h Hasher) *FriendCert {
	return &FriendCert{BaseCert: newBaseCert(KindFriend, friendSchema(), h)}
}

func NewFriendCertDefault() *FriendCert { return NewFriendCert(defaultHasher) }

// FriendParams extends BaseParams with FriendCert's own field.
type FriendParams struct {
	BaseParams
	OtherIssuerPublicKey PublicKey
}

// CreateFriendCert builds and signs a new FriendCert.
func CreateFriendCert(h Hasher, p FriendParams, signers ...KeyPair) (*FriendCert, error) {
	c := NewFriendCert(h)
	if err := c.applyBaseParams(p.BaseParams); err != nil {
		return nil, err
	}
	if err := c.m.SetBytes("otherIssuerPublicKey", []byte(p.OtherIssuerPublicKey)); err != nil {
		return nil, err
	}
	for _, kp := range signers {
		if err := c.Sign(kp); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// OtherIssuerPublicKey returns the peer side of the friendship.
func (c *FriendCert) OtherIssuerPublicKey() (PublicKey, bool) {
	raw, ok := c.m.GetBytes("otherIssuerPublicKey")
	if !ok {
		return nil, false
	}
	return PublicKey(raw), true
}

// myKey is the shared key this FriendCert asserts for its own side: the
// first entry of targetPublicKeys.
func (c *FriendCert) myKey() (PublicKey, error) {
	keys, err := c.targetPublicKeys()
	if err != nil {
		return nil, err
	}
	if len(keys) == 0 {
		return nil, validationFailed("FriendCert targetPublicKeys must contain the shared key")
	}
	return keys[0], nil
}

func (c *FriendCert) Validate(deep int, now *uint64) error {
	if err := c.validateCore(deep, now, c); err != nil {
		return err
	}
	if _, hasConstraints := c.constraints(); !hasConstraints {
		return validationFailed("FriendCert must carry constraints")
	}
	if _, ok := c.OtherIssuerPublicKey(); !ok {
		return validationFailed("FriendCert must name otherIssuerPublicKey")
	}
	if c.config()&ConfigIsIndestructible != 0 {
		return validationFailed("FriendCert must not be indestructible")
	}
	keys, err := c.targetPublicKeys()
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		return validationFailed("FriendCert targetPublicKeys must not be empty")
	}
	return nil
}

func (c *FriendCert) ValidateAgainstTarget(tv TargetValues) error {
	return c.validateAgainstTargetCore(tv, c.CalcConstraintsOnTarget)
}

// CalcConstraintsOnTarget implements the symmetric pairing formula: sort
// (issuer, otherIssuer) and sort (myKey, otherKey) each into a canonical
// order, then hash pubLow, pubHigh, targetType, keyLow, keyHigh, and the
// two lock-gated fields. Because the same ordering results
// regardless of which side's cert computes it, two FriendCerts issued by
// either peer for the other produce identical constraints.
func (c *FriendCert) CalcConstraintsOnTarget(tv TargetValues) ([32]byte, error) {
	issuer, _ := c.owner()
	otherIssuer, _ := c.OtherIssuerPublicKey()
	myKey, err := c.myKey()
	if err != nil {
		return [32]byte{}, err
	}
	otherKey := tv.OtherIssuerKey
	if otherKey == nil {
		return [32]byte{}, validationFailed("FriendCert target must supply OtherIssuerKey")
	}

	issuerA, issuerB := canonicalOrder(issuer, otherIssuer)
	keyA, keyB := canonicalOrder(myKey, otherKey)
	lc := c.lockedConfig()

	return hashConcat(c.h,
		presentBytes(issuerA),
		presentBytes(issuerB),
		presentBytes(c.targetType()),
		presentBytes(keyA),
		presentBytes(keyB),
		gatedU8(lc&LockedOnLevel != 0, tv.FriendLevel),
		gatedBytes(lc&LockedOnIntermediary != 0, tv.IntermediaryPublicKey),
	), nil
}

func canonicalOrder(a, b PublicKey) (PublicKey, PublicKey) {
	if bytes.Compare(a, b) <= 0 {
		return a, b
	}
	return b, a
}

// DestructionHash computes the "achilles heel" hash that lets owner
// authorize destroying this FriendCert early: Hash(DESTROY_FRIEND_CERT,
// owner, Hash(DESTROY_FRIEND_CERT, owner, key)), nested so that knowledge of the inner hash alone
// cannot be replayed as the outer one.
func (c *FriendCert) DestructionHash(owner PublicKey, key PublicKey) [32]byte {
	const tag = "DESTROY_FRIEND_CERT"
	inner := hashConcat(c.h, presentBytes([]byte(tag)), presentBytes(owner), presentBytes(key))
	return hashConcat(c.h, presentBytes([]byte(tag)), presentBytes(owner), presentBytes(inner[:]))
}
