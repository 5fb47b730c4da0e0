package cert

import (
	"bytes"

	"odin.dev/model/model"
)

// Kind discriminates the five concrete cert variants. This, plus the
// per-variant Go type embedding *BaseCert, is the tagged-union dispatch
// replacing a class hierarchy: shared behavior lives on BaseCert, variant
// behavior is method overrides on the concrete type, and Cert is the
// vtable.
type Kind uint8

const (
	KindChain Kind = iota
	KindFriend
	KindLicense
	KindData
	KindAuth
)

func (k Kind) String() string {
	switch k {
	case KindChain:
		return "ChainCert"
	case KindFriend:
		return "FriendCert"
	case KindLicense:
		return "LicenseCert"
	case KindData:
		return "DataCert"
	case KindAuth:
		return "AuthCert"
	default:
		return "UnknownCert"
	}
}

// MaxEmbedDepth bounds embedded-cert recursion.
const MaxEmbedDepth = 4

// TargetValues is what an embedder passes down to the embedded cert's
// ValidateAgainstTarget: either the values of the model the
// embedder is about to sign, or (one level deeper) the embedder's own
// signed values when recursing into its own embedded cert.
type TargetValues struct {
	CreationTime      uint64
	ExpireTime        uint64
	ModelType         [6]byte
	SigningPublicKeys []PublicKey
	MaxChainLength    uint8
	Constraints       *[32]byte

	// Variant-specific target fields, populated by the embedder when the
	// embedded cert's CalcConstraintsOnTarget needs them (e.g. the peer's
	// shared key a FriendCert pairs with, LicenseCert's Extensions). Left nil/zero when
	// not applicable to the embedded cert's Kind.
	Extensions      *uint32
	OtherIssuerKey  PublicKey
	TargetPublicKey PublicKey

	// FriendCert's lock-bit targets: the embedding context's
	// friend level and intermediary key, fed into the constraint hash only
	// when the FriendCert's own LockedOnLevel/LockedOnIntermediary bit is
	// set.
	FriendLevel           *uint8
	IntermediaryPublicKey PublicKey

	// LicenseCert's lock-bit targets: values belonging to the
	// license embedding this one, gated by this cert's own lockedConfig
	// bits.
	LicenseConfig *uint32
	Terms         *string
	MaxExtensions *uint32

	// DataCert's lock-bit targets.
	DataConfig  *uint32
	ContentType *string
	UserBits    []byte

	// AuthCert's lock-bit targets.
	Region       *string
	Jurisdiction *string
}

// Cert is the common surface every variant implements.
type Cert interface {
	Kind() Kind
	ModelType() [6]byte
	Export(includeTransient bool) ([]byte, error)
	Load(image []byte) error
	Sign(kp KeyPair) error
	Verify() (bool, error)
	CalcId1() ([32]byte, error)
	Validate(deep int, now *uint64) error
	ValidateAgainstTarget(tv TargetValues) error
	CalcConstraintsOnTarget(tv TargetValues) ([32]byte, error)
	EmbeddedCert() (Cert, bool, error)
}

// BaseCert holds the fields and operations common to every cert variant.
// Variants embed *BaseCert and add their own fields
// and validateAgainstTarget/calcConstraintsOnTarget rules.
type BaseCert struct {
	kind   Kind
	m      *model.Model
	h      Hasher
	schema *model.Schema
}

func newBaseCert(kind Kind, schema *model.Schema, h Hasher) *BaseCert {
	if h == nil {
		h = defaultHasher
	}
	return &BaseCert{kind: kind, m: model.New(schema), h: h, schema: schema}
}

func (b *BaseCert) Kind() Kind          { return b.kind }
func (b *BaseCert) ModelType() [6]byte  { return b.schema.ModelType }
func (b *BaseCert) Model() *model.Model { return b.m }

// BaseParams are the BaseCert-level fields a factory populates before
// signing.
type BaseParams struct {
	Owner               PublicKey // absent (nil) when an embedded cert supplies signers
	TargetPublicKeys    []PublicKey
	MultiSigThreshold   uint8 // default 1
	CreationTime        uint64
	ExpireTime          uint64
	Config              uint32
	LockedConfig        uint32
	TargetType          []byte
	MaxChainLength      uint8
	TargetMaxExpireTime *uint64
	Constraints         *[32]byte
	DynamicSelfSpec     []byte
	TransientConfig     uint32
	EmbeddedCert        []byte // image bytes of an already-exported cert, if embedding
}

func (b *BaseCert) applyBaseParams(p BaseParams) error {
	if len(p.Owner) > 0 {
		if err := b.m.SetBytes("owner", []byte(p.Owner)); err != nil {
			return err
		}
	}
	threshold := p.MultiSigThreshold
	if threshold == 0 {
		threshold = 1
	}
	keys, err := encodePublicKeys(p.TargetPublicKeys)
	if err != nil {
		return err
	}
	if err := b.m.SetBytes("targetPublicKeys", keys); err != nil {
		return err
	}
	if err := b.m.SetUint64("multiSigThreshold", uint64(threshold)); err != nil {
		return err
	}
	if err := b.m.SetUint64("config", uint64(p.Config)); err != nil {
		return err
	}
	if err := b.m.SetUint64("lockedConfig", uint64(p.LockedConfig)); err != nil {
		return err
	}
	if err := b.m.SetUint64("creationTime", p.CreationTime); err != nil {
		return err
	}
	if err := b.m.SetUint64("expireTime", p.ExpireTime); err != nil {
		return err
	}
	if err := b.m.SetUint64("maxChainLength", uint64(p.MaxChainLength)); err != nil {
		return err
	}
	if err := b.m.SetUint64("transientConfig", uint64(p.TransientConfig)); err != nil {
		return err
	}
	if len(p.TargetType) > 0 {
		if err := b.m.SetBytes("targetType", p.TargetType); err != nil {
			return err
		}
	}
	if p.TargetMaxExpireTime != nil {
		if err := b.m.SetUint64("targetMaxExpireTime", *p.TargetMaxExpireTime); err != nil {
			return err
		}
	}
	if p.Constraints != nil {
		if err := b.m.SetBytes("constraints", p.Constraints[:]); err != nil {
			return err
		}
	}
	if len(p.DynamicSelfSpec) > 0 {
		if err := b.m.SetBytes("dynamicSelfSpec", p.DynamicSelfSpec); err != nil {
			return err
		}
	}
	if len(p.EmbeddedCert) > 0 {
		inner, err := decodeCertWithHasher(p.EmbeddedCert, b.h)
		if err != nil {
			return err
		}
		d, err := embedChainDepth(inner)
		if err != nil {
			return err
		}
		if 1+d > MaxEmbedDepth {
			return &model.ModelError{Code: model.ErrMalformedImage, Msg: "embedded cert nesting exceeds maximum depth"}
		}
		if err := b.m.SetBytes("cert", p.EmbeddedCert); err != nil {
			return err
		}
	}
	return nil
}

// embedChainDepth counts c plus every cert nested beneath it, capped just
// past MaxEmbedDepth so a malformed deep stack cannot force unbounded
// decoding.
func embedChainDepth(c Cert) (int, error) {
	depth := 1
	for depth <= MaxEmbedDepth {
		inner, has, err := c.EmbeddedCert()
		if err != nil {
			return 0, err
		}
		if !has {
			return depth, nil
		}
		depth++
		c = inner
	}
	return depth, nil
}

// checkEmbedDepth fails with MalformedImage when this cert's embedded
// chain nests deeper than MaxEmbedDepth certs in total.
func (b *BaseCert) checkEmbedDepth() error {
	inner, has, err := b.embeddedCertGeneric()
	if err != nil {
		return err
	}
	if !has {
		return nil
	}
	d, err := embedChainDepth(inner)
	if err != nil {
		return err
	}
	if 1+d > MaxEmbedDepth {
		return &model.ModelError{Code: model.ErrMalformedImage, Msg: "embedded cert nesting exceeds maximum depth"}
	}
	return nil
}

func (b *BaseCert) owner() (PublicKey, bool) {
	raw, ok := b.m.GetBytes("owner")
	if !ok {
		return nil, false
	}
	return PublicKey(raw), true
}

func (b *BaseCert) targetPublicKeys() ([]PublicKey, error) {
	raw, ok := b.m.GetBytes("targetPublicKeys")
	if !ok {
		return nil, nil
	}
	return decodePublicKeys(raw)
}

func (b *BaseCert) config() uint32 {
	v, _ := b.m.GetUint64("config")
	return uint32(v)
}

func (b *BaseCert) lockedConfig() uint32 {
	v, _ := b.m.GetUint64("lockedConfig")
	return uint32(v)
}

func (b *BaseCert) creationTime() uint64 {
	v, _ := b.m.GetUint64("creationTime")
	return v
}

func (b *BaseCert) expireTime() uint64 {
	v, _ := b.m.GetUint64("expireTime")
	return v
}

func (b *BaseCert) multiSigThreshold() uint8 {
	v, _ := b.m.GetUint64("multiSigThreshold")
	if v == 0 {
		return 1
	}
	return uint8(v)
}

func (b *BaseCert) targetType() []byte {
	v, _ := b.m.GetBytes("targetType")
	return v
}

func (b *BaseCert) maxChainLength() uint8 {
	v, _ := b.m.GetUint64("maxChainLength")
	return uint8(v)
}

func (b *BaseCert) targetMaxExpireTime() (uint64, bool) {
	v, ok := b.m.GetUint64("targetMaxExpireTime")
	return v, ok
}

func (b *BaseCert) constraints() ([32]byte, bool) {
	raw, ok := b.m.GetBytes("constraints")
	if !ok {
		return [32]byte{}, false
	}
	var out [32]byte
	copy(out[:], raw)
	return out, true
}

func (b *BaseCert) signatures() ([]Signature, error) {
	raw, ok := b.m.GetBytes("signatures")
	if !ok {
		return nil, nil
	}
	return decodeSignatures(raw)
}

func (b *BaseCert) setSignatures(sigs []Signature) error {
	enc, err := encodeSignatures(sigs)
	if err != nil {
		return err
	}
	return b.m.SetBytes("signatures", enc)
}

// EmbeddedCertImage returns the raw embedded-cert bytes, if set.
func (b *BaseCert) EmbeddedCertImage() ([]byte, bool) {
	return b.m.GetBytes("cert")
}

// Export serializes the cert. Non-hashable transient fields are
// included whenever transient export is requested (this layer has no
// separate "non-hashable transient" toggle exposed to callers).
func (b *BaseCert) Export(includeTransient bool) ([]byte, error) {
	return b.m.Export(includeTransient, includeTransient)
}

// Load populates the cert from a wire image. Unknown
// fields are rejected (ignoreUnknown=false): field indices are append-only
// and a genuinely unknown index signals a version this cert type cannot
// interpret.
func (b *BaseCert) Load(image []byte) error {
	return b.m.Load(image, true, false)
}

// selfHash computes the hash covering every hashable, non-transient field
// except signatures, plus dynamicSelfSpec when hasDynamicSelf is set.
// When hasDynamicCert is set the cert field is excluded as well: the
// embedded cert's signatures are computed over this very digest, so the
// embedded image (which contains those signatures) cannot be part of it.
func (b *BaseCert) selfHash() ([32]byte, error) {
	cfg := b.config()
	hasDynamicSelf := cfg&ConfigHasDynamicSelf != 0
	hasDynamicCert := cfg&ConfigHasDynamicCert != 0
	return b.m.SelectedHash(b.h, true, func(f model.FieldDef) bool {
		if f.Name == "signatures" || f.Transient {
			return false
		}
		if f.Name == "cert" && hasDynamicCert {
			return false
		}
		if f.Hash {
			return true
		}
		return f.Name == "dynamicSelfSpec" && hasDynamicSelf
	})
}

// eligibleSigners returns the set of public keys allowed to sign this
// cert: targetPublicKeys, plus owner when there is no embedded cert.
func (b *BaseCert) eligibleSigners() ([]PublicKey, error) {
	keys, err := b.targetPublicKeys()
	if err != nil {
		return nil, err
	}
	if _, hasEmbedded := b.EmbeddedCertImage(); !hasEmbedded {
		if owner, ok := b.owner(); ok {
			keys = append(append([]PublicKey{}, keys...), owner)
		}
	}
	return keys, nil
}

func isEligible(pk PublicKey, eligible []PublicKey) bool {
	for _, e := range eligible {
		if pk.Equal(e) {
			return true
		}
	}
	return false
}

// Sign appends a signature by kp over the self-hash.
func (b *BaseCert) Sign(kp KeyPair) error {
	eligible, err := b.eligibleSigners()
	if err != nil {
		return err
	}
	if !isEligible(kp.PublicKey, eligible) {
		return cerr(ErrSignatureFailed, "signer is not an eligible target key")
	}

	existing, err := b.signatures()
	if err != nil {
		return err
	}
	for _, s := range existing {
		if s.PublicKey.Equal(kp.PublicKey) {
			return cerr(ErrSignatureFailed, "duplicate signer")
		}
	}
	if uint8(len(existing)) >= b.multiSigThreshold() {
		return cerr(ErrSignatureFailed, "signing past multiSigThreshold")
	}

	digest, err := b.selfHash()
	if err != nil {
		return err
	}
	sigBytes, err := sign(kp, digest)
	if err != nil {
		return err
	}
	existing = append(existing, Signature{PublicKey: kp.PublicKey, Data: sigBytes})
	return b.setSignatures(existing)
}

// Verify checks every signature is from an eligible signer, exactly
// multiSigThreshold distinct signatures validate against the self-hash,
// and any embedded cert also verifies recursively.
func (b *BaseCert) Verify() (bool, error) {
	digest, err := b.selfHash()
	if err != nil {
		return false, err
	}
	return b.verifyWithDigest(digest)
}

// verifyWithDigest verifies this cert's own signature set against digest,
// then recurses into any embedded cert. When hasDynamicCert is set, the
// embedded cert's signatures are computed over this cert's data, so the
// same digest is carried down instead of the embedded cert's own
// self-hash (composite signing).
func (b *BaseCert) verifyWithDigest(digest [32]byte) (bool, error) {
	ok, err := b.verifySignatureSet(digest)
	if err != nil || !ok {
		return ok, err
	}

	embedded, has, err := b.embeddedCertGeneric()
	if err != nil {
		return false, err
	}
	if !has {
		return true, nil
	}
	eb := baseOf(embedded)
	if b.config()&ConfigHasDynamicCert != 0 {
		return eb.verifyWithDigest(digest)
	}
	inner, err := eb.selfHash()
	if err != nil {
		return false, err
	}
	return eb.verifyWithDigest(inner)
}

// verifySignatureSet checks that every signature in this cert's list is
// from an eligible, non-duplicate signer and that exactly
// multiSigThreshold of them validate against digest.
func (b *BaseCert) verifySignatureSet(digest [32]byte) (bool, error) {
	eligible, err := b.eligibleSigners()
	if err != nil {
		return false, err
	}
	sigs, err := b.signatures()
	if err != nil {
		return false, err
	}

	seen := make(map[string]bool, len(sigs))
	valid := 0
	for _, s := range sigs {
		key := string(s.PublicKey)
		if seen[key] {
			return false, nil
		}
		seen[key] = true
		if !isEligible(s.PublicKey, eligible) {
			return false, nil
		}
		ok, err := verifySignature(s.PublicKey, s.Data, digest)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
		valid++
	}
	return valid == int(b.multiSigThreshold()), nil
}

func (b *BaseCert) base() *BaseCert { return b }

// baseOf recovers the shared BaseCert from any concrete variant.
func baseOf(c Cert) *BaseCert {
	return c.(interface{ base() *BaseCert }).base()
}

// CalcId1 hashes the exported, non-transient bytes.
func (b *BaseCert) CalcId1() ([32]byte, error) {
	img, err := b.Export(false)
	if err != nil {
		return [32]byte{}, err
	}
	return b.h.Hash(img), nil
}

func (b *BaseCert) embeddedCertGeneric() (Cert, bool, error) {
	img, ok := b.EmbeddedCertImage()
	if !ok || len(img) == 0 {
		return nil, false, nil
	}
	c, err := decodeCertWithHasher(img, b.h)
	if err != nil {
		return nil, false, err
	}
	return c, true, nil
}

// validateCore runs the structural and temporal checks shared by every
// variant. deep>=2 skips signature verification, for "not yet fully
// signed" checks. Variant Validate() wraps this with variant-specific
// rules where applicable.
func (b *BaseCert) validateCore(deep int, now *uint64, self Cert) error {
	if b.creationTime() >= b.expireTime() {
		return validationFailed("creationTime must be strictly before expireTime")
	}
	if now != nil {
		if *now < b.creationTime() || *now > b.expireTime() {
			return validationFailed("current time is outside the certificate's validity window")
		}
	}
	keys, err := b.targetPublicKeys()
	if err != nil {
		return err
	}
	threshold := b.multiSigThreshold()
	if len(keys) == 0 || threshold < 1 || int(threshold) > len(keys) {
		return validationFailed("targetPublicKeys and multiSigThreshold are inconsistent")
	}

	if err := b.checkEmbedDepth(); err != nil {
		return err
	}
	embedded, has, err := b.embeddedCertGeneric()
	if err != nil {
		return err
	}
	if has {
		if b.maxChainLength() < 1 {
			return validationFailed("maxChainLength must be at least 1 to embed a cert")
		}
		if err := embedded.Validate(deep, now); err != nil {
			return err
		}
	}

	if deep < 2 {
		ok, err := self.Verify()
		if err != nil {
			return err
		}
		if !ok {
			return cerr(ErrSignatureFailed, "signature verification failed")
		}
	}
	return nil
}

// signingPublicKeys returns the public keys of every signature currently
// on the cert.
func (b *BaseCert) signingPublicKeys() ([]PublicKey, error) {
	sigs, err := b.signatures()
	if err != nil {
		return nil, err
	}
	out := make([]PublicKey, 0, len(sigs))
	for _, s := range sigs {
		out = append(out, s.PublicKey)
	}
	return out, nil
}

// validateAgainstTargetCore runs the chain-walk checks shared by every
// variant. calcConstraints, when non-nil, is this cert's own
// CalcConstraintsOnTarget implementation, used for the
// recompute-and-compare constraints check.
func (b *BaseCert) validateAgainstTargetCore(tv TargetValues, calcConstraints func(TargetValues) ([32]byte, error)) error {
	if tv.CreationTime < b.creationTime() {
		return validationFailed("Target cannot be created before certificate's creation time")
	}
	if tv.ExpireTime > b.expireTime() {
		return validationFailed("Target cannot expire after certificate's expire time")
	}
	if capExpire, ok := b.targetMaxExpireTime(); ok {
		if tv.ExpireTime > capExpire {
			return validationFailed("Target expire time exceeds targetMaxExpireTime")
		}
	}
	if tt := b.targetType(); len(tt) > 0 {
		if !PrefixMatch(tv.ModelType, tt) {
			return validationFailed("Target model type does not match targetType prefix")
		}
	}

	eligible, err := b.targetPublicKeys()
	if err != nil {
		return err
	}
	matches := 0
	for _, pk := range tv.SigningPublicKeys {
		if isEligible(pk, eligible) {
			matches++
		}
	}
	if matches != int(b.multiSigThreshold()) {
		return validationFailed("Target signer set does not satisfy multiSigThreshold against this cert's targetPublicKeys")
	}

	if tv.MaxChainLength >= b.maxChainLength() {
		return validationFailed("Target maxChainLength must be lesser as the chain propagates")
	}

	if constraints, has := b.constraints(); has {
		if calcConstraints != nil {
			recomputed, err := calcConstraints(tv)
			if err != nil {
				return err
			}
			if !bytes.Equal(constraints[:], recomputed[:]) {
				return &CertError{Code: ErrConstraintsMismatch, Reason: "recomputed constraints do not match this cert's constraints"}
			}
		}
		if tv.Constraints == nil || *tv.Constraints != constraints {
			return &CertError{Code: ErrConstraintsMismatch, Reason: "embedder's constraints do not match this cert's constraints"}
		}
	}

	if embedded, has, err := b.embeddedCertGeneric(); err != nil {
		return err
	} else if has {
		innerTV, err := b.targetValuesForEmbedded(tv)
		if err != nil {
			return err
		}
		if err := embedded.ValidateAgainstTarget(innerTV); err != nil {
			return err
		}
	}
	return nil
}

// targetValuesForEmbedded builds the TargetValues this cert presents to
// its own embedded cert: this cert's own creation/expire/type/constraints/
// signers/chain-length, as seen from one level up.
func (b *BaseCert) targetValuesForEmbedded(outer TargetValues) (TargetValues, error) {
	signers, err := b.signingPublicKeys()
	if err != nil {
		return TargetValues{}, err
	}
	constraints, hasConstraints := b.constraints()
	tv := TargetValues{
		CreationTime:      b.creationTime(),
		ExpireTime:        b.expireTime(),
		ModelType:         b.schema.ModelType,
		SigningPublicKeys: signers,
		MaxChainLength:    b.maxChainLength(),
	}
	if hasConstraints {
		c := constraints
		tv.Constraints = &c
	}
	return tv, nil
}

// EmbeddedCert decodes and returns this cert's embedded cert, if any.
// Every variant shares this implementation.
func (b *BaseCert) EmbeddedCert() (Cert, bool, error) {
	return b.embeddedCertGeneric()
}

// Validate is the default Cert.Validate: every shipped variant overrides
// this with a call to validateCore(deep, now, self) passing itself as
// self so Verify() dispatches through the concrete type. This base
// version exists only as a safety net for a hypothetical variant that
// adds no extra structural rules.
func (b *BaseCert) Validate(deep int, now *uint64) error {
	return b.validateCore(deep, now, b)
}

// ValidateAgainstTarget is the default Cert.ValidateAgainstTarget. Every
// shipped variant overrides this with a one-line wrapper passing its own
// CalcConstraintsOnTarget to validateAgainstTargetCore, so that the
// recompute-and-compare constraints check uses the
// right formula. This default has no formula of its own: it only errors
// if the cert being validated actually carries a constraints value.
func (b *BaseCert) ValidateAgainstTarget(tv TargetValues) error {
	return b.validateAgainstTargetCore(tv, nil)
}

// CalcConstraintsOnTarget is the default Cert.CalcConstraintsOnTarget.
// Every shipped variant overrides this with its own formula;
// BaseCert has none, since "constraints" is meaningless without a
// variant's semantics.
func (b *BaseCert) CalcConstraintsOnTarget(tv TargetValues) ([32]byte, error) {
	return [32]byte{}, cerr(ErrValidationFailed, "BaseCert defines no constraints rule; use a concrete variant")
}
