package cert

import "odin.dev/model/model"

// AuthCert is a terminal, non-delegating cert asserting a jurisdiction
// and public key for some real-world authority.
// Its maxChainLength is always 0: an AuthCert can never embed nor be
// embedded further down a chain, it only ever sits at the root.
type AuthCert struct {
	*BaseCert
}

// AuthCert lockedConfig bits.
const (
	LockedPublicKey    uint32 = 1 << 0
	LockedRegion       uint32 = 1 << 1
	LockedJurisdiction uint32 = 1 << 2
)

func authFieldDefs() []model.FieldDef {
	return append(baseFieldDefs(),
		model.FieldDef{Index: 30, Name: "publicKey", Type: model.TypeBytes, MaxSize: 33, Hash: true},
		model.FieldDef{Index: 31, Name: "region", Type: model.TypeString, MaxSize: 64, Hash: true},
		model.FieldDef{Index: 32, Name: "jurisdiction", Type: model.TypeString, MaxSize: 64, Hash: true},
	)
}

func authSchema() *model.Schema {
	s, err := model.NewSchema(ModelTypeAuthCert, authFieldDefs())
	if err != nil {
		panic(err)
	}
	return s
}

func NewAuthCert(h Hasher) *AuthCert {
	return &AuthCert{BaseCert: newBaseCert(KindAuth, authSchema(), h)}
}

func NewAuthCertDefault() *AuthCert { return NewAuthCert(defaultHasher) }

// AuthParams extends BaseParams with AuthCert's own fields. MaxChainLength
// is forced to 0 regardless of what the caller passes.
type AuthParams struct {
	BaseParams
	PublicKey    PublicKey
	Region       string
	Jurisdiction string
}

// CreateAuthCert builds and signs a new AuthCert.
func CreateAuthCert(h Hasher, p AuthParams, signers ...KeyPair) (*AuthCert, error) {
	p.BaseParams.MaxChainLength = 0
	c := NewAuthCert(h)
	if err := c.applyBaseParams(p.BaseParams); err != nil {
		return nil, err
	}
	if err := c.m.SetBytes("publicKey", []byte(p.PublicKey)); err != nil {
		return nil, err
	}
	if err := c.m.SetString("region", p.Region); err != nil {
		return nil, err
	}
	if err := c.m.SetString("jurisdiction", p.Jurisdiction); err != nil {
		return nil, err
	}
	for _, kp := range signers {
		if err := c.Sign(kp); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (c *AuthCert) PublicKeyField() (PublicKey, bool) {
	raw, ok := c.m.GetBytes("publicKey")
	if !ok {
		return nil, false
	}
	return PublicKey(raw), true
}

func (c *AuthCert) Region() string {
	v, _ := c.m.GetString("region")
	return v
}

func (c *AuthCert) Jurisdiction() string {
	v, _ := c.m.GetString("jurisdiction")
	return v
}

func (c *AuthCert) Validate(deep int, now *uint64) error {
	if err := c.validateCore(deep, now, c); err != nil {
		return err
	}
	if c.maxChainLength() != 0 {
		return validationFailed("AuthCert must have maxChainLength of 0")
	}
	if _, has, _ := c.embeddedCertGeneric(); has {
		return validationFailed("AuthCert must not embed another cert")
	}
	return nil
}

func (c *AuthCert) ValidateAgainstTarget(tv TargetValues) error {
	return c.validateAgainstTargetCore(tv, c.CalcConstraintsOnTarget)
}

// CalcConstraintsOnTarget binds this cert to whichever fields of the
// context embedding it its own lockedConfig bits name: publicKey, region,
// jurisdiction, the same lock-bit pattern as DataCert and
// LicenseCert.
func (c *AuthCert) CalcConstraintsOnTarget(tv TargetValues) ([32]byte, error) {
	lc := c.lockedConfig()
	return hashConcat(c.h,
		gatedBytes(lc&LockedPublicKey != 0, tv.TargetPublicKey),
		gatedString(lc&LockedRegion != 0, tv.Region),
		gatedString(lc&LockedJurisdiction != 0, tv.Jurisdiction),
	), nil
}
