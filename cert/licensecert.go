package cert

import "odin.dev/model/model"

// LicenseCert grants a bounded number of further extensions/sublicenses
// under a set of terms.
type LicenseCert struct {
	*BaseCert
}

// LicenseCert lockedConfig bits: each bit binds this cert to
// one field of the license embedding it.
const (
	LockedMaxExtensions   uint32 = 1 << 0
	LockedTerms           uint32 = 1 << 1
	LockedFriendLevel     uint32 = 1 << 2
	LockedTargetPublicKey uint32 = 1 << 3
	LockedLicenseConfig   uint32 = 1 << 4
	LockedExtensions      uint32 = 1 << 5
)

func licenseFieldDefs() []model.FieldDef {
	return append(baseFieldDefs(),
		model.FieldDef{Index: 30, Name: "maxExtensions", Type: model.TypeU32LE, Hash: true},
		model.FieldDef{Index: 31, Name: "licenseConfig", Type: model.TypeU32LE, Hash: true},
		model.FieldDef{Index: 32, Name: "terms", Type: model.TypeString, MaxSize: 4096, Hash: true},
		model.FieldDef{Index: 33, Name: "extensions", Type: model.TypeU32LE, Hash: true},
		model.FieldDef{Index: 34, Name: "friendLevel", Type: model.TypeU8, Hash: true},
		model.FieldDef{Index: 35, Name: "targetPublicKey", Type: model.TypeBytes, MaxSize: 33, Hash: true},
	)
}

func licenseSchema() *model.Schema {
	s, err := model.NewSchema(ModelTypeLicenseCert, licenseFieldDefs())
	if err != nil {
		panic(err)
	}
	return s
}

func NewLicenseCert(h Hasher) *LicenseCert {
	return &LicenseCert{BaseCert: newBaseCert(KindLicense, licenseSchema(), h)}
}

func NewLicenseCertDefault() *LicenseCert { return NewLicenseCert(defaultHasher) }

// LicenseParams extends BaseParams with LicenseCert's own fields.
type LicenseParams struct {
	BaseParams
	MaxExtensions   uint32
	LicenseConfig   uint32
	Terms           string
	Extensions      uint32
	FriendLevel     uint8
	TargetPublicKey PublicKey
}

// CreateLicenseCert builds and signs a new LicenseCert.
func CreateLicenseCert(h Hasher, p LicenseParams, signers ...KeyPair) (*LicenseCert, error) {
	c := NewLicenseCert(h)
	if err := c.applyBaseParams(p.BaseParams); err != nil {
		return nil, err
	}
	if err := c.m.SetUint64("maxExtensions", uint64(p.MaxExtensions)); err != nil {
		return nil, err
	}
	if err := c.m.SetUint64("licenseConfig", uint64(p.LicenseConfig)); err != nil {
		return nil, err
	}
	if err := c.m.SetString("terms", p.Terms); err != nil {
		return nil, err
	}
	if err := c.m.SetUint64("extensions", uint64(p.Extensions)); err != nil {
		return nil, err
	}
	if err := c.m.SetUint64("friendLevel", uint64(p.FriendLevel)); err != nil {
		return nil, err
	}
	if len(p.TargetPublicKey) > 0 {
		if err := c.m.SetBytes("targetPublicKey", []byte(p.TargetPublicKey)); err != nil {
			return nil, err
		}
	}
	for _, kp := range signers {
		if err := c.Sign(kp); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (c *LicenseCert) MaxExtensions() uint32 {
	v, _ := c.m.GetUint64("maxExtensions")
	return uint32(v)
}

func (c *LicenseCert) Extensions() uint32 {
	v, _ := c.m.GetUint64("extensions")
	return uint32(v)
}

func (c *LicenseCert) Terms() string {
	v, _ := c.m.GetString("terms")
	return v
}

func (c *LicenseCert) FriendLevel() uint8 {
	v, _ := c.m.GetUint64("friendLevel")
	return uint8(v)
}

func (c *LicenseCert) Validate(deep int, now *uint64) error {
	return c.validateCore(deep, now, c)
}

func (c *LicenseCert) ValidateAgainstTarget(tv TargetValues) error {
	if tv.Extensions != nil && *tv.Extensions > c.MaxExtensions() {
		return validationFailed("Target extensions exceed this license's maxExtensions")
	}
	return c.validateAgainstTargetCore(tv, c.CalcConstraintsOnTarget)
}

// CalcConstraintsOnTarget binds this cert to whichever fields of the
// embedding license its own lockedConfig bits name: for each set bit the
// embedder's (tv's) corresponding value is hashed in, for each unset bit
// an absent marker is hashed instead.
func (c *LicenseCert) CalcConstraintsOnTarget(tv TargetValues) ([32]byte, error) {
	lc := c.lockedConfig()
	return hashConcat(c.h,
		gatedBytes(lc&LockedTargetPublicKey != 0, tv.TargetPublicKey),
		gatedU32(lc&LockedLicenseConfig != 0, tv.LicenseConfig),
		gatedString(lc&LockedTerms != 0, tv.Terms),
		gatedU32(lc&LockedExtensions != 0, tv.Extensions),
		gatedU8(lc&LockedFriendLevel != 0, tv.FriendLevel),
		gatedU32(lc&LockedMaxExtensions != 0, tv.MaxExtensions),
	), nil
}
