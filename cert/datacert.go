package cert

import "odin.dev/model/model"

// DataCert certifies a piece of content: a content
// type tag, arbitrary caller-defined bits, and config flags, delegated
// down a chain the same way every other leaf cert is.
type DataCert struct {
	*BaseCert
}

// DataCert lockedConfig bits.
const (
	LockedContentType uint32 = 1 << 0
	LockedUserBits    uint32 = 1 << 1
	LockedDataConfig  uint32 = 1 << 2
)

func dataFieldDefs() []model.FieldDef {
	return append(baseFieldDefs(),
		model.FieldDef{Index: 30, Name: "dataConfig", Type: model.TypeU32LE, Hash: true},
		model.FieldDef{Index: 31, Name: "contentType", Type: model.TypeString, MaxSize: 64, Hash: true},
		model.FieldDef{Index: 32, Name: "userBits", Type: model.TypeBytes, MaxSize: 4096, Hash: true},
	)
}

func dataSchema() *model.Schema {
	s, err := model.NewSchema(ModelTypeDataCert, dataFieldDefs())
	if err != nil {
		panic(err)
	}
	return s
}

func NewDataCert(h Hasher) *DataCert {
	return &DataCert{BaseCert: newBaseCert(KindData, dataSchema(), h)}
}

func NewDataCertDefault() *DataCert { return NewDataCert(defaultHasher) }

// DataParams extends BaseParams with DataCert's own fields.
type DataParams struct {
	BaseParams
	DataConfig  uint32
	ContentType string
	UserBits    []byte
}

// CreateDataCert builds and signs a new DataCert.
func CreateDataCert(h Hasher, p DataParams, signers ...KeyPair) (*DataCert, error) {
	c := NewDataCert(h)
	if err := c.applyBaseParams(p.BaseParams); err != nil {
		return nil, err
	}
	if err := c.m.SetUint64("dataConfig", uint64(p.DataConfig)); err != nil {
		return nil, err
	}
	if err := c.m.SetString("contentType", p.ContentType); err != nil {
		return nil, err
	}
	if len(p.UserBits) > 0 {
		if err := c.m.SetBytes("userBits", p.UserBits); err != nil {
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

func (c *DataCert) ContentType() string {
	v, _ := c.m.GetString("contentType")
	return v
}

func (c *DataCert) UserBits() []byte {
	v, _ := c.m.GetBytes("userBits")
	return v
}

func (c *DataCert) Validate(deep int, now *uint64) error {
	return c.validateCore(deep, now, c)
}

func (c *DataCert) ValidateAgainstTarget(tv TargetValues) error {
	return c.validateAgainstTargetCore(tv, c.CalcConstraintsOnTarget)
}

// CalcConstraintsOnTarget binds this cert to whichever fields of the
// embedding data cert its own lockedConfig bits name, the
// same lock-bit pattern as LicenseCert and AuthCert.
func (c *DataCert) CalcConstraintsOnTarget(tv TargetValues) ([32]byte, error) {
	lc := c.lockedConfig()
	return hashConcat(c.h,
		gatedU32(lc&LockedDataConfig != 0, tv.DataConfig),
		gatedString(lc&LockedContentType != 0, tv.ContentType),
		gatedBytes(lc&LockedUserBits != 0, tv.UserBits),
	), nil
}
