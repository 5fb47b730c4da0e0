package cert

import "odin.dev/model/model"

// ChainCert is a pure delegation certificate: it carries no domain fields
// of its own beyond BaseCert, and its constraints (when present) simply
// pass through whatever the embedder computed for its target.
type ChainCert struct {
	*BaseCert
}

func chainSchema() *model.Schema {
	s, err := model.NewSchema(ModelTypeChainCert, baseFieldDefs())
	if err != nil {
		panic(err) // fixed field set, must always be internally consistent
	}
	return s
}

// NewChainCert constructs an empty ChainCert ready for Sign or Load.
func NewChainCert(h Hasher) *ChainCert {
	return &ChainCert{BaseCert: newBaseCert(KindChain, chainSchema(), h)}
}

// NewChainCertDefault uses the package default Hasher.
func NewChainCertDefault() *ChainCert { return NewChainCert(defaultHasher) }

// CreateChainCert builds and signs a new ChainCert delegating to
// targetPublicKeys.
func CreateChainCert(h Hasher, p BaseParams, signers ...KeyPair) (*ChainCert, error) {
	c := NewChainCert(h)
	if err := c.applyBaseParams(p); err != nil {
		return nil, err
	}
	for _, kp := range signers {
		if err := c.Sign(kp); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (c *ChainCert) Validate(deep int, now *uint64) error {
	if err := c.validateCore(deep, now, c); err != nil {
		return err
	}
	if c.maxChainLength() < 1 {
		return validationFailed("ChainCert requires maxChainLength of at least 1")
	}
	return nil
}

func (c *ChainCert) ValidateAgainstTarget(tv TargetValues) error {
	return c.validateAgainstTargetCore(tv, c.CalcConstraintsOnTarget)
}

// CalcConstraintsOnTarget passes the embedder's constraints straight
// through unchanged: a ChainCert delegates signing authority, it does not
// add a constraint of its own.
func (c *ChainCert) CalcConstraintsOnTarget(tv TargetValues) ([32]byte, error) {
	if tv.Constraints == nil {
		return [32]byte{}, nil
	}
	return *tv.Constraints, nil
}
