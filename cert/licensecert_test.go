package cert

import "testing"

func TestLicenseCertRejectsExcessExtensions(t *testing.T) {
	issuer := genKeyPair(t)
	target := genKeyPair(t)

	c, err := CreateLicenseCert(nil, LicenseParams{
		BaseParams: BaseParams{
			Owner:             issuer.PublicKey,
			TargetPublicKeys:  []PublicKey{target.PublicKey},
			MultiSigThreshold: 1,
			CreationTime:      1,
			ExpireTime:        1000,
			MaxChainLength:    2,
		},
		MaxExtensions: 3,
	}, target)
	if err != nil {
		t.Fatalf("CreateLicenseCert: %v", err)
	}

	ext := uint32(4)
	err = c.ValidateAgainstTarget(TargetValues{
		CreationTime:      1,
		ExpireTime:        1000,
		ModelType:         ModelTypeLicenseCert,
		SigningPublicKeys: []PublicKey{target.PublicKey},
		MaxChainLength:    1,
		Extensions:        &ext,
	})
	if err == nil {
		t.Fatalf("expected ValidationFailed when target extensions exceed maxExtensions")
	}
	ce, ok := err.(*CertError)
	if !ok || ce.Code != ErrValidationFailed {
		t.Fatalf("expected ValidationFailed, got %v", err)
	}

	ext = 3
	if err := c.ValidateAgainstTarget(TargetValues{
		CreationTime:      1,
		ExpireTime:        1000,
		ModelType:         ModelTypeLicenseCert,
		SigningPublicKeys: []PublicKey{target.PublicKey},
		MaxChainLength:    1,
		Extensions:        &ext,
	}); err != nil {
		t.Fatalf("ValidateAgainstTarget with extensions at the cap: %v", err)
	}
}

func TestLicenseCertRoundTripKeepsOwnFields(t *testing.T) {
	issuer := genKeyPair(t)
	target := genKeyPair(t)

	c, err := CreateLicenseCert(nil, LicenseParams{
		BaseParams: BaseParams{
			Owner:             issuer.PublicKey,
			TargetPublicKeys:  []PublicKey{target.PublicKey},
			MultiSigThreshold: 1,
			CreationTime:      1,
			ExpireTime:        1000,
			MaxChainLength:    1,
		},
		MaxExtensions: 7,
		Terms:         "non-transferable",
		FriendLevel:   2,
	}, target)
	if err != nil {
		t.Fatalf("CreateLicenseCert: %v", err)
	}
	img, err := c.Export(false)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	loaded, err := DecodeCert(img)
	if err != nil {
		t.Fatalf("DecodeCert: %v", err)
	}
	lc, ok := loaded.(*LicenseCert)
	if !ok {
		t.Fatalf("expected *LicenseCert, got %T", loaded)
	}
	if lc.MaxExtensions() != 7 {
		t.Fatalf("maxExtensions = %d, want 7", lc.MaxExtensions())
	}
	if lc.Terms() != "non-transferable" {
		t.Fatalf("terms = %q", lc.Terms())
	}
	if lc.FriendLevel() != 2 {
		t.Fatalf("friendLevel = %d, want 2", lc.FriendLevel())
	}
}
