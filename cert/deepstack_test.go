package cert

import (
	"testing"

	"odin.dev/model/model"
)

// TestThreeDeepChainRoundTrip exercises a FriendCert
// embedding a ChainCert embedding a ChainCert, round-tripped through
// Export/Load with calcId1 preserved at every level.
func TestThreeDeepChainRoundTrip(t *testing.T) {
	rootOwner := genKeyPair(t)
	rootKey := genKeyPair(t)
	root, err := CreateChainCert(nil, BaseParams{
		Owner:             rootOwner.PublicKey,
		TargetPublicKeys:  []PublicKey{rootKey.PublicKey},
		MultiSigThreshold: 1,
		CreationTime:      1,
		ExpireTime:        1000,
		MaxChainLength:    2,
	}, rootKey)
	if err != nil {
		t.Fatalf("CreateChainCert root: %v", err)
	}
	rootImg, err := root.Export(false)
	if err != nil {
		t.Fatalf("Export root: %v", err)
	}

	midOwner := rootKey
	midKey := genKeyPair(t)
	mid, err := CreateChainCert(nil, BaseParams{
		Owner:             midOwner.PublicKey,
		TargetPublicKeys:  []PublicKey{midKey.PublicKey},
		MultiSigThreshold: 1,
		CreationTime:      2,
		ExpireTime:        500,
		MaxChainLength:    1,
		EmbeddedCert:      rootImg,
	}, midKey)
	if err != nil {
		t.Fatalf("CreateChainCert mid: %v", err)
	}
	midImg, err := mid.Export(false)
	if err != nil {
		t.Fatalf("Export mid: %v", err)
	}

	leafOwner := midKey
	other := genKeyPair(t)
	leafShared := genKeyPair(t)
	leaf, err := CreateFriendCert(nil, FriendParams{
		BaseParams: BaseParams{
			Owner:             leafOwner.PublicKey,
			TargetPublicKeys:  []PublicKey{leafShared.PublicKey},
			MultiSigThreshold: 1,
			CreationTime:      3,
			ExpireTime:        400,
			Constraints:       &[32]byte{1},
			EmbeddedCert:      midImg,
		},
		OtherIssuerPublicKey: other.PublicKey,
	}, leafShared)
	if err != nil {
		t.Fatalf("CreateFriendCert leaf: %v", err)
	}

	id1, err := leaf.CalcId1()
	if err != nil {
		t.Fatalf("CalcId1 leaf: %v", err)
	}

	leafImg, err := leaf.Export(false)
	if err != nil {
		t.Fatalf("Export leaf: %v", err)
	}

	loaded, err := DecodeCert(leafImg)
	if err != nil {
		t.Fatalf("DecodeCert leaf: %v", err)
	}
	id2, err := loaded.CalcId1()
	if err != nil {
		t.Fatalf("CalcId1 loaded: %v", err)
	}
	if id1 != id2 {
		t.Fatalf("calcId1 mismatch across round trip: %x vs %x", id1, id2)
	}

	embMid, ok, err := loaded.EmbeddedCert()
	if err != nil || !ok {
		t.Fatalf("expected embedded mid cert, ok=%v err=%v", ok, err)
	}
	if embMid.Kind() != KindChain {
		t.Fatalf("expected embedded mid cert to be a ChainCert, got %v", embMid.Kind())
	}

	embRoot, ok, err := embMid.EmbeddedCert()
	if err != nil || !ok {
		t.Fatalf("expected embedded root cert, ok=%v err=%v", ok, err)
	}
	if embRoot.Kind() != KindChain {
		t.Fatalf("expected embedded root cert to be a ChainCert, got %v", embRoot.Kind())
	}

	_, hasMore, err := embRoot.EmbeddedCert()
	if err != nil {
		t.Fatalf("EmbeddedCert on root: %v", err)
	}
	if hasMore {
		t.Fatalf("root cert must not itself embed another cert")
	}
}

// TestEmbedDepthLimit builds nested ChainCerts until the stack would hold
// more than MaxEmbedDepth certs in total; constructing the one-too-deep
// cert must fail with the codec's MalformedImage code.
func TestEmbedDepthLimit(t *testing.T) {
	owner := genKeyPair(t)
	key := genKeyPair(t)

	var img []byte
	for depth := 1; depth <= MaxEmbedDepth; depth++ {
		c, err := CreateChainCert(nil, BaseParams{
			Owner:             owner.PublicKey,
			TargetPublicKeys:  []PublicKey{key.PublicKey},
			MultiSigThreshold: 1,
			CreationTime:      uint64(depth),
			ExpireTime:        1000,
			MaxChainLength:    uint8(MaxEmbedDepth - depth + 1),
			EmbeddedCert:      img,
		}, key)
		if err != nil {
			t.Fatalf("CreateChainCert at depth %d: %v", depth, err)
		}
		img, err = c.Export(false)
		if err != nil {
			t.Fatalf("Export at depth %d: %v", depth, err)
		}
	}

	_, err := CreateChainCert(nil, BaseParams{
		Owner:             owner.PublicKey,
		TargetPublicKeys:  []PublicKey{key.PublicKey},
		MultiSigThreshold: 1,
		CreationTime:      uint64(MaxEmbedDepth + 1),
		ExpireTime:        1000,
		MaxChainLength:    1,
		EmbeddedCert:      img,
	}, key)
	if err == nil {
		t.Fatalf("expected MalformedImage constructing a stack deeper than %d", MaxEmbedDepth)
	}
	if code, ok := model.CodeOf(err); !ok || code != model.ErrMalformedImage {
		t.Fatalf("expected MalformedImage, got %v", err)
	}
}
