package sigverify

import (
	"context"
	"crypto/ed25519"
	"testing"
	"time"

	"odin.dev/model/cert"
)

func genKeyPair(t *testing.T) cert.KeyPair {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatalf("ed25519.GenerateKey: %v", err)
	}
	return cert.KeyPair{PublicKey: cert.PublicKey(pub), PrivateKey: []byte(priv)}
}

// signedChainCert returns a fully signed ChainCert; unsignedChainCert one
// whose threshold is never met, so Verify reports false without erroring.
func signedChainCert(t *testing.T) cert.Cert {
	t.Helper()
	owner := genKeyPair(t)
	key := genKeyPair(t)
	c, err := cert.CreateChainCert(nil, cert.BaseParams{
		Owner:             owner.PublicKey,
		TargetPublicKeys:  []cert.PublicKey{key.PublicKey},
		MultiSigThreshold: 1,
		CreationTime:      1,
		ExpireTime:        1000,
		MaxChainLength:    1,
	}, key)
	if err != nil {
		t.Fatalf("CreateChainCert: %v", err)
	}
	return c
}

func unsignedChainCert(t *testing.T) cert.Cert {
	t.Helper()
	owner := genKeyPair(t)
	key := genKeyPair(t)
	c, err := cert.CreateChainCert(nil, cert.BaseParams{
		Owner:             owner.PublicKey,
		TargetPublicKeys:  []cert.PublicKey{key.PublicKey},
		MultiSigThreshold: 1,
		CreationTime:      1,
		ExpireTime:        1000,
		MaxChainLength:    1,
	})
	if err != nil {
		t.Fatalf("CreateChainCert: %v", err)
	}
	return c
}

func TestInProcessSubsetPreservesOrder(t *testing.T) {
	good1 := signedChainCert(t)
	bad := unsignedChainCert(t)
	good2 := signedChainCert(t)

	f := InProcess{}.Verify([]cert.Cert{good1, bad, good2})
	results, err := f.Wait(context.Background())
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	subset := Subset(results)
	if len(subset) != 2 {
		t.Fatalf("subset length = %d, want 2", len(subset))
	}
	if subset[0] != good1 || subset[1] != good2 {
		t.Fatalf("subset must preserve input order")
	}
}

func TestWorkerPoolMatchesInProcess(t *testing.T) {
	certs := []cert.Cert{
		signedChainCert(t),
		unsignedChainCert(t),
		signedChainCert(t),
		signedChainCert(t),
		unsignedChainCert(t),
	}

	pool := NewWorkerPool(3, nil)
	fPool := pool.Verify(certs)
	fSync := InProcess{}.Verify(certs)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	poolResults, err := fPool.Wait(ctx)
	if err != nil {
		t.Fatalf("pool Wait: %v", err)
	}
	syncResults, err := fSync.Wait(ctx)
	if err != nil {
		t.Fatalf("sync Wait: %v", err)
	}

	if len(poolResults) != len(syncResults) {
		t.Fatalf("result lengths differ: %d vs %d", len(poolResults), len(syncResults))
	}
	for i := range poolResults {
		if poolResults[i].Valid != syncResults[i].Valid {
			t.Fatalf("result %d: pool Valid=%v, sync Valid=%v", i, poolResults[i].Valid, syncResults[i].Valid)
		}
		if poolResults[i].Cert != certs[i] {
			t.Fatalf("result %d must reference the submitted cert", i)
		}
	}
}

func TestWaitHonorsCancellation(t *testing.T) {
	f := &Future{done: make(chan struct{})}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := f.Wait(ctx); err == nil {
		t.Fatalf("expected context error from Wait on a never-completing Future")
	}
}

func TestVerifyEmptyBatch(t *testing.T) {
	f := NewWorkerPool(2, nil).Verify(nil)
	results, err := f.Wait(context.Background())
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("expected no results for an empty batch")
	}
}
