// Package sigverify implements the SignatureVerifier collaborator:
// an injected, offloadable batch verifier so a caller
// holding many certs (e.g. a freshly received chain) is not forced to
// verify them one at a time on its own goroutine.
package sigverify

import (
	"context"
	"log/slog"
	"sync"

	"odin.dev/model/cert"
)

// Result is the outcome of verifying one cert.
type Result struct {
	Cert  cert.Cert
	Valid bool
	Err   error
}

// Future is returned by Verifier.Verify; the caller decides when (or
// whether) to block on it.
type Future struct {
	done chan struct{}
	res  []Result
}

// Wait blocks until every submitted cert has a Result, or ctx is done.
func (f *Future) Wait(ctx context.Context) ([]Result, error) {
	select {
	case <-f.done:
		return f.res, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Verifier is the injected collaborator: Verify returns a Future the
// caller waits on when it needs the subset that actually passed. Whether
// the work runs before Verify returns depends on the implementation
// (InProcess does it all first; WorkerPool returns at once).
type Verifier interface {
	Verify(certs []cert.Cert) *Future
}

// InProcess runs Verify synchronously on the caller's own goroutine,
// wrapped in an already-closed Future. Suitable for tests and for a
// node with few certs to check.
type InProcess struct{}

func (InProcess) Verify(certs []cert.Cert) *Future {
	f := &Future{done: make(chan struct{})}
	f.res = verifyAll(certs)
	close(f.done)
	return f
}

func verifyAll(certs []cert.Cert) []Result {
	out := make([]Result, len(certs))
	for i, c := range certs {
		ok, err := c.Verify()
		out[i] = Result{Cert: c, Valid: ok, Err: err}
	}
	return out
}

// WorkerPool verifies certs across a bounded set of goroutines, for a
// node offloading verification of a large batch (e.g. an inbound chain
// of certs) off its hot path.
type WorkerPool struct {
	workers int
	log     *slog.Logger
}

// NewWorkerPool constructs a pool with the given worker count (minimum 1).
// A nil logger falls back to slog.Default().
func NewWorkerPool(workers int, log *slog.Logger) *WorkerPool {
	if workers < 1 {
		workers = 1
	}
	if log == nil {
		log = slog.Default()
	}
	return &WorkerPool{workers: workers, log: log}
}

func (p *WorkerPool) Verify(certs []cert.Cert) *Future {
	f := &Future{done: make(chan struct{}), res: make([]Result, len(certs))}
	if len(certs) == 0 {
		close(f.done)
		return f
	}

	jobs := make(chan int)
	var wg sync.WaitGroup
	workers := p.workers
	if workers > len(certs) {
		workers = len(certs)
	}
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for i := range jobs {
				ok, err := certs[i].Verify()
				if err != nil {
					p.log.Warn("cert verification errored", "index", i, "error", err.Error())
				}
				f.res[i] = Result{Cert: certs[i], Valid: ok, Err: err}
			}
		}()
	}
	go func() {
		for i := range certs {
			jobs <- i
		}
		close(jobs)
		wg.Wait()
		close(f.done)
	}()
	return f
}

// Subset filters results down to the certs that verified successfully.
func Subset(results []Result) []cert.Cert {
	out := make([]cert.Cert, 0, len(results))
	for _, r := range results {
		if r.Valid && r.Err == nil {
			out = append(out, r.Cert)
		}
	}
	return out
}
