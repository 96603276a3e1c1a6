// Package resolver answers "what version is declared" and "what version
// is available" for npm packages. Registry answers are memoized for the
// run; manifest reads are always fresh because committed upgrades change
// the file mid-run.
package resolver

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/blackwell-systems/depup/internal/npm"
)

// DefaultConcurrency bounds the registry fan-out during discovery.
const DefaultConcurrency = 4

// registryRate keeps the registry queries polite: a small steady rate
// with room for the initial burst.
var registryRate = rate.Limit(8)

// Resolver looks up declared and latest versions for one project.
type Resolver struct {
	runner npm.Runner
	dir    string

	// Concurrency overrides DefaultConcurrency for Prefetch when > 0.
	Concurrency int

	mu      sync.Mutex
	latest  map[string]string
	limiter *rate.Limiter
}

// New creates a Resolver for the project at dir.
func New(runner npm.Runner, dir string) *Resolver {
	return &Resolver{
		runner:  runner,
		dir:     dir,
		latest:  make(map[string]string),
		limiter: rate.NewLimiter(registryRate, DefaultConcurrency),
	}
}

// Latest returns the newest published version of name. The first call
// queries the registry via `npm view`; repeat calls return the cached
// answer. A failed query returns ok = false and is also cached, so a
// flaky registry is asked about each package at most once per run.
func (r *Resolver) Latest(ctx context.Context, name string) (string, bool) {
	r.mu.Lock()
	if v, cached := r.latest[name]; cached {
		r.mu.Unlock()
		return v, v != ""
	}
	r.mu.Unlock()

	version := r.query(ctx, name)

	r.mu.Lock()
	r.latest[name] = version
	r.mu.Unlock()

	return version, version != ""
}

// query performs the uncached registry lookup. Any failure maps to the
// empty string; discovery treats that as "cannot determine".
func (r *Resolver) query(ctx context.Context, name string) string {
	if err := r.limiter.Wait(ctx); err != nil {
		return ""
	}

	res := r.runner.Run(ctx, r.dir, "view", name, "version")
	if !res.OK {
		return ""
	}

	version := strings.TrimSpace(res.Output)
	if version == "" || strings.ContainsAny(version, " \n") {
		// Multi-line or noisy output means npm did not print a bare
		// version; treat as unresolvable.
		return ""
	}
	return version
}

// Prefetch warms the cache for all names with a bounded concurrent
// fan-out. Individual failures are swallowed; they surface later as
// ok = false from Latest.
func (r *Resolver) Prefetch(ctx context.Context, names []string) {
	width := r.Concurrency
	if width <= 0 {
		width = DefaultConcurrency
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(width)

	for _, name := range names {
		name := name
		g.Go(func() error {
			r.Latest(gCtx, name)
			return nil
		})
	}

	// Workers never return errors; Wait only joins them.
	_ = g.Wait()
}

// Current reads the version declared for name in package.json, stripped
// of range operators. The manifest is read fresh on every call.
func (r *Resolver) Current(name string) (string, error) {
	m, err := npm.ReadManifest(r.dir)
	if err != nil {
		return "", err
	}
	dep, ok := m.Find(name)
	if !ok {
		return "", fmt.Errorf("package %s not declared in %s", name, npm.ManifestName)
	}
	return npm.StripRange(dep.Spec), nil
}
