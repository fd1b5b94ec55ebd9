package deps

import (
	"context"
	"io"
	"slices"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/gpack/pkg/errors"
	"github.com/matzehuels/gpack/pkg/observability"
	"github.com/matzehuels/gpack/pkg/registry"
)

// DefaultConcurrency bounds in-flight registry lookups.
const DefaultConcurrency = 16

// Fetcher retrieves package metadata from a registry.
type Fetcher interface {
	// Resolve returns metadata for name at version. Either argument may
	// be a local-path specifier.
	Resolve(ctx context.Context, name, version string) (*registry.Metadata, error)
}

// Options configures a [Resolver].
type Options struct {
	Concurrency int         // max in-flight lookups (default: 16)
	Logger      *log.Logger // progress logger (optional)
}

// WithDefaults returns a copy of Options with zero values replaced by defaults.
func (o Options) WithDefaults() Options {
	opts := o
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}
	return opts
}

// Resolver builds dependency trees from declared dependencies.
type Resolver struct {
	fetcher Fetcher
	opts    Options
}

// NewResolver creates a Resolver backed by fetcher.
func NewResolver(fetcher Fetcher, opts Options) *Resolver {
	return &Resolver{fetcher: fetcher, opts: opts.WithDefaults()}
}

// Build resolves dependencies and everything they depend on. The first
// failure cancels outstanding lookups and is returned.
func (r *Resolver) Build(ctx context.Context, dependencies map[string]string) (*Tree, error) {
	hooks := observability.Install()
	hooks.OnResolveStart(ctx, len(dependencies))
	start := time.Now()

	b := &build{
		fetcher: r.fetcher,
		logger:  r.opts.Logger,
		sem:     make(chan struct{}, r.opts.Concurrency),
	}
	tree, err := b.level(ctx, dependencies, nil)
	hooks.OnResolveComplete(ctx, Count(tree), time.Since(start), err)
	return tree, err
}

// build is the state of one Build call.
type build struct {
	fetcher Fetcher
	logger  *log.Logger
	sem     chan struct{}
}

type resolved struct {
	key  string
	node *Node
	seq  int64
}

// level resolves one set of siblings. ancestors holds the IDs on the
// path from the root to this level.
func (b *build) level(ctx context.Context, dependencies map[string]string, ancestors []string) (*Tree, error) {
	names := make([]string, 0, len(dependencies))
	for name := range dependencies {
		names = append(names, name)
	}
	sort.Strings(names)

	g, ctx := errgroup.WithContext(ctx)
	results := make([]resolved, len(names))
	var seq atomic.Int64

	for i, name := range names {
		g.Go(func() error {
			node, err := b.node(ctx, name, dependencies[name], ancestors)
			if err != nil {
				return err
			}
			key := name
			if registry.IsLocal(name) {
				key = node.Name
			}
			results[i] = resolved{key: key, node: node, seq: seq.Add(1)}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Siblings enter the tree in the order they finished.
	slices.SortFunc(results, func(x, y resolved) int { return int(x.seq - y.seq) })
	tree := NewTree()
	for _, res := range results {
		tree.Set(res.key, res.node)
	}
	return tree, nil
}

func (b *build) node(ctx context.Context, name, rng string, ancestors []string) (*Node, error) {
	version := NormalizeVersion(rng)
	meta, err := b.fetch(ctx, name, version)
	if err != nil {
		return nil, err
	}

	node := &Node{
		Name:     meta.Name,
		Version:  meta.Version,
		Resolved: meta.Resolved,
		Bin:      meta.Bin,
	}
	id := node.ID()
	if slices.Contains(ancestors, id) {
		chain := append(slices.Clone(ancestors), id)
		return nil, errors.New(errors.ErrCodeDependencyCycle, "dependency cycle: %s", strings.Join(chain, " -> "))
	}
	b.logger.Debug("resolved", "package", id, "requested", version)

	if len(meta.Dependencies) > 0 {
		path := append(slices.Clip(ancestors), id)
		sub, err := b.level(ctx, meta.Dependencies, path)
		if err != nil {
			return nil, err
		}
		node.Dependencies = sub
	}
	return node, nil
}

// fetch calls the fetcher while holding a semaphore slot.
func (b *build) fetch(ctx context.Context, name, version string) (*registry.Metadata, error) {
	select {
	case b.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	defer func() { <-b.sem }()
	return b.fetcher.Resolve(ctx, name, version)
}
