package songrec

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/hupe1980/songrec/artifact"
	"github.com/hupe1980/songrec/features"
	"github.com/hupe1980/songrec/index"
)

// Catalog is an immutable, fully loaded catalog version.
type Catalog struct {
	Version      string
	Params       features.Params
	Dictionaries features.Dictionaries
	Index        *index.Store
	LoadedAt     time.Time
}

// Source builds catalogs.
type Source interface {
	LoadCatalog(ctx context.Context) (*Catalog, error)
}

// SourceFunc adapts a function to the Source interface.
type SourceFunc func(ctx context.Context) (*Catalog, error)

// LoadCatalog calls f.
func (f SourceFunc) LoadCatalog(ctx context.Context) (*Catalog, error) { return f(ctx) }

// ArtifactSource builds catalogs from the artifacts named by the current manifest.
func ArtifactSource(l *artifact.Loader) Source {
	return SourceFunc(func(ctx context.Context) (*Catalog, error) {
		b, err := l.LoadCurrent(ctx)
		if err != nil {
			return nil, err
		}
		return &Catalog{
			Version:      b.Manifest.Version,
			Params:       b.Params,
			Dictionaries: b.Dictionaries,
			Index:        b.Index,
		}, nil
	})
}

// StaticSource always returns c.
func StaticSource(c *Catalog) Source {
	return SourceFunc(func(context.Context) (*Catalog, error) { return c, nil })
}

// Loader builds the catalog lazily and at most once at a time.
//
// Concurrent callers during a build share its outcome. A successful catalog is
// kept and served without locking; a failure is returned to every waiter and
// not remembered, so the next call builds again.
type Loader struct {
	src     Source
	opts    options
	group   singleflight.Group
	current atomic.Pointer[Catalog]
	builds  atomic.Int64
}

// NewLoader creates a Loader. Only the logging and metrics options apply.
func NewLoader(src Source, optFns ...Option) *Loader {
	return &Loader{src: src, opts: applyOptions(optFns)}
}

// Catalog returns the loaded catalog, building it on first use.
func (l *Loader) Catalog(ctx context.Context) (*Catalog, error) {
	if c := l.current.Load(); c != nil {
		return c, nil
	}
	return l.build(ctx, false)
}

// Reload builds a fresh catalog and swaps it in. On failure the previous
// catalog, if any, stays in service.
func (l *Loader) Reload(ctx context.Context) (*Catalog, error) {
	return l.build(ctx, true)
}

// Loaded returns the current catalog or nil before the first successful build.
func (l *Loader) Loaded() *Catalog { return l.current.Load() }

// Builds returns how many builds have been started.
func (l *Loader) Builds() int64 { return l.builds.Load() }

func (l *Loader) build(ctx context.Context, force bool) (*Catalog, error) {
	key := "load"
	if force {
		key = "reload"
	}

	// The build outlives a canceled caller so the other waiters still get it.
	buildCtx := context.WithoutCancel(ctx)
	ch := l.group.DoChan(key, func() (any, error) {
		if !force {
			if c := l.current.Load(); c != nil {
				return c, nil
			}
		}
		return l.load(buildCtx)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Catalog), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (l *Loader) load(ctx context.Context) (*Catalog, error) {
	l.builds.Add(1)
	start := time.Now()

	c, err := l.src.LoadCatalog(ctx)
	switch {
	case err != nil:
	case c == nil:
		err = errors.New("songrec: source returned no catalog")
	case c.Index == nil:
		c.Index = new(index.Store)
	}
	err = translateError(err)
	duration := time.Since(start)

	entries := 0
	if err == nil {
		c.LoadedAt = time.Now()
		entries = c.Index.Len()
		l.current.Store(c)
	}
	l.opts.logger.WithContext(ctx).LogCatalogLoad(ctx, c, duration, err)
	l.opts.metricsCollector.RecordCatalogLoad(entries, duration, err)

	if err != nil {
		return nil, err
	}
	return c, nil
}
