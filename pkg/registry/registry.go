// Package registry serves trained model artifacts from disk with in-memory
// caching and per-user to global fallback.
package registry

import (
	"context"
	"errors"
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/sirupsen/logrus"

	"github.com/rjajoo18/Rubiks-Cube-Project/pkg/model"
)

const (
	// legacyCacheSize is 1: there is only ever one legacy model artifact.
	legacyCacheSize = 1

	// bundleCacheSize bounds how many two-head bundles stay resident. The
	// global bundle plus a handful of hot per-user bundles is plenty.
	bundleCacheSize = 8
)

// Registry hands out trained model bundles by version.
type Registry interface {
	// Bundle returns the two-head bundle for the requested version. A
	// missing per-user bundle falls back to the global one; the returned
	// bundle's own Version field reports what was actually served. Only a
	// missing global bundle is an error (ErrArtifactMissing).
	Bundle(ctx context.Context, v model.Version) (*model.Bundle, error)

	// Legacy returns the single-score model and its schema.
	Legacy(ctx context.Context) (*model.LegacyModel, *model.Schema, error)

	// Invalidate drops any cached copy of the given version so the next
	// request re-reads the artifact from disk. Called after promotion.
	Invalidate(v model.Version)
}

var _ Registry = (*registry)(nil)

type legacyEntry struct {
	model  *model.LegacyModel
	schema *model.Schema
}

type registry struct {
	log          logrus.FieldLogger
	artifactsDir string

	// mu serializes cache misses so concurrent scorers do not race to parse
	// the same artifact. Hits never take it; the lru caches are safe.
	mu sync.Mutex

	bundles *lru.Cache[string, *model.Bundle]
	legacy  *lru.Cache[string, *legacyEntry]
}

// NewRegistry creates a registry over the given artifacts directory.
func NewRegistry(log logrus.FieldLogger, artifactsDir string) (Registry, error) {
	bundles, err := lru.New[string, *model.Bundle](bundleCacheSize)
	if err != nil {
		return nil, fmt.Errorf("creating bundle cache: %w", err)
	}

	legacy, err := lru.New[string, *legacyEntry](legacyCacheSize)
	if err != nil {
		return nil, fmt.Errorf("creating legacy cache: %w", err)
	}

	return &registry{
		log:          log.WithField("component", "model-registry"),
		artifactsDir: artifactsDir,
		bundles:      bundles,
		legacy:       legacy,
	}, nil
}

// Bundle resolves a version to a loaded bundle. Cache entries are keyed by
// the *requested* version, so a per-user request that fell back to the global
// bundle keeps resolving from cache until invalidated; promotion must call
// Invalidate to pick up a freshly trained per-user bundle.
func (r *registry) Bundle(ctx context.Context, v model.Version) (*model.Bundle, error) {
	key := v.String()

	if b, ok := r.bundles.Get(key); ok {
		return b, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Re-check under the lock: another miss may have filled the entry.
	if b, ok := r.bundles.Get(key); ok {
		return b, nil
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	b, err := model.LoadBundle(model.BundlePath(r.artifactsDir, v))
	if err != nil && !v.IsGlobal() && errors.Is(err, model.ErrArtifactMissing) {
		r.log.WithFields(logrus.Fields{
			"requested": key,
			"fallback":  model.GlobalVersion().String(),
		}).Debug("Per-user bundle missing, serving global")

		b, err = model.LoadBundle(model.BundlePath(r.artifactsDir, model.GlobalVersion()))
	}

	if err != nil {
		return nil, err
	}

	r.bundles.Add(key, b)

	return b, nil
}

// Legacy resolves the single-score model and schema pair, loading both from
// disk on first use.
func (r *registry) Legacy(ctx context.Context) (*model.LegacyModel, *model.Schema, error) {
	if e, ok := r.legacy.Get(model.LegacyVersion); ok {
		return e.model, e.schema, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.legacy.Get(model.LegacyVersion); ok {
		return e.model, e.schema, nil
	}

	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	m, err := model.LoadLegacyModel(r.artifactsDir)
	if err != nil {
		return nil, nil, err
	}

	schema, err := model.LoadSchema(model.LegacySchemaPath(r.artifactsDir))
	if err != nil {
		return nil, nil, err
	}

	r.legacy.Add(model.LegacyVersion, &legacyEntry{model: m, schema: schema})

	return m, schema, nil
}

func (r *registry) Invalidate(v model.Version) {
	r.bundles.Remove(v.String())
}
