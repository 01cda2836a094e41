package state

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-admin/layering"
)

var ErrETagMismatch = errors.New("state: etag mismatch")

// ErrNoLayers is returned when none of the requested layers has a document.
var ErrNoLayers = errors.New("state: no layers found")

// Ref identifies one persisted document for one configuration domain.
type Ref struct {
	Domain string
	Layer  layering.Layer
}

// Identifier returns the storage key of the document, such as
// "environment/production/admin".
func (r Ref) Identifier() (string, error) {
	if strings.TrimSpace(r.Domain) == "" {
		return "", fmt.Errorf("state: domain is required")
	}
	if err := r.Layer.Validate(); err != nil {
		return "", err
	}
	return fmt.Sprintf("%s/%s", r.Layer.Identifier(), r.Domain), nil
}

// Meta is storage-owned metadata used for audit and concurrency control.
type Meta struct {
	SnapshotID string            `json:"snapshot_id,omitempty"`
	ETag       string            `json:"etag,omitempty"`
	UpdatedAt  time.Time         `json:"updated_at,omitempty"`
	Extra      map[string]string `json:"extra,omitempty"`
}

// Store loads and saves one document for a single reference.
type Store[T any] interface {
	Load(ctx context.Context, ref Ref) (snapshot T, meta Meta, ok bool, err error)
	Save(ctx context.Context, ref Ref, snapshot T, meta Meta) (Meta, error)
}

// Validator is implemented by documents that can check themselves before
// they are saved.
type Validator interface {
	Validate() error
}

// Resolver loads the documents of several layers and merges them.
type Resolver[T any] struct {
	Store Store[T]
}

// Mutator edits a document in place.
type Mutator[T any] func(*T) error

// LoadedLayer records the stored snapshot a merged value came from.
type LoadedLayer struct {
	Layer      layering.Layer
	SnapshotID string
}

// Resolved is a merged document with the layers that contributed to it,
// strongest first.
type Resolved[T any] struct {
	Value  T
	Layers []LoadedLayer
}

// SnapshotIDs lists the snapshot IDs of the contributing layers.
func (r Resolved[T]) SnapshotIDs() []string {
	out := make([]string, 0, len(r.Layers))
	for _, layer := range r.Layers {
		out = append(out, layer.SnapshotID)
	}
	return out
}

// Resolve loads domain for every layer and merges what was found. Missing
// layers are skipped; ErrNoLayers is returned when all are missing.
func (r Resolver[T]) Resolve(ctx context.Context, domain string, layers ...layering.Layer) (Resolved[T], error) {
	if len(layers) == 0 {
		return Resolved[T]{}, fmt.Errorf("state: at least one layer is required")
	}
	values, loaded, err := r.load(ctx, domain, layers)
	if err != nil {
		return Resolved[T]{}, err
	}
	if len(values) == 0 {
		return Resolved[T]{}, fmt.Errorf("%w for domain %q", ErrNoLayers, domain)
	}
	return Resolved[T]{Value: layering.MergeLayers(values...), Layers: loaded}, nil
}

// ResolveWithDefaults behaves like Resolve with defaults as the weakest
// layer, so it never fails for missing documents.
func (r Resolver[T]) ResolveWithDefaults(ctx context.Context, domain string, defaults T, layers ...layering.Layer) (Resolved[T], error) {
	values, loaded, err := r.load(ctx, domain, layers)
	if err != nil {
		return Resolved[T]{}, err
	}
	values = append(values, defaults)
	return Resolved[T]{Value: layering.MergeLayers(values...), Layers: loaded}, nil
}

func (r Resolver[T]) load(ctx context.Context, domain string, layers []layering.Layer) ([]T, []LoadedLayer, error) {
	if r.Store == nil {
		return nil, nil, fmt.Errorf("state: store is required")
	}
	if domain == "" {
		return nil, nil, fmt.Errorf("state: domain is required")
	}
	chain := layering.NewChain(layers...)
	values := make([]T, 0, chain.Len())
	loaded := make([]LoadedLayer, 0, chain.Len())
	for _, layer := range chain.Ordered() {
		snapshot, meta, ok, err := r.Store.Load(ctx, Ref{Domain: domain, Layer: layer})
		if err != nil {
			return nil, nil, fmt.Errorf("state: load %q for layer %q: %w", domain, layer.Identifier(), err)
		}
		if !ok {
			continue
		}
		values = append(values, snapshot)
		loaded = append(loaded, LoadedLayer{Layer: layer, SnapshotID: meta.SnapshotID})
	}
	return values, loaded, nil
}

// Mutate loads one document, applies fn, validates the result and saves
// it. A non-empty meta.ETag must match the stored ETag.
func (r Resolver[T]) Mutate(ctx context.Context, ref Ref, meta Meta, fn Mutator[T]) (T, Meta, error) {
	var zero T
	if r.Store == nil {
		return zero, Meta{}, fmt.Errorf("state: store is required")
	}
	if _, err := ref.Identifier(); err != nil {
		return zero, Meta{}, err
	}
	if fn == nil {
		return zero, Meta{}, fmt.Errorf("state: mutator is required")
	}

	snapshot, loadedMeta, ok, err := r.Store.Load(ctx, ref)
	if err != nil {
		return zero, Meta{}, fmt.Errorf("state: load %q for layer %q: %w", ref.Domain, ref.Layer.Identifier(), err)
	}
	if !ok {
		snapshot = zero
		loadedMeta = Meta{}
	}

	if meta.ETag != "" && loadedMeta.ETag != "" && meta.ETag != loadedMeta.ETag {
		return zero, loadedMeta, fmt.Errorf("%w: expected %q, got %q", ErrETagMismatch, meta.ETag, loadedMeta.ETag)
	}

	if err := fn(&snapshot); err != nil {
		return zero, loadedMeta, err
	}
	if err := validate(&snapshot); err != nil {
		return zero, loadedMeta, err
	}

	saved, err := r.Store.Save(ctx, ref, snapshot, mergeMeta(loadedMeta, meta))
	if err != nil {
		return zero, loadedMeta, fmt.Errorf("state: save %q for layer %q: %w", ref.Domain, ref.Layer.Identifier(), err)
	}
	return snapshot, saved, nil
}

func validate[T any](snapshot *T) error {
	if v, ok := any(snapshot).(Validator); ok {
		return v.Validate()
	}
	if v, ok := any(*snapshot).(Validator); ok {
		return v.Validate()
	}
	return nil
}

func mergeMeta(base, override Meta) Meta {
	out := base
	if override.SnapshotID != "" {
		out.SnapshotID = override.SnapshotID
	}
	if override.ETag != "" {
		out.ETag = override.ETag
	}
	if !override.UpdatedAt.IsZero() {
		out.UpdatedAt = override.UpdatedAt
	}
	if override.Extra != nil {
		out.Extra = override.Extra
	}
	return out
}
