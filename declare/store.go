package declare

import (
	"context"
	"fmt"

	admin "github.com/goliatone/go-admin"
	"github.com/goliatone/go-admin/layering"
	"github.com/goliatone/go-admin/pkg/state"
)

// Domain is the state domain admin documents are stored under.
const Domain = "admin"

// Put stores doc as the document of layer. A non-empty etag must match the
// stored revision. The document is validated before it is saved.
func Put(ctx context.Context, store state.Store[Document], layer layering.Layer, doc Document, etag string) (state.Meta, error) {
	resolver := state.Resolver[Document]{Store: store}
	ref := state.Ref{Domain: Domain, Layer: layer}
	_, meta, err := resolver.Mutate(ctx, ref, state.Meta{ETag: etag}, func(current *Document) error {
		*current = doc
		return nil
	})
	if err != nil {
		return state.Meta{}, fmt.Errorf("declare: put %s: %w", layer.Identifier(), err)
	}
	return meta, nil
}

// Sync merges the stored documents of layers and reloads reg from the
// result. Layers without a document are skipped, so with nothing stored
// the registry is reset to defaults.
func Sync(ctx context.Context, reg *admin.Registry, store state.Store[Document], layers ...layering.Layer) (state.Resolved[Document], error) {
	resolver := state.Resolver[Document]{Store: store}
	resolved, err := resolver.ResolveWithDefaults(ctx, Domain, Document{}, layers...)
	if err != nil {
		return state.Resolved[Document]{}, fmt.Errorf("declare: sync: %w", err)
	}
	if err := Reload(reg, resolved.Value); err != nil {
		return resolved, err
	}
	return resolved, nil
}
