package state_test

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/goliatone/go-admin/layering"
	"github.com/goliatone/go-admin/pkg/state"
)

type sectionDoc struct {
	Label   *string  `json:"label,omitempty"`
	Visible *bool    `json:"visible,omitempty"`
	Fields  []string `json:"fields,omitempty"`
}

func (d sectionDoc) Validate() error {
	if d.Label != nil && *d.Label == "" {
		return errors.New("label must not be empty")
	}
	return nil
}

func ptr[T any](v T) *T { return &v }

var (
	baseLayer     = layering.Layer{Level: layering.LevelBase}
	envLayer      = layering.Layer{Level: layering.LevelEnvironment, Name: "production"}
	overrideLayer = layering.Layer{Level: layering.LevelOverride, Name: "local"}
)

func seed(t *testing.T, store *state.MemoryStore[sectionDoc], layer layering.Layer, doc sectionDoc) state.Meta {
	t.Helper()
	meta, err := store.Save(context.Background(), state.Ref{Domain: "admin", Layer: layer}, doc, state.Meta{})
	if err != nil {
		t.Fatalf("seed %s: %v", layer.Identifier(), err)
	}
	return meta
}

func TestResolverMergesLayersStrongestFirst(t *testing.T) {
	store := state.NewMemoryStore[sectionDoc]()
	baseMeta := seed(t, store, baseLayer, sectionDoc{Label: ptr("Teams"), Visible: ptr(true), Fields: []string{"name"}})
	overrideMeta := seed(t, store, overrideLayer, sectionDoc{Label: ptr("Clubs")})

	resolver := state.Resolver[sectionDoc]{Store: store}
	got, err := resolver.Resolve(context.Background(), "admin", baseLayer, envLayer, overrideLayer)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}

	if *got.Value.Label != "Clubs" || !*got.Value.Visible || !reflect.DeepEqual(got.Value.Fields, []string{"name"}) {
		t.Fatalf("unexpected merge: %+v", got.Value)
	}
	want := []string{overrideMeta.SnapshotID, baseMeta.SnapshotID}
	if !reflect.DeepEqual(got.SnapshotIDs(), want) {
		t.Fatalf("expected snapshot ids %v, got %v", want, got.SnapshotIDs())
	}
	if got.Layers[0].Layer != overrideLayer {
		t.Fatalf("expected override first, got %+v", got.Layers[0].Layer)
	}
}

func TestResolverWithoutDocuments(t *testing.T) {
	resolver := state.Resolver[sectionDoc]{Store: state.NewMemoryStore[sectionDoc]()}

	_, err := resolver.Resolve(context.Background(), "admin", baseLayer)
	if !errors.Is(err, state.ErrNoLayers) {
		t.Fatalf("expected ErrNoLayers, got %v", err)
	}

	got, err := resolver.ResolveWithDefaults(context.Background(), "admin", sectionDoc{Label: ptr("Default")}, baseLayer)
	if err != nil {
		t.Fatalf("resolve with defaults: %v", err)
	}
	if *got.Value.Label != "Default" || len(got.Layers) != 0 {
		t.Fatalf("expected defaults only, got %+v", got)
	}
}

func TestResolverDefaultsAreWeakest(t *testing.T) {
	store := state.NewMemoryStore[sectionDoc]()
	seed(t, store, envLayer, sectionDoc{Fields: []string{"name", "color"}})

	resolver := state.Resolver[sectionDoc]{Store: store}
	got, err := resolver.ResolveWithDefaults(context.Background(), "admin",
		sectionDoc{Label: ptr("Default"), Fields: []string{"id"}}, envLayer)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if *got.Value.Label != "Default" || !reflect.DeepEqual(got.Value.Fields, []string{"name", "color"}) {
		t.Fatalf("unexpected merge: %+v", got.Value)
	}
}

func TestResolverRequiresStoreAndDomain(t *testing.T) {
	if _, err := (state.Resolver[sectionDoc]{}).Resolve(context.Background(), "admin", baseLayer); err == nil {
		t.Fatalf("expected missing store error")
	}
	resolver := state.Resolver[sectionDoc]{Store: state.NewMemoryStore[sectionDoc]()}
	if _, err := resolver.Resolve(context.Background(), "", baseLayer); err == nil {
		t.Fatalf("expected missing domain error")
	}
	if _, err := resolver.Resolve(context.Background(), "admin"); err == nil {
		t.Fatalf("expected missing layers error")
	}
}
