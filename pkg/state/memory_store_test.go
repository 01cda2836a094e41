package state_test

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/goliatone/go-admin/pkg/state"
)

func TestMemoryStoreRoundTripAndETags(t *testing.T) {
	store := state.NewMemoryStore[sectionDoc]()
	ref := state.Ref{Domain: "admin", Layer: baseLayer}

	if _, _, ok, err := store.Load(context.Background(), ref); ok || err != nil {
		t.Fatalf("expected missing record, got ok=%v err=%v", ok, err)
	}

	first, err := store.Save(context.Background(), ref, sectionDoc{Label: ptr("Teams")}, state.Meta{Extra: map[string]string{"source": "test"}})
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if first.ETag != "1" || first.SnapshotID == "" || first.UpdatedAt.IsZero() {
		t.Fatalf("unexpected meta: %+v", first)
	}

	doc, meta, ok, err := store.Load(context.Background(), ref)
	if err != nil || !ok {
		t.Fatalf("load: ok=%v err=%v", ok, err)
	}
	if *doc.Label != "Teams" || meta.SnapshotID != first.SnapshotID || meta.Extra["source"] != "test" {
		t.Fatalf("unexpected record: %+v %+v", doc, meta)
	}

	second, err := store.Save(context.Background(), ref, sectionDoc{Label: ptr("Clubs")}, state.Meta{ETag: first.ETag})
	if err != nil {
		t.Fatalf("second save: %v", err)
	}
	if second.ETag != "2" || second.SnapshotID == first.SnapshotID {
		t.Fatalf("expected new etag and snapshot, got %+v", second)
	}

	if _, err := store.Save(context.Background(), ref, sectionDoc{}, state.Meta{ETag: first.ETag}); !errors.Is(err, state.ErrETagMismatch) {
		t.Fatalf("expected stale etag rejection, got %v", err)
	}
}

func TestMemoryStoreRejectsInvalidRef(t *testing.T) {
	store := state.NewMemoryStore[sectionDoc]()
	if _, err := store.Save(context.Background(), state.Ref{Domain: "admin"}, sectionDoc{}, state.Meta{}); err == nil {
		t.Fatalf("expected identifier error")
	}
	if _, _, _, err := store.Load(context.Background(), state.Ref{Layer: baseLayer}); err == nil {
		t.Fatalf("expected identifier error")
	}
}

func TestMemoryStoreWithResolverMutate(t *testing.T) {
	store := state.NewMemoryStore[sectionDoc]()
	resolver := state.Resolver[sectionDoc]{Store: store}

	_, meta, err := resolver.Mutate(context.Background(), overrideRef, state.Meta{}, func(d *sectionDoc) error {
		d.Fields = []string{"name"}
		return nil
	})
	if err != nil {
		t.Fatalf("mutate: %v", err)
	}
	if _, _, err := resolver.Mutate(context.Background(), overrideRef, state.Meta{ETag: meta.ETag}, func(d *sectionDoc) error {
		d.Fields = append(d.Fields, "color")
		return nil
	}); err != nil {
		t.Fatalf("second mutate: %v", err)
	}

	keys := store.Keys()
	slices.Sort(keys)
	if !slices.Equal(keys, []string{"override/local/admin"}) {
		t.Fatalf("unexpected keys: %v", keys)
	}
	doc, _, _, _ := store.Load(context.Background(), overrideRef)
	if !slices.Equal(doc.Fields, []string{"name", "color"}) {
		t.Fatalf("unexpected fields: %v", doc.Fields)
	}
}
