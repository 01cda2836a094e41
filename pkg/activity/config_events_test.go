package activity

import (
	"context"
	"reflect"
	"testing"
	"time"
)

func TestConfigEventBuilders(t *testing.T) {
	at := time.Date(2026, 2, 2, 10, 0, 0, 0, time.UTC)
	base := ConfigEventInput{SnapshotID: "snap-3", Version: 3, OccurredAt: at}

	withModels := func(models ...string) ConfigEventInput {
		input := base
		input.Models = models
		return input
	}

	cases := []struct {
		name       string
		event      Event
		verb       string
		objectType string
		objectID   string
	}{
		{"model", BuildModelConfiguredEvent(withModels("Team")), VerbModelConfigured, ObjectModel, "Team"},
		{"model without name", BuildModelConfiguredEvent(ConfigEventInput{}), VerbModelConfigured, ObjectModel, ObjectModel},
		{"global", BuildGlobalConfiguredEvent(base), VerbGlobalConfigured, ObjectGlobal, "global"},
		{"excluded", BuildModelsExcludedEvent(withModels("Fan", "League")), VerbModelsExcluded, ObjectExclusions, "snap-3"},
		{"excluded without snapshot", BuildModelsExcludedEvent(ConfigEventInput{}), VerbModelsExcluded, ObjectExclusions, ObjectExclusions},
		{"reset all", BuildConfigResetEvent(base), VerbConfigReset, ObjectRegistry, "all"},
		{"reset models", BuildConfigResetEvent(withModels("Team", "Fan")), VerbConfigReset, ObjectRegistry, "Team,Fan"},
		{"navigation", BuildNavigationUpdatedEvent(base), VerbNavigationUpdated, ObjectNavigation, "snap-3"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if tc.event.Verb != tc.verb || tc.event.ObjectType != tc.objectType || tc.event.ObjectID != tc.objectID {
				t.Fatalf("unexpected event identity: %+v", tc.event)
			}
			if !tc.event.Valid() {
				t.Fatalf("expected event to be valid")
			}
		})
	}
}

func TestConfigEventCarriesSnapshotMetadata(t *testing.T) {
	meta := map[string]any{"max_visible_tabs": 2}
	input := ConfigEventInput{
		ActorID:    " actor ",
		SnapshotID: "snap-9",
		Version:    9,
		Models:     []string{"Team"},
		Metadata:   meta,
	}

	event := BuildNavigationUpdatedEvent(input)

	if event.ActorID != "actor" {
		t.Fatalf("expected trimmed actor, got %q", event.ActorID)
	}
	want := map[string]any{"max_visible_tabs": 2, "snapshot_id": "snap-9", "version": uint64(9)}
	if !reflect.DeepEqual(event.Metadata, want) {
		t.Fatalf("unexpected metadata: %#v", event.Metadata)
	}
	if _, ok := meta["snapshot_id"]; ok {
		t.Fatalf("expected input metadata untouched")
	}
	event.Models[0] = "changed"
	if input.Models[0] != "Team" {
		t.Fatalf("expected input models untouched")
	}
}

func TestConfigEventsWorkWithHooks(t *testing.T) {
	capture := &CaptureHook{}
	hooks := Hooks{capture}

	events := []Event{
		BuildModelConfiguredEvent(ConfigEventInput{Models: []string{"Team"}}),
		BuildConfigResetEvent(ConfigEventInput{}),
	}
	for _, event := range events {
		if err := hooks.Notify(context.Background(), event); err != nil {
			t.Fatalf("notify: %v", err)
		}
	}
	want := []string{VerbModelConfigured, VerbConfigReset}
	if got := capture.Verbs(); !reflect.DeepEqual(got, want) {
		t.Fatalf("expected verbs %v, got %v", want, got)
	}
}
