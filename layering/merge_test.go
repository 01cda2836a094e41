package layering

import (
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestMergeLayersFromFixture(t *testing.T) {
	fx := loadMergeFixture(t, "layering_merge.json")

	for _, tc := range fx.Cases {
		t.Run(tc.Name, func(t *testing.T) {
			layers := make([]mergeSettings, len(tc.Layers))
			for i := range tc.Layers {
				layers[i] = tc.Layers[i].Snapshot
			}

			got := MergeLayers(layers...)
			if !reflect.DeepEqual(tc.Expect, got) {
				t.Errorf("merged snapshot mismatch:\nwant: %#v\n got: %#v", tc.Expect, got)
			}
		})
	}
}

func TestMergeLayersZeroInput(t *testing.T) {
	type sample struct {
		Value int
	}
	var zero sample
	if got := MergeLayers[sample](); got != zero {
		t.Fatalf("expected MergeLayers() to return zero value, got %+v", got)
	}
}

func TestMergeLayersDoesNotAliasInputs(t *testing.T) {
	label := "Weak"
	weak := mergeSettings{Label: &label, Tags: []string{"a"}, Limits: map[string]int{"a": 1}}
	got := MergeLayers(mergeSettings{}, weak)

	*got.Label = "changed"
	got.Tags[0] = "changed"
	got.Limits["a"] = 9
	if label != "Weak" || weak.Tags[0] != "a" || weak.Limits["a"] != 1 {
		t.Fatalf("expected inputs untouched, got %q %v %v", label, weak.Tags, weak.Limits)
	}
}

func TestMergeLayersNestedPointerWithoutWeakValue(t *testing.T) {
	type inner struct {
		Rule *ruleValue
	}
	type outer struct {
		Inner *inner
	}
	got := MergeLayers(outer{Inner: &inner{}}, outer{})
	if got.Inner == nil || got.Inner.Rule != nil {
		t.Fatalf("unexpected merge result: %#v", got)
	}
}

type mergeFixture struct {
	Description string             `json:"description"`
	Cases       []mergeFixtureCase `json:"cases"`
}

type mergeFixtureCase struct {
	Name   string              `json:"name"`
	Layers []mergeFixtureLayer `json:"layers"`
	Expect mergeSettings       `json:"expect"`
}

type mergeFixtureLayer struct {
	Level    string        `json:"level"`
	Snapshot mergeSettings `json:"snapshot"`
}

type mergeSettings struct {
	Label   *string        `json:"label,omitempty"`
	Visible *bool          `json:"visible,omitempty"`
	Rule    *ruleValue     `json:"rule,omitempty" merge:"atomic"`
	Tags    []string       `json:"tags,omitempty"`
	Limits  map[string]int `json:"limits,omitempty"`
	Fields  []mergeField   `json:"fields,omitempty" merge:"key=Name"`
}

type ruleValue struct {
	Value *string `json:"value,omitempty"`
	Expr  string  `json:"expr,omitempty"`
}

type mergeField struct {
	Name   string  `json:"name"`
	Label  *string `json:"label,omitempty"`
	Hidden *bool   `json:"hidden,omitempty"`
}

func loadMergeFixture(t *testing.T, name string) mergeFixture {
	t.Helper()
	raw, err := os.ReadFile(filepath.Join("testdata", name))
	if err != nil {
		t.Fatalf("failed to read layering fixture %q: %v", name, err)
	}
	var fx mergeFixture
	if err := json.Unmarshal(raw, &fx); err != nil {
		t.Fatalf("failed to unmarshal layering fixture %q: %v", name, err)
	}
	return fx
}
