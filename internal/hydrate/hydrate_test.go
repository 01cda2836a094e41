package hydrate

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func TestDecoderFromFixtures(t *testing.T) {
	fx := loadFixture(t, "hydrate_sections.json")

	for _, tc := range fx.Cases {
		t.Run(tc.Name, func(t *testing.T) {
			decoder := NewDecoder[sectionSettings](buildOptions(tc)...)
			result, err := decoder.Decode(Context{Source: tc.Source, Layer: tc.Layer}, tc.Input)

			if tc.ExpectErr != "" {
				if err == nil {
					t.Fatalf("expected error %q, got nil", tc.ExpectErr)
				}
				if !strings.Contains(err.Error(), tc.ExpectErr) {
					t.Fatalf("expected error containing %q, got %v", tc.ExpectErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected decode error: %v", err)
			}
			if !reflect.DeepEqual(tc.Expect, result) {
				t.Fatalf("decoded value mismatch:\nwant: %#v\n got: %#v", tc.Expect, result)
			}
		})
	}
}

func TestDecoderErrorCarriesStage(t *testing.T) {
	decoder := NewDecoder[sectionSettings](WithPostHook[sectionSettings](func(Context, *sectionSettings) error {
		return errors.New("invalid section")
	}))
	_, err := decoder.Decode(Context{Source: "team.yaml"}, map[string]any{"label": "Teams"})

	var hydrateErr *Error
	if !errors.As(err, &hydrateErr) {
		t.Fatalf("expected *hydrate.Error, got %T", err)
	}
	if hydrateErr.Stage != StagePost || hydrateErr.Context.Source != "team.yaml" {
		t.Fatalf("unexpected error details: %+v", hydrateErr)
	}
	if hydrateErr.Unwrap() == nil || hydrateErr.Unwrap().Error() != "invalid section" {
		t.Fatalf("expected wrapped cause, got %v", hydrateErr.Unwrap())
	}
}

func TestDecoderRejectsNilPayload(t *testing.T) {
	_, err := NewDecoder[sectionSettings]().Decode(Context{Source: "empty.yaml"}, nil)
	var hydrateErr *Error
	if !errors.As(err, &hydrateErr) || hydrateErr.Stage != StagePrepare {
		t.Fatalf("expected prepare error, got %v", err)
	}
}

func TestDecoderDoesNotMutatePayload(t *testing.T) {
	payload := map[string]any{"fields": "name, color"}
	decoder := NewDecoder[sectionSettings](WithPreHook[sectionSettings](fieldsCSVPreHook))
	if _, err := decoder.Decode(Context{}, payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload["fields"] != "name, color" {
		t.Fatalf("expected caller payload untouched, got %v", payload["fields"])
	}
}

func buildOptions(tc fixtureCase) []DecoderOption[sectionSettings] {
	var options []DecoderOption[sectionSettings]

	for _, name := range tc.Options {
		switch name {
		case "use_number":
			options = append(options, WithUseNumber[sectionSettings]())
		case "disallow_unknown":
			options = append(options, WithDisallowUnknownFields[sectionSettings]())
		}
	}
	for _, name := range tc.PreHooks {
		if name == "fields_csv" {
			options = append(options, WithPreHook[sectionSettings](fieldsCSVPreHook))
		}
	}
	for _, name := range tc.PostHooks {
		if name == "default_label" {
			options = append(options, WithPostHook[sectionSettings](defaultLabelPostHook))
		}
	}
	if tc.CustomDecoder == "embedded" {
		options = append(options, WithCustomDecoder[sectionSettings](embeddedDecoder))
	}
	return options
}

func fieldsCSVPreHook(_ Context, payload map[string]any) (map[string]any, error) {
	value, ok := payload["fields"].(string)
	if !ok {
		return payload, nil
	}
	var fields []any
	for _, part := range strings.Split(value, ",") {
		name := strings.TrimSpace(part)
		if name == "" {
			return nil, fmt.Errorf("empty field name in %q", value)
		}
		fields = append(fields, name)
	}
	payload["fields"] = fields
	return payload, nil
}

func defaultLabelPostHook(ctx Context, section *sectionSettings) error {
	if section == nil {
		return errors.New("section is nil")
	}
	if section.Label == "" {
		section.Label = ctx.String()
	}
	return nil
}

func embeddedDecoder(ctx Context, payload map[string]any) (sectionSettings, error) {
	raw, ok := payload["document"].(string)
	if !ok || raw == "" {
		return sectionSettings{}, fmt.Errorf("missing embedded document in %q", ctx.Source)
	}
	var out sectionSettings
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&out); err != nil {
		return sectionSettings{}, err
	}
	return out, nil
}

type fixture struct {
	Description string        `json:"description"`
	Cases       []fixtureCase `json:"cases"`
}

type fixtureCase struct {
	Name          string          `json:"name"`
	Source        string          `json:"source"`
	Layer         string          `json:"layer"`
	Input         map[string]any  `json:"input"`
	Expect        sectionSettings `json:"expect"`
	ExpectErr     string          `json:"expectErr"`
	PreHooks      []string        `json:"preHooks"`
	PostHooks     []string        `json:"postHooks"`
	Options       []string        `json:"options"`
	CustomDecoder string          `json:"customDecoder"`
}

type sectionSettings struct {
	Label   string   `json:"label"`
	Visible bool     `json:"visible"`
	Fields  []string `json:"fields"`
}

func loadFixture(t *testing.T, name string) fixture {
	t.Helper()
	raw, err := os.ReadFile(filepath.Join("testdata", name))
	if err != nil {
		t.Fatalf("failed to read hydrate fixture %q: %v", name, err)
	}
	var fx fixture
	if err := json.Unmarshal(raw, &fx); err != nil {
		t.Fatalf("failed to unmarshal hydrate fixture %q: %v", name, err)
	}
	return fx
}
