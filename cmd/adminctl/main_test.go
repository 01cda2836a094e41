package main

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	admin "github.com/goliatone/go-admin"
)

func testSettings() settings {
	return settings{
		schemaDir:    "testdata/schema",
		configPath:   "testdata/admin.yaml",
		overridePath: "testdata/override.yaml",
		policyPath:   "testdata/policy.csv",
		accessMode:   "enforce",
	}
}

func run(t *testing.T, args ...string) []byte {
	t.Helper()
	var out bytes.Buffer
	cmd := rootCommand()
	cmd.Writer = &out
	base := []string{"adminctl",
		"--schema", "testdata/schema",
		"--config", "testdata/admin.yaml",
		"--override", "testdata/override.yaml",
		"--policy", "testdata/policy.csv",
	}
	require.NoError(t, cmd.Run(context.Background(), append(base, args...)))
	return out.Bytes()
}

func TestBuildAppliesLayeredDocuments(t *testing.T) {
	reg, err := testSettings().build()
	require.NoError(t, err)

	assert.Equal(t, []admin.ModelID{"Division", "Team", "Fan"}, reg.Models())
	assert.True(t, reg.IsExcluded("Fan"))

	founded, err := reg.Resolve("Team", admin.SectionUpdate, "founded")
	require.NoError(t, err)
	assert.Equal(t, "Year", founded.Label)
	assert.Equal(t, "Year the club was founded.", founded.Help)
	assert.False(t, founded.Required)
}

func TestBuildRequiresSchema(t *testing.T) {
	_, err := settings{}.build()
	assert.Error(t, err)
}

func TestBuildRejectsBadAccessMode(t *testing.T) {
	cfg := testSettings()
	cfg.accessMode = "sometimes"
	_, err := cfg.build()
	assert.Error(t, err)
}

func TestDocumentLayers(t *testing.T) {
	doc, err := testSettings().document()
	require.NoError(t, err)
	assert.Contains(t, doc.Models, "Team")

	empty, err := settings{}.document()
	require.NoError(t, err)
	assert.Empty(t, empty.Models)

	_, err = settings{configPath: "testdata/missing.yaml"}.document()
	assert.Error(t, err)
}

func TestNavCommand(t *testing.T) {
	var items []admin.NavigationItem
	require.NoError(t, json.Unmarshal(run(t, "nav", "--user", "alice"), &items))
	require.Len(t, items, 1)
	assert.Equal(t, admin.NavigationItem{Model: "Team", Label: "Clubs"}, items[0])

	require.NoError(t, json.Unmarshal(run(t, "nav", "--user", "root"), &items))
	require.Len(t, items, 2)
	assert.Equal(t, admin.ModelID("Division"), items[0].Model)
	assert.Equal(t, "Clubs", items[1].Label)
}

func TestInspectCommand(t *testing.T) {
	var section admin.ResolvedSection
	require.NoError(t, json.Unmarshal(run(t, "inspect", "--section", "update", "Team"), &section))
	assert.Equal(t, admin.SectionUpdate, section.Section)
	assert.True(t, section.Explicit)
	require.Len(t, section.Fields, 2)
	assert.Equal(t, "name", section.Fields[0].Name)

	var field admin.ResolvedField
	require.NoError(t, json.Unmarshal(run(t, "inspect", "--section", "update", "--field", "founded", "Team"), &field))
	assert.Equal(t, "Year", field.Label)

	var trace admin.Trace
	require.NoError(t, json.Unmarshal(run(t, "inspect", "--section", "update", "--field", "founded", "--trace", "label", "Team"), &trace))
	assert.Equal(t, "Year", trace.Final())

	var doc map[string]any
	require.NoError(t, json.Unmarshal(run(t, "inspect", "--section", "create", "--openapi", "Team"), &doc))
	assert.Equal(t, "3.0.3", doc["openapi"])
}

func TestInspectRejectsExcludedModel(t *testing.T) {
	reg, err := testSettings().build()
	require.NoError(t, err)
	_, err = inspect(reg, "Fan", admin.SectionList, "", "", false)
	assert.True(t, admin.IsNotFound(err))
}
