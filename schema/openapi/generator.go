// Package openapi describes resolved admin sections as OpenAPI 3 documents.
// The generated component schema lists the section's fields in display
// order, with labels as titles, help text as descriptions and a required
// list taken from the resolved required flags.
package openapi

import (
	"fmt"

	admin "github.com/goliatone/go-admin"
	"github.com/goliatone/go-admin/introspect"
)

// ForView resolves view and generates its document.
func ForView(view admin.SectionView, opts ...GeneratorOption) (map[string]any, error) {
	section, err := view.Resolved()
	if err != nil {
		return nil, err
	}
	return Generate(section, opts...)
}

// Generate builds the document of one resolved section. Hidden fields are
// left out unless WithHiddenFields is given.
func Generate(section admin.ResolvedSection, opts ...GeneratorOption) (map[string]any, error) {
	if section.Model == "" {
		return nil, fmt.Errorf("openapi: section has no model")
	}
	cfg := defaultGeneratorConfig(string(section.Model), string(section.Section))
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return newDocumentBuilder(cfg, sectionSchema(section, cfg)).build()
}

func sectionSchema(section admin.ResolvedSection, cfg generatorConfig) map[string]any {
	properties := map[string]any{}
	order := []string{}
	required := []string{}
	for _, field := range section.Fields {
		if !field.Visible && !cfg.includeHidden {
			continue
		}
		properties[field.Name] = fieldSchema(field)
		order = append(order, field.Name)
		if field.Required {
			required = append(required, field.Name)
		}
	}

	schema := map[string]any{
		"type":            "object",
		"title":           section.Label,
		"properties":      properties,
		"x-admin-order":   order,
		"x-admin-section": string(section.Section),
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	if groups := groupExtensions(section, properties); len(groups) > 0 {
		schema["x-admin-groups"] = groups
	}
	return schema
}

func groupExtensions(section admin.ResolvedSection, properties map[string]any) []any {
	var out []any
	for _, group := range section.Groups {
		var fields []string
		for _, name := range group.Fields {
			if _, ok := properties[name]; ok {
				fields = append(fields, name)
			}
		}
		if len(fields) == 0 {
			continue
		}
		out = append(out, map[string]any{
			"name":    group.Name,
			"label":   group.Label,
			"visible": group.Visible,
			"fields":  fields,
		})
	}
	return out
}

func fieldSchema(field admin.ResolvedField) map[string]any {
	schema := typeSchema(field)
	schema["title"] = field.Label
	if field.Help != "" {
		schema["description"] = field.Help
	}
	if field.Properties.Nullable {
		schema["nullable"] = true
	}
	if field.Properties.MaxLength > 0 && schema["type"] == "string" {
		schema["maxLength"] = field.Properties.MaxLength
	}
	if assoc := field.Properties.Association; assoc != nil {
		schema["x-admin-association"] = map[string]any{
			"kind":   string(assoc.Kind),
			"target": assoc.Target,
		}
	}
	if field.Group != "" && field.Group != admin.DefaultGroup {
		schema["x-admin-group"] = field.Group
	}
	if !field.Visible {
		schema["x-admin-hidden"] = true
	}
	return schema
}

func typeSchema(field admin.ResolvedField) map[string]any {
	switch field.Type {
	case introspect.TypeString, introspect.TypeEnum, introspect.TypeBelongsTo:
		return map[string]any{"type": "string"}
	case introspect.TypeText:
		return map[string]any{"type": "string", "format": "textarea"}
	case introspect.TypeInteger:
		return map[string]any{"type": "integer"}
	case introspect.TypeFloat, introspect.TypeDecimal:
		return map[string]any{"type": "number"}
	case introspect.TypeBoolean:
		return map[string]any{"type": "boolean"}
	case introspect.TypeDate:
		return map[string]any{"type": "string", "format": "date"}
	case introspect.TypeDateTime:
		return map[string]any{"type": "string", "format": "date-time"}
	case introspect.TypeHasMany:
		return map[string]any{"type": "array", "items": map[string]any{"type": "string"}}
	default:
		return map[string]any{"type": "string", "format": string(field.Type)}
	}
}
