package declare

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	admin "github.com/goliatone/go-admin"
	"github.com/goliatone/go-admin/internal/hydrate"
	"github.com/goliatone/go-admin/layering"
)

// sectionAttributes may be written directly on a scope as shorthand for
// the base section.
var sectionAttributes = map[string]struct{}{
	"label":          {},
	"visible":        {},
	"fields":         {},
	"fields_of_type": {},
	"groups":         {},
}

var documentDecoder = hydrate.NewDecoder[Document](
	hydrate.WithPreHook[Document](expandShorthand),
	hydrate.WithDisallowUnknownFields[Document](),
	hydrate.WithPostHook[Document](func(_ hydrate.Context, doc *Document) error {
		return doc.Validate()
	}),
)

// Parse decodes one YAML document. source names the document in errors.
// An empty document is valid and configures nothing.
func Parse(data []byte, source string) (Document, error) {
	return parse(data, hydrate.Context{Source: source})
}

// Load reads and parses the YAML document at path.
func Load(path string) (Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Document{}, fmt.Errorf("declare: read %s: %w", path, err)
	}
	return Parse(data, path)
}

// LoadLayer reads the document at path as the given layer.
func LoadLayer(path string, layer layering.Layer) (layering.Entry[Document], error) {
	if err := layer.Validate(); err != nil {
		return layering.Entry[Document]{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return layering.Entry[Document]{}, fmt.Errorf("declare: read %s: %w", path, err)
	}
	doc, err := parse(data, hydrate.Context{Source: path, Layer: layer.Identifier()})
	if err != nil {
		return layering.Entry[Document]{}, err
	}
	return layering.Entry[Document]{Layer: layer, Value: doc}, nil
}

// Merge combines layered documents, stronger layers winning attribute by
// attribute. Field and group lists are merged by name.
func Merge(entries ...layering.Entry[Document]) Document {
	doc, _ := layering.Merge(entries...)
	return doc
}

func parse(data []byte, ctx hydrate.Context) (Document, error) {
	var payload map[string]any
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	if err := decoder.Decode(&payload); err != nil && !errors.Is(err, io.EOF) {
		return Document{}, fmt.Errorf("declare: parse %s: %w", ctx.Source, err)
	}
	if payload == nil {
		return Document{}, nil
	}
	doc, err := documentDecoder.Decode(ctx, payload)
	if err != nil {
		return Document{}, fmt.Errorf("declare: %w", err)
	}
	return doc, nil
}

// expandShorthand rewrites scope level section attributes and section
// names into the canonical sections mapping, and plain field names into
// field entries.
func expandShorthand(_ hydrate.Context, payload map[string]any) (map[string]any, error) {
	if value, ok := payload["excluded_models"].(string); ok {
		payload["excluded_models"] = []any{value}
	}
	if raw, ok := payload["global"]; ok && raw != nil {
		scope, ok := raw.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("global must be a mapping")
		}
		expanded, err := expandScope(scope)
		if err != nil {
			return nil, fmt.Errorf("global: %w", err)
		}
		payload["global"] = expanded
	}
	if raw, ok := payload["models"]; ok && raw != nil {
		models, ok := raw.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("models must be a mapping")
		}
		for name, value := range models {
			if value == nil {
				models[name] = map[string]any{}
				continue
			}
			scope, ok := value.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("models.%s must be a mapping", name)
			}
			expanded, err := expandScope(scope)
			if err != nil {
				return nil, fmt.Errorf("models.%s: %w", name, err)
			}
			models[name] = expanded
		}
	}
	return payload, nil
}

func expandScope(scope map[string]any) (map[string]any, error) {
	sections := map[string]any{}
	if raw, ok := scope["sections"]; ok && raw != nil {
		declared, ok := raw.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("sections must be a mapping")
		}
		sections = declared
	}
	out := map[string]any{}
	for key, value := range scope {
		switch {
		case key == "sections":
		case key == "navigation_label":
			sectionOf(sections, string(admin.SectionNavigation))["label"] = value
		case isSectionAttribute(key):
			sectionOf(sections, string(admin.SectionBase))[key] = value
		case admin.SectionKind(key).Valid():
			body, ok := value.(map[string]any)
			if !ok && value != nil {
				return nil, fmt.Errorf("%s must be a mapping", key)
			}
			target := sectionOf(sections, key)
			for attr, attrValue := range body {
				target[attr] = attrValue
			}
		default:
			out[key] = value
		}
	}
	for kind, raw := range sections {
		section, ok := raw.(map[string]any)
		if !ok {
			if raw == nil {
				continue
			}
			return nil, fmt.Errorf("sections.%s must be a mapping", kind)
		}
		if fields, ok := section["fields"].([]any); ok {
			section["fields"] = expandFieldNames(fields)
		}
	}
	out["sections"] = sections
	return out, nil
}

func isSectionAttribute(key string) bool {
	_, ok := sectionAttributes[key]
	return ok
}

func sectionOf(sections map[string]any, kind string) map[string]any {
	if section, ok := sections[kind].(map[string]any); ok {
		return section
	}
	section := map[string]any{}
	sections[kind] = section
	return section
}

func expandFieldNames(fields []any) []any {
	out := make([]any, len(fields))
	for i, field := range fields {
		if name, ok := field.(string); ok {
			out[i] = map[string]any{"name": name}
			continue
		}
		out[i] = field
	}
	return out
}
