// Package entschema introspects entgo.io/ent schemas.
//
// Fields come from mixins first, then the schema's own fields, then edges
// that are not bound to a foreign key field. A unique edge becomes a
// belongs_to association; a non-unique edge a has_many association. A
// foreign key field bound by an edge (edge.To(...).Field("division_id"))
// is reported as the belongs_to association itself.
//
// ent validators are opaque functions, so fields that must be filled in
// even though the column is optional carry the Required annotation:
//
//	field.String("nickname").Optional().Annotations(entschema.Required())
package entschema

import (
	"fmt"
	"math"
	"reflect"

	"entgo.io/ent"
	"entgo.io/ent/schema"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"

	"github.com/goliatone/go-admin/introspect"
)

// AnnotationName identifies the admin annotation on ent fields and edges.
const AnnotationName = "Admin"

// Annotation carries admin metadata for one ent field or edge.
type Annotation struct {
	// Required marks an optional column as required by validation.
	Required bool `json:"required,omitempty"`
	// Type overrides the derived type tag.
	Type introspect.TypeTag `json:"type,omitempty"`
}

// Name implements schema.Annotation.
func (Annotation) Name() string {
	return AnnotationName
}

// Required returns an annotation marking the field as required.
func Required() Annotation {
	return Annotation{Required: true}
}

// Type returns an annotation overriding the type tag.
func Type(tag introspect.TypeTag) Annotation {
	return Annotation{Type: tag}
}

var _ schema.Annotation = Annotation{}

// New builds a catalog from ent schemas. Model names are the Go type names
// of the schemas, in argument order.
func New(schemas ...ent.Interface) (*introspect.Catalog, error) {
	catalog := introspect.NewCatalog()
	for _, s := range schemas {
		m, err := Model(s)
		if err != nil {
			return nil, err
		}
		catalog.Add(m)
	}
	return catalog, nil
}

// Model converts one ent schema.
func Model(s ent.Interface) (introspect.Model, error) {
	name := schemaName(s)
	out := introspect.Model{Name: name}

	var fields []ent.Field
	for _, mx := range s.Mixin() {
		fields = append(fields, mx.Fields()...)
	}
	fields = append(fields, s.Fields()...)

	var edges []*edge.Descriptor
	for _, mx := range s.Mixin() {
		for _, e := range mx.Edges() {
			edges = append(edges, e.Descriptor())
		}
	}
	for _, e := range s.Edges() {
		edges = append(edges, e.Descriptor())
	}
	bound := map[string]*edge.Descriptor{}
	for _, e := range edges {
		if e.Field != "" {
			bound[e.Field] = e
		}
	}

	for _, f := range fields {
		desc := f.Descriptor()
		if desc.Err != nil {
			return introspect.Model{}, fmt.Errorf("entschema: %s.%s: %w", name, desc.Name, desc.Err)
		}
		converted := convertField(desc)
		if e, ok := bound[desc.Name]; ok {
			converted.Type = introspect.TypeBelongsTo
			converted.Association = &introspect.Association{Kind: introspect.BelongsTo, Target: e.Type}
		}
		annotation := lookupAnnotation(desc.Annotations)
		if annotation.Type != "" {
			converted.Type = annotation.Type
		}
		out.Fields = append(out.Fields, converted)
		if annotation.Required {
			out.Validations = append(out.Validations, introspect.Validation{Field: desc.Name, Kind: introspect.ValidatePresence})
		}
	}

	for _, e := range edges {
		if e.Field != "" {
			continue
		}
		converted := convertEdge(e)
		annotation := lookupAnnotation(e.Annotations)
		if annotation.Type != "" {
			converted.Type = annotation.Type
		}
		out.Fields = append(out.Fields, converted)
		if annotation.Required {
			out.Validations = append(out.Validations, introspect.Validation{Field: e.Name, Kind: introspect.ValidatePresence})
		}
	}
	return out, nil
}

func schemaName(s ent.Interface) string {
	t := reflect.TypeOf(s)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t.Name()
}

func convertField(desc *field.Descriptor) introspect.Field {
	out := introspect.Field{
		Name:     desc.Name,
		Nullable: desc.Optional || desc.Nillable,
	}
	if desc.Info == nil {
		out.Type = introspect.TypeTag("other")
		return out
	}
	switch t := desc.Info.Type; {
	case t == field.TypeString:
		out.Type = introspect.TypeString
		switch {
		case desc.Size >= math.MaxInt32:
			out.Type = introspect.TypeText
		case desc.Size > 0:
			out.MaxLength = desc.Size
		}
	case t == field.TypeBool:
		out.Type = introspect.TypeBoolean
	case t == field.TypeTime:
		out.Type = introspect.TypeDateTime
	case t == field.TypeEnum:
		out.Type = introspect.TypeEnum
	case t.Integer():
		out.Type = introspect.TypeInteger
	case t == field.TypeFloat32 || t == field.TypeFloat64:
		out.Type = introspect.TypeFloat
	case t == field.TypeJSON:
		out.Type = introspect.TypeTag("json")
	case t == field.TypeUUID:
		out.Type = introspect.TypeTag("uuid")
	case t == field.TypeBytes:
		out.Type = introspect.TypeTag("bytes")
	default:
		out.Type = introspect.TypeTag("other")
	}
	return out
}

func convertEdge(e *edge.Descriptor) introspect.Field {
	if e.Unique {
		return introspect.Field{
			Name:        e.Name,
			Type:        introspect.TypeBelongsTo,
			Nullable:    !e.Required,
			Association: &introspect.Association{Kind: introspect.BelongsTo, Target: e.Type},
		}
	}
	return introspect.Field{
		Name:        e.Name,
		Type:        introspect.TypeHasMany,
		Nullable:    true,
		Association: &introspect.Association{Kind: introspect.HasMany, Target: e.Type},
	}
}

func lookupAnnotation(annotations []schema.Annotation) Annotation {
	var out Annotation
	for _, a := range annotations {
		switch v := a.(type) {
		case Annotation:
			out = mergeAnnotation(out, v)
		case *Annotation:
			if v != nil {
				out = mergeAnnotation(out, *v)
			}
		}
	}
	return out
}

func mergeAnnotation(base, next Annotation) Annotation {
	if next.Required {
		base.Required = true
	}
	if next.Type != "" {
		base.Type = next.Type
	}
	return base
}
