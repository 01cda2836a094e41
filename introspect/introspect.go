// Package introspect describes the read-only schema and validation metadata
// the admin engine consumes from the persistence layer.
//
// A Source answers three questions: which models exist, which fields a model
// has (in schema order, with a type tag and nullability), and whether a
// declared validation makes a field required. Adapters for entgo.io/ent
// schemas and CUE definitions live in the entschema and cueschema
// subpackages; Catalog is the static in-memory implementation.
package introspect

import (
	"errors"
	"fmt"
)

// ErrUnknownModel indicates the source has no model with the requested name.
var ErrUnknownModel = errors.New("introspect: unknown model")

// TypeTag is the primitive type bucket a field belongs to. Bulk rules
// (fields_of_type) match on it.
type TypeTag string

const (
	TypeString    TypeTag = "string"
	TypeText      TypeTag = "text"
	TypeInteger   TypeTag = "integer"
	TypeFloat     TypeTag = "float"
	TypeDecimal   TypeTag = "decimal"
	TypeBoolean   TypeTag = "boolean"
	TypeDate      TypeTag = "date"
	TypeDateTime  TypeTag = "datetime"
	TypeEnum      TypeTag = "enum"
	TypeBelongsTo TypeTag = "belongs_to_association"
	TypeHasMany   TypeTag = "has_many_association"
)

// ParseTypeTag maps loose spellings onto a TypeTag. Unknown values are
// returned as-is so custom tags keep working.
func ParseTypeTag(value string) TypeTag {
	switch value {
	case "string", "varchar":
		return TypeString
	case "text":
		return TypeText
	case "int", "integer":
		return TypeInteger
	case "float", "double":
		return TypeFloat
	case "decimal", "numeric":
		return TypeDecimal
	case "bool", "boolean":
		return TypeBoolean
	case "date":
		return TypeDate
	case "datetime", "time", "timestamp":
		return TypeDateTime
	case "enum":
		return TypeEnum
	case "belongs_to", "belongs_to_association":
		return TypeBelongsTo
	case "has_many", "has_many_association":
		return TypeHasMany
	default:
		return TypeTag(value)
	}
}

// AssociationKind distinguishes the owning and collection sides of a relation.
type AssociationKind string

const (
	BelongsTo AssociationKind = "belongs_to"
	HasMany   AssociationKind = "has_many"
)

// Association links a field to another model.
type Association struct {
	Kind   AssociationKind `json:"kind"`
	Target string          `json:"target"`
}

// Field is one introspected column or association.
type Field struct {
	Name        string       `json:"name"`
	Type        TypeTag      `json:"type"`
	Nullable    bool         `json:"nullable"`
	MaxLength   int          `json:"max_length,omitempty"`
	Association *Association `json:"association,omitempty"`
}

// ValidationKind names a declared model validation.
type ValidationKind string

const (
	ValidatePresence     ValidationKind = "presence"
	ValidateNumericality ValidationKind = "numericality"
	ValidateLength       ValidationKind = "length"
)

// Validation is a validation rule declared on a model field.
type Validation struct {
	Field    string         `json:"field"`
	Kind     ValidationKind `json:"kind"`
	AllowNil bool           `json:"allow_nil,omitempty"`
}

// ImpliesRequired reports whether the validation rejects empty values.
func (v Validation) ImpliesRequired() bool {
	switch v.Kind {
	case ValidatePresence:
		return true
	case ValidateNumericality:
		return !v.AllowNil
	default:
		return false
	}
}

// Model is the schema of one persistent type.
type Model struct {
	Name        string       `json:"name"`
	Fields      []Field      `json:"fields"`
	Validations []Validation `json:"validations,omitempty"`
}

// Field returns the named field.
func (m Model) Field(name string) (Field, bool) {
	for _, f := range m.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Source is the read-only view of the persistence schema.
type Source interface {
	// Models returns model names in registration order.
	Models() []string
	// Fields returns the model's fields in schema order.
	Fields(model string) ([]Field, error)
	// RequiredByValidation reports whether a declared validation on the
	// field requires a value.
	RequiredByValidation(model, field string) bool
}

// Catalog is a static, ordered Source.
type Catalog struct {
	order  []string
	models map[string]Model
}

// NewCatalog builds a catalog. Later models with a duplicate name replace the
// earlier definition but keep its position.
func NewCatalog(models ...Model) *Catalog {
	c := &Catalog{models: make(map[string]Model, len(models))}
	for _, m := range models {
		c.Add(m)
	}
	return c
}

// Add registers or replaces a model definition.
func (c *Catalog) Add(m Model) {
	if _, exists := c.models[m.Name]; !exists {
		c.order = append(c.order, m.Name)
	}
	c.models[m.Name] = cloneModel(m)
}

// Model returns the named model definition.
func (c *Catalog) Model(name string) (Model, bool) {
	m, ok := c.models[name]
	if !ok {
		return Model{}, false
	}
	return cloneModel(m), true
}

func (c *Catalog) Models() []string {
	return append([]string(nil), c.order...)
}

func (c *Catalog) Fields(model string) ([]Field, error) {
	m, ok := c.models[model]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownModel, model)
	}
	return cloneFields(m.Fields), nil
}

func (c *Catalog) RequiredByValidation(model, field string) bool {
	m, ok := c.models[model]
	if !ok {
		return false
	}
	for _, v := range m.Validations {
		if v.Field == field && v.ImpliesRequired() {
			return true
		}
	}
	return false
}

// InferRequired applies the default requiredness rule: a non-nullable field
// is required, and a nullable one is required only when a validation says so.
func InferRequired(src Source, model string, f Field) bool {
	if !f.Nullable {
		return true
	}
	return src.RequiredByValidation(model, f.Name)
}

func cloneModel(m Model) Model {
	out := m
	out.Fields = cloneFields(m.Fields)
	if len(m.Validations) > 0 {
		out.Validations = append([]Validation(nil), m.Validations...)
	}
	return out
}

func cloneFields(fields []Field) []Field {
	if fields == nil {
		return nil
	}
	out := make([]Field, len(fields))
	for i, f := range fields {
		out[i] = f
		if f.Association != nil {
			assoc := *f.Association
			out[i].Association = &assoc
		}
	}
	return out
}
