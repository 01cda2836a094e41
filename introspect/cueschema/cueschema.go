// Package cueschema introspects CUE definitions. Every top level definition
// (#Team) becomes a model named without the leading '#'; its regular fields
// become model fields in declaration order.
//
// Optional fields (name?: T) are nullable. A reference to another
// definition is a belongs_to association, a list of references a has_many
// association. A string constrained with !="" carries a presence
// validation. The @admin attribute adds what CUE types cannot express:
//
//	#Team: {
//		name:      string & !="" @admin(max_length=50)
//		notes?:    string @admin(type=text)
//		nickname?: string @admin(required)
//		division:  #Division
//		fans?:     [...#Fan]
//	}
package cueschema

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"

	"github.com/goliatone/go-admin/introspect"
)

// AttributeName is the CUE attribute read for admin metadata.
const AttributeName = "admin"

// Parse compiles CUE source and converts its definitions.
func Parse(src []byte, filename string) (*introspect.Catalog, error) {
	ctx := cuecontext.New()
	val := ctx.CompileBytes(src, cue.Filename(filename))
	if err := val.Err(); err != nil {
		return nil, fmt.Errorf("cueschema: compile %s: %w", filename, err)
	}
	return FromValue(val)
}

// LoadDir loads the CUE package in dir.
func LoadDir(dir string) (*introspect.Catalog, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cueschema: %w", err)
	}
	insts := load.Instances([]string{"."}, &load.Config{Dir: abs})
	if len(insts) == 0 {
		return nil, fmt.Errorf("cueschema: no CUE instances in %s", dir)
	}
	if err := insts[0].Err; err != nil {
		return nil, fmt.Errorf("cueschema: load %s: %w", dir, err)
	}
	val := cuecontext.New().BuildInstance(insts[0])
	if err := val.Err(); err != nil {
		return nil, fmt.Errorf("cueschema: build %s: %w", dir, err)
	}
	return FromValue(val)
}

// FromValue converts the definitions of a built CUE value.
func FromValue(val cue.Value) (*introspect.Catalog, error) {
	iter, err := val.Fields(cue.Definitions(true))
	if err != nil {
		return nil, fmt.Errorf("cueschema: %w", err)
	}
	catalog := introspect.NewCatalog()
	for iter.Next() {
		label := iter.Selector().String()
		if !strings.HasPrefix(label, "#") {
			continue
		}
		m, err := convertModel(strings.TrimPrefix(label, "#"), iter.Value())
		if err != nil {
			return nil, err
		}
		catalog.Add(m)
	}
	return catalog, nil
}

func convertModel(name string, def cue.Value) (introspect.Model, error) {
	out := introspect.Model{Name: name}
	iter, err := def.Fields(cue.Optional(true))
	if err != nil {
		return introspect.Model{}, fmt.Errorf("cueschema: %s: %w", name, err)
	}
	for iter.Next() {
		label := strings.TrimSuffix(iter.Selector().String(), "?")
		if strings.HasPrefix(label, "_") {
			continue
		}
		val := iter.Value()
		f, attr, err := convertField(label, val, iter.IsOptional())
		if err != nil {
			return introspect.Model{}, fmt.Errorf("cueschema: %s.%s: %w", name, label, err)
		}
		out.Fields = append(out.Fields, f)
		if attr.required || (f.Type == introspect.TypeString && hasNonEmpty(val)) {
			out.Validations = append(out.Validations, introspect.Validation{Field: label, Kind: introspect.ValidatePresence})
		}
	}
	return out, nil
}

type fieldAttribute struct {
	required  bool
	typ       introspect.TypeTag
	maxLength int
}

func readAttribute(val cue.Value) (fieldAttribute, error) {
	var out fieldAttribute
	attr := val.Attribute(AttributeName)
	if attr.Err() != nil {
		// No @admin attribute on this field.
		return out, nil
	}
	required, err := attr.Flag(0, "required")
	if err != nil {
		return out, err
	}
	out.required = required
	if typ, ok, err := attr.Lookup(0, "type"); err != nil {
		return out, err
	} else if ok {
		out.typ = introspect.ParseTypeTag(typ)
	}
	if raw, ok, err := attr.Lookup(0, "max_length"); err != nil {
		return out, err
	} else if ok {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return out, fmt.Errorf("invalid max_length %q", raw)
		}
		out.maxLength = n
	}
	return out, nil
}

func convertField(name string, val cue.Value, optional bool) (introspect.Field, fieldAttribute, error) {
	attr, err := readAttribute(val)
	if err != nil {
		return introspect.Field{}, attr, err
	}
	out := introspect.Field{Name: name, Nullable: optional, MaxLength: attr.maxLength}

	switch {
	case isTime(val):
		out.Type = introspect.TypeDateTime
	case val.IncompleteKind() == cue.ListKind:
		out.Type = introspect.TypeTag("list")
		if target := definitionRef(val.LookupPath(cue.MakePath(cue.AnyIndex))); target != "" {
			out.Type = introspect.TypeHasMany
			out.Association = &introspect.Association{Kind: introspect.HasMany, Target: target}
		}
	case definitionRef(val) != "":
		out.Type = introspect.TypeBelongsTo
		out.Association = &introspect.Association{Kind: introspect.BelongsTo, Target: definitionRef(val)}
	case isEnum(val):
		out.Type = introspect.TypeEnum
	default:
		out.Type = kindTag(val.IncompleteKind())
	}
	if attr.typ != "" {
		out.Type = attr.typ
	}
	return out, attr, nil
}

func kindTag(kind cue.Kind) introspect.TypeTag {
	switch kind {
	case cue.StringKind:
		return introspect.TypeString
	case cue.IntKind:
		return introspect.TypeInteger
	case cue.FloatKind, cue.NumberKind:
		return introspect.TypeFloat
	case cue.BoolKind:
		return introspect.TypeBoolean
	case cue.StructKind:
		return introspect.TypeTag("struct")
	default:
		return introspect.TypeTag("other")
	}
}

// definitionRef returns the definition name val refers to, without '#'.
func definitionRef(val cue.Value) string {
	if !val.Exists() {
		return ""
	}
	_, path := val.ReferencePath()
	if selectors := path.Selectors(); len(selectors) > 0 {
		last := selectors[len(selectors)-1].String()
		if strings.HasPrefix(last, "#") {
			return strings.TrimPrefix(last, "#")
		}
	}
	op, args := val.Expr()
	if op == cue.AndOp {
		for _, arg := range args {
			if ref := definitionRef(arg); ref != "" {
				return ref
			}
		}
	}
	return ""
}

func isTime(val cue.Value) bool {
	op, args := val.Expr()
	switch op {
	case cue.SelectorOp:
		if len(args) >= 2 {
			if s, err := args[1].String(); err == nil && s == "Time" {
				return true
			}
		}
	case cue.AndOp:
		for _, arg := range args {
			if isTime(arg) {
				return true
			}
		}
	}
	return false
}

func isEnum(val cue.Value) bool {
	op, args := val.Expr()
	if op != cue.OrOp || len(args) < 2 {
		return false
	}
	for _, arg := range args {
		if _, err := arg.String(); err != nil {
			return false
		}
	}
	return true
}

func hasNonEmpty(val cue.Value) bool {
	op, args := val.Expr()
	if op == cue.AndOp {
		for _, arg := range args {
			if hasNonEmpty(arg) {
				return true
			}
		}
	}
	if op == cue.NotEqualOp && len(args) >= 1 {
		if s, err := args[len(args)-1].String(); err == nil && s == "" {
			return true
		}
	}
	return false
}
