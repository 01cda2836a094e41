package admin

import (
	"errors"

	"github.com/goliatone/go-admin/introspect"
)

// buildContext collects validation errors while a configuration block runs.
type buildContext struct {
	scope     Scope
	evaluator Evaluator
	fields    map[string]introspect.Field
	errs      []error
}

func (r *Registry) newBuildContext(scope Scope, fields map[string]introspect.Field) *buildContext {
	return &buildContext{scope: scope, evaluator: r.evaluator, fields: fields}
}

func (c *buildContext) fail(err error) {
	c.errs = append(c.errs, err)
}

func (c *buildContext) err() error {
	return errors.Join(c.errs...)
}

func (c *buildContext) knownField(section SectionKind, name string) bool {
	if c.scope.Kind != ScopeModel {
		c.fail(ErrGlobalField)
		return false
	}
	if _, ok := c.fields[name]; !ok {
		c.fail(&UnknownFieldError{Model: c.scope.Model, Section: section, Field: name})
		return false
	}
	return true
}

func compileRule[T any](c *buildContext, attribute, src string) Rule[T] {
	rule, err := Expression[T](c.evaluator, src)
	if err != nil {
		var evalErr *EvaluationError
		if errors.As(err, &evalErr) {
			evalErr.Scope = c.scope.Name()
			evalErr.Attribute = attribute
		}
		c.fail(err)
		return Rule[T]{}
	}
	return rule
}

// ModelBuilder configures one model. Methods without a section apply to
// the base section that every view inherits.
type ModelBuilder struct {
	ctx *buildContext
	cfg *scopeConfig
	*SectionBuilder
}

func newModelBuilder(ctx *buildContext, cfg *scopeConfig) *ModelBuilder {
	return &ModelBuilder{
		ctx:            ctx,
		cfg:            cfg,
		SectionBuilder: newSectionBuilder(ctx, SectionBase, cfg.section(SectionBase)),
	}
}

// LabelForNavigation sets the navigation label.
func (b *ModelBuilder) LabelForNavigation(label string) *ModelBuilder {
	b.section(SectionNavigation).Label(label)
	return b
}

// HideInNavigation removes the model from the navigation bar only.
func (b *ModelBuilder) HideInNavigation() *ModelBuilder {
	b.section(SectionNavigation).Hide()
	return b
}

// Section runs fn against the named section.
func (b *ModelBuilder) Section(kind SectionKind, fn func(*SectionBuilder)) *ModelBuilder {
	if !kind.Valid() {
		b.ctx.fail(errUnknownSection(kind))
		return b
	}
	if fn != nil {
		fn(b.section(kind))
	}
	return b
}

// Navigation configures how the model appears in the navigation tree.
func (b *ModelBuilder) Navigation(fn func(*SectionBuilder)) *ModelBuilder {
	return b.Section(SectionNavigation, fn)
}

// List configures the index table.
func (b *ModelBuilder) List(fn func(*SectionBuilder)) *ModelBuilder {
	return b.Section(SectionList, fn)
}

// ShowSection configures the read-only detail view.
func (b *ModelBuilder) ShowSection(fn func(*SectionBuilder)) *ModelBuilder {
	return b.Section(SectionShow, fn)
}

// Export configures the fields written by exports.
func (b *ModelBuilder) Export(fn func(*SectionBuilder)) *ModelBuilder {
	return b.Section(SectionExport, fn)
}

// Edit configures the form shared by create and update.
func (b *ModelBuilder) Edit(fn func(*SectionBuilder)) *ModelBuilder {
	return b.Section(SectionEdit, fn)
}

// Create configures the new-record form; it inherits from Edit.
func (b *ModelBuilder) Create(fn func(*SectionBuilder)) *ModelBuilder {
	return b.Section(SectionCreate, fn)
}

// Update configures the existing-record form; it inherits from Edit.
func (b *ModelBuilder) Update(fn func(*SectionBuilder)) *ModelBuilder {
	return b.Section(SectionUpdate, fn)
}

func (b *ModelBuilder) section(kind SectionKind) *SectionBuilder {
	return newSectionBuilder(b.ctx, kind, b.cfg.section(kind))
}

// GlobalBuilder configures rules shared by every model. Individual fields
// cannot be declared in global scope.
type GlobalBuilder struct {
	ctx *buildContext
	cfg *scopeConfig
}

func newGlobalBuilder(ctx *buildContext, cfg *scopeConfig) *GlobalBuilder {
	return &GlobalBuilder{ctx: ctx, cfg: cfg}
}

// FieldsOfType registers a base type rule for every model.
func (b *GlobalBuilder) FieldsOfType(tag introspect.TypeTag, fn func(*FieldBuilder)) *GlobalBuilder {
	b.section(SectionBase).FieldsOfType(tag, fn)
	return b
}

// Group configures a base group for every model.
func (b *GlobalBuilder) Group(name string, fn func(*GroupBuilder)) *GlobalBuilder {
	b.section(SectionBase).Group(name, fn)
	return b
}

// Section runs fn against the named section of every model.
func (b *GlobalBuilder) Section(kind SectionKind, fn func(*SectionBuilder)) *GlobalBuilder {
	if !kind.Valid() {
		b.ctx.fail(errUnknownSection(kind))
		return b
	}
	if fn != nil {
		fn(b.section(kind))
	}
	return b
}

// Navigation configures navigation defaults for every model.
func (b *GlobalBuilder) Navigation(fn func(*SectionBuilder)) *GlobalBuilder {
	return b.Section(SectionNavigation, fn)
}

// List configures the index table of every model.
func (b *GlobalBuilder) List(fn func(*SectionBuilder)) *GlobalBuilder {
	return b.Section(SectionList, fn)
}

// ShowSection configures the detail view of every model.
func (b *GlobalBuilder) ShowSection(fn func(*SectionBuilder)) *GlobalBuilder {
	return b.Section(SectionShow, fn)
}

// Export configures exports of every model.
func (b *GlobalBuilder) Export(fn func(*SectionBuilder)) *GlobalBuilder {
	return b.Section(SectionExport, fn)
}

// Edit configures the shared form of every model.
func (b *GlobalBuilder) Edit(fn func(*SectionBuilder)) *GlobalBuilder {
	return b.Section(SectionEdit, fn)
}

// Create configures the new-record form of every model.
func (b *GlobalBuilder) Create(fn func(*SectionBuilder)) *GlobalBuilder {
	return b.Section(SectionCreate, fn)
}

// Update configures the existing-record form of every model.
func (b *GlobalBuilder) Update(fn func(*SectionBuilder)) *GlobalBuilder {
	return b.Section(SectionUpdate, fn)
}

func (b *GlobalBuilder) section(kind SectionKind) *SectionBuilder {
	return newSectionBuilder(b.ctx, kind, b.cfg.section(kind))
}

// SectionBuilder configures one section of one scope.
type SectionBuilder struct {
	ctx  *buildContext
	kind SectionKind
	cfg  *sectionConfig
}

func newSectionBuilder(ctx *buildContext, kind SectionKind, cfg *sectionConfig) *SectionBuilder {
	return &SectionBuilder{ctx: ctx, kind: kind, cfg: cfg}
}

// Kind returns the section being configured.
func (b *SectionBuilder) Kind() SectionKind {
	return b.kind
}

func (b *SectionBuilder) Label(label string) *SectionBuilder {
	b.cfg.label = Literal(label)
	return b
}

// LabelFunc derives the label from the label resolved so far.
func (b *SectionBuilder) LabelFunc(fn func(current string) string) *SectionBuilder {
	b.cfg.label = Compute(fn)
	return b
}

func (b *SectionBuilder) LabelExpr(src string) *SectionBuilder {
	b.cfg.label = compileRule[string](b.ctx, "label", src)
	return b
}

func (b *SectionBuilder) Hide() *SectionBuilder {
	b.cfg.visible = Literal(false)
	return b
}

func (b *SectionBuilder) Show() *SectionBuilder {
	b.cfg.visible = Literal(true)
	return b
}

// ShowIf decides visibility from the visibility resolved so far.
func (b *SectionBuilder) ShowIf(fn func(current bool) bool) *SectionBuilder {
	b.cfg.visible = Compute(fn)
	return b
}

func (b *SectionBuilder) VisibleExpr(src string) *SectionBuilder {
	b.cfg.visible = compileRule[bool](b.ctx, "visible", src)
	return b
}

// Field declares name in the section, switching it to an explicit field
// list in declaration order. Declaring the same field again only adds rules.
func (b *SectionBuilder) Field(name string, fns ...func(*FieldBuilder)) *SectionBuilder {
	if !b.ctx.knownField(b.kind, name) {
		return b
	}
	rules := b.cfg.declareField(name)
	field := &FieldBuilder{ctx: b.ctx, rules: rules}
	for _, fn := range fns {
		if fn != nil {
			fn(field)
		}
	}
	return b
}

// FieldsOfType registers a bulk rule for every field with the given type tag.
func (b *SectionBuilder) FieldsOfType(tag introspect.TypeTag, fn func(*FieldBuilder)) *SectionBuilder {
	rules := b.cfg.typeSlot(tag)
	if fn != nil {
		fn(&FieldBuilder{ctx: b.ctx, rules: rules})
	}
	return b
}

// Group declares or updates a named field group.
func (b *SectionBuilder) Group(name string, fn func(*GroupBuilder)) *SectionBuilder {
	if name == "" {
		name = DefaultGroup
	}
	group := &GroupBuilder{section: b, group: b.cfg.group(name)}
	if fn != nil {
		fn(group)
	}
	return b
}

// GroupBuilder configures one field group.
type GroupBuilder struct {
	section *SectionBuilder
	group   *groupConfig
}

func (b *GroupBuilder) Label(label string) *GroupBuilder {
	b.group.label = Literal(label)
	return b
}

func (b *GroupBuilder) LabelFunc(fn func(current string) string) *GroupBuilder {
	b.group.label = Compute(fn)
	return b
}

func (b *GroupBuilder) LabelExpr(src string) *GroupBuilder {
	b.group.label = compileRule[string](b.section.ctx, "label", src)
	return b
}

// Hide hides the group and every field in it.
func (b *GroupBuilder) Hide() *GroupBuilder {
	b.group.visible = Literal(false)
	return b
}

func (b *GroupBuilder) Show() *GroupBuilder {
	b.group.visible = Literal(true)
	return b
}

func (b *GroupBuilder) ShowIf(fn func(current bool) bool) *GroupBuilder {
	b.group.visible = Compute(fn)
	return b
}

func (b *GroupBuilder) VisibleExpr(src string) *GroupBuilder {
	b.group.visible = compileRule[bool](b.section.ctx, "visible", src)
	return b
}

// Field declares name in the section and moves it into this group.
func (b *GroupBuilder) Field(name string, fns ...func(*FieldBuilder)) *GroupBuilder {
	if !b.section.ctx.knownField(b.section.kind, name) {
		return b
	}
	b.section.Field(name, fns...)
	b.section.cfg.assign(b.group, name)
	return b
}

// FieldBuilder configures the rules of one field or one type tag.
type FieldBuilder struct {
	ctx   *buildContext
	rules *fieldRules
}

func (b *FieldBuilder) Label(label string) *FieldBuilder {
	b.rules.label = Literal(label)
	return b
}

// LabelFunc derives the label from the label resolved by weaker layers.
func (b *FieldBuilder) LabelFunc(fn func(current string) string) *FieldBuilder {
	b.rules.label = Compute(fn)
	return b
}

func (b *FieldBuilder) LabelExpr(src string) *FieldBuilder {
	b.rules.label = compileRule[string](b.ctx, "label", src)
	return b
}

func (b *FieldBuilder) Help(help string) *FieldBuilder {
	b.rules.help = Literal(help)
	return b
}

// HelpFunc derives the help text from the help resolved so far, which
// starts as the synthesized "Required"/"Optional" text.
func (b *FieldBuilder) HelpFunc(fn func(current string) string) *FieldBuilder {
	b.rules.help = Compute(fn)
	return b
}

func (b *FieldBuilder) HelpExpr(src string) *FieldBuilder {
	b.rules.help = compileRule[string](b.ctx, "help", src)
	return b
}

func (b *FieldBuilder) Hide() *FieldBuilder {
	b.rules.visible = Literal(false)
	return b
}

func (b *FieldBuilder) Show() *FieldBuilder {
	b.rules.visible = Literal(true)
	return b
}

func (b *FieldBuilder) ShowIf(fn func(current bool) bool) *FieldBuilder {
	b.rules.visible = Compute(fn)
	return b
}

func (b *FieldBuilder) VisibleExpr(src string) *FieldBuilder {
	b.rules.visible = compileRule[bool](b.ctx, "visible", src)
	return b
}

// Required overrides the inferred required flag.
func (b *FieldBuilder) Required(required bool) *FieldBuilder {
	b.rules.required = Literal(required)
	return b
}

// Optional is the inverse of Required.
func (b *FieldBuilder) Optional(optional bool) *FieldBuilder {
	b.rules.required = Literal(!optional)
	return b
}

func (b *FieldBuilder) RequiredFunc(fn func(current bool) bool) *FieldBuilder {
	b.rules.required = Compute(fn)
	return b
}

func (b *FieldBuilder) RequiredExpr(src string) *FieldBuilder {
	b.rules.required = compileRule[bool](b.ctx, "required", src)
	return b
}
