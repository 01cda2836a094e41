package admin

import (
	"fmt"
	"slices"

	"github.com/goliatone/go-admin/introspect"
)

// Properties exposes the introspected facts of a resolved field.
type Properties struct {
	Nullable    bool                    `json:"nullable"`
	MaxLength   int                     `json:"max_length,omitempty"`
	Association *introspect.Association `json:"association,omitempty"`
}

// ResolvedField is the final configuration of one field in one section.
type ResolvedField struct {
	Name       string             `json:"name"`
	Type       introspect.TypeTag `json:"type"`
	Label      string             `json:"label"`
	Help       string             `json:"help"`
	Visible    bool               `json:"visible"`
	Required   bool               `json:"required"`
	Group      string             `json:"group"`
	Properties Properties         `json:"properties"`
}

// ResolvedGroup is a field group with its member field names in display order.
type ResolvedGroup struct {
	Name    string   `json:"name"`
	Label   string   `json:"label"`
	Visible bool     `json:"visible"`
	Fields  []string `json:"fields"`
}

// ResolvedSection is the view model of one model section.
type ResolvedSection struct {
	Model    ModelID         `json:"model"`
	Section  SectionKind     `json:"section"`
	Label    string          `json:"label"`
	Visible  bool            `json:"visible"`
	Explicit bool            `json:"explicit"`
	Snapshot SnapshotInfo    `json:"snapshot"`
	Fields   []ResolvedField `json:"fields"`
	Groups   []ResolvedGroup `json:"groups"`
}

// Field returns the named resolved field.
func (s ResolvedSection) Field(name string) (ResolvedField, bool) {
	for _, field := range s.Fields {
		if field.Name == name {
			return field, true
		}
	}
	return ResolvedField{}, false
}

// VisibleFields returns the fields a renderer should display, in order.
func (s ResolvedSection) VisibleFields() []ResolvedField {
	out := make([]ResolvedField, 0, len(s.Fields))
	for _, field := range s.Fields {
		if field.Visible {
			out = append(out, field)
		}
	}
	return out
}

// SectionView resolves one model section against a pinned snapshot. All
// results of a view are consistent with each other even when the registry
// changes concurrently.
type SectionView struct {
	registry *Registry
	snap     *snapshot
	model    ModelID
	section  SectionKind
}

func (v SectionView) Model() ModelID {
	return v.model
}

func (v SectionView) Section() SectionKind {
	return v.section
}

// Snapshot identifies the registry state the view reads.
func (v SectionView) Snapshot() SnapshotInfo {
	return v.snap.info()
}

// Excluded reports whether the model was excluded when the view was taken.
func (v SectionView) Excluded() bool {
	return v.snap.isExcluded(v.model)
}

// Label resolves the section label.
func (v SectionView) Label() (string, error) {
	if _, err := v.check(); err != nil {
		return "", err
	}
	return v.sectionLabel()
}

// Visible resolves the section visibility.
func (v SectionView) Visible() (bool, error) {
	if _, err := v.check(); err != nil {
		return false, err
	}
	return v.sectionVisible()
}

// Resolve returns the final configuration of field.
func (v SectionView) Resolve(field string) (ResolvedField, error) {
	plan, err := v.prepare()
	if err != nil {
		return ResolvedField{}, err
	}
	f, ok := plan.fields[field]
	if !ok {
		return ResolvedField{}, &UnknownFieldError{Model: v.model, Section: v.section, Field: field}
	}
	return v.resolveField(plan, f, nil)
}

// ResolveWithTrace resolves field and records every layer that touched
// attribute ("label", "help", "visible" or "required").
func (v SectionView) ResolveWithTrace(field, attribute string) (ResolvedField, Trace, error) {
	switch attribute {
	case "label", "help", "visible", "required":
	default:
		return ResolvedField{}, Trace{}, fmt.Errorf("admin: cannot trace attribute %q", attribute)
	}
	plan, err := v.prepare()
	if err != nil {
		return ResolvedField{}, Trace{}, err
	}
	f, ok := plan.fields[field]
	if !ok {
		return ResolvedField{}, Trace{}, &UnknownFieldError{Model: v.model, Section: v.section, Field: field}
	}
	rec := &traceRecorder{attribute: attribute, snapshotID: v.snap.id}
	rec.trace.Path = fmt.Sprintf("%s.%s.%s.%s", v.model, v.section, field, attribute)
	resolved, err := v.resolveField(plan, f, rec)
	if err != nil {
		return ResolvedField{}, Trace{}, err
	}
	return resolved, rec.trace, nil
}

// Fields resolves every enumerated field in display order.
func (v SectionView) Fields() ([]ResolvedField, error) {
	section, err := v.Resolved()
	if err != nil {
		return nil, err
	}
	return section.Fields, nil
}

// Resolved builds the complete view model of the section.
func (v SectionView) Resolved() (ResolvedSection, error) {
	plan, err := v.prepare()
	if err != nil {
		return ResolvedSection{}, err
	}
	label, err := v.sectionLabel()
	if err != nil {
		return ResolvedSection{}, err
	}
	visible, err := v.sectionVisible()
	if err != nil {
		return ResolvedSection{}, err
	}
	out := ResolvedSection{
		Model:    v.model,
		Section:  v.section,
		Label:    label,
		Visible:  visible,
		Explicit: plan.explicit,
		Snapshot: v.snap.info(),
		Fields:   make([]ResolvedField, 0, len(plan.order)),
	}
	for _, f := range plan.order {
		resolved, err := v.resolveField(plan, f, nil)
		if err != nil {
			return ResolvedSection{}, err
		}
		out.Fields = append(out.Fields, resolved)
	}
	for _, name := range plan.groups {
		group := plan.groupState[name]
		for _, field := range out.Fields {
			if field.Group == name {
				group.Fields = append(group.Fields, field.Name)
			}
		}
		if len(group.Fields) > 0 {
			out.Groups = append(out.Groups, group)
		}
	}
	return out, nil
}

type layerOrigin struct {
	scope   Scope
	section SectionKind
	source  string
}

type scopeLayer struct {
	scope Scope
	cfg   *scopeConfig
}

type fieldLayer struct {
	origin layerOrigin
	rules  *fieldRules
}

type attrStep[T any] struct {
	origin layerOrigin
	rule   Rule[T]
}

type sectionPlan struct {
	fields     map[string]introspect.Field
	order      []introspect.Field
	explicit   bool
	groups     []string
	member     map[string]string
	groupState map[string]ResolvedGroup
}

func (p *sectionPlan) groupOf(field string) string {
	if group, ok := p.member[field]; ok {
		return group
	}
	return DefaultGroup
}

// scopes lists the configuration layers weakest first.
func (v SectionView) scopes() []scopeLayer {
	return []scopeLayer{
		{scope: GlobalScope(), cfg: v.snap.global},
		{scope: ModelScope(v.model), cfg: v.snap.models[v.model]},
	}
}

// eachSection visits every configured (scope, section) pair in application
// order: global along the section ancestry, then model along the ancestry.
func (v SectionView) eachSection(fn func(origin layerOrigin, cfg *sectionConfig)) {
	ancestry := v.section.ancestry()
	for _, layer := range v.scopes() {
		for _, kind := range ancestry {
			if cfg := layer.cfg.lookup(kind); cfg != nil {
				fn(layerOrigin{scope: layer.scope, section: kind}, cfg)
			}
		}
	}
}

func (v SectionView) check() ([]introspect.Field, error) {
	if !v.section.Valid() {
		return nil, errUnknownSection(v.section)
	}
	if v.snap.isExcluded(v.model) {
		return nil, &ExcludedModelError{Model: v.model}
	}
	return v.registry.orderedFields(v.model)
}

func (v SectionView) prepare() (*sectionPlan, error) {
	fields, err := v.check()
	if err != nil {
		return nil, err
	}
	plan := &sectionPlan{
		fields:     make(map[string]introspect.Field, len(fields)),
		member:     map[string]string{},
		groupState: map[string]ResolvedGroup{},
	}
	for _, f := range fields {
		plan.fields[f.Name] = f
	}

	ancestry := v.section.ancestry()
	modelCfg := v.snap.models[v.model]
	for i := len(ancestry) - 1; i >= 0; i-- {
		cfg := modelCfg.lookup(ancestry[i])
		if cfg == nil || !cfg.explicit {
			continue
		}
		plan.explicit = true
		for _, name := range cfg.fieldOrder {
			if f, ok := plan.fields[name]; ok {
				plan.order = append(plan.order, f)
			}
		}
		break
	}
	if !plan.explicit {
		for _, f := range fields {
			if v.associationExcluded(f) {
				continue
			}
			plan.order = append(plan.order, f)
		}
	}

	plan.groups = []string{DefaultGroup}
	v.eachSection(func(origin layerOrigin, cfg *sectionConfig) {
		for _, group := range cfg.groups {
			if !slices.Contains(plan.groups, group.name) {
				plan.groups = append(plan.groups, group.name)
			}
			if origin.scope.Kind != ScopeModel {
				continue
			}
			for _, field := range group.fields {
				plan.member[field] = group.name
			}
		}
	})
	for _, name := range plan.groups {
		state, err := v.resolveGroup(name)
		if err != nil {
			return nil, err
		}
		plan.groupState[name] = state
	}
	return plan, nil
}

func (v SectionView) resolveGroup(name string) (ResolvedGroup, error) {
	var labels []attrStep[string]
	var visibility []attrStep[bool]
	v.eachSection(func(origin layerOrigin, cfg *sectionConfig) {
		group, ok := cfg.findGroup(name)
		if !ok {
			return
		}
		origin.source = "group:" + name
		labels = append(labels, attrStep[string]{origin: origin, rule: group.label})
		visibility = append(visibility, attrStep[bool]{origin: origin, rule: group.visible})
	})
	base := RuleContext{Model: v.model, Section: v.section, Facts: map[string]any{"name": name}}
	label, err := applySteps(v, base, "label", introspect.Humanize(name), labels, nil)
	if err != nil {
		return ResolvedGroup{}, v.wrapErr("group "+name, err)
	}
	visible, err := applySteps(v, base, "visible", true, visibility, nil)
	if err != nil {
		return ResolvedGroup{}, v.wrapErr("group "+name, err)
	}
	return ResolvedGroup{Name: name, Label: label, Visible: visible}, nil
}

func (v SectionView) sectionLabel() (string, error) {
	var steps []attrStep[string]
	v.eachSection(func(origin layerOrigin, cfg *sectionConfig) {
		origin.source = "section"
		steps = append(steps, attrStep[string]{origin: origin, rule: cfg.label})
	})
	base := RuleContext{Model: v.model, Section: v.section}
	label, err := applySteps(v, base, "label", introspect.Humanize(string(v.model)), steps, nil)
	if err != nil {
		return "", v.wrapErr("label", err)
	}
	return label, nil
}

func (v SectionView) sectionVisible() (bool, error) {
	var steps []attrStep[bool]
	v.eachSection(func(origin layerOrigin, cfg *sectionConfig) {
		origin.source = "section"
		steps = append(steps, attrStep[bool]{origin: origin, rule: cfg.visible})
	})
	base := RuleContext{Model: v.model, Section: v.section}
	visible, err := applySteps(v, base, "visible", true, steps, nil)
	if err != nil {
		return false, v.wrapErr("visibility", err)
	}
	return visible, nil
}

// fieldLayers orders the rules touching f: type rules of every scope along
// the ancestry, then field rules of every scope along the ancestry.
func (v SectionView) fieldLayers(f introspect.Field) []fieldLayer {
	var typeLayers, fieldRuleLayers []fieldLayer
	v.eachSection(func(origin layerOrigin, cfg *sectionConfig) {
		if rules, ok := cfg.typeRules[f.Type]; ok {
			o := origin
			o.source = "type:" + string(f.Type)
			typeLayers = append(typeLayers, fieldLayer{origin: o, rules: rules})
		}
	})
	v.eachSection(func(origin layerOrigin, cfg *sectionConfig) {
		if rules, ok := cfg.fields[f.Name]; ok {
			o := origin
			o.source = "field"
			fieldRuleLayers = append(fieldRuleLayers, fieldLayer{origin: o, rules: rules})
		}
	})
	return append(typeLayers, fieldRuleLayers...)
}

func selectSteps[T any](layers []fieldLayer, pick func(*fieldRules) Rule[T]) []attrStep[T] {
	steps := make([]attrStep[T], 0, len(layers))
	for _, layer := range layers {
		steps = append(steps, attrStep[T]{origin: layer.origin, rule: pick(layer.rules)})
	}
	return steps
}

func (v SectionView) resolveField(plan *sectionPlan, f introspect.Field, rec *traceRecorder) (ResolvedField, error) {
	layers := v.fieldLayers(f)
	base := RuleContext{Model: v.model, Section: v.section, Facts: fieldFacts(f)}

	inferred := introspect.InferRequired(v.registry.source, string(v.model), f)
	required, err := applySteps(v, base, "required", inferred,
		selectSteps(layers, func(r *fieldRules) Rule[bool] { return r.required }), rec)
	if err != nil {
		return ResolvedField{}, v.wrapErr(f.Name, err)
	}
	base.Facts["required"] = required

	label, err := applySteps(v, base, "label", introspect.Humanize(f.Name),
		selectSteps(layers, func(r *fieldRules) Rule[string] { return r.label }), rec)
	if err != nil {
		return ResolvedField{}, v.wrapErr(f.Name, err)
	}
	base.Facts["label"] = label

	help, err := applySteps(v, base, "help", defaultHelp(required, f),
		selectSteps(layers, func(r *fieldRules) Rule[string] { return r.help }), rec)
	if err != nil {
		return ResolvedField{}, v.wrapErr(f.Name, err)
	}

	visible, err := applySteps(v, base, "visible", true,
		selectSteps(layers, func(r *fieldRules) Rule[bool] { return r.visible }), rec)
	if err != nil {
		return ResolvedField{}, v.wrapErr(f.Name, err)
	}

	group := plan.groupOf(f.Name)
	if state, ok := plan.groupState[group]; ok && !state.Visible && visible {
		visible = false
		rec.record("visible", layerOrigin{source: "group:" + group}, "group", "", visible)
	}
	if v.associationExcluded(f) && visible {
		visible = false
		rec.record("visible", layerOrigin{source: "excluded:" + f.Association.Target}, "excluded", "", visible)
	}

	return ResolvedField{
		Name:     f.Name,
		Type:     f.Type,
		Label:    label,
		Help:     help,
		Visible:  visible,
		Required: required,
		Group:    group,
		Properties: Properties{
			Nullable:    f.Nullable,
			MaxLength:   f.MaxLength,
			Association: f.Association,
		},
	}, nil
}

func applySteps[T any](v SectionView, base RuleContext, attribute string, initial T, steps []attrStep[T], rec *traceRecorder) (T, error) {
	current := initial
	rec.record(attribute, layerOrigin{source: "default"}, "default", "", current)
	logger := v.registry.cfg.evaluatorLogger()
	for _, step := range steps {
		if !step.rule.IsSet() {
			continue
		}
		ctx := base
		ctx.Scope = step.origin.scope
		ctx.Attribute = attribute
		next, err := step.rule.apply(ctx, current, logger)
		if err != nil {
			return current, err
		}
		current = next
		rec.record(attribute, step.origin, step.rule.Kind(), step.rule.Source(), current)
	}
	return current, nil
}

func (v SectionView) associationExcluded(f introspect.Field) bool {
	return f.Association != nil && v.snap.isExcluded(ModelID(f.Association.Target))
}

func (v SectionView) wrapErr(subject string, err error) error {
	return fmt.Errorf("admin: resolve %s.%s %s: %w", v.model, v.section, subject, err)
}

func fieldFacts(f introspect.Field) map[string]any {
	facts := map[string]any{
		"name":       f.Name,
		"type":       string(f.Type),
		"nullable":   f.Nullable,
		"max_length": f.MaxLength,
	}
	if f.Association != nil {
		facts["association"] = f.Association.Target
	}
	return facts
}

// defaultHelp synthesizes the help text from the required flag and the
// length constraint of string columns.
func defaultHelp(required bool, f introspect.Field) string {
	text := "Optional"
	if required {
		text = "Required"
	}
	if f.MaxLength > 0 && (f.Type == introspect.TypeString || f.Type == introspect.TypeText) {
		text += fmt.Sprintf(" %d characters or fewer.", f.MaxLength)
	}
	return text
}
