package admin

import (
	"slices"
	"time"

	"github.com/goliatone/go-admin/introspect"
)

// DefaultGroup is the group holding every field not assigned elsewhere.
const DefaultGroup = "default"

// DefaultMaxVisibleTabs is the navigation tab cap of a fresh registry.
const DefaultMaxVisibleTabs = 5

// fieldRules is the override slot for one field or one type tag. Each
// attribute holds at most one rule, so re-applying a block replaces it.
type fieldRules struct {
	label    Rule[string]
	help     Rule[string]
	visible  Rule[bool]
	required Rule[bool]
}

func (r *fieldRules) clone() *fieldRules {
	if r == nil {
		return nil
	}
	out := *r
	return &out
}

type groupConfig struct {
	name    string
	label   Rule[string]
	visible Rule[bool]
	fields  []string
}

func (g *groupConfig) clone() *groupConfig {
	out := *g
	out.fields = slices.Clone(g.fields)
	return &out
}

type sectionConfig struct {
	label      Rule[string]
	visible    Rule[bool]
	explicit   bool
	fieldOrder []string
	fields     map[string]*fieldRules
	typeRules  map[introspect.TypeTag]*fieldRules
	groups     []*groupConfig
}

func newSectionConfig() *sectionConfig {
	return &sectionConfig{
		fields:    map[string]*fieldRules{},
		typeRules: map[introspect.TypeTag]*fieldRules{},
	}
}

func (s *sectionConfig) clone() *sectionConfig {
	out := &sectionConfig{
		label:      s.label,
		visible:    s.visible,
		explicit:   s.explicit,
		fieldOrder: slices.Clone(s.fieldOrder),
		fields:     make(map[string]*fieldRules, len(s.fields)),
		typeRules:  make(map[introspect.TypeTag]*fieldRules, len(s.typeRules)),
		groups:     make([]*groupConfig, len(s.groups)),
	}
	for name, rules := range s.fields {
		out.fields[name] = rules.clone()
	}
	for tag, rules := range s.typeRules {
		out.typeRules[tag] = rules.clone()
	}
	for i, group := range s.groups {
		out.groups[i] = group.clone()
	}
	return out
}

// declareField adds name to the explicit field list once.
func (s *sectionConfig) declareField(name string) *fieldRules {
	s.explicit = true
	if !slices.Contains(s.fieldOrder, name) {
		s.fieldOrder = append(s.fieldOrder, name)
	}
	return s.fieldSlot(name)
}

func (s *sectionConfig) fieldSlot(name string) *fieldRules {
	rules, ok := s.fields[name]
	if !ok {
		rules = &fieldRules{}
		s.fields[name] = rules
	}
	return rules
}

func (s *sectionConfig) typeSlot(tag introspect.TypeTag) *fieldRules {
	rules, ok := s.typeRules[tag]
	if !ok {
		rules = &fieldRules{}
		s.typeRules[tag] = rules
	}
	return rules
}

func (s *sectionConfig) group(name string) *groupConfig {
	for _, group := range s.groups {
		if group.name == name {
			return group
		}
	}
	group := &groupConfig{name: name}
	s.groups = append(s.groups, group)
	return group
}

func (s *sectionConfig) findGroup(name string) (*groupConfig, bool) {
	for _, group := range s.groups {
		if group.name == name {
			return group, true
		}
	}
	return nil, false
}

// assign moves field into group, removing it from any other group of the
// section.
func (s *sectionConfig) assign(group *groupConfig, field string) {
	for _, other := range s.groups {
		if other == group {
			continue
		}
		other.fields = slices.DeleteFunc(other.fields, func(name string) bool { return name == field })
	}
	if !slices.Contains(group.fields, field) {
		group.fields = append(group.fields, field)
	}
}

type scopeConfig struct {
	sections map[SectionKind]*sectionConfig
}

func newScopeConfig() *scopeConfig {
	return &scopeConfig{sections: map[SectionKind]*sectionConfig{}}
}

func (c *scopeConfig) clone() *scopeConfig {
	out := &scopeConfig{sections: make(map[SectionKind]*sectionConfig, len(c.sections))}
	for kind, section := range c.sections {
		out.sections[kind] = section.clone()
	}
	return out
}

func (c *scopeConfig) section(kind SectionKind) *sectionConfig {
	section, ok := c.sections[kind]
	if !ok {
		section = newSectionConfig()
		c.sections[kind] = section
	}
	return section
}

// lookup returns the section without creating it.
func (c *scopeConfig) lookup(kind SectionKind) *sectionConfig {
	if c == nil {
		return nil
	}
	return c.sections[kind]
}

// snapshot is one immutable published registry state. Writers clone the
// current snapshot, mutate the clone and publish it atomically.
type snapshot struct {
	id             string
	version        uint64
	publishedAt    time.Time
	global         *scopeConfig
	models         map[ModelID]*scopeConfig
	excluded       map[ModelID]struct{}
	maxVisibleTabs int
}

func newSnapshot(maxVisibleTabs int) *snapshot {
	return &snapshot{
		global:         newScopeConfig(),
		models:         map[ModelID]*scopeConfig{},
		excluded:       map[ModelID]struct{}{},
		maxVisibleTabs: maxVisibleTabs,
	}
}

func (s *snapshot) clone() *snapshot {
	out := &snapshot{
		id:             s.id,
		version:        s.version,
		publishedAt:    s.publishedAt,
		global:         s.global.clone(),
		models:         make(map[ModelID]*scopeConfig, len(s.models)),
		excluded:       make(map[ModelID]struct{}, len(s.excluded)),
		maxVisibleTabs: s.maxVisibleTabs,
	}
	for model, cfg := range s.models {
		out.models[model] = cfg.clone()
	}
	for model := range s.excluded {
		out.excluded[model] = struct{}{}
	}
	return out
}

func (s *snapshot) model(id ModelID) *scopeConfig {
	cfg, ok := s.models[id]
	if !ok {
		cfg = newScopeConfig()
		s.models[id] = cfg
	}
	return cfg
}

func (s *snapshot) isExcluded(id ModelID) bool {
	_, ok := s.excluded[id]
	return ok
}

// SnapshotInfo identifies a published registry state.
type SnapshotInfo struct {
	ID          string    `json:"id"`
	Version     uint64    `json:"version"`
	PublishedAt time.Time `json:"published_at"`
}

func (s *snapshot) info() SnapshotInfo {
	return SnapshotInfo{ID: s.id, Version: s.version, PublishedAt: s.publishedAt}
}
