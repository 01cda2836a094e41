package declare

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	admin "github.com/goliatone/go-admin"
	"github.com/goliatone/go-admin/introspect"
)

// Apply configures reg from doc on top of its current state. Each model is
// configured in its own block, so a failing model leaves the others
// applied; all failures are returned joined.
func Apply(reg *admin.Registry, doc Document) error {
	if err := doc.Validate(); err != nil {
		return fmt.Errorf("declare: %w", err)
	}

	var errs []error
	if doc.ExcludedModels != nil {
		models := make([]admin.ModelID, len(doc.ExcludedModels))
		for i, name := range doc.ExcludedModels {
			models[i] = admin.ModelID(name)
		}
		reg.SetExcludedModels(models...)
	}
	if doc.Navigation != nil && doc.Navigation.MaxVisibleTabs != nil {
		if err := reg.SetMaxVisibleTabs(*doc.Navigation.MaxVisibleTabs); err != nil {
			errs = append(errs, err)
		}
	}
	if doc.Global != nil {
		err := reg.ConfigureGlobal(func(g *admin.GlobalBuilder) {
			eachSection(doc.Global, func(kind admin.SectionKind, section *Section) {
				g.Section(kind, func(b *admin.SectionBuilder) { applySection(b, section) })
			})
		})
		if err != nil {
			errs = append(errs, err)
		}
	}
	for _, name := range sortedKeys(doc.Models) {
		scope := doc.Models[name]
		if scope == nil {
			continue
		}
		err := reg.Configure(admin.ModelID(name), func(m *admin.ModelBuilder) {
			eachSection(scope, func(kind admin.SectionKind, section *Section) {
				m.Section(kind, func(b *admin.SectionBuilder) { applySection(b, section) })
			})
		})
		if err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("declare: %w", errors.Join(errs...))
	}
	return nil
}

// Reload resets reg and applies doc, so the registry reflects exactly the
// document.
func Reload(reg *admin.Registry, doc Document) error {
	if err := doc.Validate(); err != nil {
		return fmt.Errorf("declare: %w", err)
	}
	reg.Reset()
	return Apply(reg, doc)
}

// eachSection visits sections from base to leaf so inherited sections are
// configured first.
func eachSection(scope *Scope, fn func(admin.SectionKind, *Section)) {
	for _, kind := range admin.Sections() {
		if section := scope.Sections[string(kind)]; section != nil {
			fn(kind, section)
		}
	}
}

func applySection(b *admin.SectionBuilder, section *Section) {
	if text := section.Label; text != nil {
		if text.Expr != "" {
			b.LabelExpr(text.Expr)
		} else if text.Value != nil {
			b.Label(*text.Value)
		}
	}
	if flag := section.Visible; flag != nil {
		if flag.Expr != "" {
			b.VisibleExpr(flag.Expr)
		} else if flag.Value != nil {
			if *flag.Value {
				b.Show()
			} else {
				b.Hide()
			}
		}
	}
	for _, tag := range sortedKeys(section.FieldsOfType) {
		rules := section.FieldsOfType[tag]
		if rules == nil {
			continue
		}
		b.FieldsOfType(introspect.ParseTypeTag(strings.TrimSpace(tag)), func(f *admin.FieldBuilder) { applyField(f, *rules) })
	}
	for _, field := range section.Fields {
		b.Field(field.Name, func(f *admin.FieldBuilder) { applyField(f, field) })
	}
	for _, group := range section.Groups {
		b.Group(group.Name, func(g *admin.GroupBuilder) { applyGroup(g, group) })
	}
}

func applyGroup(g *admin.GroupBuilder, group Group) {
	if text := group.Label; text != nil {
		if text.Expr != "" {
			g.LabelExpr(text.Expr)
		} else if text.Value != nil {
			g.Label(*text.Value)
		}
	}
	if flag := group.Visible; flag != nil {
		if flag.Expr != "" {
			g.VisibleExpr(flag.Expr)
		} else if flag.Value != nil {
			if *flag.Value {
				g.Show()
			} else {
				g.Hide()
			}
		}
	}
	for _, name := range group.Fields {
		g.Field(name)
	}
}

func applyField(f *admin.FieldBuilder, field Field) {
	if text := field.Label; text != nil {
		if text.Expr != "" {
			f.LabelExpr(text.Expr)
		} else if text.Value != nil {
			f.Label(*text.Value)
		}
	}
	if text := field.Help; text != nil {
		if text.Expr != "" {
			f.HelpExpr(text.Expr)
		} else if text.Value != nil {
			f.Help(*text.Value)
		}
	}
	if flag := field.Visible; flag != nil {
		if flag.Expr != "" {
			f.VisibleExpr(flag.Expr)
		} else if flag.Value != nil {
			if *flag.Value {
				f.Show()
			} else {
				f.Hide()
			}
		}
	}
	if flag := field.Required; flag != nil {
		if flag.Expr != "" {
			f.RequiredExpr(flag.Expr)
		} else if flag.Value != nil {
			f.Required(*flag.Value)
		}
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	return keys
}
