package declare

import (
	"errors"
	"fmt"
	"strings"

	admin "github.com/goliatone/go-admin"
	"github.com/goliatone/go-admin/introspect"
)

// Validate checks the document structure: section names, type tags and
// the presence of field and group names. Field existence is checked by
// the registry when the document is applied.
func (d Document) Validate() error {
	var errs []error
	if d.Navigation != nil && d.Navigation.MaxVisibleTabs != nil && *d.Navigation.MaxVisibleTabs < 1 {
		errs = append(errs, fmt.Errorf("navigation.max_visible_tabs must be positive, got %d", *d.Navigation.MaxVisibleTabs))
	}
	for i, model := range d.ExcludedModels {
		if model == "" {
			errs = append(errs, fmt.Errorf("excluded_models[%d] is empty", i))
		}
	}
	if d.Global != nil {
		errs = append(errs, d.Global.validate("global")...)
	}
	for name, scope := range d.Models {
		if scope == nil {
			continue
		}
		errs = append(errs, scope.validate("models."+name)...)
	}
	return errors.Join(errs...)
}

func (s *Scope) validate(path string) []error {
	var errs []error
	for kind, section := range s.Sections {
		sectionPath := path + "." + kind
		if _, err := admin.ParseSectionKind(kind); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", sectionPath, err))
			continue
		}
		if section == nil {
			continue
		}
		for i, field := range section.Fields {
			if field.Name == "" {
				errs = append(errs, fmt.Errorf("%s.fields[%d]: name is required", sectionPath, i))
			}
		}
		for tag, field := range section.FieldsOfType {
			if introspect.ParseTypeTag(strings.TrimSpace(tag)) == "" {
				errs = append(errs, fmt.Errorf("%s.fields_of_type: empty type tag", sectionPath))
			}
			if field != nil && field.Name != "" {
				errs = append(errs, fmt.Errorf("%s.fields_of_type.%s: name is not allowed", sectionPath, tag))
			}
		}
		for i, group := range section.Groups {
			if group.Name == "" {
				errs = append(errs, fmt.Errorf("%s.groups[%d]: name is required", sectionPath, i))
			}
		}
	}
	return errs
}
