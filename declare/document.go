// Package declare reads admin configuration from YAML documents and
// applies it to a Registry through the builder API.
//
// A document names global rules, per model rules, excluded models and
// navigation settings:
//
//	navigation:
//	  max_visible_tabs: 4
//	excluded_models: [Fan]
//	global:
//	  fields_of_type:
//	    string:
//	      label: {expr: 'label + " (STRING)"'}
//	models:
//	  Team:
//	    label: Teams
//	    navigation_label: Clubs
//	    list:
//	      fields: [name, logo_url]
//	    edit:
//	      groups:
//	        - name: advanced
//	          visible: false
//	          fields: [founded]
//
// Label and help values are either plain strings or {expr: ...} mappings;
// flags are booleans or {expr: ...} mappings.
package declare

import (
	"encoding/json"
	"fmt"
)

// Document is one configuration document.
type Document struct {
	Navigation     *Navigation       `json:"navigation,omitempty"`
	ExcludedModels []string          `json:"excluded_models,omitempty" merge:"atomic"`
	Global         *Scope            `json:"global,omitempty"`
	Models         map[string]*Scope `json:"models,omitempty"`
}

type Navigation struct {
	MaxVisibleTabs *int `json:"max_visible_tabs,omitempty"`
}

// Scope holds the sections of the global scope or of one model.
type Scope struct {
	Sections map[string]*Section `json:"sections,omitempty"`
}

type Section struct {
	Label        *Text             `json:"label,omitempty" merge:"atomic"`
	Visible      *Flag             `json:"visible,omitempty" merge:"atomic"`
	Fields       []Field           `json:"fields,omitempty" merge:"key=Name"`
	FieldsOfType map[string]*Field `json:"fields_of_type,omitempty"`
	Groups       []Group           `json:"groups,omitempty" merge:"key=Name"`
}

// Field configures one field, or every field of a type when listed under
// fields_of_type (Name is then empty).
type Field struct {
	Name     string `json:"name,omitempty"`
	Label    *Text  `json:"label,omitempty" merge:"atomic"`
	Help     *Text  `json:"help,omitempty" merge:"atomic"`
	Visible  *Flag  `json:"visible,omitempty" merge:"atomic"`
	Required *Flag  `json:"required,omitempty" merge:"atomic"`
}

type Group struct {
	Name    string   `json:"name"`
	Label   *Text    `json:"label,omitempty" merge:"atomic"`
	Visible *Flag    `json:"visible,omitempty" merge:"atomic"`
	Fields  []string `json:"fields,omitempty"`
}

// Text is a literal string or an expression producing one.
type Text struct {
	Value *string
	Expr  string
}

// TextValue returns a literal text.
func TextValue(value string) *Text {
	return &Text{Value: &value}
}

// TextExpr returns an expression text.
func TextExpr(src string) *Text {
	return &Text{Expr: src}
}

func (t Text) MarshalJSON() ([]byte, error) {
	if t.Expr != "" {
		return json.Marshal(map[string]string{"expr": t.Expr})
	}
	if t.Value != nil {
		return json.Marshal(*t.Value)
	}
	return []byte("null"), nil
}

func (t *Text) UnmarshalJSON(data []byte) error {
	var literal string
	if err := json.Unmarshal(data, &literal); err == nil {
		*t = Text{Value: &literal}
		return nil
	}
	var raw struct {
		Value *string `json:"value"`
		Expr  string  `json:"expr"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("declare: text must be a string or {expr: ...}: %w", err)
	}
	if err := checkRuleShape(raw.Value != nil, raw.Expr); err != nil {
		return err
	}
	*t = Text{Value: raw.Value, Expr: raw.Expr}
	return nil
}

// Flag is a literal boolean or an expression producing one.
type Flag struct {
	Value *bool
	Expr  string
}

// FlagValue returns a literal flag.
func FlagValue(value bool) *Flag {
	return &Flag{Value: &value}
}

// FlagExpr returns an expression flag.
func FlagExpr(src string) *Flag {
	return &Flag{Expr: src}
}

func (f Flag) MarshalJSON() ([]byte, error) {
	if f.Expr != "" {
		return json.Marshal(map[string]string{"expr": f.Expr})
	}
	if f.Value != nil {
		return json.Marshal(*f.Value)
	}
	return []byte("null"), nil
}

func (f *Flag) UnmarshalJSON(data []byte) error {
	var literal bool
	if err := json.Unmarshal(data, &literal); err == nil {
		*f = Flag{Value: &literal}
		return nil
	}
	var raw struct {
		Value *bool  `json:"value"`
		Expr  string `json:"expr"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("declare: flag must be a boolean or {expr: ...}: %w", err)
	}
	if err := checkRuleShape(raw.Value != nil, raw.Expr); err != nil {
		return err
	}
	*f = Flag{Value: raw.Value, Expr: raw.Expr}
	return nil
}

func checkRuleShape(hasValue bool, expr string) error {
	switch {
	case hasValue && expr != "":
		return fmt.Errorf("declare: value and expr are mutually exclusive")
	case !hasValue && expr == "":
		return fmt.Errorf("declare: one of value or expr is required")
	}
	return nil
}
