package main

import (
	"fmt"

	admin "github.com/goliatone/go-admin"
	"github.com/goliatone/go-admin/declare"
	"github.com/goliatone/go-admin/introspect/cueschema"
	"github.com/goliatone/go-admin/layering"
	"github.com/goliatone/go-admin/pkg/access"
)

type settings struct {
	schemaDir    string
	configPath   string
	overridePath string
	policyPath   string
	accessMode   string
}

// build introspects the schema directory and applies the layered documents.
func (s settings) build(opts ...admin.Option) (*admin.Registry, error) {
	if s.schemaDir == "" {
		return nil, fmt.Errorf("adminctl: schema directory is required")
	}
	catalog, err := cueschema.LoadDir(s.schemaDir)
	if err != nil {
		return nil, err
	}
	if s.policyPath != "" {
		mode, err := access.ParseMode(s.accessMode)
		if err != nil {
			return nil, err
		}
		authorizer, err := access.New(s.policyPath, mode)
		if err != nil {
			return nil, err
		}
		opts = append(opts, admin.WithAuthorizer(authorizer))
	}
	reg := admin.NewRegistry(catalog, opts...)
	if err := s.reload(reg); err != nil {
		return nil, err
	}
	return reg, nil
}

// reload re-reads the configured documents and replaces the registry
// configuration. Invalid documents are rejected before the reset.
func (s settings) reload(reg *admin.Registry) error {
	doc, err := s.document()
	if err != nil {
		return err
	}
	return declare.Reload(reg, doc)
}

func (s settings) document() (declare.Document, error) {
	var entries []layering.Entry[declare.Document]
	if s.configPath != "" {
		entry, err := declare.LoadLayer(s.configPath, layering.Layer{Level: layering.LevelBase})
		if err != nil {
			return declare.Document{}, err
		}
		entries = append(entries, entry)
	}
	if s.overridePath != "" {
		entry, err := declare.LoadLayer(s.overridePath, layering.Layer{Level: layering.LevelOverride, Name: "local"})
		if err != nil {
			return declare.Document{}, err
		}
		entries = append(entries, entry)
	}
	return declare.Merge(entries...), nil
}
