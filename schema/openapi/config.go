package openapi

import (
	"strings"
)

type generatorConfig struct {
	openAPIVersion string
	info           openapiInfo
	operation      operationConfig
	contentType    string
	responses      map[string]responseConfig
	componentName  string
	includeHidden  bool
}

type openapiInfo struct {
	Title       string
	Version     string
	Description string
}

type operationConfig struct {
	Path        string
	Method      string
	OperationID string
	Summary     string
}

type responseConfig struct {
	Description string
}

// defaultGeneratorConfig derives the operation from the section: create
// posts to the collection, update and edit put to the member, and read
// sections (list, show, export, navigation, base) get the collection or
// member with the schema as the response body.
func defaultGeneratorConfig(model, section string) generatorConfig {
	cfg := generatorConfig{
		openAPIVersion: "3.0.3",
		info: openapiInfo{
			Title:   model + " admin",
			Version: "1.0.0",
		},
		contentType:   "application/json",
		componentName: model,
	}
	collection := "/admin/" + model
	member := collection + "/{id}"
	switch section {
	case "create":
		cfg.operation = operationConfig{Path: collection, Method: "post"}
		cfg.responses = map[string]responseConfig{"201": {Description: "Created"}}
	case "update", "edit":
		cfg.operation = operationConfig{Path: member, Method: "put"}
		cfg.responses = map[string]responseConfig{"204": {Description: "Updated"}}
	case "show":
		cfg.operation = operationConfig{Path: member, Method: "get"}
		cfg.responses = map[string]responseConfig{"200": {Description: "OK"}}
	default:
		cfg.operation = operationConfig{Path: collection, Method: "get"}
		cfg.responses = map[string]responseConfig{"200": {Description: "OK"}}
	}
	cfg.operation.OperationID = section + model
	return cfg
}

// GeneratorOption configures the OpenAPI generator behaviour.
type GeneratorOption func(*generatorConfig)

// WithOpenAPIVersion overrides the OpenAPI version string (default: 3.0.3).
func WithOpenAPIVersion(version string) GeneratorOption {
	return func(cfg *generatorConfig) {
		if version == "" {
			return
		}
		cfg.openAPIVersion = version
	}
}

// InfoOption configures optional fields on the OpenAPI info section.
type InfoOption func(*openapiInfo)

// WithInfoDescription sets the optional description field for the info section.
func WithInfoDescription(description string) InfoOption {
	return func(info *openapiInfo) {
		info.Description = description
	}
}

// WithInfo configures the OpenAPI info block. Empty strings retain the
// existing values.
func WithInfo(title, version string, opts ...InfoOption) GeneratorOption {
	return func(cfg *generatorConfig) {
		if title != "" {
			cfg.info.Title = title
		}
		if version != "" {
			cfg.info.Version = version
		}
		for _, opt := range opts {
			if opt != nil {
				opt(&cfg.info)
			}
		}
	}
}

// OperationOption configures optional operation metadata.
type OperationOption func(*operationConfig)

// WithOperationSummary attaches a summary to the configured operation.
func WithOperationSummary(summary string) OperationOption {
	return func(operation *operationConfig) {
		operation.Summary = summary
	}
}

// WithOperation overrides the path, method and operationId derived from the
// section. Empty inputs retain the defaults.
func WithOperation(path, method, operationID string, opts ...OperationOption) GeneratorOption {
	return func(cfg *generatorConfig) {
		if path != "" {
			cfg.operation.Path = path
		}
		if method != "" {
			cfg.operation.Method = strings.ToLower(method)
		}
		if operationID != "" {
			cfg.operation.OperationID = operationID
		}
		for _, opt := range opts {
			if opt != nil {
				opt(&cfg.operation)
			}
		}
	}
}

// WithContentType sets the media type of the request or response body.
func WithContentType(contentType string) GeneratorOption {
	return func(cfg *generatorConfig) {
		if contentType == "" {
			return
		}
		cfg.contentType = contentType
	}
}

// WithResponse registers or overrides a response for the status code.
func WithResponse(status, description string) GeneratorOption {
	return func(cfg *generatorConfig) {
		if status == "" {
			return
		}
		if cfg.responses == nil {
			cfg.responses = map[string]responseConfig{}
		}
		resp := cfg.responses[status]
		if description != "" {
			resp.Description = description
		}
		cfg.responses[status] = resp
	}
}

// WithComponentName publishes the schema under name instead of the model name.
func WithComponentName(name string) GeneratorOption {
	return func(cfg *generatorConfig) {
		if name != "" {
			cfg.componentName = name
		}
	}
}

// WithHiddenFields keeps hidden fields in the schema, marked
// x-admin-hidden, instead of leaving them out.
func WithHiddenFields() GeneratorOption {
	return func(cfg *generatorConfig) {
		cfg.includeHidden = true
	}
}
