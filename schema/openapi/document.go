package openapi

import (
	"fmt"
	"sort"
	"strings"
)

type documentBuilder struct {
	config generatorConfig
	schema map[string]any
}

func newDocumentBuilder(config generatorConfig, schema map[string]any) *documentBuilder {
	return &documentBuilder{config: config, schema: schema}
}

func (b *documentBuilder) build() (map[string]any, error) {
	if b.schema == nil {
		return nil, fmt.Errorf("openapi: schema cannot be nil")
	}
	document := map[string]any{
		"openapi": b.config.openAPIVersion,
		"info":    b.buildInfo(),
		"paths":   b.buildPaths(),
		"components": map[string]any{
			"schemas": map[string]any{b.config.componentName: b.schema},
		},
	}
	if err := validateDocument(document); err != nil {
		return nil, err
	}
	return document, nil
}

func (b *documentBuilder) buildInfo() map[string]any {
	info := map[string]any{
		"title":   b.config.info.Title,
		"version": b.config.info.Version,
	}
	if b.config.info.Description != "" {
		info["description"] = b.config.info.Description
	}
	return info
}

// writes reports whether the operation method carries a request body.
func (b *documentBuilder) writes() bool {
	switch b.method() {
	case "post", "put", "patch":
		return true
	default:
		return false
	}
}

func (b *documentBuilder) method() string {
	method := strings.ToLower(b.config.operation.Method)
	if method == "" {
		return "get"
	}
	return method
}

func (b *documentBuilder) buildPaths() map[string]any {
	content := map[string]any{
		b.config.contentType: map[string]any{
			"schema": map[string]any{"$ref": "#/components/schemas/" + b.config.componentName},
		},
	}

	statuses := make([]string, 0, len(b.config.responses))
	for status := range b.config.responses {
		statuses = append(statuses, status)
	}
	sort.Strings(statuses)
	responses := make(map[string]any, len(statuses))
	for _, status := range statuses {
		resp := map[string]any{"description": b.config.responses[status].Description}
		if !b.writes() && strings.HasPrefix(status, "2") {
			resp["content"] = content
		}
		responses[status] = resp
	}

	operation := map[string]any{
		"operationId": b.config.operation.OperationID,
		"responses":   responses,
	}
	if b.writes() {
		operation["requestBody"] = map[string]any{
			"required": true,
			"content":  content,
		}
	}
	if summary := strings.TrimSpace(b.config.operation.Summary); summary != "" {
		operation["summary"] = summary
	}
	if strings.Contains(b.config.operation.Path, "{id}") {
		operation["parameters"] = []any{map[string]any{
			"name":     "id",
			"in":       "path",
			"required": true,
			"schema":   map[string]any{"type": "string"},
		}}
	}

	return map[string]any{
		b.config.operation.Path: map[string]any{
			b.method(): operation,
		},
	}
}

func validateDocument(document map[string]any) error {
	if document == nil {
		return fmt.Errorf("openapi: document cannot be nil")
	}
	openapi, _ := document["openapi"].(string)
	if openapi == "" {
		return fmt.Errorf("openapi: document missing version string")
	}
	info, _ := document["info"].(map[string]any)
	if info == nil {
		return fmt.Errorf("openapi: document missing info section")
	}
	if title, _ := info["title"].(string); title == "" {
		return fmt.Errorf("openapi: info.title must be set")
	}
	if version, _ := info["version"].(string); version == "" {
		return fmt.Errorf("openapi: info.version must be set")
	}
	paths, _ := document["paths"].(map[string]any)
	if len(paths) == 0 {
		return fmt.Errorf("openapi: document must define at least one path")
	}
	for pathKey, pathValue := range paths {
		pathItem, _ := pathValue.(map[string]any)
		if len(pathItem) == 0 {
			return fmt.Errorf("openapi: path %q missing operations", pathKey)
		}
		for method, operationValue := range pathItem {
			operation, _ := operationValue.(map[string]any)
			if operation == nil {
				return fmt.Errorf("openapi: operation %s %s invalid payload", method, pathKey)
			}
			if id, _ := operation["operationId"].(string); id == "" {
				return fmt.Errorf("openapi: operation %s %s missing operationId", method, pathKey)
			}
			responses, _ := operation["responses"].(map[string]any)
			if len(responses) == 0 {
				return fmt.Errorf("openapi: operation %s %s missing responses", method, pathKey)
			}
		}
	}
	return nil
}
