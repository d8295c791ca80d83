// Package openapi synthesizes minimal OpenAPI 3.0 documents from generated
// JSON schemas: one single-read-endpoint wrapper per schema, plus a per-kind
// enumeration schema and its catalog-level wrapper.
package openapi

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"git.home.luguber.info/inful/dakhub/internal/qa"
	"git.home.luguber.info/inful/dakhub/internal/scan"
)

// Version is the OpenAPI version stamped into every synthesized document.
const Version = "3.0.3"

// Fixed per-kind filenames for catalog-level artifacts.
const (
	ValueSetEnumerationSpec     = "ValueSets-enumeration.openapi.json"
	LogicalModelEnumerationSpec = "LogicalModels-enumeration.openapi.json"
)

// SpecSuffix is the filename suffix of synthesized wrapper specs.
const SpecSuffix = ".openapi.json"

// Synthesizer builds OpenAPI wrapper documents. Identical schema input
// always yields byte-identical output; prior versions are overwritten
// unconditionally.
type Synthesizer struct {
	reporter *qa.Reporter
}

// NewSynthesizer creates a Synthesizer reporting into the given aggregator.
func NewSynthesizer(reporter *qa.Reporter) *Synthesizer {
	return &Synthesizer{reporter: reporter}
}

// WrapSchema reads the schema document and writes <item>.openapi.json beside
// it in outDir: a single GET endpoint serving the schema file, with the full
// schema embedded under components keyed by item name. The parsed schema is
// returned for callers that build summary entries from it.
func (s *Synthesizer) WrapSchema(schemaPath string, role scan.Role, outDir string) (string, map[string]any, error) {
	schema, err := readJSON(schemaPath)
	if err != nil {
		s.reporter.AddError("Error creating OpenAPI wrapper for "+schemaPath, map[string]any{"error": err.Error()})
		return "", nil, err
	}

	filename := filepath.Base(schemaPath)
	name := scan.ItemName(schemaPath)

	var summary, description string
	if role == scan.RoleValueSet {
		summary = fmt.Sprintf("JSON Schema definition for the enumeration %s", name)
		description = fmt.Sprintf("This endpoint serves the JSON Schema definition for the enumeration %s.", name)
	} else {
		summary = fmt.Sprintf("JSON Schema definition for the Logical Model %s", name)
		description = fmt.Sprintf("This endpoint serves the JSON Schema definition for the Logical Model %s.", name)
	}

	spec := map[string]any{
		"openapi": Version,
		"info": map[string]any{
			"title":       fmt.Sprintf("%s API", stringOr(schema, "title", name)),
			"description": stringOr(schema, "description", fmt.Sprintf("API for %s schema", name)),
			"version":     "1.0.0",
		},
		"paths": map[string]any{
			"/" + filename: map[string]any{
				"get": map[string]any{
					"summary":     summary,
					"description": description,
					"responses": map[string]any{
						"200": map[string]any{
							"description": fmt.Sprintf("The JSON Schema for %s", name),
							"content": map[string]any{
								"application/schema+json": map[string]any{
									"schema": map[string]any{"$ref": "./" + filename},
								},
							},
						},
					},
				},
			},
		},
		"components": map[string]any{
			"schemas": map[string]any{name: schema},
		},
	}

	specPath := filepath.Join(outDir, name+SpecSuffix)
	if err := writeJSON(specPath, spec); err != nil {
		s.reporter.AddError("Error writing OpenAPI wrapper for "+schemaPath, map[string]any{"error": err.Error()})
		return "", nil, err
	}

	slog.Info("Created OpenAPI wrapper", "path", specPath)
	return specPath, schema, nil
}

// WrapEnumeration writes the catalog-level OpenAPI spec exposing the
// enumeration schema as a single list-returning GET endpoint.
func (s *Synthesizer) WrapEnumeration(enumSchemaPath string, role scan.Role, outDir string) (string, error) {
	enumSchema, err := readJSON(enumSchemaPath)
	if err != nil {
		s.reporter.AddError("Error creating enumeration OpenAPI wrapper for "+enumSchemaPath, map[string]any{"error": err.Error()})
		return "", err
	}

	var endpointPath, title, description, filename string
	if role == scan.RoleValueSet {
		endpointPath = "/" + scan.ValueSetCatalogFile
		title = "ValueSets Enumeration API"
		description = "API endpoint providing an enumeration of all available ValueSet schemas"
		filename = ValueSetEnumerationSpec
	} else {
		endpointPath = "/" + scan.LogicalModelCatalogFile
		title = "LogicalModels Enumeration API"
		description = "API endpoint providing an enumeration of all available Logical Model schemas"
		filename = LogicalModelEnumerationSpec
	}

	example := enumSchema["example"]
	if example == nil {
		example = map[string]any{}
	}

	spec := map[string]any{
		"openapi": Version,
		"info": map[string]any{
			"title":       title,
			"description": description,
			"version":     "1.0.0",
		},
		"paths": map[string]any{
			endpointPath: map[string]any{
				"get": map[string]any{
					"summary":     fmt.Sprintf("Get enumeration of all %s schemas", role),
					"description": fmt.Sprintf("Returns a list of all available %s schemas with metadata", role),
					"responses": map[string]any{
						"200": map[string]any{
							"description": fmt.Sprintf("Successfully retrieved %s enumeration", role),
							"content": map[string]any{
								"application/json": map[string]any{
									"schema":  map[string]any{"$ref": "#/components/schemas/EnumerationResponse"},
									"example": example,
								},
							},
						},
					},
				},
			},
		},
		"components": map[string]any{
			"schemas": map[string]any{"EnumerationResponse": enumSchema},
		},
	}

	specPath := filepath.Join(outDir, filename)
	if err := writeJSON(specPath, spec); err != nil {
		s.reporter.AddError("Error writing enumeration OpenAPI wrapper", map[string]any{"error": err.Error()})
		return "", err
	}

	slog.Info("Created enumeration OpenAPI wrapper", "path", specPath)
	return specPath, nil
}

func stringOr(m map[string]any, key, fallback string) string {
	if s, ok := m[key].(string); ok && s != "" {
		return s
	}
	return fallback
}

func readJSON(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return doc, nil
}

// writeJSON marshals with stable (sorted-key) ordering so re-runs against
// unmodified inputs produce byte-identical files.
func writeJSON(path string, doc any) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	data = append(data, '\n')
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
