package openapi

import (
	"log/slog"
	"path/filepath"

	"git.home.luguber.info/inful/dakhub/internal/scan"
)

// BuildEnumerationSchema regenerates the per-kind catalog schema wholesale
// from the live item list and writes it under the fixed per-kind filename in
// outDir. An unreadable item is logged and skipped; it does not appear in
// the catalog and does not abort the batch.
func (s *Synthesizer) BuildEnumerationSchema(role scan.Role, schemaPaths []string, outDir string) (string, error) {
	items := make([]any, 0, len(schemaPaths))
	for _, schemaPath := range schemaPaths {
		schema, err := readJSON(schemaPath)
		if err != nil {
			slog.Warn("Error reading schema for enumeration", "path", schemaPath, "error", err)
			s.reporter.AddError("Error reading schema "+schemaPath, map[string]any{"error": err.Error()})
			continue
		}

		filename := filepath.Base(schemaPath)
		entry := map[string]any{
			"filename":    filename,
			"id":          stringOr(schema, "$id", ""),
			"title":       stringOr(schema, "title", filename),
			"description": stringOr(schema, "description", ""),
			"url":         "./" + filename,
		}

		if role == scan.RoleValueSet {
			if vs, ok := schema["fhir:valueSet"]; ok {
				entry["valueSetUrl"] = vs
			}
			if enum, ok := schema["enum"].([]any); ok {
				entry["codeCount"] = len(enum)
			}
		} else {
			if lm, ok := schema["fhir:logicalModel"]; ok {
				entry["logicalModelUrl"] = lm
			}
			if props, ok := schema["properties"].(map[string]any); ok {
				entry["propertyCount"] = len(props)
			}
		}

		items = append(items, entry)
	}

	var filename, title, description string
	if role == scan.RoleValueSet {
		filename = scan.ValueSetCatalogFile
		title = "ValueSet Enumeration Schema"
		description = "JSON Schema defining the structure of the ValueSet enumeration endpoint response"
	} else {
		filename = scan.LogicalModelCatalogFile
		title = "Logical Model Enumeration Schema"
		description = "JSON Schema defining the structure of the Logical Model enumeration endpoint response"
	}

	itemProperties := map[string]any{
		"filename":    map[string]any{"type": "string"},
		"id":          map[string]any{"type": "string"},
		"title":       map[string]any{"type": "string"},
		"description": map[string]any{"type": "string"},
		"url":         map[string]any{"type": "string"},
	}
	if role == scan.RoleValueSet {
		itemProperties["valueSetUrl"] = map[string]any{"type": "string"}
		itemProperties["codeCount"] = map[string]any{"type": "integer"}
	} else {
		itemProperties["logicalModelUrl"] = map[string]any{"type": "string"}
		itemProperties["propertyCount"] = map[string]any{"type": "integer"}
	}

	enumSchema := map[string]any{
		"$schema":     "https://json-schema.org/draft/2020-12/schema",
		"$id":         "#/" + filename,
		"title":       title,
		"description": description,
		"type":        "object",
		"properties": map[string]any{
			"type":  map[string]any{"type": "string", "const": string(role)},
			"count": map[string]any{"type": "integer"},
			"schemas": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type":       "object",
					"properties": itemProperties,
					"required":   []any{"filename", "title", "url"},
				},
			},
		},
		"required": []any{"type", "count", "schemas"},
		"example": map[string]any{
			"type":    string(role),
			"count":   len(items),
			"schemas": items,
		},
	}

	enumPath := filepath.Join(outDir, filename)
	if err := writeJSON(enumPath, enumSchema); err != nil {
		s.reporter.AddError("Error creating enumeration schema for "+string(role), map[string]any{"error": err.Error()})
		return "", err
	}

	slog.Info("Created enumeration schema", "path", enumPath, "items", len(items))
	return enumPath, nil
}
