package openapi

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/dakhub/internal/qa"
	"git.home.luguber.info/inful/dakhub/internal/scan"
)

func writeSchema(t *testing.T, dir, name string, doc map[string]any) string {
	t.Helper()
	data, err := json.Marshal(doc)
	require.NoError(t, err)
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func readDoc(t *testing.T, path string) map[string]any {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var doc map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))
	return doc
}

func TestWrapSchema_SingleEndpointWithEmbeddedSchema(t *testing.T) {
	dir := t.TempDir()
	schemaPath := writeSchema(t, dir, "ValueSet-Color.schema.json", map[string]any{
		"title":       "Color",
		"description": "Available colors",
		"enum":        []any{"red", "green"},
	})

	s := NewSynthesizer(qa.NewReporter("test"))
	specPath, schema, err := s.WrapSchema(schemaPath, scan.RoleValueSet, dir)
	require.NoError(t, err)
	require.Equal(t, "Color", schema["title"])
	require.Equal(t, filepath.Join(dir, "ValueSet-Color.openapi.json"), specPath)

	spec := readDoc(t, specPath)
	require.Equal(t, Version, spec["openapi"])

	info := spec["info"].(map[string]any)
	require.Equal(t, "Color API", info["title"])
	require.Equal(t, "Available colors", info["description"])

	paths := spec["paths"].(map[string]any)
	require.Contains(t, paths, "/ValueSet-Color.schema.json")
	get := paths["/ValueSet-Color.schema.json"].(map[string]any)["get"].(map[string]any)
	content := get["responses"].(map[string]any)["200"].(map[string]any)["content"].(map[string]any)
	ref := content["application/schema+json"].(map[string]any)["schema"].(map[string]any)
	require.Equal(t, "./ValueSet-Color.schema.json", ref["$ref"])

	schemas := spec["components"].(map[string]any)["schemas"].(map[string]any)
	embedded := schemas["ValueSet-Color"].(map[string]any)
	require.Equal(t, "Color", embedded["title"])
}

func TestWrapSchema_Rerun_ByteIdenticalOutput(t *testing.T) {
	dir := t.TempDir()
	schemaPath := writeSchema(t, dir, "PatientModel.schema.json", map[string]any{
		"title":      "Patient",
		"properties": map[string]any{"name": map[string]any{"type": "string"}},
	})

	s := NewSynthesizer(qa.NewReporter("test"))
	specPath, _, err := s.WrapSchema(schemaPath, scan.RoleLogicalModel, dir)
	require.NoError(t, err)
	first, err := os.ReadFile(specPath)
	require.NoError(t, err)

	_, _, err = NewSynthesizer(qa.NewReporter("test")).WrapSchema(schemaPath, scan.RoleLogicalModel, dir)
	require.NoError(t, err)
	second, err := os.ReadFile(specPath)
	require.NoError(t, err)

	require.Equal(t, first, second)
}

func TestWrapSchema_UnreadableSchema_OneErrorRecorded(t *testing.T) {
	dir := t.TempDir()
	badPath := filepath.Join(dir, "Broken.schema.json")
	require.NoError(t, os.WriteFile(badPath, []byte("{not json"), 0o644))

	reporter := qa.NewReporter("test")
	s := NewSynthesizer(reporter)
	_, _, err := s.WrapSchema(badPath, scan.RoleLogicalModel, dir)
	require.Error(t, err)

	_, _, errors := reporter.Counts()
	require.Equal(t, 1, errors)
}

func TestBuildEnumerationSchema_CountMatchesEntries(t *testing.T) {
	dir := t.TempDir()
	foo := writeSchema(t, dir, "ValueSet-Foo.schema.json", map[string]any{
		"$id":           "http://example.org/ValueSet-Foo",
		"title":         "Foo",
		"description":   "Foo values",
		"fhir:valueSet": "http://example.org/fhir/ValueSet/Foo",
		"enum":          []any{"a", "b", "c"},
	})
	bar := writeSchema(t, dir, "ValueSet-Bar.schema.json", map[string]any{
		"title": "Bar",
	})

	s := NewSynthesizer(qa.NewReporter("test"))
	enumPath, err := s.BuildEnumerationSchema(scan.RoleValueSet, []string{foo, bar}, dir)
	require.NoError(t, err)
	require.Equal(t, "ValueSets.schema.json", filepath.Base(enumPath))

	doc := readDoc(t, enumPath)
	example := doc["example"].(map[string]any)
	entries := example["schemas"].([]any)
	require.Equal(t, float64(len(entries)), example["count"])
	require.Len(t, entries, 2)

	want := map[string]any{
		"filename":    "ValueSet-Foo.schema.json",
		"id":          "http://example.org/ValueSet-Foo",
		"title":       "Foo",
		"description": "Foo values",
		"url":         "./ValueSet-Foo.schema.json",
		"valueSetUrl": "http://example.org/fhir/ValueSet/Foo",
		"codeCount":   float64(3),
	}
	require.Empty(t, cmp.Diff(want, entries[0]))

	second := entries[1].(map[string]any)
	require.Equal(t, "Bar", second["title"])
	require.NotContains(t, second, "codeCount")
}

func TestBuildEnumerationSchema_UnreadableItemSkipped(t *testing.T) {
	dir := t.TempDir()
	paths := []string{
		writeSchema(t, dir, "A.schema.json", map[string]any{"title": "A", "properties": map[string]any{}}),
		filepath.Join(dir, "missing.schema.json"),
		writeSchema(t, dir, "C.schema.json", map[string]any{"title": "C"}),
	}

	reporter := qa.NewReporter("test")
	s := NewSynthesizer(reporter)
	enumPath, err := s.BuildEnumerationSchema(scan.RoleLogicalModel, paths, dir)
	require.NoError(t, err)

	doc := readDoc(t, enumPath)
	example := doc["example"].(map[string]any)
	require.Equal(t, float64(2), example["count"])

	_, _, errors := reporter.Counts()
	require.Equal(t, 1, errors)
}

func TestWrapEnumeration_ExposesCatalogEndpointWithExample(t *testing.T) {
	dir := t.TempDir()
	s := NewSynthesizer(qa.NewReporter("test"))

	schemaPath := writeSchema(t, dir, "Model.schema.json", map[string]any{"title": "Model"})
	enumPath, err := s.BuildEnumerationSchema(scan.RoleLogicalModel, []string{schemaPath}, dir)
	require.NoError(t, err)

	specPath, err := s.WrapEnumeration(enumPath, scan.RoleLogicalModel, dir)
	require.NoError(t, err)
	require.Equal(t, LogicalModelEnumerationSpec, filepath.Base(specPath))

	spec := readDoc(t, specPath)
	paths := spec["paths"].(map[string]any)
	require.Contains(t, paths, "/LogicalModels.schema.json")

	get := paths["/LogicalModels.schema.json"].(map[string]any)["get"].(map[string]any)
	body := get["responses"].(map[string]any)["200"].(map[string]any)["content"].(map[string]any)["application/json"].(map[string]any)
	require.Equal(t, "#/components/schemas/EnumerationResponse", body["schema"].(map[string]any)["$ref"])

	example := body["example"].(map[string]any)
	require.Equal(t, float64(1), example["count"])

	schemas := spec["components"].(map[string]any)["schemas"].(map[string]any)
	require.Contains(t, schemas, "EnumerationResponse")
}
