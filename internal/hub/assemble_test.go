package hub

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/dakhub/internal/htmlpatch"
	"git.home.luguber.info/inful/dakhub/internal/qa"
	"git.home.luguber.info/inful/dakhub/internal/scan"
)

func sampleDocs() (map[scan.Role][]Entry, []APIDoc, []EnumerationDoc) {
	schemaDocs := map[scan.Role][]Entry{
		scan.RoleValueSet: {{
			Title:          "Color",
			Description:    "Available colors",
			HTMLFile:       "ValueSet-Color.html",
			SchemaFile:     "schemas/ValueSet-Color.schema.json",
			VocabularyFile: "schemas/ValueSet-Color.jsonld",
			SpecFile:       "schemas/ValueSet-Color.openapi.json",
		}},
		scan.RoleLogicalModel: {{
			Title:       "Patient",
			Description: "Patient data model",
			HTMLFile:    "StructureDefinition-Patient.html",
			SchemaFile:  "schemas/StructureDefinition-Patient.schema.json",
		}},
	}
	apiDocs := []APIDoc{{
		Title:       "Petstore",
		Description: "Existing API spec",
		FilePath:    "images/openapi/petstore-api.json",
		Filename:    "petstore-api.json",
		HTMLFile:    "petstore-api.html",
	}}
	enums := []EnumerationDoc{
		{Role: scan.RoleValueSet, Title: "ValueSets Enumeration", Description: "All ValueSet schemas", HTMLFile: "ValueSets-enumeration.html"},
		{Role: scan.RoleLogicalModel, Title: "LogicalModels Enumeration", Description: "All Logical Model schemas", HTMLFile: "LogicalModels-enumeration.html"},
	}
	return schemaDocs, apiDocs, enums
}

func newAssembler(t *testing.T, outputDir string) (*Assembler, *qa.Reporter) {
	t.Helper()
	reporter := qa.NewReporter("test")
	injector := htmlpatch.NewInjector(reporter, 100)
	return NewAssembler(reporter, injector, outputDir, DOMExtractor{}), reporter
}

func TestAssemble_FixedSectionOrder(t *testing.T) {
	a, _ := newAssembler(t, t.TempDir())
	schemaDocs, apiDocs, enums := sampleDocs()

	fragment := a.Assemble(schemaDocs, apiDocs, enums, "<p>legacy docs</p>")

	sections := []string{
		"API Enumeration Endpoints",
		"ValueSet Schemas (1 available)",
		"Logical Model Schemas (1 available)",
		"OpenAPI Documentation",
		"Existing API Documentation",
		"usage-info",
	}
	last := -1
	for _, section := range sections {
		idx := strings.Index(fragment, section)
		require.Greater(t, idx, last, "section %q out of order", section)
		last = idx
	}
	require.Contains(t, fragment, "<p>legacy docs</p>")
	require.Contains(t, fragment, "automatically generated")
}

func TestAssemble_ConditionalLinksRequireFilesOnDisk(t *testing.T) {
	outputDir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(outputDir, "schemas"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(outputDir, "schemas", "ValueSet-Color.jsonld"), []byte("{}"), 0o644))

	a, _ := newAssembler(t, outputDir)
	schemaDocs, apiDocs, enums := sampleDocs()

	fragment := a.Assemble(schemaDocs, apiDocs, enums, "")

	// The vocabulary file exists, the spec file does not.
	require.Contains(t, fragment, `href="schemas/ValueSet-Color.jsonld"`)
	require.NotContains(t, fragment, `href="schemas/ValueSet-Color.openapi.json" class="schema-link" title="OpenAPI Specification"`)
}

func TestAssemble_EmptyInput_StillRendersUsageBlock(t *testing.T) {
	a, _ := newAssembler(t, t.TempDir())

	fragment := a.Assemble(map[scan.Role][]Entry{}, nil, nil, "")

	require.NotContains(t, fragment, "API Enumeration Endpoints")
	require.NotContains(t, fragment, "ValueSet Schemas")
	require.Contains(t, fragment, "usage-info")
}

func TestAssemble_CatalogCardsPerKind(t *testing.T) {
	a, _ := newAssembler(t, t.TempDir())
	schemaDocs, apiDocs, enums := sampleDocs()

	fragment := a.Assemble(schemaDocs, apiDocs, enums, "")

	require.Contains(t, fragment, "ValueSets Enumeration Endpoint")
	require.Contains(t, fragment, "LogicalModels Enumeration Endpoint")
	require.Contains(t, fragment, `href="ValueSets-enumeration.openapi.json"`)
	require.Contains(t, fragment, `href="LogicalModels-enumeration.openapi.json"`)
}

func TestPostProcess_InjectsAndConsumesPlaceholder(t *testing.T) {
	outputDir := t.TempDir()
	hubPage := filepath.Join(outputDir, "dak-api.html")
	page := `<html><body><div id="dak-api-content-placeholder"><p>Loading...</p></div></body></html>`
	require.NoError(t, os.WriteFile(hubPage, []byte(page), 0o644))

	a, _ := newAssembler(t, outputDir)
	schemaDocs, apiDocs, enums := sampleDocs()

	require.True(t, a.PostProcess(hubPage, schemaDocs, apiDocs, enums, ""))

	data, err := os.ReadFile(hubPage)
	require.NoError(t, err)
	require.NotContains(t, string(data), htmlpatch.PlaceholderID)
	require.Contains(t, string(data), "ValueSet Schemas (1 available)")
}

func TestPostProcess_MissingLandingPage_Fails(t *testing.T) {
	outputDir := t.TempDir()
	a, reporter := newAssembler(t, outputDir)

	require.False(t, a.PostProcess(filepath.Join(outputDir, "dak-api.html"), map[scan.Role][]Entry{}, nil, nil, ""))

	_, _, errors := reporter.Counts()
	require.Equal(t, 1, errors)
}

func TestExtractLegacy_FirstDirectoryWithIndexWins(t *testing.T) {
	empty := t.TempDir()
	withIndex := t.TempDir()
	page := `<html><body><div class="container"><h1>Old API docs</h1></div><script>alert(1)</script></body></html>`
	require.NoError(t, os.WriteFile(filepath.Join(withIndex, "index.html"), []byte(page), 0o644))

	a, _ := newAssembler(t, t.TempDir())
	content := a.ExtractLegacy(empty, withIndex)

	require.Contains(t, content, "Old API docs")
	require.NotContains(t, content, "alert(1)")
}

func TestExtractLegacy_NoExtractor_WarningAndEmpty(t *testing.T) {
	reporter := qa.NewReporter("test")
	a := NewAssembler(reporter, htmlpatch.NewInjector(reporter, 100), t.TempDir(), nil)

	require.Empty(t, a.ExtractLegacy(t.TempDir()))
	_, warnings, _ := reporter.Counts()
	require.Equal(t, 1, warnings)
}
