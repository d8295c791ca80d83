package scan

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/dakhub/internal/qa"
)

func writeFiles(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, name := range names {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte("{}"), 0o644))
	}
}

func TestFindSchemaFiles_ClassifiesEveryFileExactlyOnce(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir,
		"ValueSet-Color.schema.json",
		"CodeSystem-Color.schema.json",
		"PatientModel.schema.json",
		"ValueSets.schema.json",
		"LogicalModels.schema.json",
		"notes.txt",
	)

	d := NewDetector(qa.NewReporter("test"))
	schemas := d.FindSchemaFiles(dir)

	require.Len(t, schemas[RoleValueSet], 2)
	require.Len(t, schemas[RoleLogicalModel], 2)
	require.Len(t, schemas[RoleOther], 1)

	total := len(schemas[RoleValueSet]) + len(schemas[RoleLogicalModel]) + len(schemas[RoleOther])
	require.Equal(t, 5, total)
}

func TestFindSchemaFiles_PrefixBeatsCatalogName(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "ValueSet-ValueSets.schema.json")

	d := NewDetector(qa.NewReporter("test"))
	schemas := d.FindSchemaFiles(dir)

	require.Len(t, schemas[RoleValueSet], 1)
	require.Empty(t, schemas[RoleLogicalModel])
}

func TestFindSchemaFiles_MissingDir_EmptyBucketsAndWarning(t *testing.T) {
	reporter := qa.NewReporter("test")
	d := NewDetector(reporter)

	schemas := d.FindSchemaFiles(filepath.Join(t.TempDir(), "nope"))

	require.Empty(t, schemas[RoleValueSet])
	require.Empty(t, schemas[RoleLogicalModel])
	require.Empty(t, schemas[RoleOther])
	_, warnings, _ := reporter.Counts()
	require.Equal(t, 1, warnings)
}

func TestFindVocabularyFiles_OnlyValueSetNames(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir,
		"ValueSet-Color.jsonld",
		"PatientModel.jsonld",
		"ValueSet-Color.schema.json",
	)

	d := NewDetector(qa.NewReporter("test"))
	vocabularies := d.FindVocabularyFiles(dir)

	require.Len(t, vocabularies, 1)
	require.Equal(t, "ValueSet-Color.jsonld", filepath.Base(vocabularies[0]))
}

func TestFindOpenAPIFiles_TokenHeuristicAndIndexSkip(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir,
		"swagger.yaml",
		filepath.Join("nested", "my-api.json"),
		filepath.Join("nested", "petstore.openapi.yml"),
		"index.html",
		"readme.md",
		"data.json",
	)

	d := NewDetector(qa.NewReporter("test"))
	found := d.FindOpenAPIFiles(dir)

	names := make([]string, len(found))
	for i, path := range found {
		names[i] = filepath.Base(path)
	}
	require.ElementsMatch(t, []string{"swagger.yaml", "my-api.json", "petstore.openapi.yml"}, names)
}

func TestFindOpenAPIFiles_MissingDir_Empty(t *testing.T) {
	d := NewDetector(qa.NewReporter("test"))
	require.Empty(t, d.FindOpenAPIFiles(filepath.Join(t.TempDir(), "nope")))
}

func TestItemName_StripsSchemaSuffix(t *testing.T) {
	require.Equal(t, "ValueSet-Color", ItemName("/out/schemas/ValueSet-Color.schema.json"))
}

func TestRoleForItem(t *testing.T) {
	require.Equal(t, RoleValueSet, RoleForItem("ValueSet-Color"))
	require.Equal(t, RoleLogicalModel, RoleForItem("StructureDefinition-Patient"))
	require.Equal(t, RoleLogicalModel, RoleForItem("LogicalModel-Visit"))
	require.Equal(t, RoleOther, RoleForItem("something-else"))
}
