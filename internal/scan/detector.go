// Package scan walks the publisher output tree and classifies
// machine-readable artifacts by filename convention.
package scan

import (
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"git.home.luguber.info/inful/dakhub/internal/qa"
)

// Role is the closed classification tag assigned once at detection time.
// Later stages switch on this tag instead of re-deriving it from filenames.
type Role string

const (
	RoleValueSet     Role = "valueset"
	RoleLogicalModel Role = "logical_model"
	RoleOther        Role = "other"
)

// Filename conventions produced by the schema generation phases.
const (
	SchemaSuffix     = ".schema.json"
	VocabularySuffix = ".jsonld"

	valueSetPrefix   = "ValueSet-"
	codeSystemPrefix = "CodeSystem-"

	// CatalogSchemaFile names the per-kind enumeration schema written at the
	// output root; the files route to their kind's bucket, not the per-item one.
	ValueSetCatalogFile     = "ValueSets.schema.json"
	LogicalModelCatalogFile = "LogicalModels.schema.json"
)

// openAPITokens mark a filename as an API specification during the recursive
// OpenAPI walk.
var openAPITokens = []string{"openapi", "swagger", "api"}

// Detector classifies files in the output tree into typed buckets.
type Detector struct {
	reporter *qa.Reporter
}

// NewDetector creates a Detector reporting into the given aggregator.
func NewDetector(reporter *qa.Reporter) *Detector {
	return &Detector{reporter: reporter}
}

// FindSchemaFiles classifies every .schema.json file in dir into role
// buckets, preserving directory-listing order. A missing directory yields
// all-empty buckets and a warning; downstream stages then process zero items.
func (d *Detector) FindSchemaFiles(dir string) map[Role][]string {
	schemas := map[Role][]string{
		RoleValueSet:     {},
		RoleLogicalModel: {},
		RoleOther:        {},
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		slog.Warn("Schema directory does not exist", "dir", dir)
		d.reporter.AddWarning("Schema directory does not exist: "+dir, nil)
		return schemas
	}

	slog.Info("Scanning directory for schema files", "dir", dir)
	count := 0
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, SchemaSuffix) {
			continue
		}
		count++
		path := filepath.Join(dir, name)

		switch {
		case strings.HasPrefix(name, valueSetPrefix):
			schemas[RoleValueSet] = append(schemas[RoleValueSet], path)
		case name == ValueSetCatalogFile:
			schemas[RoleValueSet] = append(schemas[RoleValueSet], path)
		case name == LogicalModelCatalogFile:
			schemas[RoleLogicalModel] = append(schemas[RoleLogicalModel], path)
		case !strings.HasPrefix(name, codeSystemPrefix):
			schemas[RoleLogicalModel] = append(schemas[RoleLogicalModel], path)
		default:
			schemas[RoleOther] = append(schemas[RoleOther], path)
		}
	}

	slog.Info("Schema detection summary",
		"total", count,
		"valueset", len(schemas[RoleValueSet]),
		"logical_model", len(schemas[RoleLogicalModel]),
		"other", len(schemas[RoleOther]))

	if count == 0 {
		slog.Warn("No schema files found", "dir", dir)
	}
	return schemas
}

// FindVocabularyFiles locates JSON-LD vocabulary files restricted to
// ValueSet item names. Logical Model items never get vocabulary files, even
// when a same-named .jsonld exists.
func (d *Detector) FindVocabularyFiles(dir string) []string {
	vocabularies := []string{}

	entries, err := os.ReadDir(dir)
	if err != nil {
		slog.Warn("Vocabulary directory does not exist", "dir", dir)
		return vocabularies
	}

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, VocabularySuffix) {
			continue
		}
		if strings.HasPrefix(name, valueSetPrefix) {
			vocabularies = append(vocabularies, filepath.Join(dir, name))
		}
	}

	slog.Info("Vocabulary detection summary", "dir", dir, "found", len(vocabularies))
	return vocabularies
}

// FindOpenAPIFiles walks a possibly nested tree for pre-existing API
// specification files, matched by extension plus a filename token heuristic.
// Files named index.html are skipped; the legacy-extraction path handles them.
func (d *Detector) FindOpenAPIFiles(dir string) []string {
	found := []string{}

	if _, err := os.Stat(dir); err != nil {
		slog.Info("OpenAPI directory does not exist", "dir", dir)
		return found
	}

	err := filepath.WalkDir(dir, func(path string, entry fs.DirEntry, err error) error {
		if err != nil || entry.IsDir() {
			return err
		}
		name := strings.ToLower(entry.Name())
		if name == "index.html" {
			return nil
		}
		if !strings.HasSuffix(name, ".json") && !strings.HasSuffix(name, ".yaml") && !strings.HasSuffix(name, ".yml") {
			return nil
		}
		for _, token := range openAPITokens {
			if strings.Contains(name, token) {
				found = append(found, path)
				slog.Debug("Found OpenAPI file", "path", path)
				break
			}
		}
		return nil
	})
	if err != nil {
		slog.Warn("OpenAPI scan failed", "dir", dir, "error", err)
		d.reporter.AddWarning("OpenAPI scan failed for "+dir, map[string]any{"error": err.Error()})
	}

	slog.Info("OpenAPI detection summary", "dir", dir, "found", len(found))
	return found
}

// ItemName derives the item name from a schema file path by stripping the
// schema suffix.
func ItemName(schemaPath string) string {
	return strings.TrimSuffix(filepath.Base(schemaPath), SchemaSuffix)
}

// RoleForItem guesses the role of a spec-derived item name by its prefix,
// used only when a page carries no explicit per-item placeholder.
func RoleForItem(name string) Role {
	switch {
	case strings.HasPrefix(name, valueSetPrefix):
		return RoleValueSet
	case strings.HasPrefix(name, "StructureDefinition-"), strings.HasPrefix(name, "LogicalModel-"):
		return RoleLogicalModel
	default:
		return RoleOther
	}
}
