package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"git.home.luguber.info/inful/dakhub/internal/config"
	"git.home.luguber.info/inful/dakhub/internal/htmlpatch"
	"git.home.luguber.info/inful/dakhub/internal/hub"
	"git.home.luguber.info/inful/dakhub/internal/openapi"
	"git.home.luguber.info/inful/dakhub/internal/qa"
	"git.home.luguber.info/inful/dakhub/internal/refdoc"
	"git.home.luguber.info/inful/dakhub/internal/scan"
)

// Run executes the full pipeline and persists the merged QA report. The
// returned error is non-nil only for fatal conditions (missing output tree
// or landing page); all other failures are recorded in the QA report and the
// run is considered complete.
func Run(ctx context.Context, cfg *config.Config, reporter *qa.Reporter) error {
	st := newState(cfg, reporter)

	reporter.AddSuccess("Starting DAK API hub post-processing", nil)
	reporter.AddSuccess(fmt.Sprintf("Configured directories - Output: %s, OpenAPI: %s", cfg.OutputDir, cfg.OpenAPIDir), nil)

	if reporter.LoadExternal(cfg.QAPath()) {
		reporter.AddSuccess("Loaded existing publisher QA file for merging", nil)
	} else {
		reporter.AddWarning("No existing publisher QA file found - will create new one", nil)
	}

	runErr := runStages(ctx, st, []StageDef{
		{StageMergeComponents, stageMergeComponents},
		{StageValidateOutput, stageValidateOutput},
		{StageDetectArtifacts, stageDetectArtifacts},
		{StageSynthesize, stageSynthesize},
		{StageBuildCatalogs, stageBuildCatalogs},
		{StageInjectRefDocs, stageInjectRefDocs},
		{StageAssembleHub, stageAssembleHub},
	})

	status := qa.StatusCompleted
	switch {
	case runErr != nil:
		status = qa.StatusFailed
	case !st.HubInjected:
		status = qa.StatusCompletedWithErrors
	default:
		if _, _, errors := reporter.Counts(); errors > 0 {
			status = qa.StatusCompletedWithErrors
		}
	}

	persistReport(cfg, reporter, status)
	return runErr
}

// persistReport finalizes and writes the merged QA report, falling back to
// the sibling path when the canonical one is unwritable. A failed fallback
// is loudly logged but never alters the run's outcome.
func persistReport(cfg *config.Config, reporter *qa.Reporter, status qa.Status) {
	payload := reporter.Finalize(status)
	err := reporter.Save(cfg.QAPath(), payload)
	if err == nil {
		slog.Info("Final merged QA report saved", "path", cfg.QAPath())
		return
	}
	slog.Warn("Failed to save QA report to canonical path", "path", cfg.QAPath(), "error", err)
	if err := reporter.Save(cfg.QAFallbackPath(), payload); err == nil {
		slog.Info("QA report saved to fallback location", "path", cfg.QAFallbackPath())
	} else {
		slog.Error("Failed to save QA report to any location", "error", err)
	}
}

// stageMergeComponents probes the conventional locations for component QA
// reports from earlier phases and merges any it finds.
func stageMergeComponents(_ context.Context, st *State) error {
	for _, component := range config.ComponentReports {
		merged := false
		for _, dir := range st.Cfg.ComponentReportDirs {
			path := filepath.Join(dir, component.File)
			data, err := os.ReadFile(path)
			if err != nil {
				continue
			}
			var report map[string]any
			if err := json.Unmarshal(data, &report); err != nil {
				st.Reporter.AddWarning(fmt.Sprintf("Failed to merge %s QA report", component.Label), map[string]any{"path": path, "error": err.Error()})
				slog.Warn("Failed to parse component QA report", "path", path, "error", err)
				merged = true // do not retry other locations with a broken report present
				break
			}
			st.Reporter.MergeComponent(report)
			st.Reporter.AddSuccess(fmt.Sprintf("Merged %s QA report from %s", component.Label, path), nil)
			merged = true
			break
		}
		if !merged {
			st.Reporter.AddWarning(fmt.Sprintf("No %s QA report found", component.Label), nil)
		}
	}
	return nil
}

// stageValidateOutput checks the required inputs. A missing output tree or
// landing page is fatal; there is nothing to synthesize against or patch.
func stageValidateOutput(_ context.Context, st *State) error {
	cfg := st.Cfg

	entries, err := os.ReadDir(cfg.OutputDir)
	st.Reporter.AddFileExpected(cfg.OutputDir, err == nil)
	if err != nil {
		slog.Error("Output directory does not exist", "dir", cfg.OutputDir)
		return newFatalStageError(StageValidateOutput, fmt.Errorf("output directory does not exist: %s", cfg.OutputDir))
	}

	sample := make([]string, 0, 10)
	for _, entry := range entries {
		if len(sample) == 10 {
			break
		}
		sample = append(sample, entry.Name())
	}
	st.Reporter.AddSuccess(fmt.Sprintf("Output directory exists with %d items", len(entries)), map[string]any{"sample_files": sample})

	if err := os.MkdirAll(cfg.SchemaDir(), 0o755); err != nil {
		return newFatalStageError(StageValidateOutput, fmt.Errorf("failed to create schema directory: %w", err))
	}

	template, err := os.ReadFile(cfg.HubPage())
	if err != nil {
		slog.Error("Cannot find landing page in output directory", "path", cfg.HubPage())
		st.Reporter.AddError("Landing page not found: "+cfg.HubPage(), nil)
		return newFatalStageError(StageValidateOutput, fmt.Errorf("landing page not found: %s", cfg.HubPage()))
	}

	switch {
	case strings.Contains(string(template), `id="`+htmlpatch.PlaceholderID+`"`):
		slog.Info("Found hub placeholder element for content injection")
	case strings.Contains(string(template), htmlpatch.LegacyMarker):
		slog.Info("Found legacy comment marker for content injection")
	default:
		slog.Warn("No hub placeholder found - content injection may fail", "path", cfg.HubPage())
	}
	return nil
}

// stageDetectArtifacts classifies schemas, vocabularies and pre-existing
// specs, and attempts legacy HTML extraction.
func stageDetectArtifacts(_ context.Context, st *State) error {
	cfg := st.Cfg

	st.Schemas = st.Detector.FindSchemaFiles(cfg.SchemaDir())
	for _, role := range []scan.Role{scan.RoleValueSet, scan.RoleLogicalModel, scan.RoleOther} {
		for _, path := range st.Schemas[role] {
			st.Reporter.AddFileProcessed(path, string(role)+"_schema_detected", nil)
		}
	}

	st.Vocabularies = st.Detector.FindVocabularyFiles(cfg.SchemaDir())
	seen := map[string]bool{}
	for _, path := range st.Vocabularies {
		seen[filepath.Base(path)] = true
	}
	for _, path := range st.Detector.FindVocabularyFiles(cfg.VocabularyDir()) {
		if !seen[filepath.Base(path)] {
			st.Vocabularies = append(st.Vocabularies, path)
			seen[filepath.Base(path)] = true
		}
	}
	describeVocabularies(st)

	st.ExistingSpecs = append(st.Detector.FindOpenAPIFiles(cfg.OpenAPIDir), st.Detector.FindOpenAPIFiles(cfg.OutputOpenAPIDir())...)

	st.LegacyHTML = st.Assembler.ExtractLegacy(cfg.OpenAPIDir, cfg.OutputOpenAPIDir())
	return nil
}

// describeVocabularies lifts title and description metadata from each
// JSON-LD vocabulary's @graph enumeration entry for the run summary.
func describeVocabularies(st *State) {
	for _, path := range st.Vocabularies {
		data, err := os.ReadFile(path)
		if err != nil {
			st.Reporter.AddError("Error processing JSON-LD vocabulary "+path, map[string]any{"error": err.Error()})
			continue
		}
		var vocab map[string]any
		if err := json.Unmarshal(data, &vocab); err != nil {
			st.Reporter.AddError("Error processing JSON-LD vocabulary "+path, map[string]any{"error": err.Error()})
			continue
		}

		title := filepath.Base(path)
		description := "JSON-LD vocabulary for ValueSet enumeration"
		if graph, ok := vocab["@graph"].([]any); ok {
			for _, item := range graph {
				entry, ok := item.(map[string]any)
				if !ok || entry["type"] != "schema:Enumeration" {
					continue
				}
				if name, ok := entry["name"].(string); ok {
					title = name + " JSON-LD Vocabulary"
				}
				if comment, ok := entry["comment"].(string); ok {
					description = comment
				}
				break
			}
		}
		st.Reporter.AddFileProcessed(path, "vocabulary_detected", map[string]any{"title": title, "description": description})
	}
}

// stageSynthesize wraps every classified schema in an OpenAPI spec and
// builds the hub entries. Items that fail to read or write are dropped from
// the live classification so no downstream stage references them.
func stageSynthesize(_ context.Context, st *State) error {
	for _, role := range []scan.Role{scan.RoleValueSet, scan.RoleLogicalModel} {
		kept := make([]string, 0, len(st.Schemas[role]))
		for _, schemaPath := range st.Schemas[role] {
			_, schema, err := st.Synthesizer.WrapSchema(schemaPath, role, st.Cfg.SchemaDir())
			if err != nil {
				slog.Error("Skipping schema after wrapper failure", "path", schemaPath, "error", err)
				continue
			}
			kept = append(kept, schemaPath)
			st.SchemaDocs[role] = append(st.SchemaDocs[role], buildEntry(st.Cfg, schemaPath, schema, role))
		}
		st.Schemas[role] = kept
	}
	return nil
}

// buildEntry assembles the hub view-model for one schema item, probing for
// sibling artifacts. Vocabulary links attach to ValueSet items only.
func buildEntry(cfg *config.Config, schemaPath string, schema map[string]any, role scan.Role) hub.Entry {
	name := scan.ItemName(schemaPath)
	filename := filepath.Base(schemaPath)

	defaultDescription := "Logical Model schema documentation"
	if role == scan.RoleValueSet {
		defaultDescription = "ValueSet schema documentation"
	}

	entry := hub.Entry{
		Title:       stringField(schema, "title", name+" Schema Documentation"),
		Description: stringField(schema, "description", defaultDescription),
		HTMLFile:    name + ".html",
		SchemaFile:  "schemas/" + filename,
	}

	if fileExists(filepath.Join(cfg.SchemaDir(), name+".displays.json")) {
		entry.DisplaysFile = "schemas/" + name + ".displays.json"
	}
	if fileExists(filepath.Join(cfg.SchemaDir(), name+openapi.SpecSuffix)) {
		entry.SpecFile = "schemas/" + name + openapi.SpecSuffix
	}
	if role == scan.RoleValueSet && fileExists(filepath.Join(cfg.SchemaDir(), name+scan.VocabularySuffix)) {
		entry.VocabularyFile = "schemas/" + name + scan.VocabularySuffix
	}
	return entry
}

// stageBuildCatalogs regenerates the per-kind enumeration schema and its
// catalog-level spec from the live classification, for each kind present.
func stageBuildCatalogs(_ context.Context, st *State) error {
	for _, role := range []scan.Role{scan.RoleValueSet, scan.RoleLogicalModel} {
		if len(st.Schemas[role]) == 0 {
			continue
		}
		enumPath, err := st.Synthesizer.BuildEnumerationSchema(role, st.Schemas[role], st.Cfg.OutputDir)
		if err != nil {
			continue
		}
		if _, err := st.Synthesizer.WrapEnumeration(enumPath, role, st.Cfg.OutputDir); err != nil {
			continue
		}

		if role == scan.RoleValueSet {
			st.EnumDocs = append(st.EnumDocs, hub.EnumerationDoc{
				Role:        role,
				Title:       scan.ValueSetCatalogFile,
				Description: "Enumeration of all available ValueSet schemas",
				HTMLFile:    "ValueSets-enumeration.html",
			})
		} else {
			st.EnumDocs = append(st.EnumDocs, hub.EnumerationDoc{
				Role:        role,
				Title:       scan.LogicalModelCatalogFile,
				Description: "Enumeration of all available Logical Model schemas",
				HTMLFile:    "LogicalModels-enumeration.html",
			})
		}
	}
	return nil
}

// stageInjectRefDocs collects every specification file (synthesized plus
// pre-existing, de-duplicated by filename), embeds each into its per-item
// page best-effort, and records the combined API doc list for the hub.
func stageInjectRefDocs(_ context.Context, st *State) error {
	st.GeneratedSpecs = st.Detector.FindOpenAPIFiles(st.Cfg.SchemaDir())

	seen := map[string]bool{}
	var all []string
	for _, path := range append(append([]string{}, st.GeneratedSpecs...), st.ExistingSpecs...) {
		name := filepath.Base(path)
		if seen[name] {
			continue
		}
		seen[name] = true
		all = append(all, path)
	}

	for _, specPath := range all {
		filename := filepath.Base(specPath)
		cleanName := refdoc.SpecName(specPath)

		pageFile := st.Renderer.InjectIntoPage(specPath, st.Cfg.OutputDir)

		st.APIDocs = append(st.APIDocs, hub.APIDoc{
			Title:       cleanName + " API",
			Description: "OpenAPI specification for " + cleanName,
			FilePath:    relativeLink(st.Cfg, specPath),
			Filename:    filename,
			HTMLFile:    pageFile,
		})
	}

	st.Reporter.AddSuccess("Documentation summary completed", map[string]any{
		"valueset_schema_docs":      len(st.SchemaDocs[scan.RoleValueSet]),
		"logical_model_schema_docs": len(st.SchemaDocs[scan.RoleLogicalModel]),
		"enumeration_endpoints":     len(st.EnumDocs),
		"jsonld_vocabularies":       len(st.Vocabularies),
		"openapi_docs":              len(st.APIDocs),
	})
	return nil
}

// relativeLink derives a hub link for a spec file: its path relative to the
// output root when inside it, else the conventional images/openapi location.
func relativeLink(cfg *config.Config, specPath string) string {
	if rel, err := filepath.Rel(cfg.OutputDir, specPath); err == nil && !strings.HasPrefix(rel, "..") {
		return filepath.ToSlash(rel)
	}
	return "images/openapi/" + filepath.Base(specPath)
}

// stageAssembleHub composes the hub fragment and injects it into the
// landing page. Injection failure is recorded but does not abort the run;
// page existence was already validated.
func stageAssembleHub(_ context.Context, st *State) error {
	st.HubInjected = st.Assembler.PostProcess(st.Cfg.HubPage(), st.SchemaDocs, st.APIDocs, st.EnumDocs, st.LegacyHTML)
	if st.HubInjected {
		slog.Info("DAK API documentation generation completed successfully")
	} else {
		slog.Warn("DAK API documentation generation completed with errors - see QA report for details")
	}
	return nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func stringField(m map[string]any, key, fallback string) string {
	if s, ok := m[key].(string); ok && s != "" {
		return s
	}
	return fallback
}
