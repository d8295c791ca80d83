package hub

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"git.home.luguber.info/inful/dakhub/internal/htmlpatch"
	"git.home.luguber.info/inful/dakhub/internal/qa"
	"git.home.luguber.info/inful/dakhub/internal/scan"
)

const hubStyle = `
<style>
.dak-api-hub { margin: 1rem 0; }
.enumeration-endpoints, .schema-grid {
  display: grid;
  grid-template-columns: repeat(auto-fit, minmax(300px, 1fr));
  gap: 1rem;
  margin: 1rem 0;
}
.endpoint-card, .schema-card {
  border: 1px solid #dee2e6;
  border-radius: 4px;
  padding: 1rem;
  background: #f8f9fa;
  transition: box-shadow 0.2s ease;
}
.endpoint-card:hover, .schema-card:hover { box-shadow: 0 2px 8px rgba(0,0,0,0.1); }
.endpoint-card h4, .schema-card h4 { margin: 0 0 0.5rem 0; color: #00477d; }
.endpoint-card h4 a, .schema-card h4 a { color: #00477d; text-decoration: none; }
.endpoint-card h4 a:hover, .schema-card h4 a:hover { color:#0070A1; text-decoration: underline; }
.endpoint-card p, .schema-card p { margin: 0 0 0.5rem 0; color:#6c757d; font-size: 0.9rem; }
.schema-links { margin-top: 0.75rem; display: flex; flex-wrap: wrap; gap: 0.5rem; }
.schema-link {
  display:inline-block; background:#17a2b8; color:white; padding:0.25rem 0.5rem;
  border-radius:3px; text-decoration:none; font-size:0.8rem; font-weight:500;
}
.schema-link:hover { background:#138496; color:white; text-decoration:none; }
.schema-link.fhir-link { background:#28a745; }
.schema-link.fhir-link:hover { background:#218838; }
.usage-info { background:#e7f3ff; border:1px solid #b8daff; border-radius:4px; padding:1.5rem; margin:1.5rem 0; }
.usage-info h4 { color:#00477d; margin-top:1rem; }
.usage-info h4:first-child { margin-top:0; }
</style>

<hr>
<p><em>This documentation hub is automatically generated from the available schema and API definitions.</em></p>
`

// Assembler composes the hub fragment and drives its injection into the
// landing page.
type Assembler struct {
	reporter  *qa.Reporter
	injector  *htmlpatch.Injector
	outputDir string
	extractor ContentExtractor
}

// NewAssembler creates an Assembler. extractor may be nil, in which case the
// legacy-content section is omitted.
func NewAssembler(reporter *qa.Reporter, injector *htmlpatch.Injector, outputDir string, extractor ContentExtractor) *Assembler {
	return &Assembler{reporter: reporter, injector: injector, outputDir: outputDir, extractor: extractor}
}

// exists re-probes a link target relative to the output root. Conditional
// card links are only emitted for files actually present on disk.
func (a *Assembler) exists(rel string) bool {
	if rel == "" {
		return false
	}
	_, err := os.Stat(filepath.Join(a.outputDir, rel))
	return err == nil
}

// ExtractLegacy attempts legacy content extraction from the first index.html
// found under the given directories. Failures are warnings, never fatal.
func (a *Assembler) ExtractLegacy(dirs ...string) string {
	if a.extractor == nil {
		slog.Warn("No HTML content extractor available, omitting legacy section")
		a.reporter.AddWarning("Legacy HTML extraction unavailable", nil)
		return ""
	}
	for _, dir := range dirs {
		indexPath := filepath.Join(dir, "index.html")
		if _, err := os.Stat(indexPath); err != nil {
			slog.Info("No existing index.html found", "dir", dir)
			continue
		}
		content, err := a.extractor.Extract(indexPath)
		if err != nil {
			slog.Warn("Legacy HTML extraction failed", "path", indexPath, "error", err)
			a.reporter.AddWarning("Legacy HTML extraction failed for "+indexPath, map[string]any{"error": err.Error()})
			continue
		}
		return content
	}
	return ""
}

// Assemble composes the hub fragment in fixed section order: catalog
// endpoints, ValueSet grid, Logical Model grid, combined API documentation
// grid, optional legacy section, usage guidance and style sheet.
func (a *Assembler) Assemble(schemaDocs map[scan.Role][]Entry, apiDocs []APIDoc, enums []EnumerationDoc, legacyHTML string) string {
	valueSets := schemaDocs[scan.RoleValueSet]
	logicalModels := schemaDocs[scan.RoleLogicalModel]

	var b strings.Builder
	b.WriteString(`<div class="dak-api-hub">` + "\n")

	if len(enums) > 0 {
		b.WriteString("<h3>API Enumeration Endpoints</h3>\n")
		b.WriteString("<p>These endpoints provide lists of all available schemas and vocabularies of each type:</p>\n")
		b.WriteString(`<div class="enumeration-endpoints">` + "\n")
		for _, enum := range enums {
			b.WriteString(`<div class="endpoint-card">` + "\n")
			fmt.Fprintf(&b, "<h4><a href=%q>%s</a></h4>\n", enum.HTMLFile, enum.Title)
			fmt.Fprintf(&b, "<p>%s</p>\n", enum.Description)
			b.WriteString(`<div class="endpoint-list"><h5>Available Endpoints:</h5>` + "\n<ul>\n")
			if enum.Role == scan.RoleValueSet {
				for _, s := range valueSets {
					fmt.Fprintf(&b, "<li><a href=%q>%s.schema.json</a> - JSON Schema for %s</li>\n", s.SchemaFile, itemName(s.SchemaFile), s.Title)
					if a.exists(s.VocabularyFile) {
						fmt.Fprintf(&b, "<li><a href=%q>%s.jsonld</a> - JSON-LD vocabulary for %s</li>\n", s.VocabularyFile, itemName(s.SchemaFile), s.Title)
					}
				}
			} else {
				for _, s := range logicalModels {
					fmt.Fprintf(&b, "<li><a href=%q>%s.schema.json</a> - JSON Schema for %s</li>\n", s.SchemaFile, itemName(s.SchemaFile), s.Title)
				}
			}
			b.WriteString("</ul></div></div>\n")
		}
		b.WriteString("</div>\n")
	}

	if len(valueSets) > 0 {
		fmt.Fprintf(&b, "<h3>ValueSet Schemas (%d available)</h3>\n", len(valueSets))
		b.WriteString("<p>JSON Schema definitions for FHIR ValueSets, providing structured enumeration of allowed code values:</p>\n")
		b.WriteString(`<div class="schema-grid">` + "\n")
		for _, s := range valueSets {
			a.writeItemCard(&b, s, true)
		}
		b.WriteString("</div>\n")
	}

	if len(logicalModels) > 0 {
		fmt.Fprintf(&b, "<h3>Logical Model Schemas (%d available)</h3>\n", len(logicalModels))
		b.WriteString("<p>JSON Schema definitions for FHIR Logical Models, defining structured data elements and their relationships:</p>\n")
		b.WriteString(`<div class="schema-grid">` + "\n")
		for _, s := range logicalModels {
			a.writeItemCard(&b, s, false)
		}
		b.WriteString("</div>\n")
	}

	if len(apiDocs) > 0 || len(valueSets) > 0 || len(logicalModels) > 0 {
		b.WriteString("<h3>OpenAPI Documentation</h3>\n")
		b.WriteString("<p>Complete API specification documentation for all available endpoints:</p>\n")
		b.WriteString(`<div class="schema-grid">` + "\n")

		for _, s := range valueSets {
			a.writeEndpointCard(&b, s, true)
		}
		for _, s := range logicalModels {
			a.writeEndpointCard(&b, s, false)
		}

		for _, enum := range enums {
			if enum.Role == scan.RoleValueSet {
				b.WriteString(`<div class="schema-card"><h4>ValueSets Enumeration Endpoint</h4>` + "\n")
				b.WriteString("<p>Complete list of all available ValueSet schemas</p>\n")
				b.WriteString(`<div class="schema-links">` + "\n")
				b.WriteString(`<a href="ValueSets.schema.json" class="schema-link" title="JSON Schema Definition">JSON Schema</a>` + "\n")
				b.WriteString(`<a href="ValueSets-enumeration.openapi.json" class="schema-link" title="OpenAPI Specification">OpenAPI</a>` + "\n")
				b.WriteString("</div></div>\n")
			} else {
				b.WriteString(`<div class="schema-card"><h4>LogicalModels Enumeration Endpoint</h4>` + "\n")
				b.WriteString("<p>Complete list of all available Logical Model schemas</p>\n")
				b.WriteString(`<div class="schema-links">` + "\n")
				b.WriteString(`<a href="LogicalModels.schema.json" class="schema-link" title="JSON Schema Definition">JSON Schema</a>` + "\n")
				b.WriteString(`<a href="LogicalModels-enumeration.openapi.json" class="schema-link" title="OpenAPI Specification">OpenAPI</a>` + "\n")
				b.WriteString("</div></div>\n")
			}
		}

		for _, doc := range apiDocs {
			b.WriteString(`<div class="schema-card">` + "\n")
			fmt.Fprintf(&b, "<h4>%s</h4>\n", doc.Title)
			fmt.Fprintf(&b, "<p>%s</p>\n", doc.Description)
			b.WriteString(`<div class="schema-links">` + "\n")
			if doc.HTMLFile != "" {
				fmt.Fprintf(&b, `<a href=%q class="schema-link" title="API Documentation">Documentation</a>`+"\n", doc.HTMLFile)
			}
			fmt.Fprintf(&b, `<a href=%q class="schema-link" title="OpenAPI Specification">OpenAPI Spec</a>`+"\n", doc.FilePath)
			b.WriteString("</div></div>\n")
		}

		b.WriteString("</div>\n")
	}

	if legacyHTML != "" {
		b.WriteString("<h3>Existing API Documentation</h3>\n")
		b.WriteString(`<div class="existing-openapi-content">` + "\n")
		b.WriteString(legacyHTML)
		b.WriteString("\n</div>\n")
	}

	b.WriteString(renderUsageBlock())
	b.WriteString(hubStyle)
	b.WriteString("</div>\n")
	return b.String()
}

// writeItemCard emits the per-item grid card with conditional sibling links.
func (a *Assembler) writeItemCard(b *strings.Builder, s Entry, valueSet bool) {
	b.WriteString(`<div class="schema-card">` + "\n")
	fmt.Fprintf(b, "<h4><a href=%q>%s</a></h4>\n", s.HTMLFile, s.Title)
	fmt.Fprintf(b, "<p>%s</p>\n", s.Description)
	b.WriteString(`<div class="schema-links">` + "\n")
	fmt.Fprintf(b, `<a href=%q class="schema-link fhir-link" title="FHIR Resource Definition">FHIR</a>`+"\n", s.HTMLFile)
	fmt.Fprintf(b, `<a href=%q class="schema-link" title="JSON Schema Definition">JSON Schema</a>`+"\n", s.SchemaFile)
	if a.exists(s.DisplaysFile) {
		fmt.Fprintf(b, `<a href=%q class="schema-link" title="Display Names">Displays</a>`+"\n", s.DisplaysFile)
	}
	if valueSet && a.exists(s.VocabularyFile) {
		fmt.Fprintf(b, `<a href=%q class="schema-link" title="JSON-LD Vocabulary">JSON-LD</a>`+"\n", s.VocabularyFile)
	}
	if a.exists(s.SpecFile) {
		fmt.Fprintf(b, `<a href=%q class="schema-link" title="OpenAPI Specification">OpenAPI</a>`+"\n", s.SpecFile)
	}
	b.WriteString("</div></div>\n")
}

// writeEndpointCard emits the combined-grid card re-listing an item's
// machine-readable endpoints.
func (a *Assembler) writeEndpointCard(b *strings.Builder, s Entry, valueSet bool) {
	b.WriteString(`<div class="schema-card">` + "\n")
	fmt.Fprintf(b, "<h4>%s Endpoints</h4>\n", itemName(s.SchemaFile))
	fmt.Fprintf(b, "<p>API endpoints for %s</p>\n", s.Title)
	b.WriteString(`<div class="schema-links">` + "\n")
	fmt.Fprintf(b, `<a href=%q class="schema-link" title="JSON Schema Definition">JSON Schema</a>`+"\n", s.SchemaFile)
	if valueSet && a.exists(s.VocabularyFile) {
		fmt.Fprintf(b, `<a href=%q class="schema-link" title="JSON-LD Vocabulary">JSON-LD</a>`+"\n", s.VocabularyFile)
	}
	if a.exists(s.SpecFile) {
		fmt.Fprintf(b, `<a href=%q class="schema-link" title="OpenAPI Specification">OpenAPI</a>`+"\n", s.SpecFile)
	}
	b.WriteString("</div></div>\n")
}

// PostProcess assembles the hub fragment and injects it into the landing
// page. Absence of the landing page is a failure: there is nothing to patch.
func (a *Assembler) PostProcess(hubPage string, schemaDocs map[scan.Role][]Entry, apiDocs []APIDoc, enums []EnumerationDoc, legacyHTML string) bool {
	if _, err := os.Stat(hubPage); err != nil {
		slog.Error("Landing page not found", "path", hubPage)
		a.reporter.AddError("Landing page not found: "+hubPage, nil)
		return false
	}

	fragment := a.Assemble(schemaDocs, apiDocs, enums, legacyHTML)
	slog.Info("Generated hub fragment", "bytes", len(fragment))

	ok := a.injector.InjectAtMarker(hubPage, fragment)
	if ok {
		slog.Info("Post-processed DAK API hub", "path", hubPage)
	} else {
		slog.Error("Failed to inject hub content", "path", hubPage)
	}
	return ok
}

// itemName strips the directory prefix and schema suffix from a relative
// schema link.
func itemName(schemaFile string) string {
	return strings.TrimSuffix(filepath.Base(schemaFile), scan.SchemaSuffix)
}
