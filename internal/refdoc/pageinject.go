package refdoc

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/dakhub/internal/htmlpatch"
	"git.home.luguber.info/inful/dakhub/internal/qa"
	"git.home.luguber.info/inful/dakhub/internal/scan"
)

// specSuffixes are stripped, in order, to derive an item name from a
// specification filename.
var specSuffixes = []string{".openapi.json", ".openapi.yaml", ".yaml", ".yml", ".json"}

// Renderer embeds rendered specification fragments into per-item pages.
type Renderer struct {
	reporter *qa.Reporter
}

// NewRenderer creates a Renderer reporting into the given aggregator.
func NewRenderer(reporter *qa.Reporter) *Renderer {
	return &Renderer{reporter: reporter}
}

// SpecName derives the item name from a specification file path.
func SpecName(specPath string) string {
	name := filepath.Base(specPath)
	for _, suffix := range specSuffixes {
		if strings.HasSuffix(name, suffix) {
			return strings.TrimSuffix(name, suffix)
		}
	}
	return name
}

// InjectIntoPage renders the specification at specPath and embeds it into
// <item>.html under pagesDir. A missing page is tolerated with a warning
// (the publisher may not have rendered it); an unresolvable injection point
// fails for this item only. Returns the page filename, or "" when nothing
// was patched.
func (r *Renderer) InjectIntoPage(specPath, pagesDir string) string {
	name := SpecName(specPath)

	spec, err := loadSpec(specPath)
	if err != nil {
		slog.Error("Failed to load OpenAPI spec", "path", specPath, "error", err)
		r.reporter.AddError("Failed to load OpenAPI spec "+specPath, map[string]any{"error": err.Error()})
		return ""
	}

	pageFile := name + ".html"
	pagePath := filepath.Join(pagesDir, pageFile)
	data, err := os.ReadFile(pagePath)
	if err != nil {
		slog.Warn("HTML page not found, skipping spec injection", "path", pagePath)
		r.reporter.AddWarning("HTML page not found: "+pagePath, nil)
		return ""
	}
	content := string(data)

	fragment := Render(spec)

	var patched string
	if placeholder := htmlpatch.ItemPlaceholder(name); strings.Contains(content, placeholder) {
		patched = strings.Replace(content, placeholder, fragment, 1)
	} else {
		pos, ok := htmlpatch.InsertionPoint(content, scan.RoleForItem(name))
		if !ok {
			slog.Error("No suitable injection point found", "path", pagePath)
			r.reporter.AddError("No suitable injection point found in "+pagePath, nil)
			return ""
		}
		patched = content[:pos] + fragment + content[pos:]
	}

	if err := os.WriteFile(pagePath, []byte(patched), 0o644); err != nil {
		slog.Error("Failed to write patched page", "path", pagePath, "error", err)
		r.reporter.AddError("Failed to write patched page "+pagePath, map[string]any{"error": err.Error()})
		return ""
	}

	slog.Info("Injected OpenAPI content into page", "path", pagePath)
	return pageFile
}

// loadSpec parses a specification file, JSON or YAML by extension.
func loadSpec(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	spec := map[string]any{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &spec); err != nil {
			return nil, fmt.Errorf("failed to parse YAML spec %s: %w", path, err)
		}
	default:
		if err := json.Unmarshal(data, &spec); err != nil {
			return nil, fmt.Errorf("failed to parse JSON spec %s: %w", path, err)
		}
	}
	return spec, nil
}
