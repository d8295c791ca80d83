// Package htmlpatch performs marker-driven text injection into pre-rendered
// HTML documents. Marker resolution is an explicit, ordered policy: tagged
// placeholder element, then legacy comment token, then (for per-item pages
// only) heading-block heuristics with a structural fallback.
package htmlpatch

import (
	"log/slog"
	"os"
	"regexp"
	"strings"

	"git.home.luguber.info/inful/dakhub/internal/qa"
	"git.home.luguber.info/inful/dakhub/internal/scan"
)

// PlaceholderID is the id attribute of the hub placeholder element.
const PlaceholderID = "dak-api-content-placeholder"

// LegacyMarker is the single-line comment token older templates carry.
const LegacyMarker = "<!-- DAK_API_CONTENT -->"

// placeholderPattern matches the placeholder div non-greedily across its
// full extent, including nested content.
var placeholderPattern = regexp.MustCompile(`(?s)<div\s+id="` + PlaceholderID + `"[^>]*>.*?</div>`)

// Heading-block anchors for per-item pages, tried in order. A match anchors
// the injection immediately after the block's enclosing container.
var (
	logicalModelAnchors = []*regexp.Regexp{
		regexp.MustCompile(`(?si)<h3[^>]*>Formal Views of Profile Content</h3>.*?</div>\s*</div>`),
		regexp.MustCompile(`(?si)<h2[^>]*>Formal Views of Profile Content</h2>.*?</div>\s*</div>`),
		regexp.MustCompile(`(?si)<h3[^>]*>Formal Views</h3>.*?</div>\s*</div>`),
		regexp.MustCompile(`(?si)<h2[^>]*>Formal Views</h2>.*?</div>\s*</div>`),
	}
	valueSetAnchors = []*regexp.Regexp{
		regexp.MustCompile(`(?si)<h3[^>]*>Expansion</h3>.*?</div>\s*</div>`),
		regexp.MustCompile(`(?si)<h2[^>]*>Expansion</h2>.*?</div>\s*</div>`),
		regexp.MustCompile(`(?si)<h4[^>]*>Expansion</h4>.*?</div>\s*</div>`),
	}
	structuralAnchors = []*regexp.Regexp{
		regexp.MustCompile(`(?i)</main>`),
		regexp.MustCompile(`(?i)</body>`),
	}
)

// ItemPlaceholder returns the per-item placeholder comment for a derived
// item name.
func ItemPlaceholder(name string) string {
	return "<!-- DAK_API_PLACEHOLDER: " + name + " -->"
}

// Injector patches existing HTML documents in place.
type Injector struct {
	reporter  *qa.Reporter
	minGrowth int
}

// NewInjector creates an Injector. minGrowth is the minimal byte growth
// expected after a hub injection; smaller deltas are flagged as suspicious.
func NewInjector(reporter *qa.Reporter, minGrowth int) *Injector {
	return &Injector{reporter: reporter, minGrowth: minGrowth}
}

// InjectAtMarker replaces the placeholder element (or, failing that, the
// legacy marker token) in the document with fragment and writes the result
// back. Without either marker it fails rather than guess; the file is left
// byte-identical. A write that grows the document by less than the growth
// threshold is flagged but not rolled back.
func (i *Injector) InjectAtMarker(htmlPath, fragment string) bool {
	data, err := os.ReadFile(htmlPath)
	if err != nil {
		slog.Error("HTML file does not exist", "path", htmlPath, "error", err)
		i.reporter.AddError("HTML file does not exist: "+htmlPath, nil)
		return false
	}
	content := string(data)
	slog.Info("Starting content injection", "path", htmlPath, "fragment_bytes", len(fragment), "document_bytes", len(content))

	var patched string
	switch {
	case placeholderPattern.MatchString(content):
		slog.Debug("Found placeholder element", "id", PlaceholderID)
		patched = placeholderPattern.ReplaceAllLiteralString(content, fragment)
	case strings.Contains(content, LegacyMarker):
		slog.Debug("Found legacy comment marker")
		patched = strings.Replace(content, LegacyMarker, fragment, 1)
	default:
		slog.Error("No injection marker found", "path", htmlPath, "placeholder", PlaceholderID)
		i.reporter.AddError("Injection placeholder not found in "+htmlPath, nil)
		return false
	}

	if err := os.WriteFile(htmlPath, []byte(patched), 0o644); err != nil {
		slog.Error("Failed to write patched HTML", "path", htmlPath, "error", err)
		i.reporter.AddError("Failed to write patched HTML "+htmlPath, map[string]any{"error": err.Error()})
		return false
	}

	growth := len(patched) - len(content)
	slog.Info("Content injection written", "path", htmlPath, "bytes", len(patched), "growth", growth)
	if growth <= i.minGrowth {
		slog.Warn("Content injection suspicious, minimal size increase", "path", htmlPath, "growth", growth)
		i.reporter.AddWarning("Content injection may have failed for "+htmlPath, map[string]any{"growth": growth})
		return false
	}
	return true
}

// InsertionPoint resolves an offset in content for a per-item injection:
// after the role-specific heading block when present, else just before the
// first closing main/body structural tag. ok is false when no anchor exists.
func InsertionPoint(content string, role scan.Role) (pos int, ok bool) {
	var anchors []*regexp.Regexp
	switch role {
	case scan.RoleLogicalModel:
		anchors = logicalModelAnchors
	case scan.RoleValueSet:
		anchors = valueSetAnchors
	}
	for _, anchor := range anchors {
		if loc := anchor.FindStringIndex(content); loc != nil {
			slog.Debug("Found heading-block injection anchor", "role", string(role))
			return loc[1], true
		}
	}
	for _, anchor := range structuralAnchors {
		if loc := anchor.FindStringIndex(content); loc != nil {
			slog.Debug("Using structural fallback injection anchor")
			return loc[0], true
		}
	}
	return 0, false
}
