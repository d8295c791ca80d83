// Package hub composes the discovered and synthesized documentation into a
// single HTML fragment and drives its injection into the guide's landing
// page.
package hub

import "git.home.luguber.info/inful/dakhub/internal/scan"

// Entry is the hub's view-model unit for one schema item. File fields are
// links relative to the output root; optional ones may be empty. The
// assembler re-probes each referenced file at render time, so a partially
// failed synthesis degrades to fewer links rather than broken ones.
type Entry struct {
	Title          string
	Description    string
	HTMLFile       string // rendered per-item page
	SchemaFile     string // schemas/<item>.schema.json
	DisplaysFile   string // schemas/<item>.displays.json, optional
	VocabularyFile string // schemas/<item>.jsonld, optional
	SpecFile       string // schemas/<item>.openapi.json, optional
}

// EnumerationDoc describes one per-kind catalog endpoint.
type EnumerationDoc struct {
	Role        scan.Role
	Title       string
	Description string
	HTMLFile    string
}

// APIDoc describes one pre-existing or synthesized API specification file.
type APIDoc struct {
	Title       string
	Description string
	FilePath    string // link relative to the output root
	Filename    string
	HTMLFile    string // documentation page, empty when none was patched
}
