package htmlpatch

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/dakhub/internal/qa"
	"git.home.luguber.info/inful/dakhub/internal/scan"
)

func writePage(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "page.html")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestInjectAtMarker_ReplacesPlaceholderElement(t *testing.T) {
	page := writePage(t, `<html><body><div id="dak-api-content-placeholder" class="loading"><p>Loading API docs...</p></div></body></html>`)
	fragment := "<section>" + strings.Repeat("generated content ", 20) + "</section>"

	i := NewInjector(qa.NewReporter("test"), 100)
	require.True(t, i.InjectAtMarker(page, fragment))

	patched, err := os.ReadFile(page)
	require.NoError(t, err)
	require.NotContains(t, string(patched), PlaceholderID)
	require.Contains(t, string(patched), fragment)
}

func TestInjectAtMarker_FallsBackToLegacyMarker(t *testing.T) {
	page := writePage(t, "<html><body>\n"+LegacyMarker+"\n</body></html>")
	fragment := strings.Repeat("<p>docs</p>", 30)

	i := NewInjector(qa.NewReporter("test"), 100)
	require.True(t, i.InjectAtMarker(page, fragment))

	patched, err := os.ReadFile(page)
	require.NoError(t, err)
	require.NotContains(t, string(patched), LegacyMarker)
	require.Contains(t, string(patched), fragment)
}

func TestInjectAtMarker_NoMarker_FileUntouched(t *testing.T) {
	original := "<html><body><p>static page</p></body></html>"
	page := writePage(t, original)

	reporter := qa.NewReporter("test")
	i := NewInjector(reporter, 100)
	require.False(t, i.InjectAtMarker(page, "<section>docs</section>"))

	data, err := os.ReadFile(page)
	require.NoError(t, err)
	require.Equal(t, original, string(data))
	_, _, errors := reporter.Counts()
	require.Equal(t, 1, errors)
}

func TestInjectAtMarker_SmallGrowth_WrittenButFlagged(t *testing.T) {
	page := writePage(t, `<html><body><div id="dak-api-content-placeholder"><p>placeholder padding text here</p></div></body></html>`)

	reporter := qa.NewReporter("test")
	i := NewInjector(reporter, 100)
	require.False(t, i.InjectAtMarker(page, "<p>tiny</p>"))

	data, err := os.ReadFile(page)
	require.NoError(t, err)
	require.Contains(t, string(data), "<p>tiny</p>")
	_, warnings, _ := reporter.Counts()
	require.Equal(t, 1, warnings)
}

func TestInjectAtMarker_MissingFile_Error(t *testing.T) {
	reporter := qa.NewReporter("test")
	i := NewInjector(reporter, 100)
	require.False(t, i.InjectAtMarker(filepath.Join(t.TempDir(), "nope.html"), "<p>x</p>"))
	_, _, errors := reporter.Counts()
	require.Equal(t, 1, errors)
}

func TestInsertionPoint_ValueSetExpansionHeading(t *testing.T) {
	content := `<html><body><div><div><h3>Expansion</h3><ul><li>red</li></ul></div></div><footer/></body></html>`

	pos, ok := InsertionPoint(content, scan.RoleValueSet)
	require.True(t, ok)
	require.Equal(t, strings.Index(content, "<footer/>"), pos)
}

func TestInsertionPoint_LogicalModelFormalViewsHeading(t *testing.T) {
	content := `<div><div><h2>Formal Views of Profile Content</h2><table></table></div></div><p>after</p></body>`

	pos, ok := InsertionPoint(content, scan.RoleLogicalModel)
	require.True(t, ok)
	require.Equal(t, strings.Index(content, "<p>after</p>"), pos)
}

func TestInsertionPoint_StructuralFallbackBeforeClosingTag(t *testing.T) {
	content := `<html><body><p>no headings here</p></body></html>`

	pos, ok := InsertionPoint(content, scan.RoleOther)
	require.True(t, ok)
	require.Equal(t, strings.Index(content, "</body>"), pos)
}

func TestInsertionPoint_MainPreferredOverBody(t *testing.T) {
	content := `<body><main><p>x</p></main></body>`

	pos, ok := InsertionPoint(content, scan.RoleValueSet)
	require.True(t, ok)
	require.Equal(t, strings.Index(content, "</main>"), pos)
}

func TestInsertionPoint_NoAnchor(t *testing.T) {
	_, ok := InsertionPoint("<p>fragment only</p>", scan.RoleValueSet)
	require.False(t, ok)
}

func TestItemPlaceholder_Format(t *testing.T) {
	require.Equal(t, "<!-- DAK_API_PLACEHOLDER: ValueSet-Color -->", ItemPlaceholder("ValueSet-Color"))
}
