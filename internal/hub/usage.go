package hub

import (
	_ "embed"
	"log/slog"
	"strings"

	"github.com/yuin/goldmark"
)

//go:embed usage.md
var usageMarkdown string

// renderUsageBlock converts the embedded usage guidance to HTML. Goldmark
// follows CommonMark strictly, so the output is stable for a fixed source.
func renderUsageBlock() string {
	var b strings.Builder
	if err := goldmark.New().Convert([]byte(usageMarkdown), &b); err != nil {
		slog.Warn("Failed to render usage guidance block", "error", err)
		return ""
	}
	return `<div class="usage-info">` + "\n" + b.String() + "</div>\n"
}
