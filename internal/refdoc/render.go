// Package refdoc renders synthesized OpenAPI documents into human-readable
// HTML fragments and embeds them into the corresponding per-item pages.
package refdoc

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

const styleBlock = `
<style>
.dak-api-content { margin: 1rem 0; }
.card, .schema-card, .endpoint-card { background:#f8f9fa; border:1px solid #dee2e6; border-radius:0.375rem; padding:1rem; margin:1rem 0; }
.badge-get { background-color:#28a745; }
.badge-post { background-color:#007bff; }
.badge-put { background-color:#ffc107; color:#212529; }
.badge-delete { background-color:#dc3545; }
.badge-patch { background-color:#6f42c1; }
.schema-details { margin:1rem 0; border:1px solid #dee2e6; border-radius:4px; }
.schema-details summary { background:#f8f9fa; padding:0.75rem; cursor:pointer; border-bottom:1px solid #dee2e6; font-weight:500; }
.schema-details pre { margin:1rem; background:#f8f9fa; border:1px solid #e9ecef; border-radius:4px; padding:1rem; overflow-x:auto; }
</style>
<p><em>This documentation is automatically generated from the OpenAPI specification.</em></p>
`

// Render turns an OpenAPI document into a deterministic HTML fragment: an
// API Information block, one card per path and operation, and one
// collapsible card per embedded component schema. Map traversal is sorted so
// the same document always yields the same fragment.
func Render(spec map[string]any) string {
	info := mapValue(spec, "info")
	paths := mapValue(spec, "paths")
	components := mapValue(spec, "components")
	schemas := mapValue(components, "schemas")

	var b strings.Builder
	b.WriteString(`<div class="dak-api-content">` + "\n")
	b.WriteString("<h2>API Information</h2>\n")
	b.WriteString(`<div class="card"><div class="card-body">` + "\n")
	fmt.Fprintf(&b, "<h5>%s</h5>\n", stringValue(info, "title", "API"))
	fmt.Fprintf(&b, "<p>%s</p>\n", stringValue(info, "description", "No description available"))
	fmt.Fprintf(&b, "<p><strong>Version:</strong> %s</p>\n", stringValue(info, "version", "Unknown"))
	b.WriteString("</div></div>\n")

	if len(paths) > 0 {
		b.WriteString("<h2>Endpoints</h2>\n")
		for _, path := range sortedKeys(paths) {
			operations := mapValue(paths, path)
			for _, method := range sortedKeys(operations) {
				op := mapValue(operations, method)
				b.WriteString(`<div class="endpoint-card">` + "\n")
				fmt.Fprintf(&b, "<h3><span class='badge badge-%s'>%s</span> %s</h3>\n",
					strings.ToLower(method), strings.ToUpper(method), path)
				fmt.Fprintf(&b, "<h4>%s</h4>\n", stringValue(op, "summary", "No summary"))
				fmt.Fprintf(&b, "<p>%s</p>\n", stringValue(op, "description", "No description available"))
				b.WriteString("</div>\n")
			}
		}
	}

	if len(schemas) > 0 {
		b.WriteString("<h2>Schema Definition</h2>\n")
		for _, name := range sortedKeys(schemas) {
			def := mapValue(schemas, name)
			b.WriteString(`<div class="schema-card">` + "\n")
			fmt.Fprintf(&b, "<h3>%s</h3>\n", name)
			fmt.Fprintf(&b, "<p><strong>Description:</strong> %s</p>\n", stringValue(def, "description", "No description"))
			fmt.Fprintf(&b, "<p><strong>Type:</strong> %s</p>\n", stringValue(def, "type", "unknown"))
			b.WriteString("<details class='schema-details'><summary>Full Schema (JSON)</summary>\n")
			b.WriteString("<pre><code class='language-json'>\n")
			b.WriteString(prettyJSON(def))
			b.WriteString("\n</code></pre></details>\n")
			b.WriteString("</div>\n")
		}
	}

	b.WriteString("</div>\n")
	b.WriteString(styleBlock)
	return b.String()
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func mapValue(m map[string]any, key string) map[string]any {
	v, _ := m[key].(map[string]any)
	return v
}

func stringValue(m map[string]any, key, fallback string) string {
	if s, ok := m[key].(string); ok && s != "" {
		return s
	}
	return fallback
}

func prettyJSON(v any) string {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}
