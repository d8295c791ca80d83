package hub

import (
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strings"

	"golang.org/x/net/html"
)

// ContentExtractor lifts legacy content out of an existing documentation
// page. It is an optional capability: when unavailable the hub simply omits
// the legacy section with a logged warning.
type ContentExtractor interface {
	Extract(indexPath string) (string, error)
}

// DOMExtractor extracts the main content container from an existing
// index.html, dropping script and noscript subtrees.
type DOMExtractor struct{}

// Extract parses the page and returns the serialized content container: the
// first container/content div, else <main>, else a div with a content id,
// else the body's children.
func (DOMExtractor) Extract(indexPath string) (string, error) {
	file, err := os.Open(indexPath)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", indexPath, err)
	}
	defer func() {
		_ = file.Close() // read-only
	}()

	doc, err := html.Parse(file)
	if err != nil {
		return "", fmt.Errorf("failed to parse %s: %w", indexPath, err)
	}

	body := findElement(doc, func(n *html.Node) bool { return n.Data == "body" })
	if body == nil {
		return "", fmt.Errorf("no <body> tag found in %s", indexPath)
	}
	dropElements(body, "script", "noscript")

	container := findElement(body, func(n *html.Node) bool {
		return n.Data == "div" && strings.Contains(strings.ToLower(attr(n, "class")), "container")
	})
	if container == nil {
		container = findElement(body, func(n *html.Node) bool {
			return n.Data == "div" && strings.Contains(strings.ToLower(attr(n, "class")), "content")
		})
	}
	if container == nil {
		container = findElement(body, func(n *html.Node) bool { return n.Data == "main" })
	}
	if container == nil {
		container = findElement(body, func(n *html.Node) bool {
			return n.Data == "div" && strings.Contains(strings.ToLower(attr(n, "id")), "content")
		})
	}

	var b strings.Builder
	if container == nil {
		// No recognizable container: serialize the body's children without
		// the body tag itself.
		for c := body.FirstChild; c != nil; c = c.NextSibling {
			if err := html.Render(&b, c); err != nil {
				return "", fmt.Errorf("failed to render extracted content: %w", err)
			}
		}
	} else if err := html.Render(&b, container); err != nil {
		return "", fmt.Errorf("failed to render extracted content: %w", err)
	}

	extracted := strings.TrimSpace(b.String())
	slog.Info("Extracted legacy HTML content", "path", indexPath, "bytes", len(extracted))
	return extracted, nil
}

// findElement returns the first element node under root matching the
// predicate, in document order.
func findElement(root *html.Node, match func(*html.Node) bool) *html.Node {
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && match(c) {
			return c
		}
		if found := findElement(c, match); found != nil {
			return found
		}
	}
	return nil
}

// dropElements removes every element with one of the given tag names from
// the subtree.
func dropElements(root *html.Node, tags ...string) {
	for c := root.FirstChild; c != nil; {
		next := c.NextSibling
		if c.Type == html.ElementNode && slices.Contains(tags, c.Data) {
			root.RemoveChild(c)
		} else {
			dropElements(c, tags...)
		}
		c = next
	}
}

func attr(n *html.Node, name string) string {
	for _, a := range n.Attr {
		if a.Key == name {
			return a.Val
		}
	}
	return ""
}
