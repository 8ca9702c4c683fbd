// Package preview renders converted pages to HTML so a conversion can be
// eyeballed before running a migration.
package preview

import (
	"bytes"
	"fmt"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
)

// Renderer turns Markdown into HTML with GitHub flavoured extensions.
type Renderer struct {
	engine goldmark.Markdown
}

// NewRenderer builds a Renderer. Raw HTML in the page is escaped.
func NewRenderer() *Renderer {
	return &Renderer{
		engine: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithParserOptions(parser.WithAutoHeadingID()),
			goldmark.WithRendererOptions(html.WithXHTML()),
		),
	}
}

// Render converts markdown to an HTML fragment.
func (r *Renderer) Render(markdown string) (string, error) {
	var buf bytes.Buffer
	if err := r.engine.Convert([]byte(markdown), &buf); err != nil {
		return "", fmt.Errorf("preview: render: %w", err)
	}
	return buf.String(), nil
}
