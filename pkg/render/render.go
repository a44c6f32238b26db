// Package render turns templated success URLs into concrete redirect targets.
package render

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"
	"text/template"
)

var (
	doubleBraceRe = regexp.MustCompile(`\{\{\s*\.?([A-Za-z_][A-Za-z0-9_]*)\s*\}\}`)
	// Upper-case placeholders such as {CHECKOUT_SESSION_ID} belong to Stripe and are left alone.
	singleBraceRe = regexp.MustCompile(`\{([a-z][A-Za-z0-9_]*)\}`)
)

// Renderer renders object templates against a flat attribute map.
type Renderer struct{}

// New returns a Renderer.
func New() *Renderer {
	return &Renderer{}
}

// RenderObjectTemplate accepts `{attr}`, `{{ attr }}` and `{{ .attr }}`
// placeholders. Unknown attributes are an error.
func (r *Renderer) RenderObjectTemplate(tmpl string, attrs map[string]any) (string, error) {
	tmpl = strings.TrimSpace(tmpl)
	if tmpl == "" {
		return "", nil
	}

	normalized := doubleBraceRe.ReplaceAllString(tmpl, "{{.$1}}")
	normalized = singleBraceRe.ReplaceAllString(normalized, "{{.$1}}")

	parsed, err := template.New("object").Option("missingkey=error").Parse(normalized)
	if err != nil {
		return "", fmt.Errorf("parse template: %w", err)
	}

	var buf bytes.Buffer
	if err := parsed.Execute(&buf, attrs); err != nil {
		return "", fmt.Errorf("render template: %w", err)
	}
	return buf.String(), nil
}
