// Package digest renders the HTML body of a delivery from embedded
// templates. Cell content is escaped, so arbitrary spreadsheet text cannot
// inject markup into the mail.
package digest

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
)

//go:embed templates/*.html.tmpl
var templateFS embed.FS

var digestTemplate = template.Must(
	template.New("").ParseFS(templateFS, "templates/*.html.tmpl"))

// Data carries everything the digest template renders.
type Data struct {
	Title   string
	Comment string
	Rows    [][]string
}

// Build renders the HTML digest body. Output is deterministic for a given
// Data value.
func Build(data Data) (string, error) {
	var buf bytes.Buffer
	if err := digestTemplate.ExecuteTemplate(&buf, "digest.html.tmpl", data); err != nil {
		return "", fmt.Errorf("rendering digest template: %w", err)
	}
	return buf.String(), nil
}
