// Package templates holds the embedded server-rendered views for the page
// router.
package templates

import (
	"embed"
	"html/template"
	"io"
)

//go:embed *.html
var files embed.FS

var views = template.Must(template.ParseFS(files, "*.html"))

// Render executes the named view into w.
func Render(w io.Writer, name string, data any) error {
	return views.ExecuteTemplate(w, name, data)
}
