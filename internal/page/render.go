package page

import (
	"html/template"
	"io"
	"ms-groups/internal/models"
	"strings"
)

var containerTmpl = template.Must(template.New("container").Parse(
	`<div id="{{.ID}}">{{range .Fragments}}{{.}}{{end}}</div>`,
))

// Render writes the container element with its fragments in append order.
// Fragments are trusted server markup and are inserted without escaping.
func Render(w io.Writer, selector string, fragments []models.Fragment) error {
	data := struct {
		ID        string
		Fragments []template.HTML
	}{
		ID:        strings.TrimPrefix(selector, "#"),
		Fragments: make([]template.HTML, 0, len(fragments)),
	}
	for _, f := range fragments {
		data.Fragments = append(data.Fragments, template.HTML(f.HTML))
	}
	return containerTmpl.Execute(w, data)
}
