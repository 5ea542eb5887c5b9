package sources

import (
	"html/template"
	"strings"
)

// Slide layouts. Body fields carry markup that has already been through the
// ContentCleaner; every other field is escaped by html/template.
var slideTemplates = template.Must(template.New("slides").Parse(`
{{define "article"}}<article class="slide slide-{{.Kind}}">
{{- if .Image}}<img class="slide-image" src="{{.Image}}" alt="">{{end}}
{{- if .Title}}<h1 class="slide-title">{{.Title}}</h1>{{end}}
<div class="slide-body">{{.Body}}</div>
{{- if .Footer}}<footer class="slide-footer">{{.Footer}}</footer>{{end}}
</article>{{end}}
{{define "section"}}<section class="slide slide-{{.Kind}}">{{.Body}}</section>{{end}}
`))

type slideView struct {
	Kind   string
	Title  string
	Image  string
	Body   template.HTML
	Footer string
}

func renderSlide(layout string, view slideView) (string, error) {
	var b strings.Builder
	if err := slideTemplates.ExecuteTemplate(&b, layout, view); err != nil {
		return "", err
	}
	return b.String(), nil
}
