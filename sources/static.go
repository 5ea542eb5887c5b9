package sources

import (
	"context"
	"fmt"
	"html/template"
	"os"

	"github.com/UoMCS/bigscreen/models"
)

// StaticModule always produces exactly one slide from fixed markup.
type StaticModule struct {
	cleaner *ContentCleaner
}

func NewStaticModule(cleaner *ContentCleaner) *StaticModule {
	return &StaticModule{cleaner: cleaner}
}

func (m *StaticModule) Name() string { return "static" }

func (m *StaticModule) GenerateSlides(_ context.Context, args models.Arguments) ([]models.CandidateSlide, error) {
	opts, err := parseCommonOptions(args)
	if err != nil {
		return nil, err
	}

	markup := args.String("html", "")
	path := args.String("path", "")
	switch {
	case markup != "" && path != "":
		return nil, fmt.Errorf("static module takes either html or path, not both")
	case path != "":
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read static slide %s: %w", path, err)
		}
		markup = string(b)
	case markup == "":
		return nil, fmt.Errorf("static module requires an html or path argument")
	}

	rendered, err := renderSlide("section", slideView{Kind: "static", Body: template.HTML(m.cleaner.Sanitize(markup))})
	if err != nil {
		return nil, err
	}
	return []models.CandidateSlide{opts.slide(rendered)}, nil
}
