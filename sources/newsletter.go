package sources

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/andybalholm/cascadia"
	"github.com/jhillyerd/enmime"
	"golang.org/x/net/html"

	"github.com/UoMCS/bigscreen/models"
)

const defaultSectionSelector = "section"

// NewsletterModule splits a single HTML (or MIME) newsletter into one slide
// per section matched by a CSS selector.
type NewsletterModule struct {
	fetcher *fetcher
	cleaner *ContentCleaner
}

func NewNewsletterModule(client *http.Client, userAgent string, cleaner *ContentCleaner) *NewsletterModule {
	return &NewsletterModule{fetcher: newFetcher(client, userAgent), cleaner: cleaner}
}

func (m *NewsletterModule) Name() string { return "newsletter" }

func (m *NewsletterModule) GenerateSlides(ctx context.Context, args models.Arguments) ([]models.CandidateSlide, error) {
	opts, err := parseCommonOptions(args)
	if err != nil {
		return nil, err
	}
	minLength, err := args.Int("min_length", 1)
	if err != nil {
		return nil, err
	}
	selector, err := cascadia.Compile(args.String("selector", defaultSectionSelector))
	if err != nil {
		return nil, fmt.Errorf("invalid selector: %w", err)
	}

	payload, isMIME, err := m.load(ctx, args)
	if err != nil {
		return nil, err
	}
	if isMIME {
		if payload, err = mimeBody(payload); err != nil {
			return nil, err
		}
	}

	doc, err := html.Parse(bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to parse newsletter HTML: %w", err)
	}

	var slides []models.CandidateSlide
	for _, node := range selector.MatchAll(doc) {
		if opts.full(len(slides)) {
			break
		}
		var raw bytes.Buffer
		if err := html.Render(&raw, node); err != nil {
			return nil, fmt.Errorf("failed to render newsletter section: %w", err)
		}
		cleaned := m.cleaner.Sanitize(raw.String())
		if m.cleaner.TextLength(cleaned) < minLength {
			continue
		}
		rendered, err := renderSlide("section", slideView{Kind: "newsletter", Body: template.HTML(cleaned)})
		if err != nil {
			return nil, err
		}
		slides = append(slides, opts.slide(rendered))
	}
	return slides, nil
}

// load reads the newsletter from url or path and reports whether it is a
// MIME message rather than bare HTML.
func (m *NewsletterModule) load(ctx context.Context, args models.Arguments) ([]byte, bool, error) {
	format := strings.ToLower(args.String("format", ""))
	sourceURL := args.String("url", "")
	path := args.String("path", "")

	switch {
	case sourceURL != "" && path != "":
		return nil, false, fmt.Errorf("newsletter module takes either url or path, not both")
	case sourceURL != "":
		body, contentType, err := m.fetcher.get(ctx, sourceURL, nil)
		if err != nil {
			return nil, false, err
		}
		mediaType, _, _ := mime.ParseMediaType(contentType)
		return body, format == "mime" || mediaType == "message/rfc822", nil
	case path != "":
		body, err := os.ReadFile(path)
		if err != nil {
			return nil, false, fmt.Errorf("failed to read newsletter %s: %w", path, err)
		}
		return body, format == "mime" || strings.EqualFold(filepath.Ext(path), ".eml"), nil
	default:
		return nil, false, fmt.Errorf("newsletter module requires a url or path argument")
	}
}

// mimeBody picks the HTML part of a MIME message, wrapping the plain text
// part in a <section><pre> block when there is no HTML.
func mimeBody(raw []byte) ([]byte, error) {
	env, err := enmime.ReadEnvelope(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to parse MIME newsletter: %w", err)
	}
	if env.HTML != "" {
		return []byte(env.HTML), nil
	}
	if env.Text != "" {
		return []byte("<section><pre>" + html.EscapeString(env.Text) + "</pre></section>"), nil
	}
	return nil, fmt.Errorf("MIME newsletter %q has no HTML or text body", env.GetHeader("Subject"))
}
