package sources

import (
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/go-shiori/go-readability"
	"github.com/microcosm-cc/bluemonday"
)

// ContentCleaner sanitises third-party markup before it reaches a screen and
// pulls the main article out of full HTML pages.
type ContentCleaner struct {
	htmlPolicy      *bluemonday.Policy
	stripTagsPolicy *bluemonday.Policy
}

func NewContentCleaner() *ContentCleaner {
	return &ContentCleaner{
		htmlPolicy:      bluemonday.UGCPolicy(),
		stripTagsPolicy: bluemonday.StripTagsPolicy(),
	}
}

func (c *ContentCleaner) Sanitize(rawHTML string) string {
	return strings.TrimSpace(c.htmlPolicy.Sanitize(rawHTML))
}

// PlainText strips all markup and collapses whitespace.
func (c *ContentCleaner) PlainText(rawHTML string) string {
	return strings.Join(strings.Fields(c.stripTagsPolicy.Sanitize(rawHTML)), " ")
}

// TextLength is the number of characters of visible text in rawHTML.
func (c *ContentCleaner) TextLength(rawHTML string) int {
	return utf8.RuneCountInString(c.PlainText(rawHTML))
}

// Extract runs readability over a sanitised copy of rawHTML. When readability
// finds nothing the sanitised markup itself is returned.
func (c *ContentCleaner) Extract(rawHTML string, pageURL *url.URL) (string, error) {
	if strings.TrimSpace(rawHTML) == "" {
		return "", fmt.Errorf("raw HTML content is empty")
	}

	cleaned := c.Sanitize(rawHTML)
	if cleaned == "" {
		return "", fmt.Errorf("HTML content is empty after sanitising")
	}

	article, err := readability.FromReader(strings.NewReader(cleaned), pageURL)
	if err != nil {
		slog.Debug("Readability extraction failed, using sanitised HTML", "error", err)
		return cleaned, nil
	}
	if strings.TrimSpace(article.Content) == "" {
		return cleaned, nil
	}
	// readability output is not guaranteed to respect the UGC policy.
	return c.Sanitize(article.Content), nil
}
