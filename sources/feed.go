package sources

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/UoMCS/bigscreen/models"
)

// FeedModule turns the recent items of an RSS, Atom or JSON feed into one
// slide each.
type FeedModule struct {
	fetcher *fetcher
	cleaner *ContentCleaner
	now     func() time.Time
}

func NewFeedModule(client *http.Client, userAgent string, cleaner *ContentCleaner) *FeedModule {
	return &FeedModule{fetcher: newFetcher(client, userAgent), cleaner: cleaner, now: time.Now}
}

func (m *FeedModule) Name() string { return "feed" }

func (m *FeedModule) GenerateSlides(ctx context.Context, args models.Arguments) ([]models.CandidateSlide, error) {
	opts, err := parseCommonOptions(args)
	if err != nil {
		return nil, err
	}
	feedURL := args.String("url", "")
	if feedURL == "" {
		return nil, fmt.Errorf("feed module requires a url argument")
	}

	body, _, err := m.fetcher.get(ctx, feedURL, nil)
	if err != nil {
		return nil, err
	}
	feed, err := gofeed.NewParser().Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed %s: %w", feedURL, err)
	}

	now := m.now()
	slides := make([]models.CandidateSlide, 0, len(feed.Items))
	for _, item := range feed.Items {
		if opts.full(len(slides)) {
			break
		}
		if opts.tooOld(itemDate(item), now) {
			continue
		}
		rendered, err := m.renderItem(feed.Title, item)
		if err != nil {
			return nil, fmt.Errorf("failed to render item %q: %w", item.Title, err)
		}
		slides = append(slides, opts.slide(rendered))
	}
	return slides, nil
}

func (m *FeedModule) renderItem(feedTitle string, item *gofeed.Item) (string, error) {
	var content string
	if strings.TrimSpace(item.Content) != "" {
		pageURL, _ := url.Parse(item.Link)
		extracted, err := m.cleaner.Extract(item.Content, pageURL)
		if err != nil {
			slog.Debug("Feed item content could not be extracted", "item", item.Title, "error", err)
		}
		content = extracted
	}
	if content == "" {
		content = m.cleaner.Sanitize(item.Description)
	}

	return renderSlide("article", slideView{
		Kind:   "feed",
		Title:  m.cleaner.PlainText(item.Title),
		Image:  itemImage(item),
		Body:   template.HTML(content),
		Footer: feedTitle,
	})
}

// itemDate prefers the publication date and falls back to the update date.
func itemDate(item *gofeed.Item) *time.Time {
	if item.PublishedParsed != nil {
		return item.PublishedParsed
	}
	return item.UpdatedParsed
}

func itemImage(item *gofeed.Item) string {
	if item.Image != nil && item.Image.URL != "" {
		return item.Image.URL
	}
	for _, enc := range item.Enclosures {
		if enc != nil && strings.HasPrefix(enc.Type, "image/") {
			return enc.URL
		}
	}
	return ""
}
