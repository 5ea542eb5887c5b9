package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/UoMCS/bigscreen/models"
)

// TimelineModule shows recent posts from one account on a Mastodon-compatible
// server.
type TimelineModule struct {
	fetcher *fetcher
	cleaner *ContentCleaner
	now     func() time.Time
}

func NewTimelineModule(client *http.Client, userAgent string, cleaner *ContentCleaner) *TimelineModule {
	return &TimelineModule{fetcher: newFetcher(client, userAgent), cleaner: cleaner, now: time.Now}
}

func (m *TimelineModule) Name() string { return "timeline" }

type status struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Content   string    `json:"content"`
	URL       string    `json:"url"`
	Account   struct {
		Acct        string `json:"acct"`
		DisplayName string `json:"display_name"`
	} `json:"account"`
	Reblog           *status `json:"reblog"`
	MediaAttachments []struct {
		Type       string `json:"type"`
		URL        string `json:"url"`
		PreviewURL string `json:"preview_url"`
	} `json:"media_attachments"`
}

func (m *TimelineModule) GenerateSlides(ctx context.Context, args models.Arguments) ([]models.CandidateSlide, error) {
	opts, err := parseCommonOptions(args)
	if err != nil {
		return nil, err
	}
	endpoint, err := timelineURL(args)
	if err != nil {
		return nil, err
	}

	var headers map[string]string
	if token := args.String("token", ""); token != "" {
		headers = map[string]string{"Authorization": "Bearer " + token}
	}

	body, _, err := m.fetcher.get(ctx, endpoint, headers)
	if err != nil {
		return nil, err
	}
	var statuses []status
	if err := json.Unmarshal(body, &statuses); err != nil {
		return nil, fmt.Errorf("failed to decode timeline: %w", err)
	}

	now := m.now()
	slides := make([]models.CandidateSlide, 0, len(statuses))
	for i := range statuses {
		if opts.full(len(slides)) {
			break
		}
		post := &statuses[i]
		if post.Reblog != nil {
			post = post.Reblog
		}
		if opts.tooOld(&post.CreatedAt, now) {
			continue
		}
		rendered, err := m.renderStatus(post)
		if err != nil {
			return nil, fmt.Errorf("failed to render status %s: %w", post.ID, err)
		}
		slides = append(slides, opts.slide(rendered))
	}
	return slides, nil
}

func timelineURL(args models.Arguments) (string, error) {
	instance := strings.TrimRight(args.String("instance", ""), "/")
	account := args.String("account", "")
	if instance == "" || account == "" {
		return "", fmt.Errorf("timeline module requires instance and account arguments")
	}
	limit, err := args.Int("limit", 20)
	if err != nil {
		return "", err
	}
	excludeReplies, err := args.Bool("exclude_replies", false)
	if err != nil {
		return "", err
	}
	excludeReblogs, err := args.Bool("exclude_reblogs", true)
	if err != nil {
		return "", err
	}

	query := url.Values{}
	query.Set("limit", strconv.Itoa(limit))
	query.Set("exclude_replies", strconv.FormatBool(excludeReplies))
	query.Set("exclude_reblogs", strconv.FormatBool(excludeReblogs))
	return fmt.Sprintf("%s/api/v1/accounts/%s/statuses?%s", instance, url.PathEscape(account), query.Encode()), nil
}

func (m *TimelineModule) renderStatus(post *status) (string, error) {
	var image string
	for _, media := range post.MediaAttachments {
		if media.Type == "image" {
			image = media.PreviewURL
			if image == "" {
				image = media.URL
			}
			break
		}
	}

	author := post.Account.DisplayName
	if author == "" {
		author = post.Account.Acct
	}

	return renderSlide("article", slideView{
		Kind:   "timeline",
		Image:  image,
		Body:   template.HTML(m.cleaner.Sanitize(post.Content)),
		Footer: fmt.Sprintf("%s (@%s) · %s", author, post.Account.Acct, post.CreatedAt.Format("2 Jan 15:04")),
	})
}
