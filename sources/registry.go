package sources

import "net/http"

// DefaultRegistry registers every built-in producer. The client is shared by
// all network-backed modules.
func DefaultRegistry(client *http.Client, userAgent string) *Registry {
	cleaner := NewContentCleaner()
	return NewRegistry(
		NewFeedModule(client, userAgent, cleaner),
		NewNewsletterModule(client, userAgent, cleaner),
		NewTimelineModule(client, userAgent, cleaner),
		NewStaticModule(cleaner),
	)
}
