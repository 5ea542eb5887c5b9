package sources

import (
	"context"
	"fmt"
	"io"
	"net/http"
)

// maxBodyBytes caps how much of any remote payload is read.
const maxBodyBytes = 8 << 20

// fetcher is the HTTP client shared by the network-backed producers.
type fetcher struct {
	client    *http.Client
	userAgent string
}

func newFetcher(client *http.Client, userAgent string) *fetcher {
	if client == nil {
		client = http.DefaultClient
	}
	return &fetcher{client: client, userAgent: userAgent}
}

// get downloads rawURL and returns the body with its content type.
func (f *fetcher) get(ctx context.Context, rawURL string, headers map[string]string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create request for %s: %w", rawURL, err)
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("request to %s failed: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, "", fmt.Errorf("request to %s returned status %d", rawURL, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes+1))
	if err != nil {
		return nil, "", fmt.Errorf("failed to read response from %s: %w", rawURL, err)
	}
	if len(body) > maxBodyBytes {
		return nil, "", fmt.Errorf("response from %s exceeds %d bytes", rawURL, maxBodyBytes)
	}
	return body, resp.Header.Get("Content-Type"), nil
}
