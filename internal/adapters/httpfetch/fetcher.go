package httpfetch

import (
	"context"
	"io"
	"net/http"
)

// Fetcher implements lcpdoc.NetworkFetcher over an *http.Client.
type Fetcher struct {
	client *http.Client
}

// New wraps an existing *http.Client. If client is nil, NewClient with
// default options is used.
func New(client *http.Client) *Fetcher {
	if client == nil {
		client, _ = NewClient(Options{})
	}
	return &Fetcher{client: client}
}

// Fetch performs a single GET request and returns the status code and
// body verbatim; it never retries (spec §4.2, §5).
func (f *Fetcher) Fetch(ctx context.Context, url string) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, nil, err
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, err
	}
	return resp.StatusCode, body, nil
}
