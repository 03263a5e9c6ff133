// Package crl provides CrlService implementations: an in-process cache
// for single-instance deployments, and a Redis-backed one so several
// processes share one fetch (grounded on the session package's Redis
// cache provider).
package crl

import (
	"context"
	"net/http"
	"sync"
	"time"
)

// Source fetches the current CRL bytes from the provider, e.g. over
// HTTP against a distribution point named in the license's
// certificate chain.
type Source func(ctx context.Context) ([]byte, error)

// HTTPSource builds a Source that GETs url with client.
func HTTPSource(client *http.Client, url string) Source {
	return func(ctx context.Context) ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		resp, err := client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		buf := make([]byte, 0, 4096)
		chunk := make([]byte, 4096)
		for {
			n, rerr := resp.Body.Read(chunk)
			buf = append(buf, chunk[:n]...)
			if rerr != nil {
				break
			}
		}
		return buf, nil
	}
}

// MemoryCache is a process-wide CrlService: the first caller to miss
// the TTL pays the fetch cost, every concurrent caller waits on the
// same in-flight fetch rather than stacking duplicate requests.
type MemoryCache struct {
	source Source
	ttl    time.Duration

	mu      sync.Mutex
	data    []byte
	fetched time.Time
}

// NewMemoryCache builds a MemoryCache that re-fetches once every ttl.
func NewMemoryCache(source Source, ttl time.Duration) *MemoryCache {
	return &MemoryCache{source: source, ttl: ttl}
}

// Retrieve implements lcpdoc.CrlService.
func (c *MemoryCache) Retrieve(ctx context.Context) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.data != nil && time.Since(c.fetched) < c.ttl {
		return c.data, nil
	}

	data, err := c.source(ctx)
	if err != nil {
		if c.data != nil {
			// Stale CRL beats no CRL: integrity checking degrades, it
			// does not fail outright, when the distribution point is
			// briefly unreachable.
			return c.data, nil
		}
		return nil, err
	}

	c.data = data
	c.fetched = time.Now()
	return c.data, nil
}
