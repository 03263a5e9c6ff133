// Package passphrase implements lcpdoc.PassphraseService: consult a
// local LRU cache keyed by license id before falling back to the
// interactive Authenticator (grounded on the LRU-cache usage pattern
// seen across the example pack's service layers).
package passphrase

import (
	"context"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/readium/r2-lcp-go/internal/lcpdoc"
)

// Service resolves a passphrase for a license, remembering previously
// entered passphrases so the reader isn't re-prompted for a license it
// has already unlocked once.
type Service struct {
	cache *lru.Cache[string, string]
}

// New builds a Service with room for size cached passphrases.
func New(size int) *Service {
	if size <= 0 {
		size = 256
	}
	cache, _ := lru.New[string, string](size)
	return &Service{cache: cache}
}

// Request implements lcpdoc.PassphraseService.
func (s *Service) Request(ctx context.Context, license *lcpdoc.License, authenticator lcpdoc.Authenticator) (string, bool) {
	if cached, ok := s.cache.Get(license.ID()); ok {
		return cached, true
	}

	if authenticator == nil {
		return "", false
	}

	pass, ok, err := authenticator.RequestPassphrase(ctx, license)
	if err != nil || !ok {
		return "", false
	}

	s.cache.Add(license.ID(), pass)
	return pass, true
}

// Forget evicts a cached passphrase, e.g. after CreateContext rejects
// it so the next attempt re-prompts instead of looping on a stale
// value.
func (s *Service) Forget(licenseID string) {
	s.cache.Remove(licenseID)
}
