package lcpdoc

import "context"

// NetworkFetcher performs a single-shot HTTP GET. Any non-200 status is
// the caller's responsibility to turn into a NetworkError; the core
// applies no retry policy (spec §4.2, §5).
type NetworkFetcher interface {
	Fetch(ctx context.Context, url string) (statusCode int, body []byte, err error)
}

// CrlService returns the current Certificate Revocation List. Caching is
// the implementation's responsibility; the core treats it as opaque and
// process-wide (spec §5).
type CrlService interface {
	Retrieve(ctx context.Context) ([]byte, error)
}

// Authenticator drives whatever interactive UI collects a passphrase
// from the end user, independent of how PassphraseService decides
// whether to show it.
type Authenticator interface {
	RequestPassphrase(ctx context.Context, license *License) (string, bool, error)
}

// PassphraseService resolves a passphrase for a license, consulting a
// local store before falling back to an interactive prompt via
// authenticator. It never fails: errors are converted to cancellation
// (spec §4.2).
type PassphraseService interface {
	Request(ctx context.Context, license *License, authenticator Authenticator) (passphrase string, ok bool)
}

// DeviceService performs device registration against the link advertised
// by a Status Document. A non-nil byte slice means the server replied
// with a fresh Status Document that should replace the one in hand.
type DeviceService interface {
	RegisterLicense(ctx context.Context, license *License, registerLink Link) (freshStatus []byte, err error)
}

// LicenseRepository idempotently persists license bytes locally. Errors
// it returns are logged by the validation core and never surfaced to
// the validation flow (spec §4.2, §7).
type LicenseRepository interface {
	AddLicense(ctx context.Context, license *License) error
}

// NativeCrypto is the delegated cryptographic primitive: it derives a
// DRM context from a license, a candidate passphrase, and a CRL. This
// core never reimplements cryptography; it only calls through this
// contract (spec §4.2, Non-goals).
type NativeCrypto interface {
	// CreateContext builds a DRM context handle from the license JSON,
	// the user passphrase, and the current CRL bytes. It returns an
	// error on an invalid passphrase or a failed integrity check, which
	// the validation core reports as an IntegrityError.
	CreateContext(ctx context.Context, licenseJSON []byte, passphrase string, crl []byte) (DRMContext, error)

	// FindOneValidPassphrase probes licenseJSON against each candidate
	// passphrase and returns the first one that produces a valid
	// context. It is used only at startup to detect a production build
	// (spec §4.6, §6): a binary that can validate the embedded test
	// license with the hard-coded probe passphrase is NOT production.
	FindOneValidPassphrase(ctx context.Context, licenseJSON []byte, candidates []string) (string, bool)
}

// DRMContext is the opaque handle a reading app uses to decrypt
// publication resources once a license has validated successfully.
// Ownership belongs to the NativeCrypto implementation; this core never
// inspects its contents.
type DRMContext interface {
	// Release frees any native resources backing the context.
	Release()
}
