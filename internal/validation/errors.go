package validation

import (
	"errors"
	"fmt"
	"time"
)

// ErrCancelled describes a cancelled passphrase prompt. Cancellation is
// not reported as an error: the machine returns to Start and notifies
// observers with (nil, nil) (spec §4.4, §7); nothing in this package
// returns ErrCancelled.
var ErrCancelled = errors.New("passphrase request cancelled")

// LicenseProfileNotSupportedError is fatal: the license's encryption
// profile is not accepted by this build.
type LicenseProfileNotSupportedError struct {
	Profile string
}

func (e *LicenseProfileNotSupportedError) Error() string {
	return fmt.Sprintf("license profile not supported: %s", e.Profile)
}

// NetworkError wraps a failed NetworkFetcher call. It is fatal only at
// integrity time; everywhere else in the transition table it degrades
// to "best effort" (spec §7).
type NetworkError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *NetworkError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("network error fetching %s: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("network error fetching %s: status %d", e.URL, e.StatusCode)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// IntegrityError reports a native crypto failure: invalid passphrase or
// a failed content integrity check. Always fatal.
type IntegrityError struct {
	Err error
}

func (e *IntegrityError) Error() string { return fmt.Sprintf("integrity check failed: %v", e.Err) }
func (e *IntegrityError) Unwrap() error { return e.Err }

// RepositoryError marks a LicenseRepository failure. The state machine
// never raises this as an event: §7 and §9 require repository errors to
// be logged and otherwise swallowed, so handleValidateLicense wraps a
// failed AddLicense in this type only to tag what it logs.
type RepositoryError struct {
	Err error
}

func (e *RepositoryError) Error() string { return fmt.Sprintf("repository error: %v", e.Err) }
func (e *RepositoryError) Unwrap() error { return e.Err }

// StatusError is the non-fatal outcome of CheckLicenseStatus: the
// license parses and decrypts fine but is not currently usable. It
// travels inside ValidatedDocuments.Context rather than being returned
// as a fatal error (spec §4.5, §7).
type StatusError interface {
	error
	statusErrorKind() string
}

// Expired reports that the license falls outside its rights window,
// whether because the window itself has closed or because the LSD
// server says the copy has expired.
type Expired struct {
	Start time.Time
	End   time.Time
}

func (e *Expired) Error() string {
	return fmt.Sprintf("license expired: window [%s, %s]", e.Start.Format(time.RFC3339), e.End.Format(time.RFC3339))
}
func (e *Expired) statusErrorKind() string { return "expired" }

// Returned reports that the reader returned the loan.
type Returned struct {
	Date time.Time
}

func (e *Returned) Error() string             { return "license returned on " + e.Date.Format(time.RFC3339) }
func (e *Returned) statusErrorKind() string   { return "returned" }

// Revoked reports that the provider revoked the license, along with how
// many devices had registered against it.
type Revoked struct {
	Date        time.Time
	DeviceCount int
}

func (e *Revoked) Error() string {
	return fmt.Sprintf("license revoked on %s (%d device(s) registered)", e.Date.Format(time.RFC3339), e.DeviceCount)
}
func (e *Revoked) statusErrorKind() string { return "revoked" }

// Cancelled reports that the loan was cancelled by the provider.
type Cancelled struct {
	Date time.Time
}

func (e *Cancelled) Error() string           { return "license cancelled on " + e.Date.Format(time.RFC3339) }
func (e *Cancelled) statusErrorKind() string { return "cancelled" }
