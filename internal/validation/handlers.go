package validation

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/readium/r2-lcp-go/internal/lcpdoc"
)

// dependencies bundles every C2 collaborator a handler may need, plus
// the bits of facade configuration (production mode, the
// onLicenseValidated hook) that shape handler behaviour.
type dependencies struct {
	network     lcpdoc.NetworkFetcher
	crl         lcpdoc.CrlService
	passphrase  lcpdoc.PassphraseService
	auth        lcpdoc.Authenticator
	device      lcpdoc.DeviceService
	repository  lcpdoc.LicenseRepository
	crypto      lcpdoc.NativeCrypto
	production  bool
	onValidated func(*lcpdoc.License)
	logger      zerolog.Logger

	seenMu sync.Mutex
	seen   map[string]struct{}
}

// markSeen reports whether this is the first time this exact raw
// license payload has been parsed since the last License seed was
// handed to Facade.Validate, which clears the seen set.
// onLicenseValidated fires at most once per distinct payload within
// one validation, including across a re-fetch (spec §4.5, invariant 8).
func (d *dependencies) markSeen(lic *lcpdoc.License) bool {
	d.seenMu.Lock()
	defer d.seenMu.Unlock()
	key := string(lic.Raw())
	if _, ok := d.seen[key]; ok {
		return false
	}
	if d.seen == nil {
		d.seen = make(map[string]struct{})
	}
	d.seen[key] = struct{}{}
	return true
}

// stepHandler performs the side effect entering a state, returning the
// event that results. The machine's event loop starts each handler on
// its own goroutine, one at a time; no two handlers of a given machine
// are ever in flight simultaneously.
type stepHandler func(ctx context.Context, deps *dependencies, s State) Event

func handleValidateLicense(ctx context.Context, deps *dependencies, s State) Event {
	lic, err := lcpdoc.ParseLicense(s.pendingData)
	if err != nil {
		return failedEvent(err)
	}
	if !lcpdoc.IsProfileSupported(lic.Profile(), deps.production) {
		return failedEvent(&LicenseProfileNotSupportedError{Profile: lic.Profile()})
	}

	if deps.onValidated != nil && deps.markSeen(lic) {
		deps.onValidated(lic)
	}

	if deps.repository != nil {
		if err := deps.repository.AddLicense(ctx, lic); err != nil {
			deps.logger.Warn().Err(&RepositoryError{Err: err}).Msg("failed to persist license locally")
		}
	}

	return Event{kind: evValidatedLicense, license: lic}
}

func handleFetchStatus(ctx context.Context, deps *dependencies, s State) Event {
	link, ok := s.license.Link("status")
	if !ok {
		return failedEvent(&NetworkError{Err: errors.New("license carries no status link")})
	}
	status, body, err := deps.network.Fetch(ctx, link.Href)
	if err != nil {
		return failedEvent(&NetworkError{URL: link.Href, Err: err})
	}
	if status != 200 {
		return failedEvent(&NetworkError{URL: link.Href, StatusCode: status})
	}
	return Event{kind: evRetrievedStatusData, data: body}
}

func handleValidateStatus(_ context.Context, _ *dependencies, s State) Event {
	sd, err := lcpdoc.ParseStatus(s.pendingData)
	if err != nil {
		return failedEvent(err)
	}
	return Event{kind: evValidatedStatus, status: sd}
}

func handleFetchLicense(ctx context.Context, deps *dependencies, s State) Event {
	link, ok := s.status.Link("license")
	if !ok {
		return failedEvent(&NetworkError{Err: errors.New("status document carries no license link")})
	}
	status, body, err := deps.network.Fetch(ctx, link.Href)
	if err != nil {
		return failedEvent(&NetworkError{URL: link.Href, Err: err})
	}
	if status != 200 {
		return failedEvent(&NetworkError{URL: link.Href, StatusCode: status})
	}
	return Event{kind: evRetrievedLicenseData, data: body}
}

// handleCheckLicenseStatus implements spec §4.5's rights-window and SD
// status reconciliation: the license's own start/end bracket is
// checked first, then an out-of-bracket SD status narrows down which
// StatusError to report.
func handleCheckLicenseStatus(_ context.Context, _ *dependencies, s State) Event {
	now := time.Now()
	start := now
	if t := s.license.RightsStart(); t != nil {
		start = *t
	}
	end := now
	if t := s.license.RightsEnd(); t != nil {
		end = *t
	}

	if !start.After(now) && !end.Before(now) {
		return Event{kind: evCheckedLicenseStatus}
	}

	if s.status == nil {
		return Event{kind: evCheckedLicenseStatus, statusErr: &Expired{Start: start, End: end}}
	}

	var serr StatusError
	switch s.status.Status() {
	case lcpdoc.StatusReturned:
		serr = &Returned{Date: s.status.StatusUpdated()}
	case lcpdoc.StatusRevoked:
		serr = &Revoked{Date: s.status.StatusUpdated(), DeviceCount: s.status.EventCount("register")}
	case lcpdoc.StatusCancelled:
		serr = &Cancelled{Date: s.status.StatusUpdated()}
	default:
		serr = &Expired{Start: start, End: end}
	}
	return Event{kind: evCheckedLicenseStatus, statusErr: serr}
}

func handleRequestPassphrase(ctx context.Context, deps *dependencies, s State) Event {
	pass, ok := deps.passphrase.Request(ctx, s.license, deps.auth)
	if !ok {
		return Event{kind: evCancelled}
	}
	return Event{kind: evRetrievedPassphrase, passphrase: pass}
}

func handleValidateIntegrity(ctx context.Context, deps *dependencies, s State) Event {
	if !lcpdoc.IsProfileSupported(s.license.Profile(), deps.production) {
		return failedEvent(&LicenseProfileNotSupportedError{Profile: s.license.Profile()})
	}

	var crl []byte
	if deps.crl != nil {
		fetched, err := deps.crl.Retrieve(ctx)
		if err != nil {
			return failedEvent(&IntegrityError{Err: err})
		}
		crl = fetched
	}

	drmCtx, err := deps.crypto.CreateContext(ctx, s.license.Raw(), s.passphrase, crl)
	if err != nil {
		return failedEvent(&IntegrityError{Err: err})
	}
	return Event{kind: evValidatedIntegrity, drmCtx: drmCtx}
}

func handleRegisterDevice(ctx context.Context, deps *dependencies, s State) Event {
	if deps.device == nil {
		return Event{kind: evRegisteredDevice}
	}
	body, err := deps.device.RegisterLicense(ctx, s.documents.License, s.registerLink)
	if err != nil {
		deps.logger.Warn().Err(err).Msg("device registration failed, continuing without it")
		return failedEvent(err)
	}
	return Event{kind: evRegisteredDevice, freshStatus: body}
}

func handlerFor(kind stateKind) stepHandler {
	switch kind {
	case stateValidateLicense:
		return handleValidateLicense
	case stateFetchStatus:
		return handleFetchStatus
	case stateValidateStatus:
		return handleValidateStatus
	case stateFetchLicense:
		return handleFetchLicense
	case stateCheckLicenseStatus:
		return handleCheckLicenseStatus
	case stateRequestPassphrase:
		return handleRequestPassphrase
	case stateValidateIntegrity:
		return handleValidateIntegrity
	case stateRegisterDevice:
		return handleRegisterDevice
	default:
		return nil
	}
}
