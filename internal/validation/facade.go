package validation

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/readium/r2-lcp-go/internal/lcpdoc"
	"github.com/readium/r2-lcp-go/internal/platformctx"
)

// SeedKind distinguishes the two documents Validate accepts. A License
// Document seed starts a validation from Start; a Status Document seed
// only has an effect on a machine that has already reached Valid, and
// is ignored in every other state.
type SeedKind int

const (
	SeedLicense SeedKind = iota
	SeedStatus
)

// Seed is the initial document handed to Validate.
type Seed struct {
	Kind  SeedKind
	Bytes []byte
}

// FacadeConfig configures a Facade. Crypto, Network and Passphrase are
// required. The other collaborators are optional: a nil CRL service,
// repository or device service simply means that step of the workflow
// is skipped or best-effort, per spec §7's degrade-don't-fail posture.
type FacadeConfig struct {
	Authenticator lcpdoc.Authenticator
	Crl           lcpdoc.CrlService
	Device        lcpdoc.DeviceService
	Network       lcpdoc.NetworkFetcher
	Passphrase    lcpdoc.PassphraseService
	Repository    lcpdoc.LicenseRepository
	Crypto        lcpdoc.NativeCrypto
	Platform      platformctx.Info

	// OnLicenseValidated fires once per distinct license payload seen
	// during a validation, including after a re-fetch (spec §4.5).
	OnLicenseValidated func(*lcpdoc.License)

	// ProdProbeLicense and ProdProbePassphrase are the embedded asset
	// used at startup to tell a production build from a development
	// one (spec §4.6, §6): a development native crypto library accepts
	// the probe license with the probe passphrase; a production one
	// rejects it because it only trusts the production certificate
	// chain. Acceptance therefore means "not production".
	ProdProbeLicense    []byte
	ProdProbePassphrase string

	Logger zerolog.Logger
}

// Facade is the C6 entry point: one Facade wraps one Machine and one
// license's worth of validation state over the facade's lifetime. A
// caller validating several licenses concurrently constructs one
// Facade per license (spec §5).
type Facade struct {
	machine    *Machine
	production bool
	logger     zerolog.Logger
}

// NewFacade constructs a Facade, detects production mode against the
// embedded probe asset, and starts the machine's event loop.
func NewFacade(ctx context.Context, cfg FacadeConfig) *Facade {
	logger := cfg.Logger.With().Str("component", "lcp_facade").Logger()

	production := detectProduction(ctx, cfg.Crypto, cfg.ProdProbeLicense, cfg.ProdProbePassphrase, logger)

	deps := &dependencies{
		network:     cfg.Network,
		crl:         cfg.Crl,
		passphrase:  cfg.Passphrase,
		auth:        cfg.Authenticator,
		device:      cfg.Device,
		repository:  cfg.Repository,
		crypto:      cfg.Crypto,
		production:  production,
		onValidated: cfg.OnLicenseValidated,
		logger:      logger,
	}

	m := newMachine(deps, logger)
	go m.run()

	return &Facade{machine: m, production: production, logger: logger}
}

// detectProduction asks the native crypto layer whether it accepts the
// embedded probe license under the probe passphrase. No asset shipped
// means there is nothing to probe, so the safer default (production,
// strict profile gating) is assumed.
func detectProduction(ctx context.Context, crypto lcpdoc.NativeCrypto, probeLicense []byte, probePassphrase string, logger zerolog.Logger) bool {
	if len(probeLicense) == 0 || crypto == nil {
		return true
	}
	_, accepted := crypto.FindOneValidPassphrase(ctx, probeLicense, []string{probePassphrase})
	logger.Debug().Bool("probe_accepted", accepted).Msg("production detection probe")
	return !accepted
}

// IsProduction reports the production/development mode detected at
// construction time.
func (f *Facade) IsProduction() bool { return f.production }

// Validate feeds a seed document into the machine and enrolls observer
// with Once policy for this run's terminal outcome (spec §4.3).
func (f *Facade) Validate(seed Seed, observer Observer) {
	if observer != nil {
		f.machine.subscribe(observer, Once)
	}
	switch seed.Kind {
	case SeedLicense:
		// A new run starts with no license payloads seen, so
		// OnLicenseValidated fires again for this run's payloads.
		f.machine.deps.seenMu.Lock()
		f.machine.deps.seen = nil
		f.machine.deps.seenMu.Unlock()
		f.machine.dispatch(Event{kind: evRetrievedLicenseData, data: seed.Bytes})
	case SeedStatus:
		f.machine.dispatch(Event{kind: evRetrievedStatusData, data: seed.Bytes})
	}
}

// Subscribe enrolls observer for future notifications. If the machine
// has already reached a terminal state, observer is invoked
// synchronously with the last outcome before this call returns (spec
// §4.3's late-subscriber replay).
func (f *Facade) Subscribe(observer Observer, policy Policy) {
	f.machine.subscribe(observer, policy)
}

// Close stops the machine's event loop. Any handler goroutine already
// in flight runs to completion but its result is silently discarded;
// outstanding callbacks on a closed Facade are no-ops (spec §5).
func (f *Facade) Close() {
	f.machine.close()
}
