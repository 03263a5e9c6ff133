package validation

import (
	"github.com/readium/r2-lcp-go/internal/lcpdoc"
)

// stateKind enumerates the machine's states (spec §4.4). Go has no sum
// types, so each State carries every field any variant might need;
// transition() only reads the fields that are meaningful for the kind
// it is building.
type stateKind int

const (
	stateStart stateKind = iota
	stateValidateLicense
	stateFetchStatus
	stateValidateStatus
	stateFetchLicense
	stateCheckLicenseStatus
	stateRequestPassphrase
	stateValidateIntegrity
	stateRegisterDevice
	stateValid
	stateFailure
)

// State is the machine's current position plus whatever data that
// position carries.
type State struct {
	kind stateKind

	pendingData  []byte                 // raw bytes awaiting parse (ValidateLicense, ValidateStatus)
	license      *lcpdoc.License        // the license once parsed
	status       *lcpdoc.StatusDocument // the status document, if one is known
	passphrase   string                 // ValidateIntegrity
	documents    *ValidatedDocuments    // RegisterDevice, Valid
	registerLink lcpdoc.Link            // RegisterDevice
	failureErr   error                  // Failure
}

// eventKind enumerates the events the machine reacts to (spec §4.4).
type eventKind int

const (
	evRetrievedLicenseData eventKind = iota
	evValidatedLicense
	evRetrievedStatusData
	evValidatedStatus
	evCheckedLicenseStatus
	evRetrievedPassphrase
	evValidatedIntegrity
	evRegisteredDevice
	evFailed
	evCancelled
)

// Event is a single input to the machine, tagged with whatever payload
// its kind carries.
type Event struct {
	kind eventKind

	data        []byte                 // RetrievedLicenseData, RetrievedStatusData
	license     *lcpdoc.License        // ValidatedLicense
	status      *lcpdoc.StatusDocument // ValidatedStatus
	statusErr   StatusError            // CheckedLicenseStatus; nil means "in rights window"
	passphrase  string                 // RetrievedPassphrase
	drmCtx      lcpdoc.DRMContext      // ValidatedIntegrity
	freshStatus []byte                 // RegisteredDevice; nil means no fresh SD
	err         error                  // Failed
}

func failedEvent(err error) Event { return Event{kind: evFailed, err: err} }

// transition implements the table in spec §4.4 exactly: every (State,
// Event) pair not listed here is a no-op, reported via the second
// return value being false.
func transition(s State, e Event) (State, bool) {
	switch s.kind {
	case stateStart:
		if e.kind == evRetrievedLicenseData {
			return State{kind: stateValidateLicense, pendingData: e.data}, true
		}

	case stateValidateLicense:
		switch e.kind {
		case evValidatedLicense:
			if s.status != nil {
				return State{kind: stateCheckLicenseStatus, license: e.license, status: s.status}, true
			}
			return State{kind: stateFetchStatus, license: e.license}, true
		case evFailed:
			return State{kind: stateFailure, failureErr: e.err}, true
		}

	case stateFetchStatus:
		switch e.kind {
		case evRetrievedStatusData:
			return State{kind: stateValidateStatus, license: s.license, pendingData: e.data}, true
		case evFailed:
			return State{kind: stateCheckLicenseStatus, license: s.license}, true
		}

	case stateValidateStatus:
		switch e.kind {
		case evValidatedStatus:
			if s.license.Updated().Before(e.status.LicenseUpdated()) {
				return State{kind: stateFetchLicense, license: s.license, status: e.status}, true
			}
			return State{kind: stateCheckLicenseStatus, license: s.license, status: e.status}, true
		case evFailed:
			return State{kind: stateCheckLicenseStatus, license: s.license}, true
		}

	case stateFetchLicense:
		switch e.kind {
		case evRetrievedLicenseData:
			return State{kind: stateValidateLicense, pendingData: e.data, status: s.status}, true
		case evFailed:
			return State{kind: stateCheckLicenseStatus, license: s.license, status: s.status}, true
		}

	case stateCheckLicenseStatus:
		if e.kind == evCheckedLicenseStatus {
			if e.statusErr != nil {
				docs := &ValidatedDocuments{License: s.license, Status: s.status, Context: RightContext(e.statusErr)}
				return State{kind: stateValid, documents: docs}, true
			}
			return State{kind: stateRequestPassphrase, license: s.license, status: s.status}, true
		}

	case stateRequestPassphrase:
		switch e.kind {
		case evRetrievedPassphrase:
			return State{kind: stateValidateIntegrity, license: s.license, status: s.status, passphrase: e.passphrase}, true
		case evCancelled:
			return State{kind: stateStart}, true
		case evFailed:
			return State{kind: stateFailure, failureErr: e.err}, true
		}

	case stateValidateIntegrity:
		switch e.kind {
		case evValidatedIntegrity:
			docs := &ValidatedDocuments{License: s.license, Status: s.status, Context: DrmContext(e.drmCtx)}
			if s.status != nil {
				if link, ok := s.status.Link("register"); ok {
					return State{kind: stateRegisterDevice, documents: docs, registerLink: link}, true
				}
			}
			return State{kind: stateValid, documents: docs}, true
		case evFailed:
			return State{kind: stateFailure, failureErr: e.err}, true
		}

	case stateRegisterDevice:
		if e.kind == evRegisteredDevice {
			if e.freshStatus != nil {
				return State{kind: stateValidateStatus, license: s.documents.License, pendingData: e.freshStatus}, true
			}
			return State{kind: stateValid, documents: s.documents}, true
		}
		if e.kind == evFailed {
			// Registration is best-effort: any failure still yields Valid.
			return State{kind: stateValid, documents: s.documents}, true
		}

	case stateValid:
		// Extension point (spec §9, open question): Facade.Validate with
		// a SeedStatus seed injects this event, which lets a settled
		// machine re-check a refreshed SD. See internal/watcher.
		if e.kind == evRetrievedStatusData {
			return State{kind: stateValidateStatus, license: s.documents.License, pendingData: e.data}, true
		}

	case stateFailure:
		// Terminal: no event causes a transition out of Failure.
	}

	return s, false
}
