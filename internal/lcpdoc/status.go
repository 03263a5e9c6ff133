package lcpdoc

import (
	"encoding/json"
	"time"
)

// Status enumerates the lifecycle states an LSD server reports for a
// license copy.
type Status string

const (
	StatusReady     Status = "ready"
	StatusActive    Status = "active"
	StatusExpired   Status = "expired"
	StatusReturned  Status = "returned"
	StatusRevoked   Status = "revoked"
	StatusCancelled Status = "cancelled"
)

// Event is a single entry in a Status Document's events list, e.g. a
// device registration record.
type Event struct {
	Type      string    `json:"type"`
	Name      string    `json:"name,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	ID        string    `json:"id,omitempty"`
}

// StatusDocument wraps the raw bytes of a Status Document and exposes
// typed accessors.
type StatusDocument struct {
	raw  []byte
	body statusBody
}

type statusBody struct {
	ID      string  `json:"id"`
	Status  Status  `json:"status"`
	Message string  `json:"message,omitempty"`
	Updated struct {
		License time.Time `json:"license"`
		Status  time.Time `json:"status"`
	} `json:"updated"`
	Links  []Link  `json:"links"`
	Events []Event `json:"events,omitempty"`
}

// ParseStatus decodes and validates a Status Document's mandatory fields.
func ParseStatus(raw []byte) (*StatusDocument, error) {
	if len(raw) == 0 {
		return nil, newParsingError(KindStatus, "empty document", nil)
	}

	var body statusBody
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, newParsingError(KindStatus, "invalid JSON", err)
	}

	switch body.Status {
	case StatusReady, StatusActive, StatusExpired, StatusReturned, StatusRevoked, StatusCancelled:
	default:
		return nil, newParsingError(KindStatus, "unknown status value: "+string(body.Status), nil)
	}
	if body.Updated.License.IsZero() {
		return nil, newParsingError(KindStatus, "missing updated.license", nil)
	}

	return &StatusDocument{raw: raw, body: body}, nil
}

// Raw returns the exact bytes this Status Document was parsed from.
func (s *StatusDocument) Raw() []byte { return s.raw }

// Status returns the current lifecycle status.
func (s *StatusDocument) Status() Status { return s.body.Status }

// Message returns the human-readable status message, if any.
func (s *StatusDocument) Message() string { return s.body.Message }

// LicenseUpdated returns the authoritative "latest LD updated" timestamp.
func (s *StatusDocument) LicenseUpdated() time.Time { return s.body.Updated.License }

// StatusUpdated returns when the status itself was last changed.
func (s *StatusDocument) StatusUpdated() time.Time { return s.body.Updated.Status }

// Link resolves the first link with the given relation name, if present.
func (s *StatusDocument) Link(rel string) (Link, bool) {
	for _, link := range s.body.Links {
		if link.Rel == rel {
			return link, true
		}
	}
	return Link{}, false
}

// Events returns the document's event log.
func (s *StatusDocument) Events() []Event { return s.body.Events }

// EventCount returns the number of events of the given type, used to
// compute the device_count on a Revoked StatusError (spec §4.5).
func (s *StatusDocument) EventCount(eventType string) int {
	n := 0
	for _, ev := range s.body.Events {
		if ev.Type == eventType {
			n++
		}
	}
	return n
}
