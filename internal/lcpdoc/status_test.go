package lcpdoc

import "testing"

func sampleStatusJSON(status string, events string) []byte {
	return []byte(`{
		"id": "lic-1",
		"status": "` + status + `",
		"message": "the license is ` + status + `",
		"updated": {"license": "2024-01-01T00:00:00Z", "status": "2024-06-01T00:00:00Z"},
		"links": [
			{"rel": "license", "href": "https://example.com/licenses/lic-1"},
			{"rel": "register", "href": "https://example.com/register{?id,name}", "templated": true}
		],
		"events": [` + events + `]
	}`)
}

func TestParseStatus_Valid(t *testing.T) {
	sd, err := ParseStatus(sampleStatusJSON("revoked", `{"type":"register","timestamp":"2024-02-01T00:00:00Z"},{"type":"register","timestamp":"2024-03-01T00:00:00Z"},{"type":"renew","timestamp":"2024-04-01T00:00:00Z"}`))
	if err != nil {
		t.Fatalf("ParseStatus() error = %v", err)
	}
	if sd.Status() != StatusRevoked {
		t.Errorf("Status() = %v, want %v", sd.Status(), StatusRevoked)
	}
	if got := sd.EventCount("register"); got != 2 {
		t.Errorf("EventCount(register) = %d, want 2", got)
	}
	if _, ok := sd.Link("register"); !ok {
		t.Error("expected a register link")
	}
}

func TestParseStatus_UnknownStatus(t *testing.T) {
	_, err := ParseStatus(sampleStatusJSON("frobnicated", ""))
	if err == nil {
		t.Fatal("expected error for unknown status value")
	}
}

func TestParseStatus_MissingUpdatedLicense(t *testing.T) {
	raw := []byte(`{"id":"x","status":"active","updated":{"status":"2024-01-01T00:00:00Z"}}`)
	_, err := ParseStatus(raw)
	if err == nil {
		t.Fatal("expected error for missing updated.license")
	}
}
