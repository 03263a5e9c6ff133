package lcpdoc

import (
	"errors"
	"testing"
)

func sampleLicenseJSON(updated string) []byte {
	return []byte(`{
		"id": "lic-1",
		"issued": "2020-01-01T00:00:00Z",
		"updated": "` + updated + `",
		"encryption": {"profile": "` + ProfileBasic + `"},
		"rights": {"start": "2020-01-01T00:00:00Z", "end": "2030-01-01T00:00:00Z"},
		"links": [{"rel": "status", "href": "https://example.com/status/lic-1"}]
	}`)
}

func TestParseLicense_Valid(t *testing.T) {
	lic, err := ParseLicense(sampleLicenseJSON("2024-01-01T00:00:00Z"))
	if err != nil {
		t.Fatalf("ParseLicense() error = %v", err)
	}
	if lic.ID() != "lic-1" {
		t.Errorf("ID() = %q, want lic-1", lic.ID())
	}
	if lic.Profile() != ProfileBasic {
		t.Errorf("Profile() = %q, want %q", lic.Profile(), ProfileBasic)
	}
	if lic.RightsStart() == nil || lic.RightsEnd() == nil {
		t.Fatal("expected rights window to be set")
	}
	if link, ok := lic.Link("status"); !ok || link.Href == "" {
		t.Error("expected a status link")
	}
}

func TestParseLicense_Malformed(t *testing.T) {
	tests := []struct {
		name string
		raw  []byte
	}{
		{"empty", nil},
		{"bad json", []byte("not json")},
		{"missing id", []byte(`{"updated":"2024-01-01T00:00:00Z","encryption":{"profile":"` + ProfileBasic + `"}}`)},
		{"missing profile", []byte(`{"id":"x","updated":"2024-01-01T00:00:00Z","encryption":{}}`)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseLicense(tt.raw)
			if err == nil {
				t.Fatal("expected error")
			}
			var pe *ParsingError
			if !errors.As(err, &pe) {
				t.Fatalf("expected *ParsingError, got %T", err)
			}
			if pe.Kind != KindLicense {
				t.Errorf("Kind = %v, want %v", pe.Kind, KindLicense)
			}
		})
	}
}

func TestLicense_NewerThan(t *testing.T) {
	older, err := ParseLicense(sampleLicenseJSON("2024-01-01T00:00:00Z"))
	if err != nil {
		t.Fatal(err)
	}
	newer, err := ParseLicense(sampleLicenseJSON("2024-06-01T00:00:00Z"))
	if err != nil {
		t.Fatal(err)
	}
	if !newer.NewerThan(older) {
		t.Error("expected newer license to be NewerThan older")
	}
	if older.NewerThan(newer) {
		t.Error("expected older license to not be NewerThan newer")
	}
	if !older.NewerThan(nil) {
		t.Error("any license should be NewerThan a nil previous license")
	}
}
