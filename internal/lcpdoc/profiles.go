package lcpdoc

// Encryption profile URIs recognized by this client, mirroring the
// profiles published in the Readium LCP specification.
const (
	ProfileBasic           = "http://readium.org/lcp/basic-profile"
	Profile10               = "http://readium.org/lcp/profile-1.0"
	ProfileSensitiveDataV1  = "http://www.edrlab.org/lcp/profile-2.x/sensitive-data"
)

// SupportedProfiles is the fixed set of profiles this client accepts in
// a production build. Outside production, only ProfileBasic is allowed
// (spec §3, "Supported profiles").
func SupportedProfiles() []string {
	return []string{ProfileBasic, Profile10, ProfileSensitiveDataV1}
}

// IsProfileSupported reports whether profile may be used, given whether
// this is a production build.
func IsProfileSupported(profile string, production bool) bool {
	if !production {
		return profile == ProfileBasic
	}
	for _, p := range SupportedProfiles() {
		if p == profile {
			return true
		}
	}
	return false
}
