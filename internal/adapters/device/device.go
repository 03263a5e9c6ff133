// Package device implements lcpdoc.DeviceService: it reports the
// device's id and name to the link advertised by a Status Document,
// signing the request with a short-lived JWT assertion so the LSD
// server can attribute registrations to this reader install (grounded
// on the pack's JWT-issuing services).
package device

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/readium/r2-lcp-go/internal/lcpdoc"
	"github.com/readium/r2-lcp-go/internal/platformctx"
)

// Service registers a device against a Status Document's "register"
// link.
type Service struct {
	client     *http.Client
	platform   platformctx.Info
	signingKey []byte
}

// New builds a Service. signingKey authenticates the registration
// assertion to the LSD server; it is specific to the deployment, not a
// secret the reading app needs to keep from its own user.
func New(client *http.Client, platform platformctx.Info, signingKey []byte) *Service {
	if client == nil {
		client = http.DefaultClient
	}
	return &Service{client: client, platform: platform, signingKey: signingKey}
}

type registrationClaims struct {
	DeviceID   string `json:"device_id"`
	LicenseID  string `json:"license_id"`
	jwt.RegisteredClaims
}

// RegisterLicense implements lcpdoc.DeviceService.
func (s *Service) RegisterLicense(ctx context.Context, license *lcpdoc.License, registerLink lcpdoc.Link) ([]byte, error) {
	href := expandRegisterTemplate(registerLink, s.platform)

	token, err := s.assertion(license)
	if err != nil {
		return nil, fmt.Errorf("sign device registration assertion: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, href, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, err
		}
		if len(body) > 0 {
			return body, nil
		}
		return nil, nil
	}
	if resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusForbidden {
		// Already registered or rejected: not a transport failure, but
		// there is no fresh Status Document to report either.
		return nil, nil
	}
	return nil, fmt.Errorf("device registration failed: status %d", resp.StatusCode)
}

func (s *Service) assertion(license *lcpdoc.License) (string, error) {
	claims := registrationClaims{
		DeviceID:  s.platform.DeviceID,
		LicenseID: license.ID(),
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(5 * time.Minute)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.signingKey)
}

// expandRegisterTemplate fills in the {?id,name} query template the LSD
// spec uses for the register link, falling back to appending plain
// query parameters if the link isn't templated.
func expandRegisterTemplate(link lcpdoc.Link, platform platformctx.Info) string {
	query := url.Values{"id": {platform.DeviceID}, "name": {platform.DeviceName}}.Encode()
	if !link.Templated {
		sep := "?"
		if strings.Contains(link.Href, "?") {
			sep = "&"
		}
		return link.Href + sep + query
	}
	if idx := strings.Index(link.Href, "{"); idx >= 0 {
		return link.Href[:idx] + "?" + query
	}
	return link.Href + "?" + query
}
