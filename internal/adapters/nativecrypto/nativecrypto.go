// Package nativecrypto is a reference lcpdoc.NativeCrypto: a pure-Go
// stand-in for the platform-specific LCP crypto library that a real
// reading app links against (delegating integrity checks to native
// code is explicitly out of scope for the validation core). It derives
// a content key from the passphrase with PBKDF2 and performs
// AES-256-GCM sealing/opening with it, so it is suitable for tests and
// for basic-profile licenses
// issued by a test provider, never for a production deployment.
package nativecrypto

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"golang.org/x/crypto/pbkdf2"

	"github.com/readium/r2-lcp-go/internal/lcpdoc"
)

const (
	keySize      = 32
	pbkdf2Rounds = 100000
)

var errInvalidPassphrase = errors.New("nativecrypto: passphrase does not match key_check")

// licenseView decodes just the fields CreateContext needs from the raw
// License Document JSON.
type licenseView struct {
	ID         string `json:"id"`
	Encryption struct {
		UserKey struct {
			KeyCheck string `json:"key_check"`
		} `json:"user_key"`
	} `json:"encryption"`
}

// Context is the DRM context handle this package hands back: an
// AES-256-GCM key derived from a verified passphrase.
type Context struct {
	key      []byte
	released bool
}

// Release implements lcpdoc.DRMContext.
func (c *Context) Release() {
	for i := range c.key {
		c.key[i] = 0
	}
	c.released = true
}

// Open decrypts a resource sealed the way Seal produces, for tests and
// for reading apps that want this package to also own resource
// decryption rather than just the handshake.
func (c *Context) Open(ciphertext []byte) ([]byte, error) {
	if c.released {
		return nil, errors.New("nativecrypto: context released")
	}
	block, err := aes.NewCipher(c.key)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	if len(ciphertext) < gcm.NonceSize() {
		return nil, errors.New("nativecrypto: ciphertext too short")
	}
	nonce, data := ciphertext[:gcm.NonceSize()], ciphertext[gcm.NonceSize():]
	return gcm.Open(nil, nonce, data, nil)
}

// Crypto implements lcpdoc.NativeCrypto.
type Crypto struct{}

// New builds a reference Crypto.
func New() *Crypto { return &Crypto{} }

func deriveKey(licenseID, passphrase string) []byte {
	return pbkdf2.Key([]byte(passphrase), []byte(licenseID), pbkdf2Rounds, keySize, sha256.New)
}

func keyCheckOf(key []byte) string {
	sum := sha256.Sum256(key)
	return hex.EncodeToString(sum[:])
}

// CreateContext implements lcpdoc.NativeCrypto. It derives a key from
// passphrase and the license id, then accepts it only if its digest
// matches the license's key_check value. A license with no key_check
// accepts any passphrase.
func (c *Crypto) CreateContext(_ context.Context, licenseJSON []byte, passphrase string, _ []byte) (lcpdoc.DRMContext, error) {
	var view licenseView
	if err := json.Unmarshal(licenseJSON, &view); err != nil {
		return nil, fmt.Errorf("nativecrypto: decode license: %w", err)
	}

	key := deriveKey(view.ID, passphrase)
	if view.Encryption.UserKey.KeyCheck != "" && keyCheckOf(key) != view.Encryption.UserKey.KeyCheck {
		return nil, errInvalidPassphrase
	}

	return &Context{key: key}, nil
}

// FindOneValidPassphrase implements lcpdoc.NativeCrypto.
func (c *Crypto) FindOneValidPassphrase(ctx context.Context, licenseJSON []byte, candidates []string) (string, bool) {
	for _, candidate := range candidates {
		if _, err := c.CreateContext(ctx, licenseJSON, candidate, nil); err == nil {
			return candidate, true
		}
	}
	return "", false
}

// Seal encrypts plaintext under ctx's key, prepending the given nonce,
// for tests that need to round-trip a resource through this package.
func Seal(ctx *Context, plaintext []byte, nonce []byte) ([]byte, error) {
	block, err := aes.NewCipher(ctx.key)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

// KeyCheckFor computes the key_check value a test license fixture
// should carry for passphrase to be accepted.
func KeyCheckFor(licenseID, passphrase string) string {
	return keyCheckOf(deriveKey(licenseID, passphrase))
}
