package repository

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/readium/r2-lcp-go/internal/lcpdoc"
)

const sampleLicenseJSON = `{
	"id": "lic-1",
	"updated": "2024-05-01T00:00:00Z",
	"encryption": {"profile": "http://readium.org/lcp/basic-profile", "content_key": {"encrypted_value": "AAAA", "algorithm": "aes"}, "user_key": {"text_hint": "hint", "algorithm": "sha256", "key_check": "BBBB"}},
	"links": [{"rel": "status", "href": "https://example.com/status/lic-1"}]
}`

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(t.TempDir(), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSQLiteStore_AddThenGetRoundTrips(t *testing.T) {
	store := newTestStore(t)
	lic, err := lcpdoc.ParseLicense([]byte(sampleLicenseJSON))
	require.NoError(t, err)

	require.NoError(t, store.AddLicense(context.Background(), lic))

	got, err := store.Get(context.Background(), "lic-1")
	require.NoError(t, err)
	assert.Equal(t, "lic-1", got.ID())
}

func TestSQLiteStore_AddLicenseIsLastWriteWinsByUpdatedAt(t *testing.T) {
	store := newTestStore(t)

	older, err := lcpdoc.ParseLicense([]byte(`{
		"id": "lic-1", "updated": "2024-01-01T00:00:00Z",
		"encryption": {"profile": "http://readium.org/lcp/basic-profile", "content_key": {"encrypted_value": "AAAA", "algorithm": "aes"}, "user_key": {"text_hint": "h", "algorithm": "sha256", "key_check": "OLD"}},
		"links": []
	}`))
	require.NoError(t, err)
	newer, err := lcpdoc.ParseLicense([]byte(`{
		"id": "lic-1", "updated": "2024-06-01T00:00:00Z",
		"encryption": {"profile": "http://readium.org/lcp/basic-profile", "content_key": {"encrypted_value": "AAAA", "algorithm": "aes"}, "user_key": {"text_hint": "h", "algorithm": "sha256", "key_check": "NEW"}},
		"links": []
	}`))
	require.NoError(t, err)

	require.NoError(t, store.AddLicense(context.Background(), newer))
	require.NoError(t, store.AddLicense(context.Background(), older))

	got, err := store.Get(context.Background(), "lic-1")
	require.NoError(t, err)
	assert.Contains(t, string(got.Raw()), "NEW")
}

func TestSQLiteStore_GetMissingReturnsNilWithoutError(t *testing.T) {
	store := newTestStore(t)
	got, err := store.Get(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, got)
}
